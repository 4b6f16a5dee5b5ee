package domain

import "time"

// User is the persistent account record. VerificationCode is only present
// while the account is unverified; ResetCode only while a password reset is
// in flight. The plaintext password never appears here.
type User struct {
	UserID           string    `json:"id" dynamodbav:"user_id"`
	Username         string    `json:"username" dynamodbav:"username"`
	Email            string    `json:"email" dynamodbav:"email"`
	PasswordHash     string    `json:"-" dynamodbav:"password_hash"`
	VerificationCode *string   `json:"-" dynamodbav:"verification_code,omitempty"`
	ResetCode        *string   `json:"-" dynamodbav:"reset_code,omitempty"`
	IsVerified       bool      `json:"is_verified" dynamodbav:"is_verified"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type VerifyRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}
