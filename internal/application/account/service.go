package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/infrastructure/smtp"
	"github.com/go-accounts-api/internal/pkg/code"
	"github.com/go-accounts-api/internal/pkg/id"
	"github.com/go-accounts-api/internal/pkg/password"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldPasswordHash     = "password_hash"
	fieldVerificationCode = "verification_code"
	fieldResetCode        = "reset_code"
	fieldIsVerified       = "is_verified"
)

const (
	verificationSubject = "Verify your account"
	resetSubject        = "Password recovery code"
)

// VerifyResult reports the outcome of a successful Verify call.
// AlreadyVerified is set when the account was verified before the call;
// submitting any code to a verified account is a no-op, not an error.
type VerifyResult struct {
	AlreadyVerified bool
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Verify(ctx context.Context, username, verificationCode string) (*VerifyResult, error)
	Login(ctx context.Context, username, plaintext string) (bearer string, u *domain.User, err error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, resetCode, newPassword string) error
	CurrentUser(ctx context.Context, username string) (*domain.User, error)
}

type userStore interface {
	Insert(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailAndResetCode(ctx context.Context, email, resetCode string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(username string) (string, error)
}

type service struct {
	repo   userStore
	mailer smtp.Mailer
	tokens tokenSigner
}

type ServiceDeps struct {
	UserRepo userStore
	Mailer   smtp.Mailer
	Tokens   tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:   deps.UserRepo,
		mailer: deps.Mailer,
		tokens: deps.Tokens,
	}
}

// Register creates an unverified account and emails its verification code.
// The mail send is best-effort: a delivery failure is logged, never surfaced.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if err := password.Validate(req.Password); err != nil {
		return nil, err
	}
	// Friendly pre-checks; the transactional insert below is the actual
	// uniqueness enforcement under concurrent registration.
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	verificationCode := code.New()
	now := time.Now().UTC()
	u := &domain.User{
		UserID:           id.New(),
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     hash,
		VerificationCode: &verificationCode,
		IsVerified:       false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}
	if err := s.mailer.SendEmail(u.Email, verificationSubject, verificationBody(verificationCode)); err != nil {
		slog.Warn("failed to send verification email", "username", u.Username, "err", err)
	}
	return u, nil
}

// Verify transitions an unverified account to verified when the submitted
// code matches, clearing the stored code. Verified accounts accept any code
// idempotently.
func (s *service) Verify(ctx context.Context, username, verificationCode string) (*VerifyResult, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.IsVerified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}
	if u.VerificationCode == nil || *u.VerificationCode != verificationCode {
		return nil, fmt.Errorf("incorrect verification code: %w", domain.ErrInvalidCode)
	}
	err = s.repo.Update(ctx, u.UserID, map[string]interface{}{
		fieldIsVerified:       true,
		fieldVerificationCode: nil,
	})
	if err != nil {
		return nil, err
	}
	return &VerifyResult{}, nil
}

// Login checks credentials and issues a bearer token. Unknown username and
// wrong password produce the same error so neither case is distinguishable.
func (s *service) Login(ctx context.Context, username, plaintext string) (string, *domain.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !password.Verify(plaintext, u.PasswordHash) {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.IsVerified {
		return "", nil, fmt.Errorf("account not verified: %w", domain.ErrForbidden)
	}
	bearer, err := s.tokens.Sign(u.Username)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return bearer, u, nil
}

// ForgotPassword stores a fresh reset code and emails it. It reports success
// whether or not the email resolves to an account; anything else would let a
// caller probe for registered addresses.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		slog.Debug("password reset requested for unknown email")
		return nil
	}
	if !u.IsVerified {
		// Reset is only reachable from a verified account.
		slog.Debug("password reset requested for unverified account", "username", u.Username)
		return nil
	}
	resetCode := code.New()
	if err := s.repo.Update(ctx, u.UserID, map[string]interface{}{fieldResetCode: resetCode}); err != nil {
		// Still answer with the generic success; a distinct failure here
		// would leak that the address exists.
		slog.Error("failed to store reset code", "username", u.Username, "err", err)
		return nil
	}
	if err := s.mailer.SendEmail(u.Email, resetSubject, resetBody(resetCode)); err != nil {
		slog.Warn("failed to send reset email", "username", u.Username, "err", err)
	}
	return nil
}

// ResetPassword completes the reset flow: the (email, code) pair must match
// a pending reset and the new password must pass policy.
func (s *service) ResetPassword(ctx context.Context, email, resetCode, newPassword string) error {
	u, err := s.repo.GetByEmailAndResetCode(ctx, email, resetCode)
	if err != nil {
		return fmt.Errorf("invalid or expired recovery code: %w", domain.ErrInvalidCode)
	}
	if err := password.Validate(newPassword); err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, u.UserID, map[string]interface{}{
		fieldPasswordHash: hash,
		fieldResetCode:    nil,
	})
}

// CurrentUser resolves a token subject back to its account.
func (s *service) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return u, nil
}

func verificationBody(c string) string {
	return fmt.Sprintf(`<html>
  <body>
    <h2>Verify your account</h2>
    <p>Your verification code is: <b>%s</b></p>
  </body>
</html>`, c)
}

func resetBody(c string) string {
	return fmt.Sprintf(`<html>
  <body>
    <h2>Password recovery</h2>
    <p>You asked to reset your password.</p>
    <p>Your recovery code is: <b>%s</b></p>
    <p>If this wasn't you, ignore this message.</p>
  </body>
</html>`, c)
}
