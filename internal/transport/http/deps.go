package http

import (
	"context"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/infrastructure/smtp"
	"github.com/go-accounts-api/internal/infrastructure/token"
)

// UserRepository is the minimal interface the router requires from a user store.
// The store, not the application layer, enforces username/email uniqueness.
type UserRepository interface {
	Insert(ctx context.Context, u *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailAndResetCode(ctx context.Context, email, resetCode string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      UserRepository
	Mailer        smtp.Mailer
	TokenProvider *token.Provider
}
