package password

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-accounts-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Symbols accepted by the digit-or-symbol rule.
const symbols = `!@#$%^&*(),.?":{}|<>`

// Hash derives a bcrypt hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
func Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Validate checks the password policy. Rules are evaluated in a fixed order
// and the first failure is returned, wrapped in domain.ErrValidation.
func Validate(candidate string) error {
	switch {
	case len(candidate) < 8:
		return fmt.Errorf("password must be at least 8 characters: %w", domain.ErrValidation)
	case len(candidate) > 72:
		return fmt.Errorf("password must be at most 72 characters: %w", domain.ErrValidation)
	case !containsFunc(candidate, unicode.IsUpper):
		return fmt.Errorf("password must include at least one uppercase letter: %w", domain.ErrValidation)
	case !containsFunc(candidate, unicode.IsLower):
		return fmt.Errorf("password must include at least one lowercase letter: %w", domain.ErrValidation)
	case !containsFunc(candidate, isDigitOrSymbol):
		return fmt.Errorf("password must include at least one number or special character: %w", domain.ErrValidation)
	}
	return nil
}

func isDigitOrSymbol(r rune) bool {
	return unicode.IsDigit(r) || strings.ContainsRune(symbols, r)
}

func containsFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if f(r) {
			return true
		}
	}
	return false
}
