package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-accounts-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned by Verify when the signature checks out but the
// token is past its expiry. Every other failure (bad signature, malformed
// structure, missing claim) surfaces as a generic invalid-token error so the
// distinction only exists for diagnostics.
var ErrExpired = errors.New("token expired")

var errInvalid = errors.New("invalid token")

// Claims holds the JWT payload fields.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a shared server secret.
// Tokens are stateless: validity is signature plus expiry, nothing else.
type Provider struct {
	secret []byte
	expiry time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret not configured")
	}
	return &Provider{secret: []byte(cfg.JWTSecret), expiry: cfg.TokenTTL}, nil
}

// Sign issues a token for the given username, expiring after the configured TTL.
func (p *Provider) Sign(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(p.secret)
}

// Verify parses and validates a token, returning its claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, errInvalid
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Username == "" {
		return nil, errInvalid
	}
	return claims, nil
}
