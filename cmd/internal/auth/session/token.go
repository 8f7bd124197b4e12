package session

import (
	"fmt"
	"time"
)

// TokenTypeAccess is the "type" claim carried by access tokens.
const TokenTypeAccess = "access"

// AccessClaims is the identity envelope carried by an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// AccessTokenManager issues and verifies access tokens.
//
// Verify has three outcomes: claims, ErrTokenExpired for a well-formed token past
// its expiry, or ErrInvalidToken for anything else.
type AccessTokenManager interface {
	Issue(userID, email string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

// NewAccessTokenManager returns the manager selected by cfg.Format.
func NewAccessTokenManager(cfg Config) (AccessTokenManager, error) {
	if len(cfg.Secret) < MinSecretBytes || cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}
	switch cfg.Format {
	case FormatJWT, "":
		return NewJWTManager(cfg)
	case FormatPaseto:
		return NewPasetoV4LocalManager(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown token format %q", ErrConfig, cfg.Format)
	}
}
