// Package reset issues single-use password-reset tokens.
//
// Tokens are opaque, valid for one hour by default, and stored only as digests
// in a tokenstore.Store. Consume is an atomic take: one caller wins.
package reset

import (
	"context"
	"errors"
	"strings"
	"time"

	"careerquest/cmd/internal/auth/tokenstore"
	"careerquest/cmd/security/token"
)

const (
	defaultTokenBytes = 32
	defaultTTL        = time.Hour
	maxTokenLen       = 4096
)

// Issued is a freshly minted reset token.
type Issued struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Service manages reset-token issue, verification, and consumption.
type Service struct {
	store      tokenstore.Store
	tokenBytes int
	ttl        time.Duration
}

// Option configures the Service.
type Option func(*Service) error

// WithTokenBytes sets the length of generated tokens in bytes.
func WithTokenBytes(n int) Option {
	return func(s *Service) error {
		if n < 16 {
			return ErrInvalidInput
		}
		s.tokenBytes = n
		return nil
	}
}

// WithTTL sets the token lifetime.
func WithTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.ttl = d
		return nil
	}
}

// NewService constructs a Service with safe defaults.
func NewService(store tokenstore.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	s := &Service{store: store, tokenBytes: defaultTokenBytes, ttl: defaultTTL}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue mints a reset token for userID. Earlier outstanding tokens of the user are dropped,
// so only the most recent email link works.
func (s *Service) Issue(ctx context.Context, userID string, now time.Time) (Issued, error) {
	if err := ctx.Err(); err != nil {
		return Issued{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Issued{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	plain, err := token.NewOpaque(s.tokenBytes)
	if err != nil {
		return Issued{}, err
	}

	if _, err := s.store.DeleteUser(ctx, userID, tokenstore.KindPasswordReset); err != nil {
		return Issued{}, err
	}

	exp := now.Add(s.ttl)
	err = s.store.Put(ctx, tokenstore.Record{
		Hash:      token.HashHex(plain),
		Kind:      tokenstore.KindPasswordReset,
		UserID:    userID,
		ExpiresAt: exp,
		CreatedAt: now,
	})
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: plain, UserID: userID, ExpiresAt: exp}, nil
}

// Verify returns the record for a live token without consuming it.
// Expired tokens are deleted and reported as ErrNotFound.
func (s *Service) Verify(ctx context.Context, tokenStr string, now time.Time) (tokenstore.Record, error) {
	hash, ok := hashInput(tokenStr)
	if !ok {
		return tokenstore.Record{}, ErrNotFound
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return mapNotFound(s.store.Get(ctx, hash, tokenstore.KindPasswordReset, now))
}

// Consume verifies and deletes the token in one step. A replay returns ErrNotFound.
func (s *Service) Consume(ctx context.Context, tokenStr string, now time.Time) (tokenstore.Record, error) {
	hash, ok := hashInput(tokenStr)
	if !ok {
		return tokenstore.Record{}, ErrNotFound
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return mapNotFound(s.store.Take(ctx, hash, tokenstore.KindPasswordReset, now))
}

// RevokeUser drops every outstanding reset token of userID.
func (s *Service) RevokeUser(ctx context.Context, userID string) error {
	_, err := s.store.DeleteUser(ctx, userID, tokenstore.KindPasswordReset)
	return err
}

func hashInput(tokenStr string) (string, bool) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" || len(tokenStr) > maxTokenLen {
		return "", false
	}
	return token.HashHex(tokenStr), true
}

func mapNotFound(rec tokenstore.Record, err error) (tokenstore.Record, error) {
	if errors.Is(err, tokenstore.ErrNotFound) {
		return tokenstore.Record{}, ErrNotFound
	}
	return rec, err
}
