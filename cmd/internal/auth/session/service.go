package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"careerquest/cmd/internal/auth/tokenstore"
	"careerquest/cmd/security/token"
)

// Service implements the session operations for CareerQuest.
//
// It issues access + refresh token pairs, verifies and rotates refresh tokens,
// and revokes them individually or per user.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  tokenstore.Store
}

// Issued is the result of issuing or refreshing a session.
// RefreshToken is empty when a refresh ran without rotation.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// SubjectLookup resolves a user id to the email embedded in access tokens.
// An error aborts the refresh and is returned unchanged.
type SubjectLookup func(ctx context.Context, userID string) (email string, err error)

// NewService constructs a Service with the provided configuration, store, and token manager.
func NewService(cfg Config, store tokenstore.Store, tokens AccessTokenManager) *Service {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultConfig().RefreshTTL
	}
	return &Service{cfg: cfg, store: store, tokens: tokens}
}

// Config returns the service configuration.
func (s *Service) Config() Config { return s.cfg }

// IssueSession mints an access token and a stored refresh token for the user.
//
// Refresh tokens are opaque random strings and are never persisted in plaintext.
func (s *Service) IssueSession(ctx context.Context, now time.Time, userID, email string) (Issued, error) {
	refreshPlain, refreshExp, err := s.putRefresh(ctx, now, userID, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(userID, email, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
	}, nil
}

// IssueAccessToken issues an access token without touching refresh state.
func (s *Service) IssueAccessToken(userID, email string, now time.Time) (string, time.Time, error) {
	return s.tokens.Issue(userID, email, now)
}

// ValidateAccessToken verifies an access token. See AccessTokenManager for outcomes.
func (s *Service) ValidateAccessToken(tok string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(tok, now)
}

// VerifyRefresh returns the stored record for a refresh token.
// An expired record is deleted as a side effect and reported as ErrSessionNotFound.
func (s *Service) VerifyRefresh(ctx context.Context, refreshTokenPlain string, now time.Time) (tokenstore.Record, error) {
	hash, ok := refreshHash(refreshTokenPlain)
	if !ok {
		return tokenstore.Record{}, ErrSessionNotFound
	}
	rec, err := s.store.Get(ctx, hash, tokenstore.KindRefresh, now)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return tokenstore.Record{}, ErrSessionNotFound
	}
	return rec, err
}

// Refresh exchanges a refresh token for a new access token.
//
// With rotation enabled the presented token is taken atomically, so a replay or a
// concurrent second use fails with ErrSessionNotFound. The replacement keeps the
// original absolute expiry.
func (s *Service) Refresh(ctx context.Context, now time.Time, refreshTokenPlain string, lookup SubjectLookup) (Issued, tokenstore.Record, error) {
	hash, ok := refreshHash(refreshTokenPlain)
	if !ok {
		return Issued{}, tokenstore.Record{}, ErrSessionNotFound
	}

	var (
		rec tokenstore.Record
		err error
	)
	if s.cfg.RotateRefresh {
		rec, err = s.store.Take(ctx, hash, tokenstore.KindRefresh, now)
	} else {
		rec, err = s.store.Get(ctx, hash, tokenstore.KindRefresh, now)
	}
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return Issued{}, tokenstore.Record{}, ErrSessionNotFound
		}
		return Issued{}, tokenstore.Record{}, err
	}

	email, err := lookup(ctx, rec.UserID)
	if err != nil {
		return Issued{}, rec, err
	}

	accessToken, accessExp, err := s.tokens.Issue(rec.UserID, email, now)
	if err != nil {
		return Issued{}, rec, err
	}

	out := Issued{AccessToken: accessToken, AccessExp: accessExp}
	if s.cfg.RotateRefresh {
		out.RefreshToken, out.RefreshExp, err = s.putRefresh(ctx, now, rec.UserID, rec.ExpiresAt)
		if err != nil {
			return Issued{}, rec, err
		}
	}
	return out, rec, nil
}

// RevokeRefresh deletes a refresh token. Unknown tokens are not an error.
func (s *Service) RevokeRefresh(ctx context.Context, refreshTokenPlain string) error {
	hash, ok := refreshHash(refreshTokenPlain)
	if !ok {
		return nil
	}
	return s.store.Delete(ctx, hash)
}

// RevokeAll deletes every refresh token of a user.
func (s *Service) RevokeAll(ctx context.Context, userID string) (int, error) {
	return s.store.DeleteUser(ctx, userID, tokenstore.KindRefresh)
}

func (s *Service) putRefresh(ctx context.Context, now time.Time, userID string, exp time.Time) (string, time.Time, error) {
	plain, hash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	err = s.store.Put(ctx, tokenstore.Record{
		Hash:      hash,
		Kind:      tokenstore.KindRefresh,
		UserID:    userID,
		ExpiresAt: exp,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return plain, exp, nil
}

func refreshHash(plain string) (string, bool) {
	plain = strings.TrimSpace(plain)
	if plain == "" || len(plain) > maxRefreshTokenLen {
		return "", false
	}
	return token.HashHex(plain), true
}
