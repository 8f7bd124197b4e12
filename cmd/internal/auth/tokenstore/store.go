// Package tokenstore persists hashed opaque tokens (refresh and password-reset).
//
// Records are keyed by the token digest; plaintext never reaches a Store.
// Expiry is lazy: an expired record is removed when it is next read.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// Kind separates token families sharing one table.
type Kind string

const (
	KindRefresh       Kind = "refresh"
	KindPasswordReset Kind = "password_reset"
)

var (
	// ErrNotFound is returned for unknown, expired, or wrong-kind tokens.
	ErrNotFound = errors.New("token not found")

	// ErrDuplicate is returned when a digest is already stored.
	ErrDuplicate = errors.New("token already exists")

	// ErrInvalidRecord is returned by Put for incomplete records.
	ErrInvalidRecord = errors.New("invalid token record")
)

// Record is one stored token.
type Record struct {
	Hash      string
	Kind      Kind
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether now is strictly past the expiry. A record is still
// valid at the exact expiry instant.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r Record) valid() bool {
	return r.Hash != "" && r.UserID != "" && r.Kind != "" && !r.ExpiresAt.IsZero()
}

// Store is the persistence boundary for token records.
type Store interface {
	// Put stores a new record.
	Put(ctx context.Context, rec Record) error

	// Get returns the live record. An expired record is deleted and reported as ErrNotFound.
	Get(ctx context.Context, hash string, kind Kind, now time.Time) (Record, error)

	// Take removes the record and returns it if it was live. At most one caller
	// observes success for a given hash.
	Take(ctx context.Context, hash string, kind Kind, now time.Time) (Record, error)

	// Delete removes the record if present. Idempotent.
	Delete(ctx context.Context, hash string) error

	// DeleteUser removes every record of kind for userID and reports how many were removed.
	DeleteUser(ctx context.Context, userID string, kind Kind) (int, error)
}
