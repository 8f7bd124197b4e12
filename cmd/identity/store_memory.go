package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store used when no database is configured.
// Both indexes live under one lock.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string // email_norm -> id, non-deleted users only
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, u User) (User, error) {
	const op = "identity.MemoryStore.Insert"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if u.ID == "" || u.EmailNorm == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "id and email are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[u.ID]; ok {
		return User{}, ConflictError{Op: op, Field: "id"}
	}
	if _, ok := s.byEmail[u.EmailNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	stored := u.clone()
	s.byID[u.ID] = stored
	s.byEmail[u.EmailNorm] = u.ID
	return stored.clone(), nil
}

// GetByID implements Store.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.MemoryStore.GetByID", Resource: "user"}
	}
	return u.clone(), nil
}

// GetByEmail implements Store.
func (s *MemoryStore) GetByEmail(ctx context.Context, emailNorm string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(emailNorm)]
	if !ok {
		return User{}, NotFoundError{Op: "identity.MemoryStore.GetByEmail", Resource: "user"}
	}
	return s.byID[id].clone(), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, id string, patch UserPatch, now time.Time) (User, error) {
	const op = "identity.MemoryStore.Update"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok || cur.Deleted {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	next := cur.clone()
	applyPatch(&next, patch, now)

	if next.EmailNorm != cur.EmailNorm {
		if owner, taken := s.byEmail[next.EmailNorm]; taken && owner != id {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		delete(s.byEmail, cur.EmailNorm)
		s.byEmail[next.EmailNorm] = id
	}
	s.byID[id] = next
	return next.clone(), nil
}

// SoftDelete implements Store. Deleting an already-deleted user is a no-op.
func (s *MemoryStore) SoftDelete(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: "identity.MemoryStore.SoftDelete", Resource: "user"}
	}
	if u.Deleted {
		return nil
	}
	at := now
	u.Deleted = true
	u.DeletedAt = &at
	u.UpdatedAt = now
	s.byID[id] = u
	delete(s.byEmail, u.EmailNorm)
	return nil
}
