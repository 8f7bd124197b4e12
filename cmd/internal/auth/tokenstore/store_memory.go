package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map guarded by one mutex.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !rec.valid() {
		return ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recs[rec.Hash]; ok {
		return ErrDuplicate
	}
	s.recs[rec.Hash] = rec
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, hash string, kind Kind, now time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookupLocked(hash, kind, now)
}

// Take implements Store.
func (s *MemoryStore) Take(ctx context.Context, hash string, kind Kind, now time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookupLocked(hash, kind, now)
	if err != nil {
		return Record{}, err
	}
	delete(s.recs, hash)
	return rec, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.recs, hash)
	s.mu.Unlock()
	return nil
}

// DeleteUser implements Store.
func (s *MemoryStore) DeleteUser(ctx context.Context, userID string, kind Kind) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for h, rec := range s.recs {
		if rec.UserID == userID && rec.Kind == kind {
			delete(s.recs, h)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func (s *MemoryStore) lookupLocked(hash string, kind Kind, now time.Time) (Record, error) {
	rec, ok := s.recs[hash]
	if !ok || rec.Kind != kind {
		return Record{}, ErrNotFound
	}
	if rec.Expired(now) {
		delete(s.recs, hash)
		return Record{}, ErrNotFound
	}
	return rec, nil
}
