package session

import (
	"sync"
	"time"
)

// Registry tracks last activity per user and expires idle sessions lazily.
// A zero idle timeout disables it: every user is reported active.
type Registry struct {
	mu   sync.Mutex
	idle time.Duration
	last map[string]time.Time
}

// NewRegistry constructs a Registry with the given idle timeout.
func NewRegistry(idle time.Duration) *Registry {
	if idle < 0 {
		idle = 0
	}
	return &Registry{idle: idle, last: make(map[string]time.Time)}
}

// Enabled reports whether idle tracking is on.
func (r *Registry) Enabled() bool {
	return r != nil && r.idle > 0
}

// Touch records activity for userID.
func (r *Registry) Touch(userID string, now time.Time) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	r.last[userID] = now
	r.mu.Unlock()
}

// Active reports whether userID has been seen within the idle timeout.
// An idle entry is removed.
func (r *Registry) Active(userID string, now time.Time) bool {
	if !r.Enabled() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.last[userID]
	if !ok {
		return false
	}
	if now.Sub(t) > r.idle {
		delete(r.last, userID)
		return false
	}
	return true
}

// Remove forgets userID.
func (r *Registry) Remove(userID string) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	delete(r.last, userID)
	r.mu.Unlock()
}

// Len returns the number of tracked users.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.last)
}
