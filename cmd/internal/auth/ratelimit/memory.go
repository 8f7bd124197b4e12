package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory keeps attempt timestamps per identifier in process memory.
// Entries outside the window are pruned on every Check and Record.
type Memory struct {
	mu       sync.Mutex
	policy   Policy
	attempts map[string][]time.Time
}

// NewMemory constructs a Memory limiter. Non-positive policy fields take defaults.
func NewMemory(p Policy) *Memory {
	return &Memory{
		policy:   p.normalized(),
		attempts: make(map[string][]time.Time),
	}
}

// Check implements Limiter.
func (m *Memory) Check(ctx context.Context, id string, now time.Time) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	valid := m.pruneLocked(id, now)
	var oldest time.Time
	for i, t := range valid {
		if i == 0 || t.Before(oldest) {
			oldest = t
		}
	}
	return m.policy.evaluate(len(valid), oldest), nil
}

// Record implements Limiter.
func (m *Memory) Record(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	valid := m.pruneLocked(id, now)
	m.attempts[id] = append(valid, now)
	return nil
}

// Clear implements Limiter.
func (m *Memory) Clear(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.attempts, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored timestamps for id.
func (m *Memory) Len(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts[id])
}

func (m *Memory) pruneLocked(id string, now time.Time) []time.Time {
	ts, ok := m.attempts[id]
	if !ok {
		return nil
	}

	cut := now.Add(-m.policy.Window)
	dst := ts[:0]
	for _, t := range ts {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	if len(dst) == 0 {
		delete(m.attempts, id)
		return nil
	}
	m.attempts[id] = dst
	return dst
}
