// Package ratelimit implements the login attempt limiter.
//
// Failed attempts are recorded per identifier (client IP). Only attempts inside
// the trailing window count; once Threshold of them exist, further attempts are
// refused until the oldest one leaves the window.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
)

// Decision is the result of a Check.
type Decision struct {
	Allowed   bool
	Remaining int
	// UnlockAt is set only when Allowed is false.
	UnlockAt time.Time
}

// RetryAfter returns the wait until UnlockAt, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.UnlockAt.IsZero() {
		return 0
	}
	w := d.UnlockAt.Sub(now)
	if w <= 0 {
		return 0
	}
	return (w + time.Second - 1).Truncate(time.Second)
}

// Limiter is the attempt-limiter contract used by the login flow.
type Limiter interface {
	// Check reports whether an attempt from id may proceed at now. It does not record.
	Check(ctx context.Context, id string, now time.Time) (Decision, error)

	// Record stores a failed attempt at now.
	Record(ctx context.Context, id string, now time.Time) error

	// Clear forgets every attempt of id.
	Clear(ctx context.Context, id string) error
}

// Policy is the threshold and window shared by implementations.
type Policy struct {
	Threshold int
	Window    time.Duration
}

func (p Policy) normalized() Policy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	return p
}

// evaluate applies the policy to attempts. oldest must be the minimum of the
// in-window timestamps and count their number.
func (p Policy) evaluate(count int, oldest time.Time) Decision {
	if count >= p.Threshold {
		return Decision{Allowed: false, Remaining: 0, UnlockAt: oldest.Add(p.Window)}
	}
	return Decision{Allowed: true, Remaining: p.Threshold - count}
}
