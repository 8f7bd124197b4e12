package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_BlocksAfterThreshold(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Policy{})
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		d, err := m.Check(ctx, "1.2.3.4", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 5-i, d.Remaining)
		require.NoError(t, m.Record(ctx, "1.2.3.4", base.Add(time.Duration(i)*time.Minute)))
	}

	now := base.Add(5 * time.Minute)
	d, err := m.Check(ctx, "1.2.3.4", now)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, base.Add(15*time.Minute), d.UnlockAt)
	require.Equal(t, 10*time.Minute, d.RetryAfter(now))

	other, err := m.Check(ctx, "5.6.7.8", now)
	require.NoError(t, err)
	require.True(t, other.Allowed)
}

func TestMemory_SlidingWindowReleases(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Policy{Threshold: 2, Window: time.Minute})
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, m.Record(ctx, "ip", base))
	require.NoError(t, m.Record(ctx, "ip", base.Add(30*time.Second)))

	d, err := m.Check(ctx, "ip", base.Add(59*time.Second))
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// At base+1m the first attempt is exactly on the boundary and no longer counts.
	d, err = m.Check(ctx, "ip", base.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Remaining)
	require.Equal(t, 1, m.Len("ip"))
}

func TestMemory_RecordPrunesOldEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Policy{Threshold: 5, Window: time.Minute})
	base := time.Now().UTC()

	for i := 0; i < 100; i++ {
		require.NoError(t, m.Record(ctx, "ip", base.Add(time.Duration(i)*time.Minute)))
	}
	require.Equal(t, 1, m.Len("ip"))
}

func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Policy{})
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		require.NoError(t, m.Record(ctx, "ip", now))
	}
	d, err := m.Check(ctx, "ip", now)
	require.NoError(t, err)
	require.Equal(t, 1, d.Remaining)

	require.NoError(t, m.Clear(ctx, "ip"))
	d, err = m.Check(ctx, "ip", now)
	require.NoError(t, err)
	require.Equal(t, 5, d.Remaining)
	require.Equal(t, 0, m.Len("ip"))
}

func TestDecision_RetryAfterRoundsUp(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	d := Decision{UnlockAt: now.Add(1500 * time.Millisecond)}
	require.Equal(t, 2*time.Second, d.RetryAfter(now))
	require.Equal(t, time.Duration(0), Decision{Allowed: true}.RetryAfter(now))
}
