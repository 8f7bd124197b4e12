package reset

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"careerquest/cmd/internal/auth/tokenstore"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *tokenstore.MemoryStore) {
	t.Helper()
	st := tokenstore.NewMemoryStore()
	svc, err := NewService(st, opts...)
	require.NoError(t, err)
	return svc, st
}

func TestService_IssueVerifyConsume(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	iss, err := svc.Issue(ctx, "u1", now)
	require.NoError(t, err)
	require.NotEmpty(t, iss.Token)
	require.Equal(t, now.Add(time.Hour), iss.ExpiresAt)

	rec, err := svc.Verify(ctx, iss.Token, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, "u1", rec.UserID)

	rec, err = svc.Consume(ctx, iss.Token, now.Add(31*time.Minute))
	require.NoError(t, err)
	require.Equal(t, "u1", rec.UserID)

	_, err = svc.Consume(ctx, iss.Token, now.Add(32*time.Minute))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Verify(ctx, iss.Token, now.Add(32*time.Minute))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_ExpiredTokenIsRemoved(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	now := time.Now().UTC()

	iss, err := svc.Issue(ctx, "u1", now)
	require.NoError(t, err)

	// Still valid at the exact expiry instant.
	_, err = svc.Verify(ctx, iss.Token, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Verify(ctx, iss.Token, now.Add(time.Hour+time.Nanosecond))
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, st.Len())
}

func TestService_ConsumeAtMostOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	now := time.Now().UTC()

	iss, err := svc.Issue(ctx, "u1", now)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Consume(ctx, iss.Token, now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestService_NewIssueSupersedesOld(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, WithTTL(10*time.Minute))
	now := time.Now().UTC()

	first, err := svc.Issue(ctx, "u1", now)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "u1", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, now.Add(11*time.Minute), second.ExpiresAt)

	_, err = svc.Consume(ctx, first.Token, now.Add(2*time.Minute))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Consume(ctx, second.Token, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 0, st.Len())
}

func TestService_InvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Issue(ctx, "  ", time.Now())
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Consume(ctx, "", time.Now())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = NewService(nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewService(tokenstore.NewMemoryStore(), WithTTL(0))
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewService(tokenstore.NewMemoryStore(), WithTokenBytes(8))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_RevokeUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	now := time.Now().UTC()

	iss, err := svc.Issue(ctx, "u1", now)
	require.NoError(t, err)
	require.NoError(t, svc.RevokeUser(ctx, "u1"))

	_, err = svc.Consume(ctx, iss.Token, now)
	require.ErrorIs(t, err, ErrNotFound)
}
