package ratelimit

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"careerquest/cmd/internal/migrate"
)

func TestPostgres_BlocksAndClears(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("CQ_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("CQ_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, migrate.Up(ctx, pool))

	l, err := NewPostgres(pool, "", Policy{Threshold: 3, Window: time.Minute})
	require.NoError(t, err)

	id := "it-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(ctx, id, now))
	}

	d, err := l.Check(ctx, id, now)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.True(t, d.UnlockAt.Equal(now.Add(time.Minute)))

	d, err = l.Check(ctx, id, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, d.Allowed)

	require.NoError(t, l.Record(ctx, id, now))
	require.NoError(t, l.Clear(ctx, id))
	d, err = l.Check(ctx, id, now)
	require.NoError(t, err)
	require.Equal(t, 3, d.Remaining)
}
