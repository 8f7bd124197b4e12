package tokenstore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"careerquest/cmd/internal/migrate"
	"careerquest/cmd/security/token"
)

func TestPostgresStore_Lifecycle(t *testing.T) {
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

	s, err := NewPostgresStore(pool, "")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	plain, err := token.NewOpaque(32)
	require.NoError(t, err)
	hash := token.HashSHA256Hex(plain)

	require.NoError(t, s.Put(ctx, Record{Hash: hash, Kind: KindPasswordReset, UserID: "u-it", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.ErrorIs(t, s.Put(ctx, Record{Hash: hash, Kind: KindPasswordReset, UserID: "u-it", ExpiresAt: now.Add(time.Hour), CreatedAt: now}), ErrDuplicate)

	got, err := s.Get(ctx, hash, KindPasswordReset, now)
	require.NoError(t, err)
	require.Equal(t, "u-it", got.UserID)

	_, err = s.Take(ctx, hash, KindPasswordReset, now)
	require.NoError(t, err)
	_, err = s.Take(ctx, hash, KindPasswordReset, now)
	require.ErrorIs(t, err, ErrNotFound)

	expiredHash := token.HashSHA256Hex(plain + "-expired")
	require.NoError(t, s.Put(ctx, Record{Hash: expiredHash, Kind: KindRefresh, UserID: "u-it", ExpiresAt: now.Add(-time.Second), CreatedAt: now.Add(-time.Hour)}))
	_, err = s.Get(ctx, expiredHash, KindRefresh, now)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Take(ctx, expiredHash, KindRefresh, now)
	require.ErrorIs(t, err, ErrNotFound)
}
