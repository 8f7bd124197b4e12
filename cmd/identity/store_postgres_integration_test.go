package identity

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"careerquest/cmd/internal/migrate"
)

// Integration tests run only when CQ_TEST_DATABASE_URL is set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("CQ_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("CQ_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrate.Up(ctx, pool))
	return pool
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	st, err := NewPostgresStore(pool)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	id, err := NewULID(now)
	require.NoError(t, err)
	email := strings.ToLower(id) + "@it.example.com"

	_, err = st.Insert(ctx, User{
		ID: id, Name: "Ada", Email: email, EmailNorm: NormalizeEmail(email),
		PasswordHash: "$2a$04$x", Role: RoleStudent, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	dupID, err := NewULID(now)
	require.NoError(t, err)
	_, err = st.Insert(ctx, User{ID: dupID, Name: "Dup", Email: email, EmailNorm: NormalizeEmail(email), CreatedAt: now, UpdatedAt: now})
	require.True(t, IsConflict(err))

	later := now.Add(time.Minute)
	name := "Ada King"
	_, err = st.Update(ctx, id, UserPatch{Name: &name}, later)
	require.NoError(t, err)

	byID, err := st.GetByID(ctx, id)
	require.NoError(t, err)
	byEmail, err := st.GetByEmail(ctx, email)
	require.NoError(t, err)
	require.True(t, byID.UpdatedAt.Equal(byEmail.UpdatedAt))
	require.Equal(t, "Ada King", byEmail.Name)

	require.NoError(t, st.SoftDelete(ctx, id, later))
	_, err = st.GetByEmail(ctx, email)
	require.True(t, IsNotFound(err))
}
