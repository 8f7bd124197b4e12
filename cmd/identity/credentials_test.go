package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"careerquest/cmd/security/password"
)

func newTestCredentials(t *testing.T) (*Credentials, *MemoryStore) {
	t.Helper()
	pw := password.DefaultConfig()
	pw.BcryptCost = bcrypt.MinCost
	st := NewMemoryStore()
	c, err := NewCredentials(st, pw)
	require.NoError(t, err)
	return c, st
}

func TestCredentials_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	u, err := c.Create(ctx, CreateUserInput{Name: "  Ada   Lovelace ", Email: " Ada@X.com ", Password: "secret1"})
	require.NoError(t, err)
	require.Len(t, u.ID, 26)
	require.Equal(t, "Ada Lovelace", u.Name)
	require.Equal(t, "ada@x.com", u.Email)
	require.Equal(t, "ada@x.com", u.EmailNorm)
	require.Equal(t, RoleStudent, u.Role)
	require.NotEqual(t, "secret1", u.PasswordHash)
	require.True(t, c.VerifyPassword("secret1", u.PasswordHash))
	require.False(t, c.VerifyPassword("wrong", u.PasswordHash))

	byEmail, err := c.FindByEmail(ctx, "ADA@x.COM")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := c.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.EmailNorm, byID.EmailNorm)
}

func TestCredentials_CreateValidation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	cases := []struct {
		name  string
		in    CreateUserInput
		field string
	}{
		{"short name", CreateUserInput{Name: "A", Email: "a@x.com", Password: "secret1"}, "name"},
		{"bad email", CreateUserInput{Name: "Ada", Email: "not-an-email", Password: "secret1"}, "email"},
		{"no tld", CreateUserInput{Name: "Ada", Email: "ada@localhost", Password: "secret1"}, "email"},
		{"short password", CreateUserInput{Name: "Ada", Email: "a@x.com", Password: "abc"}, "password"},
		{"weak password", CreateUserInput{Name: "Ada", Email: "a@x.com", Password: "password"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Create(ctx, tc.in)
			require.Error(t, err)
			require.True(t, IsInvalidInput(err))
			require.Equal(t, tc.field, InvalidField(err))
		})
	}
}

func TestCredentials_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	_, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = c.Create(ctx, CreateUserInput{Name: "Ada Two", Email: "ADA@X.COM", Password: "secret1"})
	require.Error(t, err)
	require.True(t, IsConflict(err))
	require.ErrorIs(t, err, ErrConflict)
}

func TestCredentials_UpdateKeepsIndexesInSync(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	u, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	name := "Ada King"
	skills := []string{"go", " Go ", "sql"}
	edu := "BSc"
	done := true
	upd, err := c.Update(ctx, u.ID, UserPatch{
		Name: &name,
		Profile: &ProfilePatch{
			Skills:        &skills,
			Education:     &edu,
			QuizCompleted: &done,
			QuizResults:   json.RawMessage(`{"top":"engineer"}`),
		},
	})
	require.NoError(t, err)
	require.Equal(t, clock, upd.UpdatedAt)
	require.Equal(t, []string{"go", "sql"}, upd.Profile.Skills)

	byEmail, err := c.FindByEmail(ctx, "ada@x.com")
	require.NoError(t, err)
	byID, err := c.FindByID(ctx, u.ID)
	require.NoError(t, err)

	require.Equal(t, byID.UpdatedAt, byEmail.UpdatedAt)
	require.Equal(t, "Ada King", byEmail.Name)
	require.JSONEq(t, `{"top":"engineer"}`, string(byID.Profile.QuizResults))
	require.Equal(t, u.CreatedAt, byID.CreatedAt)
}

func TestCredentials_UpdateEmailMovesIndex(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	a, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = c.Create(ctx, CreateUserInput{Name: "Bob", Email: "bob@x.com", Password: "secret1"})
	require.NoError(t, err)

	taken := "BOB@x.com"
	_, err = c.Update(ctx, a.ID, UserPatch{Email: &taken})
	require.True(t, IsConflict(err))

	fresh := " Ada.K@X.com "
	updated, err := c.Update(ctx, a.ID, UserPatch{Email: &fresh})
	require.NoError(t, err)
	require.Equal(t, "ada.k@x.com", updated.Email)

	_, err = c.FindByEmail(ctx, "ada@x.com")
	require.True(t, IsNotFound(err))
	got, err := c.FindByEmail(ctx, "ada.k@x.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
	require.Equal(t, "ada.k@x.com", got.Email)
}

func TestCredentials_ChangePassword(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	u, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = c.ChangePassword(ctx, u.ID, "abc")
	require.Equal(t, "password", InvalidField(err))
	require.ErrorIs(t, err, password.ErrPasswordTooShort)

	upd, err := c.ChangePassword(ctx, u.ID, "n3w-secret")
	require.NoError(t, err)
	require.True(t, c.VerifyPassword("n3w-secret", upd.PasswordHash))
	require.False(t, c.VerifyPassword("secret1", upd.PasswordHash))
}

func TestCredentials_SoftDeleteReleasesEmail(t *testing.T) {
	ctx := context.Background()
	c, st := newTestCredentials(t)

	u, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, c.SoftDelete(ctx, u.ID, time.Time{}))
	require.NoError(t, c.SoftDelete(ctx, u.ID, time.Time{}))

	_, err = c.FindByID(ctx, u.ID)
	require.True(t, IsNotFound(err))
	_, err = c.FindByEmail(ctx, "ada@x.com")
	require.True(t, IsNotFound(err))

	raw, err := st.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, raw.Deleted)
	require.NotNil(t, raw.DeletedAt)

	again, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEqual(t, u.ID, again.ID)
}

func TestCredentials_VerifyDummy(t *testing.T) {
	c, _ := newTestCredentials(t)
	require.False(t, c.VerifyDummy("careerquest-dummy-password"))
	require.False(t, c.VerifyPassword("secret1", "not-a-hash"))
}

func TestCredentials_ConcurrentRegistrationSameEmail(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCredentials(t)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Create(ctx, CreateUserInput{Name: "Ada", Email: "ada@x.com", Password: "secret1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)
}
