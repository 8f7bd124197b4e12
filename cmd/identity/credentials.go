package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"careerquest/cmd/security/password"
)

// Credentials is the credential store: validation, hashing and persistence of users.
// Raw passwords never leave this type.
type Credentials struct {
	store Store
	pw    password.Config
	now   func() time.Time

	// dummyHash is verified against for unknown emails so login timing
	// does not reveal whether an account exists.
	dummyHash string
}

// NewCredentials constructs Credentials. It pre-computes the dummy hash with the same
// parameters as real hashes.
func NewCredentials(store Store, pw password.Config) (*Credentials, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	dummy, err := pw.Hash("careerquest-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Credentials{
		store:     store,
		pw:        pw,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

// Create validates input, hashes the password and inserts the user.
func (c *Credentials) Create(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.Create"

	name := NormalizeName(in.Name)
	email := NormalizeEmail(in.Email)

	if !ValidName(name) {
		return User{}, ValidationError{Op: op, Field: "name"}
	}
	if !ValidEmail(email) {
		return User{}, ValidationError{Op: op, Field: "email"}
	}
	if err := c.pw.Validate(in.Password); err != nil {
		return User{}, ValidationError{Op: op, Field: "password", Err: err}
	}

	now := in.Now
	if now.IsZero() {
		now = c.now()
	}

	hash, err := c.pw.Hash(in.Password)
	if err != nil {
		return User{}, err
	}
	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	role := in.Role
	if role == "" {
		role = RoleStudent
	}

	prof := in.Profile
	prof.Skills = normalizeTags(prof.Skills)
	prof.Interests = normalizeTags(prof.Interests)

	u := User{
		ID:           id,
		Name:         name,
		Email:        email,
		EmailNorm:    email,
		PasswordHash: hash,
		Role:         NormalizeRole(string(role)),
		Profile:      prof,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return c.store.Insert(ctx, u)
}

// FindByEmail returns the non-deleted user with the given email (case-insensitive).
func (c *Credentials) FindByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, NotFoundError{Op: "identity.FindByEmail", Resource: "user"}
	}
	return c.store.GetByEmail(ctx, email)
}

// FindByID returns the user by id. Soft-deleted users are reported as not found.
func (c *Credentials) FindByID(ctx context.Context, id string) (User, error) {
	const op = "identity.FindByID"
	if strings.TrimSpace(id) == "" {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	u, err := c.store.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Deleted {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, nil
}

// Update validates and applies a partial update. PasswordHash is ignored here;
// use ChangePassword.
func (c *Credentials) Update(ctx context.Context, id string, patch UserPatch) (User, error) {
	const op = "identity.Update"

	if patch.Name != nil {
		n := NormalizeName(*patch.Name)
		if !ValidName(n) {
			return User{}, ValidationError{Op: op, Field: "name"}
		}
		patch.Name = &n
	}
	if patch.Email != nil {
		e := NormalizeEmail(*patch.Email)
		if !ValidEmail(e) {
			return User{}, ValidationError{Op: op, Field: "email"}
		}
		patch.Email = &e
	}
	if patch.Role != nil {
		r := NormalizeRole(string(*patch.Role))
		patch.Role = &r
	}
	if pp := patch.Profile; pp != nil {
		cp := *pp
		if cp.Skills != nil {
			v := normalizeTags(*cp.Skills)
			if v == nil {
				v = []string{}
			}
			cp.Skills = &v
		}
		if cp.Interests != nil {
			v := normalizeTags(*cp.Interests)
			if v == nil {
				v = []string{}
			}
			cp.Interests = &v
		}
		patch.Profile = &cp
	}
	patch.PasswordHash = nil

	return c.store.Update(ctx, id, patch, c.now())
}

// ChangePassword validates and re-hashes newRaw, then stores it.
func (c *Credentials) ChangePassword(ctx context.Context, id, newRaw string) (User, error) {
	const op = "identity.ChangePassword"
	if err := c.pw.Validate(newRaw); err != nil {
		return User{}, ValidationError{Op: op, Field: "password", Err: err}
	}
	hash, err := c.pw.Hash(newRaw)
	if err != nil {
		return User{}, err
	}
	return c.store.Update(ctx, id, UserPatch{PasswordHash: &hash}, c.now())
}

// SoftDelete flags the user deleted; its email becomes available again.
func (c *Credentials) SoftDelete(ctx context.Context, id string, now time.Time) error {
	if now.IsZero() {
		now = c.now()
	}
	return c.store.SoftDelete(ctx, id, now)
}

// VerifyPassword reports whether raw matches hash. Malformed hashes never match.
func (c *Credentials) VerifyPassword(raw, hash string) bool {
	ok, err := c.pw.Verify(hash, raw)
	return err == nil && ok
}

// VerifyDummy burns the same work as VerifyPassword. It always returns false.
func (c *Credentials) VerifyDummy(raw string) bool {
	_, _ = c.pw.Verify(c.dummyHash, raw)
	return false
}

// ValidatePassword applies the password policy without hashing.
func (c *Credentials) ValidatePassword(raw string) error {
	return c.pw.Validate(raw)
}
