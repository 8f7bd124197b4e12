package identity

import (
	"context"
	"encoding/json"
	"slices"
	"time"
)

// Role is the account role.
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
	RoleAdmin   Role = "admin"
)

// Profile is the career-guidance profile attached to a user.
type Profile struct {
	Skills        []string
	Interests     []string
	Education     *string
	QuizCompleted bool
	// QuizResults is opaque to the auth service; stored and returned verbatim.
	QuizResults json.RawMessage
}

// User is the canonical account record.
type User struct {
	ID           string
	Name         string
	Email        string
	EmailNorm    string
	PasswordHash string
	Role         Role
	Profile      Profile
	IsVerified   bool

	CreatedAt time.Time
	UpdatedAt time.Time

	Deleted   bool
	DeletedAt *time.Time
}

// ProfilePatch carries partial profile updates; nil fields are left untouched.
type ProfilePatch struct {
	Skills        *[]string
	Interests     *[]string
	Education     *string
	QuizCompleted *bool
	QuizResults   json.RawMessage
}

// UserPatch carries partial user updates; nil fields are left untouched.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	IsVerified   *bool
	Profile      *ProfilePatch
}

// CreateUserInput describes a registration request. Password is the raw password.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Profile  Profile
	Now      time.Time
}

// Store is the persistence boundary for users.
//
// Implementations must keep the ID index and the normalized-email index consistent:
// a reader never observes one updated without the other.
type Store interface {
	// Insert stores a new user. Returns ConflictError{Field:"email"} if the normalized
	// email is held by a non-deleted user.
	Insert(ctx context.Context, u User) (User, error)

	// GetByID returns the user, including soft-deleted ones.
	GetByID(ctx context.Context, id string) (User, error)

	// GetByEmail looks up a non-deleted user by normalized email.
	GetByEmail(ctx context.Context, emailNorm string) (User, error)

	// Update merges patch into the user and sets UpdatedAt to now.
	Update(ctx context.Context, id string, patch UserPatch, now time.Time) (User, error)

	// SoftDelete flags the user deleted and releases its email.
	SoftDelete(ctx context.Context, id string, now time.Time) error
}

// applyPatch merges patch into u. Emails are stored lowercased.
func applyPatch(u *User, p UserPatch, now time.Time) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
		u.EmailNorm = u.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsVerified != nil {
		u.IsVerified = *p.IsVerified
	}
	if pp := p.Profile; pp != nil {
		if pp.Skills != nil {
			u.Profile.Skills = slices.Clone(*pp.Skills)
		}
		if pp.Interests != nil {
			u.Profile.Interests = slices.Clone(*pp.Interests)
		}
		if pp.Education != nil {
			v := *pp.Education
			u.Profile.Education = &v
		}
		if pp.QuizCompleted != nil {
			u.Profile.QuizCompleted = *pp.QuizCompleted
		}
		if pp.QuizResults != nil {
			u.Profile.QuizResults = slices.Clone(pp.QuizResults)
		}
	}
	u.UpdatedAt = now
}

// clone returns a deep copy so callers cannot mutate stored state.
func (u User) clone() User {
	c := u
	c.Profile.Skills = slices.Clone(u.Profile.Skills)
	c.Profile.Interests = slices.Clone(u.Profile.Interests)
	c.Profile.QuizResults = slices.Clone(u.Profile.QuizResults)
	if u.Profile.Education != nil {
		v := *u.Profile.Education
		c.Profile.Education = &v
	}
	if u.DeletedAt != nil {
		v := *u.DeletedAt
		c.DeletedAt = &v
	}
	return c
}
