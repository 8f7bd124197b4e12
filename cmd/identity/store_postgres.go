package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store never closes it.
// Email uniqueness is enforced by the partial index uq_users_email_norm
// (email_norm WHERE NOT deleted), so soft-deleted rows release their address.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is the schema holding the careerquest tables.
const DefaultSchema = "careerquest"

// WithSchema sets the Postgres schema (default "careerquest").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !PgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, name, email, email_norm, password_hash, role,
	skills, interests, education, quiz_completed, quiz_results,
	is_verified, created_at, updated_at, deleted, deleted_at`

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, u User) (User, error) {
	const op = "identity.PostgresStore.Insert"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if u.ID == "" || u.EmailNorm == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "id and email are required"}
	}

	users := pgIdent(s.schema, "users")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+users+` (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		u.ID, u.Name, u.Email, u.EmailNorm, u.PasswordHash, string(u.Role),
		pgTextArray(u.Profile.Skills), pgTextArray(u.Profile.Interests), u.Profile.Education,
		u.Profile.QuizCompleted, pgJSON(u.Profile.QuizResults),
		u.IsVerified, u.CreatedAt, u.UpdatedAt, u.Deleted, u.DeletedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u.clone(), nil
}

// GetByID implements Store.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.PostgresStore.GetByID"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, err
}

// GetByEmail implements Store.
func (s *PostgresStore) GetByEmail(ctx context.Context, emailNorm string) (User, error) {
	const op = "identity.PostgresStore.GetByEmail"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE email_norm = $1 AND NOT deleted`,
		NormalizeEmail(emailNorm)))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, err
}

// Update implements Store. The row is locked for the read-modify-write.
func (s *PostgresStore) Update(ctx context.Context, id string, patch UserPatch, now time.Time) (User, error) {
	const op = "identity.PostgresStore.Update"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	users := pgIdent(s.schema, "users")
	u, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1 AND NOT deleted FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}

	applyPatch(&u, patch, now)

	_, err = tx.Exec(ctx,
		`UPDATE `+users+`
		    SET name = $2, email = $3, email_norm = $4, password_hash = $5, role = $6,
		        skills = $7, interests = $8, education = $9, quiz_completed = $10,
		        quiz_results = $11, is_verified = $12, updated_at = $13
		  WHERE id = $1`,
		u.ID, u.Name, u.Email, u.EmailNorm, u.PasswordHash, string(u.Role),
		pgTextArray(u.Profile.Skills), pgTextArray(u.Profile.Interests), u.Profile.Education,
		u.Profile.QuizCompleted, pgJSON(u.Profile.QuizResults), u.IsVerified, u.UpdatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

// SoftDelete implements Store. Idempotent for already-deleted users.
func (s *PostgresStore) SoftDelete(ctx context.Context, id string, now time.Time) error {
	const op = "identity.PostgresStore.SoftDelete"
	if err := ctx.Err(); err != nil {
		return err
	}

	users := pgIdent(s.schema, "users")
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET deleted = TRUE,
		        deleted_at = COALESCE(deleted_at, $2),
		        updated_at = CASE WHEN deleted THEN updated_at ELSE $2 END
		  WHERE id = $1`,
		id, now,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

func scanUser(row pgx.Row) (User, error) {
	var (
		u       User
		role    string
		quizRaw []byte
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.EmailNorm, &u.PasswordHash, &role,
		&u.Profile.Skills, &u.Profile.Interests, &u.Profile.Education,
		&u.Profile.QuizCompleted, &quizRaw,
		&u.IsVerified, &u.CreatedAt, &u.UpdatedAt, &u.Deleted, &u.DeletedAt,
	)
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	if len(quizRaw) > 0 {
		u.Profile.QuizResults = quizRaw
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// pgTextArray stores nil slices as empty arrays so the NOT NULL columns accept them.
func pgTextArray(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// pgJSON maps an empty document to SQL NULL.
func pgJSON(v []byte) any {
	if len(v) == 0 {
		return nil
	}
	return string(v)
}

// PgIdentIsValid checks if a string is a safe Postgres identifier.
func PgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	case c == "users_pkey":
		return "id", true
	default:
		return "unique", true
	}
}
