package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the auth_tokens table.
// The pool is owned by the caller.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore constructs a PostgresStore for schema.auth_tokens.
func NewPostgresStore(pool *pgxpool.Pool, schema string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("tokenstore: nil pool")
	}
	if schema == "" {
		schema = "careerquest"
	}
	return &PostgresStore{
		pool:  pool,
		table: pgx.Identifier{schema, "auth_tokens"}.Sanitize(),
	}, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	if !rec.valid() {
		return ErrInvalidRecord
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (hash, kind, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.Hash, string(rec.Kind), rec.UserID, rec.ExpiresAt, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, hash string, kind Kind, now time.Time) (Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT hash, kind, user_id, expires_at, created_at
		   FROM `+s.table+`
		  WHERE hash = $1 AND kind = $2`,
		hash, string(kind),
	))
	if err != nil {
		return Record{}, err
	}
	if rec.Expired(now) {
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM `+s.table+` WHERE hash = $1 AND expires_at < $2`, hash, now); err != nil {
			return Record{}, err
		}
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Take implements Store. A single DELETE ... RETURNING makes the take atomic;
// an expired row is removed as well but reported as ErrNotFound.
func (s *PostgresStore) Take(ctx context.Context, hash string, kind Kind, now time.Time) (Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx,
		`DELETE FROM `+s.table+`
		  WHERE hash = $1 AND kind = $2
		RETURNING hash, kind, user_id, expires_at, created_at`,
		hash, string(kind),
	))
	if err != nil {
		return Record{}, err
	}
	if rec.Expired(now) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, hash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE hash = $1`, hash)
	return err
}

// DeleteUser implements Store.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string, kind Kind) (int, error) {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table+` WHERE user_id = $1 AND kind = $2`, userID, string(kind))
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec  Record
		kind string
	)
	err := row.Scan(&rec.Hash, &kind, &rec.UserID, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	return rec, nil
}
