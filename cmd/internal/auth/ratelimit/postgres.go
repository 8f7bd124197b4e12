package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores attempts in the auth_attempts table so limits hold across replicas.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	policy Policy
}

// NewPostgres constructs a Postgres limiter over schema.auth_attempts.
func NewPostgres(pool *pgxpool.Pool, schema string, p Policy) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("ratelimit: nil pool")
	}
	if schema == "" {
		schema = "careerquest"
	}
	return &Postgres{
		pool:   pool,
		table:  pgx.Identifier{schema, "auth_attempts"}.Sanitize(),
		policy: p.normalized(),
	}, nil
}

// Check implements Limiter.
func (l *Postgres) Check(ctx context.Context, id string, now time.Time) (Decision, error) {
	cut := now.Add(-l.policy.Window)

	var (
		count  int
		oldest *time.Time
	)
	err := l.pool.QueryRow(ctx,
		`WITH pruned AS (
		     DELETE FROM `+l.table+` WHERE identifier = $1 AND attempted_at <= $2
		 )
		 SELECT count(*), min(attempted_at)
		   FROM `+l.table+`
		  WHERE identifier = $1 AND attempted_at > $2`,
		id, cut,
	).Scan(&count, &oldest)
	if err != nil {
		return Decision{}, err
	}

	var o time.Time
	if oldest != nil {
		o = oldest.UTC()
	}
	return l.policy.evaluate(count, o), nil
}

// Record implements Limiter.
func (l *Postgres) Record(ctx context.Context, id string, now time.Time) error {
	_, err := l.pool.Exec(ctx,
		`WITH pruned AS (
		     DELETE FROM `+l.table+` WHERE identifier = $1 AND attempted_at <= $3
		 )
		 INSERT INTO `+l.table+` (identifier, attempted_at) VALUES ($1, $2)`,
		id, now, now.Add(-l.policy.Window),
	)
	return err
}

// Clear implements Limiter.
func (l *Postgres) Clear(ctx context.Context, id string) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM `+l.table+` WHERE identifier = $1`, id)
	return err
}
