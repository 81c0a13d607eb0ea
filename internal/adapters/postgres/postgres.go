// Package postgres holds shared plumbing for the Postgres adapters: pool bootstrap,
// embedded migrations and error classification.
package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const UniqueViolationCode = pgerrcode.UniqueViolation

// DB is the subset of *pgxpool.Pool the repositories use. pgxmock pools satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ DB = (*pgxpool.Pool)(nil)

type PoolOptions struct {
	// MaxConns overrides the DSN's pool_max_conns when > 0.
	MaxConns int32
	// ConnectAttempts bounds startup pings; 0 means 5.
	ConnectAttempts uint64
	// ConnectBackoff is the first retry delay, doubled per attempt; 0 means 200ms.
	ConnectBackoff time.Duration
	Logger         *slog.Logger
}

// NewPool opens a pool and waits until the database answers a ping.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, oops.Code("POSTGRES_CONFIG_INVALID").Errorf("missing database url")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONFIG_INVALID").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	attempts := opts.ConnectAttempts
	if attempts == 0 {
		attempts = 5
	}
	base := opts.ConnectBackoff
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("POSTGRES_CONNECT_FAILED").Wrap(err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("POSTGRES_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return pool, nil
}

func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsUniqueViolation reports a unique violation, optionally restricted to one constraint
// (constraint == "" matches any).
func IsUniqueViolation(err error, constraint string) bool {
	pe, ok := AsPgError(err)
	if !ok || pe.Code != UniqueViolationCode {
		return false
	}
	return constraint == "" || pe.ConstraintName == constraint
}
