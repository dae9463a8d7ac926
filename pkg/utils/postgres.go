package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgxDriver = "pgx"

// PostgresPoolConfig sizes the database/sql pool behind the credential store.
// Zero fields fall back to the defaults below.
type PostgresPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var defaultPool = PostgresPoolConfig{
	MaxOpenConns:    10,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 5 * time.Minute,
	PingTimeout:     5 * time.Second,
}

func (c PostgresPoolConfig) withDefaults() PostgresPoolConfig {
	c.MaxOpenConns = positive(c.MaxOpenConns, defaultPool.MaxOpenConns)
	c.MaxIdleConns = positive(c.MaxIdleConns, defaultPool.MaxIdleConns)
	c.ConnMaxLifetime = positive(c.ConnMaxLifetime, defaultPool.ConnMaxLifetime)
	c.ConnMaxIdleTime = positive(c.ConnMaxIdleTime, defaultPool.ConnMaxIdleTime)
	c.PingTimeout = positive(c.PingTimeout, defaultPool.PingTimeout)
	// database/sql silently lowers idle to open; do it here so the
	// logged values match what the pool uses.
	c.MaxIdleConns = min(c.MaxIdleConns, c.MaxOpenConns)
	return c
}

func positive[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// OpenPostgres opens the users/workspaces/credits database and waits for one
// successful ping. dsn carries the password and must not be logged.
func OpenPostgres(ctx context.Context, dsn string, pool PostgresPoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults()

	db, err := sql.Open(pgxDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pgxDriver, err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := HealthCheck(ctx, db, pool.PingTimeout); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings db within timeout; /healthz uses it.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}
	return nil
}

// TxFunc is one unit of work against the credential store.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx commits when fn returns nil. Errors from fn come back unwrapped so
// callers can match their own sentinels.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op after Commit; also runs while a panic unwinds.
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
