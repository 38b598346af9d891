// Package postgres stores the trajectory archive in PostgreSQL. The whole
// collection lives in one JSONB document per namespace.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrConnectionClosed  = errors.New("postgres: connection pool is closed")
	ErrTransactionFailed = errors.New("postgres: transaction failed")
)

// PoolConfig tunes the pool created by NewConnectionFromURL. Zero values
// fall back to DefaultPoolConfig.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolConfig is sized for a single school office: one writer and a
// handful of readers.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

func orDefault[T int32 | time.Duration](v, d T) T {
	if v <= 0 {
		return d
	}
	return v
}

func (p PoolConfig) apply(pc *pgxpool.Config) {
	d := DefaultPoolConfig()
	pc.MaxConns = orDefault(p.MaxConns, d.MaxConns)
	pc.MinConns = min(orDefault(p.MinConns, d.MinConns), pc.MaxConns)
	pc.MaxConnLifetime = orDefault(p.MaxConnLifetime, d.MaxConnLifetime)
	pc.MaxConnIdleTime = orDefault(p.MaxConnIdleTime, d.MaxConnIdleTime)
	pc.HealthCheckPeriod = orDefault(p.HealthCheckPeriod, d.HealthCheckPeriod)
}

// Querier is satisfied by *Connection, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connection is a pgx pool that refuses work after Close.
type Connection struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// NewConnectionFromURL opens a pool on databaseURL and pings it once.
func NewConnectionFromURL(ctx context.Context, databaseURL string, pc PoolConfig) (*Connection, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse database URL: %w", err)
	}
	pc.apply(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	return &Connection{pool: pool}, nil
}

// Close is idempotent.
func (c *Connection) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.pool.Close()
	}
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

func (c *Connection) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if c.closed.Load() {
		return pgconn.CommandTag{}, ErrConnectionClosed
	}
	return c.pool.Exec(ctx, sql, args...)
}

func (c *Connection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	return c.pool.Query(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func (c *Connection) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if c.closed.Load() {
		return errRow{ErrConnectionClosed}
	}
	return c.pool.QueryRow(ctx, sql, args...)
}

// WithTx runs fn in a read-committed transaction, committing when fn
// returns nil and rolling back otherwise, including on panic.
func (c *Connection) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}
	return nil
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
