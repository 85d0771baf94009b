// Package db opens the roster database. Postgres runs on a pgxpool-based
// connection pool with prepared statement registration; SQLite runs on the
// pure-Go modernc driver. Both are exposed through database/sql so the
// repositories share one implementation.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/albapepper/rosterdex/internal/config"
)

// Dialects understood by the repositories.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is an open roster database.
type DB struct {
	SQL     *sql.DB
	Dialect string

	pool *Pool // nil for SQLite
}

// Open connects to the database selected by cfg.DatabaseDriver.
func Open(ctx context.Context, cfg *config.Config) (*DB, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return OpenPostgres(ctx, cfg)
	}
}

// OpenPostgres creates the pool and a database/sql handle backed by it.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*DB, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{
		SQL:     stdlib.OpenDBFromPool(pool.Pool),
		Dialect: DialectPostgres,
		pool:    pool,
	}, nil
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
// ":memory:" yields a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: an in-memory database lives and dies with its
	// connection, and SQLite allows a single writer anyway.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{SQL: sqlDB, Dialect: DialectSQLite}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (d *DB) HealthCheck(ctx context.Context) error {
	if d.pool != nil {
		return d.pool.HealthCheck(ctx)
	}
	var n int
	return d.SQL.QueryRowContext(ctx, "SELECT 1").Scan(&n)
}

// RosterCount returns the total number of stored rosters.
func (d *DB) RosterCount(ctx context.Context) (int64, error) {
	var n int64
	if err := d.SQL.QueryRowContext(ctx, "SELECT count(*) FROM rosters").Scan(&n); err != nil {
		return 0, fmt.Errorf("count rosters: %w", err)
	}
	return n, nil
}

// Close releases the database handle and, for Postgres, the pool.
func (d *DB) Close() {
	_ = d.SQL.Close()
	if d.pool != nil {
		d.pool.Close()
	}
}

// --------------------------------------------------------------------------
// Postgres pool
// --------------------------------------------------------------------------

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates and validates a new connection pool.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers statements that do not depend on the
// schema. Roster queries go through database/sql and are cached by pgx on
// first use, so a fresh database can connect before it is migrated.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		"health_check": "SELECT 1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
