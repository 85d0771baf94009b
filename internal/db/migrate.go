package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// Migrate applies every pending migration for the database's dialect.
func (d *DB) Migrate(ctx context.Context) error {
	return migrate(ctx, d, func(ctx context.Context, d *DB) error {
		return goose.UpContext(ctx, d.SQL, ".")
	})
}

// MigrationStatus logs the applied state of every migration through goose's
// logger.
func (d *DB) MigrationStatus(ctx context.Context) error {
	return migrate(ctx, d, func(ctx context.Context, d *DB) error {
		return goose.StatusContext(ctx, d.SQL, ".")
	})
}

// Rollback reverts the most recent migration.
func (d *DB) Rollback(ctx context.Context) error {
	return migrate(ctx, d, func(ctx context.Context, d *DB) error {
		return goose.DownContext(ctx, d.SQL, ".")
	})
}

func migrate(ctx context.Context, d *DB, run func(context.Context, *DB) error) error {
	dir, dialect := "migrations/postgres", "pgx"
	if d.Dialect == DialectSQLite {
		dir, dialect = "migrations/sqlite", "sqlite3"
	}

	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect %s: %w", dialect, err)
	}
	if err := run(ctx, d); err != nil {
		return fmt.Errorf("migrate %s: %w", d.Dialect, err)
	}
	return nil
}
