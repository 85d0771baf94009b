// Package rosters is the owner-scoped roster repository over database/sql.
// One implementation serves Postgres and SQLite; the dialect only changes
// placeholder syntax, timestamp encoding and unique-violation detection.
package rosters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/db"
	"github.com/albapepper/rosterdex/internal/roster"
)

const pgUniqueViolation = "23505"

// Repository implements roster.Store.
type Repository struct {
	db      db.DBTX
	dialect string
	now     func() time.Time
}

var _ roster.Store = (*Repository)(nil)

// New creates a repository for dialect (db.DialectPostgres or
// db.DialectSQLite).
func New(conn db.DBTX, dialect string) *Repository {
	return &Repository{db: conn, dialect: dialect, now: time.Now}
}

// NewPostgres creates a Postgres repository.
func NewPostgres(conn db.DBTX) *Repository { return New(conn, db.DialectPostgres) }

// NewSQLite creates a SQLite repository.
func NewSQLite(conn db.DBTX) *Repository { return New(conn, db.DialectSQLite) }

// FromDB creates a repository for an open database.
func FromDB(d *db.DB) *Repository { return New(d.SQL, d.Dialect) }

// WithClock replaces the clock used for created_at and updated_at.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

const returning = `RETURNING id, owner_id, name, slots, updated_at`

// Create inserts a roster for owner.
func (r *Repository) Create(ctx context.Context, owner, name string, slots roster.Slots) (*roster.Roster, error) {
	name, body, err := prepare(name, slots)
	if err != nil {
		return nil, err
	}
	now := r.timestamp(r.now())

	query :=
		`INSERT INTO rosters (owner_id, name, slots, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ` + returning

	row := r.db.QueryRowContext(ctx, r.rebind(query), owner, name, body, now, now)
	out, err := r.scanRow(row)
	if err != nil {
		return nil, r.classify(err, "create roster %q", name)
	}
	return out, nil
}

// Update replaces name and slots of roster id, scoped to owner.
func (r *Repository) Update(ctx context.Context, owner string, id int64, name string, slots roster.Slots) (*roster.Roster, error) {
	name, body, err := prepare(name, slots)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE rosters SET name = $1, slots = $2, updated_at = $3
		 WHERE owner_id = $4 AND id = $5
		 ` + returning

	row := r.db.QueryRowContext(ctx, r.rebind(query), name, body, r.timestamp(r.now()), owner, id)
	out, err := r.scanRow(row)
	if err != nil {
		return nil, r.classify(err, "update roster %d", id)
	}
	return out, nil
}

// List returns every roster of owner, most recently updated first.
func (r *Repository) List(ctx context.Context, owner string) ([]*roster.Roster, error) {
	query :=
		`SELECT id, owner_id, name, slots, updated_at FROM rosters
		 WHERE owner_id = $1
		 ORDER BY updated_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*roster.Roster{}
	for rows.Next() {
		ro, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, ro)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Get returns roster id of owner.
func (r *Repository) Get(ctx context.Context, owner string, id int64) (*roster.Roster, error) {
	query :=
		`SELECT id, owner_id, name, slots, updated_at FROM rosters
		 WHERE owner_id = $1 AND id = $2`

	out, err := r.scanRow(r.db.QueryRowContext(ctx, r.rebind(query), owner, id))
	if err != nil {
		return nil, r.classify(err, "get roster %d", id)
	}
	return out, nil
}

// Delete removes roster id of owner and returns the removed row.
func (r *Repository) Delete(ctx context.Context, owner string, id int64) (*roster.Roster, error) {
	query :=
		`DELETE FROM rosters
		 WHERE owner_id = $1 AND id = $2
		 ` + returning

	out, err := r.scanRow(r.db.QueryRowContext(ctx, r.rebind(query), owner, id))
	if err != nil {
		return nil, r.classify(err, "delete roster %d", id)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRow(row scanner) (*roster.Roster, error) {
	var (
		id      int64
		out     roster.Roster
		slots   []byte
		updated timestamp
	)
	if err := row.Scan(&id, &out.OwnerID, &out.Name, &slots, &updated); err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &out.Slots); err != nil {
			return nil, fmt.Errorf("decode slots of roster %d: %w", id, err)
		}
	}
	out.ID = &id
	out.UpdatedAt = updated.Time
	return &out, nil
}

// prepare validates name and encodes the normalized slots.
func prepare(name string, slots roster.Slots) (string, string, error) {
	name, err := roster.ValidateName(name)
	if err != nil {
		return "", "", err
	}
	body, err := json.Marshal(slots.Canonical())
	if err != nil {
		return "", "", fmt.Errorf("encode slots: %w", err)
	}
	return name, string(body), nil
}

func (r *Repository) classify(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, common.ErrConflict)
	default:
		return fmt.Errorf("%s: db error: %w", what, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind rewrites $n placeholders for SQLite. Queries in this package use
// each placeholder once and in ascending order.
func (r *Repository) rebind(query string) string {
	if r.dialect != db.DialectSQLite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

// timestamp encodes t for the dialect: Postgres stores timestamptz, SQLite
// stores unix nanoseconds.
func (r *Repository) timestamp(t time.Time) any {
	if r.dialect == db.DialectSQLite {
		return t.UTC().UnixNano()
	}
	return t.UTC()
}

// timestamp scans either encoding back into a time.Time.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case int64:
		t.Time = time.Unix(0, v).UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func (t *timestamp) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
