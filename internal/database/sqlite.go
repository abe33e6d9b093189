// Package database is the persistence layer: an embedded single-writer
// sqlite store plus one repository per aggregate. Callers are expected to
// serialize access through the coordinator's lock; the store itself is
// limited to one open connection to match that discipline.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by repository lookups when no row matches.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single writer by construction; correctness comes from the
	// coordinator lock, not store-level isolation.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set sqlite busy_timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &DB{DB: db}, nil
}

// timeLayout is RFC3339 with fixed-width nanoseconds. The width is
// fixed (never trimmed) so UTC strings compare lexicographically in
// SQL while sub-second edits stay distinguishable.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// encodeTime renders a timestamp in the canonical column format.
func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", value, err)
	}
	return t, nil
}
