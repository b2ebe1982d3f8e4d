// Package manifest persists the migration ledger in SQLite: every note that
// has been written to the vault, the checksum it was written from, and the
// runs that produced them. Incremental migrations and the status API are
// both read from here.
package manifest

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path        TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	tag         TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	migrated_at DATETIME NOT NULL,
	run_id      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	status      TEXT NOT NULL DEFAULT 'running',
	notes_total INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notes_run ON notes(run_id);
CREATE INDEX IF NOT EXISTS idx_notes_migrated ON notes(migrated_at);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// dsnOptions turns on WAL journaling, a busy timeout for concurrent
// access, and foreign keys.
const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// DB wraps a sql.DB with manifest-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema. WAL mode lets the watch-mode API read while the watcher writes.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("manifest: open db: %w", err)
	}
	if err := initConn(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func initConn(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("manifest: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("manifest: apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
