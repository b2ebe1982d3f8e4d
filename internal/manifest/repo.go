package manifest

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ehwaz/internal/apperr"
)

// NoteRow represents a row in the notes table: one note as last written to
// the vault.
type NoteRow struct {
	Path       string
	Title      string
	Tag        string
	Checksum   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	MigratedAt time.Time
	RunID      string
}

// Run represents one migration pass over the export.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is still going
	Status     string
	NotesTotal int
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// UpsertNote inserts or replaces a note row keyed by path.
func (db *DB) UpsertNote(n NoteRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (path, title, tag, checksum, created_at, updated_at, migrated_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			tag         = excluded.tag,
			checksum    = excluded.checksum,
			created_at  = excluded.created_at,
			updated_at  = excluded.updated_at,
			migrated_at = excluded.migrated_at,
			run_id      = excluded.run_id
	`, n.Path, n.Title, n.Tag, n.Checksum, n.CreatedAt, n.UpdatedAt, n.MigratedAt, n.RunID)
	if err != nil {
		return fmt.Errorf("manifest: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note row. Deleting an unknown path is not an error.
func (db *DB) DeleteNote(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("manifest: delete note: %w", err)
	}
	return nil
}

// GetNote returns one note row, or apperr.ErrNotFound.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, tag, checksum, created_at, updated_at, migrated_at, run_id
		FROM notes WHERE path = ?
	`, path)

	var n NoteRow
	err := row.Scan(&n.Path, &n.Title, &n.Tag, &n.Checksum, &n.CreatedAt, &n.UpdatedAt, &n.MigratedAt, &n.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: get note: %w", err)
	}
	return &n, nil
}

// Checksums returns the stored checksum for every migrated note, keyed by
// path. Incremental runs diff this map against the export.
func (db *DB) Checksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("manifest: checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListNotes returns one page of note rows ordered by path, plus the total
// row count for pagination.
func (db *DB) ListNotes(limit, offset int) ([]NoteRow, int, error) {
	total, err := db.CountNotes()
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(`
		SELECT path, title, tag, checksum, created_at, updated_at, migrated_at, run_id
		FROM notes ORDER BY path LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("manifest: list notes: %w", err)
	}
	defer rows.Close()

	out, err := scanNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Recent returns the most recently migrated notes, newest first.
func (db *DB) Recent(limit int) ([]NoteRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, title, tag, checksum, created_at, updated_at, migrated_at, run_id
		FROM notes ORDER BY migrated_at DESC, path LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("manifest: recent: %w", err)
	}
	defer rows.Close()
	return scanNotes(rows)
}

// CountNotes returns the number of migrated notes in the ledger.
func (db *DB) CountNotes() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("manifest: count notes: %w", err)
	}
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]NoteRow, error) {
	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		if err := rows.Scan(&n.Path, &n.Title, &n.Tag, &n.Checksum, &n.CreatedAt, &n.UpdatedAt, &n.MigratedAt, &n.RunID); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// BeginRun records the start of a migration run.
func (db *DB) BeginRun(id string, startedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)
	`, id, startedAt, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("manifest: begin run: %w", err)
	}
	return nil
}

// FinishRun marks a run as completed or failed and records how many notes
// it migrated.
func (db *DB) FinishRun(id, status string, notesTotal int, finishedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, notes_total = ? WHERE id = ?
	`, finishedAt, status, notesTotal, id)
	if err != nil {
		return fmt.Errorf("manifest: finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or apperr.ErrNotFound when
// no run has happened yet.
func (db *DB) LastRun() (*Run, error) {
	row := db.conn.QueryRow(`
		SELECT id, started_at, finished_at, status, notes_total
		FROM runs ORDER BY started_at DESC, id LIMIT 1
	`)

	var r Run
	var finished sql.NullTime
	err := row.Scan(&r.ID, &r.StartedAt, &finished, &r.Status, &r.NotesTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: last run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}
