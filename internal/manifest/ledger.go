package manifest

import "time"

// Ledger defines the manifest operations consumers use.
// Depend on this interface rather than the concrete *DB type when a test
// needs to substitute a mock.
type Ledger interface {
	UpsertNote(n NoteRow) error
	DeleteNote(path string) error
	GetNote(path string) (*NoteRow, error)
	Checksums() (map[string]string, error)
	ListNotes(limit, offset int) ([]NoteRow, int, error)
	Recent(limit int) ([]NoteRow, error)
	CountNotes() (int, error)
	BeginRun(id string, startedAt time.Time) error
	FinishRun(id, status string, notesTotal int, finishedAt time.Time) error
	LastRun() (*Run, error)
	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)
