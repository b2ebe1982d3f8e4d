package storage

import "github.com/starford/ehwaz/internal/joplin"

// SourceStore is the read side of a migration: note discovery and raw
// content access for an export tree.
type SourceStore interface {
	// List returns metadata for every note file under the root.
	List() ([]NoteMeta, error)
	// Read returns the raw bytes of the note at rel (slash-separated,
	// relative to the root).
	Read(rel string) ([]byte, error)
	// Root returns the absolute root directory.
	Root() string
}

// TargetStore is the write side: converted notes mirrored under the vault
// root.
type TargetStore interface {
	// WriteNote renders and atomically writes one note.
	WriteNote(n *joplin.Note) error
	// RemoveNote deletes the note at rel; missing notes are not an error.
	RemoveNote(rel string) error
	// Root returns the absolute root directory.
	Root() string
}

var (
	_ SourceStore = (*Source)(nil)
	_ TargetStore = (*Target)(nil)
)
