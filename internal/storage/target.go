package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/ehwaz/internal/joplin"
)

// Target writes converted notes under the vault root, mirroring their
// relative paths from the export.
type Target struct {
	root string // absolute path to the vault directory
}

// NewTarget opens the vault rooted at the given directory, creating it if
// needed.
func NewTarget(root string) (*Target, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve target root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create target root: %w", err)
	}
	return &Target{root: abs}, nil
}

// Root returns the absolute vault root.
func (t *Target) Root() string {
	return t.root
}

// WriteNote renders one note for Bear and writes it atomically. The output
// is the body followed by a newline and, when a tag is present, a blank
// line with the tag on its own line after it. The file's access and
// modification times are set to the note's updated time; the creation time
// is set to the note's created time where the platform allows it.
func (t *Target) WriteNote(n *joplin.Note) error {
	abs, err := safeJoin(t.root, filepath.FromSlash(n.RelativePath))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(n.Body)
	buf.WriteByte('\n')
	if n.Tag != "" {
		buf.WriteByte('\n')
		buf.WriteString(n.Tag)
		buf.WriteByte('\n')
	}

	if err := writeAtomic(abs, buf.Bytes()); err != nil {
		return err
	}

	if err := os.Chtimes(abs, n.Updated, n.Updated); err != nil {
		return fmt.Errorf("storage: set times %s: %w", n.RelativePath, err)
	}
	if err := setCreationTime(abs, n.Created); err != nil {
		return fmt.Errorf("storage: set creation time %s: %w", n.RelativePath, err)
	}
	return nil
}

// RemoveNote deletes a previously written note. A note that was never
// written is not an error, so removals are safe to replay.
func (t *Target) RemoveNote(rel string) error {
	abs, err := safeJoin(t.root, filepath.FromSlash(rel))
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", rel, err)
	}
	return nil
}
