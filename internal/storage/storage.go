// Package storage holds the file-system collaborators of a migration: the
// export tree notes are read from and the vault tree they are written to.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NoteExt is the extension of note files in a Joplin export.
const NoteExt = ".md"

// IsNoteFile reports whether name looks like a note file. The extension
// match is case-insensitive because exports from macOS and Windows mix
// ".md" and ".MD".
func IsNoteFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), NoteExt)
}

// NoteMeta describes one discovered note file.
type NoteMeta struct {
	// RelativePath is slash-separated and relative to the export root.
	RelativePath string
	// Checksum fingerprints the file content at discovery time.
	Checksum string
	Size     int64
	ModTime  time.Time
}

// safeJoin resolves a relative path against root and rejects any result
// that escapes it (directory traversal).
func safeJoin(root, rel string) (string, error) {
	if rel == "" {
		return root, nil
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(root, rel))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	back, err := filepath.Rel(root, abs)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// writeAtomic writes content to a temp file, fsyncs it, then renames it
// into place so readers never observe a partial note.
func writeAtomic(abs string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".ehwaz-*")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: rename temp: %w", err)
	}
	return nil
}
