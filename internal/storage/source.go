package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/ehwaz/internal/checksum"
)

// Source reads a Joplin export tree.
type Source struct {
	root string // absolute path to the export directory
}

// NewSource opens the export rooted at the given directory. The directory
// must already exist; a missing export is a caller mistake, not something
// to create on the fly.
func NewSource(root string) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve source root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: source root is not a directory: %s", abs)
	}
	return &Source{root: abs}, nil
}

// Root returns the absolute export root.
func (s *Source) Root() string {
	return s.root
}

// List walks the export recursively and returns metadata for every note
// file, in walk order. Paths come back slash-separated and relative to the
// root so they are stable across platforms.
func (s *Source) List() ([]NoteMeta, error) {
	var out []NoteMeta
	walk := func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsNoteFile(d.Name()) {
			return nil
		}
		meta, err := s.describe(p, d)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	}
	if err := filepath.WalkDir(s.root, walk); err != nil {
		return nil, fmt.Errorf("storage: list notes: %w", err)
	}
	return out, nil
}

// describe reads one discovered file and fills in its metadata.
func (s *Source) describe(p string, d fs.DirEntry) (NoteMeta, error) {
	info, err := d.Info()
	if err != nil {
		return NoteMeta{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return NoteMeta{}, err
	}
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return NoteMeta{}, err
	}
	return NoteMeta{
		RelativePath: filepath.ToSlash(rel),
		Checksum:     checksum.Sum(data),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}, nil
}

// Read returns the raw bytes of one note. rel is slash-separated and
// relative to the export root.
func (s *Source) Read(rel string) ([]byte, error) {
	abs, err := safeJoin(s.root, filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}
