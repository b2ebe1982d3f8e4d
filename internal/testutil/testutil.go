// Package testutil provides shared test helpers for setting up export
// trees, vault targets, and manifest databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ehwaz/internal/manifest"
	"github.com/starford/ehwaz/internal/storage"
)

// TestManifest creates a temporary SQLite manifest that is automatically
// cleaned up.
func TestManifest(t *testing.T) *manifest.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ehwaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := manifest.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestExport creates a temporary export directory populated with the given
// files (slash-separated relative path to content) and opens a Source over
// it. Callers that need attachments include "_resources/..." entries.
func TestExport(t *testing.T, files map[string]string) (string, *storage.Source) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src, err := storage.NewSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, src
}

// TestTarget creates a temporary vault directory with a Target over it.
func TestTarget(t *testing.T) (string, *storage.Target) {
	t.Helper()
	dir := t.TempDir()
	tgt, err := storage.NewTarget(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, tgt
}

// NoteText renders a minimal valid note with the given title and body.
func NoteText(title, body string) string {
	s := "---\n" +
		"title: " + title + "\n" +
		"created: 2024-03-07T23:22:26Z\n" +
		"updated: 2024-04-07T08:34:52Z\n" +
		"---\n"
	if body != "" {
		s += "\n" + body + "\n"
	}
	return s
}
