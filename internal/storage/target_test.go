package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ehwaz/internal/joplin"
)

func tempTarget(t *testing.T) (string, *Target) {
	t.Helper()
	dir := t.TempDir()
	tgt, err := NewTarget(dir)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	return dir, tgt
}

func testNote(rel, body, tag string) *joplin.Note {
	return &joplin.Note{
		Title:        "Test",
		Created:      time.Date(2024, 3, 7, 23, 22, 26, 0, time.UTC),
		Updated:      time.Date(2024, 4, 7, 8, 34, 52, 0, time.UTC),
		Body:         body,
		Tag:          tag,
		RelativePath: rel,
	}
}

func TestWriteNoteWithTag(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("foo.md", "The content", "#foo")

	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "foo.md"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "The content\n\n#foo\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestWriteNoteWithoutTag(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("foo.md", "The content", "")

	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "foo.md"))
	want := "The content\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestWriteNoteEmptyBody(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("foo.md", "", "#foo")

	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "foo.md"))
	want := "\n\n#foo\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestWriteNoteCreatesSubdirs(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("a/b/c.md", "deep", "#a/b/c")

	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a", "b", "c.md")); err != nil {
		t.Errorf("stat: %v", err)
	}
}

func TestWriteNoteSetsModTime(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("foo.md", "content", "#foo")

	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "foo.md"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.ModTime().Equal(n.Updated) {
		t.Errorf("ModTime = %v, want %v", info.ModTime(), n.Updated)
	}
}

func TestWriteNoteLeavesNoTempFiles(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("foo.md", "first", "#foo")
	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}
	n.Body = "second"
	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote overwrite: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, ".ehwaz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestWriteNoteTraversalBlocked(t *testing.T) {
	_, tgt := tempTarget(t)
	n := testNote("../escape.md", "nope", "")

	if err := tgt.WriteNote(n); err == nil {
		t.Error("expected error for escaping path")
	}
}

func TestRemoveNote(t *testing.T) {
	dir, tgt := tempTarget(t)
	n := testNote("gone.md", "bye", "")
	if err := tgt.WriteNote(n); err != nil {
		t.Fatalf("WriteNote: %v", err)
	}

	if err := tgt.RemoveNote("gone.md"); err != nil {
		t.Fatalf("RemoveNote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gone.md")); !os.IsNotExist(err) {
		t.Errorf("expected file gone, stat err = %v", err)
	}

	// Removing again must stay quiet.
	if err := tgt.RemoveNote("gone.md"); err != nil {
		t.Errorf("RemoveNote second time: %v", err)
	}
}
