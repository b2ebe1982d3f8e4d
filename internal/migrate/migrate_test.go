package migrate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/joplin"
	"github.com/starford/ehwaz/internal/manifest"
	"github.com/starford/ehwaz/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// migrateTestEnv builds a Migrator over a populated export, an empty vault,
// and a fresh manifest.
func migrateTestEnv(t *testing.T, files map[string]string, opts Options) (*Migrator, string, string, *manifest.DB) {
	t.Helper()
	srcDir, src := testutil.TestExport(t, files)
	tgtDir, tgt := testutil.TestTarget(t)
	db := testutil.TestManifest(t)
	return New(src, tgt, db, testLogger(), opts), srcDir, tgtDir, db
}

func TestRunMigratesAll(t *testing.T) {
	m, _, tgtDir, db := migrateTestEnv(t, map[string]string{
		"alpha.md":           testutil.NoteText("Alpha", "Alpha body"),
		"projects/beta.md":   testutil.NoteText("Beta", "Beta body"),
		"_resources/pic.png": "image bytes",
	}, Options{})

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 2 || res.Skipped != 0 {
		t.Errorf("result = %+v, want 2 migrated, 0 skipped", res)
	}
	if res.RunID == "" {
		t.Error("expected a run ID")
	}

	got, err := os.ReadFile(filepath.Join(tgtDir, "alpha.md"))
	if err != nil {
		t.Fatalf("read alpha: %v", err)
	}
	if string(got) != "Alpha body\n\n#alpha\n" {
		t.Errorf("alpha content = %q", got)
	}
	got, err = os.ReadFile(filepath.Join(tgtDir, "projects", "beta.md"))
	if err != nil {
		t.Fatalf("read beta: %v", err)
	}
	if string(got) != "Beta body\n\n#projects/beta\n" {
		t.Errorf("beta content = %q", got)
	}

	if _, err := os.Stat(filepath.Join(tgtDir, "_resources", "pic.png")); err != nil {
		t.Errorf("resources not copied: %v", err)
	}

	row, err := db.GetNote("projects/beta.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if row.Tag != "#projects/beta" || row.RunID != res.RunID {
		t.Errorf("manifest row = %+v", row)
	}

	run, err := db.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run.Status != manifest.RunStatusCompleted || run.NotesTotal != 2 {
		t.Errorf("run = %+v, want completed with 2 notes", run)
	}
}

func TestRunAbortsBeforeWritingAnything(t *testing.T) {
	m, _, tgtDir, db := migrateTestEnv(t, map[string]string{
		"good.md":          testutil.NoteText("Good", "fine"),
		"bad.md":           "---\ncreated: 2024-03-07T23:22:26Z\nupdated: 2024-04-07T08:34:52Z\n---\n",
		"_resources/r.bin": "r",
	}, Options{})

	_, err := m.Run(context.Background())
	if !errors.Is(err, joplin.ErrMissingTitle) {
		t.Fatalf("Run error = %v, want ErrMissingTitle", err)
	}

	// The bad note was discovered during the build phase, so not even the
	// good note may reach the vault.
	if _, err := os.Stat(filepath.Join(tgtDir, "good.md")); !os.IsNotExist(err) {
		t.Errorf("good.md written despite aborted run, stat err = %v", err)
	}

	run, err := db.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run.Status != manifest.RunStatusFailed {
		t.Errorf("run status = %q, want failed", run.Status)
	}
}

func TestRunDryRun(t *testing.T) {
	m, _, tgtDir, db := migrateTestEnv(t, map[string]string{
		"alpha.md":           testutil.NoteText("Alpha", "body"),
		"_resources/pic.png": "image bytes",
	}, Options{DryRun: true})

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 1 {
		t.Errorf("Migrated = %d, want 1 validated note", res.Migrated)
	}
	if res.RunID != "" {
		t.Errorf("RunID = %q, want empty for dry run", res.RunID)
	}

	if _, err := os.Stat(filepath.Join(tgtDir, "alpha.md")); !os.IsNotExist(err) {
		t.Errorf("dry run wrote a note, stat err = %v", err)
	}
	if n, _ := db.CountNotes(); n != 0 {
		t.Errorf("dry run recorded %d notes", n)
	}
	if _, err := db.LastRun(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("dry run recorded a run, err = %v", err)
	}
}

func TestRunDryRunStillValidates(t *testing.T) {
	m, _, _, _ := migrateTestEnv(t, map[string]string{
		"bad.md":             "no front matter here",
		"_resources/pic.png": "image bytes",
	}, Options{DryRun: true})

	if _, err := m.Run(context.Background()); !errors.Is(err, joplin.ErrMissingStartMarker) {
		t.Errorf("Run error = %v, want ErrMissingStartMarker", err)
	}
}

func TestRunIncrementalSkipsUnchanged(t *testing.T) {
	files := map[string]string{
		"a.md":               testutil.NoteText("A", "a"),
		"b.md":               testutil.NoteText("B", "b"),
		"_resources/pic.png": "image bytes",
	}
	m, _, _, _ := migrateTestEnv(t, files, Options{Incremental: true})

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if res.Migrated != 2 || res.Skipped != 0 {
		t.Errorf("first run = %+v, want 2 migrated", res)
	}

	res, err = m.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Migrated != 0 || res.Skipped != 2 {
		t.Errorf("second run = %+v, want 2 skipped", res)
	}
}

func TestRunIncrementalPicksUpChanges(t *testing.T) {
	files := map[string]string{
		"a.md":               testutil.NoteText("A", "a"),
		"b.md":               testutil.NoteText("B", "b"),
		"_resources/pic.png": "image bytes",
	}
	m, srcDir, tgtDir, _ := migrateTestEnv(t, files, Options{Incremental: true})

	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	changed := testutil.NoteText("A", "a changed")
	if err := os.WriteFile(filepath.Join(srcDir, "a.md"), []byte(changed), 0o644); err != nil {
		t.Fatalf("rewrite a.md: %v", err)
	}

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Migrated != 1 || res.Skipped != 1 {
		t.Errorf("second run = %+v, want 1 migrated, 1 skipped", res)
	}

	got, _ := os.ReadFile(filepath.Join(tgtDir, "a.md"))
	if string(got) != "a changed\n\n#a\n" {
		t.Errorf("a.md content = %q", got)
	}
}

func TestRunFailsWithoutResourceDir(t *testing.T) {
	m, _, _, db := migrateTestEnv(t, map[string]string{
		"a.md": testutil.NoteText("A", "a"),
	}, Options{})

	if _, err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing _resources")
	}

	run, err := db.LastRun()
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run.Status != manifest.RunStatusFailed {
		t.Errorf("run status = %q, want failed", run.Status)
	}
}

func TestRunEmptyExport(t *testing.T) {
	m, _, _, _ := migrateTestEnv(t, map[string]string{
		"_resources/pic.png": "image bytes",
	}, Options{})

	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 0 {
		t.Errorf("Migrated = %d, want 0", res.Migrated)
	}
}

func TestRunCustomResourceDir(t *testing.T) {
	m, _, tgtDir, _ := migrateTestEnv(t, map[string]string{
		"a.md":            testutil.NoteText("A", "a"),
		"attachments/x.y": "x",
	}, Options{ResourceDir: "attachments"})

	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tgtDir, "attachments", "x.y")); err != nil {
		t.Errorf("custom resource dir not copied: %v", err)
	}
}
