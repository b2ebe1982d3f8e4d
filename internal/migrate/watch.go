package migrate

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/joplin"
	"github.com/starford/ehwaz/internal/manifest"
	"github.com/starford/ehwaz/internal/storage"
)

// EventFunc is called after a watch-driven vault change.
// kind is "migrated" or "removed".
type EventFunc func(kind string, path string)

// reconcileDelay debounces the post-rename reconciliation pass.
const reconcileDelay = 200 * time.Millisecond

// watchSession carries the state of one Watch call: the fsnotify watcher,
// the event callback, and the debounce timer for reconciliation.
type watchSession struct {
	m  *Migrator
	w  *fsnotify.Watcher
	cb EventFunc

	reconcileTimer *time.Timer
	reconcileCh    <-chan time.Time
}

// Watch starts an fsnotify watcher on the export root and mirrors file
// changes into the vault until ctx is cancelled. It calls cb (if non-nil)
// after each successful change.
//
// Unlike Run, a note that fails to build is logged and skipped instead of
// stopping the watch: files are often saved mid-edit and fix themselves on
// the next write event.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that removes vault notes
// whose source files no longer exist and migrates files that appeared
// under a new name.
func (m *Migrator) Watch(ctx context.Context, cb EventFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, m.source.Root()); err != nil {
		return err
	}
	m.logger.Info("watch: started", slog.String("root", m.source.Root()))

	ws := &watchSession{m: m, w: w, cb: cb}
	defer ws.stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("watch: stopped")
			return nil

		case <-ws.reconcileCh:
			m.reconcile(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			ws.handleEvent(ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (ws *watchSession) stop() {
	if ws.reconcileTimer != nil {
		ws.reconcileTimer.Stop()
	}
}

// scheduleReconcile arms the debounce timer, extending the window when it
// is already running.
func (ws *watchSession) scheduleReconcile() {
	if ws.reconcileTimer == nil {
		ws.reconcileTimer = time.NewTimer(reconcileDelay)
		ws.reconcileCh = ws.reconcileTimer.C
		return
	}
	ws.reconcileTimer.Reset(reconcileDelay)
}

// handleEvent routes one fsnotify event to the right action.
func (ws *watchSession) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 && ws.watchNewDir(ev.Name) {
		return
	}
	if !storage.IsNoteFile(ev.Name) {
		return
	}
	rel, err := filepath.Rel(ws.m.source.Root(), ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		ws.report("migrate", rel, ws.m.migrateOne(rel, ws.cb))

	case ev.Op&fsnotify.Remove != 0:
		ws.report("remove", rel, ws.m.removeOne(rel, ws.cb))

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the OLD path only; the new path shows
		// up as a separate Create when it lands in a watched dir. Drop
		// the old note now and sweep for stragglers shortly after.
		ws.report("rename cleanup", rel, ws.m.removeOne(rel, ws.cb))
		ws.scheduleReconcile()
	}
}

// report logs the outcome of one watch action.
func (ws *watchSession) report(action, rel string, err error) {
	if err != nil {
		ws.m.logger.Warn("watch: "+action+" failed",
			slog.String("path", rel),
			slog.String("error", err.Error()))
		return
	}
	ws.m.logger.Debug("watch: "+action+" ok", slog.String("path", rel))
}

// watchNewDir begins watching a newly created directory and migrates any
// notes that already landed inside it. It reports whether name was a
// directory.
func (ws *watchSession) watchNewDir(name string) bool {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := addDirsRecursive(ws.w, name); err != nil {
		ws.m.logger.Warn("watch: add new dir failed",
			slog.String("path", name),
			slog.String("error", err.Error()))
	}
	ws.m.sweepDir(name, ws.cb)
	return true
}

// migrateOne rebuilds a single note, writes it to the vault, and updates
// the manifest. Watch-driven rows carry no run ID.
func (m *Migrator) migrateOne(rel string, cb EventFunc) error {
	data, err := m.source.Read(rel)
	if err != nil {
		return err
	}
	n, err := joplin.Build(rel, data)
	if err != nil {
		return err
	}
	if err := m.target.WriteNote(n); err != nil {
		return err
	}
	row := manifest.NoteRow{
		Path:       n.RelativePath,
		Title:      n.Title,
		Tag:        n.Tag,
		Checksum:   checksum.Sum(data),
		CreatedAt:  n.Created,
		UpdatedAt:  n.Updated,
		MigratedAt: time.Now().UTC(),
	}
	if err := m.db.UpsertNote(row); err != nil {
		return err
	}
	if cb != nil {
		cb("migrated", rel)
	}
	return nil
}

// removeOne drops a note from the vault and the manifest. Both sides treat
// a missing note as already done, so removals are safe to replay.
func (m *Migrator) removeOne(rel string, cb EventFunc) error {
	if err := m.target.RemoveNote(rel); err != nil {
		return err
	}
	if err := m.db.DeleteNote(rel); err != nil {
		return err
	}
	if cb != nil {
		cb("removed", rel)
	}
	return nil
}

// reconcile brings the vault back in line with the export using batch
// lookups: manifest entries without a source file are removed, and source
// files whose checksum differs from the manifest are migrated again.
func (m *Migrator) reconcile(cb EventFunc) {
	known, err := m.db.Checksums()
	if err != nil {
		m.logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := m.source.List()
	if err != nil {
		m.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, meta := range metas {
		disk[meta.RelativePath] = meta.Checksum
	}

	for p := range known {
		if _, ok := disk[p]; !ok {
			if err := m.removeOne(p, cb); err == nil {
				m.logger.Debug("reconcile: removed stale", slog.String("path", p))
			}
		}
	}

	for p, cs := range disk {
		if known[p] == cs {
			continue
		}
		if err := m.migrateOne(p, cb); err != nil {
			m.logger.Warn("reconcile: migrate failed",
				slog.String("path", p),
				slog.String("error", err.Error()))
			continue
		}
		m.logger.Debug("reconcile: migrated", slog.String("path", p))
	}
}

// sweepDir migrates every note file under dir. Used when a directory is
// created or renamed into the watched tree with files already inside.
func (m *Migrator) sweepDir(dir string, cb EventFunc) {
	root := m.source.Root()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsNoteFile(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if migErr := m.migrateOne(rel, cb); migErr != nil {
			m.logger.Warn("watch: sweep migrate failed",
				slog.String("path", rel),
				slog.String("error", migErr.Error()))
		}
		return nil
	})
}

// addDirsRecursive puts root and every directory below it on the watch
// list. fsnotify watches single directories, not trees.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			return w.Add(path)
		default:
			return nil
		}
	})
}
