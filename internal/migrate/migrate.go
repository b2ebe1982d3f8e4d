// Package migrate drives the export-to-vault pipeline: discover notes,
// build them all, write them all, copy attachments, and record the run in
// the manifest.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ehwaz/internal/checksum"
	"github.com/starford/ehwaz/internal/joplin"
	"github.com/starford/ehwaz/internal/manifest"
	"github.com/starford/ehwaz/internal/storage"
)

const defaultWorkers = 4

// Options tunes one migration.
type Options struct {
	// Workers bounds the parallel build phase. Zero means defaultWorkers.
	Workers int
	// Incremental skips notes whose checksum already matches the manifest.
	Incremental bool
	// DryRun builds and validates every note but writes nothing and leaves
	// the manifest untouched.
	DryRun bool
	// ResourceDir is the attachment directory name inside the export.
	// Empty means "_resources".
	ResourceDir string
}

// Result summarizes one migration pass.
type Result struct {
	// RunID identifies the manifest run row; empty for dry runs.
	RunID string
	// Migrated counts notes written, or notes validated on a dry run.
	Migrated int
	// Skipped counts notes an incremental run left alone.
	Skipped int
}

// Migrator coordinates the source, target, and manifest for one export.
type Migrator struct {
	source storage.SourceStore
	target storage.TargetStore
	db     *manifest.DB
	logger *slog.Logger
	opts   Options
}

// New creates a Migrator. All collaborators are required.
func New(source storage.SourceStore, target storage.TargetStore, db *manifest.DB, logger *slog.Logger, opts Options) *Migrator {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.ResourceDir == "" {
		opts.ResourceDir = "_resources"
	}
	return &Migrator{source: source, target: target, db: db, logger: logger, opts: opts}
}

// built pairs a parsed note with the checksum of the bytes it was built
// from, so the manifest records exactly what was read.
type built struct {
	note     *joplin.Note
	checksum string
}

// Run performs one full pass. Every note is built before anything is
// written, so the first bad note aborts the run while the vault is still
// untouched. Failures during the write phase abort immediately and mark
// the run failed; notes already written stay in place and in the manifest,
// ready for an incremental retry.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	metas, err := m.source.List()
	if err != nil {
		return nil, err
	}

	var skipped int
	if m.opts.Incremental {
		known, err := m.db.Checksums()
		if err != nil {
			return nil, err
		}
		kept := metas[:0]
		for _, meta := range metas {
			if known[meta.RelativePath] == meta.Checksum {
				skipped++
				continue
			}
			kept = append(kept, meta)
		}
		metas = kept
	}

	if m.opts.DryRun {
		notes, err := m.buildAll(ctx, metas)
		if err != nil {
			return nil, err
		}
		m.logger.Info("dry run complete",
			slog.Int("notes", len(notes)),
			slog.Int("skipped", skipped))
		return &Result{Migrated: len(notes), Skipped: skipped}, nil
	}

	runID := uuid.NewString()
	started := time.Now().UTC()
	if err := m.db.BeginRun(runID, started); err != nil {
		return nil, err
	}

	notes, err := m.buildAll(ctx, metas)
	if err != nil {
		m.failRun(runID, 0)
		return nil, err
	}

	migrated := 0
	for _, b := range notes {
		if err := m.writeOne(b, runID); err != nil {
			m.failRun(runID, migrated)
			return nil, err
		}
		migrated++
	}

	if err := m.copyResources(); err != nil {
		m.failRun(runID, migrated)
		return nil, err
	}

	if err := m.db.FinishRun(runID, manifest.RunStatusCompleted, migrated, time.Now().UTC()); err != nil {
		return nil, err
	}
	m.logger.Info("migration complete",
		slog.String("run_id", runID),
		slog.Int("migrated", migrated),
		slog.Int("skipped", skipped),
		slog.Duration("elapsed", time.Since(started)))
	return &Result{RunID: runID, Migrated: migrated, Skipped: skipped}, nil
}

// buildAll reads and parses every listed note. The work fans out to a
// bounded errgroup; each result lands in its pre-assigned slot so the
// write phase keeps discovery order. The first failure cancels remaining
// work and aborts before anything is written.
func (m *Migrator) buildAll(ctx context.Context, metas []storage.NoteMeta) ([]built, error) {
	out := make([]built, len(metas))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)

	for i, meta := range metas {
		i, meta := i, meta // per-iteration copies; required while go.mod targets go < 1.22
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := m.source.Read(meta.RelativePath)
			if err != nil {
				return err
			}
			n, err := joplin.Build(meta.RelativePath, data)
			if err != nil {
				return fmt.Errorf("build %s: %w", meta.RelativePath, err)
			}
			out[i] = built{note: n, checksum: checksum.Sum(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// writeOne writes a note to the vault and records it in the manifest.
func (m *Migrator) writeOne(b built, runID string) error {
	n := b.note
	if err := m.target.WriteNote(n); err != nil {
		return fmt.Errorf("write %s: %w", n.RelativePath, err)
	}
	row := manifest.NoteRow{
		Path:       n.RelativePath,
		Title:      n.Title,
		Tag:        n.Tag,
		Checksum:   b.checksum,
		CreatedAt:  n.Created,
		UpdatedAt:  n.Updated,
		MigratedAt: time.Now().UTC(),
		RunID:      runID,
	}
	if err := m.db.UpsertNote(row); err != nil {
		return err
	}
	m.logger.Debug("migrated", slog.String("path", n.RelativePath), slog.String("tag", n.Tag))
	return nil
}

// copyResources mirrors the export's attachment directory into the vault.
// A missing directory fails the run: the export is incomplete without it.
func (m *Migrator) copyResources() error {
	src := filepath.Join(m.source.Root(), m.opts.ResourceDir)
	dst := filepath.Join(m.target.Root(), m.opts.ResourceDir)
	if err := storage.CopyDir(src, dst); err != nil {
		return err
	}
	m.logger.Debug("resources copied", slog.String("dir", m.opts.ResourceDir))
	return nil
}

func (m *Migrator) failRun(runID string, migrated int) {
	if err := m.db.FinishRun(runID, manifest.RunStatusFailed, migrated, time.Now().UTC()); err != nil {
		m.logger.Warn("failed to record run failure",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
	}
}
