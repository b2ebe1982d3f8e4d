// Package api implements the ehwaz status API using chi. All endpoints are
// read-only views over the migration manifest; the vault itself is never
// touched from here.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/manifest"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	recentLimit     = 10
)

// NoteItem is one migrated note in API responses.
type NoteItem struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Tag        string    `json:"tag,omitempty"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	MigratedAt time.Time `json:"migrated_at"`
}

// RunInfo describes one migration run.
type RunInfo struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	NotesTotal int        `json:"notes_total"`
}

// Report summarizes the migration state: the last run, the ledger size,
// and the most recently migrated notes.
type Report struct {
	LastRun    *RunInfo   `json:"last_run,omitempty"`
	NotesTotal int        `json:"notes_total"`
	Recent     []NoteItem `json:"recent"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteItem `json:"notes"`
	Total int        `json:"total"`
}

// Service reads the manifest for the status API.
type Service struct {
	db *manifest.DB
}

// NewService creates a new API service.
func NewService(db *manifest.DB) *Service {
	return &Service{db: db}
}

// Report assembles the migration report. A manifest with no runs yet is a
// valid, empty report rather than an error.
func (s *Service) Report(_ context.Context) (*Report, error) {
	rep := &Report{Recent: []NoteItem{}}

	run, err := s.db.LastRun()
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		rep.LastRun = runInfo(run)
	}

	total, err := s.db.CountNotes()
	if err != nil {
		return nil, err
	}
	rep.NotesTotal = total

	rows, err := s.db.Recent(recentLimit)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		rep.Recent = append(rep.Recent, noteItem(r))
	}
	return rep, nil
}

// ListNotes returns one page of migrated notes ordered by path.
func (s *Service) ListNotes(_ context.Context, limit, offset int) ([]NoteItem, int, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, total, err := s.db.ListNotes(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteItem, len(rows))
	for i, r := range rows {
		items[i] = noteItem(r)
	}
	return items, total, nil
}

// GetNote returns one migrated note by its relative path.
func (s *Service) GetNote(_ context.Context, path string) (*NoteItem, error) {
	row, err := s.db.GetNote(path)
	if err != nil {
		return nil, err
	}
	item := noteItem(*row)
	return &item, nil
}

func noteItem(r manifest.NoteRow) NoteItem {
	return NoteItem{
		Path:       r.Path,
		Title:      r.Title,
		Tag:        r.Tag,
		Checksum:   r.Checksum,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		MigratedAt: r.MigratedAt,
	}
}

func runInfo(r *manifest.Run) *RunInfo {
	info := &RunInfo{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		Status:     r.Status,
		NotesTotal: r.NotesTotal,
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt
		info.FinishedAt = &t
	}
	return info
}
