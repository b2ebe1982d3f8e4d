package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ehwaz/internal/apperr"
)

// Handler serves the HTTP endpoints over the migration manifest.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// notePath returns the note path captured by the /notes/* wildcard. Clients
// that cannot put raw slashes in a path segment may percent-encode them
// instead.
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// intQuery parses an integer query parameter, treating junk as zero. The
// service clamps out-of-range values.
func intQuery(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// GetReport handles GET /api/report.
//
//	@Summary		Migration report: last run, totals, recent notes
//	@Tags			report
//	@Produce		json
//	@Success		200	{object}	Report
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		slog.Error("report failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List migrated notes with pagination
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.svc.ListNotes(r.Context(), intQuery(r, "limit"), intQuery(r, "offset"))
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get one migrated note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteItem
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case err != nil:
		slog.Error("get note failed", slog.String("path", path), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, note)
	}
}
