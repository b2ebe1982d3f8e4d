package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter assembles the API surface: the migration report, the migrated
// note listing, and (when a handler is supplied) the SSE event stream. All
// routes sit behind the bearer auth middleware, which passes everything
// through when authEnabled is false.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/report", h.GetReport)
	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Get("/*", h.GetNote)
	})
	if sseHandler != nil {
		r.Method(http.MethodGet, "/events", sseHandler)
	}

	return r
}
