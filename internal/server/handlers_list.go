package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/store"
)

const defaultListLimit = 50

// listByAuthor returns a handler that lists a single author's entities of
// kind, backed by C2's author index (spec.md §6, "list/create over
// agents, fragments, relations, tags, transforms").
func (s *Server) listByAuthor(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, err := uuid.Parse(r.URL.Query().Get("author"))
		if err != nil {
			writeError(w, herr.Wrap(herr.Validation, err, "parse author"))
			return
		}
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		cursor := store.Cursor(r.URL.Query().Get("cursor"))

		ids, next, err := s.svc.ListByAuthor(r.Context(), author, kind, cursor, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "cursor": next})
	}
}
