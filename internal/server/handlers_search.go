package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
)

func (s *Server) handleTrustPath(w http.ResponseWriter, r *http.Request) {
	from, err := uuid.Parse(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, herr.Wrap(herr.Validation, err, "parse from"))
		return
	}
	to, err := uuid.Parse(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, herr.Wrap(herr.Validation, err, "parse to"))
		return
	}

	result, err := s.svc.ResolveTrust(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":  result.Path,
		"score": result.Score,
	})
}

func (s *Server) handleFederatedSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	federate := true
	if v := r.URL.Query().Get("federate"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			federate = parsed
		}
	}
	deadline := 5 * time.Second
	if v := r.URL.Query().Get("deadline_ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			deadline = time.Duration(ms) * time.Millisecond
		}
	}

	result, err := s.svc.Search(r.Context(), query, federate, deadline)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":             result.Hits,
		"partial_failures": result.PartialFailures,
	})
}
