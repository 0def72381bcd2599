package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
)

func decodeBody[T any](r *http.Request) (*T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, herr.Wrap(herr.Validation, err, "decode request body")
	}
	return &v, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, herr.Wrap(herr.Validation, err, "parse id %q", raw)
	}
	return id, nil
}

// --- Agents ---

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	a, err := decodeBody[model.Agent](r)
	if err != nil {
		writeError(w, err)
		return
	}
	hint, err := s.svc.CreateAgent(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withAdvisoryHint(map[string]any{"agent": a}, hint))
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.svc.GetAgent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// --- Fragments ---

func (s *Server) handleCreateFragment(w http.ResponseWriter, r *http.Request) {
	f, err := decodeBody[model.Fragment](r)
	if err != nil {
		writeError(w, err)
		return
	}
	hint, err := s.svc.CreateFragment(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withAdvisoryHint(map[string]any{"fragment": f}, hint))
}

func (s *Server) handleGetFragment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := s.svc.GetFragment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleSearchFragments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	fragments, err := s.svc.SearchFragmentsLocal(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fragments": fragments})
}

// --- Relations ---

func (s *Server) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	rel, err := decodeBody[model.Relation](r)
	if err != nil {
		writeError(w, err)
		return
	}
	hint, err := s.svc.CreateRelation(r.Context(), rel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withAdvisoryHint(map[string]any{"relation": rel}, hint))
}

func (s *Server) handleGetRelation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rel, err := s.svc.GetRelation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// --- Tags ---

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	t, err := decodeBody[model.Tag](r)
	if err != nil {
		writeError(w, err)
		return
	}
	hint, err := s.svc.CreateTag(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withAdvisoryHint(map[string]any{"tag": t}, hint))
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := s.svc.GetTag(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Transforms ---

func (s *Server) handleCreateTransform(w http.ResponseWriter, r *http.Request) {
	t, err := decodeBody[model.Transform](r)
	if err != nil {
		writeError(w, err)
		return
	}
	hint, err := s.svc.CreateTransform(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withAdvisoryHint(map[string]any{"transform": t}, hint))
}

func (s *Server) handleGetTransform(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := s.svc.GetTransform(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
