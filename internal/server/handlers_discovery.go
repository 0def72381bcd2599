package server

import (
	"net/http"

	"github.com/aegishub/hub/internal/herr"
)

type registerHubRequest struct {
	HubID        string   `json:"hub_id"`
	URL          string   `json:"url"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// handleRegisterHub admits a peer registration. Peer-list redistribution —
// handing the caller the registry's current contents — is a primary-hub
// behavior (spec.md §6, hub.role); a secondary hub still records the
// registration but replies with an empty peer list.
func (s *Server) handleRegisterHub(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[registerHubRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.HubID == "" || req.URL == "" {
		writeError(w, herr.New(herr.Validation, "hub_id and url are required"))
		return
	}
	peers := s.svc.RegisterHub(r.Context(), req.HubID, req.URL, req.Capabilities)
	if !s.isPrimary {
		peers = nil
	}
	writeJSON(w, http.StatusCreated, map[string]any{"peers": peers})
}

type heartbeatRequest struct {
	Stats map[string]any `json:"stats,omitempty"`
}

// handleHeartbeatHub refreshes a peer's last-contact time and, on a
// primary hub, returns the registry's current peer list so a secondary's
// periodic heartbeat also keeps its local registry warm (spec.md §4.5).
func (s *Server) handleHeartbeatHub(w http.ResponseWriter, r *http.Request) {
	hubID := r.PathValue("id")
	req, err := decodeBody[heartbeatRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.svc.HeartbeatHub(r.Context(), hubID, req.Stats)

	var peers any
	if s.isPrimary {
		peers = s.svc.Peers(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "peers": peers})
}

func (s *Server) handleListHubs(w http.ResponseWriter, r *http.Request) {
	peers := s.svc.Peers(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"peers": peers})
}
