package server

import (
	"fmt"
	"net/http"

	"github.com/aegishub/hub/internal/admission"
)

// handleHealth reports the resource level, active warnings, and peer
// counts, not just a bare "ok".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	level := s.svc.ResourceLevel()
	peers := s.svc.Peers(r.Context())

	alive, suspect, dead := 0, 0, 0
	for _, p := range peers {
		switch p.Liveness {
		case "alive":
			alive++
		case "suspect":
			suspect++
		case "dead":
			dead++
		}
	}

	var warnings []string
	if level == admission.Warning {
		warnings = append(warnings, "resource level is WARNING: approaching capacity")
	}
	if level == admission.Critical {
		warnings = append(warnings, "resource level is CRITICAL: new agents and unfamiliar writes are being rejected")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"resource_level": level,
		"warnings":      warnings,
		"peers": map[string]int{
			"alive":   alive,
			"suspect": suspect,
			"dead":    dead,
		},
	})
}

// handleMetrics reports a minimal plaintext metrics surface. A full
// Prometheus exposition format is out of scope (see SPEC_FULL.md); this is
// enough for a liveness probe dashboard to scrape coarse counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	level := s.svc.ResourceLevel()
	peers := s.svc.Peers(r.Context())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "hub_resource_level{level=%q} 1\n", level)
	fmt.Fprintf(w, "hub_peer_count %d\n", len(peers))
}
