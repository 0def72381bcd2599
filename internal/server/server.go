// Package server implements the HTTP+JSON half of the service layer's dual
// transport surface (spec.md §6): a versioned REST API under /api/v1/,
// plus /health and /metrics. Routing uses Go 1.22+ method+path patterns
// registered directly on http.ServeMux, with no router framework.
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/ratelimit"
	"github.com/aegishub/hub/internal/service"
)

// perIPRate and perIPWindow bound how many requests a single caller IP may
// make, uniformly across every endpoint; write endpoints are the ones that
// matter under admission pressure, but the limiter is applied uniformly for
// simplicity.
const (
	perIPRate   = 120
	perIPWindow = time.Minute
)

// Server is the hub's HTTP server.
type Server struct {
	svc       *service.Service
	mux       *http.ServeMux
	limiter   *ratelimit.Keyed
	isPrimary bool
}

// New creates a Server with all routes registered. isPrimary gates
// discovery-registration peer-list redistribution (spec.md §6's hub.role
// key): a secondary hub still accepts registrations without handing its
// own peer list back.
func New(svc *service.Service, isPrimary bool) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux(), limiter: ratelimit.NewKeyed(perIPRate, perIPWindow), isPrimary: isPrimary}
	s.routes()
	go s.sweepLimiter()
	return s
}

// sweepLimiter periodically drops expired per-IP windows so the limiter
// doesn't grow unbounded over the server's lifetime.
func (s *Server) sweepLimiter() {
	for {
		time.Sleep(time.Minute)
		s.limiter.Cleanup()
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(getIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}
	s.mux.ServeHTTP(w, r)
}

// getIP extracts the client IP from a request, respecting X-Forwarded-For
// for proxied deployments.
func getIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.mux.HandleFunc("POST /api/v1/agents", s.handleCreateAgent)
	s.mux.HandleFunc("GET /api/v1/agents", s.listByAuthor(model.KindAgent))
	s.mux.HandleFunc("GET /api/v1/agents/{id}", s.handleGetAgent)

	s.mux.HandleFunc("POST /api/v1/fragments", s.handleCreateFragment)
	s.mux.HandleFunc("GET /api/v1/fragments", s.listByAuthor(model.KindFragment))
	s.mux.HandleFunc("GET /api/v1/fragments/{id}", s.handleGetFragment)
	s.mux.HandleFunc("GET /api/v1/fragments/search", s.handleSearchFragments)

	s.mux.HandleFunc("POST /api/v1/relations", s.handleCreateRelation)
	s.mux.HandleFunc("GET /api/v1/relations", s.listByAuthor(model.KindRelation))
	s.mux.HandleFunc("GET /api/v1/relations/{id}", s.handleGetRelation)

	s.mux.HandleFunc("POST /api/v1/tags", s.handleCreateTag)
	s.mux.HandleFunc("GET /api/v1/tags", s.listByAuthor(model.KindTag))
	s.mux.HandleFunc("GET /api/v1/tags/{id}", s.handleGetTag)

	s.mux.HandleFunc("POST /api/v1/transforms", s.handleCreateTransform)
	s.mux.HandleFunc("GET /api/v1/transforms", s.listByAuthor(model.KindTransform))
	s.mux.HandleFunc("GET /api/v1/transforms/{id}", s.handleGetTransform)

	s.mux.HandleFunc("GET /api/v1/trust/path", s.handleTrustPath)
	s.mux.HandleFunc("GET /api/v1/search", s.handleFederatedSearch)

	s.mux.HandleFunc("POST /api/v1/discovery/hubs", s.handleRegisterHub)
	s.mux.HandleFunc("POST /api/v1/discovery/hubs/{id}/heartbeat", s.handleHeartbeatHub)
	s.mux.HandleFunc("GET /api/v1/discovery/hubs", s.handleListHubs)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// withAdvisoryHint attaches the WARNING-level advisory hint to a success
// response payload when one is present (spec.md §6, "Advisory hint").
func withAdvisoryHint(payload map[string]any, hint string) map[string]any {
	if hint != "" {
		payload["advisory"] = hint
	}
	return payload
}
