package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/admission"
	"github.com/aegishub/hub/internal/codec"
	"github.com/aegishub/hub/internal/federation"
	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/service"
	"github.com/aegishub/hub/internal/store"
	"github.com/aegishub/hub/internal/trust"
)

func newServerWithRole(t *testing.T, isPrimary bool) *Server {
	t.Helper()
	st, err := store.Open(store.Config{InMemory: true, CacheSizeMB: 1})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	adm := admission.New(admission.Config{WarningThreshold: 70, CriticalThreshold: 90})
	tr := trust.New(trust.Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, service.NewTrustLookup(st))
	reg := hubs.NewRegistry(time.Minute)
	se := federation.New(service.NewLocalSearcher(st), reg, noopPeers{})
	svc := service.New(st, adm, tr, se, reg)
	return New(svc, isPrimary)
}

func TestRegisterHubOnPrimaryReturnsPeerList(t *testing.T) {
	srv := newServerWithRole(t, true)
	rec := postJSON(t, srv, "/api/v1/discovery/hubs", map[string]string{"hub_id": "peer-a", "url": "https://peer-a.example"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register on primary: status = %d, want 201", rec.Code)
	}
	var decoded struct {
		Peers []hubs.Peer `json:"peers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded.Peers) != 1 || decoded.Peers[0].HubID != "peer-a" {
		t.Fatalf("register on primary: peers = %+v, want [peer-a]", decoded.Peers)
	}
}

func TestRegisterHubOnSecondaryWithholdsPeerList(t *testing.T) {
	srv := newServerWithRole(t, false)
	rec := postJSON(t, srv, "/api/v1/discovery/hubs", map[string]string{"hub_id": "peer-a", "url": "https://peer-a.example"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register on secondary: status = %d, want 201", rec.Code)
	}
	var decoded struct {
		Peers []hubs.Peer `json:"peers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded.Peers) != 0 {
		t.Fatalf("register on secondary: peers = %+v, want none", decoded.Peers)
	}
}

func TestListFragmentsByAuthor(t *testing.T) {
	srv := newServerWithRole(t, true)
	agent, priv := createSignedAgent(t)
	if rec := postJSON(t, srv, "/api/v1/agents", agent); rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/agents: status = %d, want 201", rec.Code)
	}

	f := &model.Fragment{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agent.ID},
		Content:    "some content",
		Confidence: 0.5,
	}
	if err := codec.Sign(f, priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if rec := postJSON(t, srv, "/api/v1/fragments", f); rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/fragments: status = %d, want 201; body = %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fragments?author="+agent.ID.String(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/fragments?author=...: status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var decoded struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded.IDs) != 1 {
		t.Fatalf("GET /api/v1/fragments?author=...: ids = %v, want exactly 1", decoded.IDs)
	}
}
