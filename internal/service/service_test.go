package service

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/admission"
	"github.com/aegishub/hub/internal/codec"
	"github.com/aegishub/hub/internal/federation"
	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/store"
	"github.com/aegishub/hub/internal/trust"
)

type noopPeers struct{}

func (noopPeers) Search(ctx context.Context, peerURL, query string) ([]federation.Hit, error) {
	return nil, nil
}

// newTestService wires a real Service against in-memory backing
// components. The admission.Controller's sampler is never started, so it
// stays at its default NORMAL level — these tests exercise validation and
// signature checks, not admission pressure.
func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(store.Config{InMemory: true, CacheSizeMB: 1})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	adm := admission.New(admission.Config{WarningThreshold: 70, CriticalThreshold: 90})
	tr := trust.New(trust.Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, NewTrustLookup(st))
	reg := hubs.NewRegistry(time.Minute)
	se := federation.New(NewLocalSearcher(st), reg, noopPeers{})

	return New(st, adm, tr, se, reg)
}

// signedAgent generates a fresh keypair, builds an Agent around its public
// key, and signs it — the shape every CreateAgent test case starts from.
func signedAgent(t *testing.T, version uint64) (*model.Agent, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	a := &model.Agent{
		Header: model.Header{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			AuthorID:  uuid.New(),
		},
		PublicKey: pub,
		Trust:     model.TrustConfig{DefaultTrust: 0.2},
		Version:   version,
		UpdatedAt: time.Now(),
	}
	a.AuthorID = a.ID // agents author themselves
	if err := codec.Sign(a, priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return a, priv
}

func TestCreateAndGetAgent(t *testing.T) {
	s := newTestService(t)
	a, _ := signedAgent(t, 1)

	if _, err := s.CreateAgent(context.Background(), a); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	got, err := s.GetAgent(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("GetAgent = %+v, want ID %s", got, a.ID)
	}
}

func TestCreateAgentRejectsBadSignature(t *testing.T) {
	s := newTestService(t)
	a, _ := signedAgent(t, 1)
	a.Description = "tampered after signing"

	if _, err := s.CreateAgent(context.Background(), a); herr.KindOf(err) != herr.Unauthorized {
		t.Fatalf("CreateAgent with tampered payload: err = %v, want Unauthorized", err)
	}
}

func TestCreateFragmentRequiresKnownAuthor(t *testing.T) {
	s := newTestService(t)
	f := &model.Fragment{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: uuid.New(), Signature: "00"},
		Content:    "some content",
		Confidence: 0.5,
	}
	if _, err := s.CreateFragment(context.Background(), f); herr.KindOf(err) != herr.Unauthorized {
		t.Fatalf("CreateFragment by unknown author: err = %v, want Unauthorized", err)
	}
}

func TestCreateFragmentByKnownAuthor(t *testing.T) {
	s := newTestService(t)
	agent, priv := signedAgent(t, 1)
	if _, err := s.CreateAgent(context.Background(), agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}

	f := &model.Fragment{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agent.ID},
		Content:    "distributed consensus requires a quorum",
		Confidence: 0.7,
	}
	if err := codec.Sign(f, priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := s.CreateFragment(context.Background(), f); err != nil {
		t.Fatalf("CreateFragment: %v", err)
	}
	got, err := s.GetFragment(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("GetFragment: %v", err)
	}
	if got.Content != f.Content {
		t.Fatalf("GetFragment = %+v, want content %q", got, f.Content)
	}
}

func TestCreateFragmentRejectsOutOfRangeConfidence(t *testing.T) {
	s := newTestService(t)
	f := &model.Fragment{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: uuid.New()},
		Content:    "x",
		Confidence: 1.5,
	}
	if _, err := s.CreateFragment(context.Background(), f); herr.KindOf(err) != herr.Validation {
		t.Fatalf("CreateFragment with confidence>1: err = %v, want Validation", err)
	}
}

func TestCreateRelationRequiresResolvableSource(t *testing.T) {
	s := newTestService(t)
	agent, priv := signedAgent(t, 1)
	if _, err := s.CreateAgent(context.Background(), agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}

	r := &model.Relation{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agent.ID},
		SourceID:   uuid.New(), // never stored
		TargetID:   uuid.New(),
		Type:       model.RelationReferences,
		Confidence: 0.5,
	}
	if err := codec.Sign(r, priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := s.CreateRelation(context.Background(), r); herr.KindOf(err) != herr.Validation {
		t.Fatalf("CreateRelation with unresolvable source: err = %v, want Validation", err)
	}
}

// TestCreateFragmentSurfacesAdvisoryHintAtWarningLevel drives the admission
// controller's level directly (no disk sampler running) and checks that
// CreateFragment surfaces its non-empty advisory hint once the level is
// WARNING (spec.md §6, "Advisory hint").
func TestCreateFragmentSurfacesAdvisoryHintAtWarningLevel(t *testing.T) {
	st, err := store.Open(store.Config{InMemory: true, CacheSizeMB: 1})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	adm := admission.New(admission.Config{WarningThreshold: 70, CriticalThreshold: 90})
	tr := trust.New(trust.Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, NewTrustLookup(st))
	reg := hubs.NewRegistry(time.Minute)
	se := federation.New(NewLocalSearcher(st), reg, noopPeers{})
	s := New(st, adm, tr, se, reg)

	agent, priv := signedAgent(t, 1)
	if _, err := s.CreateAgent(context.Background(), agent); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}

	f := &model.Fragment{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agent.ID},
		Content:    "some content",
		Confidence: 0.5,
	}
	if err := codec.Sign(f, priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	hint, err := s.CreateFragment(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFragment at NORMAL: %v", err)
	}
	if hint != "" {
		t.Fatalf("CreateFragment at NORMAL: hint = %q, want empty", hint)
	}

	adm.ForceLevel(admission.Warning)

	f2 := &model.Fragment{
		Header:     model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agent.ID},
		Content:    "more content",
		Confidence: 0.5,
	}
	if err := codec.Sign(f2, priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	hint, err = s.CreateFragment(context.Background(), f2)
	if err != nil {
		t.Fatalf("CreateFragment at WARNING: %v", err)
	}
	if hint == "" {
		t.Fatal("CreateFragment at WARNING: hint is empty, want advisory hint")
	}
}

func TestCreateTagUniqueness(t *testing.T) {
	s := newTestService(t)
	agentA, privA := signedAgent(t, 1)
	agentB, privB := signedAgent(t, 1)
	if _, err := s.CreateAgent(context.Background(), agentA); err != nil {
		t.Fatalf("CreateAgent A: %v", err)
	}
	if _, err := s.CreateAgent(context.Background(), agentB); err != nil {
		t.Fatalf("CreateAgent B: %v", err)
	}

	tagA := &model.Tag{Header: model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agentA.ID}, Name: "ml", Category: model.TagTopic}
	if err := codec.Sign(tagA, privA); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := s.CreateTag(context.Background(), tagA); err != nil {
		t.Fatalf("CreateTag A: %v", err)
	}

	tagB := &model.Tag{Header: model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: agentB.ID}, Name: "ml", Category: model.TagTopic}
	if err := codec.Sign(tagB, privB); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := s.CreateTag(context.Background(), tagB); herr.KindOf(err) != herr.Conflict {
		t.Fatalf("CreateTag B (duplicate name): err = %v, want Conflict", err)
	}
}
