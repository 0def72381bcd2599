package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/model"
)

type fakeLocal struct {
	fragments []model.Fragment
	err       error
}

func (f fakeLocal) SearchFragments(ctx context.Context, query string) ([]model.Fragment, error) {
	return f.fragments, f.err
}

type fakePeers struct {
	byURL map[string][]Hit
	fail  map[string]bool
}

func (f fakePeers) Search(ctx context.Context, peerURL, query string) ([]Hit, error) {
	if f.fail[peerURL] {
		return nil, errors.New("peer unreachable")
	}
	return f.byURL[peerURL], nil
}

func TestSearchWithoutFederationReturnsLocalOnly(t *testing.T) {
	local := fakeLocal{fragments: []model.Fragment{{Header: model.Header{ID: uuid.New()}}}}
	registry := hubs.NewRegistry(time.Minute)
	registry.Register("peer-1", "https://peer-1.example", nil)

	s := New(local, registry, fakePeers{})
	result, err := s.Search(context.Background(), "q", false, time.Second)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 1 || len(result.PartialFailures) != 0 {
		t.Fatalf("Search(federate=false) = %+v, want local-only with no failures", result)
	}
}

func TestSearchMergesAndRecordsPartialFailure(t *testing.T) {
	local := fakeLocal{fragments: []model.Fragment{{
		Header:    model.Header{ID: uuid.New()},
		UpdatedAt: time.Now().Add(-time.Hour),
	}}}

	registry := hubs.NewRegistry(time.Minute)
	registry.Register("p1", "https://p1.example", nil)
	registry.Register("p2", "https://p2.example", nil)

	peerHit := Hit{Fragment: model.Fragment{
		Header:    model.Header{ID: uuid.New()},
		UpdatedAt: time.Now(),
	}}
	peers := fakePeers{
		byURL: map[string][]Hit{"https://p1.example": {peerHit}},
		fail:  map[string]bool{"https://p2.example": true},
	}

	s := New(local, registry, peers)
	result, err := s.Search(context.Background(), "q", true, time.Second)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("Search merged hits = %d, want 2", len(result.Hits))
	}
	if len(result.PartialFailures) != 1 || result.PartialFailures[0] != "p2" {
		t.Fatalf("PartialFailures = %v, want [p2]", result.PartialFailures)
	}
	// Ordering: no relevance provided anywhere, so descending updated_at;
	// the fresher peer hit comes first.
	if result.Hits[0].Fragment.ID != peerHit.Fragment.ID {
		t.Fatalf("Search did not order by descending updated_at: %+v", result.Hits)
	}
}

func TestDedupKeepsLexicographicallyGreatestUpdatedAtUUID(t *testing.T) {
	id := uuid.New()
	older := Hit{Fragment: model.Fragment{Header: model.Header{ID: id}, UpdatedAt: time.Unix(100, 0)}}
	newer := Hit{Fragment: model.Fragment{Header: model.Header{ID: id}, UpdatedAt: time.Unix(200, 0)}}

	merged := dedup([]Hit{older, newer})
	if len(merged) != 1 || !merged[0].Fragment.UpdatedAt.Equal(newer.Fragment.UpdatedAt) {
		t.Fatalf("dedup = %+v, want the newer copy to win", merged)
	}
}

func TestSearchWithEmptyRegistryDegradesGracefully(t *testing.T) {
	local := fakeLocal{fragments: nil}
	registry := hubs.NewRegistry(time.Minute)

	s := New(local, registry, fakePeers{})
	result, err := s.Search(context.Background(), "q", true, time.Second)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Hits) != 0 || result.PartialFailures != nil {
		t.Fatalf("Search with empty registry = %+v, want empty hits and nil failures", result)
	}
}
