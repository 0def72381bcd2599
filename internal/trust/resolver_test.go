package trust

import (
	"testing"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
)

// fakeLookup is an in-memory AgentLookup fixture for resolver tests.
type fakeLookup struct {
	configs map[uuid.UUID]model.TrustConfig
}

func (f fakeLookup) TrustConfig(id uuid.UUID) (model.TrustConfig, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return model.TrustConfig{}, herr.New(herr.NotFound, "unknown agent %s", id)
	}
	return cfg, nil
}

func (f fakeLookup) Exists(id uuid.UUID) (bool, error) {
	_, ok := f.configs[id]
	return ok, nil
}

func TestResolveTrustPath(t *testing.T) {
	x, y, z := uuid.New(), uuid.New(), uuid.New()
	lookup := fakeLookup{configs: map[uuid.UUID]model.TrustConfig{
		x: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{y: {Trust: 0.9, Confidence: 1}}},
		y: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{z: {Trust: 0.8, Confidence: 1}}},
		z: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{}},
	}}

	r := New(Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, lookup)

	result, err := r.Resolve(x, z)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := 0.9 * 0.8 * 0.8 * 0.8 // ∏ trust × damping^2
	if diff := result.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Resolve(X,Z).Score = %v, want %v", result.Score, want)
	}
	if len(result.Path) != 3 || result.Path[0] != x || result.Path[1] != y || result.Path[2] != z {
		t.Fatalf("Resolve(X,Z).Path = %v, want [X,Y,Z]", result.Path)
	}
}

func TestResolvePrefersMultiHopOverWeakerDirectEdge(t *testing.T) {
	x, y, z := uuid.New(), uuid.New(), uuid.New()
	lookup := fakeLookup{configs: map[uuid.UUID]model.TrustConfig{
		x: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{
			y: {Trust: 0.9, Confidence: 1},
			z: {Trust: 0.3, Confidence: 1},
		}},
		y: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{z: {Trust: 0.8, Confidence: 1}}},
		z: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{}},
	}}

	r := New(Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, lookup)

	result, err := r.Resolve(x, z)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Path) != 3 {
		t.Fatalf("Resolve(X,Z).Path = %v, want the 2-hop path via Y to win over the direct edge", result.Path)
	}
}

func TestResolveNoPathFallsBackToDefaultTrust(t *testing.T) {
	x, z := uuid.New(), uuid.New()
	lookup := fakeLookup{configs: map[uuid.UUID]model.TrustConfig{
		x: {DefaultTrust: 0.15, Entries: map[uuid.UUID]model.TrustEntry{}},
		z: {DefaultTrust: 0.1, Entries: map[uuid.UUID]model.TrustEntry{}},
	}}
	r := New(Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, lookup)

	result, err := r.Resolve(x, z)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Path) != 2 || result.Score != 0.15 {
		t.Fatalf("Resolve with no path = %+v, want degenerate length-1 edge at 0.15", result)
	}
}

func TestResolvePicksSignedMaximumOverNegativeDirectEdge(t *testing.T) {
	s, a, tgt := uuid.New(), uuid.New(), uuid.New()
	lookup := fakeLookup{configs: map[uuid.UUID]model.TrustConfig{
		s: {DefaultTrust: 0, Entries: map[uuid.UUID]model.TrustEntry{
			tgt: {Trust: -0.625, Confidence: 1},
			a:   {Trust: -0.5, Confidence: 1},
		}},
		a:   {DefaultTrust: 0, Entries: map[uuid.UUID]model.TrustEntry{tgt: {Trust: -0.9, Confidence: 1}}},
		tgt: {DefaultTrust: 0, Entries: map[uuid.UUID]model.TrustEntry{}},
	}}

	r := New(Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, lookup)

	result, err := r.Resolve(s, tgt)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := (-0.5 * 0.8) * (-0.9 * 0.8) // two negative hops compound positive
	if diff := result.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Resolve(S,T).Score = %v, want %v (the two-hop path via A, not the weaker direct -0.5 edge)", result.Score, want)
	}
	if len(result.Path) != 3 || result.Path[1] != a {
		t.Fatalf("Resolve(S,T).Path = %v, want [S,A,T]", result.Path)
	}
}

func TestResolveUnknownAgent(t *testing.T) {
	lookup := fakeLookup{configs: map[uuid.UUID]model.TrustConfig{}}
	r := New(Config{MaxDepth: 3, DampingFactor: 0.8, MinTrustThreshold: 0.01}, lookup)

	_, err := r.Resolve(uuid.New(), uuid.New())
	if herr.KindOf(err) != herr.NotFound {
		t.Fatalf("Resolve with unknown agents: err = %v, want NotFound", err)
	}
}
