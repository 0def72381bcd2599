// Package trust implements the trust resolver (C4): directional effective
// trust between two agents, computed as the best-scoring acyclic path over
// the graph induced by agents' direct-trust maps (spec.md §4.4).
package trust

import (
	"container/heap"
	"math"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
)

// AgentLookup resolves an agent's trust configuration by ID. Satisfied by a
// thin adapter over *store.Store.
type AgentLookup interface {
	TrustConfig(id uuid.UUID) (model.TrustConfig, error)
	Exists(id uuid.UUID) (bool, error)
}

// Config holds the resolver's tunables, sourced from the trust.* keys of
// the hub configuration.
type Config struct {
	MaxDepth         int     // longest acyclic path considered, in hops
	DampingFactor    float64 // applied per hop, uniformly (see the Resolver doc below)
	MinTrustThreshold float64 // per-hop magnitude prune
}

// Resolver computes effective trust between agents.
//
// Damping convention: this resolver applies damping_factor uniformly on
// every hop, i.e. path trust = (∏ trust(aᵢ→aᵢ₊₁)) × damping^n for an
// n-hop path. spec.md §4.4 permits either "damping after the first hop"
// or "damping on every hop", requiring only that the implementation pick
// one and document it; uniform per-hop damping is the convention spec.md's
// own §8 worked example (S2: 0.9 × 0.8 × 0.8² = 0.4608 for a 2-hop path)
// is computed under, so this resolver matches it.
type Resolver struct {
	cfg    Config
	lookup AgentLookup
}

// New constructs a Resolver.
func New(cfg Config, lookup AgentLookup) *Resolver {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 5
	}
	if cfg.DampingFactor <= 0 {
		cfg.DampingFactor = 0.8
	}
	return &Resolver{cfg: cfg, lookup: lookup}
}

// Result is the winning path and its score.
type Result struct {
	Path  []uuid.UUID // S = Path[0], ..., T = Path[len-1]
	Score float64
}

// partial is one frontier entry in the best-first search: a path ending at
// node, its accumulated magnitude, and its signed score.
type partial struct {
	path      []uuid.UUID
	onPath    map[uuid.UUID]bool
	magnitude float64 // |score|, used to order the frontier and to prune
	score     float64
}

// frontier is a max-heap on magnitude, implementing container/heap.
type frontier []*partial

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].magnitude > f[j].magnitude } // max-heap
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)         { *f = append(*f, x.(*partial)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// Resolve computes the effective trust from source to target.
func (r *Resolver) Resolve(source, target uuid.UUID) (Result, error) {
	sOK, err := r.lookup.Exists(source)
	if err != nil {
		return Result{}, err
	}
	if !sOK {
		return Result{}, herr.New(herr.NotFound, "unknown source agent %s", source)
	}
	tOK, err := r.lookup.Exists(target)
	if err != nil {
		return Result{}, err
	}
	if !tOK {
		return Result{}, herr.New(herr.NotFound, "unknown target agent %s", target)
	}

	if source == target {
		return Result{Path: []uuid.UUID{source}, Score: 1}, nil
	}

	best, err := r.search(source, target)
	if err != nil {
		return Result{}, err
	}
	if best != nil {
		return Result{Path: best.path, Score: best.score}, nil
	}

	// No path found: fall back to S's undamped direct-trust toward T
	// (spec.md §4.4, "never via traversal").
	cfg, err := r.lookup.TrustConfig(source)
	if err != nil {
		return Result{}, err
	}
	return Result{Path: []uuid.UUID{source, target}, Score: cfg.DirectTrust(target)}, nil
}

// search runs the bounded best-first traversal described in spec.md §4.4:
// expand the highest-magnitude partial path first, prune any path that
// cannot beat the best score found for target, and forbid revisiting an
// agent already on the current path.
func (r *Resolver) search(source, target uuid.UUID) (*partial, error) {
	start := &partial{
		path:      []uuid.UUID{source},
		onPath:    map[uuid.UUID]bool{source: true},
		magnitude: 1,
		score:     1,
	}
	pq := &frontier{start}
	heap.Init(pq)

	var best *partial

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*partial)

		// Termination: once the frontier's best possible magnitude cannot
		// exceed the best score already found, stop. A magnitude bound only
		// rules out a pending path when the incumbent is itself non-negative
		// -- against a negative incumbent, any still-unexplored positive
		// continuation beats it regardless of magnitude.
		if best != nil && best.score >= 0 && cur.magnitude <= best.score {
			break
		}

		// A path of MaxDepth hops (MaxDepth+1 agents) is not extended further.
		if len(cur.path) > r.cfg.MaxDepth {
			continue
		}

		last := cur.path[len(cur.path)-1]
		cfg, err := r.lookup.TrustConfig(last)
		if err != nil {
			return nil, err
		}

		for next, entry := range cfg.Entries {
			if cur.onPath[next] {
				continue // cycle avoidance
			}
			hopTrust := entry.Trust
			if math.Abs(hopTrust) < r.cfg.MinTrustThreshold {
				continue // per-hop magnitude prune
			}

			nextScore := cur.score * hopTrust * r.cfg.DampingFactor
			nextMagnitude := math.Abs(nextScore)

			nextPath := append(append([]uuid.UUID{}, cur.path...), next)
			nextOnPath := make(map[uuid.UUID]bool, len(cur.onPath)+1)
			for k := range cur.onPath {
				nextOnPath[k] = true
			}
			nextOnPath[next] = true

			candidate := &partial{
				path:      nextPath,
				onPath:    nextOnPath,
				magnitude: nextMagnitude,
				score:     nextScore,
			}

			if next == target {
				best = betterOf(best, candidate)
				continue
			}

			if best != nil && best.score >= 0 && nextMagnitude <= best.score {
				continue // cannot possibly beat the best path to target
			}
			heap.Push(pq, candidate)
		}
	}

	return best, nil
}

// betterOf applies the tie-break rule of spec.md §4.4: higher score wins;
// on a tie, the shorter path wins; on a further tie, the lexicographically
// smaller sequence of intermediate agent identifiers wins.
func betterOf(a, b *partial) *partial {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.score != b.score {
		if a.score > b.score {
			return a
		}
		return b
	}
	if len(a.path) != len(b.path) {
		if len(a.path) < len(b.path) {
			return a
		}
		return b
	}
	if intermediateLess(a.path, b.path) {
		return a
	}
	return b
}

// intermediateLess compares the intermediate-agent sequences (excluding the
// source and target endpoints) of two equal-length paths lexicographically.
func intermediateLess(a, b []uuid.UUID) bool {
	ai := intermediates(a)
	bi := intermediates(b)
	n := len(ai)
	if len(bi) < n {
		n = len(bi)
	}
	for i := 0; i < n; i++ {
		if ai[i].String() != bi[i].String() {
			return ai[i].String() < bi[i].String()
		}
	}
	return len(ai) < len(bi)
}

func intermediates(path []uuid.UUID) []uuid.UUID {
	if len(path) <= 2 {
		return nil
	}
	return path[1 : len(path)-1]
}
