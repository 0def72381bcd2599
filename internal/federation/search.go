// Package federation implements federated search (C6): a single-hop
// concurrent fan-out across live peer hubs, bounded to a fixed number of
// calls in flight at once, merged with the local store's results under a
// deterministic dedup-and-order rule (spec.md §4.6). The concurrent fan-out
// itself is built on golang.org/x/sync/errgroup, a better fit here than a
// raw sync.WaitGroup, since every peer call must also respect a deadline
// and feed a single merged error-free result.
package federation

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/ratelimit"
)

// maxConcurrentPeerCalls bounds the fan-out: at most this many peer calls
// run at once per federated_search request, with the rest queued rather
// than all dispatched at once.
const maxConcurrentPeerCalls = 8

// LocalSearcher is the local entity-store search surface federated search
// always consults. Satisfied by a thin adapter over *store.Store.
type LocalSearcher interface {
	SearchFragments(ctx context.Context, query string) ([]model.Fragment, error)
}

// PeerSearcher issues one outbound query to a peer hub, honoring ctx's
// deadline, and forcing federate_flag=false on the outbound call so the
// peer performs only a local search (spec.md §4.6, "Propagation").
type PeerSearcher interface {
	Search(ctx context.Context, peerURL, query string) ([]Hit, error)
}

// Hit is one federated-search result, tagged with where it came from.
type Hit struct {
	Fragment  model.Fragment
	Origin    *model.Address // nil when the hit is local
	Relevance float64        // 0 means "not provided"; ordering falls back to UpdatedAt
}

// ResultSet is the merged, deduplicated, ordered response.
type ResultSet struct {
	Hits            []Hit
	PartialFailures []string // hub IDs of peers dropped from the merge
}

// Searcher executes federated_search.
type Searcher struct {
	local    LocalSearcher
	registry *hubs.Registry
	peers    PeerSearcher
}

// New constructs a Searcher.
func New(local LocalSearcher, registry *hubs.Registry, peers PeerSearcher) *Searcher {
	return &Searcher{local: local, registry: registry, peers: peers}
}

// Search runs federated_search(query, federateFlag, deadline).
func (s *Searcher) Search(ctx context.Context, query string, federateFlag bool, deadline time.Duration) (ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, deadlineOrDefault(deadline))
	defer cancel()

	localHits, err := s.localHits(ctx, query)
	if err != nil {
		return ResultSet{}, err
	}
	if !federateFlag {
		return ResultSet{Hits: order(localHits)}, nil
	}

	live := s.registry.LivePeers()
	if len(live) == 0 {
		// Graceful degradation: empty registry still returns local results
		// plus an (empty) partial_failures list (spec.md §7, degradation note).
		return ResultSet{Hits: order(localHits)}, nil
	}

	type peerOutcome struct {
		hubID string
		hits  []Hit
		err   error
	}
	outcomes := make([]peerOutcome, len(live))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPeerCalls)
	for i, peer := range live {
		i, peer := i, peer
		g.Go(func() error {
			hits, err := s.peers.Search(gctx, peer.URL, query)
			outcomes[i] = peerOutcome{hubID: peer.HubID, hits: hits, err: err}
			return nil // per-peer errors are partial failures, not group failures
		})
	}
	_ = g.Wait() // errors are already captured per-outcome above

	all := append([]Hit{}, localHits...)
	var failures []string
	for _, o := range outcomes {
		if o.err != nil {
			failures = append(failures, o.hubID)
			continue
		}
		all = append(all, o.hits...)
	}

	return ResultSet{Hits: order(dedup(all)), PartialFailures: failures}, nil
}

func (s *Searcher) localHits(ctx context.Context, query string) ([]Hit, error) {
	fragments, err := s.local.SearchFragments(ctx, query)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(fragments))
	for _, f := range fragments {
		hits = append(hits, Hit{Fragment: f})
	}
	return hits, nil
}

// dedup merges hits by entity identifier, keeping the copy with the
// lexicographically greatest (updated_at, uuid) pair (spec.md §4.6).
func dedup(hits []Hit) []Hit {
	best := make(map[string]Hit, len(hits))
	for _, h := range hits {
		key := h.Fragment.ID.String()
		cur, ok := best[key]
		if !ok || wins(h, cur) {
			best[key] = h
		}
	}
	out := make([]Hit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	return out
}

// wins reports whether candidate's (updated_at, uuid) pair is
// lexicographically greater than incumbent's.
func wins(candidate, incumbent Hit) bool {
	if !candidate.Fragment.UpdatedAt.Equal(incumbent.Fragment.UpdatedAt) {
		return candidate.Fragment.UpdatedAt.After(incumbent.Fragment.UpdatedAt)
	}
	return candidate.Fragment.ID.String() > incumbent.Fragment.ID.String()
}

// order sorts hits by descending relevance when any hit carries one,
// otherwise by descending updated_at (spec.md §4.6, "Ordering").
func order(hits []Hit) []Hit {
	sorted := append([]Hit{}, hits...)
	anyRelevance := false
	for _, h := range sorted {
		if h.Relevance != 0 {
			anyRelevance = true
			break
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if anyRelevance {
			return sorted[i].Relevance > sorted[j].Relevance
		}
		return sorted[i].Fragment.UpdatedAt.After(sorted[j].Fragment.UpdatedAt)
	})
	return sorted
}

func deadlineOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// peerOutboundRate and peerOutboundWindow bound how often this hub will
// call any single peer, independent of how many local fan-outs request it
// concurrently. A chatty or flaky peer can otherwise be hit once per
// federated_search call with no backoff.
const (
	peerOutboundRate   = 30
	peerOutboundWindow = time.Minute
)

// HTTPPeerSearcher is the default PeerSearcher: one JSON GET per peer hub,
// with federate_flag forced to false so a single external request never
// fans out more than one hop (spec.md §4.6, "Propagation"). Outbound calls
// are throttled per peer URL so one misbehaving peer can't be hammered.
type HTTPPeerSearcher struct {
	Client   *http.Client
	limiters *ratelimit.Keyed
}

// NewHTTPPeerSearcher constructs a HTTPPeerSearcher. Its http.Client has no
// timeout of its own; each call is bounded by the deadline on its ctx.
func NewHTTPPeerSearcher() *HTTPPeerSearcher {
	return &HTTPPeerSearcher{
		Client:   &http.Client{},
		limiters: ratelimit.NewKeyed(peerOutboundRate, peerOutboundWindow),
	}
}
