// Package hubs implements the hub registry (C5): the peer table of other
// hubs known to this one, their liveness, and the heartbeat sweep that
// ages entries out of the fan-out set.
package hubs

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/aegishub/hub/internal/model"
)

// Peer is one entry in the registry.
type Peer struct {
	HubID         string
	URL           string
	Capabilities  []string
	LastHeartbeat time.Time
	Liveness      model.Liveness
	LastStats     map[string]any
}

// Registry is a mutex-protected peer table.
type Registry struct {
	mu               sync.RWMutex
	peers            map[string]*Peer
	heartbeatInterval time.Duration
}

// NewRegistry constructs an empty Registry. heartbeatInterval is the
// baseline used to derive the suspect (2x) and dead (5x) thresholds.
func NewRegistry(heartbeatInterval time.Duration) *Registry {
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	return &Registry{
		peers:             make(map[string]*Peer),
		heartbeatInterval: heartbeatInterval,
	}
}

// Register creates or refreshes a peer entry, marks it alive, and returns
// the current full peer list (spec.md §4.5).
func (r *Registry) Register(hubID, url string, caps []string) []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[hubID]
	if !ok {
		p = &Peer{HubID: hubID}
		r.peers[hubID] = p
	}
	p.URL = url
	p.Capabilities = caps
	p.LastHeartbeat = time.Now()
	p.Liveness = model.LivenessAlive

	return r.snapshotLocked()
}

// Heartbeat refreshes a peer's last-heartbeat time and attached stats.
// Unregistered hub IDs are ignored; a heartbeat is not an implicit register.
func (r *Registry) Heartbeat(hubID string, stats map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[hubID]
	if !ok {
		return
	}
	p.LastHeartbeat = time.Now()
	p.LastStats = stats
	p.Liveness = model.LivenessAlive
}

// Peers returns a sorted snapshot of the full peer table.
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// LivePeers returns every peer whose liveness is alive or suspect — i.e.
// every peer that still participates in federated search fan-out. Dead
// peers are retained in the table but excluded here (spec.md §4.5).
func (r *Registry) LivePeers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var live []Peer
	for _, p := range r.peers {
		if p.Liveness != model.LivenessDead {
			live = append(live, *p)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].HubID < live[j].HubID })
	return live
}

func (r *Registry) snapshotLocked() []Peer {
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HubID < out[j].HubID })
	return out
}

// Merge folds a reply's peer list into the local registry, used by a
// secondary hub absorbing its primary's peer list (spec.md §4.5). It never
// downgrades a peer's liveness below what Register/Heartbeat would compute
// locally on the next sweep; it only adds or refreshes URLs/caps.
func (r *Registry) Merge(peers []Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, incoming := range peers {
		p, ok := r.peers[incoming.HubID]
		if !ok {
			cp := incoming
			r.peers[incoming.HubID] = &cp
			continue
		}
		if incoming.URL != "" {
			p.URL = incoming.URL
		}
		if len(incoming.Capabilities) > 0 {
			p.Capabilities = incoming.Capabilities
		}
	}
}

// RunSweeper periodically ages peer liveness based on elapsed time since
// each peer's last heartbeat, until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.heartbeatInterval
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			n := r.sweepOnce()
			if n > 0 {
				log.Printf("[hubs] sweeper updated liveness for %d peers", n)
			}
		}
	}
}

// sweepOnce applies the liveness-aging rule of spec.md §4.5: suspect at
// 2x the heartbeat interval since last contact, dead at 5x. Returns the
// number of peers whose liveness changed.
func (r *Registry) sweepOnce() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	changed := 0
	for _, p := range r.peers {
		elapsed := now.Sub(p.LastHeartbeat)
		var next model.Liveness
		switch {
		case elapsed > 5*r.heartbeatInterval:
			next = model.LivenessDead
		case elapsed > 2*r.heartbeatInterval:
			next = model.LivenessSuspect
		default:
			next = model.LivenessAlive
		}
		if next != p.Liveness {
			p.Liveness = next
			changed++
		}
	}
	return changed
}
