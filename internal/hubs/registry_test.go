package hubs

import (
	"testing"
	"time"

	"github.com/aegishub/hub/internal/model"
)

func TestRegisterAndPeers(t *testing.T) {
	r := NewRegistry(time.Minute)

	peers := r.Register("hub-a", "https://hub-a.example", []string{"search"})
	if len(peers) != 1 {
		t.Fatalf("Register returned %d peers, want 1", len(peers))
	}
	if peers[0].Liveness != model.LivenessAlive {
		t.Fatalf("Register liveness = %v, want alive", peers[0].Liveness)
	}
}

func TestHeartbeatRefreshesKnownPeer(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Register("hub-a", "https://hub-a.example", nil)

	before := r.Peers()[0].LastHeartbeat
	time.Sleep(5 * time.Millisecond)
	r.Heartbeat("hub-a", map[string]any{"entities": 42})

	after := r.Peers()[0]
	if !after.LastHeartbeat.After(before) {
		t.Fatal("expected LastHeartbeat to advance after Heartbeat")
	}
	if after.LastStats["entities"] != 42 {
		t.Fatalf("LastStats = %v, want entities=42", after.LastStats)
	}
}

func TestHeartbeatOfUnknownPeerIsNoop(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.Heartbeat("ghost", nil)
	if len(r.Peers()) != 0 {
		t.Fatalf("Heartbeat of unknown hub registered a peer: %v", r.Peers())
	}
}

func TestSweeperAgesLivenessByElapsedHeartbeat(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	r.Register("hub-a", "https://hub-a.example", nil)

	// Force the stored heartbeat far enough into the past to cross both
	// the suspect (2x) and dead (5x) thresholds in turn.
	setLastHeartbeat(r, "hub-a", time.Now().Add(-25*time.Millisecond))
	r.sweepOnce()
	if got := r.Peers()[0].Liveness; got != model.LivenessSuspect {
		t.Fatalf("after 2.5x interval: liveness = %v, want suspect", got)
	}

	setLastHeartbeat(r, "hub-a", time.Now().Add(-60*time.Millisecond))
	r.sweepOnce()
	if got := r.Peers()[0].Liveness; got != model.LivenessDead {
		t.Fatalf("after 6x interval: liveness = %v, want dead", got)
	}
}

func TestLivePeersExcludesDead(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	r.Register("hub-a", "https://hub-a.example", nil)
	r.Register("hub-b", "https://hub-b.example", nil)
	setLastHeartbeat(r, "hub-b", time.Now().Add(-time.Hour))
	r.sweepOnce()

	live := r.LivePeers()
	if len(live) != 1 || live[0].HubID != "hub-a" {
		t.Fatalf("LivePeers = %v, want only hub-a", live)
	}
}

func setLastHeartbeat(r *Registry, hubID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[hubID].LastHeartbeat = at
}
