// Package admission implements the capacity monitor and admission
// controller (C3): a resource-level state machine driven by sampled disk
// usage on the store directory, consulted by the service layer on every
// write. The controller is the sole writer of the resource level; every
// other component only reads it (spec.md §3, "Ownership").
package admission

import (
	"context"
	"log"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/herr"
)

// Level is the hub's current capacity posture.
type Level string

const (
	Normal   Level = "NORMAL"
	Warning  Level = "WARNING"
	Critical Level = "CRITICAL"
)

// KnownAgentChecker answers whether an agent ID already has a stored Agent
// record, i.e. whether it is "known to the hub" for the purposes of the
// CRITICAL-level write restriction. Satisfied by *store.Store.
type KnownAgentChecker interface {
	HasAgent(id uuid.UUID) (bool, error)
}

// Config configures the Controller.
type Config struct {
	StoreDir          string        // directory whose free space is sampled
	CheckInterval     time.Duration // sample cadence; spec.md's check_interval_sec
	WarningThreshold  float64       // percent free-disk used, [0,100)
	CriticalThreshold float64       // percent free-disk used, [0,100)
}

// Controller samples disk usage on a fixed interval and exposes the derived
// resource level as an atomically published snapshot, so every write site
// reads a consistent value without locking (spec.md §5, "Resource level: an
// atomic cell").
type Controller struct {
	cfg   Config
	level atomic.Value // Level
}

// New constructs a Controller starting at NORMAL. Callers must invoke Run in
// a goroutine to begin sampling.
func New(cfg Config) *Controller {
	c := &Controller{cfg: cfg}
	c.level.Store(Normal)
	return c
}

// Run samples disk usage every CheckInterval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	interval := c.cfg.CheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			c.sampleOnce()
		}
	}
}

// sampleOnce takes one disk-usage reading and updates the published level.
// A sampling failure retains the last known level and logs a warning,
// per spec.md's graceful-degradation rule for disk sampling.
func (c *Controller) sampleOnce() {
	used, err := usedPercent(c.cfg.StoreDir)
	if err != nil {
		log.Printf("[admission] sample disk usage at %s: %v", c.cfg.StoreDir, err)
		return
	}
	c.level.Store(levelFor(used, c.cfg.WarningThreshold, c.cfg.CriticalThreshold))
}

// levelFor is the unconditional mapping from sampled usage to Level
// (spec.md §4.3): there is no hysteresis between levels.
func levelFor(usedPercent, warning, critical float64) Level {
	switch {
	case usedPercent >= critical:
		return Critical
	case usedPercent >= warning:
		return Warning
	default:
		return Normal
	}
}

// Level returns the most recently published resource level.
func (c *Controller) Level() Level {
	return c.level.Load().(Level)
}

// ForceLevel overrides the published level without waiting for the next
// disk sample, for tests and for an operator-triggered override ahead of a
// known capacity event. Run's next tick still overwrites it with whatever
// the sampler observes.
func (c *Controller) ForceLevel(level Level) {
	c.level.Store(level)
}

// Decision is the outcome of an admission check: whether the write proceeds
// and, for WARNING, the advisory hint to attach to the success response.
type Decision struct {
	Allowed      bool
	AdvisoryHint string
}

const warningHint = "the hub is approaching capacity; consider federating this write to a peer"

// AdmitAgentCreation decides whether a new Agent record may be admitted.
// CRITICAL rejects all new agent creation unconditionally (spec.md §4.3).
func (c *Controller) AdmitAgentCreation() (Decision, error) {
	switch c.Level() {
	case Critical:
		return Decision{}, herr.New(herr.CapacityRejected, "hub is at critical capacity; new agent registration is suspended")
	case Warning:
		return Decision{Allowed: true, AdvisoryHint: warningHint}, nil
	default:
		return Decision{Allowed: true}, nil
	}
}

// AdmitWrite decides whether a non-agent write by authorID may be admitted.
// CRITICAL rejects writes from authors the store does not already know
// (spec.md §4.3); writes from known authors are still allowed so that
// existing participants can keep working while the hub sheds new load.
func (c *Controller) AdmitWrite(ctx context.Context, authorID uuid.UUID, known KnownAgentChecker) (Decision, error) {
	level := c.Level()
	if level == Normal {
		return Decision{Allowed: true}, nil
	}

	if level == Critical {
		isKnown, err := known.HasAgent(authorID)
		if err != nil {
			return Decision{}, err
		}
		if !isKnown {
			return Decision{}, herr.New(herr.CapacityRejected, "hub is at critical capacity; writes from unfamiliar author %s are rejected", authorID)
		}
	}

	return Decision{Allowed: true, AdvisoryHint: warningHint}, nil
}

// usedPercent reports the fraction of the filesystem backing dir currently
// in use, as a percentage in [0, 100].
func usedPercent(dir string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, herr.Wrap(herr.Internal, err, "statfs %s", dir)
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	if total == 0 {
		return 0, herr.New(herr.Internal, "statfs %s reported zero total blocks", dir)
	}
	used := total - free
	return float64(used) / float64(total) * 100, nil
}
