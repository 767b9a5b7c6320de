// Package maintenance implements the Maintenance Ticker: the daemon's
// periodic four-step sweep (spec §4.6), grounded on the teacher's
// ProbeMonitor ticking pattern in application/health/monitor.go — a
// stopCh-and-sync.WaitGroup-driven goroutine loop built around a
// time.Ticker, generalized here from per-listener probing to the
// daemon-wide health/connection/restart/checkpoint sweep.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/application/registry"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
	"github.com/ghostrunctl/ghost/internal/domain/store"
)

// Ticker drives the periodic sweep over the Supervisor's and Registry's
// in-memory tables and the Store's checkpoint.
type Ticker struct {
	cfg        Config
	supervisor *supervisor.Supervisor
	registry   *registry.Registry
	store      store.Store
	logger     applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	sinceCheckpoint time.Duration
}

// New constructs a Ticker. registry, store, and logger may each be nil,
// in which case the corresponding step is skipped.
func New(cfg Config, sup *supervisor.Supervisor, reg *registry.Registry, st store.Store, logger applog.Logger) *Ticker {
	return &Ticker{cfg: cfg, supervisor: sup, registry: reg, store: st, logger: logger}
}

// Start begins ticking in a background goroutine. A second Start call
// before Stop is a no-op.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	stopCh := make(chan struct{})
	t.stopCh = stopCh
	t.sinceCheckpoint = 0
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx, stopCh)
}

// Stop signals the goroutine and waits for it to return.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Ticker) run(ctx context.Context, stopCh <-chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.onTick(ctx, now)
		}
	}
}

// onTick runs the four spec §4.6 steps in order: health sweep, registry
// connection-timeout sweep, crash-recovery restart pass, and a
// checkpoint every CheckpointInterval worth of ticks.
func (t *Ticker) onTick(ctx context.Context, now time.Time) {
	t.healthSweep()

	if t.registry != nil {
		t.registry.Sweep(ctx, now)
	}

	t.restartSweep(ctx, now)

	t.sinceCheckpoint += t.cfg.TickInterval
	if t.sinceCheckpoint >= t.cfg.CheckpointInterval {
		t.sinceCheckpoint = 0
		t.checkpoint(ctx)
	}
}

// healthSweep checks every managed record's status/pid coherence
// (spec §4.6 step 1: "latency budget, status coherence") and logs any
// record that drifted out of the invariants the Supervisor otherwise
// enforces — a defensive check against bugs elsewhere, not a source of
// mutation.
func (t *Ticker) healthSweep() {
	if t.supervisor == nil || t.logger == nil {
		return
	}
	for _, rec := range t.supervisor.List() {
		if recordIsCoherent(rec) {
			continue
		}
		t.logger.Warn("maintenance", "process record failed status/pid coherence check", map[string]any{
			"processId": rec.ID,
			"status":    rec.Status.String(),
			"pid":       rec.PID,
		})
	}
}

func recordIsCoherent(rec ghost.ProcessRecord) bool {
	return rec.Status.HasPID() == (rec.PID != 0)
}

// restartSweep implements spec §4.6 step 3: for each record sitting in
// Crashed/Failed/Warning that opts into auto-restart and hasn't been
// touched within RestartCooldown (avoiding a tight loop racing the
// Supervisor's own crash-triggered restart goroutine), attempt a
// Restart.
func (t *Ticker) restartSweep(ctx context.Context, now time.Time) {
	if t.supervisor == nil {
		return
	}
	for _, rec := range t.supervisor.List() {
		if !needsRestartAttempt(rec) {
			continue
		}
		if now.Sub(rec.UpdatedAt) < t.cfg.RestartCooldown {
			continue
		}
		if err := t.supervisor.Restart(ctx, rec.ID); err != nil && t.logger != nil {
			t.logger.Warn("maintenance", "crash-recovery restart attempt failed", map[string]any{
				"processId": rec.ID,
				"error":     err.Error(),
			})
		}
	}
}

func needsRestartAttempt(rec ghost.ProcessRecord) bool {
	switch rec.Status {
	case ghost.StatusCrashed, ghost.StatusFailed, ghost.StatusWarning:
		return rec.AutoRestart()
	default:
		return false
	}
}

// checkpoint implements spec §4.6 step 4.
func (t *Ticker) checkpoint(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Checkpoint(ctx); err != nil && t.logger != nil {
		t.logger.Error("maintenance", "checkpoint failed", map[string]any{"error": err.Error()})
	}
}
