// Package selfmetrics implements the Self-Metrics Reporter: a timer
// that samples the daemon's own resource usage and fans it out both to
// the Bus and to the Connection Registry's self-record (spec §4.6),
// structurally grounded on the same stopCh/sync.WaitGroup/time.Ticker
// loop used by internal/application/maintenance.
package selfmetrics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/application/registry"
	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
)

// Sampler is the port over a concrete resource-usage collector;
// infrastructure/selfmetrics implements it with gopsutil.
type Sampler interface {
	Sample() Sample
}

// Sample mirrors infrastructure/selfmetrics.Sample without importing it,
// keeping this package free of a gopsutil dependency of its own.
type Sample struct {
	CPUPercentage float64
	MemoryBytes   uint64
	ThreadCount   int
}

// Reporter periodically samples and publishes the daemon's own metrics.
type Reporter struct {
	cfg      Config
	sampler  Sampler
	bus      bus.Bus
	registry *registry.Registry
	logger   applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Reporter. bus and registry may be nil to skip the
// corresponding fan-out (used by tests exercising only sampling).
func New(cfg Config, sampler Sampler, b bus.Bus, reg *registry.Registry, logger applog.Logger) *Reporter {
	return &Reporter{cfg: cfg, sampler: sampler, bus: b, registry: reg, logger: logger}
}

// Start begins the sampling goroutine. A second Start before Stop is a
// no-op.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	stopCh := make(chan struct{})
	r.stopCh = stopCh
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, stopCh)
}

// Stop signals the goroutine and waits for it to return.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reporter) run(ctx context.Context, stopCh <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	s := r.sampler.Sample()
	sample := ghost.MetricSample{
		ProcessID:     DaemonProcessID,
		CPUPercentage: s.CPUPercentage,
		MemoryBytes:   s.MemoryBytes,
		ThreadCount:   s.ThreadCount,
		AppType:       "daemon",
		Timestamp:     time.Now().UTC(),
	}

	if r.bus != nil {
		payload, err := json.Marshal(sample)
		if err == nil {
			_ = r.bus.Publish(ctx, bus.MetricsTopic(DaemonProcessID), payload, 0)
		} else if r.logger != nil {
			r.logger.Warn("selfmetrics", "encoding self metric sample failed", map[string]any{"error": err.Error()})
		}
	}

	if r.registry != nil {
		if err := r.registry.UpdateSelfMetrics(ctx, DaemonProcessID, sample); err != nil && r.logger != nil {
			r.logger.Warn("selfmetrics", "updating registry self-record failed", map[string]any{"error": err.Error()})
		}
	}
}
