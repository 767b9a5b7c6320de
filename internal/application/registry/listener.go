package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
)

// Listener subscribes to the health and metrics wildcard topics and
// feeds every payload into the Registry, so external apps that never
// go through the Command Processor are still tracked (spec §4.2's
// "irrespective of whether the daemon launched them", §4.3's
// bus-driven registry updates). Structurally it follows the same
// stopCh/sync.WaitGroup guard as hub.Hub and maintenance.Ticker,
// generalized here to two concurrent subscriptions instead of one.
type Listener struct {
	bus      bus.Bus
	registry *Registry
	logger   applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	unsubs  []func()
	wg      sync.WaitGroup
}

// NewListener constructs a Listener. logger may be nil.
func NewListener(b bus.Bus, r *Registry, logger applog.Logger) *Listener {
	return &Listener{bus: b, registry: r, logger: logger}
}

// Start subscribes to ghost:health:* and ghost:metrics:* and begins
// dispatching in background goroutines.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	health, unsubHealth, err := l.bus.Subscribe(ctx, bus.HealthWildcard())
	if err != nil {
		return ghost.Wrap(ghost.KindInternal, err, "subscribe to %s", bus.HealthWildcard())
	}
	metrics, unsubMetrics, err := l.bus.Subscribe(ctx, bus.MetricsWildcard())
	if err != nil {
		unsubHealth()
		return ghost.Wrap(ghost.KindInternal, err, "subscribe to %s", bus.MetricsWildcard())
	}

	l.running = true
	l.stopCh = make(chan struct{})
	l.unsubs = []func(){unsubHealth, unsubMetrics}

	l.wg.Add(2)
	go l.runHealth(ctx, health, l.stopCh)
	go l.runMetrics(ctx, metrics, l.stopCh)
	return nil
}

// Stop unsubscribes both topics and waits for the dispatch goroutines
// to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stopCh)
	for _, unsub := range l.unsubs {
		unsub()
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Listener) runHealth(ctx context.Context, messages <-chan bus.Message, stopCh <-chan struct{}) {
	defer l.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			l.handleHealth(ctx, msg)
		}
	}
}

func (l *Listener) runMetrics(ctx context.Context, messages <-chan bus.Message, stopCh <-chan struct{}) {
	defer l.wg.Done()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			l.handleMetrics(ctx, msg)
		}
	}
}

// handleHealth decodes a ghost:health:{id} payload and routes it to
// UpsertFromHealth when a message is present, else UpsertFromHeartbeat —
// the same topic carries both shapes (spec §4.3).
func (l *Listener) handleHealth(ctx context.Context, msg bus.Message) {
	var payload ghost.HealthPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		if l.logger != nil {
			l.logger.Warn("registry.listener", "discarding malformed health payload", map[string]any{
				"topic": msg.Topic, "error": err.Error(),
			})
		}
		return
	}
	id := payload.ID
	if id == "" {
		if suffix, ok := bus.IDFromTopic(bus.HealthTopicBase(), msg.Topic); ok {
			id = suffix
		}
	}
	status := ghost.ParseStatus(payload.Status)

	var err error
	if payload.Message != "" {
		err = l.registry.UpsertFromHealth(ctx, id, status, payload.Message, payload.AppType)
	} else {
		err = l.registry.UpsertFromHeartbeat(ctx, id, status, payload.AppType)
	}
	if err != nil && l.logger != nil {
		l.logger.Warn("registry.listener", "upserting health record failed", map[string]any{
			"id": id, "error": err.Error(),
		})
	}
}

func (l *Listener) handleMetrics(ctx context.Context, msg bus.Message) {
	var sample ghost.MetricSample
	if err := json.Unmarshal(msg.Payload, &sample); err != nil {
		if l.logger != nil {
			l.logger.Warn("registry.listener", "discarding malformed metrics payload", map[string]any{
				"topic": msg.Topic, "error": err.Error(),
			})
		}
		return
	}
	id := sample.ProcessID
	if id == "" {
		if suffix, ok := bus.IDFromTopic(bus.MetricsTopicBase(), msg.Topic); ok {
			id = suffix
		}
	}
	if err := l.registry.UpsertFromMetrics(ctx, id, sample); err != nil && l.logger != nil {
		l.logger.Warn("registry.listener", "upserting metrics record failed", map[string]any{
			"id": id, "error": err.Error(),
		})
	}
}
