// Package hub implements the daemon's command-consumption loop: it
// subscribes to ghost:commands, hands each decoded Command to the
// Command Processor, and publishes the resulting Response on the
// caller's response channel (spec §4.3, §4.4). Structurally it follows
// the same stopCh/sync.WaitGroup start/stop guard used by
// application/maintenance and application/selfmetrics, generalized here
// from a time.Ticker source to a Bus subscription channel.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
)

// Processor is the subset of commands.Processor the Hub depends on.
type Processor interface {
	Process(ctx context.Context, cmd ghost.Command) ghost.Response
}

// Hub owns the ghost:commands subscription and dispatches to Processor.
type Hub struct {
	bus       bus.Bus
	processor Processor
	logger    applog.Logger

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	unsubscribe func()
	wg          sync.WaitGroup
}

// New constructs a Hub. logger may be nil.
func New(b bus.Bus, processor Processor, logger applog.Logger) *Hub {
	return &Hub{bus: b, processor: processor, logger: logger}
}

// Start subscribes to ghost:commands and begins dispatching in a
// background goroutine. Returns an error if the subscription fails.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	messages, unsubscribe, err := h.bus.Subscribe(ctx, bus.TopicCommands)
	if err != nil {
		return ghost.Wrap(ghost.KindInternal, err, "subscribe to %s", bus.TopicCommands)
	}

	h.running = true
	h.stopCh = make(chan struct{})
	h.unsubscribe = unsubscribe

	h.wg.Add(1)
	go h.run(ctx, messages, h.stopCh)
	return nil
}

// Stop unsubscribes and waits for the dispatch goroutine to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.stopCh)
	h.unsubscribe()
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) run(ctx context.Context, messages <-chan bus.Message, stopCh <-chan struct{}) {
	defer h.wg.Done()
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
			h.dispatch(ctx, msg)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, msg bus.Message) {
	var cmd ghost.Command
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		if h.logger != nil {
			h.logger.Warn("hub", "discarding malformed command payload", map[string]any{"error": err.Error()})
		}
		return
	}

	resp := h.processor.Process(ctx, cmd)

	payload, err := json.Marshal(resp)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("hub", "encoding response failed", map[string]any{"error": err.Error(), "commandId": cmd.CommandID})
		}
		return
	}

	publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.bus.Publish(publishCtx, cmd.ResponseChannel(), payload, 0); err != nil && h.logger != nil {
		h.logger.Warn("hub", "publishing response failed", map[string]any{"error": err.Error(), "commandId": cmd.CommandID})
	}
}
