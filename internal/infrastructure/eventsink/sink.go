// Package eventsink adapts the Supervisor's and Registry's EventSink
// ports onto the Bus, fanning out every SystemEvent as JSON on
// ghost:events (spec §4.3). Both application-layer EventSink
// interfaces share the same PublishEvent(ghost.SystemEvent) method
// shape, so a single adapter satisfies them both structurally.
package eventsink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
)

// Sink publishes SystemEvents onto a bus.Bus.
type Sink struct {
	bus    bus.Bus
	logger applog.Logger
}

// New constructs a Sink. logger may be nil.
func New(b bus.Bus, logger applog.Logger) *Sink {
	return &Sink{bus: b, logger: logger}
}

// PublishOutput implements supervisor.EventSink, fanning out a captured
// child process output line onto ghost:output:{id} (spec §4.3).
func (s *Sink) PublishOutput(processID, line string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, bus.OutputTopic(processID), []byte(line), 0); err != nil && s.logger != nil {
		s.logger.Warn("eventsink", "publishing output line failed", map[string]any{
			"error": err.Error(), "processId": processID,
		})
	}
}

// PublishEvent implements supervisor.EventSink and registry.EventSink.
func (s *Sink) PublishEvent(event ghost.SystemEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("eventsink", "encoding system event failed", map[string]any{
				"error": err.Error(), "type": event.Type.String(),
			})
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, bus.TopicEvents, payload, 0); err != nil && s.logger != nil {
		s.logger.Warn("eventsink", "publishing system event failed", map[string]any{
			"error": err.Error(), "type": event.Type.String(),
		})
	}
}
