// Package cliclient implements the caller side of the Command/Response
// protocol: publish a Command on ghost:commands, then block on the
// caller's response channel with the spec's 10s timeout (spec §6,
// §8: "every CLI-initiated command receives either a success=true
// response or a success=false response ... within the caller's
// timeout"). cmd/ghostctl's subcommands all go through this client.
package cliclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// DefaultTimeout is the caller-side wait bound from spec §8.
const DefaultTimeout = 10 * time.Second

// Client issues Commands over a Bus and awaits their Response.
type Client struct {
	bus     bus.Bus
	caller  string
	timeout time.Duration
}

// New constructs a Client identified as caller on the response topic
// (spec §3: "ghost:responses:{caller}").
func New(b bus.Bus, caller string) *Client {
	return &Client{bus: b, caller: caller, timeout: DefaultTimeout}
}

// WithTimeout overrides DefaultTimeout, used by tests.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Call publishes a Command built from commandType/targetProcessID/params
// and blocks for the matching Response.
func (c *Client) Call(ctx context.Context, commandType, targetProcessID string, params map[string]string) (ghost.Response, error) {
	cmd := ghost.Command{
		CommandID:       uuid.NewString(),
		CommandType:     commandType,
		TargetProcessID: targetProcessID,
		Parameters:      withResponseChannel(params, c.responseTopic()),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages, unsubscribe, err := c.bus.Subscribe(ctx, c.responseTopic())
	if err != nil {
		return ghost.Response{}, fmt.Errorf("cliclient: subscribing to response topic: %w", err)
	}
	defer unsubscribe()

	payload, err := json.Marshal(cmd)
	if err != nil {
		return ghost.Response{}, fmt.Errorf("cliclient: encoding command: %w", err)
	}
	if err := c.bus.Publish(ctx, bus.TopicCommands, payload, 0); err != nil {
		return ghost.Response{}, fmt.Errorf("cliclient: publishing command: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ghost.Response{}, fmt.Errorf("cliclient: timed out waiting for response to %s", commandType)
		case msg, ok := <-messages:
			if !ok {
				return ghost.Response{}, fmt.Errorf("cliclient: response channel closed before a response arrived")
			}
			var resp ghost.Response
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				continue
			}
			if resp.CommandID != cmd.CommandID {
				continue
			}
			return resp, nil
		}
	}
}

func (c *Client) responseTopic() string { return bus.ResponseTopic(c.caller) }

func withResponseChannel(params map[string]string, topic string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out[ghost.ParamResponseChannel] = topic
	return out
}
