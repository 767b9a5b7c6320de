// Package commands implements the Command Processor: it consumes
// Commands, dispatches them through a handler table keyed by
// lowercased command type, and always produces exactly one Response
// (spec §4.4).
package commands

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ghostrunctl/ghost/internal/application/registry"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/cache"
	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// dedupTTL bounds how long a command's Response is remembered for
// idempotent replay when the same commandId arrives twice — a caller
// retrying after a response it never saw, not a cache of the command's
// side effects (those already happened once, behind the Supervisor's
// own per-id locking).
const dedupTTL = 60 * time.Second

// Handler is the common signature every command handler implements, per
// spec §9's translation of the source's dynamic dispatch map into a
// statically-typed handler table.
type Handler func(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response

// Deps carries the capabilities a handler may need. Handlers receive
// only this struct, never the daemon's full service set, per spec §9's
// "hub owns, handlers borrow" inversion of the source's cyclic
// ownership.
type Deps struct {
	Supervisor *supervisor.Supervisor
	Registry   *registry.Registry
	Discover   func(ctx context.Context) (int, error)
	DaemonID   string
	Version    string
	StartedAt  time.Time
	// Cache optionally backs commandId-keyed response dedup; nil
	// disables it (spec §6 capability hint: cache is opt-in).
	Cache cache.Cache
}

// Processor dispatches Commands to handlers and always yields one
// Response.
type Processor struct {
	deps     Deps
	handlers map[string]Handler
}

func dedupKey(commandID string) string { return "cmd:response:" + commandID }

// New builds a Processor with the standard handler table (spec §4.4:
// start, stop, restart, status, register, run, ping, connections,
// discover).
func New(deps Deps) *Processor {
	p := &Processor{deps: deps, handlers: make(map[string]Handler, 9)}
	p.handlers["ping"] = handlePing
	p.handlers["status"] = handleStatus
	p.handlers["start"] = handleStart
	p.handlers["stop"] = handleStop
	p.handlers["restart"] = handleRestart
	p.handlers["register"] = handleRegister
	p.handlers["run"] = handleRun
	p.handlers["connections"] = handleConnections
	p.handlers["discover"] = handleDiscover
	return p
}

// Process dispatches cmd and always returns a Response, never an error:
// every failure mode is translated into Response.error at this boundary
// (spec §9's exceptions-to-sum-type translation).
func (p *Processor) Process(ctx context.Context, cmd ghost.Command) ghost.Response {
	if cached, ok := p.lookupCached(ctx, cmd.CommandID); ok {
		return cached
	}

	key := strings.ToLower(strings.TrimSpace(cmd.CommandType))
	handler, ok := p.handlers[key]
	var resp ghost.Response
	if !ok {
		err := ghost.NewError(ghost.KindInvalidArgument, "unknown command type: %s", cmd.CommandType)
		resp = ghost.NewFailure(cmd.CommandID, err)
	} else {
		resp = handler(ctx, p.deps, cmd)
	}

	p.storeCached(ctx, cmd.CommandID, resp)
	return resp
}

func (p *Processor) lookupCached(ctx context.Context, commandID string) (ghost.Response, bool) {
	if p.deps.Cache == nil || commandID == "" {
		return ghost.Response{}, false
	}
	blob, ok, err := p.deps.Cache.Get(ctx, dedupKey(commandID))
	if err != nil || !ok {
		return ghost.Response{}, false
	}
	var resp ghost.Response
	if err := json.Unmarshal(blob, &resp); err != nil {
		return ghost.Response{}, false
	}
	return resp, true
}

func (p *Processor) storeCached(ctx context.Context, commandID string, resp ghost.Response) {
	if p.deps.Cache == nil || commandID == "" {
		return
	}
	blob, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = p.deps.Cache.Set(ctx, dedupKey(commandID), blob, dedupTTL)
}

// requireParam fetches a required parameter, returning an
// InvalidArgument failure Response when absent or empty.
func requireParam(cmd ghost.Command, key string) (string, *ghost.Response) {
	v, ok := cmd.Param(key)
	if !ok {
		err := ghost.NewError(ghost.KindInvalidArgument, "missing required parameter: %s", key)
		resp := ghost.NewFailure(cmd.CommandID, err)
		return "", &resp
	}
	return v, nil
}

func failureFromError(commandID string, err error) ghost.Response {
	return ghost.NewFailure(commandID, err)
}
