// Package bootstrap wires every concrete adapter into the daemon's
// Services struct. The teacher (supervizio-daemon) does this with
// google/wire and a //go:build wireinject provider file, but carries no
// committed generated output in its own tree; Ghost follows the same
// split — wire.go documents the intended provider graph for `wire` to
// regenerate, and InitializeServices in init.go is the hand-authored
// equivalent of what wire would emit, built by hand because the Go
// toolchain (including wire itself) is never invoked in this project.
package bootstrap

import (
	"context"

	"github.com/ghostrunctl/ghost/internal/application/commands"
	appdiscovery "github.com/ghostrunctl/ghost/internal/application/discovery"
	"github.com/ghostrunctl/ghost/internal/application/hub"
	"github.com/ghostrunctl/ghost/internal/application/maintenance"
	"github.com/ghostrunctl/ghost/internal/application/registry"
	appselfmetrics "github.com/ghostrunctl/ghost/internal/application/selfmetrics"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/bus"
	"github.com/ghostrunctl/ghost/internal/domain/cache"
	"github.com/ghostrunctl/ghost/internal/domain/config"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
	"github.com/ghostrunctl/ghost/internal/domain/store"
)

// DaemonID is the fixed identity the daemon registers itself under in
// the Connection Registry and publishes self-metrics as (spec §4.6).
const DaemonID = appselfmetrics.DaemonProcessID

// Services is the root object of the dependency graph: every
// long-lived component the daemon entry point needs to Start and
// eventually Shutdown.
type Services struct {
	Config config.Config
	Logger applog.Logger

	Store   store.Store
	Bus     bus.Bus
	Cache   cache.Cache // nil unless Capabilities.Cache is set
	Version string

	Supervisor     *supervisor.Supervisor
	Registry       *registry.Registry
	Processor      *commands.Processor
	Hub            *hub.Hub
	Maintenance    *maintenance.Ticker
	SelfMetrics    *appselfmetrics.Reporter
	Discovery      *appdiscovery.Scanner
	RegistryHealth *registry.Listener
}

// Start brings up every background loop: the command Hub, the
// Maintenance Ticker, and the Self-Metrics Reporter. Discovery is run
// once synchronously before the loops start, mirroring spec §6's
// description of discovery as a startup-time (and on-demand) pass.
func (s *Services) Start(ctx context.Context) error {
	if err := s.resumeActiveRecords(ctx); err != nil {
		return err
	}

	if s.Discovery != nil {
		if n, err := s.Discovery.Run(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("bootstrap", "startup discovery pass failed", map[string]any{"error": err.Error()})
		} else if s.Logger != nil {
			s.Logger.Info("bootstrap", "startup discovery pass complete", map[string]any{"registered": n})
		}
	}

	if s.RegistryHealth != nil {
		if err := s.RegistryHealth.Start(ctx); err != nil {
			return err
		}
	}
	if s.Hub != nil {
		if err := s.Hub.Start(ctx); err != nil {
			return err
		}
	}
	if s.Maintenance != nil {
		s.Maintenance.Start(ctx)
	}
	if s.SelfMetrics != nil {
		s.SelfMetrics.Start(ctx)
	}
	return nil
}

// resumeActiveRecords reads every Store record left Starting or Running
// by a previous run (crash or restart) and seeds the Supervisor's
// in-memory table with it, without respawning anything (spec §4.5/§6).
// It runs before Discovery and the background loops so the Supervisor's
// table is consistent before anything else touches it.
func (s *Services) resumeActiveRecords(ctx context.Context) error {
	if s.Store == nil || s.Supervisor == nil {
		return nil
	}
	active, err := s.Store.LoadActive(ctx)
	if err != nil {
		return err
	}
	for _, rec := range active {
		s.Supervisor.Seed(rec)
	}
	if s.Logger != nil && len(active) > 0 {
		s.Logger.Info("bootstrap", "resumed active records from store", map[string]any{"count": len(active)})
	}
	return nil
}

// Shutdown stops every background loop, drains in-flight processes via
// StopAll, checkpoints the Store, and closes the Logger, in that order
// so nothing writes to a closed Store or Logger mid-shutdown.
func (s *Services) Shutdown(ctx context.Context) {
	if s.SelfMetrics != nil {
		s.SelfMetrics.Stop()
	}
	if s.Maintenance != nil {
		s.Maintenance.Stop()
	}
	if s.Hub != nil {
		s.Hub.Stop()
	}
	if s.RegistryHealth != nil {
		s.RegistryHealth.Stop()
	}
	if s.Supervisor != nil {
		for _, err := range s.Supervisor.StopAll(ctx) {
			if err != nil && s.Logger != nil {
				s.Logger.Warn("bootstrap", "stopping managed process during shutdown failed", map[string]any{"error": err.Error()})
			}
		}
	}
	if s.Store != nil {
		if err := s.Store.Checkpoint(ctx); err != nil && s.Logger != nil {
			s.Logger.Error("bootstrap", "final checkpoint failed", map[string]any{"error": err.Error()})
		}
		if err := s.Store.Close(); err != nil && s.Logger != nil {
			s.Logger.Error("bootstrap", "closing store failed", map[string]any{"error": err.Error()})
		}
	}
	if s.Logger != nil {
		_ = s.Logger.Close()
	}
}
