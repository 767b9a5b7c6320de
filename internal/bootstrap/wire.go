//go:build wireinject

// This file documents the dependency graph InitializeServices (init.go)
// hand-implements. It is never compiled — google/wire would consume it
// to regenerate init.go, but `wire` itself is never invoked in this
// project, so init.go is maintained by hand and must be kept in sync
// with the provider set below whenever a new adapter is added.
package bootstrap

import (
	"github.com/google/wire"

	"github.com/ghostrunctl/ghost/internal/application/commands"
	"github.com/ghostrunctl/ghost/internal/application/discovery"
	"github.com/ghostrunctl/ghost/internal/application/hub"
	"github.com/ghostrunctl/ghost/internal/application/maintenance"
	"github.com/ghostrunctl/ghost/internal/application/registry"
	"github.com/ghostrunctl/ghost/internal/application/selfmetrics"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	infrabus "github.com/ghostrunctl/ghost/internal/infrastructure/bus/local"
	infracache "github.com/ghostrunctl/ghost/internal/infrastructure/cache/memory"
	infraconfig "github.com/ghostrunctl/ghost/internal/infrastructure/config/yaml"
	infradiscovery "github.com/ghostrunctl/ghost/internal/infrastructure/discovery"
	"github.com/ghostrunctl/ghost/internal/infrastructure/eventsink"
	"github.com/ghostrunctl/ghost/internal/infrastructure/launcher/osexec"
	infralogging "github.com/ghostrunctl/ghost/internal/infrastructure/logging"
	infraselfmetrics "github.com/ghostrunctl/ghost/internal/infrastructure/selfmetrics"
	"github.com/ghostrunctl/ghost/internal/infrastructure/storage/boltdb"
)

var providerSet = wire.NewSet(
	infraconfig.New,
	infrabus.New,
	infracache.New,
	boltdb.Open,
	osexec.New,
	eventsink.New,
	infradiscovery.New,
	infraselfmetrics.New,
	infralogging.New,
	supervisor.New,
	supervisor.DefaultConfig,
	registry.New,
	registry.DefaultConfig,
	commands.New,
	hub.New,
	maintenance.New,
	maintenance.DefaultConfig,
	selfmetrics.New,
	selfmetrics.DefaultConfig,
	discovery.New,
	wire.Struct(new(Services), "*"),
)

func initializeServices(configPath string) (*Services, error) {
	wire.Build(providerSet)
	return nil, nil
}
