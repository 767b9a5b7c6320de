package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ghostrunctl/ghost/internal/application/commands"
	appdiscovery "github.com/ghostrunctl/ghost/internal/application/discovery"
	"github.com/ghostrunctl/ghost/internal/application/hub"
	"github.com/ghostrunctl/ghost/internal/application/maintenance"
	"github.com/ghostrunctl/ghost/internal/application/registry"
	appselfmetrics "github.com/ghostrunctl/ghost/internal/application/selfmetrics"
	"github.com/ghostrunctl/ghost/internal/application/supervisor"
	"github.com/ghostrunctl/ghost/internal/domain/cache"
	applog "github.com/ghostrunctl/ghost/internal/domain/logging"
	"github.com/ghostrunctl/ghost/internal/domain/store"
	busloc "github.com/ghostrunctl/ghost/internal/infrastructure/bus/local"
	cachemem "github.com/ghostrunctl/ghost/internal/infrastructure/cache/memory"
	yamlconfig "github.com/ghostrunctl/ghost/internal/infrastructure/config/yaml"
	infradiscovery "github.com/ghostrunctl/ghost/internal/infrastructure/discovery"
	"github.com/ghostrunctl/ghost/internal/infrastructure/eventsink"
	"github.com/ghostrunctl/ghost/internal/infrastructure/launcher/osexec"
	infralogging "github.com/ghostrunctl/ghost/internal/infrastructure/logging"
	infraselfmetrics "github.com/ghostrunctl/ghost/internal/infrastructure/selfmetrics"
	"github.com/ghostrunctl/ghost/internal/infrastructure/storage/boltdb"
	"github.com/ghostrunctl/ghost/internal/infrastructure/storage/memory"
)

// Version is stamped at build time via -ldflags, mirroring the
// teacher's bootstrap.version var.
var Version = "dev"

// InitializeServices constructs every adapter and application service
// the daemon needs from a single config file path, wiring them into a
// Services struct. It is the hand-authored equivalent of a wire_gen.go
// file (see wire.go for the provider graph wire.Build would consume).
func InitializeServices(configPath string) (*Services, error) {
	cfg, err := yamlconfig.New().Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: loading config: %w", err)
	}

	logger, err := buildLogger(cfg.Core.LogsPath, cfg.Core.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: building logger: %w", err)
	}

	st, err := buildStore(cfg.Core.DataPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: building store: %w", err)
	}

	b := busloc.New()

	var c cache.Cache
	if cfg.Capabilities.Cache {
		c = cachemem.New()
	}

	sink := eventsink.New(b, logger)

	l := osexec.New()

	sup := supervisor.New(supervisor.DefaultConfig(), l, st, sink)
	reg := registry.New(registry.DefaultConfig(), st, sink)
	if c != nil {
		reg = reg.WithCache(c)
	}
	regListener := registry.NewListener(b, reg, logger)

	startedAt := time.Now()
	deps := commands.Deps{
		Supervisor: sup,
		Registry:   reg,
		DaemonID:   DaemonID,
		Version:    Version,
		StartedAt:  startedAt,
		Cache:      c,
	}

	discScanner := infradiscovery.New()
	if cfg.Core.AppsPath != "" {
		discScanner = infradiscovery.NewWithRoot(cfg.Core.AppsPath)
	}
	disc := appdiscovery.New(discScanner, sup)
	deps.Discover = disc.Run

	processor := commands.New(deps)
	h := hub.New(b, processor, logger)

	maintCfg := maintenance.DefaultConfig()
	maint := maintenance.New(maintCfg, sup, reg, st, logger)

	collector, err := infraselfmetrics.New()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: building self-metrics collector: %w", err)
	}
	reporter := appselfmetrics.New(appselfmetrics.DefaultConfig(), collector, b, reg, logger)

	return &Services{
		Config:         cfg,
		Logger:         logger,
		Store:          st,
		Bus:            b,
		Cache:          c,
		Version:        Version,
		Supervisor:     sup,
		Registry:       reg,
		Processor:      processor,
		Hub:            h,
		Maintenance:    maint,
		SelfMetrics:    reporter,
		Discovery:      disc,
		RegistryHealth: regListener,
	}, nil
}

func buildLogger(logsPath, logLevel string) (applog.Logger, error) {
	if _, err := applog.ParseLevel(logLevel); err != nil {
		return nil, err
	}

	writers := []applog.Writer{infralogging.NewConsoleWriter(os.Stdout)}
	if logsPath != "" {
		if err := os.MkdirAll(logsPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		writers = append(writers, infralogging.NewFileWriter(
			filepath.Join(logsPath, "ghost-daemon.log"),
			infralogging.FileRotation{},
		))
	}
	return infralogging.New(writers...), nil
}

func buildStore(dataPath string) (store.Store, error) {
	if dataPath == "" {
		return memory.New(), nil
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return boltdb.Open(dataPath)
}
