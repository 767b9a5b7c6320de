// Package yaml provides YAML configuration loading infrastructure for
// the daemon's single canonical configuration tree (spec §6).
package yaml

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghostrunctl/ghost/internal/domain/config"
)

// ErrNoConfigurationLoaded is returned by Reload when called before any
// successful Load.
var ErrNoConfigurationLoaded = errors.New("no configuration loaded")

// dto mirrors config.Config's on-disk shape; durations are accepted as
// Go duration strings ("30s") the way the teacher's Duration DTO does.
type dto struct {
	Core struct {
		HealthCheckInterval string `yaml:"healthCheckInterval"`
		MetricsInterval     string `yaml:"metricsInterval"`
		MaxRetries          int    `yaml:"maxRetries"`
		RetryDelay          string `yaml:"retryDelay"`
		LogsPath            string `yaml:"logsPath"`
		DataPath            string `yaml:"dataPath"`
		AppsPath            string `yaml:"appsPath"`
		LogLevel            string `yaml:"logLevel"`
	} `yaml:"core"`
	Capabilities struct {
		Cache         bool `yaml:"cache"`
		Redis         bool `yaml:"redis"`
		Postgres      bool `yaml:"postgres"`
		Observability bool `yaml:"observability"`
	} `yaml:"capabilities"`
}

// Loader loads configuration from a YAML file, remembering the last
// loaded path to support Reload.
type Loader struct {
	lastPath string
}

// New creates a new YAML configuration loader.
func New() *Loader {
	return &Loader{}
}

// Load reads and parses a configuration file from path.
func (l *Loader) Load(path string) (config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := l.Parse(data)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ConfigPath = path
	l.lastPath = path
	return cfg, nil
}

// Parse parses configuration from raw YAML bytes, applying spec §6
// defaults to anything left unset.
func (l *Loader) Parse(data []byte) (config.Config, error) {
	var d dto
	if err := yaml.Unmarshal(data, &d); err != nil {
		return config.Config{}, fmt.Errorf("parsing yaml: %w", err)
	}

	cfg := config.Default()

	v, err := parseDuration(d.Core.HealthCheckInterval, cfg.Core.HealthCheckInterval)
	if err != nil {
		return config.Config{}, fmt.Errorf("core.healthCheckInterval: %w", err)
	}
	cfg.Core.HealthCheckInterval = v
	if v, err = parseDuration(d.Core.MetricsInterval, cfg.Core.MetricsInterval); err != nil {
		return config.Config{}, fmt.Errorf("core.metricsInterval: %w", err)
	}
	cfg.Core.MetricsInterval = v
	if v, err = parseDuration(d.Core.RetryDelay, cfg.Core.RetryDelay); err != nil {
		return config.Config{}, fmt.Errorf("core.retryDelay: %w", err)
	}
	cfg.Core.RetryDelay = v
	if d.Core.MaxRetries > 0 {
		cfg.Core.MaxRetries = d.Core.MaxRetries
	}
	cfg.Core.LogsPath = d.Core.LogsPath
	cfg.Core.DataPath = d.Core.DataPath
	cfg.Core.AppsPath = d.Core.AppsPath
	if d.Core.LogLevel != "" {
		cfg.Core.LogLevel = d.Core.LogLevel
	}

	cfg.Capabilities = config.Capabilities{
		Cache:         d.Capabilities.Cache,
		Redis:         d.Capabilities.Redis,
		Postgres:      d.Capabilities.Postgres,
		Observability: d.Capabilities.Observability,
	}

	return cfg, nil
}

// Reload reloads configuration from the last loaded path.
func (l *Loader) Reload() (config.Config, error) {
	if l.lastPath == "" {
		return config.Config{}, ErrNoConfigurationLoaded
	}
	return l.Load(l.lastPath)
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}
