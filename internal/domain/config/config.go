// Package config defines the daemon's single logical configuration
// schema (spec §6, §9: the source's two overlapping GhostConfig trees
// collapse to one canonical schema here).
package config

import "time"

// Core holds the supervisor-wide tunables from spec §6.
type Core struct {
	HealthCheckInterval time.Duration
	MetricsInterval     time.Duration
	MaxRetries          int
	RetryDelay          time.Duration

	LogsPath string
	DataPath string
	AppsPath string

	// LogLevel gates console/file output; parsed via logging.ParseLevel.
	LogLevel string
}

// Capabilities are enablement hints passed to the Bus/Store factories
// (spec §6: "the supervisor treats these as capability hints").
type Capabilities struct {
	Cache         bool
	Redis         bool
	Postgres      bool
	Observability bool
}

// Config is the daemon's single canonical configuration tree.
type Config struct {
	Core         Core
	Capabilities Capabilities

	// ConfigPath records where this configuration was loaded from, for
	// diagnostics and Reload.
	ConfigPath string
}

// Default returns every spec §6 default.
func Default() Config {
	return Config{
		Core: Core{
			HealthCheckInterval: 30 * time.Second,
			MetricsInterval:     5 * time.Second,
			MaxRetries:          3,
			RetryDelay:          1 * time.Second,
			LogLevel:            "info",
		},
	}
}
