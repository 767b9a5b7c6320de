package registry

import "time"

// Config holds the Registry's tunables (spec §4.2, §5 defaults).
type Config struct {
	// ConnectionTimeout bounds how long a record may go without a
	// heartbeat/metric/health update before Sweep marks it Disconnected.
	ConnectionTimeout time.Duration
}

// DefaultConfig returns the spec default of 120s.
func DefaultConfig() Config {
	return Config{ConnectionTimeout: 120 * time.Second}
}
