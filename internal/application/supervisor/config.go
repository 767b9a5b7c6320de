package supervisor

import "time"

// Config holds the Supervisor's tunable timeouts and retry policy
// (spec §5, all values defaulted).
type Config struct {
	// MaxStartAttempts caps spawn retries; 0 means Start fails immediately
	// without spawning (spec §8 boundary behavior).
	MaxStartAttempts int
	// StartupTimeout bounds the total time spent retrying a Start.
	StartupTimeout time.Duration
	// ShutdownTimeout bounds how long Stop waits before forcing a kill.
	ShutdownTimeout time.Duration
	// DefaultRestartDelay is used when a record's RestartDelayMs
	// configuration key is absent or invalid.
	DefaultRestartDelay time.Duration
	// DefaultMaxRestarts bounds the crash/auto-restart loop when a
	// record's MaxRestarts configuration key is absent or invalid.
	DefaultMaxRestarts int
}

// DefaultConfig returns the spec §5 default timeouts.
func DefaultConfig() Config {
	return Config{
		MaxStartAttempts:    3,
		StartupTimeout:      30 * time.Second,
		ShutdownTimeout:     30 * time.Second,
		DefaultRestartDelay: 5 * time.Second,
		DefaultMaxRestarts:  3,
	}
}
