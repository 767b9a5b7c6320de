package selfmetrics

import "time"

// DaemonProcessID is the fixed process id the Self-Metrics Reporter
// publishes under (spec §4.6: "publishes on ghost:metrics:ghost-daemon").
const DaemonProcessID = "ghost-daemon"

// Config holds the Self-Metrics Reporter's tunables (spec §4.6: "own
// timer, default 10s").
type Config struct {
	Interval time.Duration
}

// DefaultConfig returns the spec §4.6 default 10s sampling interval.
func DefaultConfig() Config {
	return Config{Interval: 10 * time.Second}
}
