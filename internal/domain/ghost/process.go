package ghost

import (
	"strconv"
	"time"
)

// ReservedAppType is the well-known configuration key used to tag a
// record's application type for metrics routing. See spec §3 and §4.2.
const ReservedAppType = "AppType"

// ProcessRecord describes one app the daemon is supervising, along with
// whatever runtime status the Supervisor last recorded for it. Exactly
// one ProcessRecord exists per managed process id.
type ProcessRecord struct {
	// ID uniquely identifies the record within this daemon.
	ID string
	// Name is a human-readable label; defaults to ID when unset.
	Name string
	// Type classifies the app, e.g. "service", "one-shot", "daemon", "app".
	Type string
	// Version is a free-form version string.
	Version string

	// ExecutablePath is the absolute or relative path to the binary.
	ExecutablePath string
	// Arguments are passed to the child verbatim, in order.
	Arguments []string
	// WorkingDirectory is the child's cwd; empty means "the directory
	// containing ExecutablePath" (see Supervisor spawn semantics).
	WorkingDirectory string
	// Environment is merged into the child's environment; see spawn
	// semantics in spec §4.1 for precedence rules.
	Environment map[string]string
	// Configuration carries free-form key/value policy, including the
	// reserved AppType key and the AutoRestart/RestartDelayMs/MaxRestarts
	// auto-restart policy keys.
	Configuration map[string]string

	// Status is the current lifecycle state.
	Status Status
	// PID is valid only while Status.HasPID() is true.
	PID int
	// StartedAt is the time of the most recent successful spawn.
	StartedAt time.Time
	// UpdatedAt is the time of the most recent mutation to this record.
	UpdatedAt time.Time

	// RestartCount is monotonic non-decreasing; see spec §8 invariant.
	RestartCount int
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// Supervisor's lock: maps are copied, slices are copied.
func (p ProcessRecord) Clone() ProcessRecord {
	out := p
	if p.Arguments != nil {
		out.Arguments = append([]string(nil), p.Arguments...)
	}
	if p.Environment != nil {
		out.Environment = make(map[string]string, len(p.Environment))
		for k, v := range p.Environment {
			out.Environment[k] = v
		}
	}
	if p.Configuration != nil {
		out.Configuration = make(map[string]string, len(p.Configuration))
		for k, v := range p.Configuration {
			out.Configuration[k] = v
		}
	}
	return out
}

// AppType returns the record's configured AppType, defaulting to
// "unknown" when the reserved configuration key is absent.
func (p ProcessRecord) AppType() string {
	if v, ok := p.Configuration[ReservedAppType]; ok && v != "" {
		return v
	}
	return "unknown"
}

// AutoRestart reports whether the record opts into the Supervisor's
// crash auto-restart policy (spec §4.1).
func (p ProcessRecord) AutoRestart() bool {
	return p.Configuration["AutoRestart"] == "true"
}

// IsService reports whether the record's type marks it as a long-running
// service, which changes how a zero exit code is classified (spec §4.1
// exit-handling: services are not expected to terminate on their own).
func (p ProcessRecord) IsService() bool {
	return p.Type == "service"
}

// RestartDelay returns the record's configured RestartDelayMs as a
// duration, falling back to def when absent or unparseable.
func (p ProcessRecord) RestartDelay(def time.Duration) time.Duration {
	raw, ok := p.Configuration["RestartDelayMs"]
	if !ok {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// MaxRestarts returns the record's configured MaxRestarts, falling back
// to def when absent or unparseable.
func (p ProcessRecord) MaxRestarts(def int) int {
	raw, ok := p.Configuration["MaxRestarts"]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
