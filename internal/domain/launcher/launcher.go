// Package launcher defines the abstract ProcessLauncher capability the
// Process Supervisor depends on (spec §1, §4.1). The concrete adapter
// (os/exec-backed) lives under internal/infrastructure/launcher/osexec.
package launcher

import (
	"context"
	"os"
	"time"
)

// Spec describes one process to spawn. It is the launcher-facing
// projection of the fields on ghost.ProcessRecord the Supervisor needs
// to start a child.
type Spec struct {
	ExecutablePath   string
	Arguments        []string
	WorkingDirectory string
	Environment      map[string]string

	// OnOutputLine, if non-nil, is called once per line of combined
	// stdout/stderr the child writes (spec §4.1 spawn semantics: output
	// is line-buffered and forwarded to the Bus and as an observable).
	OnOutputLine func(line string)
}

// ExitResult is delivered on the channel returned by Start once the
// child terminates.
type ExitResult struct {
	Code  int
	Error error
}

// Launcher abstracts OS process execution so the Supervisor never calls
// os/exec directly.
type Launcher interface {
	// Start spawns spec and returns its pid plus a channel that receives
	// exactly one ExitResult when the child exits.
	Start(ctx context.Context, spec Spec) (pid int, exit <-chan ExitResult, err error)

	// Stop sends a cooperative termination signal to pid, then forces a
	// kill if the child has not exited within timeout.
	Stop(pid int, timeout time.Duration) error

	// Signal sends an arbitrary OS signal to pid (used by tests and by
	// platform-specific health probes).
	Signal(pid int, sig os.Signal) error
}
