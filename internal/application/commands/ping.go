package commands

import (
	"context"
	"runtime"
	"time"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// PingPayload is the success data for the ping command (spec §6).
type PingPayload struct {
	DaemonStatus        string
	DaemonVersion       string
	ManagedProcesses    int
	ConnectedApps       int
	DaemonUptimeSeconds float64
	DaemonMemoryUsageMB float64
}

func handlePing(_ context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	managed := 0
	if deps.Supervisor != nil {
		managed = len(deps.Supervisor.List())
	}
	connected := 0
	if deps.Registry != nil {
		connected = len(deps.Registry.ListActive(time.Now()))
	}

	payload := PingPayload{
		DaemonStatus:        "Running",
		DaemonVersion:       deps.Version,
		ManagedProcesses:    managed,
		ConnectedApps:       connected,
		DaemonUptimeSeconds: time.Since(deps.StartedAt).Seconds(),
		DaemonMemoryUsageMB: float64(memStats.Alloc) / (1024 * 1024),
	}
	return ghost.NewSuccess(cmd.CommandID, payload)
}
