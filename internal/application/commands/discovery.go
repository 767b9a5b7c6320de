package commands

import (
	"context"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// handleConnections returns the full audit view (spec §3: "never
// deleted while the daemon runs"), not just the active subset — a
// record that went Disconnected must still show up here.
func handleConnections(_ context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	if deps.Registry == nil {
		return ghost.NewSuccess(cmd.CommandID, []ghost.ConnectionRecord{})
	}
	return ghost.NewSuccess(cmd.CommandID, deps.Registry.ListAll())
}

func handleDiscover(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	if deps.Discover == nil {
		return ghost.NewSuccess(cmd.CommandID, 0)
	}
	count, err := deps.Discover(ctx)
	if err != nil {
		return failureFromError(cmd.CommandID, err)
	}
	return ghost.NewSuccess(cmd.CommandID, count)
}
