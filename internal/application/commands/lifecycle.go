package commands

import (
	"context"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

func handleStatus(_ context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	if id, ok := cmd.Param(ghost.ParamProcessID); ok {
		rec, found := deps.Supervisor.Get(id)
		if !found {
			err := ghost.NewError(ghost.KindNotFound, "unknown process %q", id)
			return failureFromError(cmd.CommandID, err)
		}
		return ghost.NewSuccess(cmd.CommandID, rec)
	}
	return ghost.NewSuccess(cmd.CommandID, deps.Supervisor.List())
}

func handleStart(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	id, failure := requireParam(cmd, ghost.ParamProcessID)
	if failure != nil {
		return *failure
	}
	if err := deps.Supervisor.Start(ctx, id); err != nil {
		return failureFromError(cmd.CommandID, err)
	}
	rec, _ := deps.Supervisor.Get(id)
	return ghost.NewSuccess(cmd.CommandID, rec)
}

func handleStop(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	id, failure := requireParam(cmd, ghost.ParamProcessID)
	if failure != nil {
		return *failure
	}
	if err := deps.Supervisor.StopDefault(ctx, id); err != nil {
		return failureFromError(cmd.CommandID, err)
	}
	rec, _ := deps.Supervisor.Get(id)
	return ghost.NewSuccess(cmd.CommandID, rec)
}

func handleRestart(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	id, failure := requireParam(cmd, ghost.ParamProcessID)
	if failure != nil {
		return *failure
	}
	if err := deps.Supervisor.Restart(ctx, id); err != nil {
		return failureFromError(cmd.CommandID, err)
	}
	rec, _ := deps.Supervisor.Get(id)
	return ghost.NewSuccess(cmd.CommandID, rec)
}
