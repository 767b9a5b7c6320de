package commands

import (
	"context"
	"strings"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// RunPayload is the success data for the run command (spec §6).
type RunPayload struct {
	PID      int
	ExitCode *int
}

func handleRun(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	executable, failure := requireParam(cmd, ghost.ParamExecutable)
	if failure != nil {
		return *failure
	}

	var args []string
	if raw, ok := cmd.Param(ghost.ParamArgs); ok {
		args = strings.Fields(raw)
	}
	cwd, _ := cmd.Param(ghost.ParamWorkingDir)
	waitForExit := false
	if v, ok := cmd.Param(ghost.ParamWaitForExit); ok {
		waitForExit = v == "true"
	}

	pid, exitCode, err := deps.Supervisor.RunOnce(ctx, executable, args, cwd, waitForExit)
	if err != nil {
		return failureFromError(cmd.CommandID, err)
	}

	payload := RunPayload{PID: pid}
	if waitForExit {
		code := exitCode
		payload.ExitCode = &code
	}
	return ghost.NewSuccess(cmd.CommandID, payload)
}
