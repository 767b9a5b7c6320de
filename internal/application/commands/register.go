package commands

import (
	"context"
	"encoding/json"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// handleRegister decodes the serialized ProcessRecord carried in the
// registration parameter (JSON over the wire, per spec §9's "opaque
// serialized payload" treatment of Command.parameters) and registers
// it, honoring the force semantics from spec §6.
func handleRegister(ctx context.Context, deps Deps, cmd ghost.Command) ghost.Response {
	raw, failure := requireParam(cmd, ghost.ParamRegistration)
	if failure != nil {
		return *failure
	}

	var rec ghost.ProcessRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		wrapped := ghost.NewError(ghost.KindInvalidArgument, "malformed registration payload: %v", err)
		return failureFromError(cmd.CommandID, wrapped)
	}

	force := false
	if v, ok := cmd.Param(ghost.ParamForce); ok {
		force = v == "true"
	}

	var err error
	if force {
		err = deps.Supervisor.ForceDeregisterAndReplace(ctx, rec)
	} else {
		err = deps.Supervisor.Register(ctx, rec)
	}
	if err != nil {
		return failureFromError(cmd.CommandID, err)
	}
	return ghost.NewSuccess(cmd.CommandID, struct{}{})
}
