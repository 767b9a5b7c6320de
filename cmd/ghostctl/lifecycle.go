package main

import (
	"github.com/spf13/cobra"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

var startCmd = &cobra.Command{
	Use:   "start <processId>",
	Short: "Start a registered process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callSimple(cmd, "start", args[0])
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <processId>",
	Short: "Stop a running process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callSimple(cmd, "stop", args[0])
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <processId>",
	Short: "Restart a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callSimple(cmd, "restart", args[0])
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [processId]",
	Short: "Show one or all process records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		return callSimple(cmd, "status", target)
	},
}

// callSimple issues a command carrying only the well-known processId
// parameter, the shape shared by start/stop/restart/status.
func callSimple(cmd *cobra.Command, commandType, processID string) error {
	client, closeFn := newClient()
	defer closeFn()

	params := map[string]string{}
	if processID != "" {
		params[ghost.ParamProcessID] = processID
	}
	resp, err := client.Call(cmd.Context(), commandType, processID, params)
	if err != nil {
		return err
	}
	return printResponse(resp)
}
