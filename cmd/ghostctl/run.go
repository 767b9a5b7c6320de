package main

import (
	"github.com/spf13/cobra"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

var (
	runArgs        string
	runCwd         string
	runWaitForExit bool
)

var runCmd = &cobra.Command{
	Use:   "run <executable>",
	Short: "Run an unmanaged one-shot process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn := newClient()
		defer closeFn()

		params := map[string]string{ghost.ParamExecutable: args[0]}
		if runArgs != "" {
			params[ghost.ParamArgs] = runArgs
		}
		if runCwd != "" {
			params[ghost.ParamWorkingDir] = runCwd
		}
		if runWaitForExit {
			params[ghost.ParamWaitForExit] = "true"
		}

		resp, err := client.Call(cmd.Context(), "run", "", params)
		if err != nil {
			return err
		}
		return printResponse(resp)
	},
}

func init() {
	runCmd.Flags().StringVar(&runArgs, "args", "", "space-separated arguments passed to the executable")
	runCmd.Flags().StringVar(&runCwd, "cwd", "", "working directory")
	runCmd.Flags().BoolVar(&runWaitForExit, "wait", false, "block until the process exits and report its exit code")
}
