package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

var (
	registerName    string
	registerType    string
	registerVersion string
	registerArgs    string
	registerCwd     string
	registerForce   bool
)

var registerCmd = &cobra.Command{
	Use:   "register <processId> <executable>",
	Short: "Register a new managed process",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, executable := args[0], args[1]

		var arguments []string
		if registerArgs != "" {
			arguments = strings.Fields(registerArgs)
		}

		rec := ghost.ProcessRecord{
			ID:               id,
			Name:             firstNonEmpty(registerName, id),
			Type:             firstNonEmpty(registerType, "service"),
			Version:          firstNonEmpty(registerVersion, "1.0.0"),
			ExecutablePath:   executable,
			Arguments:        arguments,
			WorkingDirectory: registerCwd,
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		client, closeFn := newClient()
		defer closeFn()

		params := map[string]string{ghost.ParamRegistration: string(payload)}
		if registerForce {
			params[ghost.ParamForce] = "true"
		}
		resp, err := client.Call(cmd.Context(), "register", id, params)
		if err != nil {
			return err
		}
		return printResponse(resp)
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "human-readable name (defaults to processId)")
	registerCmd.Flags().StringVar(&registerType, "type", "service", "app type, e.g. service, one-shot, app")
	registerCmd.Flags().StringVar(&registerVersion, "version", "1.0.0", "free-form version string")
	registerCmd.Flags().StringVar(&registerArgs, "args", "", "space-separated arguments passed to the executable")
	registerCmd.Flags().StringVar(&registerCwd, "cwd", "", "working directory (defaults to the executable's directory)")
	registerCmd.Flags().BoolVar(&registerForce, "force", false, "deregister and replace an existing record with the same id")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
