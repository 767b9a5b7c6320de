package main

import (
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check daemon liveness and basic stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn := newClient()
		defer closeFn()
		resp, err := client.Call(cmd.Context(), "ping", "", nil)
		if err != nil {
			return err
		}
		return printResponse(resp)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Trigger a discovery pass and report how many apps were registered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn := newClient()
		defer closeFn()
		resp, err := client.Call(cmd.Context(), "discover", "", nil)
		if err != nil {
			return err
		}
		return printResponse(resp)
	},
}

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List every connection known to the Registry, including disconnected ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn := newClient()
		defer closeFn()
		resp, err := client.Call(cmd.Context(), "connections", "", nil)
		if err != nil {
			return err
		}
		return printResponse(resp)
	},
}
