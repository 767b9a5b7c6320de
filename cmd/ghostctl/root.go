package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ghostrunctl/ghost/internal/domain/bus"
	busloc "github.com/ghostrunctl/ghost/internal/infrastructure/bus/local"
	"github.com/ghostrunctl/ghost/internal/transport/cliclient"
)

var (
	callerID string
)

// rootCmd is the base command when ghostctl is called without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "ghostctl",
	Short: "Control and inspect the Ghost process supervisor",
	Long: `ghostctl is the command-line front-end for the Ghost daemon.

It publishes Commands on ghost:commands and waits for the daemon's
Response on the caller's own response channel.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&callerID, "caller", defaultCallerID(), "caller id used for the response channel")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(topCmd)
}

func defaultCallerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "ghostctl"
	}
	return "ghostctl@" + host
}

// newClient builds a cliclient.Client over a fresh in-process Bus.
//
// The shipped local Bus adapter is in-process only (see
// internal/infrastructure/bus/local); a real deployment configures a
// shared backend (e.g. Redis, per spec §1's "concrete bus ... backends"
// being an external collaborator) so ghostctl and ghostd can reach the
// same broker across processes. That adapter is not part of this
// module's scope, so ghostctl here talks to its own local Bus instance
// for use in-process (tests, embedded deployments).
func newClient() (*cliclient.Client, func()) {
	b := busloc.New()
	return cliclient.New(b, callerID), func() { closeIfCloser(b) }
}

func closeIfCloser(b bus.Bus) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}
