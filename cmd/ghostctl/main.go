// Command ghostctl is the Ghost daemon's CLI front-end: it builds a
// Command, publishes it on ghost:commands, and waits for the matching
// Response (spec §6). Out of core scope per spec.md §1, carried as the
// ambient entry point a real deployment needs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
