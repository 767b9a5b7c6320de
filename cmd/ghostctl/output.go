package main

import (
	"encoding/json"
	"fmt"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// printResponse renders a Response as indented JSON and returns a
// non-nil error when the daemon reported failure, so cobra exits
// non-zero (spec §8: "silent drops are a defect" — callers must be able
// to script against the exit code too).
func printResponse(resp ghost.Response) error {
	blob, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Println(string(blob))
	if !resp.Success {
		return fmt.Errorf("command failed: %s", resp.Error)
	}
	return nil
}
