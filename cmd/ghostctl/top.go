package main

import (
	"context"
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
	"github.com/ghostrunctl/ghost/internal/transport/tui"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Live table of every known connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeFn := newClient()
		defer closeFn()

		fetch := func(ctx context.Context) ([]ghost.ConnectionRecord, error) {
			resp, err := client.Call(ctx, "connections", "", nil)
			if err != nil {
				return nil, err
			}
			if !resp.Success {
				return nil, fmt.Errorf("connections command failed: %s", resp.Error)
			}
			return decodeConnections(resp.Data)
		}

		_, err := tea.NewProgram(tui.New(fetch)).Run()
		return err
	},
}

// decodeConnections re-encodes resp.Data (decoded generically by
// encoding/json into map[string]any) and decodes it into the concrete
// ConnectionRecord slice the TUI table renders.
func decodeConnections(data any) ([]ghost.ConnectionRecord, error) {
	blob, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var records []ghost.ConnectionRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, err
	}
	return records, nil
}
