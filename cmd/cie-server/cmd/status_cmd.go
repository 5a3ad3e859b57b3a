package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/daemon"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// statusInfo is the CLI-facing status shape, covering both the running
// daemon's view (if one is reachable over the control socket) and a
// direct read of the on-disk stores otherwise.
type statusInfo struct {
	Root            string `json:"root"`
	DaemonRunning   bool   `json:"daemon_running"`
	TotalSymbols    int    `json:"total_symbols"`
	TotalEdges      int    `json:"total_edges"`
	CheckpointStage string `json:"checkpoint_stage,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show index health and daemon status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectRoot(args)
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, root string, jsonOutput bool) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	info := statusInfo{Root: absRoot}

	client := daemon.NewClient(daemon.DefaultConfig())
	if client.IsRunning() {
		info.DaemonRunning = true
		if status, err := client.Status(ctx); err == nil {
			info.TotalSymbols = status.TotalSymbols
			info.TotalEdges = status.TotalEdges
			info.CheckpointStage = status.CheckpointStage
		}
	} else {
		err := withEngine(ctx, absRoot, func(eng *engine) error {
			ids, err := eng.metadata.ListAllSymbolIDs(ctx)
			if err != nil {
				return err
			}
			edges, err := eng.metadata.AllEdges(ctx)
			if err != nil {
				return err
			}
			stage, _, err := eng.metadata.GetState(ctx, store.StateKeyCheckpointStage)
			if err != nil {
				return err
			}
			info.TotalSymbols = len(ids)
			info.TotalEdges = len(edges)
			info.CheckpointStage = stage
			return nil
		})
		if err != nil {
			return fmt.Errorf("read index: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "root:             %s\n", info.Root)
	fmt.Fprintf(cmd.OutOrStdout(), "daemon running:   %t\n", info.DaemonRunning)
	fmt.Fprintf(cmd.OutOrStdout(), "total symbols:    %d\n", info.TotalSymbols)
	fmt.Fprintf(cmd.OutOrStdout(), "total edges:      %d\n", info.TotalEdges)
	if info.CheckpointStage != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "checkpoint stage: %s\n", info.CheckpointStage)
	}
	return nil
}
