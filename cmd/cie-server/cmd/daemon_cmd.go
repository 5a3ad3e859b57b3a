package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/daemon"
	cie_mcp "github.com/iceinvein/code-intelligence-mcp-server/internal/mcp"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/telemetry"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/watcher"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background indexing + MCP daemon",
		Long: `The daemon keeps the index, embedder, and MCP tool surface
running continuously, watching the project for file changes so agents
never pay indexing startup cost per invocation.`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	var foreground bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "start [path]",
		Short: "Start the daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectRoot(args)
			if err != nil {
				return err
			}
			return runDaemonStart(cmd.Context(), cmd, path, foreground, watch)
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground instead of detaching")
	cmd.Flags().BoolVar(&watch, "watch", true, "Watch the project for file changes and re-index incrementally")
	return cmd
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStop(cmd)
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStatus(cmd.Context(), cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runDaemonStart(ctx context.Context, cmd *cobra.Command, path string, foreground, watch bool) error {
	cfg := daemon.DefaultConfig()
	client := daemon.NewClient(cfg)
	if client.IsRunning() {
		fmt.Fprintln(cmd.OutOrStdout(), "daemon is already running")
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if !foreground {
		fmt.Fprintln(cmd.OutOrStdout(), "starting daemon in background...")
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("get executable path: %w", err)
		}
		bgCmd := exec.Command(execPath, "daemon", "start", "--foreground", absPath)
		bgCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := bgCmd.Start(); err != nil {
			return fmt.Errorf("start background daemon: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "daemon started (pid %d)\n", bgCmd.Process.Pid)
		return nil
	}

	logger := setupLogger()
	fmt.Fprintln(cmd.OutOrStdout(), "starting daemon in foreground, press Ctrl+C to stop")

	return withEngine(ctx, absPath, func(eng *engine) error {
		assembler, err := newAssembler(eng)
		if err != nil {
			return fmt.Errorf("build assembler: %w", err)
		}

		metrics := telemetry.New()
		var metricsServer *telemetry.Server
		if eng.cfg.Observ.MetricsEnabled {
			metricsServer = telemetry.NewServer(eng.cfg.Observ.MetricsPort, metrics, logger)
		}

		mcpServer, err := cie_mcp.NewServer(ctx, cie_mcp.Deps{
			Metadata:  eng.metadata,
			Vector:    eng.vector,
			Embedder:  eng.embedder,
			Retriever: eng.retriever,
			Assembler: assembler,
			Indexer:   mcpIndexerAdapter{ix: eng.indexer},
			Metrics:   metrics,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("build mcp server: %w", err)
		}

		var hw *watcher.HybridWatcher
		if watch {
			hw, err = watcher.NewHybridWatcher(watcher.DefaultOptions())
			if err != nil {
				return fmt.Errorf("build watcher: %w", err)
			}
		}

		d, err := daemon.NewDaemon(daemon.Deps{
			Config:        cfg,
			Indexer:       eng.indexer,
			Watcher:       hw,
			RootDir:       absPath,
			MCP:           mcpServer,
			Metrics:       metrics,
			MetricsServer: metricsServer,
			Metadata:      eng.metadata,
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("build daemon: %w", err)
		}

		return d.Start(ctx)
	})
}

func runDaemonStop(cmd *cobra.Command) error {
	cfg := daemon.DefaultConfig()
	pf := daemon.NewPIDFile(cfg.PIDPath)

	if !pf.IsRunning() {
		fmt.Fprintln(cmd.OutOrStdout(), "daemon is not running")
		return nil
	}

	if err := pf.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}

	for i := 0; i < 100; i++ {
		if !pf.IsRunning() {
			fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop within 10s")
}

func runDaemonStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg := daemon.DefaultConfig()
	client := daemon.NewClient(cfg)

	if !client.IsRunning() {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(daemon.StatusResult{Running: false})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "daemon is not running")
		return nil
	}

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "running:          %t\n", status.Running)
	fmt.Fprintf(cmd.OutOrStdout(), "pid:              %d\n", status.PID)
	fmt.Fprintf(cmd.OutOrStdout(), "uptime:           %s\n", status.Uptime)
	fmt.Fprintf(cmd.OutOrStdout(), "watching:         %t\n", status.Watching)
	fmt.Fprintf(cmd.OutOrStdout(), "total symbols:    %d\n", status.TotalSymbols)
	fmt.Fprintf(cmd.OutOrStdout(), "total edges:      %d\n", status.TotalEdges)
	if status.CheckpointStage != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "checkpoint stage: %s\n", status.CheckpointStage)
	}
	return nil
}
