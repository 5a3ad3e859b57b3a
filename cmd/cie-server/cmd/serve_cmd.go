package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	cie_mcp "github.com/iceinvein/code-intelligence-mcp-server/internal/mcp"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var transport string
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Index (if needed) and serve the MCP tool surface",
		Long: `Index the project directory (unless --skip-index is given; files
whose fingerprint is unchanged are skipped), then serve the MCP tool surface. MCP requires stdout to carry only JSON-RPC frames,
so all status and error output here goes to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path, err := projectRoot(args)
			if err != nil {
				return err
			}
			return runServe(ctx, path, transport, skipIndex)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Skip the initial index run (use the existing on-disk index)")

	return cmd
}

func runServe(ctx context.Context, path, transport string, skipIndex bool) error {
	logger := setupLogger()
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	eng, err := openEngine(ctx, absPath)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer eng.Close()

	if !skipIndex {
		logger.Info("running initial index", "root", absPath)
		if _, err := eng.indexer.Run(ctx); err != nil {
			return fmt.Errorf("initial index: %w", err)
		}
	}

	metrics := telemetry.New()
	var metricsServer *telemetry.Server
	if eng.cfg.Observ.MetricsEnabled {
		metricsServer = telemetry.NewServer(eng.cfg.Observ.MetricsPort, metrics, logger)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer metricsServer.Shutdown(context.Background())
	}

	assembler, err := newAssembler(eng)
	if err != nil {
		return fmt.Errorf("build assembler: %w", err)
	}

	server, err := cie_mcp.NewServer(ctx, cie_mcp.Deps{
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
	defer server.Close()

	return server.Serve(ctx, transport)
}
