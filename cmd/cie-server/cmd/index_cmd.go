package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for search and graph queries",
		Long: `Scan a directory, parse every recognized source file, extract
symbols and edges, generate embeddings, and build the BM25, vector, and
graph indices used by search and the MCP tool surface.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path, err := projectRoot(args)
			if err != nil {
				return err
			}
			return runIndex(ctx, cmd, path)
		},
	}

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string) error {
	logger := setupLogger()
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	return withEngine(ctx, absPath, func(eng *engine) error {
		var lastStage string
		eng.indexer.OnProgress(func(stage string, done, total int) {
			if stage != lastStage {
				logger.Info("indexing stage", slog.String("stage", stage))
				lastStage = stage
			}
		})

		start := time.Now()
		stats, err := eng.indexer.Run(ctx)
		if err != nil {
			return fmt.Errorf("index run: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s in %s\n", absPath, time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(cmd.OutOrStdout(), "  files scanned:   %d\n", stats.FilesScanned)
		fmt.Fprintf(cmd.OutOrStdout(), "  files indexed:   %d\n", stats.FilesIndexed)
		fmt.Fprintf(cmd.OutOrStdout(), "  files skipped:   %d\n", stats.FilesSkipped)
		fmt.Fprintf(cmd.OutOrStdout(), "  symbols indexed: %d\n", stats.SymbolsIndexed)
		fmt.Fprintf(cmd.OutOrStdout(), "  edges resolved:  %d\n", stats.EdgesResolved)
		if len(stats.Errors) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  errors:          %d\n", len(stats.Errors))
			for _, e := range stats.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s: %s\n", e.Path, e.Err)
			}
		}
		return nil
	})
}
