// Package cmd provides the CLI commands for cie-server.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/logging"
	"github.com/iceinvein/code-intelligence-mcp-server/pkg/version"
)

var debugMode bool

// NewRootCmd creates the root command for the cie-server CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cie-server",
		Short: "Local code-intelligence engine for LLM coding agents",
		Long: `cie-server indexes a codebase (symbols, call/type/import graph,
docstrings, TODOs, tests) and serves it to LLM agents over MCP: hybrid
BM25+vector search, graph traversal, and token-budgeted context assembly.

It runs entirely locally. Run 'cie-server serve' in a project directory
to index it (if needed) and start serving over stdio.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("cie-server version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogger returns a debug-level stderr logger when --debug is set, an
// info-level one otherwise. It writes to stderr only, which keeps stdout
// free for the JSON-RPC framing that serve uses over stdio.
func setupLogger() *slog.Logger {
	level := "info"
	if debugMode {
		level = "debug"
	}
	logger, _, err := logging.Setup(logging.Config{Level: level, WriteToStderr: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to configure logging:", err)
		return slog.Default()
	}
	return logger
}

func projectRoot(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return os.Getwd()
}

// withEngine opens an engine rooted at root, runs fn, and always closes it.
func withEngine(ctx context.Context, root string, fn func(*engine) error) error {
	eng, err := openEngine(ctx, root)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			slog.Error("error closing engine", slog.String("error", cerr.Error()))
		}
	}()
	return fn(eng)
}
