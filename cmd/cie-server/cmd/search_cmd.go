package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/retrieval"
)

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions
	var path string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search the indexed codebase using hybrid BM25 + vector search,
fused and re-ranked the same way the search_code MCP tool is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			root, err := projectRoot(nil)
			if err != nil {
				return err
			}
			if path != "" {
				root = path
			}
			return runSearch(cmd.Context(), cmd, root, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&path, "path", "", "Project root to search (default: current directory)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root, query string, opts searchOptions) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	return withEngine(ctx, absRoot, func(eng *engine) error {
		result, err := eng.retriever.Search(ctx, retrieval.Request{Query: query, Limit: opts.limit})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if opts.format == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "intent: %s\n\n", result.Intent)
		for i, hit := range result.Hits {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s  (%s:%d-%d)  score=%.3f\n",
				i+1, hit.Symbol.Name, hit.Symbol.FilePath, hit.Symbol.StartLine, hit.Symbol.EndLine, hit.Score)
		}
		return nil
	})
}
