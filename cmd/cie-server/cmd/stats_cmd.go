package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [path]",
		Short: "Show index size and the most central symbols",
		Long: `Display on-disk storage sizes for the metadata, keyword, and
vector indices, and the top symbols by PageRank (the same centrality
score get_module_summary ranks by).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := projectRoot(args)
			if err != nil {
				return err
			}
			return runStats(cmd.Context(), cmd, path)
		},
	}
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	return withEngine(ctx, absRoot, func(eng *engine) error {
		fmt.Fprintln(cmd.OutOrStdout(), "storage:")
		for _, p := range []string{eng.cfg.Paths.DBPath, eng.cfg.Paths.KeywordIndexPath, eng.cfg.Paths.VectorDBPath} {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", p, humanSize(p))
		}

		ids, err := eng.metadata.ListAllSymbolIDs(ctx)
		if err != nil {
			return err
		}
		metrics, err := eng.metadata.GetMetrics(ctx, ids)
		if err != nil {
			return err
		}

		type ranked struct {
			id       string
			pageRank float64
		}
		top := make([]ranked, 0, len(metrics))
		for id, m := range metrics {
			if m == nil {
				continue
			}
			top = append(top, ranked{id: id, pageRank: m.PageRank})
		}
		sort.Slice(top, func(i, j int) bool { return top[i].pageRank > top[j].pageRank })
		if len(top) > 10 {
			top = top[:10]
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\ntop symbols by pagerank (%d total symbols):\n", len(ids))
		for _, r := range top {
			sym, err := eng.metadata.GetSymbol(ctx, r.id)
			if err != nil || sym == nil {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %.4f  %s  (%s)\n", r.pageRank, sym.Name, sym.FilePath)
		}
		return nil
	})
}

func humanSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	const unit = 1024
	size := info.Size()
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
