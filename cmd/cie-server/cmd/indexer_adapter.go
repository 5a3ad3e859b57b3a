package cmd

import (
	"context"
	"fmt"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/index"
	cie_mcp "github.com/iceinvein/code-intelligence-mcp-server/internal/mcp"
)

// mcpIndexerAdapter adapts *index.Indexer to the small interface
// internal/mcp's refresh_index handler needs, translating *index.Stats
// into mcp.IndexStats so that package never has to import internal/index.
type mcpIndexerAdapter struct {
	ix *index.Indexer
}

func (a mcpIndexerAdapter) Run(ctx context.Context) (cie_mcp.IndexStats, error) {
	stats, err := a.ix.Run(ctx)
	if err != nil {
		return cie_mcp.IndexStats{}, err
	}
	return toMCPIndexStats(stats), nil
}

// toMCPIndexStats translates an *index.Stats into the mcp.IndexStats shape,
// flattening each FileError into a single display string.
func toMCPIndexStats(stats *index.Stats) cie_mcp.IndexStats {
	errs := make([]string, 0, len(stats.Errors))
	for _, e := range stats.Errors {
		errs = append(errs, fmt.Sprintf("%s: %s", e.Path, e.Err))
	}
	return cie_mcp.IndexStats{
		FilesScanned:   stats.FilesScanned,
		FilesIndexed:   stats.FilesIndexed,
		FilesSkipped:   stats.FilesSkipped,
		SymbolsIndexed: stats.SymbolsIndexed,
		EdgesResolved:  stats.EdgesResolved,
		Duration:       stats.Duration,
		Errors:         errs,
	}
}

var _ cie_mcp.Indexer = mcpIndexerAdapter{}
