package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

func (s *Server) registerAdminTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "report_selection",
		Description: "Record which search result an agent actually used, so future identical queries boost that symbol (spec.md learning-to-rank feedback loop).",
	}, s.handleReportSelection)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "refresh_index",
		Description: "Re-run the indexer over the repository, skipping files whose fingerprint is unchanged (the full flag does not change this), and rebuild the in-memory graph from the refreshed edges.",
	}, s.handleRefreshIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_stats",
		Description: "Report the current total indexed symbol and edge counts and the last checkpoint stage.",
	}, s.handleGetIndexStats)
}

func (s *Server) handleReportSelection(ctx context.Context, _ *mcp.CallToolRequest, in ReportSelectionInput) (*mcp.CallToolResult, ReportSelectionOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("report_selection", callErr, start) }()

	if in.Query == "" || in.SymbolID == "" {
		callErr = NewInvalidParamsError("query and symbol_id are required")
		return nil, ReportSelectionOutput{}, callErr
	}

	if err := s.retriever.RecordSelection(ctx, in.Query, in.SymbolID, in.Position); err != nil {
		callErr = MapError(err)
		return nil, ReportSelectionOutput{}, callErr
	}
	return nil, ReportSelectionOutput{Recorded: true}, nil
}

func (s *Server) handleRefreshIndex(ctx context.Context, _ *mcp.CallToolRequest, in RefreshIndexInput) (*mcp.CallToolResult, RefreshIndexOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("refresh_index", callErr, start) }()

	if s.indexer == nil {
		callErr = NewInvalidParamsError("no indexer is configured for this server")
		return nil, RefreshIndexOutput{}, callErr
	}

	stats, err := s.indexer.Run(ctx)
	if err != nil {
		callErr = MapError(err)
		return nil, RefreshIndexOutput{}, callErr
	}
	if err := s.RebuildGraph(ctx); err != nil {
		callErr = MapError(err)
		return nil, RefreshIndexOutput{}, callErr
	}

	return nil, RefreshIndexOutput{
		FilesScanned:   stats.FilesScanned,
		FilesIndexed:   stats.FilesIndexed,
		FilesSkipped:   stats.FilesSkipped,
		SymbolsIndexed: stats.SymbolsIndexed,
		EdgesResolved:  stats.EdgesResolved,
		DurationMS:     stats.Duration.Milliseconds(),
		Errors:         stats.Errors,
	}, nil
}

func (s *Server) handleGetIndexStats(ctx context.Context, _ *mcp.CallToolRequest, _ GetIndexStatsInput) (*mcp.CallToolResult, GetIndexStatsOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("get_index_stats", callErr, start) }()

	ids, err := s.metadata.ListAllSymbolIDs(ctx)
	if err != nil {
		callErr = MapError(err)
		return nil, GetIndexStatsOutput{}, callErr
	}
	edges, err := s.metadata.AllEdges(ctx)
	if err != nil {
		callErr = MapError(err)
		return nil, GetIndexStatsOutput{}, callErr
	}

	out := GetIndexStatsOutput{TotalSymbols: len(ids), TotalEdges: len(edges)}
	if stage, ok, err := s.metadata.GetState(ctx, store.StateKeyCheckpointStage); err == nil && ok {
		out.CheckpointStage = stage
	}
	return nil, out, nil
}
