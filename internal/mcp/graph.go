package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
)

func (s *Server) registerGraphTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_call_hierarchy",
		Description: "Walk call edges from a symbol, upstream (callers) or downstream (callees), up to a bounded depth.",
	}, s.handleGetCallHierarchy)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_type_graph",
		Description: "Walk type_extends/type_implements/type_alias edges from a type symbol.",
	}, s.handleGetTypeGraph)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "explore_dependency_graph",
		Description: "Walk import/reference edges from a file or symbol, upstream (dependents) or downstream (dependencies).",
	}, s.handleExploreDependencyGraph)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "trace_data_flow",
		Description: "Walk read/write edges from a variable or field symbol, upstream (writers) or downstream (readers).",
	}, s.handleTraceDataFlow)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_affected_code",
		Description: "Find every symbol that transitively depends on a given symbol (its blast radius), via upstream call/reference/type edges.",
	}, s.handleFindAffectedCode)
}

func parseDirection(v string, def graph.Direction) graph.Direction {
	switch v {
	case string(graph.Upstream):
		return graph.Upstream
	case string(graph.Downstream):
		return graph.Downstream
	default:
		return def
	}
}

func (s *Server) handleGetCallHierarchy(ctx context.Context, _ *mcp.CallToolRequest, in GetCallHierarchyInput) (*mcp.CallToolResult, GetCallHierarchyOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("get_call_hierarchy", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, GetCallHierarchyOutput{}, callErr
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	dir := parseDirection(in.Direction, graph.Downstream)

	hits := s.adjacency().CallHierarchy(in.SymbolID, dir, maxDepth)
	return nil, GetCallHierarchyOutput{Hits: toGraphHitOutputs(hits)}, nil
}

func (s *Server) handleGetTypeGraph(ctx context.Context, _ *mcp.CallToolRequest, in GetTypeGraphInput) (*mcp.CallToolResult, GetTypeGraphOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("get_type_graph", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, GetTypeGraphOutput{}, callErr
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	hits := s.adjacency().TypeGraph(in.SymbolID, maxDepth)
	return nil, GetTypeGraphOutput{Hits: toGraphHitOutputs(hits)}, nil
}

func (s *Server) handleExploreDependencyGraph(ctx context.Context, _ *mcp.CallToolRequest, in ExploreDependencyGraphInput) (*mcp.CallToolResult, ExploreDependencyGraphOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("explore_dependency_graph", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, ExploreDependencyGraphOutput{}, callErr
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 2
	}
	dir := parseDirection(in.Direction, graph.Downstream)

	hits := s.adjacency().DependencyGraph(in.SymbolID, dir, maxDepth)
	return nil, ExploreDependencyGraphOutput{Hits: toGraphHitOutputs(hits)}, nil
}

func (s *Server) handleTraceDataFlow(ctx context.Context, _ *mcp.CallToolRequest, in TraceDataFlowInput) (*mcp.CallToolResult, TraceDataFlowOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("trace_data_flow", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, TraceDataFlowOutput{}, callErr
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	dir := parseDirection(in.Direction, graph.Downstream)

	hits := s.adjacency().DataFlow(in.SymbolID, dir, maxDepth)
	return nil, TraceDataFlowOutput{Hits: toGraphHitOutputs(hits)}, nil
}

// handleFindAffectedCode answers "what breaks if I change this symbol" by
// unioning the upstream call, reference, and type hierarchies — the three
// edge families that can make a caller's behavior depend on this symbol.
func (s *Server) handleFindAffectedCode(ctx context.Context, _ *mcp.CallToolRequest, in FindAffectedCodeInput) (*mcp.CallToolResult, FindAffectedCodeOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("find_affected_code", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, FindAffectedCodeOutput{}, callErr
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}

	adj := s.adjacency()
	seen := make(map[string]bool)
	var affected []graph.Hit
	for _, hits := range [][]graph.Hit{
		adj.CallHierarchy(in.SymbolID, graph.Upstream, maxDepth),
		adj.DependencyGraph(in.SymbolID, graph.Upstream, maxDepth),
		adj.TypeGraph(in.SymbolID, maxDepth),
	} {
		for _, h := range hits {
			key := h.SymbolID
			if seen[key] {
				continue
			}
			seen[key] = true
			affected = append(affected, h)
		}
	}

	return nil, FindAffectedCodeOutput{Affected: toGraphHitOutputs(affected)}, nil
}
