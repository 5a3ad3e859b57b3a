package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/assemble"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/retrieval"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

func (s *Server) registerSearchTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Hybrid keyword+vector+graph search over the indexed repository, returning ranked symbols plus an assembled Markdown context ready to paste into a prompt.",
	}, s.handleSearchCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_similar_code",
		Description: "Find symbols whose embedded code is semantically similar to a given symbol, via the vector index.",
	}, s.handleFindSimilarCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "explain_search",
		Description: "Run search_code's ranking pipeline and return the full per-signal score breakdown for each hit, for debugging relevance.",
	}, s.handleExplainSearch)
}

// handleSearchCode wires Retriever.Search's ranked hits into the Context
// Assembler, satisfying spec.md §4.7 step 7 (hand off to C8) in one tool
// call — this is the engine's primary entry point.
func (s *Server) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, in SearchCodeInput) (*mcp.CallToolResult, SearchCodeOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("search_code", callErr, start) }()

	if in.Query == "" {
		callErr = NewInvalidParamsError("query must not be empty")
		return nil, SearchCodeOutput{}, callErr
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	result, err := s.retriever.Search(ctx, retrieval.Request{Query: in.Query, Limit: limit})
	if err != nil {
		callErr = MapError(err)
		return nil, SearchCodeOutput{}, callErr
	}

	hits := make([]SearchHitOutput, 0, len(result.Hits))
	rootIDs := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, SearchHitOutput{Symbol: toSymbolOutput(h.Symbol), Score: h.Score})
		rootIDs = append(rootIDs, h.Symbol.ID)
	}

	assembled, err := s.assembler.Assemble(ctx, assemble.Request{
		RootSymbolIDs: rootIDs,
		Query:         in.Query,
		MaxTokens:     in.MaxTokens,
	})
	if err != nil {
		callErr = MapError(err)
		return nil, SearchCodeOutput{}, callErr
	}

	out := SearchCodeOutput{
		Hits:    hits,
		Context: assembled.Text,
		Intent:  string(result.Intent),
	}
	return nil, out, nil
}

func (s *Server) handleFindSimilarCode(ctx context.Context, _ *mcp.CallToolRequest, in FindSimilarCodeInput) (*mcp.CallToolResult, FindSimilarCodeOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("find_similar_code", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, FindSimilarCodeOutput{}, callErr
	}
	if s.vector == nil || s.embedder == nil {
		callErr = NewInvalidParamsError("vector search is not configured")
		return nil, FindSimilarCodeOutput{}, callErr
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	sym, err := s.metadata.GetSymbol(ctx, in.SymbolID)
	if err != nil {
		callErr = MapError(err)
		return nil, FindSimilarCodeOutput{}, callErr
	}

	text := sym.Signature
	if text == "" {
		text = sym.Name
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		callErr = MapError(err)
		return nil, FindSimilarCodeOutput{}, callErr
	}

	filterSelf := func(r *store.VectorRecord) bool { return r.ID != sym.ID }
	results, err := s.vector.KNN(ctx, vec, limit, filterSelf)
	if err != nil {
		callErr = MapError(err)
		return nil, FindSimilarCodeOutput{}, callErr
	}

	out := FindSimilarCodeOutput{Hits: make([]SearchHitOutput, 0, len(results))}
	for _, r := range results {
		hitSym, err := s.metadata.GetSymbol(ctx, r.ID)
		if err != nil || hitSym == nil {
			continue
		}
		out.Hits = append(out.Hits, SearchHitOutput{
			Symbol: toSymbolOutput(hitSym),
			Score:  1 / (1 + float64(r.Distance)),
		})
	}
	return nil, out, nil
}

func (s *Server) handleExplainSearch(ctx context.Context, _ *mcp.CallToolRequest, in ExplainSearchInput) (*mcp.CallToolResult, ExplainSearchOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("explain_search", callErr, start) }()

	if in.Query == "" {
		callErr = NewInvalidParamsError("query must not be empty")
		return nil, ExplainSearchOutput{}, callErr
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 5
	}

	result, err := s.retriever.Search(ctx, retrieval.Request{Query: in.Query, Limit: limit})
	if err != nil {
		callErr = MapError(err)
		return nil, ExplainSearchOutput{}, callErr
	}

	out := ExplainSearchOutput{Intent: string(result.Intent), Hits: make([]ExplainedHitOutput, 0, len(result.Hits))}
	for _, h := range result.Hits {
		out.Hits = append(out.Hits, ExplainedHitOutput{
			Symbol: toSymbolOutput(h.Symbol),
			Score:  h.Score,
			Signals: map[string]float64{
				"base_score":       h.Signals.BaseScore,
				"test_penalty":     h.Signals.TestPenalty,
				"glue_file_penalty": h.Signals.GlueFilePenalty,
				"directory_adjust": h.Signals.DirectoryAdjust,
				"export_boost":     h.Signals.ExportBoost,
				"intent_mult":      h.Signals.IntentMult,
				"popularity_boost": h.Signals.PopularityBoost,
				"doc_boost":        h.Signals.DocBoost,
				"selection_boost":  h.Signals.SelectionBoost,
				"affinity_boost":   h.Signals.AffinityBoost,
				"package_boost":    h.Signals.PackageBoost,
				"reranker_score":   h.Signals.RerankerScore,
			},
			Sources: h.Sources,
		})
	}
	return nil, out, nil
}
