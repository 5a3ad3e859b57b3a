package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/assemble"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
)

func (s *Server) registerDefinitionTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_definition",
		Description: "Resolve a symbol by id or name and return its definition, docstring, and assembled source context.",
	}, s.handleGetDefinition)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_references",
		Description: "Find symbols/files that import or reference a given symbol.",
	}, s.handleFindReferences)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "hydrate_symbols",
		Description: "Batch-fetch full Symbol records for a list of symbol ids, as returned by a graph or search tool.",
	}, s.handleHydrateSymbols)
}

func (s *Server) handleGetDefinition(ctx context.Context, _ *mcp.CallToolRequest, in GetDefinitionInput) (*mcp.CallToolResult, GetDefinitionOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("get_definition", callErr, start) }()

	symbolID := in.SymbolID
	if symbolID == "" {
		if in.Name == "" {
			callErr = NewInvalidParamsError("one of symbol_id or name is required")
			return nil, GetDefinitionOutput{}, callErr
		}
		matches, err := s.metadata.FindSymbolsByName(ctx, in.Name, 1)
		if err != nil {
			callErr = MapError(err)
			return nil, GetDefinitionOutput{}, callErr
		}
		if len(matches) == 0 {
			callErr = MapError(cierrors.NotFound("no symbol matching name " + in.Name))
			return nil, GetDefinitionOutput{}, callErr
		}
		symbolID = matches[0].ID
	}

	sym, err := s.metadata.GetSymbol(ctx, symbolID)
	if err != nil {
		callErr = MapError(err)
		return nil, GetDefinitionOutput{}, callErr
	}

	out := GetDefinitionOutput{Symbol: toSymbolOutput(sym)}
	if doc, err := s.metadata.GetDocstring(ctx, symbolID); err == nil && doc != nil {
		out.Docstring = &DocOutput{Summary: doc.Summary, Returns: doc.Returns}
	}

	assembled, err := s.assembler.Assemble(ctx, assemble.Request{RootSymbolIDs: []string{symbolID}})
	if err != nil {
		callErr = MapError(err)
		return nil, GetDefinitionOutput{}, callErr
	}
	out.Context = assembled.Text

	return nil, out, nil
}

func (s *Server) handleFindReferences(ctx context.Context, _ *mcp.CallToolRequest, in FindReferencesInput) (*mcp.CallToolResult, FindReferencesOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("find_references", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, FindReferencesOutput{}, callErr
	}
	maxDepth := in.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	hits := s.adjacency().DependencyGraph(in.SymbolID, graph.Upstream, maxDepth)
	return nil, FindReferencesOutput{References: toGraphHitOutputs(hits)}, nil
}

func (s *Server) handleHydrateSymbols(ctx context.Context, _ *mcp.CallToolRequest, in HydrateSymbolsInput) (*mcp.CallToolResult, HydrateSymbolsOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("hydrate_symbols", callErr, start) }()

	out := HydrateSymbolsOutput{Symbols: make([]SymbolOutput, 0, len(in.SymbolIDs))}
	for _, id := range in.SymbolIDs {
		sym, err := s.metadata.GetSymbol(ctx, id)
		if err != nil || sym == nil {
			continue
		}
		out.Symbols = append(out.Symbols, toSymbolOutput(sym))
	}
	return nil, out, nil
}

func toGraphHitOutputs(hits []graph.Hit) []GraphHitOutput {
	out := make([]GraphHitOutput, 0, len(hits))
	for _, h := range hits {
		out = append(out, GraphHitOutput{
			SymbolID:      h.SymbolID,
			Depth:         h.Depth,
			Kind:          string(h.Kind),
			AtFile:        h.AtFile,
			AtLine:        h.AtLine,
			EvidenceCount: h.EvidenceCount,
		})
	}
	return out
}
