package mcp

import (
	"context"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

func (s *Server) registerFileTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "summarize_file",
		Description: "List the package and every indexed symbol defined in a file.",
	}, s.handleSummarizeFile)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_module_summary",
		Description: "Summarize a package: its manifest metadata and its highest-PageRank symbols.",
	}, s.handleGetModuleSummary)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_todos",
		Description: "Search indexed TODO/FIXME comments by keyword.",
	}, s.handleSearchTODOs)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_tests_for_symbol",
		Description: "Find test files linked to a symbol through the metadata store's saved test links. Indexing does not derive or save test links, so only links saved directly to the store are returned.",
	}, s.handleFindTestsForSymbol)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_decorators",
		Description: "Search indexed decorators/annotations by name.",
	}, s.handleSearchDecorators)
}

func (s *Server) handleSummarizeFile(ctx context.Context, _ *mcp.CallToolRequest, in SummarizeFileInput) (*mcp.CallToolResult, SummarizeFileOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("summarize_file", callErr, start) }()

	if in.FilePath == "" {
		callErr = NewInvalidParamsError("file_path must not be empty")
		return nil, SummarizeFileOutput{}, callErr
	}

	symbols, err := s.metadata.GetSymbolsByFile(ctx, in.FilePath)
	if err != nil {
		callErr = MapError(err)
		return nil, SummarizeFileOutput{}, callErr
	}

	out := SummarizeFileOutput{FilePath: in.FilePath, Symbols: toSymbolOutputs(symbols)}
	if pkg, err := s.metadata.GetPackageForFile(ctx, in.FilePath); err == nil && pkg != nil {
		out.Package = &PackageOutput{ID: pkg.ID, Name: pkg.Name, Version: pkg.Version, Ecosystem: pkg.Ecosystem}
	}
	return nil, out, nil
}

// handleGetModuleSummary ranks a package's symbols by PageRank. There is no
// direct symbols-by-package index, so it walks every indexed symbol id and
// keeps the ones BatchGetSymbolPackages attributes to this package; fine for
// the package counts a single repository indexes.
func (s *Server) handleGetModuleSummary(ctx context.Context, _ *mcp.CallToolRequest, in GetModuleSummaryInput) (*mcp.CallToolResult, GetModuleSummaryOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("get_module_summary", callErr, start) }()

	if in.PackageID == "" {
		callErr = NewInvalidParamsError("package_id must not be empty")
		return nil, GetModuleSummaryOutput{}, callErr
	}

	allIDs, err := s.metadata.ListAllSymbolIDs(ctx)
	if err != nil {
		callErr = MapError(err)
		return nil, GetModuleSummaryOutput{}, callErr
	}
	pkgs, err := s.metadata.BatchGetSymbolPackages(ctx, allIDs)
	if err != nil {
		callErr = MapError(err)
		return nil, GetModuleSummaryOutput{}, callErr
	}

	var memberIDs []string
	var pkgOut PackageOutput
	for id, pkg := range pkgs {
		if pkg == nil || pkg.ID != in.PackageID {
			continue
		}
		memberIDs = append(memberIDs, id)
		pkgOut = PackageOutput{ID: pkg.ID, Name: pkg.Name, Version: pkg.Version, Ecosystem: pkg.Ecosystem}
	}
	if len(memberIDs) == 0 {
		callErr = MapError(cierrors.NotFound("no symbols found for package " + in.PackageID))
		return nil, GetModuleSummaryOutput{}, callErr
	}

	metrics, err := s.metadata.GetMetrics(ctx, memberIDs)
	if err != nil {
		callErr = MapError(err)
		return nil, GetModuleSummaryOutput{}, callErr
	}
	pageRank := func(id string) float64 {
		if m := metrics[id]; m != nil {
			return m.PageRank
		}
		return 0
	}
	sort.Slice(memberIDs, func(i, j int) bool {
		return pageRank(memberIDs[i]) > pageRank(memberIDs[j])
	})

	top := memberIDs
	if len(top) > 10 {
		top = top[:10]
	}
	symbols := make([]SymbolOutput, 0, len(top))
	for _, id := range top {
		if sym, err := s.metadata.GetSymbol(ctx, id); err == nil && sym != nil {
			symbols = append(symbols, toSymbolOutput(sym))
		}
	}

	return nil, GetModuleSummaryOutput{Package: pkgOut, TopSymbolsByPageRank: symbols}, nil
}

func (s *Server) handleSearchTODOs(ctx context.Context, _ *mcp.CallToolRequest, in SearchTODOsInput) (*mcp.CallToolResult, SearchTODOsOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("search_todos", callErr, start) }()

	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	todos, err := s.metadata.SearchTODOs(ctx, in.Keyword, limit)
	if err != nil {
		callErr = MapError(err)
		return nil, SearchTODOsOutput{}, callErr
	}

	out := SearchTODOsOutput{TODOs: make([]TODOOutput, 0, len(todos))}
	for _, t := range todos {
		out.TODOs = append(out.TODOs, TODOOutput{
			FilePath: t.FilePath, Line: t.Line, Keyword: t.Keyword, Text: t.Text, SymbolID: t.SymbolID,
		})
	}
	return nil, out, nil
}

func (s *Server) handleFindTestsForSymbol(ctx context.Context, _ *mcp.CallToolRequest, in FindTestsForSymbolInput) (*mcp.CallToolResult, FindTestsForSymbolOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("find_tests_for_symbol", callErr, start) }()

	if in.SymbolID == "" {
		callErr = NewInvalidParamsError("symbol_id must not be empty")
		return nil, FindTestsForSymbolOutput{}, callErr
	}

	links, err := s.metadata.FindTestsForSymbol(ctx, in.SymbolID)
	if err != nil {
		callErr = MapError(err)
		return nil, FindTestsForSymbolOutput{}, callErr
	}

	out := FindTestsForSymbolOutput{Tests: make([]TestLinkOutput, 0, len(links))}
	for _, l := range links {
		out.Tests = append(out.Tests, TestLinkOutput{
			TestFilePath: l.TestFilePath, SubjectFilePath: l.SubjectFilePath, SubjectSymbolID: l.SubjectSymbolID,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSearchDecorators(ctx context.Context, _ *mcp.CallToolRequest, in SearchDecoratorsInput) (*mcp.CallToolResult, SearchDecoratorsOutput, error) {
	start := time.Now()
	var callErr error
	defer func() { s.timeTool("search_decorators", callErr, start) }()

	if in.Name == "" {
		callErr = NewInvalidParamsError("name must not be empty")
		return nil, SearchDecoratorsOutput{}, callErr
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}

	decorators, err := s.metadata.SearchDecorators(ctx, in.Name, limit)
	if err != nil {
		callErr = MapError(err)
		return nil, SearchDecoratorsOutput{}, callErr
	}

	out := SearchDecoratorsOutput{Decorators: make([]DecoratorOutput, 0, len(decorators))}
	for _, d := range decorators {
		out.Decorators = append(out.Decorators, DecoratorOutput{SymbolID: d.SymbolID, Name: d.Name, Known: d.Known})
	}
	return nil, out, nil
}
