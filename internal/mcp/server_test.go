package mcp

import (
	"context"
	"testing"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/assemble"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/retrieval"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

func newTestServer(t *testing.T, meta *fakeMetadataStore, kw *fakeKeywordIndex, vec *fakeVectorIndex, files map[string][]string) *Server {
	t.Helper()
	embedder := &fakeEmbedder{dim: 4}
	retriever := retrieval.New(retrieval.Config{}, meta, kw, vec, embedder, modeladapter.NoOpReranker{})
	assembler, err := assemble.New(assemble.Config{}, meta, &fakeSourceLoader{files: files})
	if err != nil {
		t.Fatalf("assemble.New: %v", err)
	}
	srv, err := NewServer(context.Background(), Deps{
		Metadata:  meta,
		Vector:    vec,
		Embedder:  embedder,
		Retriever: retriever,
		Assembler: assembler,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestHandleSearchCode_AssemblesContextFromRankedHits(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["s1"] = &store.Symbol{ID: "s1", Name: "Parse", Kind: store.KindFunction, FilePath: "a.go", StartLine: 1, EndLine: 2, Exported: true}
	kw := &fakeKeywordIndex{results: []*store.KeywordResult{{SymbolID: "s1", Score: 1.0}}}
	vec := &fakeVectorIndex{dim: 4}
	files := map[string][]string{"a.go": {"func Parse() {}", "\treturn"}}

	srv := newTestServer(t, meta, kw, vec, files)

	_, out, err := srv.handleSearchCode(context.Background(), nil, SearchCodeInput{Query: "parse"})
	if err != nil {
		t.Fatalf("handleSearchCode: %v", err)
	}
	if len(out.Hits) != 1 || out.Hits[0].Symbol.ID != "s1" {
		t.Fatalf("unexpected hits: %+v", out.Hits)
	}
	if out.Context == "" {
		t.Fatalf("expected non-empty assembled context")
	}
}

func TestHandleSearchCode_RejectsEmptyQuery(t *testing.T) {
	meta := newFakeMetadataStore()
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, nil)

	_, _, err := srv.handleSearchCode(context.Background(), nil, SearchCodeInput{})
	if err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestHandleGetDefinition_ResolvesByNameWhenIDMissing(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["s1"] = &store.Symbol{ID: "s1", Name: "Parse", Kind: store.KindFunction, FilePath: "a.go", StartLine: 1, EndLine: 1}
	meta.docstrings["s1"] = &store.Docstring{SymbolID: "s1", Summary: "parses things"}
	files := map[string][]string{"a.go": {"func Parse() {}"}}
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, files)

	_, out, err := srv.handleGetDefinition(context.Background(), nil, GetDefinitionInput{Name: "Parse"})
	if err != nil {
		t.Fatalf("handleGetDefinition: %v", err)
	}
	if out.Symbol.ID != "s1" {
		t.Fatalf("expected s1, got %q", out.Symbol.ID)
	}
	if out.Docstring == nil || out.Docstring.Summary != "parses things" {
		t.Fatalf("expected docstring to be populated")
	}
}

func TestHandleGetDefinition_NotFoundWhenNameUnknown(t *testing.T) {
	meta := newFakeMetadataStore()
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, nil)

	_, _, err := srv.handleGetDefinition(context.Background(), nil, GetDefinitionInput{Name: "Missing"})
	if err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestHandleGetCallHierarchy_WalksDownstreamCallEdges(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["a"] = &store.Symbol{ID: "a", Name: "a"}
	meta.symbols["b"] = &store.Symbol{ID: "b", Name: "b"}
	meta.edges = []*store.Edge{{FromSymbolID: "a", ToSymbolID: "b", Kind: store.EdgeCall, AtFile: "a.go", AtLine: 3}}
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, nil)

	_, out, err := srv.handleGetCallHierarchy(context.Background(), nil, GetCallHierarchyInput{SymbolID: "a"})
	if err != nil {
		t.Fatalf("handleGetCallHierarchy: %v", err)
	}
	if len(out.Hits) != 1 || out.Hits[0].SymbolID != "b" {
		t.Fatalf("unexpected hits: %+v", out.Hits)
	}
}

func TestHandleRefreshIndex_RebuildsGraphFromNewEdges(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["a"] = &store.Symbol{ID: "a"}
	meta.symbols["b"] = &store.Symbol{ID: "b"}
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, nil)
	srv.indexer = &fakeIndexer{stats: IndexStats{FilesScanned: 3, FilesIndexed: 3, SymbolsIndexed: 2}}

	// Simulate the indexer discovering a new call edge during this refresh.
	meta.edges = []*store.Edge{{FromSymbolID: "a", ToSymbolID: "b", Kind: store.EdgeCall}}

	_, out, err := srv.handleRefreshIndex(context.Background(), nil, RefreshIndexInput{})
	if err != nil {
		t.Fatalf("handleRefreshIndex: %v", err)
	}
	if out.SymbolsIndexed != 2 {
		t.Fatalf("expected 2 symbols indexed, got %d", out.SymbolsIndexed)
	}

	hits := srv.adjacency().CallHierarchy("a", graph.Downstream, 1)
	if len(hits) != 1 || hits[0].SymbolID != "b" {
		t.Fatalf("expected graph to be rebuilt with the new edge, got %+v", hits)
	}
}

func TestHandleReportSelection_RecordsThroughRetriever(t *testing.T) {
	meta := newFakeMetadataStore()
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, nil)

	_, out, err := srv.handleReportSelection(context.Background(), nil, ReportSelectionInput{Query: "parse", SymbolID: "s1", Position: 0})
	if err != nil {
		t.Fatalf("handleReportSelection: %v", err)
	}
	if !out.Recorded {
		t.Fatalf("expected Recorded=true")
	}
	if len(meta.selections) != 1 || meta.selections[0].symbolID != "s1" {
		t.Fatalf("expected selection to be persisted, got %+v", meta.selections)
	}
}

func TestHandleSearchTODOs_FiltersByKeyword(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.todos = []*store.TODOEntry{{FilePath: "a.go", Line: 4, Keyword: "TODO", Text: "fix this"}}
	srv := newTestServer(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4}, nil)

	_, out, err := srv.handleSearchTODOs(context.Background(), nil, SearchTODOsInput{Keyword: "TODO"})
	if err != nil {
		t.Fatalf("handleSearchTODOs: %v", err)
	}
	if len(out.TODOs) != 1 {
		t.Fatalf("expected 1 todo, got %d", len(out.TODOs))
	}
}
