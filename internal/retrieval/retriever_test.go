package retrieval

import (
	"context"
	"testing"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

func newTestRetriever(t *testing.T, meta *fakeMetadataStore, kw *fakeKeywordIndex, vec *fakeVectorIndex) *Retriever {
	t.Helper()
	return New(Config{}, meta, kw, vec, &fakeEmbedder{dim: 4, available: true}, modeladapter.NoOpReranker{})
}

func TestSearch_ReturnsHydratedHitsRankedDescending(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["s1"] = &store.Symbol{ID: "s1", Name: "Parse", Kind: store.KindFunction, FilePath: "internal/retrieval/parse.go", Exported: true}
	meta.symbols["s2"] = &store.Symbol{ID: "s2", Name: "parseHelper", Kind: store.KindFunction, FilePath: "internal/retrieval/parse_test.go"}

	kw := &fakeKeywordIndex{results: []*store.KeywordResult{
		{SymbolID: "s1", Score: 1.0},
		{SymbolID: "s2", Score: 0.8},
	}}
	vec := &fakeVectorIndex{dim: 4, results: []*store.VectorResult{{ID: "s1"}}}

	r := newTestRetriever(t, meta, kw, vec)
	result, err := r.Search(context.Background(), Request{Query: "find the parse function", Limit: 5})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	for i := 1; i < len(result.Hits); i++ {
		if result.Hits[i-1].Score < result.Hits[i].Score {
			t.Fatalf("hits not sorted descending at index %d", i)
		}
	}
	// s1 is exported, in both sources, and not a test file; s2 is a test
	// file present only in keyword results, so s1 must lead.
	if result.Hits[0].Symbol.ID != "s1" {
		t.Fatalf("expected s1 to lead, got %s", result.Hits[0].Symbol.ID)
	}
}

func TestSearch_TestIntentDoesNotPenalizeTestFiles(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["s1"] = &store.Symbol{ID: "s1", Name: "TestParse", Kind: store.KindFunction, FilePath: "internal/retrieval/parse_test.go"}
	kw := &fakeKeywordIndex{results: []*store.KeywordResult{{SymbolID: "s1", Score: 1.0}}}
	vec := &fakeVectorIndex{dim: 4}

	r := newTestRetriever(t, meta, kw, vec)
	result, err := r.Search(context.Background(), Request{Query: "find the test for parse", Limit: 5})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(result.Hits))
	}
	if result.Hits[0].Signals.TestPenalty != 1.0 {
		t.Fatalf("expected no test penalty under IntentTest, got %v", result.Hits[0].Signals.TestPenalty)
	}
}

func TestSearch_CachesRepeatedQueries(t *testing.T) {
	meta := newFakeMetadataStore()
	meta.symbols["s1"] = &store.Symbol{ID: "s1", Name: "Parse", Kind: store.KindFunction, FilePath: "a.go"}
	kw := &fakeKeywordIndex{results: []*store.KeywordResult{{SymbolID: "s1", Score: 1.0}}}
	vec := &fakeVectorIndex{dim: 4}

	r := newTestRetriever(t, meta, kw, vec)
	first, err := r.Search(context.Background(), Request{Query: "find parse", Limit: 5})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	second, err := r.Search(context.Background(), Request{Query: "find parse", Limit: 5})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached result to be returned verbatim")
	}
}

func TestSearch_DropsStaleFusedIDs(t *testing.T) {
	meta := newFakeMetadataStore() // no symbols registered
	kw := &fakeKeywordIndex{results: []*store.KeywordResult{{SymbolID: "gone", Score: 1.0}}}
	vec := &fakeVectorIndex{dim: 4}

	r := newTestRetriever(t, meta, kw, vec)
	result, err := r.Search(context.Background(), Request{Query: "find anything", Limit: 5})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Hits) != 0 {
		t.Fatalf("expected stale id to be dropped, got %d hits", len(result.Hits))
	}
}

func TestRecordSelection_PersistsNormalizedQuery(t *testing.T) {
	meta := newFakeMetadataStore()
	r := newTestRetriever(t, meta, &fakeKeywordIndex{}, &fakeVectorIndex{dim: 4})
	if err := r.RecordSelection(context.Background(), "Find The Parser", "s1", 0); err != nil {
		t.Fatalf("RecordSelection returned error: %v", err)
	}
	if len(meta.selections) != 1 {
		t.Fatalf("expected 1 recorded selection, got %d", len(meta.selections))
	}
	if meta.selections[0].QueryNormalized != "find the parser" {
		t.Fatalf("got normalized query %q", meta.selections[0].QueryNormalized)
	}
}
