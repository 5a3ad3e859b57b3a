package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// fakeMetadataStore is an in-memory store.MetadataStore for Retriever tests.
type fakeMetadataStore struct {
	symbols    map[string]*store.Symbol
	docstrings map[string]*store.Docstring
	metrics    map[string]*store.SymbolMetrics
	packages   map[string]*store.Package // keyed by file path
	selections []*store.QuerySelection
	affinity   map[string]*store.FileAffinity
	edges      []*store.Edge
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		symbols:    make(map[string]*store.Symbol),
		docstrings: make(map[string]*store.Docstring),
		metrics:    make(map[string]*store.SymbolMetrics),
		packages:   make(map[string]*store.Package),
		affinity:   make(map[string]*store.FileAffinity),
	}
}

var _ store.MetadataStore = (*fakeMetadataStore)(nil)

func (f *fakeMetadataStore) UpsertFile(ctx context.Context, result *store.ExtractionResult) error {
	return nil
}
func (f *fakeMetadataStore) DeleteFile(ctx context.Context, path string) error { return nil }

func (f *fakeMetadataStore) GetFingerprint(ctx context.Context, path string) (*store.Fingerprint, bool, error) {
	return nil, false, nil
}
func (f *fakeMetadataStore) ListFingerprints(ctx context.Context) (map[string]*store.Fingerprint, error) {
	return nil, nil
}

func (f *fakeMetadataStore) GetSymbol(ctx context.Context, id string) (*store.Symbol, error) {
	return f.symbols[id], nil
}
func (f *fakeMetadataStore) GetSymbolsByFile(ctx context.Context, path string) ([]*store.Symbol, error) {
	var out []*store.Symbol
	for _, s := range f.symbols {
		if s.FilePath == path {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) FindSymbolsByName(ctx context.Context, name string, limit int) ([]*store.Symbol, error) {
	var out []*store.Symbol
	for _, s := range f.symbols {
		if strings.EqualFold(s.Name, name) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeMetadataStore) ListAllSymbolIDs(ctx context.Context) ([]string, error) {
	var out []string
	for id := range f.symbols {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeMetadataStore) GetEdgesFrom(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	return nil, nil
}
func (f *fakeMetadataStore) GetEdgesTo(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	return nil, nil
}
func (f *fakeMetadataStore) AllEdges(ctx context.Context) ([]*store.Edge, error) { return f.edges, nil }

func (f *fakeMetadataStore) GetDocstring(ctx context.Context, symbolID string) (*store.Docstring, error) {
	return f.docstrings[symbolID], nil
}
func (f *fakeMetadataStore) GetDecorators(ctx context.Context, symbolID string) ([]*store.Decorator, error) {
	return nil, nil
}
func (f *fakeMetadataStore) SearchDecorators(ctx context.Context, name string, limit int) ([]*store.Decorator, error) {
	return nil, nil
}
func (f *fakeMetadataStore) SearchTODOs(ctx context.Context, keyword string, limit int) ([]*store.TODOEntry, error) {
	return nil, nil
}
func (f *fakeMetadataStore) FindTestsForSymbol(ctx context.Context, symbolID string) ([]*store.TestLink, error) {
	return nil, nil
}
func (f *fakeMetadataStore) SaveTestLinks(ctx context.Context, links []*store.TestLink) error {
	return nil
}

func (f *fakeMetadataStore) GetMetrics(ctx context.Context, symbolIDs []string) (map[string]*store.SymbolMetrics, error) {
	out := make(map[string]*store.SymbolMetrics)
	for _, id := range symbolIDs {
		if m, ok := f.metrics[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) SetMetrics(ctx context.Context, metrics []*store.SymbolMetrics) error {
	for _, m := range metrics {
		f.metrics[m.SymbolID] = m
	}
	return nil
}

func (f *fakeMetadataStore) SavePackage(ctx context.Context, pkg *store.Package) error { return nil }
func (f *fakeMetadataStore) SaveRepository(ctx context.Context, repo *store.Repository) error {
	return nil
}
func (f *fakeMetadataStore) GetPackageForFile(ctx context.Context, path string) (*store.Package, error) {
	return f.packages[path], nil
}
func (f *fakeMetadataStore) BatchGetSymbolPackages(ctx context.Context, symbolIDs []string) (map[string]*store.Package, error) {
	return nil, nil
}

func (f *fakeMetadataStore) RecordSelection(ctx context.Context, sel *store.QuerySelection) error {
	f.selections = append(f.selections, sel)
	return nil
}
func (f *fakeMetadataStore) GetSelectionsForNormalizedQuery(ctx context.Context, normalized string, limit int) ([]*store.QuerySelection, error) {
	var out []*store.QuerySelection
	for _, s := range f.selections {
		if s.QueryNormalized == normalized {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeMetadataStore) GetFileAffinity(ctx context.Context, path string) (*store.FileAffinity, error) {
	return f.affinity[path], nil
}
func (f *fakeMetadataStore) IncrementFileView(ctx context.Context, path string) error { return nil }
func (f *fakeMetadataStore) IncrementFileEdit(ctx context.Context, path string) error { return nil }

func (f *fakeMetadataStore) GetState(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}
func (f *fakeMetadataStore) SetState(ctx context.Context, key, value string) error { return nil }

func (f *fakeMetadataStore) SaveCheckpoint(ctx context.Context, cp *store.IndexCheckpoint) error {
	return nil
}
func (f *fakeMetadataStore) LoadCheckpoint(ctx context.Context) (*store.IndexCheckpoint, error) {
	return nil, nil
}
func (f *fakeMetadataStore) ClearCheckpoint(ctx context.Context) error { return nil }

func (f *fakeMetadataStore) Close() error { return nil }

// fakeKeywordIndex is an in-memory store.KeywordIndex returning a
// caller-configured fixed result list regardless of query text.
type fakeKeywordIndex struct {
	results []*store.KeywordResult
}

var _ store.KeywordIndex = (*fakeKeywordIndex)(nil)

func (f *fakeKeywordIndex) Index(ctx context.Context, docs []*store.KeywordDoc) error { return nil }
func (f *fakeKeywordIndex) Search(ctx context.Context, query string, k int) ([]*store.KeywordResult, error) {
	return f.results, nil
}
func (f *fakeKeywordIndex) Delete(ctx context.Context, symbolIDs []string) error { return nil }
func (f *fakeKeywordIndex) AllIDs(ctx context.Context) ([]string, error)        { return nil, nil }
func (f *fakeKeywordIndex) Close() error                                       { return nil }

// fakeVectorIndex is an in-memory store.VectorIndex returning a
// caller-configured fixed result list regardless of query vector.
type fakeVectorIndex struct {
	results []*store.VectorResult
	dim     int
}

var _ store.VectorIndex = (*fakeVectorIndex)(nil)

func (f *fakeVectorIndex) Upsert(ctx context.Context, records []*store.VectorRecord) error {
	return nil
}
func (f *fakeVectorIndex) KNN(ctx context.Context, query []float32, k int, filter store.VectorFilter) ([]*store.VectorResult, error) {
	return f.results, nil
}
func (f *fakeVectorIndex) Delete(ctx context.Context, ids []string) error { return nil }
func (f *fakeVectorIndex) AllIDs(ctx context.Context) []string           { return nil }
func (f *fakeVectorIndex) Dimension() int                               { return f.dim }
func (f *fakeVectorIndex) Close() error                                 { return nil }

// fakeEmbedder is a modeladapter.Embedder returning a fixed vector.
type fakeEmbedder struct {
	dim       int
	available bool
}

var _ modeladapter.Embedder = (*fakeEmbedder)(nil)

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dim), nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int                      { return f.dim }
func (f *fakeEmbedder) ModelName() string                    { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool   { return f.available }
func (f *fakeEmbedder) Close() error                         { return nil }
