package mcp

import (
	"context"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/assemble"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// fakeMetadataStore is a minimal in-memory store.MetadataStore covering
// exactly the lookups the handler layer exercises; everything else is an
// unused stub, mirroring internal/assemble and internal/retrieval's own
// test fakes.
type fakeMetadataStore struct {
	symbols     map[string]*store.Symbol
	docstrings  map[string]*store.Docstring
	edges       []*store.Edge
	todos       []*store.TODOEntry
	decorators  []*store.Decorator
	testLinks   map[string][]*store.TestLink
	packages    map[string]*store.Package
	filePkg     map[string]*store.Package
	fileSymbols map[string][]*store.Symbol
	metrics     map[string]*store.SymbolMetrics
	state       map[string]string

	selections []struct {
		query    string
		symbolID string
		position int
	}
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		symbols:     make(map[string]*store.Symbol),
		docstrings:  make(map[string]*store.Docstring),
		testLinks:   make(map[string][]*store.TestLink),
		packages:    make(map[string]*store.Package),
		filePkg:     make(map[string]*store.Package),
		fileSymbols: make(map[string][]*store.Symbol),
		metrics:     make(map[string]*store.SymbolMetrics),
		state:       make(map[string]string),
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
	return f.fileSymbols[path], nil
}
func (f *fakeMetadataStore) FindSymbolsByName(ctx context.Context, name string, limit int) ([]*store.Symbol, error) {
	var out []*store.Symbol
	for _, s := range f.symbols {
		if s.Name == name {
			out = append(out, s)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) ListAllSymbolIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.symbols))
	for id := range f.symbols {
		ids = append(ids, id)
	}
	return ids, nil
}
func (f *fakeMetadataStore) GetEdgesFrom(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	var out []*store.Edge
	for _, e := range f.edges {
		if e.FromSymbolID == symbolID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) GetEdgesTo(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	var out []*store.Edge
	for _, e := range f.edges {
		if e.ToSymbolID == symbolID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) AllEdges(ctx context.Context) ([]*store.Edge, error) { return f.edges, nil }
func (f *fakeMetadataStore) GetDocstring(ctx context.Context, symbolID string) (*store.Docstring, error) {
	return f.docstrings[symbolID], nil
}
func (f *fakeMetadataStore) GetDecorators(ctx context.Context, symbolID string) ([]*store.Decorator, error) {
	var out []*store.Decorator
	for _, d := range f.decorators {
		if d.SymbolID == symbolID {
			out = append(out, d)
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) SearchDecorators(ctx context.Context, name string, limit int) ([]*store.Decorator, error) {
	var out []*store.Decorator
	for _, d := range f.decorators {
		if d.Name == name {
			out = append(out, d)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) SearchTODOs(ctx context.Context, keyword string, limit int) ([]*store.TODOEntry, error) {
	var out []*store.TODOEntry
	for _, t := range f.todos {
		if keyword == "" || t.Keyword == keyword {
			out = append(out, t)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
func (f *fakeMetadataStore) FindTestsForSymbol(ctx context.Context, symbolID string) ([]*store.TestLink, error) {
	return f.testLinks[symbolID], nil
}
func (f *fakeMetadataStore) SaveTestLinks(ctx context.Context, links []*store.TestLink) error {
	return nil
}
func (f *fakeMetadataStore) GetMetrics(ctx context.Context, symbolIDs []string) (map[string]*store.SymbolMetrics, error) {
	out := make(map[string]*store.SymbolMetrics, len(symbolIDs))
	for _, id := range symbolIDs {
		out[id] = f.metrics[id]
	}
	return out, nil
}
func (f *fakeMetadataStore) SetMetrics(ctx context.Context, metrics []*store.SymbolMetrics) error {
	return nil
}
func (f *fakeMetadataStore) SavePackage(ctx context.Context, pkg *store.Package) error { return nil }
func (f *fakeMetadataStore) SaveRepository(ctx context.Context, repo *store.Repository) error {
	return nil
}
func (f *fakeMetadataStore) GetPackageForFile(ctx context.Context, path string) (*store.Package, error) {
	return f.filePkg[path], nil
}
func (f *fakeMetadataStore) BatchGetSymbolPackages(ctx context.Context, symbolIDs []string) (map[string]*store.Package, error) {
	out := make(map[string]*store.Package, len(symbolIDs))
	for _, id := range symbolIDs {
		out[id] = f.packages[id]
	}
	return out, nil
}
func (f *fakeMetadataStore) RecordSelection(ctx context.Context, sel *store.QuerySelection) error {
	f.selections = append(f.selections, struct {
		query    string
		symbolID string
		position int
	}{sel.QueryNormalized, sel.SelectedSymbolID, sel.Position})
	return nil
}
func (f *fakeMetadataStore) GetSelectionsForNormalizedQuery(ctx context.Context, normalized string, limit int) ([]*store.QuerySelection, error) {
	return nil, nil
}
func (f *fakeMetadataStore) GetFileAffinity(ctx context.Context, path string) (*store.FileAffinity, error) {
	return nil, nil
}
func (f *fakeMetadataStore) IncrementFileView(ctx context.Context, path string) error { return nil }
func (f *fakeMetadataStore) IncrementFileEdit(ctx context.Context, path string) error { return nil }
func (f *fakeMetadataStore) GetState(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.state[key]
	return v, ok, nil
}
func (f *fakeMetadataStore) SetState(ctx context.Context, key, value string) error {
	f.state[key] = value
	return nil
}
func (f *fakeMetadataStore) SaveCheckpoint(ctx context.Context, cp *store.IndexCheckpoint) error {
	return nil
}
func (f *fakeMetadataStore) LoadCheckpoint(ctx context.Context) (*store.IndexCheckpoint, error) {
	return nil, nil
}
func (f *fakeMetadataStore) ClearCheckpoint(ctx context.Context) error { return nil }
func (f *fakeMetadataStore) Close() error                             { return nil }

// fakeKeywordIndex returns a fixed result list regardless of query.
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

// fakeVectorIndex returns a fixed result list regardless of query vector.
type fakeVectorIndex struct {
	results []*store.VectorResult
	dim     int
}

var _ store.VectorIndex = (*fakeVectorIndex)(nil)

func (f *fakeVectorIndex) Upsert(ctx context.Context, records []*store.VectorRecord) error {
	return nil
}
func (f *fakeVectorIndex) KNN(ctx context.Context, query []float32, k int, filter store.VectorFilter) ([]*store.VectorResult, error) {
	var out []*store.VectorResult
	for _, r := range f.results {
		if filter == nil || filter(&store.VectorRecord{ID: r.ID}) {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeVectorIndex) Delete(ctx context.Context, ids []string) error { return nil }
func (f *fakeVectorIndex) AllIDs(ctx context.Context) []string           { return nil }
func (f *fakeVectorIndex) Dimension() int                               { return f.dim }
func (f *fakeVectorIndex) Close() error                                 { return nil }

// fakeEmbedder returns a fixed-dimension zero vector for any text.
type fakeEmbedder struct {
	dim int
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
func (f *fakeEmbedder) Dimensions() int         { return f.dim }
func (f *fakeEmbedder) ModelName() string       { return "fake" }
func (f *fakeEmbedder) Available(ctx context.Context) bool { return true }

// fakeSourceLoader serves fixed per-file contents without touching disk.
type fakeSourceLoader struct {
	files map[string][]string
}

var _ assemble.SourceLoader = (*fakeSourceLoader)(nil)

func (f *fakeSourceLoader) ReadRange(ctx context.Context, filePath string, startLine, endLine int) (string, error) {
	lines := f.files[filePath]
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return "", nil
	}
	out := ""
	for i := startLine - 1; i < endLine; i++ {
		if i > startLine-1 {
			out += "\n"
		}
		out += lines[i]
	}
	return out, nil
}

// fakeIndexer is a stub Indexer returning a fixed IndexStats.
type fakeIndexer struct {
	stats IndexStats
	err   error
}

func (f *fakeIndexer) Run(ctx context.Context) (IndexStats, error) {
	return f.stats, f.err
}
