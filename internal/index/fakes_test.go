package index

import (
	"context"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// fakeMetadataStore is a minimal in-memory stand-in for store.MetadataStore,
// just enough surface for the index package's own tests; it is not a
// general-purpose fake for other packages.
type fakeMetadataStore struct {
	symbols      map[string]*store.Symbol
	byFile       map[string][]*store.Symbol
	byName       map[string][]*store.Symbol
	fingerprints map[string]*store.Fingerprint
	packages     map[string]*store.Package
	edges        []*store.Edge
	metrics      map[string]*store.SymbolMetrics
	checkpoint   *store.IndexCheckpoint
	deleted      []string
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		symbols:      make(map[string]*store.Symbol),
		byFile:       make(map[string][]*store.Symbol),
		byName:       make(map[string][]*store.Symbol),
		fingerprints: make(map[string]*store.Fingerprint),
		packages:     make(map[string]*store.Package),
		metrics:      make(map[string]*store.SymbolMetrics),
	}
}

func (f *fakeMetadataStore) UpsertFile(ctx context.Context, result *store.ExtractionResult) error {
	f.byFile[result.FilePath] = result.Symbols
	for _, s := range result.Symbols {
		f.symbols[s.ID] = s
		f.byName[s.Name] = append(f.byName[s.Name], s)
	}
	f.edges = append(f.edges, result.Edges...)
	f.fingerprints[result.FilePath] = &result.Fingerprint
	return nil
}

func (f *fakeMetadataStore) DeleteFile(ctx context.Context, path string) error {
	delete(f.byFile, path)
	delete(f.fingerprints, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeMetadataStore) GetFingerprint(ctx context.Context, path string) (*store.Fingerprint, bool, error) {
	fp, ok := f.fingerprints[path]
	return fp, ok, nil
}

func (f *fakeMetadataStore) ListFingerprints(ctx context.Context) (map[string]*store.Fingerprint, error) {
	return f.fingerprints, nil
}

func (f *fakeMetadataStore) GetSymbol(ctx context.Context, id string) (*store.Symbol, error) {
	return f.symbols[id], nil
}

func (f *fakeMetadataStore) GetSymbolsByFile(ctx context.Context, path string) ([]*store.Symbol, error) {
	return f.byFile[path], nil
}

func (f *fakeMetadataStore) FindSymbolsByName(ctx context.Context, name string, limit int) ([]*store.Symbol, error) {
	matches := f.byName[name]
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (f *fakeMetadataStore) ListAllSymbolIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.symbols))
	for id := range f.symbols {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeMetadataStore) GetEdgesFrom(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	return nil, nil
}
func (f *fakeMetadataStore) GetEdgesTo(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	return nil, nil
}
func (f *fakeMetadataStore) AllEdges(ctx context.Context) ([]*store.Edge, error) { return f.edges, nil }

func (f *fakeMetadataStore) GetDocstring(ctx context.Context, symbolID string) (*store.Docstring, error) {
	return nil, nil
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
	out := make(map[string]*store.SymbolMetrics, len(symbolIDs))
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

func (f *fakeMetadataStore) SavePackage(ctx context.Context, pkg *store.Package) error {
	f.packages[pkg.ID] = pkg
	return nil
}
func (f *fakeMetadataStore) SaveRepository(ctx context.Context, repo *store.Repository) error {
	return nil
}
func (f *fakeMetadataStore) GetPackageForFile(ctx context.Context, path string) (*store.Package, error) {
	for _, s := range f.byFile[path] {
		if s.PackageID != "" {
			return f.packages[s.PackageID], nil
		}
	}
	return nil, nil
}
func (f *fakeMetadataStore) BatchGetSymbolPackages(ctx context.Context, symbolIDs []string) (map[string]*store.Package, error) {
	return nil, nil
}

func (f *fakeMetadataStore) RecordSelection(ctx context.Context, sel *store.QuerySelection) error {
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
	return "", false, nil
}
func (f *fakeMetadataStore) SetState(ctx context.Context, key, value string) error { return nil }

func (f *fakeMetadataStore) SaveCheckpoint(ctx context.Context, cp *store.IndexCheckpoint) error {
	f.checkpoint = cp
	return nil
}
func (f *fakeMetadataStore) LoadCheckpoint(ctx context.Context) (*store.IndexCheckpoint, error) {
	return f.checkpoint, nil
}
func (f *fakeMetadataStore) ClearCheckpoint(ctx context.Context) error {
	f.checkpoint = nil
	return nil
}

func (f *fakeMetadataStore) Close() error { return nil }

var _ store.MetadataStore = (*fakeMetadataStore)(nil)

// fakeKeywordIndex and fakeVectorIndex are minimal stand-ins mirroring
// fakeMetadataStore's scope.
type fakeKeywordIndex struct {
	docs map[string]*store.KeywordDoc
}

func newFakeKeywordIndex() *fakeKeywordIndex {
	return &fakeKeywordIndex{docs: make(map[string]*store.KeywordDoc)}
}

func (f *fakeKeywordIndex) Index(ctx context.Context, docs []*store.KeywordDoc) error {
	for _, d := range docs {
		f.docs[d.SymbolID] = d
	}
	return nil
}
func (f *fakeKeywordIndex) Search(ctx context.Context, query string, k int) ([]*store.KeywordResult, error) {
	return nil, nil
}
func (f *fakeKeywordIndex) Delete(ctx context.Context, symbolIDs []string) error {
	for _, id := range symbolIDs {
		delete(f.docs, id)
	}
	return nil
}
func (f *fakeKeywordIndex) AllIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	return ids, nil
}
func (f *fakeKeywordIndex) Close() error { return nil }

var _ store.KeywordIndex = (*fakeKeywordIndex)(nil)

type fakeVectorIndex struct {
	records map[string]*store.VectorRecord
	dim     int
}

func newFakeVectorIndex(dim int) *fakeVectorIndex {
	return &fakeVectorIndex{records: make(map[string]*store.VectorRecord), dim: dim}
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, records []*store.VectorRecord) error {
	for _, r := range records {
		f.records[r.ID] = r
	}
	return nil
}
func (f *fakeVectorIndex) KNN(ctx context.Context, query []float32, k int, filter store.VectorFilter) ([]*store.VectorResult, error) {
	return nil, nil
}
func (f *fakeVectorIndex) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.records, id)
	}
	return nil
}
func (f *fakeVectorIndex) AllIDs(ctx context.Context) []string {
	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids
}
func (f *fakeVectorIndex) Dimension() int { return f.dim }
func (f *fakeVectorIndex) Close() error   { return nil }

var _ store.VectorIndex = (*fakeVectorIndex)(nil)
