package assemble

import (
	"context"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// fakeMetadataStore is a minimal in-memory store.MetadataStore for
// Assembler tests: only GetSymbol, GetDocstring, and GetEdgesFrom carry
// real behavior, everything else is an unused stub.
type fakeMetadataStore struct {
	symbols    map[string]*store.Symbol
	docstrings map[string]*store.Docstring
	edgesFrom  map[string][]*store.Edge
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		symbols:    make(map[string]*store.Symbol),
		docstrings: make(map[string]*store.Docstring),
		edgesFrom:  make(map[string][]*store.Edge),
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
	return nil, nil
}
func (f *fakeMetadataStore) FindSymbolsByName(ctx context.Context, name string, limit int) ([]*store.Symbol, error) {
	return nil, nil
}
func (f *fakeMetadataStore) ListAllSymbolIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeMetadataStore) GetEdgesFrom(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	return f.edgesFrom[symbolID], nil
}
func (f *fakeMetadataStore) GetEdgesTo(ctx context.Context, symbolID string, kinds []store.EdgeKind) ([]*store.Edge, error) {
	return nil, nil
}
func (f *fakeMetadataStore) AllEdges(ctx context.Context) ([]*store.Edge, error) { return nil, nil }
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
	return nil, nil
}
func (f *fakeMetadataStore) SetMetrics(ctx context.Context, metrics []*store.SymbolMetrics) error {
	return nil
}
func (f *fakeMetadataStore) SavePackage(ctx context.Context, pkg *store.Package) error { return nil }
func (f *fakeMetadataStore) SaveRepository(ctx context.Context, repo *store.Repository) error {
	return nil
}
func (f *fakeMetadataStore) GetPackageForFile(ctx context.Context, path string) (*store.Package, error) {
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
	return nil
}
func (f *fakeMetadataStore) LoadCheckpoint(ctx context.Context) (*store.IndexCheckpoint, error) {
	return nil, nil
}
func (f *fakeMetadataStore) ClearCheckpoint(ctx context.Context) error { return nil }
func (f *fakeMetadataStore) Close() error                             { return nil }

// fakeSourceLoader serves fixed per-file contents without touching disk.
type fakeSourceLoader struct {
	files map[string][]string
}

var _ SourceLoader = (*fakeSourceLoader)(nil)

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
