package daemon

import (
	"context"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// fakeMetadataStore is a minimal in-memory store.MetadataStore, just enough
// surface for GetStatus/RefreshIndex's read paths.
type fakeMetadataStore struct {
	symbolIDs []string
	edges     []*store.Edge
	state     map[string]string
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
	return nil, nil
}
func (f *fakeMetadataStore) GetSymbolsByFile(ctx context.Context, path string) ([]*store.Symbol, error) {
	return nil, nil
}
func (f *fakeMetadataStore) FindSymbolsByName(ctx context.Context, name string, limit int) ([]*store.Symbol, error) {
	return nil, nil
}
func (f *fakeMetadataStore) ListAllSymbolIDs(ctx context.Context) ([]string, error) {
	return f.symbolIDs, nil
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
	v, ok := f.state[key]
	return v, ok, nil
}
func (f *fakeMetadataStore) SetState(ctx context.Context, key, value string) error {
	if f.state == nil {
		f.state = make(map[string]string)
	}
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
func (f *fakeMetadataStore) Close() error                              { return nil }

// fakeHandler implements RequestHandler for exercising the control server
// and client without a real Daemon.
type fakeHandler struct {
	status       StatusResult
	refreshResult RefreshIndexResult
	refreshErr    error
	refreshCalls  []RefreshIndexParams
}

func (f *fakeHandler) GetStatus() StatusResult { return f.status }

func (f *fakeHandler) RefreshIndex(ctx context.Context, params RefreshIndexParams) (RefreshIndexResult, error) {
	f.refreshCalls = append(f.refreshCalls, params)
	if f.refreshErr != nil {
		return RefreshIndexResult{}, f.refreshErr
	}
	return f.refreshResult, nil
}
