// Package store implements the three backing contracts of the engine: the
// relational Metadata Store (C1, sqlite), the Keyword Index (C2, bleve), and
// the Vector Index (C3, hnsw). All stable ids and invariants follow the data
// model exactly.
package store

import (
	"context"
	"fmt"
	"time"
)

// SymbolKind enumerates the recognized symbol kinds.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindStruct      SymbolKind = "struct"
	KindEnum        SymbolKind = "enum"
	KindTrait       SymbolKind = "trait"
	KindImpl        SymbolKind = "impl"
	KindVariable    SymbolKind = "variable"
	KindConstant    SymbolKind = "constant"
	KindTypeAlias   SymbolKind = "type-alias"
	KindModule      SymbolKind = "module"
	KindFileRoot    SymbolKind = "file-root"
)

// EdgeKind enumerates the recognized edge kinds.
type EdgeKind string

const (
	EdgeCall           EdgeKind = "call"
	EdgeReference      EdgeKind = "reference"
	EdgeTypeExtends    EdgeKind = "type_extends"
	EdgeTypeImplements EdgeKind = "type_implements"
	EdgeTypeAlias      EdgeKind = "type_alias"
	EdgeImport         EdgeKind = "import"
	EdgeRead           EdgeKind = "read"
	EdgeWrite          EdgeKind = "write"
)

// EdgeResolution enumerates how an edge's endpoint was resolved.
type EdgeResolution string

const (
	ResolutionLocal              EdgeResolution = "local"
	ResolutionPackage            EdgeResolution = "package"
	ResolutionCrossPackage       EdgeResolution = "cross-package"
	ResolutionImport             EdgeResolution = "import"
	ResolutionCrossPackageImport EdgeResolution = "cross-package-import"
	ResolutionUnknown            EdgeResolution = "unknown"
)

// Symbol is a uniquely identified code entity extracted from a file.
type Symbol struct {
	ID         string
	Name       string
	Kind       SymbolKind
	FilePath   string
	StartLine  int
	EndLine    int
	Language   string
	Exported   bool
	Signature  string
	PackageID  string
}

// Edge is a directed relationship between two symbols.
type Edge struct {
	FromSymbolID  string
	ToSymbolID    string
	Kind          EdgeKind
	AtFile        string
	AtLine        int
	EvidenceCount int
	Resolution    EdgeResolution
}

// Fingerprint tracks a scanned file's last-indexed state for change detection.
type Fingerprint struct {
	Path        string
	MTimeNanos  int64
	SizeBytes   int64
	ContentHash string
}

// Docstring is keyed by symbol id.
type Docstring struct {
	SymbolID string
	Summary  string
	Params   string // JSON-encoded list of (name, description)
	Returns  string
	Examples string // JSON-encoded list of example snippets
	Tags     string // JSON-encoded list of tags
}

// Decorator is a framework or custom annotation attached to a symbol.
type Decorator struct {
	SymbolID string
	Name     string
	Known    bool // true if framework-known, false if custom
}

// TODOEntry is a TODO/FIXME comment associated with the nearest following symbol.
type TODOEntry struct {
	FilePath string
	Line     int
	Keyword  string // "TODO" or "FIXME"
	Text     string
	SymbolID string // may be empty
}

// TestLink maps a test file to the subject file/symbol it covers.
type TestLink struct {
	TestFilePath    string
	SubjectFilePath string
	SubjectSymbolID string // may be empty if only file-level
}

// Package is a path-identified manifest-derived unit.
type Package struct {
	ID           string
	Name         string
	Version      string
	ManifestPath string
	Ecosystem    string // go, node, python, ...
	RootDir      string
	RepoID       string
}

// Repository aggregates packages sharing a VCS root.
type Repository struct {
	ID   string // sha256(root path)
	Root string
}

// SymbolMetrics holds per-symbol centrality and usage metrics.
type SymbolMetrics struct {
	SymbolID           string
	PageRank           float64
	PopularityCount    int
	NormalizedPageRank float64
}

// QuerySelection is an append-only record of a user's chosen symbol for a query.
type QuerySelection struct {
	QueryText         string
	QueryNormalized   string
	SelectedSymbolID  string
	Position          int
	CreatedAt         time.Time
}

// FileAffinity accumulates view/edit counters per file for learning boosts.
type FileAffinity struct {
	FilePath       string
	ViewCount      int
	EditCount      int
	LastAccessedAt time.Time
}

// ExtractionResult is the transactional unit committed per file: one file's
// full extraction output, applied atomically to C1 and C2.
type ExtractionResult struct {
	FilePath    string
	Symbols     []*Symbol
	Edges       []*Edge
	Docstrings  []*Docstring
	Decorators  []*Decorator
	TODOs       []*TODOEntry
	Fingerprint Fingerprint
}

// CurrentSchemaVersion is the C2/C3 index layout version. No startup check
// compares it with a stored version or rebuilds on a mismatch.
const CurrentSchemaVersion = 1

// Well-known kv_state keys.
const (
	StateKeySchemaVersion        = "schema_version"
	StateKeyIndexDimension       = "index_embedding_dimension"
	StateKeyIndexModel           = "index_embedding_model"
	StateKeyCheckpointStage      = "checkpoint_stage"
	StateKeyCheckpointTotal      = "checkpoint_total"
	StateKeyCheckpointEmbedded   = "checkpoint_embedded_count"
	StateKeyCheckpointModel      = "checkpoint_embedder_model"
	StateKeyCheckpointUpdatedAt  = "checkpoint_updated_at"
)

// IndexCheckpoint is resumable indexing progress persisted in kv_state.
type IndexCheckpoint struct {
	Stage         string // "scanning"|"parsing"|"embedding"|"pagerank"|"complete"
	Total         int
	EmbeddedCount int
	EmbedderModel string
	UpdatedAt     time.Time
}

// MetadataStore persists and queries all C1 entities described in spec.md
// Section 3. Multiple readers may run concurrently with at most one writer;
// writes beyond the configured lock timeout surface cierrors.StoreBusy.
type MetadataStore interface {
	// UpsertFile commits one file's full extraction result transactionally:
	// delete the file's prior rows, then insert the new ones.
	UpsertFile(ctx context.Context, result *ExtractionResult) error
	// DeleteFile cascades to the file's symbols, edges, docstrings,
	// decorators, and TODOs.
	DeleteFile(ctx context.Context, path string) error

	GetFingerprint(ctx context.Context, path string) (*Fingerprint, bool, error)
	ListFingerprints(ctx context.Context) (map[string]*Fingerprint, error)

	GetSymbol(ctx context.Context, id string) (*Symbol, error)
	GetSymbolsByFile(ctx context.Context, path string) ([]*Symbol, error)
	FindSymbolsByName(ctx context.Context, name string, limit int) ([]*Symbol, error)
	ListAllSymbolIDs(ctx context.Context) ([]string, error)

	GetEdgesFrom(ctx context.Context, symbolID string, kinds []EdgeKind) ([]*Edge, error)
	GetEdgesTo(ctx context.Context, symbolID string, kinds []EdgeKind) ([]*Edge, error)
	AllEdges(ctx context.Context) ([]*Edge, error)

	GetDocstring(ctx context.Context, symbolID string) (*Docstring, error)
	GetDecorators(ctx context.Context, symbolID string) ([]*Decorator, error)
	SearchDecorators(ctx context.Context, name string, limit int) ([]*Decorator, error)
	SearchTODOs(ctx context.Context, keyword string, limit int) ([]*TODOEntry, error)
	FindTestsForSymbol(ctx context.Context, symbolID string) ([]*TestLink, error)
	SaveTestLinks(ctx context.Context, links []*TestLink) error

	// GetMetrics is a batched read of per-symbol metrics.
	GetMetrics(ctx context.Context, symbolIDs []string) (map[string]*SymbolMetrics, error)
	SetMetrics(ctx context.Context, metrics []*SymbolMetrics) error

	SavePackage(ctx context.Context, pkg *Package) error
	SaveRepository(ctx context.Context, repo *Repository) error
	GetPackageForFile(ctx context.Context, path string) (*Package, error)
	BatchGetSymbolPackages(ctx context.Context, symbolIDs []string) (map[string]*Package, error)

	RecordSelection(ctx context.Context, sel *QuerySelection) error
	GetSelectionsForNormalizedQuery(ctx context.Context, normalized string, limit int) ([]*QuerySelection, error)

	GetFileAffinity(ctx context.Context, path string) (*FileAffinity, error)
	IncrementFileView(ctx context.Context, path string) error
	IncrementFileEdit(ctx context.Context, path string) error

	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error

	SaveCheckpoint(ctx context.Context, cp *IndexCheckpoint) error
	LoadCheckpoint(ctx context.Context) (*IndexCheckpoint, error)
	ClearCheckpoint(ctx context.Context) error

	Close() error
}

// KeywordResult is one hit from a C2 search.
type KeywordResult struct {
	SymbolID     string
	Score        float64
	MatchedTerms []string
}

// KeywordDoc is the C2 representation of a symbol, with one field per
// spec.md Section 4.2's schema.
type KeywordDoc struct {
	SymbolID string
	Name     string
	FilePath string
	Kind     string
	Exported bool
	Body     string
}

// KeywordIndex is the C2 contract: full-text search over
// {name, name_ngram, file_path, kind, exported, body, body_ngram}.
type KeywordIndex interface {
	Index(ctx context.Context, docs []*KeywordDoc) error
	Search(ctx context.Context, query string, k int) ([]*KeywordResult, error)
	Delete(ctx context.Context, symbolIDs []string) error
	AllIDs(ctx context.Context) ([]string, error)
	Close() error
}

// VectorRecord is one C3 row.
type VectorRecord struct {
	ID       string
	Vector   []float32
	Name     string
	Kind     string
	FilePath string
	Exported bool
	Language string
	Text     string
}

// VectorFilter is a predicate over a VectorRecord's stored scalar fields.
type VectorFilter func(*VectorRecord) bool

// VectorResult is one C3 kNN hit.
type VectorResult struct {
	ID       string
	Distance float32
}

// VectorIndex is the C3 contract.
type VectorIndex interface {
	Upsert(ctx context.Context, records []*VectorRecord) error
	KNN(ctx context.Context, query []float32, k int, filter VectorFilter) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs(ctx context.Context) []string
	Dimension() int
	Close() error
}

// ErrDimensionMismatch indicates a write whose vector length disagrees with
// the index's declared dimension D. Upsert rejects the whole batch with it
// rather than writing part of it; nothing rebuilds the table in response.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
