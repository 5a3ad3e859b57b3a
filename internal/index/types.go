// Package index implements the Indexer (C5): the pipeline that turns a
// repository's files into the rows the Metadata Store, Keyword Index, and
// Vector Index hold, plus the PageRank pass run once per full index.
//
// Stages, exactly as spec.md §4.5 describes: Scan -> Parse -> Extract
// symbols -> Extract auxiliary metadata -> Resolve edges -> Delete+upsert
// (transactional) -> Embed (sequential) -> PageRank (once per full index).
package index

import (
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/embedcache"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/parse"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// Config controls one Indexer's behavior; its fields correspond to values
// in config.ScanConfig/PageRankConfig/PerformanceConfig/PackagingConfig,
// which callers copy across field by field.
type Config struct {
	RootDir           string
	IncludePatterns   []string
	ExcludePatterns   []string
	IndexNodeModules  bool
	MaxFileSize       int64
	Workers           int
	PageRankDamping   float64
	PageRankIters     int
	PackageDetection  bool
}

// DefaultMaxFileSize mirrors the teacher's 100MB memory-exhaustion guard.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// WithDefaults fills zero-value fields.
func (c Config) WithDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if len(c.IncludePatterns) == 0 {
		c.IncludePatterns = []string{"**/*"}
	}
	if c.PageRankDamping <= 0 {
		c.PageRankDamping = 0.85
	}
	if c.PageRankIters <= 0 {
		c.PageRankIters = 20
	}
	return c
}

// Indexer orchestrates the full pipeline over a Parser, Embedder, and the
// three storage contracts.
type Indexer struct {
	cfg      Config
	parser   *parse.Parser
	embedder modeladapter.Embedder
	metadata store.MetadataStore
	keyword  store.KeywordIndex
	vector   store.VectorIndex

	embedCache *embedcache.Cache
	progress   ProgressFunc

	absRoot string
}

// WithEmbedCache attaches an embedding cache (C4); nil leaves caching
// disabled, falling through to the Model adapter on every symbol.
func (ix *Indexer) WithEmbedCache(cache *embedcache.Cache) *Indexer {
	ix.embedCache = cache
	return ix
}

// ProgressFunc receives coarse progress notifications during a full index
// run; nil is a valid no-op callback.
type ProgressFunc func(stage string, done, total int)

// Stats summarizes one Run.
type Stats struct {
	FilesScanned    int
	FilesIndexed    int
	FilesSkipped    int
	SymbolsIndexed  int
	EdgesResolved   int
	Duration        time.Duration
	Errors          []FileError
}

// FileError records a non-fatal per-file failure; the Indexer logs and
// continues past these rather than aborting the whole run.
type FileError struct {
	Path string
	Err  error
}

// New builds an Indexer. parser and embedder are the opaque Parser/Model
// collaborators (spec.md's framing); metadata/keyword/vector are the three
// storage contracts.
func New(cfg Config, parser *parse.Parser, embedder modeladapter.Embedder, metadata store.MetadataStore, keyword store.KeywordIndex, vector store.VectorIndex) *Indexer {
	return &Indexer{
		cfg:      cfg.WithDefaults(),
		parser:   parser,
		embedder: embedder,
		metadata: metadata,
		keyword:  keyword,
		vector:   vector,
	}
}

// OnProgress registers a progress callback for the next Run.
func (ix *Indexer) OnProgress(fn ProgressFunc) {
	ix.progress = fn
}

func (ix *Indexer) notify(stage string, done, total int) {
	if ix.progress != nil {
		ix.progress(stage, done, total)
	}
}
