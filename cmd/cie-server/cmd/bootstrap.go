package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/assemble"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/config"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/embedcache"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/index"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/parse"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/retrieval"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// engine bundles every component a subcommand needs, opened once and torn
// down together. Building this is cmd/cie-server's job so that
// internal/daemon and internal/mcp never have to know how a
// store.MetadataStore or modeladapter.Embedder gets constructed.
type engine struct {
	cfg        *config.Config
	metadata   *store.SQLiteMetadataStore
	keyword    *store.BleveKeywordIndex
	vector     *store.HNSWVectorIndex
	embedder   modeladapter.Embedder
	reranker   modeladapter.Reranker
	embedCache *embedcache.Cache
	parser     *parse.Parser
	indexer    *index.Indexer
	retriever  *retrieval.Retriever
}

// withDefaultPaths fills in any path the config didn't set explicitly,
// rooting them under cfg.DataDir() the way config.New's documented
// defaults imply but Load doesn't itself compute (Load only has enough
// information to default Paths.BaseDir, not the derived file paths).
func withDefaultPaths(cfg *config.Config) {
	dataDir := cfg.DataDir()
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = filepath.Join(dataDir, "metadata.db")
	}
	if cfg.Paths.VectorDBPath == "" {
		cfg.Paths.VectorDBPath = filepath.Join(dataDir, "vectors.hnsw")
	}
	if cfg.Paths.KeywordIndexPath == "" {
		cfg.Paths.KeywordIndexPath = filepath.Join(dataDir, "keyword.bleve")
	}
	if cfg.Paths.EmbeddingCachePath == "" {
		cfg.Paths.EmbeddingCachePath = filepath.Join(dataDir, "embedcache.db")
	}
}

// openEngine loads configuration rooted at root and opens every storage
// and model collaborator. Callers must call (*engine).Close.
func openEngine(ctx context.Context, root string) (*engine, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	withDefaultPaths(cfg)

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	metadata, err := store.NewSQLiteMetadataStore(cfg.Paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	keyword, err := store.NewBleveKeywordIndex(cfg.Paths.KeywordIndexPath)
	if err != nil {
		metadata.Close()
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	embedder, err := modeladapter.NewEmbedder(ctx, cfg.Models)
	if err != nil {
		metadata.Close()
		keyword.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	vector, err := store.NewHNSWVectorIndex(embedder.Dimensions(), "cos")
	if err != nil {
		metadata.Close()
		keyword.Close()
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	if _, statErr := os.Stat(cfg.Paths.VectorDBPath); statErr == nil {
		if err := vector.Load(cfg.Paths.VectorDBPath); err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
	}

	var cache *embedcache.Cache
	if cfg.Cache.Enabled {
		cache, err = embedcache.New(cfg.Paths.EmbeddingCachePath, cfg.Cache.MaxBytes)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
	}

	reranker := modeladapter.NewReranker(cfg.Retrieval.RerankerWeight > 0)

	parser := parse.NewParser()

	idx := index.New(index.Config{
		RootDir:          root,
		IncludePatterns:  cfg.Scan.IndexPatterns,
		ExcludePatterns:  cfg.Scan.ExcludePatterns,
		IndexNodeModules: cfg.Scan.IndexNodeModules,
		Workers:          cfg.Performance.IndexWorkers,
		PageRankDamping:  cfg.PageRank.Damping,
		PageRankIters:    cfg.PageRank.Iterations,
		PackageDetection: cfg.Packaging.Enabled,
	}.WithDefaults(), parser, embedder, metadata, keyword, vector)
	if cache != nil {
		idx = idx.WithEmbedCache(cache)
	}

	retriever := retrieval.New(retrieval.Config{
		VectorSearchLimit:         cfg.Retrieval.VectorSearchLimit,
		HybridAlpha:               cfg.Retrieval.HybridAlpha,
		RRFEnabled:                cfg.Retrieval.RRFEnabled,
		RRFK:                      cfg.Retrieval.RRFK,
		RRFWeightVector:           cfg.Retrieval.RRFWeightVector,
		RRFWeightKeyword:          cfg.Retrieval.RRFWeightKeyword,
		RRFWeightGraph:            cfg.Retrieval.RRFWeightGraph,
		RerankerWeight:            cfg.Retrieval.RerankerWeight,
		RerankerTopK:              cfg.Retrieval.RerankerTopK,
		RerankerConcurrency:       cfg.Performance.RerankerConcurrency,
		HyDEEnabled:               cfg.Retrieval.HyDEEnabled,
		PopularityWeight:          cfg.Retrieval.PopularityWeight,
		PopularityCap:             cfg.Retrieval.PopularityCap,
		LearningEnabled:           cfg.Learning.Enabled,
		LearningSelectionBoost:    cfg.Learning.SelectionBoost,
		LearningFileAffinityBoost: cfg.Learning.FileAffinityBoost,
	}.WithDefaults(), metadata, keyword, vector, embedder, reranker)

	return &engine{
		cfg:        cfg,
		metadata:   metadata,
		keyword:    keyword,
		vector:     vector,
		embedder:   embedder,
		reranker:   reranker,
		embedCache: cache,
		parser:     parser,
		indexer:    idx,
		retriever:  retriever,
	}, nil
}

// newAssembler builds the Context Assembler over eng's metadata store and
// a FileSourceLoader rooted at eng's project directory.
func newAssembler(eng *engine) (*assemble.Assembler, error) {
	return assemble.New(assemble.Config{
		MaxContextTokens: eng.cfg.Assembly.MaxContextTokens,
		TokenEncoding:    eng.cfg.Assembly.TokenEncoding,
	}.WithDefaults(), eng.metadata, assemble.NewFileSourceLoader(eng.cfg.Paths.BaseDir))
}

// Close persists the vector index and releases every opened store. Errors
// are joined rather than short-circuited so a failure closing one store
// doesn't skip cleanup of the others.
func (e *engine) Close() error {
	var errs []error
	if err := e.vector.Save(e.cfg.Paths.VectorDBPath); err != nil {
		errs = append(errs, fmt.Errorf("save vector index: %w", err))
	}
	if e.embedCache != nil {
		if err := e.embedCache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.vector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.keyword.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.metadata.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	msg := "engine close: "
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return fmt.Errorf("%s", msg)
}
