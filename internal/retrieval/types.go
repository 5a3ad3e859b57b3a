// Package retrieval implements the Retriever (C7): query parsing and
// intent classification, decomposition, per-source fan-out across the
// Keyword Index, Vector Index, and Graph Engine, unified RRF fusion,
// cross-encoder reranking, the six-stage signal pipeline, diversification,
// and final top-N selection, exactly the stages of spec.md §4.7.
package retrieval

import (
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/graph"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/modeladapter"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// Intent enumerates the recognized query intents, detected by most-specific-
// first pattern match per spec.md §4.7 step 1.
type Intent string

const (
	IntentMigration  Intent = "migration"
	IntentSchema     Intent = "schema"
	IntentTest       Intent = "test"
	IntentDefinition Intent = "definition"
	IntentCallers    Intent = "callers"
	IntentError      Intent = "error"
	IntentGeneral    Intent = "general"
)

// Controls are the inline query directives stripped during parsing.
type Controls struct {
	Package string // from "pkg:<name>" or "package:<name>"
}

// ParsedQuery is the output of query parsing: the stripped/normalized text,
// detected intent, and any inline controls.
type ParsedQuery struct {
	Raw        string
	Normalized string
	Intent     Intent
	Controls   Controls
	CallerName string // populated when Intent == IntentCallers
}

// SubQuery is one decomposed fragment of a conjunctive query, carrying its
// relative RRF weight.
type SubQuery struct {
	Query  string
	Weight float64
}

// Weights are the per-source RRF weights (spec.md §6 Retrieval defaults:
// keyword 1.0, vector 1.0, graph 0.5).
type Weights struct {
	Keyword float64
	Vector  float64
	Graph   float64
}

// DefaultWeights returns spec.md's documented RRF source weights.
func DefaultWeights() Weights {
	return Weights{Keyword: 1.0, Vector: 1.0, Graph: 0.5}
}

// HitSignals records each signal's individual contribution to a hit's final
// score, in application order, so `explain_search` can show its full
// derivation (spec.md §4.7 step 6 requires every signal to record into this).
type HitSignals struct {
	BaseScore        float64
	TestPenalty      float64
	GlueFilePenalty  float64
	DirectoryAdjust  float64
	ExportBoost      float64
	IntentMult       float64
	PopularityBoost  float64
	DocBoost         float64
	SelectionBoost   float64
	AffinityBoost    float64
	PackageBoost     float64
	RerankerScore    float64
	RerankerApplied  bool
}

// Hit is one ranked candidate flowing through fusion, reranking, signals,
// and diversification.
type Hit struct {
	Symbol   *store.Symbol
	Score    float64
	Signals  HitSignals
	Sources  map[string]int // source name -> rank (1-indexed) it appeared at
}

// Config gathers the Retriever's settings in one flat struct; most fields
// correspond to config.RetrievalConfig/LearningConfig fields, which the
// caller copies across one by one.
type Config struct {
	VectorSearchLimit int
	HybridAlpha       float64 // weight on vector score when RRFEnabled is false
	RRFEnabled        bool
	RRFK              int
	RRFWeightVector   float64
	RRFWeightKeyword  float64
	RRFWeightGraph    float64
	RerankerWeight    float64
	RerankerTopK      int
	RerankerConcurrency int
	HyDEEnabled       bool

	PopularityWeight float64
	PopularityCap    float64

	LearningEnabled           bool
	LearningSelectionBoost    float64
	LearningFileAffinityBoost float64

	ResultCacheSize int
}

// WithDefaults fills zero-value fields with spec.md §6's documented defaults.
func (c Config) WithDefaults() Config {
	if c.VectorSearchLimit <= 0 {
		c.VectorSearchLimit = 20
	}
	if c.HybridAlpha <= 0 {
		c.HybridAlpha = 0.7
	}
	if c.RRFK <= 0 {
		c.RRFK = 60
	}
	if c.RRFWeightVector <= 0 {
		c.RRFWeightVector = 1.0
	}
	if c.RRFWeightKeyword <= 0 {
		c.RRFWeightKeyword = 1.0
	}
	if c.RRFWeightGraph <= 0 {
		c.RRFWeightGraph = 0.5
	}
	if c.RerankerWeight <= 0 {
		c.RerankerWeight = 0.30
	}
	if c.RerankerTopK <= 0 {
		c.RerankerTopK = 20
	}
	if c.RerankerConcurrency <= 0 {
		c.RerankerConcurrency = 4
	}
	if c.PopularityWeight <= 0 {
		c.PopularityWeight = 0.05
	}
	if c.PopularityCap <= 0 {
		c.PopularityCap = 50
	}
	if c.ResultCacheSize <= 0 {
		c.ResultCacheSize = 256
	}
	return c
}

// Request is one search_code-style query.
type Request struct {
	Query string
	Limit int
}

// Result is the Retriever's final ordered output for one request.
type Result struct {
	Hits   []*Hit
	Intent Intent
	Query  ParsedQuery
}

// Retriever orchestrates the full C7 pipeline.
type Retriever struct {
	cfg      Config
	metadata store.MetadataStore
	keyword  store.KeywordIndex
	vector   store.VectorIndex
	embedder modeladapter.Embedder
	reranker modeladapter.Reranker

	decomposer  *PatternDecomposer
	classifier  *PatternClassifier
	resultCache *resultCache

	now func() time.Time
}

// New builds a Retriever over the three storage contracts, the Model
// adapter, and a Reranker (modeladapter.NoOpReranker is a valid choice when
// reranking is disabled or unavailable).
func New(cfg Config, metadata store.MetadataStore, keyword store.KeywordIndex, vector store.VectorIndex, embedder modeladapter.Embedder, reranker modeladapter.Reranker) *Retriever {
	cfg = cfg.WithDefaults()
	return &Retriever{
		cfg:         cfg,
		metadata:    metadata,
		keyword:     keyword,
		vector:      vector,
		embedder:    embedder,
		reranker:    reranker,
		decomposer:  NewPatternDecomposer(),
		classifier:  NewPatternClassifier(),
		resultCache: newResultCache(cfg.ResultCacheSize),
		now:         time.Now,
	}
}

// graphNeighbors names the graph.Adjacency method the Retriever calls for
// Callers/Definition seeding. The Retriever takes a *graph.Adjacency
// directly, and no code uses this interface.
type graphNeighbors interface {
	CallHierarchy(symbolID string, dir graph.Direction, maxDepth int) []graph.Hit
}
