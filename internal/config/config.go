// Package config loads and validates the engine's configuration: recognized
// keys per spec.md §6, layered user config -> project config -> environment
// variables, exactly the precedence order the teacher documents.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Scan        ScanConfig        `yaml:"scan" json:"scan"`
	Models      ModelsConfig      `yaml:"models" json:"models"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	Assembly    AssemblyConfig    `yaml:"assembly" json:"assembly"`
	Learning    LearningConfig    `yaml:"learning" json:"learning"`
	PageRank    PageRankConfig    `yaml:"pagerank" json:"pagerank"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Packaging   PackagingConfig   `yaml:"packaging" json:"packaging"`
	Observ      ObservConfig      `yaml:"observability" json:"observability"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
}

// PathsConfig holds all filesystem locations (spec.md §6 "Paths").
type PathsConfig struct {
	BaseDir            string   `yaml:"base_dir" json:"base_dir"`
	DBPath             string   `yaml:"db_path" json:"db_path"`
	VectorDBPath       string   `yaml:"vector_db_path" json:"vector_db_path"`
	KeywordIndexPath   string   `yaml:"keyword_index_path" json:"keyword_index_path"`
	EmbeddingsModelDir string   `yaml:"embeddings_model_dir" json:"embeddings_model_dir"`
	EmbeddingCachePath string   `yaml:"embedding_cache_path" json:"embedding_cache_path"`
	RepoRoots          []string `yaml:"repo_roots" json:"repo_roots"`
}

// ScanConfig controls file discovery and watching (spec.md §6 "Scan").
type ScanConfig struct {
	IndexPatterns     []string `yaml:"index_patterns" json:"index_patterns"`
	ExcludePatterns   []string `yaml:"exclude_patterns" json:"exclude_patterns"`
	IndexNodeModules  bool     `yaml:"index_node_modules" json:"index_node_modules"`
	WatchMode         bool     `yaml:"watch_mode" json:"watch_mode"`
	WatchDebounceMS   int      `yaml:"watch_debounce_ms" json:"watch_debounce_ms"`
}

// ModelsConfig selects the embedding backend (spec.md §6 "Models").
type ModelsConfig struct {
	EmbeddingsBackend string `yaml:"embeddings_backend" json:"embeddings_backend"`
	EmbeddingsDevice  string `yaml:"embeddings_device" json:"embeddings_device"`
	EmbeddingsModelID string `yaml:"embeddings_model_id" json:"embeddings_model_id"`
	HashEmbeddingDim  int    `yaml:"hash_embedding_dim" json:"hash_embedding_dim"`
	EmbeddingBatchSize int   `yaml:"embedding_batch_size" json:"embedding_batch_size"`
	MaxThreads        int    `yaml:"max_threads" json:"max_threads"`
}

// RetrievalConfig controls hybrid search fusion and reranking (spec.md §6 "Retrieval").
type RetrievalConfig struct {
	VectorSearchLimit int     `yaml:"vector_search_limit" json:"vector_search_limit"`
	HybridAlpha       float64 `yaml:"hybrid_alpha" json:"hybrid_alpha"`
	WeightVector      float64 `yaml:"weight_vector" json:"weight_vector"`
	WeightKeyword     float64 `yaml:"weight_keyword" json:"weight_keyword"`
	ExportedBoost     float64 `yaml:"exported_boost" json:"exported_boost"`
	IndexFileBoost    float64 `yaml:"index_file_boost" json:"index_file_boost"`
	TestPenalty       float64 `yaml:"test_penalty" json:"test_penalty"`
	PopularityWeight  float64 `yaml:"popularity_weight" json:"popularity_weight"`
	PopularityCap     float64 `yaml:"popularity_cap" json:"popularity_cap"`
	RRFEnabled        bool    `yaml:"rrf_enabled" json:"rrf_enabled"`
	RRFK              int     `yaml:"rrf_k" json:"rrf_k"`
	RRFWeightVector   float64 `yaml:"rrf_weight_vector" json:"rrf_weight_vector"`
	RRFWeightKeyword  float64 `yaml:"rrf_weight_keyword" json:"rrf_weight_keyword"`
	RRFWeightGraph    float64 `yaml:"rrf_weight_graph" json:"rrf_weight_graph"`
	RerankerWeight    float64 `yaml:"reranker_weight" json:"reranker_weight"`
	RerankerTopK      int     `yaml:"reranker_top_k" json:"reranker_top_k"`
	HyDEEnabled       bool    `yaml:"hyde_enabled" json:"hyde_enabled"`
}

// AssemblyConfig controls the Context Assembler's token budget (spec.md §6 "Assembly").
type AssemblyConfig struct {
	MaxContextTokens int    `yaml:"max_context_tokens" json:"max_context_tokens"`
	TokenEncoding    string `yaml:"token_encoding" json:"token_encoding"`
	MaxContextBytes  int    `yaml:"max_context_bytes" json:"max_context_bytes"`
}

// LearningConfig controls selection/affinity feedback loops (spec.md §6 "Learning").
type LearningConfig struct {
	Enabled              bool    `yaml:"learning_enabled" json:"learning_enabled"`
	SelectionBoost       float64 `yaml:"learning_selection_boost" json:"learning_selection_boost"`
	FileAffinityBoost    float64 `yaml:"learning_file_affinity_boost" json:"learning_file_affinity_boost"`
}

// PageRankConfig controls the graph centrality pass (spec.md §6 "PageRank").
type PageRankConfig struct {
	Iterations int     `yaml:"pagerank_iterations" json:"pagerank_iterations"`
	Damping    float64 `yaml:"damping" json:"damping"`
}

// CacheConfig controls the embedding cache (spec.md §6 "Cache").
type CacheConfig struct {
	Enabled      bool  `yaml:"embedding_cache_enabled" json:"embedding_cache_enabled"`
	MaxBytes     int64 `yaml:"embedding_cache_max_bytes" json:"embedding_cache_max_bytes"`
}

// PackagingConfig controls manifest-based package detection (spec.md §6 "Packaging").
type PackagingConfig struct {
	Enabled bool `yaml:"package_detection_enabled" json:"package_detection_enabled"`
}

// ObservConfig controls the metrics endpoint (spec.md §6 "Observability").
type ObservConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled" json:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port" json:"metrics_port"`
}

// ServerConfig configures the MCP tool surface transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// PerformanceConfig configures indexer concurrency.
type PerformanceConfig struct {
	IndexWorkers  int `yaml:"index_workers" json:"index_workers"`
	RerankerConcurrency int `yaml:"reranker_concurrency" json:"reranker_concurrency"`
}

// defaultExcludePatterns are always excluded, mirroring the teacher's list.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
}

// New returns a Config populated with spec.md §6's documented defaults.
func New() *Config {
	return &Config{
		Paths: PathsConfig{
			RepoRoots: []string{},
		},
		Scan: ScanConfig{
			IndexPatterns:    []string{"**/*"},
			ExcludePatterns:  defaultExcludePatterns,
			IndexNodeModules: false,
			WatchMode:        true,
			WatchDebounceMS:  250,
		},
		Models: ModelsConfig{
			EmbeddingsBackend:  "hash",
			EmbeddingsDevice:   "cpu",
			HashEmbeddingDim:   64,
			EmbeddingBatchSize: 32,
			MaxThreads:         runtime.NumCPU(),
		},
		Retrieval: RetrievalConfig{
			VectorSearchLimit: 20,
			HybridAlpha:       0.7,
			WeightVector:      1.0,
			WeightKeyword:     1.0,
			ExportedBoost:     1.1,
			IndexFileBoost:    1.05,
			TestPenalty:       0.9,
			PopularityWeight:  0.1,
			PopularityCap:     1.0,
			RRFEnabled:        true,
			RRFK:              60,
			RRFWeightVector:   1.0,
			RRFWeightKeyword:  1.0,
			RRFWeightGraph:    0.5,
			RerankerWeight:    0.3,
			RerankerTopK:      20,
			HyDEEnabled:       false,
		},
		Assembly: AssemblyConfig{
			MaxContextTokens: 8192,
			TokenEncoding:    "o200k_base",
		},
		Learning: LearningConfig{
			Enabled:           false,
			SelectionBoost:    0.05,
			FileAffinityBoost: 0.05,
		},
		PageRank: PageRankConfig{
			Iterations: 20,
			Damping:    0.85,
		},
		Cache: CacheConfig{
			Enabled:  true,
			MaxBytes: 512 * 1024 * 1024,
		},
		Packaging: PackagingConfig{
			Enabled: true,
		},
		Observ: ObservConfig{
			MetricsEnabled: true,
			MetricsPort:    9090,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Performance: PerformanceConfig{
			IndexWorkers:        runtime.NumCPU(),
			RerankerConcurrency: 4,
		},
	}
}

// GetUserConfigPath returns the user/global config path following the XDG
// base directory spec: $XDG_CONFIG_HOME/cie/config.yaml, else ~/.config/cie/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cie", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "cie", "config.yaml")
	}
	return filepath.Join(home, ".config", "cie", "config.yaml")
}

// Load builds the final Config for project directory dir, applying in order
// of increasing precedence: 1) hardcoded defaults, 2) user/global config
// (GetUserConfigPath), 3) project config (.cie.yaml in dir), 4) CIE_*
// environment variables. If no layer sets base_dir, it defaults to dir.
func Load(dir string) (*Config, error) {
	cfg := New()

	if userCfg, err := loadIfExists(GetUserConfigPath()); err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	projectPath := filepath.Join(dir, ".cie.yaml")
	if projCfg, err := loadIfExists(projectPath); err != nil {
		return nil, fmt.Errorf("load project config %s: %w", projectPath, err)
	} else if projCfg != nil {
		cfg.mergeWith(projCfg)
	}

	cfg.applyEnvOverrides()

	if cfg.Paths.BaseDir == "" {
		cfg.Paths.BaseDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadIfExists(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &parsed, nil
}

// mergeWith overlays the non-zero values of the fields listed below from
// other onto c; exclude patterns are appended rather than replaced. Fields
// not listed (booleans such as watch_mode and learning_enabled, the fusion
// weights and boosts, damping) are not merged and keep their current value.
func (c *Config) mergeWith(other *Config) {
	if other.Paths.BaseDir != "" {
		c.Paths.BaseDir = other.Paths.BaseDir
	}
	if other.Paths.DBPath != "" {
		c.Paths.DBPath = other.Paths.DBPath
	}
	if other.Paths.VectorDBPath != "" {
		c.Paths.VectorDBPath = other.Paths.VectorDBPath
	}
	if other.Paths.KeywordIndexPath != "" {
		c.Paths.KeywordIndexPath = other.Paths.KeywordIndexPath
	}
	if other.Paths.EmbeddingsModelDir != "" {
		c.Paths.EmbeddingsModelDir = other.Paths.EmbeddingsModelDir
	}
	if other.Paths.EmbeddingCachePath != "" {
		c.Paths.EmbeddingCachePath = other.Paths.EmbeddingCachePath
	}
	if len(other.Paths.RepoRoots) > 0 {
		c.Paths.RepoRoots = other.Paths.RepoRoots
	}

	if len(other.Scan.IndexPatterns) > 0 {
		c.Scan.IndexPatterns = other.Scan.IndexPatterns
	}
	if len(other.Scan.ExcludePatterns) > 0 {
		c.Scan.ExcludePatterns = append(c.Scan.ExcludePatterns, other.Scan.ExcludePatterns...)
	}
	if other.Scan.WatchDebounceMS != 0 {
		c.Scan.WatchDebounceMS = other.Scan.WatchDebounceMS
	}

	if other.Models.EmbeddingsBackend != "" {
		c.Models.EmbeddingsBackend = other.Models.EmbeddingsBackend
	}
	if other.Models.EmbeddingsDevice != "" {
		c.Models.EmbeddingsDevice = other.Models.EmbeddingsDevice
	}
	if other.Models.EmbeddingsModelID != "" {
		c.Models.EmbeddingsModelID = other.Models.EmbeddingsModelID
	}
	if other.Models.HashEmbeddingDim != 0 {
		c.Models.HashEmbeddingDim = other.Models.HashEmbeddingDim
	}
	if other.Models.EmbeddingBatchSize != 0 {
		c.Models.EmbeddingBatchSize = other.Models.EmbeddingBatchSize
	}
	if other.Models.MaxThreads != 0 {
		c.Models.MaxThreads = other.Models.MaxThreads
	}

	if other.Retrieval.VectorSearchLimit != 0 {
		c.Retrieval.VectorSearchLimit = other.Retrieval.VectorSearchLimit
	}
	if other.Retrieval.HybridAlpha != 0 {
		c.Retrieval.HybridAlpha = other.Retrieval.HybridAlpha
	}
	if other.Retrieval.RRFK != 0 {
		c.Retrieval.RRFK = other.Retrieval.RRFK
	}
	if other.Retrieval.RerankerWeight != 0 {
		c.Retrieval.RerankerWeight = other.Retrieval.RerankerWeight
	}
	if other.Retrieval.RerankerTopK != 0 {
		c.Retrieval.RerankerTopK = other.Retrieval.RerankerTopK
	}

	if other.Assembly.MaxContextTokens != 0 {
		c.Assembly.MaxContextTokens = other.Assembly.MaxContextTokens
	}
	if other.Assembly.TokenEncoding != "" {
		c.Assembly.TokenEncoding = other.Assembly.TokenEncoding
	}
	if other.Assembly.MaxContextBytes != 0 {
		c.Assembly.MaxContextBytes = other.Assembly.MaxContextBytes
	}

	if other.Learning.SelectionBoost != 0 {
		c.Learning.SelectionBoost = other.Learning.SelectionBoost
	}
	if other.Learning.FileAffinityBoost != 0 {
		c.Learning.FileAffinityBoost = other.Learning.FileAffinityBoost
	}

	if other.PageRank.Iterations != 0 {
		c.PageRank.Iterations = other.PageRank.Iterations
	}

	if other.Cache.MaxBytes != 0 {
		c.Cache.MaxBytes = other.Cache.MaxBytes
	}

	if other.Observ.MetricsPort != 0 {
		c.Observ.MetricsPort = other.Observ.MetricsPort
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.RerankerConcurrency != 0 {
		c.Performance.RerankerConcurrency = other.Performance.RerankerConcurrency
	}
}

// applyEnvOverrides applies CIE_* environment variable overrides, highest
// precedence per spec.md §6.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CIE_BASE_DIR"); v != "" {
		c.Paths.BaseDir = v
	}
	if v := os.Getenv("CIE_EMBEDDINGS_BACKEND"); v != "" {
		c.Models.EmbeddingsBackend = v
	}
	if v := os.Getenv("CIE_EMBEDDINGS_MODEL_ID"); v != "" {
		c.Models.EmbeddingsModelID = v
	}
	if v := os.Getenv("CIE_HYBRID_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Retrieval.HybridAlpha = f
		}
	}
	if v := os.Getenv("CIE_RRF_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Retrieval.RRFK = k
		}
	}
	if v := os.Getenv("CIE_MAX_CONTEXT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Assembly.MaxContextTokens = n
		}
	}
	if v := os.Getenv("CIE_LEARNING_ENABLED"); v != "" {
		c.Learning.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("CIE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CIE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CIE_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Observ.MetricsPort = p
		}
	}
}

// Validate checks required fields and value ranges, returning a plain error
// (wrapped into cierrors.ConfigInvalid by callers at the startup boundary).
func (c *Config) Validate() error {
	if c.Paths.BaseDir == "" {
		return fmt.Errorf("paths.base_dir is required")
	}
	if c.Retrieval.HybridAlpha < 0 || c.Retrieval.HybridAlpha > 1 {
		return fmt.Errorf("retrieval.hybrid_alpha must be between 0 and 1, got %f", c.Retrieval.HybridAlpha)
	}
	if c.Retrieval.RRFK <= 0 {
		return fmt.Errorf("retrieval.rrf_k must be positive, got %d", c.Retrieval.RRFK)
	}
	if c.Assembly.MaxContextTokens <= 0 {
		return fmt.Errorf("assembly.max_context_tokens must be positive, got %d", c.Assembly.MaxContextTokens)
	}
	if math.Abs(c.PageRank.Damping-0.85) > 1e-9 {
		return fmt.Errorf("pagerank.damping must be 0.85, got %f", c.PageRank.Damping)
	}
	validBackends := map[string]bool{"jinacode": true, "fastembed": true, "hash": true}
	if !validBackends[strings.ToLower(c.Models.EmbeddingsBackend)] {
		return fmt.Errorf("models.embeddings_backend must be 'jinacode', 'fastembed', or 'hash', got %s", c.Models.EmbeddingsBackend)
	}
	validDevices := map[string]bool{"cpu": true, "metal": true}
	if !validDevices[strings.ToLower(c.Models.EmbeddingsDevice)] {
		return fmt.Errorf("models.embeddings_device must be 'cpu' or 'metal', got %s", c.Models.EmbeddingsDevice)
	}
	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// WriteYAML persists c to path, used by a `cie-server init` style command.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DataDir returns <base_dir>/.cie, the default directory for C1-C4's
// persisted state; the explicit path fields are not consulted here.
func (c *Config) DataDir() string {
	return filepath.Join(c.Paths.BaseDir, ".cie")
}
