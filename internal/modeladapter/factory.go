package modeladapter

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/config"
)

// Default sidecar endpoints for the two HTTP-backed embedding backends.
// Both are local, in-process-adjacent model servers, never remote
// inference; override via CIE_JINACODE_ENDPOINT / CIE_FASTEMBED_ENDPOINT /
// CIE_RERANKER_ENDPOINT, since config.go's Models section (spec.md §6)
// doesn't itself name a sidecar URL key.
const (
	defaultJinacodeEndpoint = "http://127.0.0.1:7997/embed"
	defaultFastembedEndpoint = "http://127.0.0.1:7998/embed"
	defaultRerankerEndpoint  = "http://127.0.0.1:7999/rerank"
)

// NewEmbedder builds the Embedder named by cfg.Models.EmbeddingsBackend. The
// hash backend never fails; jinacode/fastembed are HTTP sidecars and are
// returned even when momentarily unreachable, since per spec.md §7 an
// unavailable embedding model degrades the affected pipeline stage rather
// than failing startup.
func NewEmbedder(_ context.Context, cfg config.ModelsConfig) (Embedder, error) {
	switch strings.ToLower(cfg.EmbeddingsBackend) {
	case "", "hash":
		return NewHashEmbedder(cfg.HashEmbeddingDim), nil

	case "jinacode":
		return NewHTTPEmbedder(HTTPEmbedConfig{
			Backend:  "jinacode",
			Endpoint: envOr("CIE_JINACODE_ENDPOINT", defaultJinacodeEndpoint),
			ModelID:  cfg.EmbeddingsModelID,
			Timeout:  60 * time.Second,
		}), nil

	case "fastembed":
		return NewHTTPEmbedder(HTTPEmbedConfig{
			Backend:  "fastembed",
			Endpoint: envOr("CIE_FASTEMBED_ENDPOINT", defaultFastembedEndpoint),
			ModelID:  cfg.EmbeddingsModelID,
			Timeout:  60 * time.Second,
		}), nil

	default:
		return nil, fmt.Errorf("unknown embeddings_backend: %q", cfg.EmbeddingsBackend)
	}
}

// NewReranker builds a Reranker. When enabled is false it returns
// NoOpReranker; otherwise it returns the HTTP adapter, whose Available() is
// probed at call time rather than baked in at startup.
func NewReranker(enabled bool) Reranker {
	if !enabled {
		return NoOpReranker{}
	}
	return NewHTTPReranker(HTTPRerankConfig{
		Endpoint: envOr("CIE_RERANKER_ENDPOINT", defaultRerankerEndpoint),
		Timeout:  15 * time.Second,
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
