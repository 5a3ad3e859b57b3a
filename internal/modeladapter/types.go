// Package modeladapter defines the capability interfaces that decouple the
// Indexer and Retriever from concrete embedding and reranking backends, and
// ships a deterministic hash-based embedder that always works offline.
package modeladapter

import "context"

// Embedder generates vector embeddings for text. Concrete variants are
// selected at startup from config's embeddings_backend (jinacode, fastembed,
// hash).
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension this backend produces.
	Dimensions() int

	// ModelName returns the model identifier used as part of cache keys.
	ModelName() string

	// Available reports whether the backend is ready to serve requests.
	Available(ctx context.Context) bool

	// Close releases any resources (connections, loaded weights) held.
	Close() error
}

// RerankResult is a single reranked candidate, carrying its original
// position so callers can recover unrelated per-candidate context.
type RerankResult struct {
	Index    int
	Score    float64
	Document string
}

// Reranker scores (query, document) pairs with a cross-encoder model and
// returns results sorted by score descending. The Retriever blends this
// score with the pre-rerank base score at a fixed weight; it never trusts
// the reranker alone.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)
	Available(ctx context.Context) bool
	Close() error
}

// NoOpReranker preserves input order, assigning a strictly decreasing score
// so downstream blending still produces a stable ranking. NewReranker
// returns it when reranking is disabled.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.001, Document: doc}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (NoOpReranker) Available(_ context.Context) bool { return true }
func (NoOpReranker) Close() error                     { return nil }

var (
	_ Embedder = (*HashEmbedder)(nil)
	_ Reranker = NoOpReranker{}
)
