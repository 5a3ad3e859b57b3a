package modeladapter

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

const (
	hashNgramSize   = 3
	hashTokenWeight = 0.7
	hashNgramWeight = 0.3
)

var hashStopWords = store.BuildStopWordMap(store.DefaultCodeStopWords)

// HashEmbedder is a deterministic, offline embedding backend: no model
// weights, no network, same vector for the same text every time. It is the
// default embeddings_backend ("hash").
//
// Token contributions reuse internal/store's code-aware tokenizer instead of
// duplicating camelCase/snake_case splitting logic.
type HashEmbedder struct {
	mu     sync.RWMutex
	dim    int
	closed bool
}

// NewHashEmbedder creates a hash embedder producing vectors of the given
// dimension (config's hash_embedding_dim, default 64).
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, fmt.Errorf("hash embedder is closed")
	}

	text = strings.TrimSpace(text)
	vec := make([]float32, e.dim)
	if text == "" {
		return vec, nil
	}

	tokens := store.FilterStopWords(store.TokenizeCode(text), hashStopWords)
	for _, tok := range tokens {
		idx := hashToIndex(tok, e.dim)
		vec[idx] += hashTokenWeight
	}

	for _, gram := range extractNgrams(normalizeForNgrams(text), hashNgramSize) {
		idx := hashToIndex(gram, e.dim)
		vec[idx] += hashNgramWeight
	}

	return normalizeVector(vec), nil
}

func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *HashEmbedder) Dimensions() int { return e.dim }

func (e *HashEmbedder) ModelName() string { return fmt.Sprintf("hash-%d", e.dim) }

func (e *HashEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

func (e *HashEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	grams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		grams = append(grams, text[i:i+n])
	}
	return grams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
