package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoizes assembled Results keyed by everything spec.md §4.7.2
// says could change the output, grounded on the teacher's classifier.go
// lru.Cache usage pattern.
type resultCache struct {
	cache *lru.Cache[string, *Result]
}

// newResultCache builds a cache with the given capacity; size<=0 falls back
// to a single-entry cache, which still serves an immediately repeated query.
func newResultCache(size int) *resultCache {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, *Result](size)
	return &resultCache{cache: c}
}

// cacheKeyInputs is everything that could change an assembled Result.
type cacheKeyInputs struct {
	NormalizedQuery string
	Intent          Intent
	MaxTokens       int
	Weights         Weights
	RerankerWeight  float64
	LearningEnabled bool
	ControlPackage  string
}

func (c *resultCache) key(in cacheKeyInputs) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s|intent=%s|tok=%d|w=%.4f,%.4f,%.4f|rr=%.4f|learn=%t|pkg=%s",
		in.NormalizedQuery, in.Intent, in.MaxTokens,
		in.Weights.Keyword, in.Weights.Vector, in.Weights.Graph,
		in.RerankerWeight, in.LearningEnabled, in.ControlPackage)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) Get(in cacheKeyInputs) (*Result, bool) {
	return c.cache.Get(c.key(in))
}

func (c *resultCache) Put(in cacheKeyInputs, result *Result) {
	c.cache.Add(c.key(in), result)
}

// queryHashForTruncation hashes just the trimmed query text into a short hex
// digest. resultCache's key does not include it: cacheKeyInputs keys on
// NormalizedQuery, and no code outside the tests calls this function.
func queryHashForTruncation(query string) string {
	h := sha256.Sum256([]byte(strings.TrimSpace(query)))
	return hex.EncodeToString(h[:8])
}
