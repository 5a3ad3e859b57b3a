package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

// HTTPRerankConfig configures an HTTPReranker against a local cross-encoder
// sidecar, the same "opaque callable model" treatment as HTTPEmbedConfig.
type HTTPRerankConfig struct {
	Endpoint string
	ModelID  string
	Timeout  time.Duration
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// HTTPReranker calls a local cross-encoder sidecar to score (query,
// document) pairs. Used when the reranker is enabled; when Available reports
// false the Retriever skips reranking and keeps the pre-rerank scores.
type HTTPReranker struct {
	client *http.Client
	cfg    HTTPRerankConfig

	mu     sync.RWMutex
	closed bool
}

var _ Reranker = (*HTTPReranker)(nil)

func NewHTTPReranker(cfg HTTPRerankConfig) *HTTPReranker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPReranker{client: &http.Client{Timeout: cfg.Timeout}, cfg: cfg}
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, cierrors.ModelUnavailable("reranker is closed", nil)
	}
	r.mu.RUnlock()

	if len(documents) == 0 {
		return nil, nil
	}

	scores, err := cierrors.RetryWithResult(ctx, cierrors.DefaultRetryConfig(), func() ([]float64, error) {
		return r.doRerank(ctx, query, documents)
	})
	if err != nil {
		return nil, err
	}

	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Index: i, Score: scores[i], Document: doc}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (r *HTTPReranker) doRerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Model: r.cfg.ModelID, Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, cierrors.ModelUnavailable(fmt.Sprintf("rerank request failed: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, cierrors.ModelUnavailable(fmt.Sprintf("rerank server returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank server returned %d", resp.StatusCode)
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(out.Scores) != len(documents) {
		return nil, fmt.Errorf("rerank server returned %d scores for %d documents", len(out.Scores), len(documents))
	}
	return out.Scores, nil
}

func (r *HTTPReranker) Available(ctx context.Context) bool {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false
	}
	r.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.Endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (r *HTTPReranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.client.CloseIdleConnections()
	return nil
}
