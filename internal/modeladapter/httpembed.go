package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

// HTTPEmbedConfig configures an HTTPEmbedder against a local model server.
// jinacode and fastembed are both run as an out-of-process sidecar exposing
// a minimal embeddings endpoint, never a remote inference call.
type HTTPEmbedConfig struct {
	// Backend is "jinacode" or "fastembed"; only used for ModelName/logging.
	Backend string
	// Endpoint is the sidecar's embeddings URL, e.g. http://127.0.0.1:7997/embed.
	Endpoint string
	// ModelID is the model identifier passed in each request body.
	ModelID string
	// Dimensions is the expected embedding width; 0 lets the first response decide.
	Dimensions int
	Timeout    time.Duration
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedder calls a local embeddings sidecar over HTTP. It backs both the
// jinacode and fastembed backends, which differ only in endpoint/model id,
// not in wire shape.
type HTTPEmbedder struct {
	client *http.Client
	cfg    HTTPEmbedConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates an embedder against cfg.Endpoint. No network call
// is made until the first Embed/EmbedBatch/Available.
func NewHTTPEmbedder(cfg HTTPEmbedConfig) *HTTPEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPEmbedder{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		dims:   cfg.Dimensions,
	}
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, cierrors.ModelUnavailable(fmt.Sprintf("%s embedder is closed", e.cfg.Backend), nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := cierrors.RetryWithResult(ctx, cierrors.DefaultRetryConfig(), func() ([][]float32, error) {
		return e.doEmbed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.dims == 0 && len(vecs) > 0 {
		e.dims = len(vecs[0])
	}
	e.mu.Unlock()

	return vecs, nil
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.ModelID, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, cierrors.ModelUnavailable(fmt.Sprintf("%s embed request failed: %v", e.cfg.Backend, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, cierrors.ModelUnavailable(fmt.Sprintf("%s embed server returned %d", e.cfg.Backend, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s embed server returned %d: %s", e.cfg.Backend, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%s embed server returned %d vectors for %d inputs", e.cfg.Backend, len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

func (e *HTTPEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

func (e *HTTPEmbedder) ModelName() string {
	return fmt.Sprintf("%s:%s", e.cfg.Backend, e.cfg.ModelID)
}

func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.Endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
