package assemble

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

// Tokenizer counts tokens against a named BPE encoding, defaulting to
// o200k_base per spec.md §4.8 and SPEC_FULL.md §4.8 — the one out-of-pack
// dependency this module carries, since no example repo ships a tokenizer
// library.
type Tokenizer struct {
	encoding string

	mu    sync.Mutex
	codec tokenizer.Codec
}

// NewTokenizer builds a Tokenizer for the named encoding. Unknown names fall
// back to o200k_base rather than failing assembly outright.
func NewTokenizer(encoding string) (*Tokenizer, error) {
	enc, ok := encodingByName(encoding)
	if !ok {
		enc = tokenizer.O200kBase
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, cierrors.ModelUnavailable(fmt.Sprintf("load tokenizer encoding %q", encoding), err)
	}
	return &Tokenizer{encoding: string(enc), codec: codec}, nil
}

func encodingByName(name string) (tokenizer.Encoding, bool) {
	switch name {
	case "", "o200k_base":
		return tokenizer.O200kBase, true
	case "cl100k_base":
		return tokenizer.Cl100kBase, true
	case "p50k_base":
		return tokenizer.P50kBase, true
	case "r50k_base":
		return tokenizer.R50kBase, true
	default:
		return "", false
	}
}

// Count returns the token count of text under this Tokenizer's encoding.
func (t *Tokenizer) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.codec.Count(text)
	if err != nil {
		return 0, cierrors.ModelUnavailable("count tokens", err)
	}
	return n, nil
}
