package index

import (
	"context"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// embedSymbols embeds each symbol's searchable text sequentially through
// the Model adapter, per spec.md §4.5 step 7, which keeps GPU/sidecar load
// predictable. The adapters hold no call mutex of their own, so this loop is
// what keeps the index run's embed calls sequential. A cache hit skips the
// call entirely.
func (ix *Indexer) embedSymbols(ctx context.Context, symbols []*store.Symbol, docs map[string]*store.Docstring) ([]*store.VectorRecord, error) {
	records := make([]*store.VectorRecord, 0, len(symbols))

	for _, sym := range symbols {
		if sym.Kind == store.KindFileRoot {
			continue
		}

		text := symbolText(sym, docs[sym.ID])
		vec, err := ix.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}

		records = append(records, &store.VectorRecord{
			ID:       sym.ID,
			Vector:   vec,
			Name:     sym.Name,
			Kind:     string(sym.Kind),
			FilePath: sym.FilePath,
			Exported: sym.Exported,
			Language: sym.Language,
			Text:     text,
		})
	}

	return records, nil
}

func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	modelName := ix.embedder.ModelName()

	if ix.embedCache != nil {
		if vec, ok, err := ix.embedCache.Get(modelName, text); err == nil && ok {
			return vec, nil
		}
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if ix.embedCache != nil {
		_ = ix.embedCache.Put(modelName, text, vec)
	}

	return vec, nil
}

// symbolText builds the text embedded for a symbol: name, signature, and
// docstring summary concatenated, giving the embedder both the declaration
// shape and its documented intent.
func symbolText(sym *store.Symbol, doc *store.Docstring) string {
	var b strings.Builder
	b.WriteString(sym.Name)
	if sym.Signature != "" {
		b.WriteString("\n")
		b.WriteString(sym.Signature)
	}
	if doc != nil && doc.Summary != "" {
		b.WriteString("\n")
		b.WriteString(doc.Summary)
	}
	return b.String()
}
