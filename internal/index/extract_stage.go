package index

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/parse"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// extractFile runs Parse -> Extract for one scanned file (content already
// read by the caller, which needs it for the fingerprint check anyway) and
// returns its ExtractionResult, with edges still provisional (name-only) at
// this point; resolveEdges (stage 5) concretizes them. Returns (nil, nil, nil)
// for files this Indexer intentionally skips (unsupported language, binary
// content).
func (ix *Indexer) extractFile(ctx context.Context, sr ScanResult, content []byte) (*store.ExtractionResult, []*parse.ProvisionalEdge, error) {
	lang, ok := ix.parser.LanguageFor(filepath.Ext(sr.RelPath))
	if !ok {
		return nil, nil, nil
	}

	if isBinary(content) {
		return nil, nil, nil
	}

	tree, err := ix.parser.Parse(ctx, content, lang)
	if err != nil {
		return nil, nil, fmt.Errorf("parse file: %w", err)
	}

	cfg, ok := ix.parser.Config(lang)
	if !ok {
		return nil, nil, nil
	}

	fx := parse.Extract(tree, sr.RelPath, cfg)

	result := &store.ExtractionResult{
		FilePath:   sr.RelPath,
		Symbols:    fx.Symbols,
		Docstrings: fx.Docstrings,
		Decorators: fx.Decorators,
		TODOs:      fx.TODOs,
		Fingerprint: store.Fingerprint{
			Path:        sr.RelPath,
			MTimeNanos:  sr.ModTime,
			SizeBytes:   sr.Size,
			ContentHash: hashContent(content),
		},
	}

	return result, fx.Edges, nil
}

// isBinary applies the common content sniff: a file is treated as binary if
// it contains a NUL byte or is not valid UTF-8 within its first 8KB, since
// the engine only indexes source text.
func isBinary(content []byte) bool {
	probe := content
	const probeLen = 8192
	if len(probe) > probeLen {
		probe = probe[:probeLen]
	}
	if bytes.IndexByte(probe, 0) != -1 {
		return true
	}
	return !utf8.Valid(probe)
}
