package index

import (
	"context"
	"path"
	"strings"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/parse"
	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// resolveEdges turns a file's provisional (name-only) edges into concrete
// store.Edge rows, per spec.md §4.5 step 5's two-tier resolution:
//
//   - local: resolved purely against the file's own freshly-extracted
//     symbol table, no store access.
//   - enhanced (package / cross-package / import / cross-package-import):
//     resolved against the metadata store, which may know about symbols
//     from files indexed in earlier rounds.
//
// An edge whose target cannot be resolved at all is dropped rather than
// committed dangling, per the Edge invariant: "both endpoints must refer to
// existing symbols at query time".
func (ix *Indexer) resolveEdges(ctx context.Context, relPath string, localSymbols []*store.Symbol, provisional []*parse.ProvisionalEdge) []*store.Edge {
	byName := make(map[string][]*store.Symbol, len(localSymbols))
	for _, s := range localSymbols {
		byName[s.Name] = append(byName[s.Name], s)
	}

	sourcePkg, _ := ix.metadata.GetPackageForFile(ctx, relPath)

	edges := make([]*store.Edge, 0, len(provisional))
	for _, pe := range provisional {
		switch pe.Kind {
		case store.EdgeImport:
			if e := ix.resolveImportEdge(ctx, relPath, sourcePkg, pe); e != nil {
				edges = append(edges, e)
			}
		default:
			if e := ix.resolveNameEdge(ctx, sourcePkg, byName, pe); e != nil {
				edges = append(edges, e)
			}
		}
	}
	return edges
}

// resolveNameEdge resolves a call/reference-style edge: first against the
// file-local symbol table (tier "local"), then against the metadata store
// by bare name (tier "package"/"cross-package"). An ambiguous name resolves
// to its first candidate; unmatched names are dropped.
func (ix *Indexer) resolveNameEdge(ctx context.Context, sourcePkg *store.Package, local map[string][]*store.Symbol, pe *parse.ProvisionalEdge) *store.Edge {
	if candidates, ok := local[pe.ToName]; ok && len(candidates) > 0 {
		return &store.Edge{
			FromSymbolID: pe.FromSymbolID,
			ToSymbolID:   candidates[0].ID,
			Kind:         pe.Kind,
			AtFile:       pe.AtFile,
			AtLine:       pe.AtLine,
			EvidenceCount: 1,
			Resolution:   store.ResolutionLocal,
		}
	}

	matches, err := ix.metadata.FindSymbolsByName(ctx, pe.ToName, 8)
	if err != nil || len(matches) == 0 {
		return nil
	}

	target := matches[0]
	resolution := store.ResolutionUnknown
	if sourcePkg != nil {
		if targetPkg, _ := ix.metadata.GetPackageForFile(ctx, target.FilePath); targetPkg != nil {
			if targetPkg.ID == sourcePkg.ID {
				resolution = store.ResolutionPackage
			} else {
				resolution = store.ResolutionCrossPackage
			}
		}
	}

	return &store.Edge{
		FromSymbolID:  pe.FromSymbolID,
		ToSymbolID:    target.ID,
		Kind:          pe.Kind,
		AtFile:        pe.AtFile,
		AtLine:        pe.AtLine,
		EvidenceCount: 1,
		Resolution:    resolution,
	}
}

// resolveImportEdge resolves an import edge's target to the imported file's
// synthetic file-root symbol, when the import specifier is a relative path
// this repository actually contains (the common case for JS/TS/Python
// relative imports). Go-style module-path imports and genuinely external
// packages (stdlib, npm, pip) have no in-repo file-root symbol to point at
// and are dropped rather than committed dangling — tracking external
// package dependencies is out of scope for the edge graph.
func (ix *Indexer) resolveImportEdge(ctx context.Context, relPath string, sourcePkg *store.Package, pe *parse.ProvisionalEdge) *store.Edge {
	candidates, ok := candidateImportPaths(relPath, pe.ToName)
	if !ok {
		return nil
	}

	var root *store.Symbol
	var target string
	for _, cand := range candidates {
		symbols, err := ix.metadata.GetSymbolsByFile(ctx, cand)
		if err != nil || len(symbols) == 0 {
			continue
		}
		for _, s := range symbols {
			if s.Kind == store.KindFileRoot {
				root = s
				target = cand
				break
			}
		}
		if root != nil {
			break
		}
	}
	if root == nil {
		return nil
	}

	resolution := store.ResolutionImport
	if sourcePkg != nil {
		if targetPkg, _ := ix.metadata.GetPackageForFile(ctx, target); targetPkg != nil && targetPkg.ID != sourcePkg.ID {
			resolution = store.ResolutionCrossPackageImport
		}
	}

	return &store.Edge{
		FromSymbolID:  pe.FromSymbolID,
		ToSymbolID:    root.ID,
		Kind:          store.EdgeImport,
		AtFile:        pe.AtFile,
		AtLine:        pe.AtLine,
		EvidenceCount: 1,
		Resolution:    resolution,
	}
}

// candidateImportPaths maps a "./foo" or "../bar/baz" style specifier, seen
// in fromFile, to the repo-relative paths it might refer to, trying the
// common source extensions when the specifier itself is extension-less.
// Bare module specifiers (no leading dot) are reported unresolved: those
// name external packages (stdlib, npm, pip), which have no in-repo file to
// point an edge at.
func candidateImportPaths(fromFile, specifier string) ([]string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return nil, false
	}

	dir := path.Dir(fromFile)
	joined := path.Join(dir, specifier)

	candidates := []string{joined}
	if path.Ext(joined) == "" {
		for _, ext := range []string{".go", ".ts", ".tsx", ".js", ".jsx", ".py"} {
			candidates = append(candidates, joined+ext)
		}
	}
	return candidates, true
}
