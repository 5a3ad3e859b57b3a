package parse

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
)

// ProvisionalEdge is an edge whose target is still a bare name (plus the
// context it was seen in), as spec.md §4.5 step 3 describes: "Edges with
// provisional endpoints (names + contexts)". The Resolve stage (internal/index)
// turns these into store.Edge rows with a concrete ToSymbolID and
// EdgeResolution tier.
type ProvisionalEdge struct {
	FromSymbolID string
	ToName       string
	Kind         store.EdgeKind
	AtFile       string
	AtLine       int
}

// FileExtraction is one file's raw extraction output, before edge
// resolution and before the Indexer assigns a Fingerprint and commits via
// store.ExtractionResult.
type FileExtraction struct {
	FilePath   string
	Language   string
	Symbols    []*store.Symbol
	Edges      []*ProvisionalEdge
	Docstrings []*store.Docstring
	Decorators []*store.Decorator
	TODOs      []*store.TODOEntry
}

var todoPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME)\b[:\s-]*(.*)`)

// Extract walks tree and produces symbols, provisional edges, docstrings,
// decorators and TODOs for one file, per spec.md §4.5 steps 3-4.
func Extract(tree *Tree, filePath string, cfg *LanguageConfig) *FileExtraction {
	fx := &FileExtraction{FilePath: filePath, Language: tree.Language}
	source := tree.Source

	root := &store.Symbol{
		ID:        SymbolID(filePath, "", 0),
		Name:      filePath,
		Kind:      store.KindFileRoot,
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   int(tree.Root.EndPoint.Row) + 1,
		Language:  tree.Language,
	}
	fx.Symbols = append(fx.Symbols, root)
	fx.Edges = append(fx.Edges, extractImports(tree, root, filePath, cfg, source)...)

	var comments []*Node
	tree.Root.Walk(func(n *Node) bool {
		if n.Type == cfg.CommentType {
			comments = append(comments, n)
		}
		return true
	})

	var declNodes []*Node
	tree.Root.Walk(func(n *Node) bool {
		if _, ok := cfg.kindOf(n.Type); ok {
			declNodes = append(declNodes, n)
		}
		return true
	})

	for _, n := range declNodes {
		sym := buildSymbol(n, tree, filePath, cfg)
		if sym == nil {
			continue
		}
		fx.Symbols = append(fx.Symbols, sym)

		if doc := adjacentDocComment(n, comments, source); doc != "" {
			fx.Docstrings = append(fx.Docstrings, &store.Docstring{
				SymbolID: sym.ID,
				Summary:  doc,
			})
		}

		for _, name := range adjacentDecorators(n, tree, cfg) {
			fx.Decorators = append(fx.Decorators, &store.Decorator{
				SymbolID: sym.ID,
				Name:     name,
				Known:    isKnownDecorator(name),
			})
		}

		fx.Edges = append(fx.Edges, extractEdges(n, sym, filePath, cfg, source)...)
	}

	fx.TODOs = extractTODOs(comments, fx.Symbols, filePath, source)

	return fx
}

// SymbolID derives a symbol's stable id: FNV-1a over
// "{repo-relative file path}\x00{name}\x00{start byte offset}".
func SymbolID(filePath, name string, startByte uint32) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(filePath))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatUint(uint64(startByte), 10)))
	return strconv.FormatUint(h.Sum64(), 16)
}

func buildSymbol(n *Node, tree *Tree, filePath string, cfg *LanguageConfig) *store.Symbol {
	kind, ok := cfg.kindOf(n.Type)
	if !ok {
		return nil
	}

	name := declName(n, tree.Source, cfg)
	if name == "" {
		return nil
	}

	return &store.Symbol{
		ID:        SymbolID(filePath, name, n.StartByte),
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartLine: int(n.StartPoint.Row) + 1,
		EndLine:   int(n.EndPoint.Row) + 1,
		Language:  tree.Language,
		Exported:  isExported(name, tree.Language),
		Signature: signatureLine(n, tree.Source),
	}
}

func declName(n *Node, source []byte, cfg *LanguageConfig) string {
	if cfg.NameField != "" {
		if field := n.ChildByFieldName(cfg.NameField); field != nil {
			return field.Content(source)
		}
	}
	// Fallback for grammars without a dedicated name field for this
	// declaration shape (e.g. Go var/const blocks, JS lexical_declaration):
	// take the first identifier-ish child, or the name field of the first
	// child that has one (the var_spec / variable_declarator inside).
	for _, child := range n.Children {
		if strings.Contains(child.Type, "identifier") {
			return child.Content(source)
		}
		if cfg.NameField != "" {
			if field := child.ChildByFieldName(cfg.NameField); field != nil {
				return field.Content(source)
			}
		}
	}
	return ""
}

func signatureLine(n *Node, source []byte) string {
	full := n.Content(source)
	if idx := strings.IndexByte(full, '\n'); idx >= 0 {
		full = full[:idx]
	}
	full = strings.TrimSpace(full)
	const maxLen = 200
	if len(full) > maxLen {
		full = full[:maxLen]
	}
	return full
}

// isExported approximates each language's visibility convention: Go's
// leading-uppercase rule, and name-based default-export heuristics
// elsewhere (no "_" or "#" prefix).
func isExported(name, language string) bool {
	if name == "" {
		return false
	}
	switch language {
	case "go":
		r := []rune(name)[0]
		return unicode.IsUpper(r)
	case "python":
		return !strings.HasPrefix(name, "_")
	default:
		return !strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "#")
	}
}

// adjacentDocComment collects the contiguous block of comment nodes ending
// right before n's declaration line, closest-first, as a JSDoc/docstring
// candidate summary.
func adjacentDocComment(n *Node, comments []*Node, source []byte) string {
	declLine := n.StartPoint.Row
	var block []*Node
	expectedRow := declLine
	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if c.EndPoint.Row+1 != expectedRow {
			continue
		}
		if expectedRow == 0 {
			break
		}
		block = append([]*Node{c}, block...)
		expectedRow = c.StartPoint.Row
	}

	if len(block) == 0 {
		return ""
	}

	lines := make([]string, 0, len(block))
	for _, c := range block {
		lines = append(lines, stripCommentMarkers(c.Content(source)))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripCommentMarkers(s string) string {
	s = strings.TrimPrefix(s, "///")
	s = strings.TrimPrefix(s, "//")
	s = strings.TrimPrefix(s, "/**")
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "*")
	return strings.TrimSpace(s)
}

func adjacentDecorators(n *Node, tree *Tree, cfg *LanguageConfig) []string {
	if cfg.DecoratorType == "" {
		return nil
	}
	var names []string
	for _, cand := range tree.Root.FindAllByType(cfg.DecoratorType) {
		if n.StartPoint.Row > 0 && cand.EndPoint.Row == n.StartPoint.Row-1 {
			names = append(names, strings.TrimSpace(strings.TrimPrefix(cand.Content(tree.Source), "@")))
		}
	}
	return names
}

var knownDecorators = map[string]bool{
	"override": true, "deprecated": true, "staticmethod": true, "classmethod": true,
	"property": true, "component": true, "injectable": true, "test": true,
}

func isKnownDecorator(name string) bool {
	base := name
	if idx := strings.IndexByte(base, '('); idx >= 0 {
		base = base[:idx]
	}
	return knownDecorators[strings.ToLower(strings.TrimSpace(base))]
}

// extractEdges walks declNode's subtree for call expressions, emitting a
// provisional EdgeCall per call site with the bare callee name as target.
func extractEdges(declNode *Node, sym *store.Symbol, filePath string, cfg *LanguageConfig, source []byte) []*ProvisionalEdge {
	var edges []*ProvisionalEdge

	for _, callType := range cfg.CallTypes {
		for _, call := range declNode.FindAllByType(callType) {
			callee := calleeName(call, source)
			if callee == "" {
				continue
			}
			edges = append(edges, &ProvisionalEdge{
				FromSymbolID: sym.ID,
				ToName:       callee,
				Kind:         store.EdgeCall,
				AtFile:       filePath,
				AtLine:       int(call.StartPoint.Row) + 1,
			})
		}
	}

	return edges
}

// extractImports emits one provisional EdgeImport per import statement,
// from the file's synthetic root symbol to the imported path or module
// name; the Resolve stage turns a relative path that names an indexed file
// into an import or cross-package-import edge and drops the rest.
func extractImports(tree *Tree, root *store.Symbol, filePath string, cfg *LanguageConfig, source []byte) []*ProvisionalEdge {
	var edges []*ProvisionalEdge
	for _, importType := range cfg.ImportTypes {
		for _, imp := range tree.Root.FindAllByType(importType) {
			target := importTarget(imp, source)
			if target == "" {
				continue
			}
			edges = append(edges, &ProvisionalEdge{
				FromSymbolID: root.ID,
				ToName:       target,
				Kind:         store.EdgeImport,
				AtFile:       filePath,
				AtLine:       int(imp.StartPoint.Row) + 1,
			})
		}
	}
	return edges
}

func importTarget(n *Node, source []byte) string {
	if path := n.ChildByFieldName("path"); path != nil {
		return strings.Trim(path.Content(source), `"'`)
	}
	for _, child := range n.Children {
		if strings.Contains(child.Type, "string") || strings.Contains(child.Type, "interpreted") {
			return strings.Trim(child.Content(source), `"'`)
		}
	}
	return ""
}

// calleeName extracts the bare identifier a call expression targets,
// stripping any receiver/namespace qualification (pkg.Func, obj.method,
// a.b.c) down to the final segment, which is what a file-local or
// metadata-store name lookup resolves against.
func calleeName(call *Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil && len(call.Children) > 0 {
		fn = call.Children[0]
	}
	if fn == nil {
		return ""
	}
	text := fn.Content(source)
	if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(text)
}

// extractTODOs scans comment text for a TODO/FIXME keyword and
// associates each hit with the nearest symbol starting on or after its
// line, as spec.md §4.5 step 4 describes.
func extractTODOs(comments []*Node, symbols []*store.Symbol, filePath string, source []byte) []*store.TODOEntry {
	var todos []*store.TODOEntry
	for _, c := range comments {
		text := stripCommentMarkers(c.Content(source))
		m := todoPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		line := int(c.StartPoint.Row) + 1
		todos = append(todos, &store.TODOEntry{
			FilePath: filePath,
			Line:     line,
			Keyword:  strings.ToUpper(m[1]),
			Text:     strings.TrimSpace(m[2]),
			SymbolID: nearestFollowingSymbol(symbols, line),
		})
	}
	return todos
}

func nearestFollowingSymbol(symbols []*store.Symbol, line int) string {
	best := ""
	bestLine := -1
	for _, s := range symbols {
		if s.StartLine < line {
			continue
		}
		if bestLine == -1 || s.StartLine < bestLine {
			bestLine = s.StartLine
			best = s.ID
		}
	}
	return best
}
