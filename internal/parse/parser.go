package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps a tree-sitter parser bound to the engine's LanguageRegistry.
// A single Parser is not safe for concurrent use across goroutines (the
// underlying sitter.Parser is stateful); the Indexer's worker pool gives
// each worker its own Parser.
type Parser struct {
	sp       *sitter.Parser
	registry *LanguageRegistry
}

// NewParser creates a parser over the default language registry.
func NewParser() *Parser {
	return &Parser{sp: sitter.NewParser(), registry: DefaultRegistry()}
}

// NewParserWithRegistry creates a parser over a custom registry, mainly for
// tests that need a reduced or stubbed language set.
func NewParserWithRegistry(registry *LanguageRegistry) *Parser {
	return &Parser{sp: sitter.NewParser(), registry: registry}
}

// Parse parses source as the named language and returns the resulting tree.
// A syntax error inside the source does not itself fail Parse: tree-sitter
// produces a best-effort tree with HasError nodes marking the damage, and
// spec.md's Parse stage only fails outright when no tree comes back at all.
func (p *Parser) Parse(ctx context.Context, source []byte, language string) (*Tree, error) {
	tsLang, ok := p.registry.GetTreeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	p.sp.SetLanguage(tsLang)

	tsTree, err := p.sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("parse source: nil tree")
	}

	return &Tree{
		Root:     convertNode(tsTree.RootNode()),
		Source:   source,
		Language: language,
	}, nil
}

// LanguageFor resolves a file's language by its extension.
func (p *Parser) LanguageFor(ext string) (string, bool) {
	cfg, ok := p.registry.GetByExtension(ext)
	if !ok {
		return "", false
	}
	return cfg.Name, true
}

// Config resolves a language's extraction configuration by name.
func (p *Parser) Config(language string) (*LanguageConfig, bool) {
	return p.registry.GetByName(language)
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.sp != nil {
		p.sp.Close()
	}
}

func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}

	n := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
		Children: make([]*Node, 0, int(tsNode.ChildCount())),
	}

	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		child := tsNode.Child(int(i))
		if child == nil {
			continue
		}
		n.Children = append(n.Children, convertNode(child))
	}

	// Resolve grammar field names by byte-range match against a fixed set
	// of fields the extractor cares about, via the binding's
	// ChildByFieldName rather than an index-based field lookup.
	n.fieldNames = make(map[int]string)
	for _, field := range candidateFieldNames {
		fieldNode := tsNode.ChildByFieldName(field)
		if fieldNode == nil {
			continue
		}
		for i, child := range n.Children {
			if child.StartByte == fieldNode.StartByte() && child.EndByte == fieldNode.EndByte() {
				n.fieldNames[i] = field
				break
			}
		}
	}

	return n
}

// candidateFieldNames are the grammar fields the extractor looks up across
// every supported language; not every language names every one of these.
var candidateFieldNames = []string{"name", "function", "body", "left", "value", "path"}
