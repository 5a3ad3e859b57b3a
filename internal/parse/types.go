// Package parse wraps tree-sitter as the engine's Parser external
// collaborator (spec.md §1's "opaque Parser that yields typed nodes") and
// walks the resulting tree into the Symbol/Edge/Docstring/Decorator/TODO
// shapes the Indexer commits to the metadata store.
package parse

// Point is a zero-based row/column source position.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is a language-agnostic view of a tree-sitter AST node: just enough
// shape (type, byte range, points, children) for the extractors to walk
// without depending on the tree-sitter binding types directly.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	HasError   bool
	Children   []*Node
	fieldNames map[int]string // child index -> field name, when known
}

// Tree is a parsed file: its root node plus the source bytes it indexes
// into, and the language it was parsed as.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Content returns the source text spanned by n.
func (n *Node) Content(source []byte) string {
	if n == nil || n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FieldName returns the grammar field name of n's i-th child, if the
// grammar names it (e.g. "name", "body", "parameters").
func (n *Node) FieldName(i int) (string, bool) {
	name, ok := n.fieldNames[i]
	return name, ok
}

// ChildByFieldName returns the first child registered under fieldName.
func (n *Node) ChildByFieldName(fieldName string) *Node {
	for i, child := range n.Children {
		if name, ok := n.fieldNames[i]; ok && name == fieldName && child != nil {
			return child
		}
	}
	return nil
}

// FindChildByType returns the first direct child with the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, child := range n.Children {
		if child.Type == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns all direct children with the given type.
func (n *Node) FindChildrenByType(nodeType string) []*Node {
	var out []*Node
	for _, child := range n.Children {
		if child.Type == nodeType {
			out = append(out, child)
		}
	}
	return out
}

// FindAllByType recursively collects every node (including n) with the
// given type, depth-first.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var out []*Node
	if n.Type == nodeType {
		out = append(out, n)
	}
	for _, child := range n.Children {
		out = append(out, child.FindAllByType(nodeType)...)
	}
	return out
}

// Walk traverses the tree depth-first, calling fn for each node. fn
// returning false stops descent into that node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
