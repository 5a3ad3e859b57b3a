package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LanguageForResolvesByExtension(t *testing.T) {
	p := NewParser()
	defer p.Close()

	lang, ok := p.LanguageFor(".go")
	require.True(t, ok)
	assert.Equal(t, "go", lang)

	lang, ok = p.LanguageFor("tsx")
	require.True(t, ok)
	assert.Equal(t, "tsx", lang)

	_, ok = p.LanguageFor(".rb")
	assert.False(t, ok)
}

func TestParser_ParseRejectsUnsupportedLanguage(t *testing.T) {
	p := NewParser()
	defer p.Close()

	_, err := p.Parse(context.Background(), []byte("x"), "ruby")
	assert.Error(t, err)
}

func TestParser_ParseGoFunctionProducesNonEmptyTree(t *testing.T) {
	p := NewParser()
	defer p.Close()

	src := []byte("package main\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n")
	tree, err := p.Parse(context.Background(), src, "go")
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.False(t, tree.Root.HasError)

	funcs := tree.Root.FindAllByType("function_declaration")
	require.Len(t, funcs, 1)
}

func TestNode_ContentReturnsSourceSlice(t *testing.T) {
	n := &Node{StartByte: 2, EndByte: 5}
	assert.Equal(t, "llo", n.Content([]byte("hello world")))
}

func TestNode_ContentGuardsOutOfRange(t *testing.T) {
	n := &Node{StartByte: 100, EndByte: 200}
	assert.Equal(t, "", n.Content([]byte("short")))
}

func TestNode_WalkVisitsAllNodesDepthFirst(t *testing.T) {
	root := &Node{Type: "root", Children: []*Node{
		{Type: "a"},
		{Type: "b", Children: []*Node{{Type: "c"}}},
	}}

	var visited []string
	root.Walk(func(n *Node) bool {
		visited = append(visited, n.Type)
		return true
	})

	assert.Equal(t, []string{"root", "a", "b", "c"}, visited)
}
