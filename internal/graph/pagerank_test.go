package graph

import (
	"testing"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRank_HubReceivesHigherScoreThanLeaf(t *testing.T) {
	edges := []*store.Edge{
		{FromSymbolID: "a", ToSymbolID: "hub", Kind: store.EdgeCall},
		{FromSymbolID: "b", ToSymbolID: "hub", Kind: store.EdgeCall},
		{FromSymbolID: "c", ToSymbolID: "leaf", Kind: store.EdgeCall},
	}
	kinds := map[string]store.SymbolKind{
		"a": store.KindFunction, "b": store.KindFunction, "c": store.KindFunction,
		"hub": store.KindFunction, "leaf": store.KindFunction,
	}

	results := PageRank(edges, kinds, DefaultDamping, DefaultIterations)
	require.Contains(t, results, "hub")
	require.Contains(t, results, "leaf")
	assert.Greater(t, results["hub"].Score, results["leaf"].Score)
}

func TestPageRank_ExcludesFileRootSymbols(t *testing.T) {
	edges := []*store.Edge{
		{FromSymbolID: "root", ToSymbolID: "fn", Kind: store.EdgeImport},
	}
	kinds := map[string]store.SymbolKind{
		"root": store.KindFileRoot,
		"fn":   store.KindFunction,
	}

	results := PageRank(edges, kinds, DefaultDamping, DefaultIterations)
	assert.NotContains(t, results, "root")
	assert.Contains(t, results, "fn")
}

func TestPageRank_NormalizedScoreCapsAtOne(t *testing.T) {
	edges := []*store.Edge{
		{FromSymbolID: "a", ToSymbolID: "b", Kind: store.EdgeCall},
	}
	kinds := map[string]store.SymbolKind{"a": store.KindFunction, "b": store.KindFunction}

	results := PageRank(edges, kinds, DefaultDamping, DefaultIterations)
	for _, r := range results {
		assert.LessOrEqual(t, r.NormalizedScore, 1.0)
	}
	var sawMax bool
	for _, r := range results {
		if r.NormalizedScore == 1.0 {
			sawMax = true
		}
	}
	assert.True(t, sawMax)
}

func TestPageRank_HandlesCyclicGraphWithoutDiverging(t *testing.T) {
	edges := []*store.Edge{
		{FromSymbolID: "a", ToSymbolID: "b", Kind: store.EdgeCall},
		{FromSymbolID: "b", ToSymbolID: "a", Kind: store.EdgeCall},
	}
	kinds := map[string]store.SymbolKind{"a": store.KindFunction, "b": store.KindFunction}

	results := PageRank(edges, kinds, DefaultDamping, DefaultIterations)
	for _, r := range results {
		assert.False(t, r.Score != r.Score) // not NaN
		assert.Greater(t, r.Score, 0.0)
	}
}

func TestPageRank_EmptyNodeSetReturnsEmptyResult(t *testing.T) {
	results := PageRank(nil, map[string]store.SymbolKind{}, DefaultDamping, DefaultIterations)
	assert.Empty(t, results)
}

func TestPageRank_DefaultsAppliedWhenZeroValuePassed(t *testing.T) {
	edges := []*store.Edge{{FromSymbolID: "a", ToSymbolID: "b", Kind: store.EdgeCall}}
	kinds := map[string]store.SymbolKind{"a": store.KindFunction, "b": store.KindFunction}

	results := PageRank(edges, kinds, 0, 0)
	assert.Len(t, results, 2)
}
