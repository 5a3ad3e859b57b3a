package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywordIndex(t *testing.T) *BleveKeywordIndex {
	t.Helper()
	idx, err := NewBleveKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestKeywordIndex_SearchMatchesByName(t *testing.T) {
	ctx := context.Background()
	idx := newTestKeywordIndex(t)

	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{SymbolID: "sym-1", Name: "getUserById", FilePath: "user.go", Kind: "function", Exported: true, Body: "func getUserById(id string) *User { return nil }"},
		{SymbolID: "sym-2", Name: "parseConfigFile", FilePath: "config.go", Kind: "function", Exported: true, Body: "func parseConfigFile(path string) error { return nil }"},
	}))

	results, err := idx.Search(ctx, "user", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "sym-1", results[0].SymbolID)
}

func TestKeywordIndex_SearchOnEmptyQueryReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	idx := newTestKeywordIndex(t)
	results, err := idx.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKeywordIndex_DeleteRemovesFromResults(t *testing.T) {
	ctx := context.Background()
	idx := newTestKeywordIndex(t)

	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{SymbolID: "sym-1", Name: "computeTotal", FilePath: "billing.go", Kind: "function", Body: "sum line items"},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"sym-1"}))

	ids, err := idx.AllIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestKeywordIndex_AllIDsReflectsIndexedDocs(t *testing.T) {
	ctx := context.Background()
	idx := newTestKeywordIndex(t)

	require.NoError(t, idx.Index(ctx, []*KeywordDoc{
		{SymbolID: "sym-1", Name: "a", Body: "a"},
		{SymbolID: "sym-2", Name: "b", Body: "b"},
	}))

	ids, err := idx.AllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sym-1", "sym-2"}, ids)
}

func TestKeywordIndex_SearchAfterCloseErrors(t *testing.T) {
	ctx := context.Background()
	idx, err := NewBleveKeywordIndex("")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(ctx, "anything", 10)
	assert.Error(t, err)
}
