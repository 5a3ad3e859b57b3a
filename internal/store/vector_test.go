package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndex(t *testing.T, dim int) *HNSWVectorIndex {
	t.Helper()
	idx, err := NewHNSWVectorIndex(dim, "cos")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func unitVec(dim int, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestVectorIndex_UpsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 4)

	err := idx.Upsert(ctx, []*VectorRecord{{ID: "v1", Vector: []float32{1, 2, 3}}})
	require.Error(t, err)
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)
}

func TestVectorIndex_KNNFindsNearestByCosine(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 4)

	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{
		{ID: "v1", Vector: unitVec(4, 0), Name: "alpha"},
		{ID: "v2", Vector: unitVec(4, 1), Name: "beta"},
	}))

	results, err := idx.KNN(ctx, unitVec(4, 0), 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
}

func TestVectorIndex_KNNAppliesScalarFilter(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 4)

	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{
		{ID: "v1", Vector: unitVec(4, 0), Kind: "function"},
		{ID: "v2", Vector: unitVec(4, 0), Kind: "struct"},
	}))

	results, err := idx.KNN(ctx, unitVec(4, 0), 5, func(r *VectorRecord) bool {
		return r.Kind == "struct"
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].ID)
}

func TestVectorIndex_UpsertReplacesExistingID(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 4)

	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{{ID: "v1", Vector: unitVec(4, 0), Name: "first"}}))
	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{{ID: "v1", Vector: unitVec(4, 1), Name: "second"}}))

	ids := idx.AllIDs(ctx)
	assert.Equal(t, []string{"v1"}, ids)

	results, err := idx.KNN(ctx, unitVec(4, 1), 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
}

func TestVectorIndex_DeleteRemovesFromKNN(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 4)

	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{{ID: "v1", Vector: unitVec(4, 0)}}))
	require.NoError(t, idx.Delete(ctx, []string{"v1"}))

	results, err := idx.KNN(ctx, unitVec(4, 0), 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_SaveLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx := newTestVectorIndex(t, 4)
	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{
		{ID: "v1", Vector: unitVec(4, 0), Name: "alpha", Kind: "function"},
	}))
	require.NoError(t, idx.Save(path))

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
	_, statErr = os.Stat(path + ".meta")
	require.NoError(t, statErr)

	loaded, err := NewHNSWVectorIndex(4, "cos")
	require.NoError(t, err)
	t.Cleanup(func() { _ = loaded.Close() })
	require.NoError(t, loaded.Load(path))

	results, err := loaded.KNN(ctx, unitVec(4, 0), 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v1", results[0].ID)
}

func TestVectorIndex_KNNRejectsWrongDimensionQuery(t *testing.T) {
	ctx := context.Background()
	idx := newTestVectorIndex(t, 4)
	require.NoError(t, idx.Upsert(ctx, []*VectorRecord{{ID: "v1", Vector: unitVec(4, 0)}}))

	_, err := idx.KNN(ctx, []float32{1, 2}, 1, nil)
	require.Error(t, err)
}
