package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var _ port.VectorIndex = (*MemoryIndex)(nil)

func TestMemoryIndex_ClearThenQuery(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	require.NoError(t, idx.Upsert(ctx, "docs", []domain.IndexEntry{
		{ID: "a", Vector: []float32{1, 0}, Text: "alpha"},
		{ID: "b", Vector: []float32{0, 1}, Text: "beta"},
		{ID: "c", Vector: []float32{1, 1}, Text: "gamma"},
	}))

	results, err := idx.Query(ctx, "docs", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Text)
	assert.Equal(t, "gamma", results[1].Text)

	require.NoError(t, idx.Clear(ctx, "docs"))
	assert.Zero(t, idx.Count("docs"))

	results, err = idx.Query(ctx, "docs", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_RejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	err := idx.Upsert(ctx, "docs", []domain.IndexEntry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1}},
	})
	assert.Error(t, err)
	assert.Zero(t, idx.Count("docs"))

	_, err = idx.Query(ctx, "docs", []float32{1, 0, 0}, 1)
	assert.EqualError(t, err, "query dimension mismatch: expected 2, got 3")
}

func TestMemoryIndex_SurvivesClose(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(1)
	require.NoError(t, idx.Upsert(ctx, "docs", []domain.IndexEntry{{ID: "a", Vector: []float32{1}}}))
	require.NoError(t, idx.Close())
	assert.Equal(t, 1, idx.Count("docs"))
}
