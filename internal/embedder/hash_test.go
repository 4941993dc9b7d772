package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	h := NewHash(64)
	ctx := context.Background()

	first, err := h.EmbedBatch(ctx, []string{"some chunk of text"})
	require.NoError(t, err)
	second, err := h.EmbedBatch(ctx, []string{"some chunk of text"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHash_BatchOrderAndDimension(t *testing.T) {
	h := NewHash(32)
	texts := []string{"alpha", "beta", "gamma"}

	vectors, err := h.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, vec := range vectors {
		assert.Len(t, vec, 32)
		single, err := h.EmbedBatch(context.Background(), []string{texts[i]})
		require.NoError(t, err)
		assert.Equal(t, single[0], vec, "batch output must be in input order")
	}
}

func TestHash_UnitNorm(t *testing.T) {
	h := NewHash(128)

	vectors, err := h.EmbedBatch(context.Background(), []string{"normalize me"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHash_DistinctTextsDiffer(t *testing.T) {
	h := NewHash(64)

	vectors, err := h.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.NotEqual(t, vectors[0], vectors[1])
}
