package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/semantic"
)

func TestEmbedIsDeterministic(t *testing.T) {
	e, err := New(16)
	require.NoError(t, err)

	chunk := semantic.Chunk{Text: "func add(a, b int) int { return a + b }"}
	v1 := e.Embed(chunk)
	v2 := e.Embed(chunk)
	assert.Equal(t, v1, v2)
}

func TestEmbedDifferentContentYieldsDifferentVectors(t *testing.T) {
	e, err := New(16)
	require.NoError(t, err)

	v1 := e.Embed(semantic.Chunk{Text: "func add(a, b int) int { return a + b }"})
	v2 := e.Embed(semantic.Chunk{Text: "func sub(a, b int) int { return a - b }"})
	assert.NotEqual(t, v1, v2)
}

func TestEmbedProducesCorrectDimensionsAndUnitNorm(t *testing.T) {
	e, err := New(16)
	require.NoError(t, err)

	v := e.Embed(semantic.Chunk{Text: "some content"})
	require.Len(t, v, semantic.EmbeddingDimensions)

	var sumSquares float64
	for _, f := range v {
		sumSquares += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestEmbedCacheHitsOnRepeatedContent(t *testing.T) {
	e, err := New(16)
	require.NoError(t, err)

	chunk := semantic.Chunk{Text: "repeated content"}
	e.Embed(chunk)
	e.Embed(chunk)

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	e, err := New(16)
	require.NoError(t, err)

	chunks := []semantic.Chunk{
		{Text: "alpha"},
		{Text: "beta"},
		{Text: "gamma"},
	}
	out := e.EmbedBatch(chunks)
	require.Len(t, out, 3)
	for i, c := range chunks {
		assert.Equal(t, e.Embed(c), out[i])
	}
}
