package memory

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func build(t *testing.T, n, dim int) domain.VectorIndex {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	chunks := make([]domain.TextChunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = domain.TextChunk{Index: i, Content: "chunk", Source: "doc"}
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32()*2 - 1
		}
		vectors[i] = v
	}
	idx, err := NewBuilder().Build(context.Background(), chunks, vectors)
	require.NoError(t, err)
	return idx
}

func TestQuerySortedAndClamped(t *testing.T) {
	idx := build(t, 30, 8)
	q := []float32{1, 0, -1, 0.5, 0, 0, 0.25, 1}

	for _, k := range []int{1, 5, 30, 50} {
		res, err := idx.Query(context.Background(), q, k)
		require.NoError(t, err)
		assert.Len(t, res, min(k, idx.Size()))
		for i := 1; i < len(res); i++ {
			assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
		}
	}
}

func TestQueryZeroK(t *testing.T) {
	idx := build(t, 5, 3)
	res, err := idx.Query(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestQueryFindsExactMatch(t *testing.T) {
	chunks := []domain.TextChunk{{Index: 0, Content: "x"}, {Index: 1, Content: "y"}, {Index: 2, Content: "z"}}
	vectors := [][]float32{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}
	idx, err := NewBuilder().Build(context.Background(), chunks, vectors)
	require.NoError(t, err)

	res, err := idx.Query(context.Background(), []float32{0, 5, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "y", res[0].Chunk.Content)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
}

func TestBuildIsIsolatedFromInput(t *testing.T) {
	chunks := []domain.TextChunk{{Content: "a"}}
	vectors := [][]float32{{1, 0}}
	idx, err := NewBuilder().Build(context.Background(), chunks, vectors)
	require.NoError(t, err)

	chunks[0].Content = "mutated"
	vectors[0][0] = -1
	res, err := idx.Query(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", res[0].Chunk.Content)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
}

func TestBuildDimensionMismatch(t *testing.T) {
	_, err := NewBuilder().Build(context.Background(), []domain.TextChunk{{}, {}}, [][]float32{{1}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = NewBuilder().Build(context.Background(), []domain.TextChunk{{}, {}}, [][]float32{{1, 2}, {1}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	idx := build(t, 3, 4)
	_, err = idx.Query(context.Background(), []float32{1, 2}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmptyIndex(t *testing.T) {
	idx, err := NewBuilder().Build(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, idx.Size())
	res, err := idx.Query(context.Background(), []float32{1}, 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}
