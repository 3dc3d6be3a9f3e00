package kd

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sqlite-kd/index/bruteforce"
	"github.com/viant/sqlite-kd/kdtree"
)

func randomVectors(rng *rand.Rand, n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*200 - 100
		}
		out[i] = v
	}
	return out
}

func TestIndex_Textbook(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build(
		[]string{"a", "b", "c", "d", "e", "f"},
		[][]float32{{2, 3}, {5, 4}, {9, 6}, {4, 7}, {8, 1}, {7, 2}},
	))
	assert.Equal(t, 6, idx.Len())
	assert.Equal(t, 2, idx.Dim())
	assert.Equal(t, 3, idx.Height())

	id, dist, err := idx.Nearest([]float32{9, 2})
	require.NoError(t, err)
	assert.Equal(t, "e", id)
	assert.Equal(t, math.Sqrt(2), dist)

	id, dist, err = idx.Nearest([]float32{4, 4})
	require.NoError(t, err)
	assert.Equal(t, "b", id)
	assert.Equal(t, 1.0, dist)
}

func TestIndex_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, dim := range []int{1, 2, 3, 8} {
		vectors := randomVectors(rng, 1500, dim)
		ids := make([]string, len(vectors))
		for i := range ids {
			ids[i] = fmt.Sprintf("id-%d", i)
		}
		idx := New(WithBuildParallelism(2))
		require.NoError(t, idx.Build(ids, vectors))
		reference := &bruteforce.Index{}
		require.NoError(t, reference.Build(ids, vectors))

		for _, query := range randomVectors(rng, 100, dim) {
			_, actual, err := idx.Nearest(query)
			require.NoError(t, err)
			_, expect, err := reference.Nearest(query)
			require.NoError(t, err)
			assert.Equal(t, expect, actual, "dim=%d", dim)
		}
	}
}

func TestIndex_DuplicateVectors(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Build([]string{"first", "other", "second"}, [][]float32{{1, 1}, {4, 4}, {1, 1}}))
	id, dist, err := idx.Nearest([]float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, "first", id)
	assert.Equal(t, 0.0, dist)
}

func TestIndex_Errors(t *testing.T) {
	idx := New()
	_, _, err := idx.Nearest([]float32{1, 2})
	assert.ErrorIs(t, err, kdtree.ErrNoNeighbor)

	require.NoError(t, idx.Build(nil, nil))
	_, _, err = idx.Nearest([]float32{1, 2})
	assert.ErrorIs(t, err, kdtree.ErrNoNeighbor)

	require.NoError(t, idx.Build([]string{"a"}, [][]float32{{1, 2}}))
	_, _, err = idx.Nearest([]float32{1, 2, 3})
	assert.ErrorIs(t, err, kdtree.ErrDimensionMismatch)

	assert.Error(t, idx.UnmarshalBinary([]byte("nope")))
}

func TestIndex_MarshalRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	vectors := randomVectors(rng, 300, 3)
	ids := make([]string, len(vectors))
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
	}
	idx := New()
	require.NoError(t, idx.Build(ids, vectors))
	data, err := idx.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, IsBlob(data))

	restored := New()
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, idx.Len(), restored.Len())
	for _, query := range randomVectors(rng, 50, 3) {
		expectID, expectDist, err := idx.Nearest(query)
		require.NoError(t, err)
		actualID, actualDist, err := restored.Nearest(query)
		require.NoError(t, err)
		assert.Equal(t, expectID, actualID)
		assert.Equal(t, expectDist, actualDist)
	}

	brute := &bruteforce.Index{}
	require.NoError(t, brute.UnmarshalBinary(data[len(magic):]))
	assert.Equal(t, 300, brute.Len())
}
