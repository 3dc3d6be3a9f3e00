package index

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		description string
		ids         []string
		vectors     [][]float32
		expectDim   int
		expectErr   bool
	}{
		{description: "empty", expectDim: 0},
		{description: "consistent", ids: []string{"a", "b"}, vectors: [][]float32{{1, 2}, {3, 4}}, expectDim: 2},
		{description: "length mismatch", ids: []string{"a"}, vectors: [][]float32{{1}, {2}}, expectErr: true},
		{description: "ragged", ids: []string{"a", "b"}, vectors: [][]float32{{1, 2}, {3}}, expectErr: true},
		{description: "zero length vector", ids: []string{"a"}, vectors: [][]float32{{}}, expectErr: true},
	}
	for _, testCase := range testCases {
		dim, err := Validate(testCase.ids, testCase.vectors)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectDim, dim, testCase.description)
	}
}

func TestDecode_Truncated(t *testing.T) {
	data := Encode(2, []string{"abc"}, [][]float32{{1, 2}})
	ids, vecs, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, ids)
	assert.Equal(t, [][]float32{{1, 2}}, vecs)

	for _, cut := range []int{3, 10, 14, len(data) - 1} {
		_, _, err := Decode(data[:cut])
		assert.Error(t, err, "cut=%d", cut)
	}
}

func TestDecode_CountExceedsData(t *testing.T) {
	testCases := []struct {
		description string
		dim, n      uint32
		tail        int
	}{
		{description: "huge count no payload", dim: 1, n: 0xFFFFFFFF},
		{description: "huge count and dim", dim: 0xFFFFFFFF, n: 0xFFFFFFFF, tail: 64},
		{description: "one item short", dim: 2, n: 2, tail: 12},
	}
	for _, testCase := range testCases {
		data := binary.LittleEndian.AppendUint32(nil, testCase.dim)
		data = binary.LittleEndian.AppendUint32(data, testCase.n)
		data = append(data, make([]byte, testCase.tail)...)
		_, _, err := Decode(data)
		assert.Error(t, err, testCase.description)
	}
}
