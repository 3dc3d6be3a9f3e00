package vector

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viant/sqlite-kd/kdtree"
)

// EncodeEmbedding encodes a point as a little-endian sequence of IEEE 754
// float32 values without a length prefix; the dimension is derived from the
// BLOB size on decode. A nil or empty point encodes to a nil BLOB.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, 0, len(vec)*4)
	for _, v := range vec {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b, nil
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// DecodePoint decodes a BLOB and checks that it holds exactly dim coordinates.
// A dim of 0 accepts any non-empty BLOB.
func DecodePoint(b []byte, dim int) (kdtree.Point[float32], error) {
	vec, err := DecodeEmbedding(b)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("vector: empty embedding")
	}
	if dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("vector: %w: embedding has %d coordinates, want %d", kdtree.ErrDimensionMismatch, len(vec), dim)
	}
	return kdtree.Point[float32](vec), nil
}
