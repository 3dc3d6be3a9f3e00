package kd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viant/sqlite-kd/index"
	"github.com/viant/sqlite-kd/kdtree"
)

// magic prefixes every serialized kd index.
var magic = []byte("KDT1")

// Index answers exact Euclidean nearest-neighbor queries with a k-d tree.
type Index struct {
	ids      []string
	vecs     [][]float32
	dim      int
	tree     *kdtree.Tree[float32]
	byKey    map[string][]int
	parallel int
}

// New creates an empty index.
func New(opts ...Option) *Index {
	i := &Index{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IsBlob reports whether data was produced by Index.MarshalBinary.
func IsBlob(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Build constructs the tree. Vectors are copied.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	dim, err := index.Validate(ids, vectors)
	if err != nil {
		return fmt.Errorf("kd: %w", err)
	}
	points := make([]kdtree.Point[float32], len(vectors))
	byKey := make(map[string][]int, len(vectors))
	vecs := make([][]float32, len(vectors))
	for j, v := range vectors {
		points[j] = kdtree.Point[float32](v)
		vecs[j] = append([]float32(nil), v...)
		k := key(vecs[j])
		byKey[k] = append(byKey[k], j)
	}
	treeDim := dim
	if treeDim == 0 {
		treeDim = 1
	}
	tree, err := kdtree.Build(treeDim, points, kdtree.WithBuildParallelism(i.parallel))
	if err != nil {
		return fmt.Errorf("kd: %w", err)
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = vecs
	i.dim = dim
	i.tree = tree
	i.byKey = byKey
	return nil
}

// Nearest returns the id of the closest vector and its distance. When
// several ids share the winning vector the first inserted one is reported.
func (i *Index) Nearest(query []float32) (string, float64, error) {
	if i.tree.Empty() {
		return "", 0, kdtree.ErrNoNeighbor
	}
	neighbor, err := i.tree.Nearest(kdtree.Point[float32](query))
	if err != nil {
		return "", 0, fmt.Errorf("kd: %w", err)
	}
	positions := i.byKey[key(neighbor.Point)]
	if len(positions) == 0 {
		return "", 0, fmt.Errorf("kd: nearest point %v has no id", neighbor.Point)
	}
	return i.ids[positions[0]], neighbor.Distance, nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Dim returns the vector dimension.
func (i *Index) Dim() int { return i.dim }

// Height returns the height of the underlying tree.
func (i *Index) Height() int { return i.tree.Height() }

// MarshalBinary stores the magic prefix followed by the index.Encode payload.
func (i *Index) MarshalBinary() ([]byte, error) {
	payload := index.Encode(i.dim, i.ids, i.vecs)
	return append(append([]byte(nil), magic...), payload...), nil
}

// UnmarshalBinary decodes the vectors and rebuilds the tree.
func (i *Index) UnmarshalBinary(data []byte) error {
	if !IsBlob(data) {
		return fmt.Errorf("kd: missing %s header", magic)
	}
	ids, vecs, err := index.Decode(data[len(magic):])
	if err != nil {
		return fmt.Errorf("kd: %w", err)
	}
	return i.Build(ids, vecs)
}

// key maps a vector to its exact bit pattern so tree results can be traced
// back to ids.
func key(v []float32) string {
	b := make([]byte, 0, 4*len(v))
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return string(b)
}

var _ index.Index = (*Index)(nil)
