package bruteforce

import (
	"fmt"

	"github.com/viant/sqlite-kd/index"
	"github.com/viant/sqlite-kd/kdtree"
)

// Index is an exhaustive Euclidean nearest-neighbor index.
type Index struct {
	ids  []string
	vecs []kdtree.Point[float32]
	dim  int
}

// Build loads ids and vectors, copying both.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	dim, err := index.Validate(ids, vectors)
	if err != nil {
		return fmt.Errorf("bruteforce: %w", err)
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	vecs := make([]kdtree.Point[float32], len(vectors))
	for j, v := range vectors {
		vecs[j] = kdtree.Point[float32](v).Clone()
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = vecs
	i.dim = dim
	return nil
}

// Nearest scans every vector and returns the closest one. Ties keep the
// earliest inserted vector.
func (i *Index) Nearest(query []float32) (string, float64, error) {
	if len(i.vecs) == 0 {
		return "", 0, kdtree.ErrNoNeighbor
	}
	if len(query) != i.dim {
		return "", 0, fmt.Errorf("bruteforce: %w: query dim %d != index dim %d", kdtree.ErrDimensionMismatch, len(query), i.dim)
	}
	q := kdtree.Point[float32](query)
	best, bestDist := 0, kdtree.Distance(q, i.vecs[0])
	for j := 1; j < len(i.vecs); j++ {
		if d := kdtree.Distance(q, i.vecs[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return i.ids[best], bestDist, nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Dim returns the vector dimension.
func (i *Index) Dim() int { return i.dim }

// MarshalBinary encodes the index using index.Encode.
func (i *Index) MarshalBinary() ([]byte, error) {
	vecs := make([][]float32, len(i.vecs))
	for j, v := range i.vecs {
		vecs[j] = v
	}
	return index.Encode(i.dim, i.ids, vecs), nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	ids, vecs, err := index.Decode(data)
	if err != nil {
		return fmt.Errorf("bruteforce: %w", err)
	}
	return i.Build(ids, vecs)
}

var _ index.Index = (*Index)(nil)
