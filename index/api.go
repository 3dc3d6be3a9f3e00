package index

import "fmt"

// Index defines a static nearest-neighbor index over (id, embedding) pairs.
// It is built once, queried for the single closest embedding by Euclidean
// distance, and serialized for persistence.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and every vector the same dimension.
	Build(ids []string, vectors [][]float32) error

	// Nearest returns the id of the closest vector and its Euclidean distance.
	// It fails with kdtree.ErrNoNeighbor when the index is empty and with an
	// error wrapping kdtree.ErrDimensionMismatch when the query has the wrong size.
	Nearest(query []float32) (id string, distance float64, err error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dim returns the vector dimension, or 0 for an empty index.
	Dim() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

// Validate checks that ids and vectors line up and share one dimension. It
// returns that dimension (0 for empty input).
func Validate(ids []string, vectors [][]float32) (int, error) {
	if len(ids) != len(vectors) {
		return 0, fmt.Errorf("index: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("index: vector %q is empty", ids[0])
	}
	for j := range vectors {
		if len(vectors[j]) != dim {
			return 0, fmt.Errorf("index: inconsistent vector dims %d vs %d for %q", len(vectors[j]), dim, ids[j])
		}
	}
	return dim, nil
}
