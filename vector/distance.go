package vector

import (
	"fmt"

	"github.com/viant/sqlite-kd/kdtree"
	"github.com/viant/vec/search"
)

// L2Distance computes the Euclidean (L2) distance between two vectors using
// float32 arithmetic. It returns an error wrapping kdtree.ErrDimensionMismatch
// if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance %w: %d vs %d", kdtree.ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}
