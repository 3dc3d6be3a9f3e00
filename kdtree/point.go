package kdtree

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Number enumerates coordinate types accepted by the tree.
type Number interface {
	constraints.Integer | constraints.Float
}

// Point represents a location in k-dimensional space.
type Point[T Number] []T

// NewPoint constructs a point from its coordinates.
func NewPoint[T Number](coords ...T) Point[T] {
	return Point[T](coords)
}

// Dims returns the number of coordinates.
func (p Point[T]) Dims() int { return len(p) }

// Clone returns a copy that does not share storage with p.
func (p Point[T]) Clone() Point[T] {
	if p == nil {
		return nil
	}
	out := make(Point[T], len(p))
	copy(out, p)
	return out
}

// nonFinite returns the index of the first NaN or infinite coordinate, or -1.
func (p Point[T]) nonFinite() int {
	for i, c := range p {
		if f := float64(c); math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}
