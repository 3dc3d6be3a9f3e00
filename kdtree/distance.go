package kdtree

import "math"

// Distance returns the Euclidean distance between two points. Both points are
// expected to have the same number of coordinates; use Tree.Nearest for
// validated queries.
func Distance[T Number](p, q Point[T]) float64 {
	return math.Sqrt(squaredDistance(p, q))
}

func squaredDistance[T Number](p, q Point[T]) float64 {
	var sum float64
	for i := range p {
		d := float64(p[i]) - float64(q[i])
		sum += d * d
	}
	return sum
}

// planeDistance is the distance from p to the axis-aligned hyperplane through q.
func planeDistance[T Number](p, q Point[T], axis int) float64 {
	return math.Abs(float64(p[axis]) - float64(q[axis]))
}
