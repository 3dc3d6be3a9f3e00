package kdtree

import (
	"fmt"
	"math"
)

// Neighbor describes the result of a nearest-neighbor query.
type Neighbor[T Number] struct {
	Point    Point[T]
	Distance float64
}

// candidate is a search result; found is false for absent subtrees.
type candidate[T Number] struct {
	point Point[T]
	sq    float64
	found bool
}

func closer[T Number](best, other candidate[T]) candidate[T] {
	if !other.found {
		return best
	}
	if !best.found || other.sq < best.sq {
		return other
	}
	return best
}

// Nearest returns the point in the tree closest to query by Euclidean distance.
// When several points are equally close any one of them is returned.
func (t *Tree[T]) Nearest(query Point[T]) (Neighbor[T], error) {
	if t.Empty() {
		return Neighbor[T]{}, ErrNoNeighbor
	}
	if len(query) != t.dim {
		return Neighbor[T]{}, fmt.Errorf("%w: query has %d coordinates, want %d", ErrDimensionMismatch, len(query), t.dim)
	}
	if j := query.nonFinite(); j >= 0 {
		return Neighbor[T]{}, fmt.Errorf("%w: query coordinate %d is %v", ErrInvalidCoordinate, j, query[j])
	}
	seed := candidate[T]{point: t.root.point, sq: squaredDistance(query, t.root.point), found: true}
	best := nearest(t.root, query, t.dim, 0, seed)
	return Neighbor[T]{Point: best.point.Clone(), Distance: math.Sqrt(best.sq)}, nil
}

// FindNearest returns the nearest neighbor of query in tree.
func FindNearest[T Number](query Point[T], tree *Tree[T]) (Neighbor[T], error) {
	return tree.Nearest(query)
}

func nearest[T Number](node *Node[T], query Point[T], dim, depth int, best candidate[T]) candidate[T] {
	if node == nil {
		return candidate[T]{}
	}
	axis := depth % dim
	near, far := node.left, node.right
	if query[axis] > node.point[axis] {
		near, far = node.right, node.left
	}
	best = closer(best, nearest(near, query, dim, depth+1, best))
	best = closer(best, candidate[T]{point: node.point, sq: squaredDistance(query, node.point), found: true})
	if plane := planeDistance(query, node.point, axis); plane*plane < best.sq {
		best = closer(best, nearest(far, query, dim, depth+1, best))
	}
	return best
}
