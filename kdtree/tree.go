package kdtree

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrInvalidDimension is returned when a tree is requested with k < 1.
	ErrInvalidDimension = errors.New("kdtree: dimension must be positive")
	// ErrDimensionMismatch is returned when a point or query does not have k coordinates.
	ErrDimensionMismatch = errors.New("kdtree: dimension mismatch")
	// ErrInvalidCoordinate is returned for NaN or infinite coordinates.
	ErrInvalidCoordinate = errors.New("kdtree: coordinate must be finite")
	// ErrNoNeighbor is returned when querying a tree that holds no points.
	ErrNoNeighbor = errors.New("kdtree: no neighbor available")
)

// parallelThreshold is the smallest sub-slice handed to another goroutine.
const parallelThreshold = 4096

// Tree is an immutable, median-balanced k-d tree.
type Tree[T Number] struct {
	root *Node[T]
	dim  int
	size int
}

// Option configures Build.
type Option func(*options)

type options struct {
	parallelism int
	threshold   int
}

// WithBuildParallelism allows Build to construct independent subtrees on up to
// n goroutines. Values below 2 keep the build sequential. The resulting tree
// has the same shape as a sequential build.
func WithBuildParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

func withParallelThreshold(n int) Option {
	return func(o *options) { o.threshold = n }
}

// Build constructs a tree of dimension k from points. The input slice and its
// points are copied; the caller may reuse or modify them afterwards. An empty
// input yields an empty tree.
func Build[T Number](k int, points []Point[T], opts ...Option) (*Tree[T], error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDimension, k)
	}
	o := options{threshold: parallelThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	data := make([]Point[T], len(points))
	for i, p := range points {
		if len(p) != k {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, want %d", ErrDimensionMismatch, i, len(p), k)
		}
		if j := p.nonFinite(); j >= 0 {
			return nil, fmt.Errorf("%w: point %d coordinate %d is %v", ErrInvalidCoordinate, i, j, p[j])
		}
		data[i] = p.Clone()
	}
	b := &builder[T]{dim: k, threshold: o.threshold}
	if o.parallelism > 1 {
		b.slots = make(chan struct{}, o.parallelism-1)
	}
	return &Tree[T]{root: b.build(data, 0), dim: k, size: len(data)}, nil
}

type builder[T Number] struct {
	dim       int
	threshold int
	slots     chan struct{}
}

func (b *builder[T]) build(points []Point[T], depth int) *Node[T] {
	switch len(points) {
	case 0:
		return nil
	case 1:
		return &Node[T]{point: points[0]}
	}
	axis := depth % b.dim
	sort.Slice(points, func(i, j int) bool { return points[i][axis] < points[j][axis] })
	median := len(points) / 2
	node := &Node[T]{point: points[median]}
	left, right := points[:median], points[median+1:]
	if b.slots != nil && len(points) >= b.threshold {
		select {
		case b.slots <- struct{}{}:
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-b.slots }()
				node.left = b.build(left, depth+1)
			}()
			node.right = b.build(right, depth+1)
			wg.Wait()
			return node
		default:
		}
	}
	node.left = b.build(left, depth+1)
	node.right = b.build(right, depth+1)
	return node
}

// Dim returns the tree dimension k.
func (t *Tree[T]) Dim() int { return t.dim }

// Len returns the number of points stored in the tree.
func (t *Tree[T]) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Empty reports whether the tree holds no points.
func (t *Tree[T]) Empty() bool { return t == nil || t.root == nil }

// Root returns the root node, or nil for an empty tree.
func (t *Tree[T]) Root() *Node[T] {
	if t == nil {
		return nil
	}
	return t.root
}

// Axis returns the splitting axis used at the given depth.
func (t *Tree[T]) Axis(depth int) int { return depth % t.dim }

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[T]) Height() int {
	if t == nil {
		return 0
	}
	return height(t.root)
}

func height[T Number](n *Node[T]) int {
	if n == nil {
		return 0
	}
	l, r := height(n.left), height(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// Walk visits every node in pre-order together with its depth. Returning false
// from fn skips the node's children.
func (t *Tree[T]) Walk(fn func(node *Node[T], depth int) bool) {
	if t == nil {
		return
	}
	walk(t.root, 0, fn)
}

func walk[T Number](n *Node[T], depth int, fn func(*Node[T], int) bool) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	walk(n.left, depth+1, fn)
	walk(n.right, depth+1, fn)
}
