package kdtree

// Node represents a single point placed in the tree. Children are owned
// exclusively by their parent; the splitting axis is derived from depth.
type Node[T Number] struct {
	point Point[T]
	left  *Node[T]
	right *Node[T]
}

// Point returns the point stored at the node.
func (n *Node[T]) Point() Point[T] { return n.point }

// Left returns the subtree holding coordinates less than or equal to the node's.
func (n *Node[T]) Left() *Node[T] { return n.left }

// Right returns the subtree holding coordinates greater than or equal to the node's.
func (n *Node[T]) Right() *Node[T] { return n.right }

// IsLeaf reports whether the node has no children.
func (n *Node[T]) IsLeaf() bool { return n.left == nil && n.right == nil }
