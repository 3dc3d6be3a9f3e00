// Package index defines a minimal abstraction for static nearest-neighbor
// indexes that are built from embeddings, queried for the closest vector, and
// serialized for persistence. Implementations in this module are a brute-force
// baseline and a k-d tree.
package index
