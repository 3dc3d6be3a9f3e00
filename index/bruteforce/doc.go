// Package bruteforce provides a simple vector index that answers nearest
// neighbor queries by scanning all vectors and comparing Euclidean distances.
// It is the reference the k-d tree index is validated against, and it
// supports a compact binary format for persistence.
package bruteforce
