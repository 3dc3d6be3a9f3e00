package vector

import (
	"context"
)

// Document represents a logical document stored in the vector store.
type Document struct {
	// ID is the logical identifier of the document. When empty on insert, the
	// store generates one.
	ID string

	// Content holds the main text/body of the document.
	Content string

	// Metadata is an opaque JSON or structured payload associated with the
	// document, modeled as a raw string.
	Metadata string

	// Embedding is the point the document occupies in k-dimensional space.
	Embedding []float32
}

// Match is the result of a nearest-neighbor lookup.
type Match struct {
	Document
	Distance float64
}

// Store defines the application-level vector store API. Implementations keep
// documents durable in SQLite and answer nearest-neighbor queries with a
// static k-d tree that is rebuilt after writes.
type Store interface {
	// AddDocuments inserts documents into the store and returns their assigned
	// IDs. If a Document has ID set, implementations honor it (subject to
	// uniqueness constraints).
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Nearest returns the document whose embedding is closest to query by
	// Euclidean distance. It fails with kdtree.ErrNoNeighbor when no document
	// carries an embedding.
	Nearest(ctx context.Context, query []float32) (*Match, error)

	// Remove deletes the document with the given ID.
	Remove(ctx context.Context, id string) error
}
