// Package kdutil offers embedding-agnostic helpers for kd virtual tables:
// upserting text documents with a caller supplied EmbedFunc and looking up the
// nearest document for a text query.
package kdutil
