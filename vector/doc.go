// Package vector defines a lightweight document store API and SQLite-backed
// utilities used by this project. It includes:
//   - Document model and Store interface
//   - SQLiteStore: durable storage with k-d tree nearest-neighbor lookup
//   - Schema helpers to create a docs table
//   - Embedding encoding (BLOB) and Euclidean distance
package vector
