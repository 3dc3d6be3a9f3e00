// Package kdvec implements a SQLite virtual table answering exact
// nearest-neighbor queries with MATCH semantics. Each virtual table has a
// per-table shadow table that stores ids, content, metadata, and embeddings.
// A k-d tree is built from the shadow table on first use, persisted in the
// shared kd_storage table, and cached in memory across connections.
//
// Features:
//   - WHERE doc_id MATCH ? returns the single closest row and its distance
//   - Shadow table and invalidation triggers created on demand
//   - Writes to the shadow table discard the persisted and cached tree; the
//     next MATCH rebuilds it
//   - Builds are single-flight in process and serialised across processes
//     through kd_storage_locks
//   - Brute-force fallback for tiny tables (index=auto)
package kdvec
