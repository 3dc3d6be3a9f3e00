package vector

import (
	"database/sql"
)

// docsSchema creates the docs table. Embeddings are little-endian float32
// BLOBs, so their length is a multiple of 4, and every non-empty embedding in
// the table has the same length.
var docsSchema = []string{
	`CREATE TABLE IF NOT EXISTS docs (
    id TEXT PRIMARY KEY,
    content TEXT,
    meta TEXT,
    embedding BLOB CHECK (embedding IS NULL OR length(embedding) % 4 = 0)
)`,
	`CREATE TRIGGER IF NOT EXISTS docs_dim_ins BEFORE INSERT ON docs
WHEN length(NEW.embedding) > 0 AND EXISTS (
    SELECT 1 FROM docs WHERE length(embedding) > 0 AND length(embedding) != length(NEW.embedding)
)
BEGIN SELECT RAISE(ABORT, 'vector: embedding dimension mismatch'); END`,
	`CREATE TRIGGER IF NOT EXISTS docs_dim_upd BEFORE UPDATE OF embedding ON docs
WHEN length(NEW.embedding) > 0 AND EXISTS (
    SELECT 1 FROM docs WHERE id != NEW.id AND length(embedding) > 0 AND length(embedding) != length(NEW.embedding)
)
BEGIN SELECT RAISE(ABORT, 'vector: embedding dimension mismatch'); END`,
}

// EnsureSchema creates the docs table backing SQLiteStore and the triggers
// guarding its embedding dimension if they do not exist.
func EnsureSchema(db *sql.DB) error {
	for _, stmt := range docsSchema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
