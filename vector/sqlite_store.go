package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/sqlite-kd/index/kd"
)

// SQLiteStore is an implementation of Store that uses a SQLite database for
// durable storage and an in-memory k-d tree for nearest-neighbor lookups. The
// tree is built lazily on the first Nearest call and discarded whenever the
// docs table is changed through the store.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.Mutex
	index *kd.Index
}

// NewSQLiteStore creates a new SQLite-backed Store. It ensures the base docs
// schema exists in the provided database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// AddDocuments inserts documents into the docs table. Documents without an ID
// receive a random UUID. All embeddings in a store must share one dimension.
func (s *SQLiteStore) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	dim, err := storedDimension(ctx, tx)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO docs(id, content, meta, embedding) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if n := len(d.Embedding); n > 0 {
			if dim == 0 {
				dim = n
			} else if n != dim {
				return nil, fmt.Errorf("vector: document %q has %d coordinates, store uses %d", d.ID, n, dim)
			}
		}
		emb, err := EncodeEmbedding(d.Embedding)
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, d.Metadata, emb); err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.invalidate()
	return ids, nil
}

// storedDimension returns the embedding dimension already present in docs, or 0.
func storedDimension(ctx context.Context, tx *sql.Tx) (int, error) {
	var size int
	err := tx.QueryRowContext(ctx, `SELECT length(embedding) FROM docs WHERE length(embedding) > 0 LIMIT 1`).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return size / 4, nil
}

// Nearest returns the document closest to query.
func (s *SQLiteStore) Nearest(ctx context.Context, query []float32) (*Match, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	idx, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, err
	}
	id, dist, err := idx.Nearest(query)
	if err != nil {
		return nil, err
	}
	m := &Match{Distance: dist}
	var emb []byte
	err = s.db.QueryRowContext(ctx, `SELECT id, content, meta, embedding FROM docs WHERE id = ?`, id).
		Scan(&m.ID, &m.Content, &m.Metadata, &emb)
	if err != nil {
		return nil, err
	}
	if m.Embedding, err = DecodeEmbedding(emb); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) ensureIndex(ctx context.Context) (*kd.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM docs WHERE length(embedding) > 0 ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var emb []byte
		if err := rows.Scan(&id, &emb); err != nil {
			return nil, err
		}
		v, err := DecodeEmbedding(emb)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	idx := kd.New()
	if err := idx.Build(ids, vecs); err != nil {
		return nil, err
	}
	s.index = idx
	return idx, nil
}

func (s *SQLiteStore) invalidate() {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

// Remove deletes a document by ID from the docs table.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("vector: Remove called with empty id")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM docs WHERE id = ?`, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
