package kdutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/sqlite-kd/vector"
)

// EmbedFunc converts free-form text into an embedding.
//
// Implementations can call any embedding provider as long as they return a
// slice of float32 values; the kd packages only see the numeric vectors.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// DefaultColumn is the visible column of a kd table declared without one.
const DefaultColumn = "doc_id"

// ShadowTableName derives the shadow table name of a kd virtual table, for
// example ShadowTableName("docs") == "_kd_docs".
func ShadowTableName(virtualTable string) string {
	return "_kd_" + virtualTable
}

// Match is the nearest document returned by NearestText.
type Match struct {
	ID       string
	Distance float64
	Content  string
	Meta     string
}

// UpsertShadowDocument inserts or replaces a document row in a kd shadow
// table, computing the embedding from content with embed.
//
// Table names are interpolated into SQL; shadowTable must be trusted.
func UpsertShadowDocument(
	ctx context.Context,
	db *sql.DB,
	shadowTable string,
	embed EmbedFunc,
	id, content, meta string,
) error {
	if db == nil {
		return fmt.Errorf("kdutil: db is nil")
	}
	if embed == nil {
		return fmt.Errorf("kdutil: EmbedFunc is nil")
	}
	vec, err := embed(ctx, content)
	if err != nil {
		return err
	}
	blob, err := vector.EncodeEmbedding(vec)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`
INSERT INTO %s(id, content, meta, embedding)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  content = excluded.content,
  meta = excluded.meta,
  embedding = excluded.embedding`, shadowTable)
	_, err = db.ExecContext(ctx, stmt, id, content, meta, blob)
	return err
}

// NearestText embeds query and returns the single nearest document of a kd
// virtual table. It returns nil, nil when the table holds no embeddings.
func NearestText(
	ctx context.Context,
	db *sql.DB,
	virtualTable, column string,
	embed EmbedFunc,
	query string,
) (*Match, error) {
	if db == nil {
		return nil, fmt.Errorf("kdutil: db is nil")
	}
	if embed == nil {
		return nil, fmt.Errorf("kdutil: EmbedFunc is nil")
	}
	if column == "" {
		column = DefaultColumn
	}
	vec, err := embed(ctx, query)
	if err != nil {
		return nil, err
	}
	blob, err := vector.EncodeEmbedding(vec)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s, distance FROM %s WHERE %s MATCH ?", column, virtualTable, column)
	rows, err := db.QueryContext(ctx, q, blob)
	if err != nil {
		return nil, err
	}
	var match *Match
	for rows.Next() {
		m := &Match{}
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			rows.Close()
			return nil, err
		}
		match = m
	}
	err = rows.Err()
	rows.Close()
	if err != nil || match == nil {
		return nil, err
	}
	stmt := fmt.Sprintf("SELECT content, meta FROM %s WHERE id = ?", ShadowTableName(virtualTable))
	var content, meta sql.NullString
	if err := db.QueryRowContext(ctx, stmt, match.ID).Scan(&content, &meta); err != nil {
		return nil, err
	}
	match.Content = content.String
	match.Meta = meta.String
	return match, nil
}
