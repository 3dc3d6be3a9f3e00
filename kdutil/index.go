package kdutil

import (
	"context"
	"database/sql"
	"fmt"
)

// Index is a text-in, document-out facade over a kd virtual table and its
// shadow table. It stays embedding-agnostic by requiring an EmbedFunc.
type Index struct {
	DB          *sql.DB
	VirtualName string
	ShadowName  string
	Column      string
	Embed       EmbedFunc
}

// Document is a logical document stored in the kd shadow table.
type Document struct {
	ID      string
	Content string
	Meta    string
}

// NewIndex constructs an Index for a kd virtual table declared with the
// default doc_id column. The caller creates the table and its shadow.
func NewIndex(db *sql.DB, virtualTable string, embed EmbedFunc) (*Index, error) {
	if db == nil {
		return nil, fmt.Errorf("kdutil: db is nil")
	}
	if embed == nil {
		return nil, fmt.Errorf("kdutil: EmbedFunc is nil")
	}
	return &Index{
		DB:          db,
		VirtualName: virtualTable,
		ShadowName:  ShadowTableName(virtualTable),
		Column:      DefaultColumn,
		Embed:       embed,
	}, nil
}

// UpsertDocumentsText embeds and stores docs. Shadow triggers drop the
// persisted tree so the next query rebuilds it.
func (ix *Index) UpsertDocumentsText(ctx context.Context, docs []Document) error {
	for _, d := range docs {
		if err := UpsertShadowDocument(ctx, ix.DB, ix.ShadowName, ix.Embed, d.ID, d.Content, d.Meta); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDocuments removes documents with the given ids from the shadow table.
func (ix *Index) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if ix.DB == nil {
		return fmt.Errorf("kdutil: DB is nil on Index")
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", ix.ShadowName)
	for _, id := range ids {
		if _, err := ix.DB.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return nil
}

// NearestText returns the document closest to the embedding of query.
func (ix *Index) NearestText(ctx context.Context, query string) (*Match, error) {
	return NearestText(ctx, ix.DB, ix.VirtualName, ix.Column, ix.Embed, query)
}
