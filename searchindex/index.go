// Package searchindex keeps the full-text index in step with processed
// documents. The index is a rebuildable projection of the database: records
// are keyed by models.IndexRecordID so re-indexing replaces in place.
package searchindex

import (
	"context"

	"github.com/Itish41/DocIntel/models"
)

// DefaultFields are searched when a Query names none.
var DefaultFields = []string{"title", "author", "content"}

// Query is a full-text query with exact-match filters on keyword fields.
type Query struct {
	Text    string
	Fields  []string
	Filters map[string]string
	From    int
	Size    int
}

func (q Query) fields() []string {
	if len(q.Fields) == 0 {
		return DefaultFields
	}
	return q.Fields
}

func (q Query) size() int {
	if q.Size <= 0 {
		return 10
	}
	return q.Size
}

// Hit is one matching record and its engine score.
type Hit struct {
	Record models.IndexRecord
	Score  float64
}

// Result is one page of hits plus the total number of matches.
type Result struct {
	Total int
	Hits  []Hit
}

// Index is the search index contract.
type Index interface {
	// Upsert writes rec under rec.ID and returns that id.
	Upsert(ctx context.Context, rec models.IndexRecord) (string, error)
	// DeleteByDocumentID removes the record for a document and reports whether one existed.
	DeleteByDocumentID(ctx context.Context, documentID string) (bool, error)
	Query(ctx context.Context, q Query) (Result, error)
}
