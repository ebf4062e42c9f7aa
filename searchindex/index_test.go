package searchindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
)

func record(id, title, author, content string) models.IndexRecord {
	return models.IndexRecord{
		ID:           models.IndexRecordID(id),
		Title:        title,
		Author:       author,
		Content:      content,
		FileName:     id + ".txt",
		DocumentType: models.DocumentTypeTXT,
		UploadedBy:   "ada",
		DatabaseID:   id,
	}
}

func TestMapping(t *testing.T) {
	props := Mapping()["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "text", "analyzer": "standard"}, props["content"])
	assert.Equal(t, map[string]any{"type": "keyword"}, props["databaseId"])
	assert.Equal(t, map[string]any{"type": "keyword"}, props["documentType"])
	assert.Len(t, props, 8)
}

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	_, err := idx.Upsert(ctx, record("1", "Go Patterns", "Rob", "channels and goroutines"))
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, record("2", "Cooking", "Julia", "butter and go"))
	require.NoError(t, err)
	id, err := idx.Upsert(ctx, record("1", "Go Patterns", "Rob", "replaced text"))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)
	assert.Equal(t, 2, idx.Len(), "upsert replaces")

	tests := []struct {
		name      string
		query     Query
		wantTotal int
		wantIDs   []string
	}{
		{name: "multi field case insensitive", query: Query{Text: "GO"}, wantTotal: 2, wantIDs: []string{"doc-1", "doc-2"}},
		{name: "single field", query: Query{Text: "rob", Fields: []string{"author"}}, wantTotal: 1, wantIDs: []string{"doc-1"}},
		{name: "filter only", query: Query{Filters: map[string]string{"databaseId": "2"}}, wantTotal: 1, wantIDs: []string{"doc-2"}},
		{name: "paged", query: Query{Text: "go", From: 1, Size: 1}, wantTotal: 2, wantIDs: []string{"doc-2"}},
		{name: "past the end", query: Query{Text: "go", From: 5}, wantTotal: 2},
		{name: "no match", query: Query{Text: "python"}, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.Query(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			var ids []string
			for _, h := range res.Hits {
				ids = append(ids, h.Record.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	deleted, err := idx.DeleteByDocumentID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = idx.DeleteByDocumentID(ctx, "1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

type esCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeElastic answers the handful of endpoints ElasticIndex uses.
type fakeElastic struct {
	mu      sync.Mutex
	calls   []esCall
	handler func(w http.ResponseWriter, r *http.Request)
}

func newFakeElastic(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*ElasticIndex, *fakeElastic) {
	t.Helper()
	fake := &fakeElastic{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fake.mu.Lock()
		fake.calls = append(fake.calls, esCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		fake.mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		fake.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	idx, err := NewElasticIndex(ElasticConfig{Addresses: []string{srv.URL}, Index: "documents"})
	require.NoError(t, err)
	return idx, fake
}

func (f *fakeElastic) last() esCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func TestElasticIndex_Upsert(t *testing.T) {
	idx, fake := newFakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"updated"}`))
	})

	id, err := idx.Upsert(context.Background(), record("42", "T", "A", "body"))
	require.NoError(t, err)
	assert.Equal(t, "doc-42", id)

	call := fake.last()
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, "/documents/_doc/doc-42", call.Path)
	assert.Contains(t, call.Query, "refresh=wait_for")

	var sent models.IndexRecord
	require.NoError(t, json.Unmarshal([]byte(call.Body), &sent))
	assert.Equal(t, "42", sent.DatabaseID)
	assert.Equal(t, "body", sent.Content)
}

func TestElasticIndex_UpsertFailure(t *testing.T) {
	idx, _ := newFakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	_, err := idx.Upsert(context.Background(), record("42", "T", "A", "body"))
	assert.ErrorIs(t, err, apperrors.ErrIndexFailure)
	assert.ErrorContains(t, err, "mapper_parsing_exception")
}

func TestElasticIndex_Delete(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{name: "deleted", status: http.StatusOK, want: true},
		{name: "missing", status: http.StatusNotFound, want: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, fake := newFakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{}`))
			})

			got, err := idx.DeleteByDocumentID(context.Background(), "7")
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrIndexFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, http.MethodDelete, fake.last().Method)
			assert.Equal(t, "/documents/_doc/doc-7", fake.last().Path)
		})
	}
}

func TestElasticIndex_Query(t *testing.T) {
	idx, fake := newFakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":12,"relation":"eq"},"hits":[` +
			`{"_id":"doc-1","_score":2.5,"_source":{"id":"doc-1","title":"Go","content":"go go","databaseId":"1"}},` +
			`{"_id":"doc-2","_score":1.0,"_source":{"id":"doc-2","title":"Rust","content":"go","databaseId":"2"}}]}}`))
	})

	res, err := idx.Query(context.Background(), Query{
		Text:    "go",
		Filters: map[string]string{"uploadedBy": "ada"},
		From:    10,
		Size:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "1", res.Hits[0].Record.DatabaseID)
	assert.Equal(t, 2.5, res.Hits[0].Score)

	call := fake.last()
	assert.Equal(t, "/documents/_search", call.Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.Body), &body))
	assert.EqualValues(t, 10, body["from"])
	assert.EqualValues(t, 2, body["size"])
	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	mm := boolQuery["must"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "go", mm["query"])
	assert.Equal(t, []any{"title", "author", "content"}, mm["fields"])
	assert.Equal(t, []any{map[string]any{"term": map[string]any{"uploadedBy": "ada"}}}, boolQuery["filter"])
}

func TestElasticIndex_EnsureIndex(t *testing.T) {
	t.Run("creates missing index", func(t *testing.T) {
		idx, fake := newFakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		})

		require.NoError(t, idx.EnsureIndex(context.Background()))
		call := fake.last()
		assert.Equal(t, http.MethodPut, call.Method)
		assert.Equal(t, "/documents", call.Path)
		assert.Contains(t, call.Body, `"mappings"`)
	})

	t.Run("existing index untouched", func(t *testing.T) {
		idx, fake := newFakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, idx.EnsureIndex(context.Background()))
		assert.Len(t, fake.calls, 1)
		assert.Equal(t, http.MethodHead, fake.last().Method)
	})
}
