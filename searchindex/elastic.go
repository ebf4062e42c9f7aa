package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
)

// ElasticConfig addresses an Elasticsearch cluster.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// ElasticIndex stores IndexRecords in one Elasticsearch index.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(cfg ElasticConfig) (*ElasticIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = "documents"
	}
	return &ElasticIndex{client: client, index: index}, nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.New(apperrors.ErrIndexFailure, "index exists", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return apperrors.New(apperrors.ErrIndexFailure, "index exists", fmt.Errorf("unexpected status %s", res.Status()))
	}

	body, err := json.Marshal(Mapping())
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}
	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return apperrors.New(apperrors.ErrIndexFailure, "create index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.New(apperrors.ErrIndexFailure, "create index", responseError(res))
	}
	slog.InfoContext(ctx, "created search index", "index", e.index)
	return nil
}

func (e *ElasticIndex) Upsert(ctx context.Context, rec models.IndexRecord) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", apperrors.New(apperrors.ErrIndexFailure, "upsert", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithDocumentID(rec.ID),
		e.client.Index.WithRefresh("wait_for"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return "", apperrors.New(apperrors.ErrIndexFailure, "upsert "+rec.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", apperrors.New(apperrors.ErrIndexFailure, "upsert "+rec.ID, responseError(res))
	}
	return rec.ID, nil
}

func (e *ElasticIndex) DeleteByDocumentID(ctx context.Context, documentID string) (bool, error) {
	id := models.IndexRecordID(documentID)
	res, err := e.client.Delete(
		e.index,
		id,
		e.client.Delete.WithRefresh("wait_for"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return false, apperrors.New(apperrors.ErrIndexFailure, "delete "+id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, apperrors.New(apperrors.ErrIndexFailure, "delete "+id, responseError(res))
	}
	return true, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float64            `json:"_score"`
			Source models.IndexRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticIndex) Query(ctx context.Context, q Query) (Result, error) {
	body, err := json.Marshal(searchBody(q))
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return Result{}, apperrors.New(apperrors.ErrIndexFailure, "search", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Result{}, apperrors.New(apperrors.ErrIndexFailure, "search", responseError(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Result{}, apperrors.New(apperrors.ErrIndexFailure, "search", fmt.Errorf("failed to decode search response: %w", err))
	}

	out := Result{Total: parsed.Hits.Total.Value, Hits: make([]Hit, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		out.Hits = append(out.Hits, Hit{Record: h.Source, Score: h.Score})
	}
	return out, nil
}

// searchBody renders q as a bool query: multi_match (or match_all) in must,
// one term per filter.
func searchBody(q Query) map[string]any {
	var must any = map[string]any{"match_all": map[string]any{}}
	if q.Text != "" {
		must = map[string]any{
			"multi_match": map[string]any{
				"query":  q.Text,
				"fields": q.fields(),
			},
		}
	}

	filters := make([]any, 0, len(q.Filters))
	for field, value := range q.Filters {
		filters = append(filters, map[string]any{"term": map[string]any{field: value}})
	}

	from := q.From
	if from < 0 {
		from = 0
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filters,
			},
		},
		"from":             from,
		"size":             q.size(),
		"track_total_hits": true,
	}
}

func responseError(res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch returned %s: %s", res.Status(), bytes.TrimSpace(b))
}
