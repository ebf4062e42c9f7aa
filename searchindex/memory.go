package searchindex

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Itish41/DocIntel/models"
)

// MemoryIndex is an in-process Index with case-insensitive substring matching.
// Score is the number of searched fields that contain the text.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]models.IndexRecord
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]models.IndexRecord)}
}

func (m *MemoryIndex) Upsert(_ context.Context, rec models.IndexRecord) (string, error) {
	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()
	return rec.ID, nil
}

func (m *MemoryIndex) DeleteByDocumentID(_ context.Context, documentID string) (bool, error) {
	id := models.IndexRecordID(documentID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

// Get returns the record stored for a document.
func (m *MemoryIndex) Get(documentID string) (models.IndexRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[models.IndexRecordID(documentID)]
	return rec, ok
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryIndex) Query(_ context.Context, q Query) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(q.Text)
	var hits []Hit
	for _, rec := range m.records {
		if !matchesFilters(rec, q.Filters) {
			continue
		}
		score := 1.0
		if needle != "" {
			score = 0
			for _, f := range q.fields() {
				if strings.Contains(strings.ToLower(fieldValue(rec, f)), needle) {
					score++
				}
			}
			if score == 0 {
				continue
			}
		}
		hits = append(hits, Hit{Record: rec, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	res := Result{Total: len(hits)}
	from := max(q.From, 0)
	if from >= len(hits) {
		return res, nil
	}
	end := min(from+q.size(), len(hits))
	res.Hits = hits[from:end]
	return res, nil
}

func matchesFilters(rec models.IndexRecord, filters map[string]string) bool {
	for field, want := range filters {
		if fieldValue(rec, field) != want {
			return false
		}
	}
	return true
}

func fieldValue(rec models.IndexRecord, field string) string {
	switch field {
	case "id":
		return rec.ID
	case "title":
		return rec.Title
	case "author":
		return rec.Author
	case "content":
		return rec.Content
	case "fileName":
		return rec.FileName
	case "documentType":
		return string(rec.DocumentType)
	case "uploadedBy":
		return rec.UploadedBy
	case "databaseId":
		return rec.DatabaseID
	default:
		return ""
	}
}
