// Package lifecycle enforces the document processing state machine:
//
//	PENDING -> PROCESSING -> COMPLETED
//	                      \-> FAILED
//	PENDING -> FAILED (upload path only)
//
// Every transition is a single guarded write, so redelivered or concurrent
// attempts for the same document cannot interleave their terminal fields.
package lifecycle

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/cache"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/repository"
)

var timeNow = time.Now

// Transition is the tagged result of a transition call. Applied is false when
// the document was already at or past the requested state, which is a no-op.
type Transition struct {
	Document *models.Document
	Applied  bool
	From     models.ProcessingStatus
	To       models.ProcessingStatus
}

// Manager is the sole mutation path for Document metadata.
type Manager struct {
	repo   repository.DocumentRepository
	cache  cache.DocumentCache
	sinks  []EventSink
	logger *slog.Logger

	// cacheMu orders read-through fills against invalidations. gen counts
	// invalidations so a fill that raced a write is dropped.
	cacheMu sync.Mutex
	gen     uint64
}

// NewManager creates a Manager. c may be nil.
func NewManager(repo repository.DocumentRepository, c cache.DocumentCache, sinks ...EventSink) *Manager {
	if c == nil {
		c = cache.Noop{}
	}
	return &Manager{repo: repo, cache: c, sinks: sinks, logger: slog.Default().With("component", "lifecycle")}
}

// Create persists a new PENDING document.
func (m *Manager) Create(ctx context.Context, doc *models.Document) error {
	doc.ProcessingStatus = models.StatusPending
	if doc.UploadDate.IsZero() {
		doc.UploadDate = timeNow().UTC()
	}
	if err := m.repo.Create(ctx, doc); err != nil {
		return err
	}
	m.emit(ctx, Event{DocumentID: doc.ID, To: models.StatusPending, At: doc.UploadDate})
	return nil
}

// Get returns the document, serving from the cache when possible.
func (m *Manager) Get(ctx context.Context, id string) (*models.Document, error) {
	if doc, ok := m.cache.Get(id); ok {
		return doc, nil
	}
	m.cacheMu.Lock()
	gen := m.gen
	m.cacheMu.Unlock()

	doc, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.cacheMu.Lock()
	if m.gen == gen {
		m.cache.Put(doc)
	}
	m.cacheMu.Unlock()
	return doc, nil
}

// invalidate evicts id after a write. Fills started before it are discarded.
func (m *Manager) invalidate(id string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	m.gen++
	m.cache.Invalidate(id)
}

// AssignStoragePath records the blob handle once the blob store accepted the file.
func (m *Manager) AssignStoragePath(ctx context.Context, id, path string) (*models.Document, error) {
	defer m.invalidate(id)
	return m.repo.SetStoragePath(ctx, id, path, timeNow().UTC())
}

// BeginProcessing moves a PENDING document to PROCESSING. For any later state
// it is accepted as a no-op so queue redelivery is harmless.
func (m *Manager) BeginProcessing(ctx context.Context, id string) (Transition, error) {
	now := timeNow().UTC()
	return m.transition(ctx, id, []models.ProcessingStatus{models.StatusPending}, repository.StatusUpdate{
		To: models.StatusProcessing,
		At: now,
	}, "")
}

// CompleteProcessing moves a PROCESSING document to COMPLETED, storing the
// extracted text and the index id in the same write.
func (m *Manager) CompleteProcessing(ctx context.Context, id, text, indexID string) (Transition, error) {
	if indexID == "" {
		return Transition{}, apperrors.New(apperrors.ErrInvalidInput, "complete processing", nil)
	}
	now := timeNow().UTC()
	return m.transition(ctx, id, []models.ProcessingStatus{models.StatusProcessing}, repository.StatusUpdate{
		To:            models.StatusCompleted,
		SearchIndexID: &indexID,
		ExtractedText: &text,
		ProcessedDate: &now,
		At:            now,
	}, "")
}

// FailProcessing moves a PROCESSING document to FAILED with reason.
func (m *Manager) FailProcessing(ctx context.Context, id, reason string) (Transition, error) {
	return m.fail(ctx, id, models.StatusProcessing, reason)
}

// MarkFailed moves a PENDING document to FAILED. The upload path uses it when
// the blob or the processing message could not be stored.
func (m *Manager) MarkFailed(ctx context.Context, id, reason string) (Transition, error) {
	return m.fail(ctx, id, models.StatusPending, reason)
}

// Remove deletes the metadata row.
func (m *Manager) Remove(ctx context.Context, id string) error {
	defer m.invalidate(id)
	return m.repo.Delete(ctx, id)
}

func (m *Manager) fail(ctx context.Context, id string, from models.ProcessingStatus, reason string) (Transition, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown processing error"
	}
	now := timeNow().UTC()
	return m.transition(ctx, id, []models.ProcessingStatus{from}, repository.StatusUpdate{
		To:              models.StatusFailed,
		ProcessingError: &reason,
		ProcessedDate:   &now,
		At:              now,
	}, reason)
}

func (m *Manager) transition(ctx context.Context, id string, from []models.ProcessingStatus, u repository.StatusUpdate, reason string) (Transition, error) {
	doc, applied, err := m.repo.UpdateStatus(ctx, id, from, u)
	m.invalidate(id)
	if err != nil {
		return Transition{}, err
	}

	t := Transition{Document: doc, Applied: applied, From: doc.ProcessingStatus, To: u.To}
	if !applied {
		m.logger.DebugContext(ctx, "transition skipped", "document_id", id, "current", doc.ProcessingStatus, "requested", u.To)
		return t, nil
	}
	t.From = from[0]
	m.emit(ctx, Event{DocumentID: id, From: t.From, To: u.To, Reason: reason, At: u.At})
	return t, nil
}

func (m *Manager) emit(ctx context.Context, e Event) {
	for _, s := range m.sinks {
		s.Publish(ctx, e)
	}
}
