package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Itish41/DocIntel/blobstore"
	"github.com/Itish41/DocIntel/cache"
	"github.com/Itish41/DocIntel/extractor"
	"github.com/Itish41/DocIntel/lifecycle"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/queue"
	"github.com/Itish41/DocIntel/repository"
	"github.com/Itish41/DocIntel/searchindex"
	"github.com/Itish41/DocIntel/testutil"
)

type fixture struct {
	db     *gorm.DB
	repo   *repository.GormDocumentRepository
	docs   *lifecycle.Manager
	blobs  *blobstore.MemoryStore
	queue  *queue.MemoryQueue
	index  *searchindex.MemoryIndex
	svc    *DocumentService
	worker *ProcessingWorker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewGormDocumentRepository(db)
	f := &fixture{
		db:    db,
		repo:  repo,
		docs:  lifecycle.NewManager(repo, cache.NewLRUDocumentCache(32, time.Minute)),
		blobs: blobstore.NewMemoryStore(),
		queue: queue.NewMemoryQueue(32, 0),
		index: searchindex.NewMemoryIndex(),
	}
	f.svc = NewDocumentService(f.docs, repo, f.blobs, f.queue, f.index)
	f.worker = f.newWorker(f.blobs, f.index)
	return f
}

func (f *fixture) newWorker(blobs blobstore.Store, index searchindex.Index) *ProcessingWorker {
	return NewProcessingWorker(f.docs, blobs, extractor.NewRegistry(), index, f.queue, 1)
}

func newUpload(title, fileName string) models.NewDocument {
	return models.NewDocument{
		Title:       title,
		Author:      "Ada Lovelace",
		FileName:    fileName,
		ContentType: "application/octet-stream",
		FileSize:    11,
		UploadedBy:  "ada",
	}
}

// nextMessage pops the message published by the last upload.
func (f *fixture) nextMessage(t *testing.T) models.ProcessingMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := f.queue.Receive(ctx)
	require.NoError(t, err)
	return d.Message()
}

func (f *fixture) reload(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return doc
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, docID, fileName, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, docID, fileName, contentType, r)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, handle string) (io.ReadCloser, error) {
	args := m.Called(ctx, handle)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, handle string) (bool, error) {
	args := m.Called(ctx, handle)
	return args.Bool(0), args.Error(1)
}

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) Upsert(ctx context.Context, rec models.IndexRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *mockIndex) DeleteByDocumentID(ctx context.Context, documentID string) (bool, error) {
	args := m.Called(ctx, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockIndex) Query(ctx context.Context, q searchindex.Query) (searchindex.Result, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(searchindex.Result)
	return res, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg models.ProcessingMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// hookIndex runs afterUpsert once a record has been written, to stage a
// competing change between the index write and the completion.
type hookIndex struct {
	*searchindex.MemoryIndex
	afterUpsert func(rec models.IndexRecord)
}

func (h *hookIndex) Upsert(ctx context.Context, rec models.IndexRecord) (string, error) {
	id, err := h.MemoryIndex.Upsert(ctx, rec)
	if err == nil && h.afterUpsert != nil {
		h.afterUpsert(rec)
	}
	return id, err
}

// scriptedConsumer replays results, then blocks until ctx is done.
type scriptedConsumer struct {
	mu      sync.Mutex
	results []func() (queue.Delivery, error)
}

func (s *scriptedConsumer) Receive(ctx context.Context) (queue.Delivery, error) {
	s.mu.Lock()
	if len(s.results) > 0 {
		next := s.results[0]
		s.results = s.results[1:]
		s.mu.Unlock()
		return next()
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedConsumer) Close() error { return nil }

type stubDelivery struct {
	msg   models.ProcessingMessage
	acked chan struct{}
}

func (d *stubDelivery) Message() models.ProcessingMessage { return d.msg }

func (d *stubDelivery) Ack(context.Context) error {
	close(d.acked)
	return nil
}
