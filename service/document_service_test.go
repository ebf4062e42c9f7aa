package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/cache"
	"github.com/Itish41/DocIntel/lifecycle"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/repository"
	"github.com/Itish41/DocIntel/testutil"
)

func TestDocumentService_CreateDocumentMetadata(t *testing.T) {
	tests := []struct {
		name     string
		in       models.NewDocument
		wantErr  error
		wantType models.DocumentType
	}{
		{name: "pdf", in: newUpload("Report", "Q1.PDF"), wantType: models.DocumentTypePDF},
		{name: "legacy word", in: newUpload("Memo", "memo.doc"), wantType: models.DocumentTypeDOCX},
		{name: "no extension", in: newUpload("Readme", "README"), wantType: models.DocumentTypeOther},
		{name: "missing title", in: newUpload("  ", "a.txt"), wantErr: apperrors.ErrInvalidInput},
		{name: "missing file name", in: newUpload("T", ""), wantErr: apperrors.ErrInvalidInput},
		{name: "missing uploader", in: func() models.NewDocument { d := newUpload("T", "a.txt"); d.UploadedBy = ""; return d }(), wantErr: apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			doc, err := f.svc.CreateDocumentMetadata(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, doc.ID)
			assert.Equal(t, tt.wantType, doc.DocumentType)
			assert.Equal(t, models.StatusPending, doc.ProcessingStatus)
			assert.False(t, doc.UploadDate.IsZero())
			assert.Nil(t, doc.StoragePath)
		})
	}
}

func TestDocumentService_Upload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, newUpload("Notes", "notes.txt"), strings.NewReader("hello world"))
	require.NoError(t, err)
	require.NotNil(t, doc.StoragePath)
	assert.Equal(t, models.StatusPending, doc.ProcessingStatus)
	assert.True(t, f.blobs.Has(*doc.StoragePath))

	msg := f.nextMessage(t)
	assert.Equal(t, doc.ID, msg.DocumentID)
	assert.Equal(t, *doc.StoragePath, msg.StoragePath)
	assert.Equal(t, "Notes", msg.Title)
	assert.Equal(t, "ada", msg.UploadedBy)
	assert.Equal(t, "notes.txt", msg.FileName)

	// nothing is extracted on the upload path
	assert.Empty(t, f.reload(t, doc.ID).ExtractedText)
}

func TestDocumentService_UploadStorageFailure(t *testing.T) {
	f := newFixture(t)
	store := new(mockStore)
	store.On("Put", mock.Anything, mock.Anything, "notes.txt", mock.Anything, mock.Anything).
		Return("", errors.New("bucket unavailable"))
	svc := NewDocumentService(f.docs, f.repo, store, f.queue, f.index)

	_, err := svc.Upload(context.Background(), newUpload("Notes", "notes.txt"), strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrStorageFailure)

	page, err := f.repo.FindByTitle(context.Background(), "Notes", models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	failed := f.reload(t, page.Items[0].ID)
	assert.Equal(t, models.StatusFailed, failed.ProcessingStatus)
	require.NotNil(t, failed.ProcessingError)
	assert.Contains(t, *failed.ProcessingError, "bucket unavailable")
	assert.Zero(t, f.queue.Len())
}

// storagePathFailingRepo fails every SetStoragePath and delegates the rest.
type storagePathFailingRepo struct {
	*repository.GormDocumentRepository
}

func (r storagePathFailingRepo) SetStoragePath(context.Context, string, string, time.Time) (*models.Document, error) {
	return nil, errors.New("db blip")
}

func TestDocumentService_UploadStoragePathFailure(t *testing.T) {
	f := newFixture(t)
	repo := storagePathFailingRepo{f.repo}
	docs := lifecycle.NewManager(repo, cache.NewLRUDocumentCache(8, time.Minute))
	svc := NewDocumentService(docs, repo, f.blobs, f.queue, f.index)

	var (
		got *models.Document
		err error
	)
	require.NotPanics(t, func() {
		got, err = svc.Upload(context.Background(), newUpload("Notes", "notes.txt"), strings.NewReader("hello world"))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db blip")
	assert.Nil(t, got)

	page, err := f.repo.FindByTitle(context.Background(), "Notes", models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	failed := f.reload(t, page.Items[0].ID)
	assert.Equal(t, models.StatusFailed, failed.ProcessingStatus)
	require.NotNil(t, failed.ProcessingError)
	assert.True(t, strings.HasPrefix(*failed.ProcessingError, "Failed to record storage path"))
	assert.Zero(t, f.blobs.Len(), "blob without a recorded handle must be discarded")
	assert.Zero(t, f.queue.Len())
}

// A Get served from cache after Upload must reflect every later transition.
func TestDocumentService_GetDocumentFollowsTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, newUpload("Notes", "notes.txt"), strings.NewReader("hello world"))
	require.NoError(t, err)

	cached, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cached.ProcessingStatus)

	_, err = f.docs.BeginProcessing(ctx, doc.ID)
	require.NoError(t, err)
	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.ProcessingStatus)

	_, err = f.docs.FailProcessing(ctx, doc.ID, "boom")
	require.NoError(t, err)
	got, err = f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.ProcessingStatus)
}

func TestDocumentService_UploadQueueFailure(t *testing.T) {
	f := newFixture(t)
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("models.ProcessingMessage")).Return(errors.New("broker down"))
	svc := NewDocumentService(f.docs, f.repo, f.blobs, pub, f.index)

	_, err := svc.Upload(context.Background(), newUpload("Notes", "notes.txt"), strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrQueueFailure)

	page, err := f.repo.FindByTitle(context.Background(), "Notes", models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	failed := f.reload(t, page.Items[0].ID)
	assert.Equal(t, models.StatusFailed, failed.ProcessingStatus)
	require.NotNil(t, failed.ProcessingError)
	assert.True(t, strings.HasPrefix(*failed.ProcessingError, QueueFailurePrefix))
	assert.Contains(t, *failed.ProcessingError, "broker down")
	pub.AssertExpectations(t)
}

func TestDocumentService_EnqueueForProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.EnqueueForProcessing(ctx, models.ProcessingMessage{}), apperrors.ErrInvalidInput)

	require.NoError(t, f.svc.EnqueueForProcessing(ctx, models.ProcessingMessage{DocumentID: "d1", StoragePath: "d1_x.txt"}))
	assert.Equal(t, "d1", f.nextMessage(t).DocumentID)
}

func TestDocumentService_DeleteDocumentOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := testutil.SeedDocument(t, f.db, models.StatusCompleted)

	var order []string
	idx := new(mockIndex)
	idx.On("DeleteByDocumentID", mock.Anything, doc.ID).
		Run(func(mock.Arguments) { order = append(order, "index") }).
		Return(true, nil)
	store := new(mockStore)
	store.On("Delete", mock.Anything, *doc.StoragePath).
		Run(func(mock.Arguments) { order = append(order, "blob") }).
		Return(true, nil)

	svc := NewDocumentService(f.docs, f.repo, store, f.queue, idx)
	require.NoError(t, svc.DeleteDocument(ctx, doc.ID, "ada"))

	assert.Equal(t, []string{"index", "blob"}, order)
	_, err := f.repo.FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDocumentService_DeleteDocumentResumesAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := testutil.SeedDocument(t, f.db, models.StatusCompleted)

	idx := new(mockIndex)
	idx.On("DeleteByDocumentID", mock.Anything, doc.ID).Return(true, nil).Once()
	idx.On("DeleteByDocumentID", mock.Anything, doc.ID).Return(false, nil).Once()
	store := new(mockStore)
	store.On("Delete", mock.Anything, *doc.StoragePath).Return(false, errors.New("timeout")).Once()
	store.On("Delete", mock.Anything, *doc.StoragePath).Return(true, nil).Once()
	svc := NewDocumentService(f.docs, f.repo, store, f.queue, idx)

	err := svc.DeleteDocument(ctx, doc.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrStorageFailure)
	assert.Equal(t, doc.ID, f.reload(t, doc.ID).ID, "metadata survives a failed blob delete")

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID, ""))
	_, err = f.repo.FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	idx.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestDocumentService_DeleteDocumentIndexFailure(t *testing.T) {
	f := newFixture(t)
	doc := testutil.SeedDocument(t, f.db, models.StatusCompleted)

	idx := new(mockIndex)
	idx.On("DeleteByDocumentID", mock.Anything, doc.ID).Return(false, errors.New("cluster red"))
	store := new(mockStore)
	svc := NewDocumentService(f.docs, f.repo, store, f.queue, idx)

	err := svc.DeleteDocument(context.Background(), doc.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrIndexFailure)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.reload(t, doc.ID)
}

func TestDocumentService_DeleteDocumentChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := testutil.SeedDocument(t, f.db, models.StatusPending, func(d *models.Document) { d.StoragePath = nil })

	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, "missing", ""), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, doc.ID, "eve"), apperrors.ErrForbidden)
	f.reload(t, doc.ID)

	// no blob yet: only index and metadata are touched
	require.NoError(t, f.svc.DeleteDocument(ctx, doc.ID, "ada"))
	_, err := f.repo.FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDocumentService_Queries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedDocument(t, f.db, models.StatusCompleted, func(d *models.Document) { d.Title = "Budget 2025" })
	testutil.SeedDocument(t, f.db, models.StatusFailed, func(d *models.Document) {
		d.Title = "Minutes"
		d.Author = "Grace Hopper"
		d.DocumentType = models.DocumentTypePDF
		d.UploadDate = testutil.FixedTime.Add(48 * time.Hour)
	})

	got, err := f.svc.GetDocument(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Budget 2025", got.Title)

	_, err = f.svc.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	page, err := f.svc.FindByTitle(ctx, "budget", models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.FindByAuthor(ctx, "HOPPER", models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.FindByDocumentType(ctx, models.DocumentTypeTXT, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.FindByUploadDateBetween(ctx, testutil.FixedTime.Add(time.Hour), testutil.FixedTime.Add(72*time.Hour), models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Minutes", page.Items[0].Title)

	_, err = f.svc.FindByUploadDateBetween(ctx, testutil.FixedTime, testutil.FixedTime.Add(-time.Hour), models.PageRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	page, err = f.svc.SearchDocuments(ctx, repository.Criteria{Author: "grace", DocumentType: models.DocumentTypePDF}, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}
