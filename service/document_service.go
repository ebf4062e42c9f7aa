package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/blobstore"
	"github.com/Itish41/DocIntel/lifecycle"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/queue"
	"github.com/Itish41/DocIntel/repository"
	"github.com/Itish41/DocIntel/searchindex"
)

// QueueFailurePrefix starts the processing error of a document whose
// processing message could not be published.
const QueueFailurePrefix = "Failed to queue document for processing: "

// DocumentService handles the synchronous side of ingestion: metadata,
// blob storage, enqueueing and deletion.
type DocumentService struct {
	docs      *lifecycle.Manager
	repo      repository.DocumentRepository
	blobs     blobstore.Store
	publisher queue.Publisher
	index     searchindex.Index
	logger    *slog.Logger
}

// NewDocumentService wires the service. All metadata writes go through docs.
func NewDocumentService(docs *lifecycle.Manager, repo repository.DocumentRepository, blobs blobstore.Store, publisher queue.Publisher, index searchindex.Index) *DocumentService {
	return &DocumentService{
		docs:      docs,
		repo:      repo,
		blobs:     blobs,
		publisher: publisher,
		index:     index,
		logger:    slog.Default().With("component", "document_service"),
	}
}

func validateNewDocument(in models.NewDocument) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.FileName) == "" {
		missing = append(missing, "fileName")
	}
	if strings.TrimSpace(in.UploadedBy) == "" {
		missing = append(missing, "uploadedBy")
	}
	if len(missing) > 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "create document", errors.New("missing "+strings.Join(missing, ", ")))
	}
	if in.FileSize < 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "create document", errors.New("negative file size"))
	}
	return nil
}

// CreateDocumentMetadata stores a new PENDING document. The document type is
// derived from the file name.
func (s *DocumentService) CreateDocumentMetadata(ctx context.Context, in models.NewDocument) (*models.Document, error) {
	if err := validateNewDocument(in); err != nil {
		return nil, err
	}

	doc := &models.Document{
		Title:        strings.TrimSpace(in.Title),
		Author:       strings.TrimSpace(in.Author),
		FileName:     in.FileName,
		ContentType:  in.ContentType,
		FileSize:     in.FileSize,
		DocumentType: models.DetermineDocumentType(in.FileName),
		UploadedBy:   in.UploadedBy,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Upload creates the metadata row, stores the blob and enqueues the
// document for processing. It returns once the message is published.
// When the blob or the message cannot be stored the row is marked FAILED
// and the storage or queue failure is returned.
func (s *DocumentService) Upload(ctx context.Context, in models.NewDocument, content io.Reader) (*models.Document, error) {
	doc, err := s.CreateDocumentMetadata(ctx, in)
	if err != nil {
		return nil, err
	}
	id := doc.ID
	log := s.logger.With("document_id", id)

	handle, err := s.blobs.Put(ctx, id, doc.FileName, doc.ContentType, content)
	if err != nil {
		err = withKind(apperrors.ErrStorageFailure, "upload "+id, err)
		log.ErrorContext(ctx, "failed to store document", "error", err)
		s.markFailed(ctx, id, "Failed to store document: "+err.Error())
		return nil, err
	}

	stored, err := s.docs.AssignStoragePath(ctx, id, handle)
	if err != nil {
		log.ErrorContext(ctx, "failed to record storage path", "error", err)
		s.markFailed(ctx, id, "Failed to record storage path: "+err.Error())
		s.discardBlob(ctx, id, handle)
		return nil, err
	}

	if err := s.EnqueueForProcessing(ctx, models.NewProcessingMessage(stored)); err != nil {
		log.ErrorContext(ctx, "failed to send document processing message", "error", err)
		s.markFailed(ctx, id, QueueFailurePrefix+err.Error())
		return nil, err
	}

	log.InfoContext(ctx, "document uploaded and queued for processing", "storage_path", handle)
	return stored, nil
}

// discardBlob drops a blob whose metadata row never learned its handle.
func (s *DocumentService) discardBlob(ctx context.Context, id, handle string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := s.blobs.Delete(ctx, handle); err != nil {
		s.logger.ErrorContext(ctx, "failed to discard orphaned blob", "document_id", id, "storage_path", handle, "error", err)
	}
}

// markFailed records an upload failure. It runs detached from ctx so a
// cancelled request still leaves the row FAILED instead of PENDING.
func (s *DocumentService) markFailed(ctx context.Context, id, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := s.docs.MarkFailed(ctx, id, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark document as failed", "document_id", id, "error", err)
	}
}

// EnqueueForProcessing publishes msg to the ingestion queue.
func (s *DocumentService) EnqueueForProcessing(ctx context.Context, msg models.ProcessingMessage) error {
	if msg.DocumentID == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "enqueue", errors.New("missing document id"))
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return withKind(apperrors.ErrQueueFailure, "enqueue "+msg.DocumentID, err)
	}
	return nil
}

// DeleteDocument removes the index record, then the blob, then the metadata
// row. The first failing step aborts the rest, so a retry finishes the job.
// A non-empty requestedBy must match the uploader.
func (s *DocumentService) DeleteDocument(ctx context.Context, id, requestedBy string) error {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if requestedBy != "" && doc.UploadedBy != requestedBy {
		return apperrors.New(apperrors.ErrForbidden, "delete "+id, errors.New("you don't have permission to delete this document"))
	}
	log := s.logger.With("document_id", id)

	if _, err := s.index.DeleteByDocumentID(ctx, id); err != nil {
		log.ErrorContext(ctx, "failed to delete index record", "error", err)
		return withKind(apperrors.ErrIndexFailure, "delete "+id, err)
	}

	if doc.StoragePath != nil {
		if _, err := s.blobs.Delete(ctx, *doc.StoragePath); err != nil {
			log.ErrorContext(ctx, "failed to delete blob", "storage_path", *doc.StoragePath, "error", err)
			return withKind(apperrors.ErrStorageFailure, "delete "+id, err)
		}
	}

	if err := s.docs.Remove(ctx, id); err != nil {
		return err
	}
	log.InfoContext(ctx, "document deleted")
	return nil
}

// GetDocument returns one document, served from the cache when possible.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.docs.Get(ctx, id)
}

func (s *DocumentService) FindByTitle(ctx context.Context, title string, page models.PageRequest) (models.Page[models.Document], error) {
	return s.repo.FindByTitle(ctx, title, page)
}

func (s *DocumentService) FindByAuthor(ctx context.Context, author string, page models.PageRequest) (models.Page[models.Document], error) {
	return s.repo.FindByAuthor(ctx, author, page)
}

func (s *DocumentService) FindByDocumentType(ctx context.Context, t models.DocumentType, page models.PageRequest) (models.Page[models.Document], error) {
	return s.repo.FindByDocumentType(ctx, t, page)
}

func (s *DocumentService) FindByUploadDateBetween(ctx context.Context, start, end time.Time, page models.PageRequest) (models.Page[models.Document], error) {
	if end.Before(start) {
		return models.Page[models.Document]{}, apperrors.New(apperrors.ErrInvalidInput, "find by upload date", errors.New("end is before start"))
	}
	return s.repo.FindByUploadDateBetween(ctx, start, end, page)
}

// SearchDocuments combines the optional title, author and type filters.
func (s *DocumentService) SearchDocuments(ctx context.Context, c repository.Criteria, page models.PageRequest) (models.Page[models.Document], error) {
	return s.repo.FindByCriteria(ctx, c, page)
}

// withKind tags err with kind unless it already carries it.
func withKind(kind error, op string, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return apperrors.New(kind, op, err)
}
