package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/blobstore"
	"github.com/Itish41/DocIntel/extractor"
	"github.com/Itish41/DocIntel/lifecycle"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/queue"
	"github.com/Itish41/DocIntel/searchindex"
)

// Outcome is what handling one message did.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped means there was nothing to do: the document is gone or
	// already terminal.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRetry means no result could be recorded. The message is left
	// unacked for redelivery.
	OutcomeRetry Outcome = "retry"
)

// ProcessingErrorPrefix starts the processing error of a document the worker failed.
const ProcessingErrorPrefix = "Error processing document: "

// receiveBackoff is the pause after a failed Receive.
var receiveBackoff = time.Second

// ProcessingWorker consumes processing messages and drives each document to
// COMPLETED or FAILED.
type ProcessingWorker struct {
	docs        *lifecycle.Manager
	blobs       blobstore.Store
	extractors  *extractor.Registry
	index       searchindex.Index
	consumer    queue.Consumer
	concurrency int
	logger      *slog.Logger
}

func NewProcessingWorker(docs *lifecycle.Manager, blobs blobstore.Store, extractors *extractor.Registry, index searchindex.Index, consumer queue.Consumer, concurrency int) *ProcessingWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ProcessingWorker{
		docs:        docs,
		blobs:       blobs,
		extractors:  extractors,
		index:       index,
		consumer:    consumer,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "processing_worker"),
	}
}

// Run consumes until ctx is done or the consumer is closed. Handling errors
// never stop the loops.
func (w *ProcessingWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "processing worker started", "concurrency", w.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error { return w.loop(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
		err = nil
	}
	w.logger.Info("processing worker stopped")
	return err
}

func (w *ProcessingWorker) loop(ctx context.Context) error {
	for {
		d, err := w.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrClosed) {
				return err
			}
			w.logger.ErrorContext(ctx, "failed to receive processing message", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
			continue
		}

		msg := d.Message()
		outcome := w.safeHandle(ctx, msg)
		if outcome == OutcomeRetry {
			continue
		}
		if err := d.Ack(ctx); err != nil {
			w.logger.ErrorContext(ctx, "failed to ack processing message", "document_id", msg.DocumentID, "error", err)
		}
	}
}

func (w *ProcessingWorker) safeHandle(ctx context.Context, msg models.ProcessingMessage) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			w.logger.ErrorContext(ctx, "panic while processing document", "document_id", msg.DocumentID, "panic", p)
			outcome = w.fail(ctx, msg.DocumentID, fmt.Errorf("panic: %v", p))
		}
	}()
	return w.Handle(ctx, msg)
}

// Handle processes one message. It is safe to call again for a message that
// was already handled: terminal documents are skipped and a document left in
// PROCESSING by a crashed attempt is processed again.
func (w *ProcessingWorker) Handle(ctx context.Context, msg models.ProcessingMessage) Outcome {
	log := w.logger.With("document_id", msg.DocumentID)
	log.InfoContext(ctx, "processing document")

	t, err := w.docs.BeginProcessing(ctx, msg.DocumentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "document no longer exists, dropping message")
			return OutcomeSkipped
		}
		log.ErrorContext(ctx, "failed to mark document as processing", "error", err)
		return OutcomeRetry
	}
	if !t.Applied {
		status := t.Document.ProcessingStatus
		if status.IsTerminal() {
			log.InfoContext(ctx, "document already processed, skipping", "status", status)
			return OutcomeSkipped
		}
		log.InfoContext(ctx, "resuming document left in processing", "status", status)
	}

	text, err := w.extract(ctx, msg)
	if err != nil {
		return w.fail(ctx, msg.DocumentID, err)
	}

	rec := models.NewIndexRecord(msg, t.Document.DocumentType, text)
	indexID, err := w.index.Upsert(ctx, rec)
	if err != nil {
		return w.fail(ctx, msg.DocumentID, withKind(apperrors.ErrIndexFailure, "index "+msg.DocumentID, err))
	}

	done, err := w.docs.CompleteProcessing(ctx, msg.DocumentID, text, indexID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.WarnContext(ctx, "document deleted during processing")
			w.retractIndex(ctx, msg.DocumentID)
			return OutcomeSkipped
		}
		log.ErrorContext(ctx, "failed to mark document as completed", "error", err)
		return OutcomeRetry
	}
	if !done.Applied {
		if done.Document.ProcessingStatus == models.StatusFailed {
			// a concurrent attempt failed the document first
			w.retractIndex(ctx, msg.DocumentID)
			return OutcomeFailed
		}
		return OutcomeSkipped
	}

	log.InfoContext(ctx, "document processed successfully", "search_index_id", indexID, "text_length", len(text))
	return OutcomeCompleted
}

func (w *ProcessingWorker) extract(ctx context.Context, msg models.ProcessingMessage) (string, error) {
	if msg.StoragePath == "" {
		return "", nil
	}
	rc, err := w.blobs.Get(ctx, msg.StoragePath)
	if err != nil {
		return "", withKind(apperrors.ErrStorageFailure, "fetch "+msg.StoragePath, err)
	}
	defer rc.Close()
	return w.extractors.Extract(msg.StoragePath, rc)
}

func (w *ProcessingWorker) fail(ctx context.Context, id string, cause error) Outcome {
	log := w.logger.With("document_id", id)
	log.ErrorContext(ctx, "error processing document", "error", cause)

	t, err := w.docs.FailProcessing(ctx, id, ProcessingErrorPrefix+cause.Error())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return OutcomeSkipped
		}
		log.ErrorContext(ctx, "error updating document status", "error", err)
		return OutcomeRetry
	}
	if !t.Applied && t.Document.ProcessingStatus == models.StatusCompleted {
		return OutcomeSkipped
	}
	return OutcomeFailed
}

func (w *ProcessingWorker) retractIndex(ctx context.Context, id string) {
	if _, err := w.index.DeleteByDocumentID(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "failed to retract index record", "document_id", id, "error", err)
	}
}

// DeadLetter fails a document whose message was dropped by the queue after
// too many delivery attempts.
func (w *ProcessingWorker) DeadLetter(ctx context.Context, msg models.ProcessingMessage) {
	reason := ProcessingErrorPrefix + "exceeded maximum delivery attempts"
	t, err := w.docs.FailProcessing(ctx, msg.DocumentID, reason)
	if err == nil && !t.Applied && t.Document.ProcessingStatus == models.StatusPending {
		_, err = w.docs.MarkFailed(ctx, msg.DocumentID, reason)
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		w.logger.ErrorContext(ctx, "failed to fail dead-lettered document", "document_id", msg.DocumentID, "error", err)
	}
}
