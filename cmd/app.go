package cmd

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Itish41/DocIntel/blobstore"
	"github.com/Itish41/DocIntel/extractor"
	"github.com/Itish41/DocIntel/initializers"
	"github.com/Itish41/DocIntel/lifecycle"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/queue"
	"github.com/Itish41/DocIntel/repository"
	"github.com/Itish41/DocIntel/searchindex"
	services "github.com/Itish41/DocIntel/service"
)

// app holds every wired component for one process.
type app struct {
	cfg   *initializers.Config
	db    *gorm.DB
	repo  *repository.GormDocumentRepository
	docs  *lifecycle.Manager
	blobs blobstore.Store
	queue queue.Queue
	index searchindex.Index

	documents *services.DocumentService
	qa        *services.QAService
	search    *services.SearchService
	worker    *services.ProcessingWorker
}

func newApp(ctx context.Context, cfg *initializers.Config) (*app, error) {
	db, err := initializers.ConnectDB(cfg.Database, verbose)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, repo: repository.NewGormDocumentRepository(db)}

	sinks, err := initializers.NewEventSinks(cfg.Events, slog.Default().With("component", "lifecycle"))
	if err != nil {
		a.close()
		return nil, err
	}
	a.docs = lifecycle.NewManager(a.repo, initializers.NewDocumentCache(cfg.Cache), sinks...)

	if a.blobs, err = initializers.NewBlobStore(ctx, cfg.Storage); err != nil {
		a.close()
		return nil, err
	}
	if a.index, err = initializers.NewSearchIndex(ctx, cfg.Search); err != nil {
		a.close()
		return nil, err
	}
	// the worker is built after the queue it consumes
	deadLetter := func(ctx context.Context, msg models.ProcessingMessage) {
		a.worker.DeadLetter(ctx, msg)
	}
	if a.queue, err = initializers.NewQueue(db, cfg.Queue, deadLetter); err != nil {
		a.close()
		return nil, err
	}

	a.documents = services.NewDocumentService(a.docs, a.repo, a.blobs, a.queue, a.index)
	a.qa = services.NewQAService(a.index, a.repo, services.QAVariant(cfg.QA.Variant), cfg.QA.DefaultSnippetLength)
	a.search = services.NewSearchService(a.index)
	a.worker = services.NewProcessingWorker(a.docs, a.blobs, extractor.NewRegistry(), a.index, a.queue, cfg.Worker.Concurrency)
	return a, nil
}

func (a *app) close() {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if sqlDB, err := a.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("error during shutdown", "error", err)
	}
}
