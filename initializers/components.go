package initializers

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Itish41/DocIntel/blobstore"
	"github.com/Itish41/DocIntel/cache"
	"github.com/Itish41/DocIntel/lifecycle"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/queue"
	"github.com/Itish41/DocIntel/searchindex"
)

// NewBlobStore builds the configured blob store.
func NewBlobStore(ctx context.Context, cfg StorageConfig) (blobstore.Store, error) {
	switch cfg.Backend {
	case "s3":
		s, err := blobstore.NewS3Store(blobstore.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "gcs":
		s, err := blobstore.NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "local":
		s, err := blobstore.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return blobstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewQueue builds the configured ingestion queue. deadLetter receives
// outbox messages dropped after queue.max_attempts claims.
func NewQueue(db *gorm.DB, cfg QueueConfig, deadLetter func(ctx context.Context, msg models.ProcessingMessage)) (queue.Queue, error) {
	switch cfg.Backend {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres queue needs a database")
		}
		return queue.NewOutboxQueue(db, queue.OutboxConfig{
			PollInterval: cfg.PollInterval,
			Lease:        cfg.Lease,
			MaxAttempts:  cfg.MaxAttempts,
			DeadLetter:   deadLetter,
		}), nil
	case "kafka":
		return queue.NewKafkaQueue(queue.KafkaConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}), nil
	case "memory":
		return queue.NewMemoryQueue(cfg.Capacity, cfg.Lease), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}

// NewSearchIndex builds the configured index, creating the Elasticsearch
// index and mapping when missing.
func NewSearchIndex(ctx context.Context, cfg SearchConfig) (searchindex.Index, error) {
	switch cfg.Backend {
	case "elasticsearch":
		idx, err := searchindex.NewElasticIndex(searchindex.ElasticConfig{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Index:     cfg.Index,
		})
		if err != nil {
			return nil, err
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return idx, nil
	case "memory":
		return searchindex.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}
}

func NewDocumentCache(cfg CacheConfig) cache.DocumentCache {
	if cfg.Size == 0 {
		return cache.Noop{}
	}
	return cache.NewLRUDocumentCache(cfg.Size, cfg.TTL)
}

// NewEventSinks always logs transitions and also posts them as CloudEvents
// when events.target is set.
func NewEventSinks(cfg EventsConfig, logger *slog.Logger) ([]lifecycle.EventSink, error) {
	sinks := []lifecycle.EventSink{lifecycle.LogSink{Logger: logger}}
	if cfg.Target == "" {
		return sinks, nil
	}
	send, err := lifecycle.NewHTTPEventSender(cfg.Target)
	if err != nil {
		return nil, err
	}
	return append(sinks, lifecycle.CloudEventSink{Source: cfg.Source, Send: send}), nil
}
