// Package queue carries ProcessingMessages from the upload path to workers
// with at-least-once delivery. Messages travel as structured-mode
// CloudEvents so every backend shares one wire format.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/Itish41/DocIntel/models"
)

var timeNow = time.Now

// ErrClosed is returned by Receive after Close.
var ErrClosed = errors.New("queue closed")

// Publisher enqueues messages for processing.
type Publisher interface {
	Publish(ctx context.Context, msg models.ProcessingMessage) error
}

// Consumer hands out deliveries. Receive blocks until a message arrives or
// ctx is done.
type Consumer interface {
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}

// Delivery is one received message. A delivery that is never acked will be
// handed out again.
type Delivery interface {
	Message() models.ProcessingMessage
	Ack(ctx context.Context) error
}

// Queue is a backend that both publishes and consumes.
type Queue interface {
	Publisher
	Consumer
}
