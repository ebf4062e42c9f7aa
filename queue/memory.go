package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
)

const defaultMemoryLease = 30 * time.Second

// MemoryQueue is a bounded in-process queue for single-binary deployments
// and tests. Nothing survives a restart. A delivery not acked within the
// lease is put back on the queue.
type MemoryQueue struct {
	ch        chan []byte
	lease     time.Duration
	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryQueue creates a queue holding up to capacity messages. A
// non-positive lease falls back to 30s.
func NewMemoryQueue(capacity int, lease time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 100
	}
	if lease <= 0 {
		lease = defaultMemoryLease
	}
	return &MemoryQueue{ch: make(chan []byte, capacity), lease: lease, done: make(chan struct{})}
}

func (q *MemoryQueue) Publish(ctx context.Context, msg models.ProcessingMessage) error {
	payload, err := Encode(msg)
	if err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "memory publish", err)
	}
	select {
	case <-q.done:
		return apperrors.New(apperrors.ErrQueueFailure, "memory publish", ErrClosed)
	default:
	}
	select {
	case q.ch <- payload:
		return nil
	case <-q.done:
		return apperrors.New(apperrors.ErrQueueFailure, "memory publish", ErrClosed)
	case <-ctx.Done():
		return apperrors.New(apperrors.ErrQueueFailure, "memory publish", ctx.Err())
	}
}

func (q *MemoryQueue) Receive(ctx context.Context) (Delivery, error) {
	for {
		select {
		case payload := <-q.ch:
			msg, err := Decode(payload)
			if err != nil {
				slog.ErrorContext(ctx, "dropping undecodable message", "error", err)
				continue
			}
			d := &memoryDelivery{msg: msg}
			d.timer = time.AfterFunc(q.lease, func() {
				if !d.acked.Load() {
					q.requeue(payload)
				}
			})
			return d, nil
		case <-q.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// requeue hands an expired delivery out again. It gives up once the queue
// is closed.
func (q *MemoryQueue) requeue(payload []byte) {
	select {
	case q.ch <- payload:
	case <-q.done:
	}
}

// Len returns the number of queued messages, excluding in-flight deliveries.
func (q *MemoryQueue) Len() int { return len(q.ch) }

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

type memoryDelivery struct {
	msg   models.ProcessingMessage
	acked atomic.Bool
	timer *time.Timer
}

func (d *memoryDelivery) Message() models.ProcessingMessage { return d.msg }

func (d *memoryDelivery) Ack(context.Context) error {
	d.acked.Store(true)
	d.timer.Stop()
	return nil
}
