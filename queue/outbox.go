package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
)

// OutboxMessage is one row of the processing_queue table.
type OutboxMessage struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	DocumentID  string         `gorm:"type:varchar(36);not null;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	Attempts    int            `gorm:"not null;default:0"`
	AvailableAt time.Time      `gorm:"not null;index"`
	CreatedAt   time.Time
}

func (OutboxMessage) TableName() string { return "processing_queue" }

// OutboxConfig tunes polling and redelivery.
type OutboxConfig struct {
	// PollInterval is how long Receive sleeps when no row is available.
	PollInterval time.Duration
	// Lease is how long a claimed row stays invisible before it is redelivered.
	Lease time.Duration
	// MaxAttempts drops a row after this many claims. Zero means unlimited.
	MaxAttempts int
	// DeadLetter is called with every dropped message whose payload decoded.
	DeadLetter func(ctx context.Context, msg models.ProcessingMessage)
}

// OutboxQueue is a durable queue stored in the application database. Rows
// are claimed by pushing available_at forward by the lease; Ack deletes the
// row. On PostgreSQL claims use FOR UPDATE SKIP LOCKED so workers in
// different processes do not contend on the same row.
type OutboxQueue struct {
	db     *gorm.DB
	cfg    OutboxConfig
	closed chan struct{}
	once   sync.Once
}

func NewOutboxQueue(db *gorm.DB, cfg OutboxConfig) *OutboxQueue {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 5 * time.Minute
	}
	return &OutboxQueue{db: db, cfg: cfg, closed: make(chan struct{})}
}

func (q *OutboxQueue) Publish(ctx context.Context, msg models.ProcessingMessage) error {
	payload, err := Encode(msg)
	if err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "outbox publish", err)
	}
	row := OutboxMessage{
		DocumentID:  msg.DocumentID,
		Payload:     datatypes.JSON(payload),
		AvailableAt: timeNow().UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "outbox publish", err)
	}
	return nil
}

func (q *OutboxQueue) Receive(ctx context.Context) (Delivery, error) {
	for {
		row, err := q.claim(ctx)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrQueueFailure, "outbox receive", err)
		}
		if row != nil {
			if d := q.deliver(ctx, row); d != nil {
				return d, nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.closed:
			return nil, ErrClosed
		case <-time.After(q.cfg.PollInterval):
		}
	}
}

// deliver decodes a claimed row. Rows that cannot be delivered are removed
// and nil is returned.
func (q *OutboxQueue) deliver(ctx context.Context, row *OutboxMessage) Delivery {
	msg, err := Decode(row.Payload)
	if err != nil {
		slog.ErrorContext(ctx, "dropping undecodable queue row", "row_id", row.ID, "document_id", row.DocumentID, "error", err)
		q.discard(ctx, row)
		return nil
	}
	if q.cfg.MaxAttempts > 0 && row.Attempts > q.cfg.MaxAttempts {
		slog.WarnContext(ctx, "dropping queue row after too many attempts",
			"row_id", row.ID, "document_id", row.DocumentID, "attempts", row.Attempts-1)
		q.discard(ctx, row)
		if q.cfg.DeadLetter != nil {
			q.cfg.DeadLetter(ctx, msg)
		}
		return nil
	}
	return &outboxDelivery{q: q, id: row.ID, msg: msg}
}

// discard deletes a row that will never be handed out. A failed delete leaves
// the row to be claimed again once its lease runs out.
func (q *OutboxQueue) discard(ctx context.Context, row *OutboxMessage) {
	if err := q.remove(ctx, row.ID); err != nil {
		slog.ErrorContext(ctx, "failed to remove queue row", "row_id", row.ID, "document_id", row.DocumentID, "error", err)
	}
}

func (q *OutboxQueue) claim(ctx context.Context) (*OutboxMessage, error) {
	now := timeNow().UTC()
	var claimed *OutboxMessage

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("available_at <= ?", now).Order("id")
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var row OutboxMessage
		if err := query.Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		until := now.Add(q.cfg.Lease)
		res := tx.Model(&OutboxMessage{}).
			Where("id = ? AND attempts = ?", row.ID, row.Attempts).
			Updates(map[string]any{"available_at": until, "attempts": gorm.Expr("attempts + 1")})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// another consumer claimed it first
			return nil
		}
		row.Attempts++
		row.AvailableAt = until
		claimed = &row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim queue row: %w", err)
	}
	return claimed, nil
}

func (q *OutboxQueue) remove(ctx context.Context, id uint64) error {
	return q.db.WithContext(ctx).Delete(&OutboxMessage{}, id).Error
}

// Pending returns the number of rows not yet acked.
func (q *OutboxQueue) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.WithContext(ctx).Model(&OutboxMessage{}).Count(&n).Error
	return n, err
}

func (q *OutboxQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}

type outboxDelivery struct {
	q   *OutboxQueue
	id  uint64
	msg models.ProcessingMessage
}

func (d *outboxDelivery) Message() models.ProcessingMessage { return d.msg }

func (d *outboxDelivery) Ack(ctx context.Context) error {
	if err := d.q.remove(ctx, d.id); err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "outbox ack", err)
	}
	return nil
}
