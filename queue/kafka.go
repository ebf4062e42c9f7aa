package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
)

// KafkaConfig names the brokers, topic and consumer group.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaQueue publishes with the document id as key so every message for a
// document lands on the same partition. Offsets are committed on Ack.
// Commits are per partition offset, so run one worker loop per reader when
// strict redelivery of unacked messages matters.
type KafkaQueue struct {
	writer kafkaWriter
	reader kafkaReader
}

func NewKafkaQueue(cfg KafkaConfig) *KafkaQueue {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &KafkaQueue{writer: w, reader: r}
}

func newKafkaMessage(msg models.ProcessingMessage) (kafka.Message, error) {
	payload, err := Encode(msg)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(msg.DocumentID),
		Value:   payload,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte(ContentType)}},
	}, nil
}

func (k *KafkaQueue) Publish(ctx context.Context, msg models.ProcessingMessage) error {
	m, err := newKafkaMessage(msg)
	if err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "kafka publish", err)
	}
	if err := k.writer.WriteMessages(ctx, m); err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "kafka publish", err)
	}
	return nil
}

func (k *KafkaQueue) Receive(ctx context.Context) (Delivery, error) {
	for {
		m, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, apperrors.New(apperrors.ErrQueueFailure, "kafka receive", err)
		}
		msg, err := Decode(m.Value)
		if err != nil {
			slog.ErrorContext(ctx, "skipping undecodable kafka message",
				"partition", m.Partition, "offset", m.Offset, "error", err)
			if err := k.reader.CommitMessages(ctx, m); err != nil {
				return nil, apperrors.New(apperrors.ErrQueueFailure, "kafka commit", err)
			}
			continue
		}
		return &kafkaDelivery{reader: k.reader, raw: m, msg: msg}, nil
	}
}

func (k *KafkaQueue) Close() error {
	return errors.Join(k.writer.Close(), k.reader.Close())
}

type kafkaDelivery struct {
	reader kafkaReader
	raw    kafka.Message
	msg    models.ProcessingMessage
}

func (d *kafkaDelivery) Message() models.ProcessingMessage { return d.msg }

func (d *kafkaDelivery) Ack(ctx context.Context) error {
	if err := d.reader.CommitMessages(ctx, d.raw); err != nil {
		return apperrors.New(apperrors.ErrQueueFailure, "kafka ack", err)
	}
	return nil
}
