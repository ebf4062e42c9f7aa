package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Itish41/DocIntel/models"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// StatusChangedEventType is the CloudEvents type of a status transition.
const StatusChangedEventType = "com.docintel.document.status.changed"

// Event describes one applied status transition.
type Event struct {
	DocumentID string                  `json:"documentId"`
	From       models.ProcessingStatus `json:"from,omitempty"`
	To         models.ProcessingStatus `json:"to"`
	Reason     string                  `json:"reason,omitempty"`
	At         time.Time               `json:"at"`
}

// CloudEvent encodes e as a CloudEvents 1.0 event.
func (e Event) CloudEvent(source string) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(uuid.NewString())
	ce.SetSource(source)
	ce.SetType(StatusChangedEventType)
	ce.SetSubject(e.DocumentID)
	ce.SetTime(e.At)
	if err := ce.SetData(cloudevents.ApplicationJSON, e); err != nil {
		return ce, fmt.Errorf("failed to encode status event: %w", err)
	}
	return ce, nil
}

// EventSink receives transition events. Sinks must not block for long and
// cannot fail a transition.
type EventSink interface {
	Publish(ctx context.Context, e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

func (f EventSinkFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// LogSink writes each transition as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"document_id", e.DocumentID, "from", e.From, "to", e.To}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	if e.To == models.StatusFailed {
		logger.WarnContext(ctx, "document status changed", attrs...)
		return
	}
	logger.InfoContext(ctx, "document status changed", attrs...)
}

// CloudEventSink forwards transitions as CloudEvents through Send.
type CloudEventSink struct {
	Source string
	Send   func(ctx context.Context, e cloudevents.Event) error
}

func (s CloudEventSink) Publish(ctx context.Context, e Event) {
	ce, err := e.CloudEvent(s.Source)
	if err != nil {
		slog.ErrorContext(ctx, "dropping status event", "document_id", e.DocumentID, "error", err)
		return
	}
	if err := s.Send(ctx, ce); err != nil {
		slog.WarnContext(ctx, "failed to deliver status event", "document_id", e.DocumentID, "error", err)
	}
}

// NewHTTPEventSender returns a Send function posting events to target.
func NewHTTPEventSender(target string) (func(ctx context.Context, e cloudevents.Event) error, error) {
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return func(ctx context.Context, e cloudevents.Event) error {
		result := client.Send(cloudevents.ContextWithTarget(ctx, target), e)
		if !cloudevents.IsACK(result) {
			return result
		}
		return nil
	}, nil
}
