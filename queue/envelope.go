package queue

import (
	"encoding/json"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/Itish41/DocIntel/models"
)

const (
	// EventType identifies an uploaded document awaiting processing.
	EventType   = "com.docintel.document.uploaded"
	EventSource = "/documents"
	// ContentType is the structured-mode CloudEvents media type.
	ContentType = "application/cloudevents+json"
)

// Encode wraps msg in a CloudEvent and renders it as JSON.
func Encode(msg models.ProcessingMessage) ([]byte, error) {
	if msg.DocumentID == "" {
		return nil, fmt.Errorf("processing message has no document id")
	}

	e := event.New()
	e.SetID(uuid.NewString())
	e.SetType(EventType)
	e.SetSource(EventSource)
	e.SetSubject(msg.DocumentID)
	e.SetTime(timeNow().UTC())
	if err := e.SetData(cloudevents.ApplicationJSON, msg); err != nil {
		return nil, fmt.Errorf("failed to set event data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return json.Marshal(e)
}

// Decode parses a CloudEvent produced by Encode.
func Decode(b []byte) (models.ProcessingMessage, error) {
	var msg models.ProcessingMessage

	e := event.New()
	if err := json.Unmarshal(b, &e); err != nil {
		return msg, fmt.Errorf("failed to parse event: %w", err)
	}
	if e.Type() != EventType {
		return msg, fmt.Errorf("unexpected event type %q", e.Type())
	}
	if err := e.DataAs(&msg); err != nil {
		return msg, fmt.Errorf("failed to decode event data: %w", err)
	}
	if msg.DocumentID == "" {
		return msg, fmt.Errorf("event %s has no document id", e.ID())
	}
	return msg, nil
}
