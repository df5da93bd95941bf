// Package bus publishes pipeline events to in-process or Kafka subscribers.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type, usually the topic it was published on.
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// CorrelationID links events raised for the same request.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Topics.
const (
	TopicQueryProcessed  = "query.processed"
	TopicSearchCompleted = "search.completed"
	TopicIndexCompleted  = "index.completed"
)

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(eventType, source string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// WithCorrelation returns a copy of the event carrying the correlation ID.
func (e Event) WithCorrelation(id string) Event {
	e.CorrelationID = id
	return e
}

// QueryProcessedPayload is published after query understanding.
type QueryProcessedPayload struct {
	Query      string  `json:"query"`
	Enhanced   string  `json:"enhanced"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Complexity float64 `json:"complexity"`
	SubQueries int     `json:"sub_queries"`
}

// SearchCompletedPayload is published after a search returns results.
type SearchCompletedPayload struct {
	Query      string  `json:"query"`
	Intent     string  `json:"intent"`
	Candidates int     `json:"candidates"`
	Results    int     `json:"results"`
	Diversity  float64 `json:"diversity"`
	DurationMs int64   `json:"duration_ms"`
}

// IndexCompletedPayload is published after a snapshot is indexed.
type IndexCompletedPayload struct {
	SnapshotID string `json:"snapshot_id"`
	Files      int    `json:"files"`
	Chunks     int    `json:"chunks"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
}
