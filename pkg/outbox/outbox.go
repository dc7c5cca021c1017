// Package outbox implements the transactional outbox pattern: events are
// written to the datastore in the same transaction as the state change, and
// a background publisher relays them to Kafka.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/voicewms/dispatch-service/pkg/events"
)

const defaultMaxRetries = 10

// OutboxEvent is one event awaiting delivery.
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewOutboxEvent wraps a CloudEvent for deferred delivery. The topic is
// derived from the event type.
func NewOutboxEvent(aggregateID, aggregateType string, event *events.CloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     event.Type,
		Topic:         events.TopicForEventType(event.Type),
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		MaxRetries:    defaultMaxRetries,
	}, nil
}

// IsPublished checks if the event has been published
func (e *OutboxEvent) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry checks if the event should be retried
func (e *OutboxEvent) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}

// ToCloudEvent decodes the stored payload back into its envelope.
func (e *OutboxEvent) ToCloudEvent() (*events.CloudEvent, error) {
	var cloudEvent events.CloudEvent
	if err := json.Unmarshal(e.Payload, &cloudEvent); err != nil {
		return nil, err
	}
	return &cloudEvent, nil
}
