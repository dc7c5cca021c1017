package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory stamps CloudEvents with a fixed source.
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent wraps a payload in a CloudEvents envelope.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateTaskEvent wraps a task domain event payload, subject task/<id>.
func (f *EventFactory) CreateTaskEvent(ctx context.Context, eventType, taskID string, data interface{}) *CloudEvent {
	return f.CreateEvent(ctx, eventType, "task/"+taskID, data)
}

// CreateLayoutGeneratedEvent announces a completed layout generation batch.
func (f *EventFactory) CreateLayoutGeneratedEvent(ctx context.Context, layoutName string, sections, addresses int) *CloudEvent {
	data := LayoutGeneratedData{
		LayoutName: layoutName,
		Sections:   sections,
		Addresses:  addresses,
	}
	return f.CreateEvent(ctx, LayoutGenerated, "layout/"+layoutName, data)
}
