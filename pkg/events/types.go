package events

import "time"

// Event type constants for the dispatch domain.
const (
	TaskCreated   = "wms.dispatch.task-created"
	TaskAssigned  = "wms.dispatch.task-assigned"
	TaskStarted   = "wms.dispatch.task-started"
	TaskCompleted = "wms.dispatch.task-completed"
	TaskCancelled = "wms.dispatch.task-cancelled"

	LayoutGenerated = "wms.locations.layout-generated"
)

// Source identifiers for published events.
const (
	SourceDispatch  = "/wms/dispatch-service"
	SourceLocations = "/wms/dispatch-service/locations"
)

// Kafka topics the service publishes to.
const (
	TopicDispatchEvents  = "wms.dispatch.events"
	TopicLocationsEvents = "wms.locations.events"
)

// TopicForEventType routes an event type to its topic.
func TopicForEventType(eventType string) string {
	if eventType == LayoutGenerated {
		return TopicLocationsEvents
	}
	return TopicDispatchEvents
}

// CloudEvent is a CloudEvents v1.0 compliant envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Dispatch-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
}

// LayoutGeneratedData is the payload for a LayoutGenerated event.
type LayoutGeneratedData struct {
	LayoutName string `json:"layoutName"`
	Sections   int    `json:"sections"`
	Addresses  int    `json:"addresses"`
}
