package domain

import "time"

// Event type identifiers published to the dispatch event stream.
const (
	EventTypeTaskCreated   = "wms.dispatch.task-created"
	EventTypeTaskAssigned  = "wms.dispatch.task-assigned"
	EventTypeTaskStarted   = "wms.dispatch.task-started"
	EventTypeTaskCompleted = "wms.dispatch.task-completed"
	EventTypeTaskCancelled = "wms.dispatch.task-cancelled"
)

// DomainEvent is raised by the WorkTask aggregate and relayed through the
// transactional outbox.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

type baseEvent struct {
	taskID     string
	occurredAt time.Time
}

func (e baseEvent) AggregateID() string   { return e.taskID }
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

// TaskCreatedEvent announces a new pending task.
type TaskCreatedEvent struct {
	baseEvent
	OrderRef          string `json:"orderRef,omitempty"`
	RequiredRole      Role   `json:"requiredRole"`
	ItemCode          string `json:"itemCode"`
	LocationCode      string `json:"locationCode"`
	QuantityRequested int    `json:"quantityRequested"`
	Priority          int    `json:"priority"`
}

func NewTaskCreatedEvent(task *WorkTask) TaskCreatedEvent {
	return TaskCreatedEvent{
		baseEvent:         baseEvent{taskID: task.TaskID, occurredAt: task.CreatedAt},
		OrderRef:          task.OrderRef,
		RequiredRole:      task.RequiredRole,
		ItemCode:          task.ItemCode,
		LocationCode:      task.LocationCode,
		QuantityRequested: task.QuantityRequested,
		Priority:          task.Priority,
	}
}

func (e TaskCreatedEvent) EventType() string { return EventTypeTaskCreated }

// TaskAssignedEvent announces that a worker won the claim on a task.
type TaskAssignedEvent struct {
	baseEvent
	WorkerPIN    int    `json:"workerPin"`
	RequiredRole Role   `json:"requiredRole"`
	LocationCode string `json:"locationCode"`
}

func NewTaskAssignedEvent(task *WorkTask) TaskAssignedEvent {
	return TaskAssignedEvent{
		baseEvent:    baseEvent{taskID: task.TaskID, occurredAt: task.UpdatedAt},
		WorkerPIN:    task.AssignedPIN,
		RequiredRole: task.RequiredRole,
		LocationCode: task.LocationCode,
	}
}

func (e TaskAssignedEvent) EventType() string { return EventTypeTaskAssigned }

// TaskStartedEvent announces that picking began.
type TaskStartedEvent struct {
	baseEvent
	WorkerPIN    int    `json:"workerPin"`
	LocationCode string `json:"locationCode"`
}

func NewTaskStartedEvent(task *WorkTask) TaskStartedEvent {
	return TaskStartedEvent{
		baseEvent:    baseEvent{taskID: task.TaskID, occurredAt: task.UpdatedAt},
		WorkerPIN:    task.AssignedPIN,
		LocationCode: task.LocationCode,
	}
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }

// TaskCompletedEvent announces a finished pick with the final quantity.
type TaskCompletedEvent struct {
	baseEvent
	WorkerPIN         int  `json:"workerPin"`
	QuantityRequested int  `json:"quantityRequested"`
	QuantityPicked    int  `json:"quantityPicked"`
	ShortPick         bool `json:"shortPick"`
}

func NewTaskCompletedEvent(task *WorkTask) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent:         baseEvent{taskID: task.TaskID, occurredAt: task.UpdatedAt},
		WorkerPIN:         task.AssignedPIN,
		QuantityRequested: task.QuantityRequested,
		QuantityPicked:    task.QuantityPicked,
		ShortPick:         task.QuantityPicked < task.QuantityRequested,
	}
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }

// TaskCancelledEvent announces an aborted task.
type TaskCancelledEvent struct {
	baseEvent
	WorkerPIN int    `json:"workerPin,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func NewTaskCancelledEvent(task *WorkTask, reason string) TaskCancelledEvent {
	return TaskCancelledEvent{
		baseEvent: baseEvent{taskID: task.TaskID, occurredAt: task.UpdatedAt},
		WorkerPIN: task.AssignedPIN,
		Reason:    reason,
	}
}

func (e TaskCancelledEvent) EventType() string { return EventTypeTaskCancelled }
