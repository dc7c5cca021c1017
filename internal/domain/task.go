package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a work task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusAssigned  TaskStatus = "assigned"
	TaskStatusPicking   TaskStatus = "picking"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsValid returns true if the status is a known lifecycle state.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusPicking, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is allowed from the status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// CanTransitionTo reports whether the lifecycle permits moving to the target status.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return target == TaskStatusAssigned || target == TaskStatusCancelled
	case TaskStatusAssigned:
		return target == TaskStatusPicking || target == TaskStatusCancelled
	case TaskStatusPicking:
		return target == TaskStatusCompleted || target == TaskStatusCancelled
	}
	return false
}

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// WorkTask is the aggregate root for a unit of dispatchable warehouse work.
// A task walks the lifecycle pending -> assigned -> picking -> completed,
// with cancellation allowed from any non-terminal state.
type WorkTask struct {
	ID                string     `bson:"_id,omitempty" json:"id"`
	TaskID            string     `bson:"taskId" json:"taskId"`
	OrderRef          string     `bson:"orderRef,omitempty" json:"orderRef,omitempty"`
	RequiredRole      Role       `bson:"requiredRole" json:"requiredRole"`
	ItemCode          string     `bson:"itemCode" json:"itemCode"`
	ItemDescription   string     `bson:"itemDescription,omitempty" json:"itemDescription,omitempty"`
	LocationCode      string     `bson:"locationCode" json:"locationCode"`
	QuantityRequested int        `bson:"quantityRequested" json:"quantityRequested"`
	QuantityPicked    int        `bson:"quantityPicked" json:"quantityPicked"`
	Priority          int        `bson:"priority" json:"priority"`
	EstimatedSeconds  int        `bson:"estimatedSeconds,omitempty" json:"estimatedSeconds,omitempty"`
	ActualSeconds     int        `bson:"actualSeconds,omitempty" json:"actualSeconds,omitempty"`
	Status            TaskStatus `bson:"status" json:"status"`
	AssignedPIN       int        `bson:"assignedPin,omitempty" json:"assignedPin,omitempty"`
	Notes             string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
	AssignedAt        *time.Time `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	StartedAt         *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt       *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	domainEvents []DomainEvent
}

// TaskSpec carries the caller-supplied fields for creating a work task.
type TaskSpec struct {
	OrderRef          string
	RequiredRole      Role
	ItemCode          string
	ItemDescription   string
	LocationCode      string
	QuantityRequested int
	Priority          int
	EstimatedSeconds  int
	Notes             string
}

// NewWorkTask creates a pending task from a spec, applying defaults and
// validating everything that does not require the warehouse layout.
func NewWorkTask(spec TaskSpec) (*WorkTask, error) {
	if !spec.RequiredRole.IsRegistered() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, spec.RequiredRole)
	}
	if strings.TrimSpace(spec.ItemCode) == "" {
		return nil, fmt.Errorf("%w: item code is required", ErrInvalidTask)
	}
	if strings.TrimSpace(spec.LocationCode) == "" {
		return nil, fmt.Errorf("%w: location code is required", ErrInvalidTask)
	}
	if spec.QuantityRequested <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidTask)
	}
	priority := spec.Priority
	if priority == 0 {
		priority = DefaultPriority
	}
	if priority < MinPriority || priority > MaxPriority {
		return nil, fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidTask, MinPriority, MaxPriority)
	}

	now := time.Now().UTC()
	task := &WorkTask{
		TaskID:            "WT-" + uuid.New().String(),
		OrderRef:          strings.TrimSpace(spec.OrderRef),
		RequiredRole:      spec.RequiredRole,
		ItemCode:          strings.ToUpper(strings.TrimSpace(spec.ItemCode)),
		ItemDescription:   strings.TrimSpace(spec.ItemDescription),
		LocationCode:      strings.ToUpper(strings.TrimSpace(spec.LocationCode)),
		QuantityRequested: spec.QuantityRequested,
		Priority:          priority,
		EstimatedSeconds:  spec.EstimatedSeconds,
		Status:            TaskStatusPending,
		Notes:             strings.TrimSpace(spec.Notes),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	task.addDomainEvent(NewTaskCreatedEvent(task))
	return task, nil
}

// Assign claims the task for a worker. Only a pending task can be claimed.
func (t *WorkTask) Assign(pin int) error {
	if t.Status != TaskStatusPending {
		if t.Status == TaskStatusAssigned || t.Status == TaskStatusPicking {
			return fmt.Errorf("%w: task %s is held by worker %d", ErrAlreadyAssigned, t.TaskID, t.AssignedPIN)
		}
		return t.transitionError(TaskStatusAssigned)
	}
	now := time.Now().UTC()
	t.Status = TaskStatusAssigned
	t.AssignedPIN = pin
	t.AssignedAt = &now
	t.UpdatedAt = now
	t.addDomainEvent(NewTaskAssignedEvent(t))
	return nil
}

// Start moves an assigned task into picking. Only the assigned worker may start it.
func (t *WorkTask) Start(pin int) error {
	if t.Status != TaskStatusAssigned {
		return t.transitionError(TaskStatusPicking)
	}
	if t.AssignedPIN != pin {
		return fmt.Errorf("%w: task %s belongs to worker %d", ErrNotTaskOwner, t.TaskID, t.AssignedPIN)
	}
	now := time.Now().UTC()
	t.Status = TaskStatusPicking
	t.StartedAt = &now
	t.UpdatedAt = now
	t.addDomainEvent(NewTaskStartedEvent(t))
	return nil
}

// Complete finishes a picking task, recording the picked quantity. A short
// pick is allowed; picking more than requested is not.
func (t *WorkTask) Complete(pin, quantityPicked int, notes string) error {
	if t.Status != TaskStatusPicking {
		return t.transitionError(TaskStatusCompleted)
	}
	if t.AssignedPIN != pin {
		return fmt.Errorf("%w: task %s belongs to worker %d", ErrNotTaskOwner, t.TaskID, t.AssignedPIN)
	}
	if quantityPicked < 0 {
		return fmt.Errorf("%w: picked quantity cannot be negative", ErrInvalidQuantity)
	}
	if quantityPicked > t.QuantityRequested {
		return fmt.Errorf("%w: picked %d exceeds requested %d", ErrQuantityExceeded, quantityPicked, t.QuantityRequested)
	}
	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.QuantityPicked = quantityPicked
	t.CompletedAt = &now
	t.UpdatedAt = now
	if t.StartedAt != nil {
		t.ActualSeconds = int(now.Sub(*t.StartedAt).Seconds())
	}
	t.appendNote(notes)
	if quantityPicked < t.QuantityRequested {
		t.appendNote(fmt.Sprintf("short pick: %d of %d", quantityPicked, t.QuantityRequested))
	}
	t.addDomainEvent(NewTaskCompletedEvent(t))
	return nil
}

// Cancel aborts the task from any non-terminal state. The assigned worker
// PIN, if any, is retained for the audit trail.
func (t *WorkTask) Cancel(reason string) error {
	if t.Status.IsTerminal() {
		return t.transitionError(TaskStatusCancelled)
	}
	now := time.Now().UTC()
	t.Status = TaskStatusCancelled
	t.UpdatedAt = now
	if reason != "" {
		t.appendNote("cancelled: " + reason)
	}
	t.addDomainEvent(NewTaskCancelledEvent(t, reason))
	return nil
}

// IsActive returns true while the task is held by a worker.
func (t *WorkTask) IsActive() bool {
	return t.Status == TaskStatusAssigned || t.Status == TaskStatusPicking
}

func (t *WorkTask) appendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if t.Notes == "" {
		t.Notes = note
		return
	}
	t.Notes = t.Notes + "; " + note
}

func (t *WorkTask) transitionError(target TaskStatus) error {
	return fmt.Errorf("%w: cannot move task %s from %s to %s", ErrInvalidTransition, t.TaskID, t.Status, target)
}

func (t *WorkTask) addDomainEvent(event DomainEvent) {
	t.domainEvents = append(t.domainEvents, event)
}

// DomainEvents returns the events recorded since the last clear.
func (t *WorkTask) DomainEvents() []DomainEvent {
	return t.domainEvents
}

// ClearDomainEvents drops recorded events, typically after persistence.
func (t *WorkTask) ClearDomainEvents() {
	t.domainEvents = nil
}
