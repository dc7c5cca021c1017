package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction labels a recorded lifecycle change.
type HistoryAction string

const (
	ActionCreated   HistoryAction = "created"
	ActionAssigned  HistoryAction = "assigned"
	ActionStarted   HistoryAction = "started"
	ActionCompleted HistoryAction = "completed"
	ActionCancelled HistoryAction = "cancelled"
)

// HistoryEntry is an immutable audit record of one task lifecycle change.
// Entries are written in the same transaction as the task update.
type HistoryEntry struct {
	ID             string        `bson:"_id,omitempty" json:"id"`
	EntryID        string        `bson:"entryId" json:"entryId"`
	TaskID         string        `bson:"taskId" json:"taskId"`
	WorkerPIN      int           `bson:"workerPin,omitempty" json:"workerPin,omitempty"`
	Action         HistoryAction `bson:"action" json:"action"`
	OldStatus      TaskStatus    `bson:"oldStatus,omitempty" json:"oldStatus,omitempty"`
	NewStatus      TaskStatus    `bson:"newStatus" json:"newStatus"`
	QuantityBefore int           `bson:"quantityBefore" json:"quantityBefore"`
	QuantityAfter  int           `bson:"quantityAfter" json:"quantityAfter"`
	Notes          string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
}

// NewHistoryEntry records a transition of the task from oldStatus to its
// current status, attributed to the worker PIN when one is involved.
// pickedBefore is the picked quantity as it stood before the action; the
// entry pairs it with the task's picked quantity after.
func NewHistoryEntry(task *WorkTask, action HistoryAction, oldStatus TaskStatus, pickedBefore, pin int, notes string) *HistoryEntry {
	return &HistoryEntry{
		EntryID:        uuid.New().String(),
		TaskID:         task.TaskID,
		WorkerPIN:      pin,
		Action:         action,
		OldStatus:      oldStatus,
		NewStatus:      task.Status,
		QuantityBefore: pickedBefore,
		QuantityAfter:  task.QuantityPicked,
		Notes:          notes,
		CreatedAt:      time.Now().UTC(),
	}
}
