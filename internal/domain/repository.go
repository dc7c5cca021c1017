package domain

import "context"

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status   TaskStatus
	Role     Role
	OrderRef string
	PIN      int
	Limit    int64
	Offset   int64
}

// TaskRepository persists work tasks. Insert and SaveTransition also write
// the matching history entry and outbox events in one transaction.
type TaskRepository interface {
	Insert(ctx context.Context, task *WorkTask, entry *HistoryEntry) error

	// SaveTransition persists a lifecycle change with a precondition on the
	// status the aggregate was loaded in. When another writer got there
	// first the update matches nothing and ErrClaimLost is returned for a
	// pending precondition, ErrStaleTask otherwise.
	SaveTransition(ctx context.Context, task *WorkTask, from TaskStatus, entry *HistoryEntry) error

	FindByTaskID(ctx context.Context, taskID string) (*WorkTask, error)
	Find(ctx context.Context, filter TaskFilter) ([]*WorkTask, error)
	FindPendingByRole(ctx context.Context, role Role, limit int64) ([]*WorkTask, error)
	FindActiveByPIN(ctx context.Context, pin int) ([]*WorkTask, error)
	CountByStatus(ctx context.Context) (map[TaskStatus]int64, error)
}

// HistoryRepository reads the task audit trail.
type HistoryRepository interface {
	FindByTaskID(ctx context.Context, taskID string) ([]*HistoryEntry, error)
}

// WorkerDirectory resolves worker PINs to worker records.
type WorkerDirectory interface {
	FindByPIN(ctx context.Context, pin int) (*Worker, error)
	Save(ctx context.Context, worker *Worker) error
}
