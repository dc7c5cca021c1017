package application

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/voicewms/dispatch-service/internal/domain"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/metrics"
)

const (
	defaultListLimit = 50

	// claimBatchSize candidates are fetched per claim round. Under
	// contention every candidate in a round can be lost to other
	// workers, so a few rounds run before reporting an empty queue.
	claimBatchSize = 10
	maxClaimRounds = 3
)

// DispatchService coordinates the work task lifecycle.
type DispatchService struct {
	tasks   domain.TaskRepository
	history domain.HistoryRepository
	workers domain.WorkerDirectory
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(
	tasks domain.TaskRepository,
	history domain.HistoryRepository,
	workers domain.WorkerDirectory,
	logger *logging.Logger,
	m *metrics.Metrics,
) *DispatchService {
	return &DispatchService{
		tasks:   tasks,
		history: history,
		workers: workers,
		logger:  logger.WithComponent("dispatch_service"),
		metrics: m,
	}
}

// CreateTask creates a pending work task.
func (s *DispatchService) CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskDTO, error) {
	task, err := domain.NewWorkTask(domain.TaskSpec{
		OrderRef:          req.OrderRef,
		RequiredRole:      domain.Role(req.RequiredRole),
		ItemCode:          req.ItemCode,
		ItemDescription:   req.ItemDescription,
		LocationCode:      req.LocationCode,
		QuantityRequested: req.Quantity,
		Priority:          req.Priority,
		EstimatedSeconds:  req.EstimatedSeconds,
		Notes:             req.Notes,
	})
	if err != nil {
		return nil, mapDomainError(err)
	}

	entry := domain.NewHistoryEntry(task, domain.ActionCreated, "", 0, 0, "")
	if err := s.tasks.Insert(ctx, task, entry); err != nil {
		return nil, mapDomainError(err)
	}

	s.metrics.RecordTaskCreated(task.RequiredRole.String(), task.Priority)
	s.logger.Event(ctx, "task_created", map[string]any{
		"task_id":  task.TaskID,
		"role":     task.RequiredRole.String(),
		"priority": task.Priority,
		"location": task.LocationCode,
	})
	return ToTaskDTO(task), nil
}

// GetTask fetches a single task by its external ID.
func (s *DispatchService) GetTask(ctx context.Context, taskID string) (*TaskDTO, error) {
	task, err := s.tasks.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return ToTaskDTO(task), nil
}

// ListTasks returns tasks matching the query, newest first within
// priority order.
func (s *DispatchService) ListTasks(ctx context.Context, query *TaskListQuery) ([]*TaskDTO, error) {
	filter := domain.TaskFilter{
		Role:     domain.Role(query.Role),
		OrderRef: query.OrderRef,
		PIN:      query.PIN,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if query.Status != "" {
		status := domain.TaskStatus(query.Status)
		if !status.IsValid() {
			return nil, mapDomainError(domain.ErrInvalidTask)
		}
		filter.Status = status
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	tasks, err := s.tasks.Find(ctx, filter)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return ToTaskDTOs(tasks), nil
}

// NextTask returns the task a worker should do now. A task the worker
// already holds takes precedence; otherwise the highest priority pending
// task for the worker's role is claimed. A nil task with nil error means
// the queue is empty.
func (s *DispatchService) NextTask(ctx context.Context, pin int) (*TaskDTO, error) {
	worker, err := s.workers.FindByPIN(ctx, pin)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if !worker.Active {
		return nil, mapDomainError(domain.ErrWorkerInactive)
	}

	held, err := s.tasks.FindActiveByPIN(ctx, pin)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if len(held) > 0 {
		return ToTaskDTO(held[0]), nil
	}

	return s.claimNext(ctx, worker)
}

// claimNext walks pending candidates in dispatch order and claims the
// first one it wins. Losing a claim to a concurrent worker just moves
// on to the next candidate.
func (s *DispatchService) claimNext(ctx context.Context, worker *domain.Worker) (*TaskDTO, error) {
	role := worker.Role.String()

	for round := 0; round < maxClaimRounds; round++ {
		candidates, err := s.tasks.FindPendingByRole(ctx, worker.Role, claimBatchSize)
		if err != nil {
			return nil, mapDomainError(err)
		}
		if len(candidates) == 0 {
			return nil, nil
		}

		for _, task := range candidates {
			from := task.Status
			if err := task.Assign(worker.PIN); err != nil {
				continue
			}
			entry := domain.NewHistoryEntry(task, domain.ActionAssigned, from, task.QuantityPicked, worker.PIN, "")
			err := s.tasks.SaveTransition(ctx, task, from, entry)
			if stderrors.Is(err, domain.ErrClaimLost) {
				s.metrics.RecordClaimLost(role)
				continue
			}
			if err != nil {
				return nil, mapDomainError(err)
			}

			s.metrics.RecordClaimWon(role)
			s.metrics.RecordTaskTransition(string(from), string(task.Status))
			s.logger.TaskTransition(ctx, task.TaskID, string(from), string(task.Status), worker.PIN)
			return ToTaskDTO(task), nil
		}
	}
	return nil, nil
}

// ClaimTask claims a specific task for a worker.
func (s *DispatchService) ClaimTask(ctx context.Context, req *ClaimTaskRequest) (*TaskDTO, error) {
	worker, err := s.workers.FindByPIN(ctx, req.PIN)
	if err != nil {
		return nil, mapDomainError(err)
	}

	task, err := s.tasks.FindByTaskID(ctx, req.TaskID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if err := worker.CanClaim(task.RequiredRole); err != nil {
		return nil, mapDomainError(err)
	}

	return s.transition(ctx, task, domain.ActionAssigned, req.PIN, "", func() error {
		return task.Assign(req.PIN)
	})
}

// StartTask moves an assigned task into picking.
func (s *DispatchService) StartTask(ctx context.Context, req *StartTaskRequest) (*TaskDTO, error) {
	task, err := s.tasks.FindByTaskID(ctx, req.TaskID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return s.transition(ctx, task, domain.ActionStarted, req.PIN, "", func() error {
		return task.Start(req.PIN)
	})
}

// CompleteTask records the picked quantity and finishes the task. Short
// picks are allowed and noted; over-picks are rejected.
func (s *DispatchService) CompleteTask(ctx context.Context, req *CompleteTaskRequest) (*TaskDTO, error) {
	task, err := s.tasks.FindByTaskID(ctx, req.TaskID)
	if err != nil {
		return nil, mapDomainError(err)
	}

	dto, err := s.transition(ctx, task, domain.ActionCompleted, req.PIN, req.Notes, func() error {
		return task.Complete(req.PIN, req.QuantityPicked, req.Notes)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCompletion(task.RequiredRole.String(), task.QuantityPicked, task.QuantityRequested)
	return dto, nil
}

// CancelTask cancels a non-terminal task, recording the reason when one
// is given.
func (s *DispatchService) CancelTask(ctx context.Context, taskID, reason string) (*TaskDTO, error) {
	task, err := s.tasks.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return s.transition(ctx, task, domain.ActionCancelled, task.AssignedPIN, reason, func() error {
		return task.Cancel(reason)
	})
}

// transition runs a domain mutation and persists it with a precondition
// on the loaded status.
func (s *DispatchService) transition(
	ctx context.Context,
	task *domain.WorkTask,
	action domain.HistoryAction,
	pin int,
	notes string,
	mutate func() error,
) (*TaskDTO, error) {
	from := task.Status
	pickedBefore := task.QuantityPicked
	if err := mutate(); err != nil {
		return nil, mapDomainError(err)
	}

	entry := domain.NewHistoryEntry(task, action, from, pickedBefore, pin, notes)
	if err := s.tasks.SaveTransition(ctx, task, from, entry); err != nil {
		return nil, mapDomainError(err)
	}

	s.metrics.RecordTaskTransition(string(from), string(task.Status))
	s.logger.TaskTransition(ctx, task.TaskID, string(from), string(task.Status), pin)
	return ToTaskDTO(task), nil
}

// TaskHistory returns the append-only audit trail for a task.
func (s *DispatchService) TaskHistory(ctx context.Context, taskID string) ([]*HistoryEntryDTO, error) {
	if _, err := s.tasks.FindByTaskID(ctx, taskID); err != nil {
		return nil, mapDomainError(err)
	}
	entries, err := s.history.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return ToHistoryEntryDTOs(entries), nil
}

// Stats summarizes the queue by lifecycle state.
func (s *DispatchService) Stats(ctx context.Context) (*StatsDTO, error) {
	counts, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}

	stats := &StatsDTO{
		ByStatus:  make(map[string]int64, len(counts)),
		Timestamp: time.Now().UTC(),
	}
	for status, count := range counts {
		stats.ByStatus[string(status)] = count
		stats.Total += count
		if status.IsTerminal() {
			stats.Terminal += count
		} else {
			stats.Open += count
		}
	}
	return stats, nil
}

// WorkerTasks returns the tasks a worker currently holds.
func (s *DispatchService) WorkerTasks(ctx context.Context, pin int) ([]*TaskDTO, error) {
	if _, err := s.workers.FindByPIN(ctx, pin); err != nil {
		return nil, mapDomainError(err)
	}
	tasks, err := s.tasks.FindActiveByPIN(ctx, pin)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return ToTaskDTOs(tasks), nil
}

// RegisterWorker enrolls a worker, registering the role tag if it is
// new to this deployment.
func (s *DispatchService) RegisterWorker(ctx context.Context, req *RegisterWorkerRequest) (*WorkerDTO, error) {
	role, err := domain.RegisterRole(req.Role)
	if err != nil {
		return nil, mapDomainError(err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	worker := &domain.Worker{
		PIN:       req.PIN,
		Name:      req.Name,
		Role:      role,
		Active:    active,
		Equipment: req.Equipment,
	}
	if err := s.workers.Save(ctx, worker); err != nil {
		return nil, mapDomainError(err)
	}

	s.logger.Event(ctx, "worker_registered", map[string]any{
		"pin":    worker.PIN,
		"role":   worker.Role.String(),
		"active": worker.Active,
	})
	return ToWorkerDTO(worker), nil
}

// GetWorker fetches a worker by PIN.
func (s *DispatchService) GetWorker(ctx context.Context, pin int) (*WorkerDTO, error) {
	worker, err := s.workers.FindByPIN(ctx, pin)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return ToWorkerDTO(worker), nil
}

// Roles lists the registered role tags.
func (s *DispatchService) Roles() []string {
	roles := domain.RegisteredRoles()
	tags := make([]string, len(roles))
	for i, role := range roles {
		tags[i] = role.String()
	}
	return tags
}
