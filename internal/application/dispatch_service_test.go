package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewms/dispatch-service/internal/domain"
	apperrors "github.com/voicewms/dispatch-service/pkg/errors"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/metrics"
)

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries []*domain.HistoryEntry
}

func (m *mockHistoryRepo) add(entry *domain.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockHistoryRepo) FindByTaskID(ctx context.Context, taskID string) ([]*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.HistoryEntry
	for _, entry := range m.entries {
		if entry.TaskID == taskID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type mockTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]*domain.WorkTask
	history   *mockHistoryRepo
	insertErr error
	findErr   error
}

func newMockTaskRepo(history *mockHistoryRepo) *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*domain.WorkTask), history: history}
}

func (m *mockTaskRepo) Insert(ctx context.Context, task *domain.WorkTask, entry *domain.HistoryEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *task
	m.tasks[task.TaskID] = &clone
	m.history.add(entry)
	return nil
}

// SaveTransition mirrors the conditional update the mongo repository
// performs: the write only lands when the stored status still matches
// the status the aggregate was loaded in.
func (m *mockTaskRepo) SaveTransition(ctx context.Context, task *domain.WorkTask, from domain.TaskStatus, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tasks[task.TaskID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if stored.Status != from {
		if from == domain.TaskStatusPending {
			return domain.ErrClaimLost
		}
		return domain.ErrStaleTask
	}

	clone := *task
	m.tasks[task.TaskID] = &clone
	m.history.add(entry)
	return nil
}

func (m *mockTaskRepo) FindByTaskID(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (m *mockTaskRepo) Find(ctx context.Context, filter domain.TaskFilter) ([]*domain.WorkTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.WorkTask
	for _, task := range m.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Role != "" && task.RequiredRole != filter.Role {
			continue
		}
		if filter.OrderRef != "" && task.OrderRef != filter.OrderRef {
			continue
		}
		if filter.PIN != 0 && task.AssignedPIN != filter.PIN {
			continue
		}
		clone := *task
		result = append(result, &clone)
	}
	return result, nil
}

func (m *mockTaskRepo) FindPendingByRole(ctx context.Context, role domain.Role, limit int64) ([]*domain.WorkTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.WorkTask
	for _, task := range m.tasks {
		if task.Status == domain.TaskStatusPending && task.RequiredRole == role {
			clone := *task
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && int64(len(result)) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockTaskRepo) FindActiveByPIN(ctx context.Context, pin int) ([]*domain.WorkTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.WorkTask
	for _, task := range m.tasks {
		if task.AssignedPIN == pin && task.IsActive() {
			clone := *task
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *mockTaskRepo) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.TaskStatus]int64)
	for _, task := range m.tasks {
		counts[task.Status]++
	}
	return counts, nil
}

type mockWorkerDirectory struct {
	mu      sync.Mutex
	workers map[int]*domain.Worker
}

func newMockWorkerDirectory() *mockWorkerDirectory {
	return &mockWorkerDirectory{workers: make(map[int]*domain.Worker)}
}

func (m *mockWorkerDirectory) FindByPIN(ctx context.Context, pin int) (*domain.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	worker, ok := m.workers[pin]
	if !ok {
		return nil, domain.ErrWorkerNotFound
	}
	clone := *worker
	return &clone, nil
}

func (m *mockWorkerDirectory) Save(ctx context.Context, worker *domain.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *worker
	m.workers[worker.PIN] = &clone
	return nil
}

func newTestDispatchService(t *testing.T) (*DispatchService, *mockTaskRepo, *mockWorkerDirectory) {
	t.Helper()
	history := &mockHistoryRepo{}
	tasks := newMockTaskRepo(history)
	workers := newMockWorkerDirectory()
	logger := logging.New(logging.DefaultConfig("dispatch-test"))
	m := metrics.New(metrics.DefaultConfig("dispatch-test"))
	return NewDispatchService(tasks, history, workers, logger, m), tasks, workers
}

func addWorker(t *testing.T, workers *mockWorkerDirectory, pin int, role string) {
	t.Helper()
	err := workers.Save(context.Background(), &domain.Worker{
		PIN:    pin,
		Name:   "Test Worker",
		Role:   domain.Role(role),
		Active: true,
	})
	require.NoError(t, err)
}

func createTask(t *testing.T, service *DispatchService, req *CreateTaskRequest) *TaskDTO {
	t.Helper()
	if req == nil {
		req = &CreateTaskRequest{
			RequiredRole: "picker",
			ItemCode:     "SKU-1001",
			LocationCode: "HA-045",
			Quantity:     6,
		}
	}
	dto, err := service.CreateTask(context.Background(), req)
	require.NoError(t, err)
	return dto
}

func TestDispatchService_CreateTask(t *testing.T) {
	t.Run("creates pending task with defaults", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)

		dto := createTask(t, service, nil)

		assert.NotEmpty(t, dto.TaskID)
		assert.Equal(t, "pending", dto.Status)
		assert.Equal(t, 5, dto.Priority)
		assert.Equal(t, "SKU-1001", dto.ItemCode)
		assert.Equal(t, "HA-045", dto.LocationCode)
	})

	t.Run("records creation history", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)

		dto := createTask(t, service, nil)

		entries, err := service.TaskHistory(context.Background(), dto.TaskID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "created", entries[0].Action)
		assert.Equal(t, "pending", entries[0].NewStatus)
	})

	t.Run("rejects unregistered role", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)

		_, err := service.CreateTask(context.Background(), &CreateTaskRequest{
			RequiredRole: "astronaut",
			ItemCode:     "SKU-1001",
			LocationCode: "HA-045",
			Quantity:     1,
		})

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	})

	t.Run("surfaces repository failures", func(t *testing.T) {
		service, tasks, _ := newTestDispatchService(t)
		tasks.insertErr = errors.New("connection reset")

		_, err := service.CreateTask(context.Background(), &CreateTaskRequest{
			RequiredRole: "picker",
			ItemCode:     "SKU-1001",
			LocationCode: "HA-045",
			Quantity:     1,
		})

		require.Error(t, err)
	})
}

func TestDispatchService_NextTask(t *testing.T) {
	t.Run("returns nil on empty queue", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")

		dto, err := service.NextTask(context.Background(), 4242)

		require.NoError(t, err)
		assert.Nil(t, dto)
	})

	t.Run("claims highest priority pending task", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		createTask(t, service, &CreateTaskRequest{
			RequiredRole: "picker", ItemCode: "SKU-LOW", LocationCode: "HA-001", Quantity: 1, Priority: 8,
		})
		high := createTask(t, service, &CreateTaskRequest{
			RequiredRole: "picker", ItemCode: "SKU-HIGH", LocationCode: "HA-002", Quantity: 1, Priority: 1,
		})

		dto, err := service.NextTask(context.Background(), 4242)

		require.NoError(t, err)
		require.NotNil(t, dto)
		assert.Equal(t, high.TaskID, dto.TaskID)
		assert.Equal(t, "assigned", dto.Status)
		assert.Equal(t, 4242, dto.AssignedPIN)
	})

	t.Run("returns held task before claiming another", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		held := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: held.TaskID, PIN: 4242})
		require.NoError(t, err)
		createTask(t, service, nil)

		dto, err := service.NextTask(context.Background(), 4242)

		require.NoError(t, err)
		require.NotNil(t, dto)
		assert.Equal(t, held.TaskID, dto.TaskID)
	})

	t.Run("skips tasks for other roles", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "packer")
		createTask(t, service, nil)

		dto, err := service.NextTask(context.Background(), 4242)

		require.NoError(t, err)
		assert.Nil(t, dto)
	})

	t.Run("rejects inactive worker", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		err := workers.Save(context.Background(), &domain.Worker{PIN: 4242, Name: "W", Role: "picker", Active: false})
		require.NoError(t, err)

		_, err = service.NextTask(context.Background(), 4242)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeWorkerInactive, appErr.Code)
	})

	t.Run("unknown pin is not found", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)

		_, err := service.NextTask(context.Background(), 9999)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	})
}

func TestDispatchService_AtMostOneClaim(t *testing.T) {
	service, tasks, workers := newTestDispatchService(t)
	task := createTask(t, service, nil)

	const contenders = 16
	pins := make([]int, contenders)
	for i := range pins {
		pins[i] = 5000 + i
		addWorker(t, workers, pins[i], "picker")
	}

	var wg sync.WaitGroup
	winners := make(chan int, contenders)
	for _, pin := range pins {
		wg.Add(1)
		go func(pin int) {
			defer wg.Done()
			dto, err := service.NextTask(context.Background(), pin)
			if err == nil && dto != nil {
				winners <- pin
			}
		}(pin)
	}
	wg.Wait()
	close(winners)

	var won []int
	for pin := range winners {
		won = append(won, pin)
	}
	require.Len(t, won, 1, "exactly one worker should win the claim")

	stored, err := tasks.FindByTaskID(context.Background(), task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusAssigned, stored.Status)
	assert.Equal(t, won[0], stored.AssignedPIN)
}

func TestDispatchService_ClaimTask(t *testing.T) {
	t.Run("claims pending task", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)

		dto, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})

		require.NoError(t, err)
		assert.Equal(t, "assigned", dto.Status)
		assert.NotNil(t, dto.AssignedAt)
	})

	t.Run("rejects role mismatch", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "packer")
		task := createTask(t, service, nil)

		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeRoleMismatch, appErr.Code)
	})

	t.Run("rejects second claim", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		addWorker(t, workers, 5151, "picker")
		task := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)

		_, err = service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 5151})

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeAlreadyAssigned, appErr.Code)
	})

	t.Run("unknown task is not found", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")

		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: "WT-missing", PIN: 4242})

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	})
}

func TestDispatchService_StartTask(t *testing.T) {
	t.Run("moves assigned task to picking", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)

		dto, err := service.StartTask(context.Background(), &StartTaskRequest{TaskID: task.TaskID, PIN: 4242})

		require.NoError(t, err)
		assert.Equal(t, "picking", dto.Status)
		assert.NotNil(t, dto.StartedAt)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)

		_, err = service.StartTask(context.Background(), &StartTaskRequest{TaskID: task.TaskID, PIN: 5151})

		require.Error(t, err)
	})

	t.Run("rejects pending task", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)

		_, err := service.StartTask(context.Background(), &StartTaskRequest{TaskID: task.TaskID, PIN: 4242})

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)
	})
}

func TestDispatchService_CompleteTask(t *testing.T) {
	startPicking := func(t *testing.T, service *DispatchService, workers *mockWorkerDirectory, qty int) *TaskDTO {
		t.Helper()
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, &CreateTaskRequest{
			RequiredRole: "picker", ItemCode: "SKU-1001", LocationCode: "HA-045", Quantity: qty,
		})
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)
		_, err = service.StartTask(context.Background(), &StartTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)
		return task
	}

	t.Run("completes with full quantity", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		task := startPicking(t, service, workers, 6)

		dto, err := service.CompleteTask(context.Background(), &CompleteTaskRequest{
			TaskID: task.TaskID, PIN: 4242, QuantityPicked: 6,
		})

		require.NoError(t, err)
		assert.Equal(t, "completed", dto.Status)
		assert.Equal(t, 6, dto.QuantityPicked)
		assert.NotNil(t, dto.CompletedAt)
	})

	t.Run("notes a short pick", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		task := startPicking(t, service, workers, 6)

		dto, err := service.CompleteTask(context.Background(), &CompleteTaskRequest{
			TaskID: task.TaskID, PIN: 4242, QuantityPicked: 4,
		})

		require.NoError(t, err)
		assert.Equal(t, "completed", dto.Status)
		assert.Contains(t, dto.Notes, "short pick: 4 of 6")
	})

	t.Run("rejects over-pick", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		task := startPicking(t, service, workers, 6)

		_, err := service.CompleteTask(context.Background(), &CompleteTaskRequest{
			TaskID: task.TaskID, PIN: 4242, QuantityPicked: 7,
		})

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeQuantityExceeded, appErr.Code)
	})

	t.Run("rejects completion from assigned", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)

		_, err = service.CompleteTask(context.Background(), &CompleteTaskRequest{
			TaskID: task.TaskID, PIN: 4242, QuantityPicked: 6,
		})

		require.Error(t, err)
	})
}

func TestDispatchService_CancelTask(t *testing.T) {
	t.Run("cancels pending task with reason", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)
		task := createTask(t, service, nil)

		dto, err := service.CancelTask(context.Background(), task.TaskID, "order cancelled")

		require.NoError(t, err)
		assert.Equal(t, "cancelled", dto.Status)
		assert.Contains(t, dto.Notes, "order cancelled")
	})

	t.Run("retains assignee on cancellation", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)

		dto, err := service.CancelTask(context.Background(), task.TaskID, "aisle blocked")

		require.NoError(t, err)
		assert.Equal(t, "cancelled", dto.Status)
		assert.Equal(t, 4242, dto.AssignedPIN)
	})

	t.Run("rejects cancelling a completed task", func(t *testing.T) {
		service, _, workers := newTestDispatchService(t)
		addWorker(t, workers, 4242, "picker")
		task := createTask(t, service, nil)
		_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)
		_, err = service.StartTask(context.Background(), &StartTaskRequest{TaskID: task.TaskID, PIN: 4242})
		require.NoError(t, err)
		_, err = service.CompleteTask(context.Background(), &CompleteTaskRequest{TaskID: task.TaskID, PIN: 4242, QuantityPicked: 6})
		require.NoError(t, err)

		_, err = service.CancelTask(context.Background(), task.TaskID, "too late")

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)
	})
}

func TestDispatchService_History(t *testing.T) {
	service, _, workers := newTestDispatchService(t)
	addWorker(t, workers, 4242, "picker")
	task := createTask(t, service, nil)
	_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
	require.NoError(t, err)
	_, err = service.StartTask(context.Background(), &StartTaskRequest{TaskID: task.TaskID, PIN: 4242})
	require.NoError(t, err)
	_, err = service.CompleteTask(context.Background(), &CompleteTaskRequest{TaskID: task.TaskID, PIN: 4242, QuantityPicked: 6})
	require.NoError(t, err)

	entries, err := service.TaskHistory(context.Background(), task.TaskID)

	require.NoError(t, err)
	require.Len(t, entries, 4)
	actions := []string{entries[0].Action, entries[1].Action, entries[2].Action, entries[3].Action}
	assert.Equal(t, []string{"created", "assigned", "started", "completed"}, actions)
	// Before/after track the picked quantity, not the requested one.
	assert.Equal(t, 0, entries[3].QuantityBefore)
	assert.Equal(t, 6, entries[3].QuantityAfter)
}

func TestDispatchService_Stats(t *testing.T) {
	service, _, workers := newTestDispatchService(t)
	addWorker(t, workers, 4242, "picker")
	createTask(t, service, nil)
	createTask(t, service, nil)
	task := createTask(t, service, nil)
	_, err := service.ClaimTask(context.Background(), &ClaimTaskRequest{TaskID: task.TaskID, PIN: 4242})
	require.NoError(t, err)

	stats, err := service.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ByStatus["pending"])
	assert.Equal(t, int64(1), stats.ByStatus["assigned"])
	assert.Equal(t, int64(3), stats.Open)
	assert.Equal(t, int64(0), stats.Terminal)
	assert.Equal(t, int64(3), stats.Total)
}

func TestDispatchService_RegisterWorker(t *testing.T) {
	t.Run("registers worker with new role tag", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)

		dto, err := service.RegisterWorker(context.Background(), &RegisterWorkerRequest{
			PIN: 7001, Name: "Avery", Role: "cycle_counter",
		})

		require.NoError(t, err)
		assert.True(t, dto.Active)
		assert.Equal(t, "cycle_counter", dto.Role)
		assert.Contains(t, service.Roles(), "cycle_counter")
	})

	t.Run("rejects malformed role tag", func(t *testing.T) {
		service, _, _ := newTestDispatchService(t)

		_, err := service.RegisterWorker(context.Background(), &RegisterWorkerRequest{
			PIN: 7001, Name: "Avery", Role: "Not A Role!",
		})

		require.Error(t, err)
	})
}
