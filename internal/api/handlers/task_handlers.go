package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicewms/dispatch-service/internal/application"
	"github.com/voicewms/dispatch-service/pkg/errors"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/middleware"
)

// DispatchService is the application surface the task handlers depend
// on.
type DispatchService interface {
	CreateTask(ctx context.Context, req *application.CreateTaskRequest) (*application.TaskDTO, error)
	GetTask(ctx context.Context, taskID string) (*application.TaskDTO, error)
	ListTasks(ctx context.Context, query *application.TaskListQuery) ([]*application.TaskDTO, error)
	NextTask(ctx context.Context, pin int) (*application.TaskDTO, error)
	ClaimTask(ctx context.Context, req *application.ClaimTaskRequest) (*application.TaskDTO, error)
	StartTask(ctx context.Context, req *application.StartTaskRequest) (*application.TaskDTO, error)
	CompleteTask(ctx context.Context, req *application.CompleteTaskRequest) (*application.TaskDTO, error)
	CancelTask(ctx context.Context, taskID, reason string) (*application.TaskDTO, error)
	TaskHistory(ctx context.Context, taskID string) ([]*application.HistoryEntryDTO, error)
	Stats(ctx context.Context) (*application.StatsDTO, error)
	WorkerTasks(ctx context.Context, pin int) ([]*application.TaskDTO, error)
	RegisterWorker(ctx context.Context, req *application.RegisterWorkerRequest) (*application.WorkerDTO, error)
	GetWorker(ctx context.Context, pin int) (*application.WorkerDTO, error)
	Roles() []string
}

// TaskHandlers exposes the work task lifecycle over HTTP.
type TaskHandlers struct {
	service DispatchService
	logger  *logging.Logger
}

// NewTaskHandlers creates the task handler set.
func NewTaskHandlers(service DispatchService, logger *logging.Logger) *TaskHandlers {
	return &TaskHandlers{service: service, logger: logger}
}

// RegisterRoutes registers task and worker routes on the router group.
func (h *TaskHandlers) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/tasks")
	{
		tasks.POST("", h.CreateTask)
		tasks.GET("", h.ListTasks)
		tasks.GET("/stats", h.Stats)
		tasks.GET("/next/:pin", h.NextTask)
		tasks.POST("/assign", h.AssignTask)
		tasks.POST("/start", h.StartTask)
		tasks.POST("/complete", h.CompleteTask)
		tasks.GET("/:taskId", h.GetTask)
		tasks.GET("/:taskId/history", h.TaskHistory)
		tasks.PATCH("/:taskId/cancel", h.CancelTask)
	}

	workers := router.Group("/workers")
	{
		workers.POST("", h.RegisterWorker)
		workers.GET("/:pin", h.GetWorker)
		workers.GET("/:pin/tasks", h.WorkerTasks)
	}

	router.GET("/roles", h.Roles)
}

// CreateTask creates a pending work task.
func (h *TaskHandlers) CreateTask(c *gin.Context) {
	var req application.CreateTaskRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListTasks lists tasks matching the query parameters.
func (h *TaskHandlers) ListTasks(c *gin.Context) {
	var query application.TaskListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("invalid query: "+err.Error()))
		return
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), &query)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// GetTask fetches one task by ID.
func (h *TaskHandlers) GetTask(c *gin.Context) {
	task, err := h.service.GetTask(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// NextTask returns the next task for a worker, 204 when the queue is
// empty.
func (h *TaskHandlers) NextTask(c *gin.Context) {
	pin, ok := h.pinParam(c)
	if !ok {
		return
	}

	task, err := h.service.NextTask(c.Request.Context(), pin)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if task == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AssignTask claims a specific task for a worker.
func (h *TaskHandlers) AssignTask(c *gin.Context) {
	var req application.ClaimTaskRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	task, err := h.service.ClaimTask(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// StartTask moves an assigned task into picking.
func (h *TaskHandlers) StartTask(c *gin.Context) {
	var req application.StartTaskRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	task, err := h.service.StartTask(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CompleteTask finishes a task with the picked quantity.
func (h *TaskHandlers) CompleteTask(c *gin.Context) {
	var req application.CompleteTaskRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	task, err := h.service.CompleteTask(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CancelTask cancels a non-terminal task. The reason is optional.
func (h *TaskHandlers) CancelTask(c *gin.Context) {
	task, err := h.service.CancelTask(c.Request.Context(), c.Param("taskId"), c.Query("reason"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// TaskHistory returns the audit trail for a task.
func (h *TaskHandlers) TaskHistory(c *gin.Context) {
	taskID := c.Param("taskId")
	entries, err := h.service.TaskHistory(c.Request.Context(), taskID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"taskId": taskID, "history": entries, "count": len(entries)})
}

// Stats summarizes the task queue.
func (h *TaskHandlers) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RegisterWorker enrolls a worker.
func (h *TaskHandlers) RegisterWorker(c *gin.Context) {
	var req application.RegisterWorkerRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	worker, err := h.service.RegisterWorker(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, worker)
}

// GetWorker fetches a worker by PIN.
func (h *TaskHandlers) GetWorker(c *gin.Context) {
	pin, ok := h.pinParam(c)
	if !ok {
		return
	}

	worker, err := h.service.GetWorker(c.Request.Context(), pin)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, worker)
}

// WorkerTasks lists the tasks a worker currently holds.
func (h *TaskHandlers) WorkerTasks(c *gin.Context) {
	pin, ok := h.pinParam(c)
	if !ok {
		return
	}

	tasks, err := h.service.WorkerTasks(c.Request.Context(), pin)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pin": pin, "tasks": tasks, "count": len(tasks)})
}

// Roles lists the registered role tags.
func (h *TaskHandlers) Roles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": h.service.Roles()})
}

func (h *TaskHandlers) pinParam(c *gin.Context) (int, bool) {
	pin, err := strconv.Atoi(c.Param("pin"))
	if err != nil || pin <= 0 {
		middleware.AbortWithAppError(c, errors.ErrValidation("pin must be a positive number"))
		return 0, false
	}
	return pin, true
}
