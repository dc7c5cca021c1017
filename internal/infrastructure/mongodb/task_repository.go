package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicewms/dispatch-service/internal/domain"
	"github.com/voicewms/dispatch-service/pkg/events"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/outbox"
	outboxMongo "github.com/voicewms/dispatch-service/pkg/outbox/mongodb"

	pkgmongo "github.com/voicewms/dispatch-service/pkg/mongodb"
)

const (
	taskCollection    = "work_tasks"
	historyCollection = "work_history"
)

// TaskRepository persists work tasks in MongoDB. Lifecycle writes land
// the task, its history entry and its outbox events in one transaction.
type TaskRepository struct {
	client     *pkgmongo.Client
	tasks      *mongo.Collection
	history    *mongo.Collection
	outboxRepo *outboxMongo.OutboxRepository
	factory    *events.EventFactory
	logger     *logging.Logger
}

// NewTaskRepository creates the repository and ensures its indexes.
func NewTaskRepository(client *pkgmongo.Client, factory *events.EventFactory, logger *logging.Logger) *TaskRepository {
	repo := &TaskRepository{
		client:     client,
		tasks:      client.Collection(taskCollection),
		history:    client.Collection(historyCollection),
		outboxRepo: outboxMongo.NewOutboxRepository(client.Database()),
		factory:    factory,
		logger:     logger.WithComponent("task_repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *TaskRepository) ensureIndexes(ctx context.Context) {
	taskIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
		// Dispatch order scan: pending tasks for a role, highest
		// lowest priority number first, oldest first within a band.
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "requiredRole", Value: 1}, {Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "assignedPin", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "orderRef", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := r.tasks.Indexes().CreateMany(ctx, taskIndexes); err != nil {
		r.logger.WithError(err).Warn("failed to create task indexes")
	}

	historyIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "taskId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "workerPin", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.history.Indexes().CreateMany(ctx, historyIndexes); err != nil {
		r.logger.WithError(err).Warn("failed to create history indexes")
	}

	if err := r.outboxRepo.EnsureIndexes(ctx); err != nil {
		r.logger.WithError(err).Warn("failed to create outbox indexes")
	}
}

// Insert persists a new task, its creation history entry and its
// pending events atomically.
func (r *TaskRepository) Insert(ctx context.Context, task *domain.WorkTask, entry *domain.HistoryEntry) error {
	task.ID = task.TaskID
	entry.ID = entry.EntryID
	outboxEvents, err := r.outboxEventsFor(ctx, task)
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.tasks.InsertOne(sessCtx, task); err != nil {
			return fmt.Errorf("insert task %s: %w", task.TaskID, err)
		}
		if _, err := r.history.InsertOne(sessCtx, entry); err != nil {
			return fmt.Errorf("insert history for %s: %w", task.TaskID, err)
		}
		if len(outboxEvents) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return fmt.Errorf("save outbox events for %s: %w", task.TaskID, err)
			}
		}
		return nil
	})
	r.logger.DatabaseQuery(ctx, taskCollection, "insert", time.Since(start), err == nil, 1)
	if err != nil {
		return err
	}

	task.ClearDomainEvents()
	return nil
}

// SaveTransition persists a lifecycle change guarded by the status the
// aggregate was loaded in. A matched count of zero means another writer
// transitioned the task first.
func (r *TaskRepository) SaveTransition(ctx context.Context, task *domain.WorkTask, from domain.TaskStatus, entry *domain.HistoryEntry) error {
	entry.ID = entry.EntryID
	outboxEvents, err := r.outboxEventsFor(ctx, task)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"status":         task.Status,
		"assignedPin":    task.AssignedPIN,
		"quantityPicked": task.QuantityPicked,
		"actualSeconds":  task.ActualSeconds,
		"notes":          task.Notes,
		"updatedAt":      task.UpdatedAt,
		"assignedAt":     task.AssignedAt,
		"startedAt":      task.StartedAt,
		"completedAt":    task.CompletedAt,
	}}

	start := time.Now()
	err = r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := r.tasks.UpdateOne(sessCtx,
			bson.M{"taskId": task.TaskID, "status": from},
			update,
		)
		if err != nil {
			return fmt.Errorf("update task %s: %w", task.TaskID, err)
		}
		if result.MatchedCount == 0 {
			if from == domain.TaskStatusPending {
				return domain.ErrClaimLost
			}
			return domain.ErrStaleTask
		}
		if _, err := r.history.InsertOne(sessCtx, entry); err != nil {
			return fmt.Errorf("insert history for %s: %w", task.TaskID, err)
		}
		if len(outboxEvents) > 0 {
			if err := r.outboxRepo.SaveAll(sessCtx, outboxEvents); err != nil {
				return fmt.Errorf("save outbox events for %s: %w", task.TaskID, err)
			}
		}
		return nil
	})
	r.logger.DatabaseQuery(ctx, taskCollection, "transition", time.Since(start), err == nil, 1)
	if err != nil {
		return err
	}

	task.ClearDomainEvents()
	return nil
}

// outboxEventsFor wraps the aggregate's recorded events for deferred
// delivery.
func (r *TaskRepository) outboxEventsFor(ctx context.Context, task *domain.WorkTask) ([]*outbox.OutboxEvent, error) {
	domainEvents := task.DomainEvents()
	if len(domainEvents) == 0 {
		return nil, nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := r.factory.CreateTaskEvent(ctx, event.EventType(), event.AggregateID(), event)
		outboxEvent, err := outbox.NewOutboxEvent(task.TaskID, "WorkTask", cloudEvent)
		if err != nil {
			return nil, fmt.Errorf("wrap event %s for %s: %w", event.EventType(), task.TaskID, err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxEvents, nil
}

// FindByTaskID loads a task by its external ID.
func (r *TaskRepository) FindByTaskID(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	var task domain.WorkTask
	err := r.tasks.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", taskID, err)
	}
	return &task, nil
}

// Find lists tasks matching the filter in dispatch order.
func (r *TaskRepository) Find(ctx context.Context, filter domain.TaskFilter) ([]*domain.WorkTask, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Role != "" {
		query["requiredRole"] = filter.Role
	}
	if filter.OrderRef != "" {
		query["orderRef"] = filter.OrderRef
	}
	if filter.PIN != 0 {
		query["assignedPin"] = filter.PIN
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetSkip(filter.Offset)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	return r.findTasks(ctx, query, opts)
}

// FindPendingByRole returns claimable tasks for a role in dispatch
// order.
func (r *TaskRepository) FindPendingByRole(ctx context.Context, role domain.Role, limit int64) ([]*domain.WorkTask, error) {
	query := bson.M{"status": domain.TaskStatusPending, "requiredRole": role}
	opts := options.Find().
		SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetLimit(limit)
	return r.findTasks(ctx, query, opts)
}

// FindActiveByPIN returns the tasks a worker currently holds.
func (r *TaskRepository) FindActiveByPIN(ctx context.Context, pin int) ([]*domain.WorkTask, error) {
	query := bson.M{
		"assignedPin": pin,
		"status": bson.M{"$in": []domain.TaskStatus{
			domain.TaskStatusAssigned,
			domain.TaskStatusPicking,
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: 1}})
	return r.findTasks(ctx, query, opts)
}

func (r *TaskRepository) findTasks(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domain.WorkTask, error) {
	cursor, err := r.tasks.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*domain.WorkTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

// CountByStatus aggregates task counts per lifecycle state.
func (r *TaskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.tasks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status domain.TaskStatus `bson:"_id"`
		Count  int64             `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode status counts: %w", err)
	}

	counts := make(map[domain.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
