package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicewms/dispatch-service/internal/domain"
	pkgmongo "github.com/voicewms/dispatch-service/pkg/mongodb"
)

// HistoryRepository reads the task audit trail. Writes go through
// TaskRepository so they share the lifecycle transaction.
type HistoryRepository struct {
	client *pkgmongo.Client
}

// NewHistoryRepository creates the read-side history repository.
func NewHistoryRepository(client *pkgmongo.Client) *HistoryRepository {
	return &HistoryRepository{client: client}
}

// FindByTaskID returns a task's history entries in insertion order.
func (r *HistoryRepository) FindByTaskID(ctx context.Context, taskID string) ([]*domain.HistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.client.Collection(historyCollection).Find(ctx, bson.M{"taskId": taskID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find history for %s: %w", taskID, err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.HistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", taskID, err)
	}
	return entries, nil
}
