package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicewms/dispatch-service/internal/domain"
	"github.com/voicewms/dispatch-service/pkg/logging"
	pkgmongo "github.com/voicewms/dispatch-service/pkg/mongodb"
)

const workerCollection = "workers"

// WorkerRepository persists the worker directory.
type WorkerRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewWorkerRepository creates the repository and ensures its indexes.
func NewWorkerRepository(client *pkgmongo.Client, logger *logging.Logger) *WorkerRepository {
	repo := &WorkerRepository{
		collection: client.Collection(workerCollection),
		logger:     logger.WithComponent("worker_repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *WorkerRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "pin", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "active", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("failed to create worker indexes")
	}
}

// FindByPIN resolves a worker by PIN.
func (r *WorkerRepository) FindByPIN(ctx context.Context, pin int) (*domain.Worker, error) {
	var worker domain.Worker
	err := r.collection.FindOne(ctx, bson.M{"pin": pin}).Decode(&worker)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: pin %d", domain.ErrWorkerNotFound, pin)
	}
	if err != nil {
		return nil, fmt.Errorf("find worker %d: %w", pin, err)
	}
	return &worker, nil
}

// Save upserts a worker record keyed by PIN.
func (r *WorkerRepository) Save(ctx context.Context, worker *domain.Worker) error {
	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{
		"pin":       worker.PIN,
		"name":      worker.Name,
		"role":      worker.Role,
		"active":    worker.Active,
		"equipment": worker.Equipment,
	}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"pin": worker.PIN}, update, opts); err != nil {
		return fmt.Errorf("save worker %d: %w", worker.PIN, err)
	}
	return nil
}
