package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicewms/dispatch-service/internal/application"
	"github.com/voicewms/dispatch-service/internal/layout"
	"github.com/voicewms/dispatch-service/pkg/logging"
	pkgmongo "github.com/voicewms/dispatch-service/pkg/mongodb"
)

const (
	layoutCollection  = "warehouse_layouts"
	addressCollection = "location_addresses"
)

type layoutDoc struct {
	ID        string        `bson:"_id"`
	Layout    layout.Layout `bson:"layout"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

type addressDoc struct {
	layout.Address `bson:",inline"`
	LayoutName     string `bson:"layoutName"`
}

// LayoutRepository persists warehouse layout definitions.
type LayoutRepository struct {
	collection *mongo.Collection
}

// NewLayoutRepository creates the layout repository.
func NewLayoutRepository(client *pkgmongo.Client) *LayoutRepository {
	return &LayoutRepository{collection: client.Collection(layoutCollection)}
}

// Save upserts a layout definition keyed by name.
func (r *LayoutRepository) Save(ctx context.Context, l *layout.Layout) error {
	doc := layoutDoc{ID: l.Name, Layout: *l, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": l.Name}, doc, opts); err != nil {
		return fmt.Errorf("save layout %s: %w", l.Name, err)
	}
	return nil
}

// FindByName loads a layout definition.
func (r *LayoutRepository) FindByName(ctx context.Context, name string) (*layout.Layout, error) {
	var doc layoutDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("layout %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("find layout %s: %w", name, err)
	}
	return &doc.Layout, nil
}

// FindLatest loads the most recently saved layout.
func (r *LayoutRepository) FindLatest(ctx context.Context) (*layout.Layout, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	var doc layoutDoc
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("no layout has been generated")
	}
	if err != nil {
		return nil, fmt.Errorf("find latest layout: %w", err)
	}
	return &doc.Layout, nil
}

// LocationRepository persists generated storage addresses.
type LocationRepository struct {
	client     *pkgmongo.Client
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewLocationRepository creates the repository and ensures its indexes.
func NewLocationRepository(client *pkgmongo.Client, logger *logging.Logger) *LocationRepository {
	repo := &LocationRepository{
		client:     client,
		collection: client.Collection(addressCollection),
		logger:     logger.WithComponent("location_repository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *LocationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		// Codes are unique within a layout, not globally; two layouts may
		// legitimately generate overlapping codes.
		{Keys: bson.D{{Key: "layoutName", Value: 1}, {Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "layoutName", Value: 1}, {Key: "ordinal", Value: 1}}},
		{
			Keys: bson.D{
				{Key: "layoutName", Value: 1}, {Key: "section", Value: 1}, {Key: "aisle", Value: 1},
				{Key: "bay", Value: 1}, {Key: "level", Value: 1}, {Key: "subsection", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "locationType", Value: 1}}},
		{Keys: bson.D{{Key: "equipment", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		r.logger.WithError(err).Warn("failed to create address indexes")
	}
}

// ReplaceForLayout swaps the address set for a layout in one
// transaction so a regeneration never leaves a partial address book.
func (r *LocationRepository) ReplaceForLayout(ctx context.Context, layoutName string, addrs []layout.Address) error {
	docs := make([]interface{}, len(addrs))
	for i := range addrs {
		docs[i] = addressDoc{Address: addrs[i], LayoutName: layoutName}
	}

	return r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.DeleteMany(sessCtx, bson.M{"layoutName": layoutName}); err != nil {
			return fmt.Errorf("clear addresses for %s: %w", layoutName, err)
		}
		if len(docs) == 0 {
			return nil
		}
		if _, err := r.collection.InsertMany(sessCtx, docs); err != nil {
			return fmt.Errorf("insert addresses for %s: %w", layoutName, err)
		}
		return nil
	})
}

// FindByCode loads one address by its canonical code within a layout.
func (r *LocationRepository) FindByCode(ctx context.Context, layoutName, code string) (*layout.Address, error) {
	var addr layout.Address
	err := r.collection.FindOne(ctx, bson.M{"layoutName": layoutName, "code": code}).Decode(&addr)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("address %s not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("find address %s: %w", code, err)
	}
	return &addr, nil
}

// Search lists addresses matching the query in canonical order.
func (r *LocationRepository) Search(ctx context.Context, query application.AddressQuery) ([]layout.Address, error) {
	filter := bson.M{}
	if query.Search != "" {
		filter["code"] = primitive.Regex{Pattern: regexp.QuoteMeta(query.Search), Options: "i"}
	}
	if query.Section != "" {
		filter["section"] = query.Section
	}
	if query.Aisle != "" {
		filter["aisle"] = query.Aisle
	}
	if query.LocationType != "" {
		filter["locationType"] = query.LocationType
	}
	if query.Equipment != "" {
		filter["equipment"] = query.Equipment
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "ordinal", Value: 1}}).
		SetSkip(query.Offset)
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search addresses: %w", err)
	}
	defer cursor.Close(ctx)

	var addrs []layout.Address
	if err := cursor.All(ctx, &addrs); err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}
	return addrs, nil
}

// CountForLayout counts the addresses generated for a layout.
func (r *LocationRepository) CountForLayout(ctx context.Context, layoutName string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"layoutName": layoutName})
	if err != nil {
		return 0, fmt.Errorf("count addresses for %s: %w", layoutName, err)
	}
	return count, nil
}
