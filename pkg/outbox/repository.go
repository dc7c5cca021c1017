package outbox

import "context"

// Repository persists outbox events. Writes happen inside the aggregate's
// transaction; reads drive the background publisher.
type Repository interface {
	Save(ctx context.Context, event *OutboxEvent) error
	SaveAll(ctx context.Context, events []*OutboxEvent) error
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID string) error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error
	CountUnpublished(ctx context.Context) (int64, error)
}
