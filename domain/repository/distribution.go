package repository

import (
	"context"
	"time"

	"story-syndication/domain/model"
)

// IDistribution is the ledger. It is the only writer of distribution rows.
type IDistribution interface {
	Create(ctx context.Context, in *model.NewDistribution) (*model.Distribution, error)
	Get(ctx context.Context, id string) (*model.Distribution, error)
	// ListByStory orders by created_at descending. With includeRevoked false only
	// rows whose effective status is active are returned.
	ListByStory(ctx context.Context, storyID string, includeRevoked bool) ([]*model.Distribution, error)
	// TransitionToRevoked is a compare-and-swap from active. changed is false
	// when the row was already terminal; the stored row is returned either way.
	TransitionToRevoked(ctx context.Context, id, actorID, reason string) (*model.Distribution, bool, error)
	// ExpireDue flips up to limit active rows whose expires_at has passed and
	// returns only the rows this call transitioned.
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]*model.Distribution, error)
	IncrementView(ctx context.Context, id string) error
	IncrementClick(ctx context.Context, id string) error
}

// IStory is the read-only story collaborator.
type IStory interface {
	GetStory(ctx context.Context, storyID string) (*model.Story, error)
}

type IAudit interface {
	CreateAudit(ctx context.Context, entry *model.AuditLog) error
	RecordDelivery(ctx context.Context, delivery *model.WebhookDelivery) error
	ListDeliveries(ctx context.Context, distributionID string) ([]model.WebhookDelivery, error)
}

// IRevocationQueue hands revocation events to the notifier workers.
type IRevocationQueue interface {
	Enqueue(ctx context.Context, evt *model.RevocationEvent) error
	// Dequeue blocks until an event is available or ctx is done.
	Dequeue(ctx context.Context) (*model.RevocationEvent, error)
}

// IEventPublisher fans revocation events out to a message broker.
type IEventPublisher interface {
	Publish(ctx context.Context, evt *model.RevocationEvent) error
}
