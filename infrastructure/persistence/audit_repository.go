package persistence

import (
	"context"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository keeps the append-only audit and webhook delivery trail with gorm.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) CreateAudit(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = utils.GetCurrentTime()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) RecordDelivery(ctx context.Context, delivery *model.WebhookDelivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = utils.GetCurrentTime()
	}
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *AuditRepository) ListDeliveries(ctx context.Context, distributionID string) ([]model.WebhookDelivery, error) {
	deliveries := make([]model.WebhookDelivery, 0)
	err := r.db.WithContext(ctx).
		Where("distribution_id = ?", distributionID).
		Order("created_at ASC").
		Find(&deliveries).Error
	return deliveries, err
}
