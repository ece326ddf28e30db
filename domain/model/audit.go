package model

import "time"

const (
	AuditActionRegister  = "register"
	AuditActionRevoke    = "revoke"
	AuditActionRevokeAll = "revoke_all"
	AuditActionExpire    = "expire"
)

// AuditLog is an append-only record of every ledger mutation.
type AuditLog struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DistributionID *string   `json:"distributionId,omitempty" gorm:"type:varchar(36);index"`
	StoryID        string    `json:"storyId" gorm:"type:varchar(64);index;not null"`
	TenantID       string    `json:"tenantId" gorm:"type:varchar(64)"`
	ActorID        string    `json:"actorId" gorm:"type:varchar(64)"`
	Action         string    `json:"action" gorm:"type:varchar(32);not null"`
	Detail         string    `json:"detail" gorm:"type:text"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
}

func (AuditLog) TableName() string { return "distribution_audit_logs" }

// WebhookDelivery records one delivery attempt of a revocation notice.
type WebhookDelivery struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DistributionID string    `json:"distributionId" gorm:"type:varchar(36);index;not null"`
	EventType      string    `json:"eventType" gorm:"type:varchar(64);not null"`
	Attempt        int       `json:"attempt"`
	StatusCode     *int      `json:"statusCode,omitempty"`
	Error          *string   `json:"error,omitempty" gorm:"type:text"`
	Delivered      bool      `json:"delivered"`
	Terminal       bool      `json:"terminal"`
	DurationMs     int64     `json:"durationMs"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
}

func (WebhookDelivery) TableName() string { return "distribution_webhook_deliveries" }
