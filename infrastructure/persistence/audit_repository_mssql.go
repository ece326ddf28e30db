package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/utils"

	"github.com/google/uuid"
)

// AuditRepositoryMSSQL stores the audit trail on SQL Server with database/sql.
type AuditRepositoryMSSQL struct{ db *sql.DB }

func NewAuditRepositoryMSSQL(db *sql.DB) *AuditRepositoryMSSQL {
	return &AuditRepositoryMSSQL{db: db}
}

// EnsureAuditSchemaMSSQL creates the audit tables when missing.
func EnsureAuditSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stmts := []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.distribution_audit_logs') AND type in (N'U'))
BEGIN
CREATE TABLE dbo.[distribution_audit_logs] (
  id NVARCHAR(36) NOT NULL PRIMARY KEY,
  distribution_id NVARCHAR(36) NULL,
  story_id NVARCHAR(64) NOT NULL,
  tenant_id NVARCHAR(64) NULL,
  actor_id NVARCHAR(64) NULL,
  action NVARCHAR(32) NOT NULL,
  detail NVARCHAR(MAX) NULL,
  created_at DATETIME2 NOT NULL
);
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.distribution_webhook_deliveries') AND type in (N'U'))
BEGIN
CREATE TABLE dbo.[distribution_webhook_deliveries] (
  id NVARCHAR(36) NOT NULL PRIMARY KEY,
  distribution_id NVARCHAR(36) NOT NULL,
  event_type NVARCHAR(64) NOT NULL,
  attempt INT NOT NULL,
  status_code INT NULL,
  error NVARCHAR(MAX) NULL,
  delivered BIT NOT NULL,
  terminal BIT NOT NULL,
  duration_ms BIGINT NOT NULL,
  created_at DATETIME2 NOT NULL
);
CREATE INDEX IX_webhook_deliveries_distribution ON dbo.[distribution_webhook_deliveries](distribution_id, created_at);
END`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

func (r *AuditRepositoryMSSQL) CreateAudit(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = utils.GetCurrentTime()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO dbo.[distribution_audit_logs]
(id, distribution_id, story_id, tenant_id, actor_id, action, detail, created_at)
VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8)`,
		entry.ID, entry.DistributionID, entry.StoryID, entry.TenantID, entry.ActorID, entry.Action, entry.Detail, entry.CreatedAt)
	return err
}

func (r *AuditRepositoryMSSQL) RecordDelivery(ctx context.Context, d *model.WebhookDelivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = utils.GetCurrentTime()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO dbo.[distribution_webhook_deliveries]
(id, distribution_id, event_type, attempt, status_code, error, delivered, terminal, duration_ms, created_at)
VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)`,
		d.ID, d.DistributionID, d.EventType, d.Attempt, d.StatusCode, d.Error, d.Delivered, d.Terminal, d.DurationMs, d.CreatedAt)
	return err
}

func (r *AuditRepositoryMSSQL) ListDeliveries(ctx context.Context, distributionID string) ([]model.WebhookDelivery, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, distribution_id, event_type, attempt, status_code, error, delivered, terminal, duration_ms, created_at
FROM dbo.[distribution_webhook_deliveries]
WHERE distribution_id=@p1
ORDER BY created_at ASC`, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.WebhookDelivery, 0)
	for rows.Next() {
		var (
			d          model.WebhookDelivery
			statusCode sql.NullInt64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.DistributionID, &d.EventType, &d.Attempt, &statusCode, &errMsg,
			&d.Delivered, &d.Terminal, &d.DurationMs, &d.CreatedAt); err != nil {
			return nil, err
		}
		if statusCode.Valid {
			code := int(statusCode.Int64)
			d.StatusCode = &code
		}
		d.Error = nullString(errMsg)
		list = append(list, d)
	}
	return list, rows.Err()
}
