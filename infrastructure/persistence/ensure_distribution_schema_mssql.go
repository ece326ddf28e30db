package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureDistributionSchemaMSSQL is the SQL Server counterpart of EnsureDistributionSchema.
func EnsureDistributionSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	create := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.distributions') AND type in (N'U'))
BEGIN
CREATE TABLE dbo.[distributions] (
  id NVARCHAR(36) NOT NULL PRIMARY KEY,
  story_id NVARCHAR(64) NOT NULL,
  owner_id NVARCHAR(64) NOT NULL,
  tenant_id NVARCHAR(64) NOT NULL,
  platform NVARCHAR(32) NOT NULL,
  platform_post_id NVARCHAR(255) NULL,
  distribution_url NVARCHAR(2048) NULL,
  embed_domain NVARCHAR(255) NULL,
  status NVARCHAR(16) NOT NULL CONSTRAINT DF_distributions_status DEFAULT 'active',
  view_count BIGINT NOT NULL CONSTRAINT DF_distributions_views DEFAULT 0,
  click_count BIGINT NOT NULL CONSTRAINT DF_distributions_clicks DEFAULT 0,
  last_viewed_at DATETIME2 NULL,
  webhook_url NVARCHAR(2048) NULL,
  webhook_secret NVARCHAR(255) NULL,
  expires_at DATETIME2 NULL,
  revoked_at DATETIME2 NULL,
  revocation_reason NVARCHAR(1000) NULL,
  notes NVARCHAR(MAX) NULL,
  created_at DATETIME2 NOT NULL,
  CONSTRAINT CK_distributions_status CHECK (status IN ('active','revoked','expired'))
);
CREATE INDEX IX_distributions_story_created ON dbo.[distributions](story_id, created_at DESC);
END`
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create distributions table: %w", err)
	}

	addIfMissing := func(table, column, ddl string) error {
		q := fmt.Sprintf(`IF COL_LENGTH('%s', '%s') IS NULL BEGIN %s END`, table, column, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column %s.%s: %w", table, column, err)
		}
		return nil
	}
	if err := addIfMissing("dbo.distributions", "revoked_by", "ALTER TABLE dbo.[distributions] ADD revoked_by NVARCHAR(64) NULL"); err != nil {
		return err
	}
	if err := addIfMissing("dbo.distributions", "updated_at", "ALTER TABLE dbo.[distributions] ADD updated_at DATETIME2 NOT NULL CONSTRAINT DF_distributions_updated DEFAULT SYSUTCDATETIME()"); err != nil {
		return err
	}
	return nil
}
