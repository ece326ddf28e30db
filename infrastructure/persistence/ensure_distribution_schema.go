package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"story-syndication/infrastructure/logger"
)

// EnsureDistributionSchema creates the ledger table when missing and adds
// columns introduced after the first release. Safe to call at startup.
func EnsureDistributionSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS distributions (
        id VARCHAR(36) PRIMARY KEY,
        story_id VARCHAR(64) NOT NULL,
        owner_id VARCHAR(64) NOT NULL,
        tenant_id VARCHAR(64) NOT NULL,
        platform VARCHAR(32) NOT NULL,
        platform_post_id TEXT,
        distribution_url TEXT,
        embed_domain TEXT,
        status VARCHAR(16) NOT NULL DEFAULT 'active',
        view_count BIGINT NOT NULL DEFAULT 0,
        click_count BIGINT NOT NULL DEFAULT 0,
        last_viewed_at TIMESTAMPTZ,
        webhook_url TEXT,
        webhook_secret TEXT,
        expires_at TIMESTAMPTZ,
        revoked_at TIMESTAMPTZ,
        revocation_reason TEXT,
        notes TEXT,
        created_at TIMESTAMPTZ NOT NULL,
        CONSTRAINT distributions_status_check CHECK (status IN ('active','revoked','expired'))
    )`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create distributions table: %w", err)
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"distributions", "revoked_by", "ALTER TABLE distributions ADD COLUMN revoked_by VARCHAR(64)"},
		{"distributions", "updated_at", "ALTER TABLE distributions ADD COLUMN updated_at TIMESTAMPTZ NOT NULL DEFAULT now()"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_distributions_story_created ON distributions(story_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_active_expiry ON distributions(expires_at) WHERE status = 'active'`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			logger.GetLogger().WithField("error", err).Warn("failed creating distributions index")
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
