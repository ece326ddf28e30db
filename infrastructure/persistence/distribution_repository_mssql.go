package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/utils"

	"github.com/google/uuid"
)

// DistributionRepositoryMSSQL is the ledger for SQL Server/Azure SQL.
type DistributionRepositoryMSSQL struct {
	db  *sql.DB
	now func() time.Time
}

func NewDistributionRepositoryMSSQL(db *sql.DB) *DistributionRepositoryMSSQL {
	return &DistributionRepositoryMSSQL{db: db, now: utils.GetCurrentTime}
}

// insertedColumns prefixes every ledger column for an OUTPUT clause.
var insertedColumns = func() string {
	cols := strings.Split(distributionColumns, ",")
	for i, c := range cols {
		cols[i] = "inserted." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}()

func (r *DistributionRepositoryMSSQL) Create(ctx context.Context, in *model.NewDistribution) (*model.Distribution, error) {
	if _, err := model.ParsePlatform(string(in.Platform)); err != nil {
		return nil, err
	}
	now := r.now()
	row := r.db.QueryRowContext(ctx, `INSERT INTO dbo.[distributions]
(id, story_id, owner_id, tenant_id, platform, platform_post_id, distribution_url, embed_domain,
 status, view_count, click_count, webhook_url, webhook_secret, expires_at, notes, created_at, updated_at)
OUTPUT `+insertedColumns+`
VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,'active',0,0,@p9,@p10,@p11,@p12,@p13,@p13)`,
		uuid.NewString(), in.StoryID, in.OwnerID, in.TenantID, string(in.Platform), in.PlatformPostID,
		in.DistributionURL, in.EmbedDomain, in.WebhookURL, in.WebhookSecret, in.ExpiresAt, in.Notes, now)
	return scanDistribution(row)
}

func (r *DistributionRepositoryMSSQL) Get(ctx context.Context, id string) (*model.Distribution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+distributionColumns+` FROM dbo.[distributions] WHERE id=@p1`, id)
	d, err := scanDistribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrDistributionNotFound
	}
	return d, err
}

func (r *DistributionRepositoryMSSQL) ListByStory(ctx context.Context, storyID string, includeRevoked bool) ([]*model.Distribution, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if includeRevoked {
		rows, err = r.db.QueryContext(ctx, `SELECT `+distributionColumns+` FROM dbo.[distributions]
WHERE story_id=@p1
ORDER BY created_at DESC`, storyID)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+distributionColumns+` FROM dbo.[distributions]
WHERE story_id=@p1 AND status='active' AND (expires_at IS NULL OR expires_at > @p2)
ORDER BY created_at DESC`, storyID, r.now())
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

func (r *DistributionRepositoryMSSQL) TransitionToRevoked(ctx context.Context, id, actorID, reason string) (*model.Distribution, bool, error) {
	now := r.now()
	row := r.db.QueryRowContext(ctx, `UPDATE dbo.[distributions]
SET status='revoked', revoked_at=@p2, revoked_by=@p3, revocation_reason=@p4, updated_at=@p2
OUTPUT `+insertedColumns+`
WHERE id=@p1 AND status='active' AND (expires_at IS NULL OR expires_at > @p2)`, id, now, actorID, reason)
	d, err := scanDistribution(row)
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *DistributionRepositoryMSSQL) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*model.Distribution, error) {
	rows, err := r.db.QueryContext(ctx, `UPDATE TOP (@p2) dbo.[distributions] WITH (ROWLOCK, READPAST)
SET status='expired', updated_at=@p1
OUTPUT `+insertedColumns+`
WHERE status='active' AND expires_at IS NOT NULL AND expires_at <= @p1`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

func (r *DistributionRepositoryMSSQL) IncrementView(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[distributions] SET view_count = view_count + 1, last_viewed_at=@p2
WHERE id=@p1 AND status='active'`, id, r.now())
	return requireAffected(res, err)
}

func (r *DistributionRepositoryMSSQL) IncrementClick(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[distributions] SET click_count = click_count + 1
WHERE id=@p1 AND status='active'`, id)
	return requireAffected(res, err)
}
