package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/utils"

	"github.com/google/uuid"
)

const distributionColumns = `id, story_id, owner_id, tenant_id, platform, platform_post_id, distribution_url, embed_domain,
status, view_count, click_count, last_viewed_at, webhook_url, webhook_secret, expires_at,
revoked_at, revoked_by, revocation_reason, notes, created_at, updated_at`

// DistributionRepository is the PostgreSQL ledger.
type DistributionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDistributionRepository(db *sql.DB) *DistributionRepository {
	return &DistributionRepository{db: db, now: utils.GetCurrentTime}
}

func (r *DistributionRepository) Create(ctx context.Context, in *model.NewDistribution) (*model.Distribution, error) {
	if _, err := model.ParsePlatform(string(in.Platform)); err != nil {
		return nil, err
	}
	now := r.now()
	row := r.db.QueryRowContext(ctx, `INSERT INTO distributions
(id, story_id, owner_id, tenant_id, platform, platform_post_id, distribution_url, embed_domain,
 status, view_count, click_count, webhook_url, webhook_secret, expires_at, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'active',0,0,$9,$10,$11,$12,$13,$13)
RETURNING `+distributionColumns,
		uuid.NewString(), in.StoryID, in.OwnerID, in.TenantID, string(in.Platform), in.PlatformPostID,
		in.DistributionURL, in.EmbedDomain, in.WebhookURL, in.WebhookSecret, in.ExpiresAt, in.Notes, now)
	return scanDistribution(row)
}

func (r *DistributionRepository) Get(ctx context.Context, id string) (*model.Distribution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+distributionColumns+` FROM distributions WHERE id=$1`, id)
	d, err := scanDistribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrDistributionNotFound
	}
	return d, err
}

func (r *DistributionRepository) ListByStory(ctx context.Context, storyID string, includeRevoked bool) ([]*model.Distribution, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if includeRevoked {
		rows, err = r.db.QueryContext(ctx, `SELECT `+distributionColumns+` FROM distributions
WHERE story_id=$1
ORDER BY created_at DESC`, storyID)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+distributionColumns+` FROM distributions
WHERE story_id=$1 AND status='active' AND (expires_at IS NULL OR expires_at > $2)
ORDER BY created_at DESC`, storyID, r.now())
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

func (r *DistributionRepository) TransitionToRevoked(ctx context.Context, id, actorID, reason string) (*model.Distribution, bool, error) {
	now := r.now()
	row := r.db.QueryRowContext(ctx, `UPDATE distributions
SET status='revoked', revoked_at=$2, revoked_by=$3, revocation_reason=$4, updated_at=$2
WHERE id=$1 AND status='active' AND (expires_at IS NULL OR expires_at > $2)
RETURNING `+distributionColumns, id, now, actorID, reason)
	d, err := scanDistribution(row)
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}
	// Lost the swap: already terminal, effectively expired, or missing.
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *DistributionRepository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*model.Distribution, error) {
	rows, err := r.db.QueryContext(ctx, `UPDATE distributions SET status='expired', updated_at=$1
WHERE status='active' AND id IN (
  SELECT id FROM distributions
  WHERE status='active' AND expires_at IS NOT NULL AND expires_at <= $1
  ORDER BY expires_at ASC
  LIMIT $2
  FOR UPDATE SKIP LOCKED)
RETURNING `+distributionColumns, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDistributions(rows)
}

func (r *DistributionRepository) IncrementView(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE distributions SET view_count = view_count + 1, last_viewed_at=$2
WHERE id=$1 AND status='active'`, id, r.now())
	return requireAffected(res, err)
}

func (r *DistributionRepository) IncrementClick(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE distributions SET click_count = click_count + 1
WHERE id=$1 AND status='active'`, id)
	return requireAffected(res, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDistribution(row rowScanner) (*model.Distribution, error) {
	d := &model.Distribution{}
	var (
		platform, status                                 string
		postID, distURL, embedDomain, webhookURL, secret sql.NullString
		revokedBy, reason, notes                         sql.NullString
		lastViewed, expiresAt, revokedAt                 sql.NullTime
	)
	err := row.Scan(&d.ID, &d.StoryID, &d.OwnerID, &d.TenantID, &platform, &postID, &distURL, &embedDomain,
		&status, &d.ViewCount, &d.ClickCount, &lastViewed, &webhookURL, &secret, &expiresAt,
		&revokedAt, &revokedBy, &reason, &notes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Platform = model.Platform(platform)
	d.Status = model.DistributionStatus(status)
	d.PlatformPostID = nullString(postID)
	d.DistributionURL = nullString(distURL)
	d.EmbedDomain = nullString(embedDomain)
	d.WebhookURL = nullString(webhookURL)
	d.WebhookSecret = nullString(secret)
	d.RevokedBy = nullString(revokedBy)
	d.RevocationReason = nullString(reason)
	d.Notes = nullString(notes)
	d.LastViewedAt = nullTime(lastViewed)
	d.ExpiresAt = nullTime(expiresAt)
	d.RevokedAt = nullTime(revokedAt)
	return d, nil
}

func scanDistributions(rows *sql.Rows) ([]*model.Distribution, error) {
	list := make([]*model.Distribution, 0)
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrDistributionNotFound
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
