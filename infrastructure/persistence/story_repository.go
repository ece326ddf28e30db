package persistence

import (
	"context"
	"database/sql"
	"errors"

	"story-syndication/domain/model"
)

const storySelect = `SELECT s.id, s.author_id, s.storyteller_id, s.tenant_id, s.organization_id, s.title,
COALESCE(s.content, ''), s.excerpt, a.display_name, st.display_name,
COALESCE(s.cultural_sensitivity_level, 'standard'), COALESCE(s.elder_approval, false),
COALESCE(s.requires_elder_review, false), s.cultural_review_status,
COALESCE(s.has_consent, false), COALESCE(s.consent_verified, false), s.consent_withdrawn_at,
COALESCE(s.is_archived, false), COALESCE(s.embeds_enabled, true), s.created_at
FROM stories AS s
LEFT JOIN profiles AS a ON a.id = s.author_id
LEFT JOIN profiles AS st ON st.id = s.storyteller_id
WHERE s.id = $1`

const storySelectMSSQL = `SELECT s.id, s.author_id, s.storyteller_id, s.tenant_id, s.organization_id, s.title,
COALESCE(s.content, ''), s.excerpt, a.display_name, st.display_name,
COALESCE(s.cultural_sensitivity_level, 'standard'), COALESCE(s.elder_approval, 0),
COALESCE(s.requires_elder_review, 0), s.cultural_review_status,
COALESCE(s.has_consent, 0), COALESCE(s.consent_verified, 0), s.consent_withdrawn_at,
COALESCE(s.is_archived, 0), COALESCE(s.embeds_enabled, 1), s.created_at
FROM dbo.[stories] AS s
LEFT JOIN dbo.[profiles] AS a ON a.id = s.author_id
LEFT JOIN dbo.[profiles] AS st ON st.id = s.storyteller_id
WHERE s.id = @p1`

// StoryRepository reads stories owned by the wider platform. It never writes
// and never caches, so ownership and consent changes apply immediately.
type StoryRepository struct {
	db    *sql.DB
	query string
}

func NewStoryRepository(db *sql.DB) *StoryRepository {
	return &StoryRepository{db: db, query: storySelect}
}

// NewStoryRepositoryMSSQL reads the same projection from SQL Server.
func NewStoryRepositoryMSSQL(db *sql.DB) *StoryRepository {
	return &StoryRepository{db: db, query: storySelectMSSQL}
}

func (r *StoryRepository) GetStory(ctx context.Context, storyID string) (*model.Story, error) {
	row := r.db.QueryRowContext(ctx, r.query, storyID)
	s := &model.Story{}
	var (
		storytellerID, orgID, excerpt, authorName, storytellerName, reviewStatus sql.NullString
		withdrawnAt                                                               sql.NullTime
	)
	err := row.Scan(&s.ID, &s.AuthorID, &storytellerID, &s.TenantID, &orgID, &s.Title,
		&s.Content, &excerpt, &authorName, &storytellerName,
		&s.SensitivityLevel, &s.ElderApproval,
		&s.RequiresElderReview, &reviewStatus,
		&s.HasConsent, &s.ConsentVerified, &withdrawnAt,
		&s.IsArchived, &s.EmbedsEnabled, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrStoryNotFound
	}
	if err != nil {
		return nil, err
	}
	s.StorytellerID = nullString(storytellerID)
	s.OrganizationID = nullString(orgID)
	s.Excerpt = nullString(excerpt)
	s.AuthorName = nullString(authorName)
	s.StorytellerName = nullString(storytellerName)
	s.CulturalReviewStatus = nullString(reviewStatus)
	s.ConsentWithdrawnAt = nullTime(withdrawnAt)
	return s, nil
}
