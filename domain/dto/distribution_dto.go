package dto

import (
	"time"

	"story-syndication/domain/model"
)

type RegisterDistributionRequest struct {
	Platform        string  `json:"platform" binding:"required"`
	PlatformPostID  *string `json:"platformPostId"`
	DistributionURL *string `json:"distributionUrl"`
	EmbedDomain     *string `json:"embedDomain"`
	WebhookURL      *string `json:"webhookUrl"`
	WebhookSecret   *string `json:"webhookSecret"`
	Notes           *string `json:"notes"`
	// ExpiresAt is RFC3339; parsed by the handler so a bad value yields 400.
	ExpiresAt *string `json:"expiresAt"`
}

type ListDistributionsQuery struct {
	IncludeRevoked bool `form:"includeRevoked"`
}

type RevokeDistributionsQuery struct {
	DistributionID string `form:"distributionId"`
	All            bool   `form:"all"`
	Reason         string `form:"reason"`
}

type RevokeDistributionResponse struct {
	DistributionID string                   `json:"distributionId"`
	Status         model.DistributionStatus `json:"status"`
	RevokedAt      *time.Time               `json:"revokedAt,omitempty"`
}

type RevokeAllResponse struct {
	Revoked int      `json:"revoked"`
	Partial bool     `json:"partial"`
	Failed  []string `json:"failed,omitempty"`
}

type EngagementRequest struct {
	Type string `json:"type" binding:"required"`
}

type Attribution struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Message  string `json:"message"`
}

type SyndicatedStory struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     *string   `json:"excerpt,omitempty"`
	Storyteller string    `json:"storyteller"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SyndicatedContent is the Access Gate success body. Attribution is always present.
type SyndicatedContent struct {
	Story          SyndicatedStory `json:"story"`
	DistributionID string          `json:"distributionId"`
	Attribution    Attribution     `json:"attribution"`
}
