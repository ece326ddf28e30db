package model

import (
	"strings"
	"time"
)

const (
	SensitivityStandard = "standard"
	SensitivityMedium   = "medium"
	SensitivityHigh     = "high"
	SensitivitySacred   = "sacred"

	ReviewApproved = "approved"
)

// Story is the read-only projection of a story owned by the wider platform.
type Story struct {
	ID                   string
	AuthorID             string
	StorytellerID        *string
	TenantID             string
	OrganizationID       *string
	Title                string
	Content              string
	Excerpt              *string
	AuthorName           *string
	StorytellerName      *string
	SensitivityLevel     string
	ElderApproval        bool
	RequiresElderReview  bool
	CulturalReviewStatus *string
	HasConsent           bool
	ConsentVerified      bool
	ConsentWithdrawnAt   *time.Time
	IsArchived           bool
	EmbedsEnabled        bool
	CreatedAt            time.Time
}

// IsOwnedBy reports whether actorID is the author or the designated storyteller.
func (s *Story) IsOwnedBy(actorID string) bool {
	if actorID == "" {
		return false
	}
	if s.AuthorID == actorID {
		return true
	}
	return s.StorytellerID != nil && *s.StorytellerID == actorID
}

// OwnerIDs lists the author followed by the storyteller, if one is set.
func (s *Story) OwnerIDs() []string {
	ids := []string{s.AuthorID}
	if s.StorytellerID != nil && *s.StorytellerID != "" && *s.StorytellerID != s.AuthorID {
		ids = append(ids, *s.StorytellerID)
	}
	return ids
}

func (s *Story) sensitivity() string {
	level := strings.ToLower(strings.TrimSpace(s.SensitivityLevel))
	if level == "" {
		return SensitivityStandard
	}
	return level
}

// DistributionRestriction returns a non-empty explanation when the story may
// not be placed on external platforms.
func (s *Story) DistributionRestriction() string {
	if s.ConsentWithdrawnAt != nil {
		return "Storyteller consent has been withdrawn"
	}
	if !s.HasConsent || !s.ConsentVerified {
		return "Story consent not verified; distribution requires verified consent"
	}
	switch s.sensitivity() {
	case SensitivitySacred:
		return "Sacred content cannot be shared outside the community"
	case SensitivityHigh:
		if !s.ElderApproval {
			return "High sensitivity stories require elder approval before external distribution"
		}
	}
	if s.RequiresElderReview {
		status := "pending"
		if s.CulturalReviewStatus != nil && *s.CulturalReviewStatus != "" {
			status = *s.CulturalReviewStatus
		}
		if status != ReviewApproved {
			return "This story requires elder review before external distribution. Current status: " + status
		}
	}
	return ""
}

// AccessRestriction is checked on every external read. Restrictions applied
// after registration still take effect here.
func (s *Story) AccessRestriction() string {
	if s.IsArchived {
		return "This story has been archived"
	}
	if !s.EmbedsEnabled {
		return "The storyteller has disabled external sharing for this story"
	}
	return s.DistributionRestriction()
}

// DisplayName is the name credited in attribution.
func (s *Story) DisplayName() string {
	if s.StorytellerName != nil && *s.StorytellerName != "" {
		return *s.StorytellerName
	}
	if s.AuthorName != nil && *s.AuthorName != "" {
		return *s.AuthorName
	}
	return "Anonymous"
}
