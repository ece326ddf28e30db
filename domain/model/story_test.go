package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func consentedStory() Story {
	return Story{
		ID: "s1", AuthorID: "author", StorytellerID: strPtr("teller"),
		HasConsent: true, ConsentVerified: true, EmbedsEnabled: true,
	}
}

func TestStoryIsOwnedBy(t *testing.T) {
	s := consentedStory()
	assert.True(t, s.IsOwnedBy("author"))
	assert.True(t, s.IsOwnedBy("teller"))
	assert.False(t, s.IsOwnedBy("stranger"))
	assert.False(t, s.IsOwnedBy(""))
}

func TestStoryOwnerIDs(t *testing.T) {
	s := consentedStory()
	assert.Equal(t, []string{"author", "teller"}, s.OwnerIDs())

	s.StorytellerID = strPtr("author")
	assert.Equal(t, []string{"author"}, s.OwnerIDs())

	s.StorytellerID = nil
	assert.Equal(t, []string{"author"}, s.OwnerIDs())
}

func TestStoryDistributionRestriction(t *testing.T) {
	withdrawn := time.Now()
	tests := []struct {
		name    string
		mutate  func(*Story)
		blocked bool
	}{
		{"standard consented story", func(*Story) {}, false},
		{"consent withdrawn", func(s *Story) { s.ConsentWithdrawnAt = &withdrawn }, true},
		{"consent unverified", func(s *Story) { s.ConsentVerified = false }, true},
		{"sacred", func(s *Story) { s.SensitivityLevel = "Sacred" }, true},
		{"high without elder approval", func(s *Story) { s.SensitivityLevel = "high" }, true},
		{"high with elder approval", func(s *Story) { s.SensitivityLevel = "high"; s.ElderApproval = true }, false},
		{"review pending", func(s *Story) { s.RequiresElderReview = true }, true},
		{"review approved", func(s *Story) { s.RequiresElderReview = true; s.CulturalReviewStatus = strPtr("approved") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := consentedStory()
			tt.mutate(&s)
			assert.Equal(t, tt.blocked, s.DistributionRestriction() != "")
		})
	}
}

func TestStoryAccessRestriction(t *testing.T) {
	s := consentedStory()
	assert.Empty(t, s.AccessRestriction())

	s.IsArchived = true
	assert.Contains(t, s.AccessRestriction(), "archived")

	s = consentedStory()
	s.EmbedsEnabled = false
	assert.Contains(t, s.AccessRestriction(), "disabled")

	s = consentedStory()
	s.RequiresElderReview = true
	assert.Contains(t, s.AccessRestriction(), "Current status: pending")
}

func TestStoryDisplayName(t *testing.T) {
	s := consentedStory()
	assert.Equal(t, "Anonymous", s.DisplayName())
	s.AuthorName = strPtr("Author A")
	assert.Equal(t, "Author A", s.DisplayName())
	s.StorytellerName = strPtr("Teller T")
	assert.Equal(t, "Teller T", s.DisplayName())
}
