package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	for _, p := range Platforms() {
		got, err := ParsePlatform(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePlatform("  LinkedIn ")
	require.NoError(t, err)
	assert.Equal(t, PlatformLinkedIn, got)

	_, err = ParsePlatform("tiktok")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	_, err = ParsePlatform("")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		d        Distribution
		expected DistributionStatus
	}{
		{"active without expiry", Distribution{Status: StatusActive}, StatusActive},
		{"active before expiry", Distribution{Status: StatusActive, ExpiresAt: &future}, StatusActive},
		{"active past expiry reads expired", Distribution{Status: StatusActive, ExpiresAt: &past}, StatusExpired},
		{"expiry boundary is expired", Distribution{Status: StatusActive, ExpiresAt: &now}, StatusExpired},
		{"revoked stays revoked", Distribution{Status: StatusRevoked, ExpiresAt: &future}, StatusRevoked},
		{"revoked wins over expiry", Distribution{Status: StatusRevoked, ExpiresAt: &past}, StatusRevoked},
		{"stored expired", Distribution{Status: StatusExpired}, StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.d.EffectiveStatus(now))
		})
	}
}

func TestWithEffectiveStatusCopiesRow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	d := &Distribution{ID: "d1", Status: StatusActive, ExpiresAt: &past}

	got := d.WithEffectiveStatus(now)

	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, "d1", got.ID)
	assert.Equal(t, StatusActive, d.Status)
}

func TestNewRevocationEvent(t *testing.T) {
	revokedAt := time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC)
	reason := "storyteller withdrew consent"
	d := &Distribution{ID: "d1", StoryID: "s1", TenantID: "t1", Status: StatusRevoked, RevokedAt: &revokedAt, RevocationReason: &reason}

	evt := NewRevocationEvent(d, NoticeRevoked, "owner-1")

	assert.Equal(t, NoticeRevoked, evt.Type)
	assert.Equal(t, "d1", evt.DistributionID)
	assert.Equal(t, reason, evt.Reason)
	assert.Equal(t, "owner-1", evt.ActorID)
	assert.True(t, evt.Timestamp.Equal(revokedAt))
}

func TestNewRevocationEventForExpiry(t *testing.T) {
	expiresAt := time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC)
	d := &Distribution{ID: "d1", StoryID: "s1", Status: StatusExpired, ExpiresAt: &expiresAt}

	evt := NewRevocationEvent(d, NoticeExpired, "")

	assert.Equal(t, "distribution expired", evt.Reason)
	assert.True(t, evt.Timestamp.Equal(expiresAt))
}

func TestParseEngagementType(t *testing.T) {
	got, err := ParseEngagementType("Click")
	require.NoError(t, err)
	assert.Equal(t, EngagementClick, got)

	_, err = ParseEngagementType("like")
	assert.ErrorIs(t, err, ErrUnsupportedEngagement)
}
