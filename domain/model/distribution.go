package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrDistributionNotFound     = errors.New("distribution not found")
	ErrStoryNotFound            = errors.New("story not found")
	ErrUnsupportedPlatform      = errors.New("unsupported platform")
	ErrInvalidDistributionInput = errors.New("invalid distribution input")
)

// Platform is the closed set of places a story can be syndicated to.
type Platform string

const (
	PlatformEmbed      Platform = "embed"
	PlatformTwitter    Platform = "twitter"
	PlatformFacebook   Platform = "facebook"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformWebsite    Platform = "website"
	PlatformBlog       Platform = "blog"
	PlatformAPI        Platform = "api"
	PlatformRSS        Platform = "rss"
	PlatformNewsletter Platform = "newsletter"
	PlatformCustom     Platform = "custom"
)

var platforms = []Platform{
	PlatformEmbed, PlatformTwitter, PlatformFacebook, PlatformLinkedIn, PlatformWebsite,
	PlatformBlog, PlatformAPI, PlatformRSS, PlatformNewsletter, PlatformCustom,
}

// Platforms returns every supported platform in display order.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// ParsePlatform normalizes s and rejects anything outside the enumeration.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range platforms {
		if p == known {
			return p, nil
		}
	}
	return "", ErrUnsupportedPlatform
}

type DistributionStatus string

const (
	StatusActive  DistributionStatus = "active"
	StatusRevoked DistributionStatus = "revoked"
	StatusExpired DistributionStatus = "expired"
)

// IsTerminal reports whether no transition can leave s.
func (s DistributionStatus) IsTerminal() bool {
	return s == StatusRevoked || s == StatusExpired
}

// Distribution is one placement of a story on one external platform.
type Distribution struct {
	ID               string             `json:"id"`
	StoryID          string             `json:"storyId"`
	OwnerID          string             `json:"ownerId"`
	TenantID         string             `json:"tenantId"`
	Platform         Platform           `json:"platform"`
	PlatformPostID   *string            `json:"platformPostId,omitempty"`
	DistributionURL  *string            `json:"distributionUrl,omitempty"`
	EmbedDomain      *string            `json:"embedDomain,omitempty"`
	Status           DistributionStatus `json:"status"`
	ViewCount        int64              `json:"viewCount"`
	ClickCount       int64              `json:"clickCount"`
	LastViewedAt     *time.Time         `json:"lastViewedAt,omitempty"`
	WebhookURL       *string            `json:"webhookUrl,omitempty"`
	WebhookSecret    *string            `json:"-"`
	ExpiresAt        *time.Time         `json:"expiresAt,omitempty"`
	RevokedAt        *time.Time         `json:"revokedAt,omitempty"`
	RevokedBy        *string            `json:"revokedBy,omitempty"`
	RevocationReason *string            `json:"revocationReason,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// EffectiveStatus applies expires_at on top of the stored status. A stored
// terminal status always wins; an active row past its expiry reads as expired
// whether or not the sweep has flipped it yet.
func (d *Distribution) EffectiveStatus(now time.Time) DistributionStatus {
	if d.Status.IsTerminal() {
		return d.Status
	}
	if d.ExpiresAt != nil && !now.Before(*d.ExpiresAt) {
		return StatusExpired
	}
	return StatusActive
}

// WithEffectiveStatus returns a copy of d whose Status is the effective one.
func (d *Distribution) WithEffectiveStatus(now time.Time) *Distribution {
	out := *d
	out.Status = d.EffectiveStatus(now)
	return &out
}

func (d *Distribution) IsActive(now time.Time) bool {
	return d.EffectiveStatus(now) == StatusActive
}

// NewDistribution carries everything the ledger needs to create a row.
type NewDistribution struct {
	StoryID         string
	OwnerID         string
	TenantID        string
	Platform        Platform
	PlatformPostID  *string
	DistributionURL *string
	EmbedDomain     *string
	WebhookURL      *string
	WebhookSecret   *string
	Notes           *string
	ExpiresAt       *time.Time
}

// RegisterParams is the owner-supplied part of a registration request.
type RegisterParams struct {
	Platform        string
	PlatformPostID  *string
	DistributionURL *string
	EmbedDomain     *string
	WebhookURL      *string
	WebhookSecret   *string
	Notes           *string
	ExpiresAt       *time.Time
}

// RegisteredDistribution is returned once at registration; the embed token is
// never stored in clear and cannot be fetched again.
type RegisteredDistribution struct {
	Distribution *Distribution `json:"distribution"`
	EmbedToken   string        `json:"embedToken"`
	EmbedCode    string        `json:"embedCode,omitempty"`
}

type PlatformStats struct {
	Count  int   `json:"count"`
	Views  int64 `json:"views"`
	Active int   `json:"active"`
}

type DistributionSummary struct {
	Total       int   `json:"total"`
	Active      int   `json:"active"`
	Revoked     int   `json:"revoked"`
	Expired     int   `json:"expired"`
	TotalViews  int64 `json:"totalViews"`
	TotalClicks int64 `json:"totalClicks"`
}

// DistributionMap is computed on every read and never stored.
type DistributionMap struct {
	StoryID       string                     `json:"storyId"`
	Summary       DistributionSummary        `json:"summary"`
	ByPlatform    map[Platform]PlatformStats `json:"byPlatform"`
	Distributions []*Distribution            `json:"distributions"`
}

type DomainViews struct {
	Domain string `json:"domain"`
	Views  int64  `json:"views"`
}

type DistributionAnalytics struct {
	StoryID         string             `json:"storyId"`
	TotalViews      int64              `json:"totalViews"`
	TotalClicks     int64              `json:"totalClicks"`
	ViewsByPlatform map[Platform]int64 `json:"viewsByPlatform"`
	TopDomains      []DomainViews      `json:"topDomains"`
}

// RevokeAllResult reports a bulk revocation. Failed lists ids whose ledger
// transition errored and which therefore may still be active.
type RevokeAllResult struct {
	Revoked int      `json:"revoked"`
	Failed  []string `json:"failed,omitempty"`
}

func (r RevokeAllResult) Partial() bool { return len(r.Failed) > 0 }
