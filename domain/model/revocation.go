package model

import "time"

type NoticeType string

const (
	NoticeRevoked NoticeType = "distribution.revoked"
	NoticeExpired NoticeType = "distribution.expired"
)

// RevocationEvent is produced when a distribution reaches a terminal state and
// is consumed by the webhook notifier.
type RevocationEvent struct {
	Type           NoticeType `json:"type"`
	DistributionID string     `json:"distributionId"`
	StoryID        string     `json:"storyId"`
	TenantID       string     `json:"tenantId"`
	ActorID        string     `json:"actorId,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// NewRevocationEvent builds the event from a row that has just transitioned.
func NewRevocationEvent(d *Distribution, noticeType NoticeType, actorID string) *RevocationEvent {
	evt := &RevocationEvent{
		Type:           noticeType,
		DistributionID: d.ID,
		StoryID:        d.StoryID,
		TenantID:       d.TenantID,
		ActorID:        actorID,
		Timestamp:      d.UpdatedAt,
	}
	if d.RevocationReason != nil {
		evt.Reason = *d.RevocationReason
	}
	if noticeType == NoticeRevoked && d.RevokedAt != nil {
		evt.Timestamp = *d.RevokedAt
	}
	if noticeType == NoticeExpired && d.ExpiresAt != nil {
		evt.Timestamp = *d.ExpiresAt
		if evt.Reason == "" {
			evt.Reason = "distribution expired"
		}
	}
	return evt
}
