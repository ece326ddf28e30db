package model

import (
	"errors"
	"strings"
)

var ErrUnsupportedEngagement = errors.New("unsupported engagement type")

type EngagementType string

const (
	EngagementView  EngagementType = "view"
	EngagementClick EngagementType = "click"
	EngagementShare EngagementType = "share"
)

func ParseEngagementType(s string) (EngagementType, error) {
	switch t := EngagementType(strings.ToLower(strings.TrimSpace(s))); t {
	case EngagementView, EngagementClick, EngagementShare:
		return t, nil
	}
	return "", ErrUnsupportedEngagement
}

// Actor is the authenticated identity behind an owner-facing call.
type Actor struct {
	UserID   string
	TenantID string
}
