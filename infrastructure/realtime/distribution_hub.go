package realtime

import (
	"net/http"
	"sync"

	"story-syndication/domain/model"

	"github.com/gin-gonic/gin"
)

// DistributionStatusEvent is the SSE payload for a status change.
type DistributionStatusEvent struct {
	Type           string                   `json:"type"`
	DistributionID string                   `json:"distributionId"`
	StoryID        string                   `json:"storyId"`
	Platform       model.Platform           `json:"platform"`
	Status         model.DistributionStatus `json:"status"`
	Reason         *string                  `json:"reason,omitempty"`
}

// Hub maintains per-owner subscribers listening for distribution status events.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan DistributionStatusEvent]struct{}
}

func NewDistributionHub() *Hub {
	return &Hub{users: make(map[string]map[chan DistributionStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated owner (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan DistributionStatusEvent, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent("distribution_status", evt)
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(userID string, ch chan DistributionStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan DistributionStatusEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan DistributionStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// BroadcastStatus sends to every stream of the distribution's owner and of
// each extra recipient, once per user. Slow subscribers miss events rather
// than block the caller.
func (h *Hub) BroadcastStatus(d *model.Distribution, recipients ...string) {
	if d == nil {
		return
	}
	evt := DistributionStatusEvent{
		Type:           "distribution_status",
		DistributionID: d.ID,
		StoryID:        d.StoryID,
		Platform:       d.Platform,
		Status:         d.Status,
		Reason:         d.RevocationReason,
	}
	seen := make(map[string]struct{}, len(recipients)+1)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range append([]string{d.OwnerID}, recipients...) {
		if _, ok := seen[userID]; ok || userID == "" {
			continue
		}
		seen[userID] = struct{}{}
		for ch := range h.users[userID] {
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

func (h *Hub) subscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
