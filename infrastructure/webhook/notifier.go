// Package webhook delivers signed revocation notices to external endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/logger"

	log "github.com/sirupsen/logrus"
)

const userAgent = "StorySyndication-Webhook/1.0"

const (
	HeaderEvent        = "X-Syndication-Event"
	HeaderDistribution = "X-Syndication-Distribution"
	HeaderAttempt      = "X-Syndication-Delivery-Attempt"
	HeaderSignature    = "X-Syndication-Signature"
)

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
}

// DeliveryRecorder persists one row per attempt.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, delivery *model.WebhookDelivery) error
}

// Payload is the signed body. It is marshalled once per event so every retry
// carries identical bytes and receivers can dedupe on distributionId+revokedAt.
type Payload struct {
	Event          model.NoticeType `json:"event"`
	DistributionID string           `json:"distributionId"`
	StoryID        string           `json:"storyId"`
	PlatformPostID *string          `json:"platformPostId"`
	Reason         string           `json:"reason"`
	RevokedAt      time.Time        `json:"revokedAt"`
}

type Result struct {
	Skipped    bool
	Delivered  bool
	Attempts   int
	StatusCode int
	Err        error
}

type Notifier struct {
	client   *http.Client
	cfg      Config
	recorder DeliveryRecorder
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewNotifier(cfg Config, recorder DeliveryRecorder) *Notifier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	return &Notifier{
		client:   &http.Client{},
		cfg:      cfg,
		recorder: recorder,
		sleep:    sleepContext,
	}
}

// Notify runs the retry policy to success or exhaustion. A distribution with
// no webhook URL is skipped. Failures are logged and recorded, never returned
// to the revoking caller.
func (n *Notifier) Notify(ctx context.Context, d *model.Distribution, evt *model.RevocationEvent) Result {
	lg := logger.GetLogger().WithFields(log.Fields{
		"distribution_id": d.ID,
		"story_id":        d.StoryID,
		"platform":        d.Platform,
		"event":           evt.Type,
	})
	if d.WebhookURL == nil || strings.TrimSpace(*d.WebhookURL) == "" {
		lg.Debug("no webhook registered; skipping notice")
		return Result{Skipped: true}
	}

	body, err := json.Marshal(Payload{
		Event:          evt.Type,
		DistributionID: d.ID,
		StoryID:        d.StoryID,
		PlatformPostID: d.PlatformPostID,
		Reason:         evt.Reason,
		RevokedAt:      evt.Timestamp.UTC(),
	})
	if err != nil {
		return Result{Err: fmt.Errorf("marshal webhook payload: %w", err)}
	}
	var signature string
	if d.WebhookSecret != nil && *d.WebhookSecret != "" {
		signature = Sign(body, *d.WebhookSecret)
	}

	var res Result
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		started := time.Now()
		status, retryAfter, sendErr := n.send(ctx, *d.WebhookURL, body, signature, evt.Type, d.ID, attempt)
		res.StatusCode = status
		res.Err = sendErr

		delivered := sendErr == nil
		retryable := !delivered && isRetryable(status, sendErr)
		terminal := !delivered && (!retryable || attempt == n.cfg.MaxAttempts)
		n.record(ctx, d.ID, evt.Type, attempt, status, sendErr, delivered, terminal, time.Since(started))

		alg := lg.WithFields(log.Fields{"attempt": attempt, "status_code": status})
		if delivered {
			alg.Info("webhook notice delivered")
			res.Delivered = true
			return res
		}
		if terminal {
			alg.WithField("error", sendErr).Error("webhook notice abandoned")
			return res
		}
		alg.WithField("error", sendErr).Warn("webhook notice failed; retrying")

		wait := n.backoff(attempt)
		if retryAfter > wait {
			wait = retryAfter
		}
		if wait > n.cfg.MaxBackoff {
			wait = n.cfg.MaxBackoff
		}
		if err := n.sleep(ctx, wait); err != nil {
			res.Err = err
			lg.WithField("attempt", attempt).Warn("webhook dispatch cancelled")
			return res
		}
	}
	return res
}

// statusError is a non-2xx response.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("webhook endpoint returned status %d", e.code) }

func (n *Notifier) send(ctx context.Context, url string, body []byte, signature string, event model.NoticeType, distributionID string, attempt int) (int, time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, n.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, &permanentError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderEvent, string(event))
	req.Header.Set(HeaderDistribution, distributionID)
	req.Header.Set(HeaderAttempt, strconv.Itoa(attempt))
	if signature != "" {
		req.Header.Set(HeaderSignature, signature)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, 0, nil
	}
	return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), &statusError{code: resp.StatusCode}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// isRetryable: network errors, timeouts, 5xx and 429. Any other status is final.
func isRetryable(status int, err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if status == 0 {
		return true
	}
	return status >= 500 || status == http.StatusTooManyRequests
}

func (n *Notifier) backoff(attempt int) time.Duration {
	d := n.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= n.cfg.MaxBackoff {
			return n.cfg.MaxBackoff
		}
	}
	return d
}

func (n *Notifier) record(ctx context.Context, distributionID string, event model.NoticeType, attempt, status int, sendErr error, delivered, terminal bool, elapsed time.Duration) {
	if n.recorder == nil {
		return
	}
	delivery := &model.WebhookDelivery{
		DistributionID: distributionID,
		EventType:      string(event),
		Attempt:        attempt,
		Delivered:      delivered,
		Terminal:       terminal,
		DurationMs:     elapsed.Milliseconds(),
	}
	if status != 0 {
		code := status
		delivery.StatusCode = &code
	}
	if sendErr != nil {
		msg := sendErr.Error()
		delivery.Error = &msg
	}
	// Recording must outlive a cancelled dispatch context.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.recorder.RecordDelivery(recCtx, delivery); err != nil {
		logger.GetLogger().WithFields(log.Fields{"distribution_id": distributionID, "attempt": attempt, "error": err}).
			Warn("failed to record webhook delivery")
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
