package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"story-syndication/domain/apperror"
	"story-syndication/domain/model"
	"story-syndication/domain/repository"
	"story-syndication/infrastructure/logger"
	"story-syndication/infrastructure/token"
	"story-syndication/infrastructure/utils"

	log "github.com/sirupsen/logrus"
)

const (
	defaultRevokeReason    = "Revoked by owner"
	defaultRevokeAllReason = "All distributions revoked"
	topDomainsLimit        = 10
)

// EmbedTokens issues and verifies embed tokens.
type EmbedTokens interface {
	Issue(d *model.Distribution) (string, error)
	Parse(raw string) (*token.EmbedClaims, error)
}

// IDistributionUsecase is the only public mutation surface of the ledger.
type IDistributionUsecase interface {
	Register(ctx context.Context, storyID string, actor model.Actor, params model.RegisterParams) (*model.RegisteredDistribution, error)
	GetDistributionMap(ctx context.Context, storyID string, actor model.Actor, includeRevoked bool) (*model.DistributionMap, error)
	GetAnalytics(ctx context.Context, storyID string, actor model.Actor) (*model.DistributionAnalytics, error)
	Revoke(ctx context.Context, storyID, distributionID string, actor model.Actor, reason string) (*model.Distribution, error)
	RevokeAll(ctx context.Context, storyID string, actor model.Actor, reason string) (model.RevokeAllResult, error)
	ListDeliveries(ctx context.Context, storyID, distributionID string, actor model.Actor) ([]model.WebhookDelivery, error)
}

type distributionUsecase struct {
	ledger        repository.IDistribution
	stories       repository.IStory
	audit         repository.IAudit
	notifications INotificationUsecase
	tokens        EmbedTokens
	baseURL       string
	broadcast     func(d *model.Distribution, recipients ...string)
}

func NewDistributionUsecase(
	ledger repository.IDistribution,
	stories repository.IStory,
	audit repository.IAudit,
	notifications INotificationUsecase,
	tokens EmbedTokens,
	baseURL string,
	broadcast ...func(d *model.Distribution, recipients ...string),
) IDistributionUsecase {
	u := &distributionUsecase{
		ledger:        ledger,
		stories:       stories,
		audit:         audit,
		notifications: notifications,
		tokens:        tokens,
		baseURL:       baseURL,
		broadcast:     func(*model.Distribution, ...string) {},
	}
	// optional, pushes status changes to live dashboards
	if len(broadcast) > 0 && broadcast[0] != nil {
		u.broadcast = broadcast[0]
	}
	return u
}

func (u *distributionUsecase) Register(ctx context.Context, storyID string, actor model.Actor, params model.RegisterParams) (*model.RegisteredDistribution, error) {
	platform, err := model.ParsePlatform(params.Platform)
	if err != nil {
		return nil, apperror.NewInvalidInput(fmt.Sprintf("unsupported platform %q; supported: %s", params.Platform, supportedPlatforms()))
	}
	now := utils.GetCurrentTime()
	if params.ExpiresAt != nil && !params.ExpiresAt.After(now) {
		return nil, apperror.NewInvalidInput("expiresAt must be in the future")
	}
	for field, raw := range map[string]*string{"distributionUrl": params.DistributionURL, "webhookUrl": params.WebhookURL} {
		if raw != nil && *raw != "" && !isHTTPURL(*raw) {
			return nil, apperror.NewInvalidInput(field + " must be an absolute http(s) URL")
		}
	}

	story, err := u.ownedStory(ctx, storyID, actor)
	if err != nil {
		return nil, err
	}
	if reason := story.DistributionRestriction(); reason != "" {
		return nil, apperror.NewForbidden(reason)
	}

	d, err := u.ledger.Create(ctx, &model.NewDistribution{
		StoryID:         storyID,
		OwnerID:         actor.UserID,
		TenantID:        story.TenantID,
		Platform:        platform,
		PlatformPostID:  emptyToNil(params.PlatformPostID),
		DistributionURL: emptyToNil(params.DistributionURL),
		EmbedDomain:     normalizeDomain(params.EmbedDomain),
		WebhookURL:      emptyToNil(params.WebhookURL),
		WebhookSecret:   emptyToNil(params.WebhookSecret),
		Notes:           emptyToNil(params.Notes),
		ExpiresAt:       params.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedPlatform) {
			return nil, apperror.NewInvalidInput("unsupported platform")
		}
		return nil, apperror.NewInternal("failed to register distribution", err)
	}

	embedToken, err := u.tokens.Issue(d)
	if err != nil {
		return nil, apperror.NewInternal("failed to issue embed token", err)
	}
	out := &model.RegisteredDistribution{Distribution: d, EmbedToken: embedToken}
	if d.Platform == model.PlatformEmbed {
		out.EmbedCode = token.EmbedCode(u.baseURL, storyID, embedToken, utils.StringValue(d.EmbedDomain))
	}

	u.writeAudit(ctx, &model.AuditLog{
		DistributionID: &d.ID,
		StoryID:        storyID,
		TenantID:       d.TenantID,
		ActorID:        actor.UserID,
		Action:         model.AuditActionRegister,
		Detail:         string(d.Platform),
	})
	logger.GetLogger().WithFields(log.Fields{
		"distribution_id": d.ID,
		"story_id":        storyID,
		"platform":        d.Platform,
	}).Info("distribution registered")
	return out, nil
}

func (u *distributionUsecase) GetDistributionMap(ctx context.Context, storyID string, actor model.Actor, includeRevoked bool) (*model.DistributionMap, error) {
	if _, err := u.ownedStory(ctx, storyID, actor); err != nil {
		return nil, err
	}
	all, err := u.ledger.ListByStory(ctx, storyID, true)
	if err != nil {
		return nil, apperror.NewInternal("failed to list distributions", err)
	}

	now := utils.GetCurrentTime()
	out := &model.DistributionMap{
		StoryID:       storyID,
		ByPlatform:    make(map[model.Platform]model.PlatformStats),
		Distributions: make([]*model.Distribution, 0, len(all)),
	}
	for _, d := range all {
		status := d.EffectiveStatus(now)
		out.Summary.Total++
		out.Summary.TotalViews += d.ViewCount
		out.Summary.TotalClicks += d.ClickCount
		stats := out.ByPlatform[d.Platform]
		stats.Count++
		stats.Views += d.ViewCount
		switch status {
		case model.StatusActive:
			out.Summary.Active++
			stats.Active++
		case model.StatusRevoked:
			out.Summary.Revoked++
		case model.StatusExpired:
			out.Summary.Expired++
		}
		out.ByPlatform[d.Platform] = stats
		if includeRevoked || status == model.StatusActive {
			out.Distributions = append(out.Distributions, d.WithEffectiveStatus(now))
		}
	}
	return out, nil
}

func (u *distributionUsecase) GetAnalytics(ctx context.Context, storyID string, actor model.Actor) (*model.DistributionAnalytics, error) {
	if _, err := u.ownedStory(ctx, storyID, actor); err != nil {
		return nil, err
	}
	all, err := u.ledger.ListByStory(ctx, storyID, true)
	if err != nil {
		return nil, apperror.NewInternal("failed to list distributions", err)
	}
	out := &model.DistributionAnalytics{
		StoryID:         storyID,
		ViewsByPlatform: make(map[model.Platform]int64),
		TopDomains:      make([]model.DomainViews, 0),
	}
	byDomain := make(map[string]int64)
	for _, d := range all {
		out.TotalViews += d.ViewCount
		out.TotalClicks += d.ClickCount
		out.ViewsByPlatform[d.Platform] += d.ViewCount
		if d.EmbedDomain != nil && *d.EmbedDomain != "" {
			byDomain[*d.EmbedDomain] += d.ViewCount
		}
	}
	for domain, views := range byDomain {
		out.TopDomains = append(out.TopDomains, model.DomainViews{Domain: domain, Views: views})
	}
	sort.Slice(out.TopDomains, func(i, j int) bool {
		if out.TopDomains[i].Views != out.TopDomains[j].Views {
			return out.TopDomains[i].Views > out.TopDomains[j].Views
		}
		return out.TopDomains[i].Domain < out.TopDomains[j].Domain
	})
	if len(out.TopDomains) > topDomainsLimit {
		out.TopDomains = out.TopDomains[:topDomainsLimit]
	}
	return out, nil
}

func (u *distributionUsecase) Revoke(ctx context.Context, storyID, distributionID string, actor model.Actor, reason string) (*model.Distribution, error) {
	d, err := u.ledger.Get(ctx, distributionID)
	if err != nil {
		if errors.Is(err, model.ErrDistributionNotFound) {
			return nil, apperror.NewNotFound("distribution not found")
		}
		return nil, apperror.NewInternal("failed to load distribution", err)
	}
	if storyID != "" && d.StoryID != storyID {
		return nil, apperror.NewNotFound("distribution not found")
	}
	story, err := u.ownedStory(ctx, d.StoryID, actor)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRevokeReason
	}
	updated, changed, err := u.ledger.TransitionToRevoked(ctx, d.ID, actor.UserID, reason)
	if err != nil {
		if errors.Is(err, model.ErrDistributionNotFound) {
			return nil, apperror.NewNotFound("distribution not found")
		}
		return nil, apperror.NewInternal("failed to revoke distribution", err)
	}
	if changed {
		u.afterRevoke(ctx, story, updated, actor, model.AuditActionRevoke)
	}
	return updated.WithEffectiveStatus(utils.GetCurrentTime()), nil
}

func (u *distributionUsecase) RevokeAll(ctx context.Context, storyID string, actor model.Actor, reason string) (model.RevokeAllResult, error) {
	var res model.RevokeAllResult
	story, err := u.ownedStory(ctx, storyID, actor)
	if err != nil {
		return res, err
	}
	active, err := u.ledger.ListByStory(ctx, storyID, false)
	if err != nil {
		return res, apperror.NewInternal("failed to list distributions", err)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRevokeAllReason
	}
	lg := logger.GetLogger().WithField("story_id", storyID)
	// A failed row must not stop the rest of the batch.
	for _, d := range active {
		updated, changed, err := u.ledger.TransitionToRevoked(ctx, d.ID, actor.UserID, reason)
		if err != nil {
			lg.WithFields(log.Fields{"distribution_id": d.ID, "error": err}).Error("bulk revocation failed for distribution")
			res.Failed = append(res.Failed, d.ID)
			continue
		}
		if !changed {
			continue
		}
		res.Revoked++
		u.afterRevoke(ctx, story, updated, actor, "")
	}

	u.writeAudit(ctx, &model.AuditLog{
		StoryID:  storyID,
		TenantID: story.TenantID,
		ActorID:  actor.UserID,
		Action:   model.AuditActionRevokeAll,
		Detail:   fmt.Sprintf("revoked=%d failed=%d reason=%s", res.Revoked, len(res.Failed), reason),
	})
	lg.WithFields(log.Fields{"revoked": res.Revoked, "failed": len(res.Failed)}).Info("bulk revocation finished")
	return res, nil
}

func (u *distributionUsecase) ListDeliveries(ctx context.Context, storyID, distributionID string, actor model.Actor) ([]model.WebhookDelivery, error) {
	if _, err := u.ownedStory(ctx, storyID, actor); err != nil {
		return nil, err
	}
	d, err := u.ledger.Get(ctx, distributionID)
	if err != nil {
		if errors.Is(err, model.ErrDistributionNotFound) {
			return nil, apperror.NewNotFound("distribution not found")
		}
		return nil, apperror.NewInternal("failed to load distribution", err)
	}
	if d.StoryID != storyID {
		return nil, apperror.NewNotFound("distribution not found")
	}
	deliveries, err := u.audit.ListDeliveries(ctx, distributionID)
	if err != nil {
		return nil, apperror.NewInternal("failed to list webhook deliveries", err)
	}
	return deliveries, nil
}

// afterRevoke runs only for the call that won the transition, so a repeated
// revoke never fires a second notice.
func (u *distributionUsecase) afterRevoke(ctx context.Context, story *model.Story, d *model.Distribution, actor model.Actor, action string) {
	if action != "" {
		u.writeAudit(ctx, &model.AuditLog{
			DistributionID: &d.ID,
			StoryID:        d.StoryID,
			TenantID:       d.TenantID,
			ActorID:        actor.UserID,
			Action:         action,
			Detail:         utils.StringValue(d.RevocationReason),
		})
	}
	u.broadcast(d, story.OwnerIDs()...)
	u.notifications.Dispatch(ctx, model.NewRevocationEvent(d, model.NoticeRevoked, actor.UserID))
	logger.GetLogger().WithFields(log.Fields{
		"distribution_id": d.ID,
		"story_id":        d.StoryID,
		"platform":        d.Platform,
	}).Info("distribution revoked")
}

// ownedStory loads the story fresh and enforces tenant scope and ownership.
func (u *distributionUsecase) ownedStory(ctx context.Context, storyID string, actor model.Actor) (*model.Story, error) {
	if actor.UserID == "" {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if strings.TrimSpace(storyID) == "" {
		return nil, apperror.NewInvalidInput("story id is required")
	}
	story, err := u.stories.GetStory(ctx, storyID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			return nil, apperror.NewNotFound("story not found")
		}
		return nil, apperror.NewInternal("failed to load story", err)
	}
	if actor.TenantID != "" && story.TenantID != "" && actor.TenantID != story.TenantID {
		return nil, apperror.NewNotFound("story not found")
	}
	if !story.IsOwnedBy(actor.UserID) {
		return nil, apperror.NewForbidden("only the story owner can manage its distributions")
	}
	return story, nil
}

func (u *distributionUsecase) writeAudit(ctx context.Context, entry *model.AuditLog) {
	if u.audit == nil {
		return
	}
	if err := u.audit.CreateAudit(context.WithoutCancel(ctx), entry); err != nil {
		logger.GetLogger().WithFields(log.Fields{"story_id": entry.StoryID, "action": entry.Action, "error": err}).
			Warn("failed to write distribution audit log")
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// normalizeDomain accepts either a bare host or a URL.
func normalizeDomain(s *string) *string {
	v := emptyToNil(s)
	if v == nil {
		return nil
	}
	host := strings.ToLower(*v)
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimPrefix(host, "www.")
	return &host
}

func supportedPlatforms() string {
	names := make([]string, 0, len(model.Platforms()))
	for _, p := range model.Platforms() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
