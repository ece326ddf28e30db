package usecase

import (
	"context"
	"errors"
	"strings"

	"story-syndication/domain/apperror"
	"story-syndication/domain/dto"
	"story-syndication/domain/model"
	"story-syndication/domain/repository"
	"story-syndication/infrastructure/logger"
	"story-syndication/infrastructure/token"
	"story-syndication/infrastructure/utils"

	log "github.com/sirupsen/logrus"
)

// AccessRequest is an unauthenticated external read. The embed token is the
// only credential.
type AccessRequest struct {
	StoryID string
	Token   string
	SiteID  string
}

// IAccessUsecase is the public content boundary. Every call re-checks the
// ledger and the story, so a revocation takes effect on the next request.
type IAccessUsecase interface {
	GetContent(ctx context.Context, req AccessRequest) (*dto.SyndicatedContent, error)
	RecordEngagement(ctx context.Context, req AccessRequest, eventType string) error
}

type accessUsecase struct {
	ledger             repository.IDistribution
	stories            repository.IStory
	tokens             EmbedTokens
	engagement         IEngagementRecorder
	baseURL            string
	attributionMessage string
}

func NewAccessUsecase(
	ledger repository.IDistribution,
	stories repository.IStory,
	tokens EmbedTokens,
	engagement IEngagementRecorder,
	baseURL, attributionMessage string,
) IAccessUsecase {
	return &accessUsecase{
		ledger:             ledger,
		stories:            stories,
		tokens:             tokens,
		engagement:         engagement,
		baseURL:            strings.TrimRight(baseURL, "/"),
		attributionMessage: attributionMessage,
	}
}

func (u *accessUsecase) GetContent(ctx context.Context, req AccessRequest) (*dto.SyndicatedContent, error) {
	d, err := u.authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	story, err := u.stories.GetStory(ctx, d.StoryID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			return nil, apperror.NewNotFound("story not found")
		}
		return nil, apperror.NewInternal("failed to load story", err)
	}
	if reason := story.AccessRestriction(); reason != "" {
		return nil, apperror.NewForbidden(reason)
	}

	u.engagement.Record(d.ID, model.EngagementView)

	name := story.DisplayName()
	message := "Story by " + name
	if u.attributionMessage != "" {
		message += " | " + u.attributionMessage
	}
	return &dto.SyndicatedContent{
		Story: dto.SyndicatedStory{
			ID:          story.ID,
			Title:       story.Title,
			Content:     story.Content,
			Excerpt:     story.Excerpt,
			Storyteller: name,
			CreatedAt:   story.CreatedAt,
		},
		DistributionID: d.ID,
		Attribution: dto.Attribution{
			Platform: string(d.Platform),
			URL:      u.baseURL + "/stories/" + story.ID,
			Message:  message,
		},
	}, nil
}

func (u *accessUsecase) RecordEngagement(ctx context.Context, req AccessRequest, eventType string) error {
	t, err := model.ParseEngagementType(eventType)
	if err != nil {
		return apperror.NewInvalidInput("unsupported engagement type")
	}
	d, err := u.authorize(ctx, req)
	if err != nil {
		return err
	}
	u.engagement.Record(d.ID, t)
	return nil
}

// authorize verifies the token and resolves the distribution it names. A
// revoked row reads as not found so a revoked embed learns nothing more.
func (u *accessUsecase) authorize(ctx context.Context, req AccessRequest) (*model.Distribution, error) {
	claims, err := u.tokens.Parse(req.Token)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, apperror.NewUnauthorized("embed token has expired")
		}
		return nil, apperror.NewUnauthorized("invalid embed token")
	}
	if req.StoryID != "" && claims.StoryID != req.StoryID {
		return nil, apperror.NewNotFound("story not found")
	}
	if claims.Site != "" && !siteAllowed(claims.Site, req.SiteID) {
		return nil, apperror.NewUnauthorized("embed token is not valid for this site")
	}

	d, err := u.ledger.Get(ctx, claims.DistributionID)
	if err != nil {
		if errors.Is(err, model.ErrDistributionNotFound) {
			return nil, apperror.NewNotFound("distribution not found")
		}
		return nil, apperror.NewInternal("failed to load distribution", err)
	}
	if d.StoryID != claims.StoryID {
		return nil, apperror.NewNotFound("distribution not found")
	}

	switch d.EffectiveStatus(utils.GetCurrentTime()) {
	case model.StatusRevoked:
		logger.GetLogger().WithFields(log.Fields{"distribution_id": d.ID, "story_id": d.StoryID}).
			Info("access denied for revoked distribution")
		return nil, apperror.NewNotFound("distribution has been revoked")
	case model.StatusExpired:
		return nil, apperror.NewUnauthorized("distribution has expired")
	}
	return d, nil
}

// siteAllowed accepts the token's domain and any subdomain of it. A missing
// site never matches.
func siteAllowed(claim, site string) bool {
	c, s := normalizeDomain(&claim), normalizeDomain(&site)
	if c == nil || s == nil {
		return false
	}
	return *s == *c || strings.HasSuffix(*s, "."+*c)
}
