package usecase

import (
	"context"
	"time"

	"story-syndication/domain/model"
	"story-syndication/domain/repository"
	"story-syndication/infrastructure/logger"
	"story-syndication/infrastructure/utils"

	log "github.com/sirupsen/logrus"
)

// IExpiryUsecase moves active rows past expires_at into the expired state and
// emits one notice per row it transitioned.
type IExpiryUsecase interface {
	Sweep(ctx context.Context) (int, error)
	Run(ctx context.Context, interval time.Duration) error
}

type expiryUsecase struct {
	ledger        repository.IDistribution
	stories       repository.IStory
	audit         repository.IAudit
	notifications INotificationUsecase
	batchSize     int
	broadcast     func(d *model.Distribution, recipients ...string)
	now           func() time.Time
}

func NewExpiryUsecase(ledger repository.IDistribution, stories repository.IStory, audit repository.IAudit, notifications INotificationUsecase, batchSize int, broadcast ...func(d *model.Distribution, recipients ...string)) IExpiryUsecase {
	if batchSize <= 0 {
		batchSize = 100
	}
	u := &expiryUsecase{
		ledger:        ledger,
		stories:       stories,
		audit:         audit,
		notifications: notifications,
		batchSize:     batchSize,
		broadcast:     func(*model.Distribution, ...string) {},
		now:           utils.GetCurrentTime,
	}
	if len(broadcast) > 0 && broadcast[0] != nil {
		u.broadcast = broadcast[0]
	}
	return u
}

func (u *expiryUsecase) Sweep(ctx context.Context) (int, error) {
	total := 0
	owners := make(map[string][]string)
	for {
		expired, err := u.ledger.ExpireDue(ctx, u.now(), u.batchSize)
		if err != nil {
			return total, err
		}
		for _, d := range expired {
			if _, ok := owners[d.StoryID]; !ok {
				owners[d.StoryID] = u.storyOwners(ctx, d.StoryID)
			}
			u.afterExpire(ctx, d, owners[d.StoryID])
		}
		total += len(expired)
		if len(expired) < u.batchSize {
			break
		}
	}
	if total > 0 {
		logger.GetLogger().WithField("expired", total).Info("expiry sweep finished")
	}
	return total, nil
}

func (u *expiryUsecase) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := u.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.GetLogger().WithField("error", err).Error("expiry sweep failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (u *expiryUsecase) afterExpire(ctx context.Context, d *model.Distribution, owners []string) {
	if u.audit != nil {
		id := d.ID
		entry := &model.AuditLog{
			DistributionID: &id,
			StoryID:        d.StoryID,
			TenantID:       d.TenantID,
			ActorID:        "system",
			Action:         model.AuditActionExpire,
		}
		if err := u.audit.CreateAudit(context.WithoutCancel(ctx), entry); err != nil {
			logger.GetLogger().WithFields(log.Fields{"distribution_id": d.ID, "error": err}).
				Warn("failed to write distribution audit log")
		}
	}
	u.broadcast(d, owners...)
	u.notifications.Dispatch(ctx, model.NewRevocationEvent(d, model.NoticeExpired, ""))
}

// storyOwners returns nil when the story cannot be read; the broadcast then
// reaches the registering owner only.
func (u *expiryUsecase) storyOwners(ctx context.Context, storyID string) []string {
	if u.stories == nil {
		return nil
	}
	story, err := u.stories.GetStory(ctx, storyID)
	if err != nil {
		logger.GetLogger().WithFields(log.Fields{"story_id": storyID, "error": err}).
			Warn("failed to load story owners for expiry broadcast")
		return nil
	}
	return story.OwnerIDs()
}
