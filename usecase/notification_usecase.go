package usecase

import (
	"context"
	"errors"
	"time"

	"story-syndication/domain/model"
	"story-syndication/domain/repository"
	"story-syndication/infrastructure/logger"
	"story-syndication/infrastructure/webhook"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WebhookNotifier delivers one notice with its own retry policy.
type WebhookNotifier interface {
	Notify(ctx context.Context, d *model.Distribution, evt *model.RevocationEvent) webhook.Result
}

// INotificationUsecase decouples revocation from external notification.
// Dispatch never fails the caller; Run drains the queue until ctx is done.
type INotificationUsecase interface {
	Dispatch(ctx context.Context, evt *model.RevocationEvent)
	Run(ctx context.Context, workers int) error
}

type notificationUsecase struct {
	queue      repository.IRevocationQueue
	ledger     repository.IDistribution
	notifier   WebhookNotifier
	publishers []repository.IEventPublisher
	retryDelay time.Duration
}

func NewNotificationUsecase(queue repository.IRevocationQueue, ledger repository.IDistribution, notifier WebhookNotifier, publishers ...repository.IEventPublisher) INotificationUsecase {
	return &notificationUsecase{
		queue:      queue,
		ledger:     ledger,
		notifier:   notifier,
		publishers: publishers,
		retryDelay: time.Second,
	}
}

func (u *notificationUsecase) Dispatch(ctx context.Context, evt *model.RevocationEvent) {
	lg := logger.GetLogger().WithFields(log.Fields{"distribution_id": evt.DistributionID, "event": evt.Type})
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := u.queue.Enqueue(enqueueCtx, evt); err != nil {
		// The ledger already holds the terminal state; deliver inline rather than lose the notice.
		lg.WithField("error", err).Warn("revocation queue unavailable; delivering notice inline")
		go u.handle(context.Background(), evt)
		return
	}
	lg.Debug("revocation notice queued")
}

func (u *notificationUsecase) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return u.work(ctx, i)
		})
	}
	return g.Wait()
}

func (u *notificationUsecase) work(ctx context.Context, worker int) error {
	lg := logger.GetLogger().WithField("worker", worker)
	for {
		evt, err := u.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			lg.WithField("error", err).Warn("revocation queue read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(u.retryDelay):
			}
			continue
		}
		u.handle(ctx, evt)
	}
}

// handle reloads the row so the notice uses the stored webhook settings.
func (u *notificationUsecase) handle(ctx context.Context, evt *model.RevocationEvent) {
	lg := logger.GetLogger().WithFields(log.Fields{"distribution_id": evt.DistributionID, "event": evt.Type})

	for _, p := range u.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			lg.WithField("error", err).Warn("failed to publish revocation event")
		}
	}

	d, err := u.ledger.Get(ctx, evt.DistributionID)
	if err != nil {
		lg.WithField("error", err).Error("cannot load distribution for revocation notice")
		return
	}
	res := u.notifier.Notify(ctx, d, evt)
	lg.WithFields(log.Fields{
		"delivered": res.Delivered,
		"skipped":   res.Skipped,
		"attempts":  res.Attempts,
	}).Info("revocation notice processed")
}
