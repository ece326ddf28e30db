package usecase

import (
	"context"
	"time"

	"story-syndication/domain/model"
	"story-syndication/domain/repository"
	"story-syndication/infrastructure/logger"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type EngagementEvent struct {
	DistributionID string
	Type           model.EngagementType
}

// IEngagementRecorder is the only writer of view and click counters.
type IEngagementRecorder interface {
	// Record never blocks. It reports false when the event was dropped.
	Record(distributionID string, eventType model.EngagementType) bool
	Run(ctx context.Context) error
}

type engagementRecorder struct {
	ledger  repository.IDistribution
	events  chan EngagementEvent
	workers int
}

func NewEngagementRecorder(ledger repository.IDistribution, workers, buffer int) IEngagementRecorder {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 1024
	}
	return &engagementRecorder{ledger: ledger, events: make(chan EngagementEvent, buffer), workers: workers}
}

func (r *engagementRecorder) Record(distributionID string, eventType model.EngagementType) bool {
	select {
	case r.events <- EngagementEvent{DistributionID: distributionID, Type: eventType}:
		return true
	default:
		logger.GetLogger().WithFields(log.Fields{"distribution_id": distributionID, "type": eventType}).
			Warn("engagement buffer full; event dropped")
		return false
	}
}

func (r *engagementRecorder) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case evt := <-r.events:
					r.apply(ctx, evt)
				}
			}
		})
	}
	return g.Wait()
}

func (r *engagementRecorder) apply(ctx context.Context, evt EngagementEvent) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lg := logger.GetLogger().WithFields(log.Fields{"distribution_id": evt.DistributionID, "type": evt.Type})
	var err error
	switch evt.Type {
	case model.EngagementView:
		err = r.ledger.IncrementView(ctx, evt.DistributionID)
	case model.EngagementClick:
		err = r.ledger.IncrementClick(ctx, evt.DistributionID)
	case model.EngagementShare:
		lg.Info("share engagement recorded")
		return
	}
	if err != nil {
		lg.WithField("error", err).Warn("failed to record engagement")
	}
}
