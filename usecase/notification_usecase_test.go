package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/cache"
	"story-syndication/infrastructure/webhook"
	"story-syndication/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotificationUsecase_WorkersDeliverQueuedNotices(t *testing.T) {
	queue := cache.NewMemoryRevocationQueue(8)
	ledger := new(MockLedger)
	notifier := new(MockNotifier)
	publisher := new(MockPublisher)

	d := revokedCopy(activeDistribution("dist-1", "story-1"), "Revoked by owner")
	d.WebhookURL = strPtr("https://partner.org/hooks")
	evt := model.NewRevocationEvent(d, model.NoticeRevoked, "user-1")

	done := make(chan struct{})
	ledger.On("Get", mock.Anything, "dist-1").Return(d, nil)
	publisher.On("Publish", mock.Anything, evt).Return(errors.New("broker down"))
	notifier.On("Notify", mock.Anything, d, evt).
		Return(webhook.Result{Delivered: true, Attempts: 1, StatusCode: 200}).
		Run(func(mock.Arguments) { close(done) })

	uc := usecase.NewNotificationUsecase(queue, ledger, notifier, publisher)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- uc.Run(ctx, 2) }()

	uc.Dispatch(context.Background(), evt)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notice was not delivered")
	}
	cancel()
	require.NoError(t, <-errCh)
	publisher.AssertCalled(t, "Publish", mock.Anything, evt)
}

func TestNotificationUsecase_DispatchFallsBackInline(t *testing.T) {
	queue := new(MockQueue)
	ledger := new(MockLedger)
	notifier := new(MockNotifier)

	d := revokedCopy(activeDistribution("dist-1", "story-1"), "gone")
	evt := model.NewRevocationEvent(d, model.NoticeRevoked, "user-1")
	done := make(chan struct{})
	queue.On("Enqueue", mock.Anything, evt).Return(errors.New("redis unavailable"))
	ledger.On("Get", mock.Anything, "dist-1").Return(d, nil)
	notifier.On("Notify", mock.Anything, d, evt).
		Return(webhook.Result{Skipped: true}).
		Run(func(mock.Arguments) { close(done) })

	usecase.NewNotificationUsecase(queue, ledger, notifier).Dispatch(context.Background(), evt)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("inline delivery did not run")
	}
	queue.AssertExpectations(t)
}

func TestNotificationUsecase_MissingRowIsDropped(t *testing.T) {
	queue := cache.NewMemoryRevocationQueue(1)
	ledger := new(MockLedger)
	notifier := new(MockNotifier)

	evt := &model.RevocationEvent{Type: model.NoticeExpired, DistributionID: "gone"}
	fetched := make(chan struct{})
	ledger.On("Get", mock.Anything, "gone").Return(nil, model.ErrDistributionNotFound).
		Run(func(mock.Arguments) { close(fetched) })

	uc := usecase.NewNotificationUsecase(queue, ledger, notifier)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = uc.Run(ctx, 1) }()
	uc.Dispatch(ctx, evt)

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not consumed")
	}
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngagementRecorder_AppliesCounters(t *testing.T) {
	ledger := new(MockLedger)
	viewed := make(chan struct{})
	clicked := make(chan struct{})
	ledger.On("IncrementView", mock.Anything, "dist-1").Return(nil).Run(func(mock.Arguments) { close(viewed) })
	ledger.On("IncrementClick", mock.Anything, "dist-1").Return(nil).Run(func(mock.Arguments) { close(clicked) })

	rec := usecase.NewEngagementRecorder(ledger, 1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rec.Run(ctx) }()

	assert.True(t, rec.Record("dist-1", model.EngagementView))
	assert.True(t, rec.Record("dist-1", model.EngagementShare))
	assert.True(t, rec.Record("dist-1", model.EngagementClick))

	for _, ch := range []chan struct{}{viewed, clicked} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("engagement was not applied")
		}
	}
}

func TestEngagementRecorder_DropsWhenFull(t *testing.T) {
	rec := usecase.NewEngagementRecorder(new(MockLedger), 1, 1)

	assert.True(t, rec.Record("dist-1", model.EngagementView))
	assert.False(t, rec.Record("dist-1", model.EngagementView))
}
