package usecase_test

import (
	"context"
	"time"

	"story-syndication/domain/model"
	"story-syndication/infrastructure/token"
	"story-syndication/infrastructure/webhook"

	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Create(ctx context.Context, in *model.NewDistribution) (*model.Distribution, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Distribution), args.Error(1)
}

func (m *MockLedger) Get(ctx context.Context, id string) (*model.Distribution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Distribution), args.Error(1)
}

func (m *MockLedger) ListByStory(ctx context.Context, storyID string, includeRevoked bool) ([]*model.Distribution, error) {
	args := m.Called(ctx, storyID, includeRevoked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Distribution), args.Error(1)
}

func (m *MockLedger) TransitionToRevoked(ctx context.Context, id, actorID, reason string) (*model.Distribution, bool, error) {
	args := m.Called(ctx, id, actorID, reason)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Distribution), args.Bool(1), args.Error(2)
}

func (m *MockLedger) ExpireDue(ctx context.Context, now time.Time, limit int) ([]*model.Distribution, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Distribution), args.Error(1)
}

func (m *MockLedger) IncrementView(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLedger) IncrementClick(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockStories struct {
	mock.Mock
}

func (m *MockStories) GetStory(ctx context.Context, storyID string) (*model.Story, error) {
	args := m.Called(ctx, storyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Story), args.Error(1)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) CreateAudit(ctx context.Context, entry *model.AuditLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAudit) RecordDelivery(ctx context.Context, delivery *model.WebhookDelivery) error {
	return m.Called(ctx, delivery).Error(0)
}

func (m *MockAudit) ListDeliveries(ctx context.Context, distributionID string) ([]model.WebhookDelivery, error) {
	args := m.Called(ctx, distributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WebhookDelivery), args.Error(1)
}

type MockNotifications struct {
	mock.Mock
}

func (m *MockNotifications) Dispatch(ctx context.Context, evt *model.RevocationEvent) {
	m.Called(ctx, evt)
}

func (m *MockNotifications) Run(ctx context.Context, workers int) error {
	return m.Called(ctx, workers).Error(0)
}

type MockEngagement struct {
	mock.Mock
}

func (m *MockEngagement) Record(distributionID string, eventType model.EngagementType) bool {
	return m.Called(distributionID, eventType).Bool(0)
}

func (m *MockEngagement) Run(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, d *model.Distribution, evt *model.RevocationEvent) webhook.Result {
	return m.Called(ctx, d, evt).Get(0).(webhook.Result)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt *model.RevocationEvent) error {
	return m.Called(ctx, evt).Error(0)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, evt *model.RevocationEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockQueue) Dequeue(ctx context.Context) (*model.RevocationEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RevocationEvent), args.Error(1)
}

const (
	testSecret  = "embed-secret"
	testBaseURL = "https://stories.example.org"
)

var testTokens = token.NewEmbedTokenIssuer(testSecret)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func ownedStory(id string) *model.Story {
	return &model.Story{
		ID:              id,
		AuthorID:        "user-1",
		TenantID:        "tenant-1",
		Title:           "River Crossing",
		Content:         "The river was high that spring.",
		AuthorName:      strPtr("Mary"),
		HasConsent:      true,
		ConsentVerified: true,
		EmbedsEnabled:   true,
		CreatedAt:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func activeDistribution(id, storyID string) *model.Distribution {
	now := time.Now().UTC()
	return &model.Distribution{
		ID:        id,
		StoryID:   storyID,
		OwnerID:   "user-1",
		TenantID:  "tenant-1",
		Platform:  model.PlatformEmbed,
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func revokedCopy(d *model.Distribution, reason string) *model.Distribution {
	out := *d
	now := time.Now().UTC()
	out.Status = model.StatusRevoked
	out.RevokedAt = &now
	out.RevokedBy = strPtr("user-1")
	out.RevocationReason = strPtr(reason)
	out.UpdatedAt = now
	return &out
}

var owner = model.Actor{UserID: "user-1", TenantID: "tenant-1"}
