package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"story-syndication/domain/apperror"
	"story-syndication/domain/dto"
	"story-syndication/domain/model"
	httpHandler "story-syndication/interfaces/http"
	"story-syndication/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDistributionUsecase struct {
	mock.Mock
}

func (m *MockDistributionUsecase) Register(ctx context.Context, storyID string, actor model.Actor, params model.RegisterParams) (*model.RegisteredDistribution, error) {
	args := m.Called(ctx, storyID, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RegisteredDistribution), args.Error(1)
}

func (m *MockDistributionUsecase) GetDistributionMap(ctx context.Context, storyID string, actor model.Actor, includeRevoked bool) (*model.DistributionMap, error) {
	args := m.Called(ctx, storyID, actor, includeRevoked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DistributionMap), args.Error(1)
}

func (m *MockDistributionUsecase) GetAnalytics(ctx context.Context, storyID string, actor model.Actor) (*model.DistributionAnalytics, error) {
	args := m.Called(ctx, storyID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DistributionAnalytics), args.Error(1)
}

func (m *MockDistributionUsecase) Revoke(ctx context.Context, storyID, distributionID string, actor model.Actor, reason string) (*model.Distribution, error) {
	args := m.Called(ctx, storyID, distributionID, actor, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Distribution), args.Error(1)
}

func (m *MockDistributionUsecase) RevokeAll(ctx context.Context, storyID string, actor model.Actor, reason string) (model.RevokeAllResult, error) {
	args := m.Called(ctx, storyID, actor, reason)
	return args.Get(0).(model.RevokeAllResult), args.Error(1)
}

func (m *MockDistributionUsecase) ListDeliveries(ctx context.Context, storyID, distributionID string, actor model.Actor) ([]model.WebhookDelivery, error) {
	args := m.Called(ctx, storyID, distributionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WebhookDelivery), args.Error(1)
}

type MockAccessUsecase struct {
	mock.Mock
}

func (m *MockAccessUsecase) GetContent(ctx context.Context, req usecase.AccessRequest) (*dto.SyndicatedContent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SyndicatedContent), args.Error(1)
}

func (m *MockAccessUsecase) RecordEngagement(ctx context.Context, req usecase.AccessRequest, eventType string) error {
	return m.Called(ctx, req, eventType).Error(0)
}

var owner = model.Actor{UserID: "user-1", TenantID: "tenant-1"}

// ownerRouter stands in for the auth middleware.
func ownerRouter(uc usecase.IDistributionUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := httpHandler.NewDistributionHandler(uc)
	r := gin.New()
	g := r.Group("/api/stories/:storyId/distributions", func(c *gin.Context) {
		c.Set("user_id", owner.UserID)
		c.Set("tenant_id", owner.TenantID)
	})
	g.POST("", h.Register)
	g.GET("", h.List)
	g.DELETE("", h.Revoke)
	g.GET("/analytics", h.Analytics)
	g.GET("/:distributionId/deliveries", h.Deliveries)
	return r
}

func serve(r *gin.Engine, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHandler_Created(t *testing.T) {
	uc := new(MockDistributionUsecase)
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	uc.On("Register", mock.Anything, "story-1", owner, mock.MatchedBy(func(p model.RegisterParams) bool {
		return p.Platform == "embed" && p.ExpiresAt != nil && p.ExpiresAt.Equal(expires) && *p.WebhookSecret == "s3cret"
	})).Return(&model.RegisteredDistribution{
		Distribution: &model.Distribution{ID: "dist-1", StoryID: "story-1", Platform: model.PlatformEmbed, Status: model.StatusActive, WebhookSecret: strPtr("s3cret")},
		EmbedToken:   "tok",
	}, nil)

	w := serve(ownerRouter(uc), http.MethodPost, "/api/stories/story-1/distributions",
		`{"platform":"embed","webhookSecret":"s3cret","expiresAt":"2030-01-02T03:04:05Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"embedToken":"tok"`)
	assert.NotContains(t, w.Body.String(), "s3cret")
}

func TestRegisterHandler_BadRequests(t *testing.T) {
	uc := new(MockDistributionUsecase)
	uc.On("Register", mock.Anything, "story-1", owner, mock.Anything).
		Return(nil, apperror.NewInvalidInput(`unsupported platform "tiktok"`))
	r := ownerRouter(uc)

	w := serve(r, http.MethodPost, "/api/stories/story-1/distributions", `{"platform":"embed","expiresAt":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "RFC3339")

	w = serve(r, http.MethodPost, "/api/stories/story-1/distributions", `{"notes":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/api/stories/story-1/distributions", `{"platform":"tiktok"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tiktok")
}

func TestListHandler_MapsErrors(t *testing.T) {
	uc := new(MockDistributionUsecase)
	uc.On("GetDistributionMap", mock.Anything, "story-1", owner, true).Return(&model.DistributionMap{StoryID: "story-1"}, nil)
	uc.On("GetDistributionMap", mock.Anything, "story-2", owner, false).Return(nil, apperror.NewForbidden("only the story owner can manage its distributions"))
	uc.On("GetDistributionMap", mock.Anything, "story-3", owner, false).Return(nil, apperror.NewInternal("failed to list distributions", assert.AnError))
	r := ownerRouter(uc)

	w := serve(r, http.MethodGet, "/api/stories/story-1/distributions?includeRevoked=true", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/stories/story-2/distributions", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/api/stories/story-3/distributions", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestRevokeHandler(t *testing.T) {
	uc := new(MockDistributionUsecase)
	now := time.Now().UTC()
	uc.On("Revoke", mock.Anything, "story-1", "dist-1", owner, "spam").
		Return(&model.Distribution{ID: "dist-1", Status: model.StatusRevoked, RevokedAt: &now}, nil)
	uc.On("RevokeAll", mock.Anything, "story-1", owner, "").
		Return(model.RevokeAllResult{Revoked: 4, Failed: []string{"dist-3"}}, nil)
	r := ownerRouter(uc)

	w := serve(r, http.MethodDelete, "/api/stories/story-1/distributions?distributionId=dist-1&reason=spam", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"revoked"`)

	w = serve(r, http.MethodDelete, "/api/stories/story-1/distributions?all=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revoked":4,"partial":true,"failed":["dist-3"]}`, w.Body.String())

	w = serve(r, http.MethodDelete, "/api/stories/story-1/distributions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsAndDeliveries(t *testing.T) {
	uc := new(MockDistributionUsecase)
	uc.On("GetAnalytics", mock.Anything, "story-1", owner).Return(&model.DistributionAnalytics{StoryID: "story-1", TotalViews: 9}, nil)
	uc.On("ListDeliveries", mock.Anything, "story-1", "dist-1", owner).Return(nil, nil)
	r := ownerRouter(uc)

	w := serve(r, http.MethodGet, "/api/stories/story-1/distributions/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalViews":9`)

	w = serve(r, http.MethodGet, "/api/stories/story-1/distributions/dist-1/deliveries", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deliveries":[]`)
}

func syndicationRouter(uc usecase.IAccessUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := httpHandler.NewSyndicationHandler(uc, "https://stories.example.org/")
	r := gin.New()
	r.GET("/syndication/embed.js", h.EmbedScript)
	r.GET("/syndication/content/:storyId", h.GetContent)
	r.POST("/syndication/content/:storyId/engagement", h.RecordEngagement)
	return r
}

func TestSyndicationHandler_GetContent(t *testing.T) {
	uc := new(MockAccessUsecase)
	uc.On("GetContent", mock.Anything, usecase.AccessRequest{StoryID: "story-1", Token: "tok", SiteID: "partner.org"}).
		Return(&dto.SyndicatedContent{
			Story:          dto.SyndicatedStory{ID: "story-1", Title: "River Crossing"},
			DistributionID: "dist-1",
			Attribution:    dto.Attribution{Platform: "embed", URL: "https://stories.example.org/stories/story-1", Message: "Story by Mary"},
		}, nil)
	uc.On("GetContent", mock.Anything, usecase.AccessRequest{StoryID: "story-1", Token: "revoked"}).
		Return(nil, apperror.NewNotFound("distribution has been revoked"))
	uc.On("GetContent", mock.Anything, usecase.AccessRequest{StoryID: "story-1"}).
		Return(nil, apperror.NewUnauthorized("invalid embed token"))
	r := syndicationRouter(uc)

	w := serve(r, http.MethodGet, "/syndication/content/story-1", "", "Authorization", "Bearer tok", "X-Site-ID", "partner.org")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"attribution":{"platform":"embed"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = serve(r, http.MethodGet, "/syndication/content/story-1?token=revoked", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/syndication/content/story-1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSyndicationHandler_Engagement(t *testing.T) {
	uc := new(MockAccessUsecase)
	req := usecase.AccessRequest{StoryID: "story-1", Token: "tok"}
	uc.On("RecordEngagement", mock.Anything, req, "click").Return(nil)
	uc.On("RecordEngagement", mock.Anything, req, "like").Return(apperror.NewInvalidInput("unsupported engagement type"))
	r := syndicationRouter(uc)

	w := serve(r, http.MethodPost, "/syndication/content/story-1/engagement", `{"type":"click"}`, "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = serve(r, http.MethodPost, "/syndication/content/story-1/engagement", `{"type":"like"}`, "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/syndication/content/story-1/engagement", `{}`, "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyndicationHandler_EmbedScript(t *testing.T) {
	w := serve(syndicationRouter(new(MockAccessUsecase)), http.MethodGet, "/syndication/embed.js", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, w.Body.String(), `"https://stories.example.org/syndication/content/"`)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", httpHandler.NewHealthHandler(fakePinger{}).Healthz)
	r.GET("/down", httpHandler.NewHealthHandler(fakePinger{err: assert.AnError}).Healthz)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ok", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/down", "").Code)
}

func strPtr(s string) *string { return &s }
