package http

import (
	"net/http"
	"time"

	"story-syndication/domain/apperror"
	"story-syndication/domain/dto"
	"story-syndication/domain/model"
	"story-syndication/interfaces/middleware"
	"story-syndication/usecase"

	"github.com/gin-gonic/gin"
)

type IDistributionHandler interface {
	Register(ctx *gin.Context)
	List(ctx *gin.Context)
	Revoke(ctx *gin.Context)
	Analytics(ctx *gin.Context)
	Deliveries(ctx *gin.Context)
}

type DistributionHandler struct {
	distributionUsecase usecase.IDistributionUsecase
}

func NewDistributionHandler(uc usecase.IDistributionUsecase) IDistributionHandler {
	return &DistributionHandler{distributionUsecase: uc}
}

func (h *DistributionHandler) Register(ctx *gin.Context) {
	var req dto.RegisterDistributionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, apperror.NewInvalidInput("invalid request body: platform is required"))
		return
	}
	params := model.RegisterParams{
		Platform:        req.Platform,
		PlatformPostID:  req.PlatformPostID,
		DistributionURL: req.DistributionURL,
		EmbedDomain:     req.EmbedDomain,
		WebhookURL:      req.WebhookURL,
		WebhookSecret:   req.WebhookSecret,
		Notes:           req.Notes,
	}
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			respondError(ctx, apperror.NewInvalidInput("expiresAt must be an RFC3339 timestamp"))
			return
		}
		expiresAt = expiresAt.UTC()
		params.ExpiresAt = &expiresAt
	}

	out, err := h.distributionUsecase.Register(ctx.Request.Context(), ctx.Param("storyId"), middleware.Actor(ctx), params)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, out)
}

func (h *DistributionHandler) List(ctx *gin.Context) {
	var q dto.ListDistributionsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		respondError(ctx, apperror.NewInvalidInput("includeRevoked must be a boolean"))
		return
	}
	out, err := h.distributionUsecase.GetDistributionMap(ctx.Request.Context(), ctx.Param("storyId"), middleware.Actor(ctx), q.IncludeRevoked)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}

func (h *DistributionHandler) Revoke(ctx *gin.Context) {
	var q dto.RevokeDistributionsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		respondError(ctx, apperror.NewInvalidInput("invalid revocation query"))
		return
	}
	storyID := ctx.Param("storyId")
	actor := middleware.Actor(ctx)

	switch {
	case q.All:
		res, err := h.distributionUsecase.RevokeAll(ctx.Request.Context(), storyID, actor, q.Reason)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, dto.RevokeAllResponse{Revoked: res.Revoked, Partial: res.Partial(), Failed: res.Failed})
	case q.DistributionID != "":
		d, err := h.distributionUsecase.Revoke(ctx.Request.Context(), storyID, q.DistributionID, actor, q.Reason)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, dto.RevokeDistributionResponse{DistributionID: d.ID, Status: d.Status, RevokedAt: d.RevokedAt})
	default:
		respondError(ctx, apperror.NewInvalidInput("distributionId or all=true is required"))
	}
}

func (h *DistributionHandler) Analytics(ctx *gin.Context) {
	out, err := h.distributionUsecase.GetAnalytics(ctx.Request.Context(), ctx.Param("storyId"), middleware.Actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}

func (h *DistributionHandler) Deliveries(ctx *gin.Context) {
	list, err := h.distributionUsecase.ListDeliveries(ctx.Request.Context(), ctx.Param("storyId"), ctx.Param("distributionId"), middleware.Actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if list == nil {
		list = []model.WebhookDelivery{}
	}
	ctx.JSON(http.StatusOK, gin.H{"distributionId": ctx.Param("distributionId"), "deliveries": list})
}
