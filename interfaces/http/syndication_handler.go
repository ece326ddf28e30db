package http

import (
	"net/http"
	"strings"

	"story-syndication/domain/apperror"
	"story-syndication/domain/dto"
	"story-syndication/usecase"

	"github.com/gin-gonic/gin"
)

const HeaderSiteID = "X-Site-ID"

type ISyndicationHandler interface {
	GetContent(ctx *gin.Context)
	RecordEngagement(ctx *gin.Context)
	EmbedScript(ctx *gin.Context)
}

type SyndicationHandler struct {
	accessUsecase usecase.IAccessUsecase
	baseURL       string
}

func NewSyndicationHandler(uc usecase.IAccessUsecase, baseURL string) ISyndicationHandler {
	return &SyndicationHandler{accessUsecase: uc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *SyndicationHandler) GetContent(ctx *gin.Context) {
	out, err := h.accessUsecase.GetContent(ctx.Request.Context(), accessRequest(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusOK, out)
}

func (h *SyndicationHandler) RecordEngagement(ctx *gin.Context) {
	var req dto.EngagementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, apperror.NewInvalidInput("type is required"))
		return
	}
	if err := h.accessUsecase.RecordEngagement(ctx.Request.Context(), accessRequest(ctx), req.Type); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// EmbedScript serves the loader referenced by the embed code.
func (h *SyndicationHandler) EmbedScript(ctx *gin.Context) {
	ctx.Header("Cache-Control", "public, max-age=300")
	ctx.Data(http.StatusOK, "application/javascript; charset=utf-8", []byte(strings.ReplaceAll(embedScript, "{{BASE}}", h.baseURL)))
}

// accessRequest takes the token from the bearer header, falling back to the
// token query parameter used by script embeds.
func accessRequest(ctx *gin.Context) usecase.AccessRequest {
	raw := ""
	if header := ctx.GetHeader("Authorization"); len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		raw = strings.TrimSpace(header[7:])
	}
	if raw == "" {
		raw = ctx.Query("token")
	}
	site := ctx.GetHeader(HeaderSiteID)
	if site == "" {
		site = ctx.Query("site")
	}
	return usecase.AccessRequest{StoryID: ctx.Param("storyId"), Token: raw, SiteID: site}
}

const embedScript = `(function () {
  var nodes = document.querySelectorAll(".story-syndication-embed");
  Array.prototype.forEach.call(nodes, function (el) {
    var url = "{{BASE}}/syndication/content/" + encodeURIComponent(el.dataset.storyId);
    var headers = { "Authorization": "Bearer " + el.dataset.token };
    if (el.dataset.site) { headers["X-Site-ID"] = el.dataset.site; }
    fetch(url, { headers: headers }).then(function (res) {
      if (!res.ok) { el.textContent = ""; return null; }
      return res.json();
    }).then(function (body) {
      if (!body) { return; }
      var title = document.createElement("h3");
      title.textContent = body.story.title;
      var content = document.createElement("div");
      content.textContent = body.story.content;
      var credit = document.createElement("a");
      credit.href = body.attribution.url;
      credit.textContent = body.attribution.message;
      el.replaceChildren(title, content, credit);
    });
  });
})();
`
