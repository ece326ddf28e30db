package server

import (
	"strings"
	"time"

	httpHandler "story-syndication/interfaces/http"
	"story-syndication/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	SecretKey      string
	AllowedOrigins []string
}

func InitiateRouter(
	cfg RouterConfig,
	distributionHandler httpHandler.IDistributionHandler,
	syndicationHandler httpHandler.ISyndicationHandler,
	healthHandler httpHandler.IHealthHandler,
	statusStream gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsByAudience(cfg.AllowedOrigins))

	router.GET("/healthz", healthHandler.Healthz)

	// Public content boundary. The embed token is the only credential.
	syndication := router.Group("/syndication")
	{
		syndication.GET("/embed.js", syndicationHandler.EmbedScript)
		syndication.GET("/content/:storyId", syndicationHandler.GetContent)
		syndication.POST("/content/:storyId/engagement", syndicationHandler.RecordEngagement)
	}

	api := router.Group("api")
	api.Use(middleware.Auth(cfg.SecretKey))

	stories := api.Group("/stories/:storyId/distributions")
	{
		stories.POST("", distributionHandler.Register)
		stories.GET("", distributionHandler.List)
		stories.DELETE("", distributionHandler.Revoke)
		stories.GET("/analytics", distributionHandler.Analytics)
		stories.GET("/:distributionId/deliveries", distributionHandler.Deliveries)
	}

	if statusStream != nil {
		api.GET("/distributions/stream", statusStream)
	}

	return router
}

// corsByAudience lets any site read syndicated content while the owner API is
// limited to the configured origins.
func corsByAudience(allowedOrigins []string) gin.HandlerFunc {
	public := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", httpHandler.HeaderSiteID},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	})

	ownerCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		ownerCfg.AllowAllOrigins = true
	} else {
		ownerCfg.AllowOrigins = allowedOrigins
		ownerCfg.AllowCredentials = true
	}
	owner := cors.New(ownerCfg)

	return func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/syndication/") {
			public(ctx)
			return
		}
		owner(ctx)
	}
}
