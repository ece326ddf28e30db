package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) IHealthHandler {
	return &HealthHandler{db: db}
}

// Healthz returns OK for health checks
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(pingCtx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
