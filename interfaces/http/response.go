package http

import (
	"story-syndication/domain/apperror"
	"story-syndication/infrastructure/logger"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError writes the caller-safe message for err with the status of its kind.
func respondError(ctx *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	fields := log.Fields{"path": ctx.FullPath(), "status": status, "error": err.Error()}
	if kind == apperror.InternalError {
		logger.GetLogger().WithFields(fields).Error("request failed")
	} else {
		logger.GetLogger().WithFields(fields).Debug("request rejected")
	}
	ctx.JSON(status, gin.H{"error": apperror.MessageOf(err)})
}
