package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"story-syndication/domain/dto"
	"story-syndication/domain/model"
	"story-syndication/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Auth verifies the owner's bearer token and puts user_id and tenant_id on the
// context. Ownership itself is checked per request against the story.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

		raw, ok := bearer(ctx.Request.Header.Get("Authorization"))
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		userClaims, token, err := getClaim(raw, secretKey)
		if err != nil || token == nil || !token.Valid {
			res.ResponseMessage = abortMessage(err)
			logger.GetLogger().WithField("path", ctx.FullPath()).WithField("error", err).Debug("rejected owner token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		userID := userClaims.ActorID()
		if userID == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set("user_id", userID)
		ctx.Set("tenant_id", userClaims.TenantID)
		ctx.Next()
	}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}

func abortMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
	}
	return "Unauthorized"
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&userClaims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	return userClaims, token, err
}

// Actor reads the identity Auth placed on the context.
func Actor(ctx *gin.Context) model.Actor {
	return model.Actor{UserID: ctx.GetString("user_id"), TenantID: ctx.GetString("tenant_id")}
}
