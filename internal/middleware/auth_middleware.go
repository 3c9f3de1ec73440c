package middleware

import (
	"context"
	"net/http"
	"strings"

	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(verifier *services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		participantID, err := verifier.ParseParticipant(extractBearer(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithParticipant(c.Request.Context(), participantID)
		ctx = context.WithValue(ctx, logger.ParticipantIdKey, participantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
