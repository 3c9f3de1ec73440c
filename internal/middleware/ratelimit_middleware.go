package middleware

import (
	"net/http"
	"strconv"

	"marketplace-chat/internal/redis"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// MessageRateLimitMiddleware caps sends per participant. Apply after auth on
// the send route only. A limiter outage does not block sends.
func MessageRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		participantID, ok := services.ParticipantFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.AllowMessage(c.Request.Context(), participantID.String())
		if err != nil {
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("message rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Writer.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
}
