package middleware

import (
	"time"

	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log != nil {
			// Downstream middleware swaps c.Request; by now its context
			// carries the request id and, once authenticated, the caller.
			log.InfofCtx(c.Request.Context(), "%s %s %d %s", method, path, status, latency.String())
		}
	}
}
