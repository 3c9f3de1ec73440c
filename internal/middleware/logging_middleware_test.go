package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoggingMiddlewareAttachesRequestContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &logger.Logger{Logger: zap.New(core)}

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(l))
	// Stand-in for the auth middleware, which swaps the request context
	// after the logging middleware has already started.
	r.Use(func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), logger.ParticipantIdKey, "p-1")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Message, "GET /ping 200") {
		t.Errorf("message = %q", entries[0].Message)
	}

	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-123" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["participant_id"] != "p-1" {
		t.Errorf("participant_id = %v", fields["participant_id"])
	}
}
