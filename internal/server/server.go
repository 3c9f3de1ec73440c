package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-chat/config"
	"marketplace-chat/internal/handler"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/redis"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/transport/httpdto"
	"marketplace-chat/internal/websocket"
	"marketplace-chat/pkg/database"
	"marketplace-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	db         *gorm.DB
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Conversations *handler.ConversationHandler
	Messages      *handler.MessageHandler
	WS            *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger, db *gorm.DB) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		db:     db,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, verifier *services.TokenVerifier, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// Token rides the query string; the handler does its own auth.
	s.engine.GET("/v1/ws", handlers.WS.Connect)

	auth := middleware.AuthMiddleware(verifier)
	conversations := s.engine.Group("/v1/conversations", auth)
	{
		conversations.GET("", handlers.Conversations.List)
		conversations.POST("", handlers.Conversations.Create)
		conversations.GET("/unread-count", handlers.Conversations.UnreadTotal)
		conversations.GET("/:id", handlers.Conversations.Detail)
		conversations.POST("/:id/read", handlers.Conversations.MarkRead)
		conversations.DELETE("/:id", handlers.Conversations.Delete)
		conversations.POST("/:id/messages", middleware.MessageRateLimitMiddleware(limiter), handlers.Messages.Send)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
