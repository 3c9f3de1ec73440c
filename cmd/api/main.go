package main

import (
	"context"
	"log"

	"marketplace-chat/config"
	"marketplace-chat/internal/attachment"
	"marketplace-chat/internal/handler"
	"marketplace-chat/internal/redis"
	"marketplace-chat/internal/repository"
	"marketplace-chat/internal/server"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/websocket"
	"marketplace-chat/pkg/database"
	"marketplace-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var limiter *redis.RateLimiter
	var presence *redis.PresenceStore
	if err := redis.Ping(context.Background(), redisClient); err != nil {
		l.Warnf("Redis unreachable, rate limiting and presence disabled: %s", err)
	} else {
		limiter = redis.NewRateLimiter(redisClient, redis.RateLimitConfig{
			MessageLimit:  cfg.MessageRateLimit,
			MessageWindow: cfg.MessageRateWindow,
		})
		presence = redis.NewPresenceStore(redisClient, cfg.PresenceTTL)
	}

	var store services.ObjectStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		store = s3Client
	} else {
		l.Warnf("S3 bucket not configured, attachment uploads disabled")
	}

	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	hub := websocket.NewHub()
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	broadcaster := websocket.NewEventBroadcaster(hub, l)

	messagingService := services.NewMessagingService(conversationRepo, messageRepo, broadcaster, l)
	uploadService := services.NewUploadService(store, attachment.Policy{
		MaxFileBytes: cfg.MaxAttachmentBytes,
		MaxFiles:     cfg.MaxAttachmentsPerMessage,
	}, l)

	verifier := services.NewTokenVerifier(cfg.JWTSecret)
	authorizer := websocket.NewRoomAuthorizer(messagingService)

	var presenceTracker websocket.PresenceTracker
	if presence != nil {
		presenceTracker = presence
	}

	handlers := &server.Handlers{
		Conversations: handler.NewConversationHandler(messagingService),
		Messages:      handler.NewMessageHandler(messagingService, uploadService),
		WS:            websocket.NewHandler(verifier, hub, authorizer, messagingService, presenceTracker, l),
	}

	srv := server.New(cfg, l, db)
	srv.SetupRoutes(handlers, verifier, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
