package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/config"
	"github.com/noah-isme/crewhub-api/internal/database"
	"github.com/noah-isme/crewhub-api/internal/handler"
	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/repository"
	"github.com/noah-isme/crewhub-api/internal/router"
	"github.com/noah-isme/crewhub-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := []handler.HealthProbe{{Name: "postgres", Check: database.PostgresProbe(db)}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis and NATS are optional; without them change signals stay on this node.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: database.RedisProbe(redisClient)})
	} else {
		logger.Warn().Msg("redis url not set; reaction cache and cross-node fanout disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: database.NATSProbe(natsConn)})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	directRepo := repository.NewDirectMessageRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	groupMessageRepo := repository.NewGroupMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	requestRepo := repository.NewConversationRequestRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	comments := repository.NewCommentDirectory(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.RealtimeChannel, natsConn, validate, logger)
	dispatcher := service.NewDispatcher(notificationService, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	deliveryService := service.NewDeliveryService(notificationService, service.DeliveryConfig{
		Heartbeat:     cfg.DeliveryHeartbeat,
		PollInterval:  cfg.DeliveryPollInterval,
		SnapshotLimit: cfg.DeliverySnapshotLimit,
	}, logger)

	messageService := service.NewMessageService(directRepo, userRepo, dispatcher, activityService, validate, logger)
	groupMessageService := service.NewGroupMessageService(groupRepo, groupMessageRepo, dispatcher, activityService, validate, logger)
	groupAccessService := service.NewGroupAccessService(groupRepo, userRepo, dispatcher, activityService, logger)
	conversationService := service.NewConversationService(directRepo, groupMessageRepo, groupRepo, userRepo, logger)
	reactionService := service.NewReactionService(reactionRepo, comments, redisClient, cfg.RealtimeChannel, cfg.ReactionCacheTTL, dispatcher, validate, logger)
	requestService := service.NewConversationRequestService(requestRepo, userRepo, dispatcher, validate, logger)
	userService := service.NewUserService(userRepo, validate, logger)

	notificationService.Start(ctx)
	service.NewCommentEventConsumer(dispatcher, natsConn, cfg.RealtimeChannel, validate, logger).Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ConversationHandler:        handler.NewConversationHandler(conversationService, messageService, logger),
		MessageHandler:             handler.NewMessageHandler(messageService, logger),
		GroupHandler:               handler.NewGroupHandler(groupAccessService, groupMessageService, logger),
		ReactionHandler:            handler.NewReactionHandler(reactionService, logger),
		NotificationHandler:        handler.NewNotificationHandler(notificationService, deliveryService, logger),
		UserHandler:                handler.NewUserHandler(userService, logger),
		ConversationRequestHandler: handler.NewConversationRequestHandler(requestService, logger),
		ActivityHandler:            handler.NewActivityHandler(activityService, logger),
		HealthProbes:               probes,
		JWTMiddleware:              middleware.JWTProtected(cfg.JWTSecret),
		MessageLimiter:             middleware.RateLimit("messages", cfg.MessageRateLimit, time.Second),
		ReactionLimiter:            middleware.RateLimit("reactions", cfg.ReactionRateLimit, time.Second),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
