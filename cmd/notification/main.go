package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopforge/commerce-backend/internal/httpx"
	"github.com/shopforge/commerce-backend/internal/notification"
	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/config"
	"github.com/shopforge/commerce-backend/internal/platform/database"
	"github.com/shopforge/commerce-backend/internal/platform/envutil"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/redisx"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading environment variables from main...")
	cfg := config.Load("notification", 8008, log)

	// Observability
	ctx := context.Background()
	metrics := observability.Init(log)
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if shutdownTracing != nil {
		defer func() { _ = shutdownTracing(ctx) }()
	}

	// Database
	dbService, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrate(
		&notification.Notification{},
		&notification.NotificationEvent{},
		&notification.NotificationTemplate{},
		&notification.NotificationJob{},
		&notification.Preference{},
	); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	db := dbService.DB()
	metrics.StartDBCollector(ctx, log, db)

	// Redis rate limiter; runs wide open when redis is not configured
	var limiter *notification.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient, err := redisx.New(cfg.RedisAddr, log)
		if err != nil {
			log.Warn("Redis unavailable, rate limiting disabled", "error", err)
		} else {
			limit := envutil.GetEnvAsInt("NOTIFICATION_RATE_LIMIT", 120, log)
			window := time.Duration(envutil.GetEnvAsInt("NOTIFICATION_RATE_WINDOW_SECONDS", 60, log)) * time.Second
			limiter = notification.NewRateLimiter(redisClient, log, metrics, int64(limit), window)
		}
	}

	// Broker
	bus := broker.New(log)

	// Repos
	log.Info("Setting up Repos from main...")
	notificationRepo := notification.NewNotificationRepo(db, log)

	// Services
	log.Info("Setting up Services from main...")
	notificationService := notification.NewService(db, log, notificationRepo, metrics, limiter, nil, bus)
	consumer := notification.NewConsumer(log, metrics, notificationService, notificationRepo)
	consumer.Register(bus)

	// Handlers + Router
	handler := notification.NewHandler(log, notificationService)
	router := httpx.BaseRouter(cfg.ServiceName, log, metrics, shutdownTracing != nil)
	notification.RegisterRoutes(router, handler)

	log.Info("notification service listening", "addr", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatal("server exited", "error", err)
	}
}
