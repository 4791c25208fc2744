package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/shopforge/commerce-backend/internal/httpx"
	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/config"
	"github.com/shopforge/commerce-backend/internal/platform/database"
	"github.com/shopforge/commerce-backend/internal/platform/envutil"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/redisx"
	"github.com/shopforge/commerce-backend/internal/support"
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
	cfg := config.Load("support", 8009, log)

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
		&support.SupportTicket{},
		&support.SupportConversation{},
		&support.SupportAttachment{},
	); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	db := dbService.DB()
	metrics.StartDBCollector(ctx, log, db)

	// Redis timeline cache; the aggregator runs uncached without it
	var cache redisx.Cmd
	if cfg.RedisAddr != "" {
		redisClient, err := redisx.New(cfg.RedisAddr, log)
		if err != nil {
			log.Warn("Redis unavailable, timeline cache disabled", "error", err)
		} else {
			cache = redisClient
			metrics.StartRedisCollector(ctx, log, redisClient)
		}
	}

	// Timeline aggregator
	orderBase := envutil.GetEnv("ORDER_SERVICE_URL", "http://localhost:8003", log)
	paymentBase := envutil.GetEnv("PAYMENT_SERVICE_URL", "http://localhost:8004", log)
	fulfillmentBase := envutil.GetEnv("FULFILLMENT_SERVICE_URL", "http://localhost:8007", log)
	cacheTTL := time.Duration(envutil.GetEnvAsInt("SUPPORT_TIMELINE_CACHE_TTL", 60, log)) * time.Second
	httpClient := &http.Client{Timeout: 10 * time.Second}
	aggregator := support.NewTimelineAggregator(httpClient, cache, cacheTTL, orderBase, paymentBase, fulfillmentBase, log, metrics)

	// Attachment storage
	attachmentDir := envutil.GetEnv("SUPPORT_ATTACHMENT_DIR", "./data/support-attachments", log)
	attachmentBaseURL := envutil.GetEnv("SUPPORT_ATTACHMENT_BASE_URL", "", log)
	storage, err := support.NewLocalAttachmentStorage(attachmentDir, attachmentBaseURL, log, metrics)
	if err != nil {
		log.Fatal("Attachment storage init failed", "error", err)
	}

	// Broker
	bus := broker.New(log)

	// Repos
	log.Info("Setting up Repos from main...")
	supportRepo := support.NewSupportRepo(db, log)

	// Services
	log.Info("Setting up Services from main...")
	supportService := support.NewService(db, log, supportRepo, metrics, aggregator, storage, bus)

	// Handlers + Router
	handler := support.NewHandler(log, supportService)
	router := httpx.BaseRouter(cfg.ServiceName, log, metrics, shutdownTracing != nil)
	support.RegisterRoutes(router, handler)

	log.Info("support service listening", "addr", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatal("server exited", "error", err)
	}
}
