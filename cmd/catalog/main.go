package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopforge/commerce-backend/internal/catalog"
	"github.com/shopforge/commerce-backend/internal/httpx"
	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/config"
	"github.com/shopforge/commerce-backend/internal/platform/database"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
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
	cfg := config.Load("catalog", 8001, log)

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
	if err := dbService.AutoMigrate(&catalog.Product{}, &catalog.ProductCategory{}); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	db := dbService.DB()
	metrics.StartDBCollector(ctx, log, db)

	// Repos
	log.Info("Setting up Repos from main...")
	productRepo := catalog.NewProductRepo(db, log)

	// Services
	log.Info("Setting up Services from main...")
	catalogService := catalog.NewService(db, log, productRepo, metrics)

	// Handlers + Router
	handler := catalog.NewHandler(log, catalogService)
	router := httpx.BaseRouter(cfg.ServiceName, log, metrics, shutdownTracing != nil)
	catalog.RegisterRoutes(router, handler)

	log.Info("catalog service listening", "addr", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatal("server exited", "error", err)
	}
}
