package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/OveRide-Phoenix/kk-v1/pkg/config"
	"github.com/OveRide-Phoenix/kk-v1/pkg/database"
	"github.com/OveRide-Phoenix/kk-v1/pkg/handlers"
	"github.com/OveRide-Phoenix/kk-v1/pkg/llm"
	"github.com/OveRide-Phoenix/kk-v1/pkg/middleware"
	"github.com/OveRide-Phoenix/kk-v1/pkg/nl"
	"github.com/OveRide-Phoenix/kk-v1/pkg/repositories"
	"github.com/OveRide-Phoenix/kk-v1/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version, "config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", cfg.Env)
	log.Printf("  Database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	log.Printf("  LLM provider: %s (%s)", cfg.LLM.Provider, cfg.LLM.Model)
	log.Printf("  Timezone: %s", cfg.NL.Timezone)

	if err := database.RunMigrations(cfg.Database.ConnectionString(), cfg.Database.MigrationsPath, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(ctx, &database.PoolConfig{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.NL.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone %q: %v", cfg.NL.Timezone, err)
	}
	clock := nl.SystemClock(loc)

	shared, err := nl.LoadSharedResources(cfg.NL.ConfigDir)
	if err != nil {
		log.Fatalf("Failed to load shared NL resources: %v", err)
	}
	registry, err := nl.LoadRegistry(cfg.NL.ConfigDir, shared, clock, logger)
	if err != nil {
		log.Fatalf("Failed to load intent catalogue: %v", err)
	}

	customers := repositories.NewCustomerRepository(db, logger)
	menuItems := repositories.NewMenuItemRepository(db, logger)
	nlService := services.NewNLService(registry, db, customers, menuItems, logger)

	generator, err := llm.NewGenerator(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to build LLM client: %v", err)
	}
	pipeline := services.NewUpdatePipeline(db, menuItems, logger)
	sqlService := services.NewSQLGenerationService(generator, db, pipeline, clock, cfg.LLM.Timeout(), logger)

	limiter := middleware.NewRateLimiter(cfg.NL.RateLimitWindow(), cfg.NL.RateLimitMax)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewNLHandler(nlService, sqlService, limiter, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	log.Printf("Starting kk-nl-engine on %s (version: %s)", addr, cfg.Version)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
