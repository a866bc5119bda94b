package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gyuwonk/chehum/internal/clock"
	"github.com/gyuwonk/chehum/internal/config"
	"github.com/gyuwonk/chehum/internal/database"
	"github.com/gyuwonk/chehum/internal/repository"
	"github.com/gyuwonk/chehum/internal/server"
	"github.com/gyuwonk/chehum/internal/service"
)

func main() {
	ctx := context.Background()

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	setupLogger(cfg.App.LogLevel)
	slog.Info("starting chehum service", "environment", cfg.App.Environment)

	// Initialize database connections
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connections", "error", err)
		}
	}()

	if err := database.CreateSchema(ctx, db.Postgres); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	provider := repository.NewProvider(db.Postgres)
	stores := repository.NewStore()
	campaigns := repository.NewCampaign()
	applications := repository.NewApplication()
	tokens := repository.NewToken()
	reviews := repository.NewReview()
	clk := clock.System()

	srv := server.New(server.Deps{
		Stores:       service.NewStoreService(provider, stores, clk),
		Campaigns:    service.NewCampaignService(provider, campaigns, stores, applications, clk),
		Applications: service.NewApplicationService(provider, campaigns, applications, clk),
		Tokens:       service.NewTokenService(provider, applications, tokens, clk, cfg.App.QRTokenTTL),
		Reviews:      service.NewReviewService(provider, applications, campaigns, reviews, clk),
		Clock:        clk,

		DB: db.Postgres,

		RateLimit:      cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	// Create server with configuration optimized for high concurrency
	httpServer := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second, // Keep connections alive longer
		MaxHeaderBytes: 1 << 20,           // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(srv.Handler(), &http2.Server{
			MaxConcurrentStreams: 1000, // Allow more concurrent streams
		}),
	}

	// Start server in goroutine
	go func() {
		slog.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("server exited gracefully")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
