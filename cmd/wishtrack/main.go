package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pmorales/wishtrack/internal/api"
	"github.com/pmorales/wishtrack/internal/auth"
	"github.com/pmorales/wishtrack/internal/config"
	"github.com/pmorales/wishtrack/internal/metrics"
	"github.com/pmorales/wishtrack/internal/repository/postgres"
	"github.com/pmorales/wishtrack/internal/service"
	"github.com/pmorales/wishtrack/pkg/logger"
)

func main() {
	// A missing .env is fine in production; variables come from the
	// environment there.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting wishtrack...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories and service layer
	wishlistRepo := postgres.NewWishlistRepository(db.DB)
	svc := service.New(db.DB, l, wishlistRepo)

	// Identity boundary
	authn := auth.New(cfg.AuthDomain, cfg.AuthAudience, l)

	// HTTP API
	apiServer := api.NewServer(svc, authn.Middleware, cfg.CORSAllowOrigins, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	// Prometheus scrape endpoint on its own listener
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: metricsMux,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	go func() {
		l.Infof("Metrics server listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	l.Info("wishtrack started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP server shutdown error: %v", err)
	}
	metricsServer.Close()

	l.Info("wishtrack stopped")
}
