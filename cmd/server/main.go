package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/api"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/engines"
	"github.com/websapdev/ai-visibility/internal/notifications"
	"github.com/websapdev/ai-visibility/internal/scheduler"
	"github.com/websapdev/ai-visibility/internal/storage"
	"github.com/websapdev/ai-visibility/internal/store"
	"github.com/websapdev/ai-visibility/internal/visibility"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting AI visibility service")

	repo, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer repo.Close()

	archive, err := storage.New(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize archive: %v", err)
	}

	fetcher, err := engines.NewFetcher(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize fetcher: %v", err)
	}
	logrus.Infof("Using %s fetcher", fetcher.GetName())

	loc := cfg.Location()
	aggregator := visibility.NewAggregator(repo, loc)
	poller := visibility.NewPoller(cfg, repo, fetcher, aggregator, archive)
	reporter := visibility.NewReporter(repo, loc, cfg.OverviewWindowDays)

	var notifier notifications.NotificationInterface
	if cfg.NotificationsEnabled() {
		notifier = notifications.NewService(cfg)
	}

	service := visibility.NewService(cfg, repo, poller, reporter, notifier)

	if cfg.PollSchedule != "" {
		schedulerService := scheduler.NewService(cfg, service)
		if err := schedulerService.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer schedulerService.Stop()
	}

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     api.NewRouter(service),
		ReadTimeout: 15 * time.Second,
		// A poll runs inside the request, so the write deadline covers
		// every fetch of the slowest brand.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
