package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trademinutes-gateway/internal/appointments"
	"trademinutes-gateway/internal/cache"
	"trademinutes-gateway/internal/config"
	"trademinutes-gateway/internal/controller"
	"trademinutes-gateway/internal/database"
	"trademinutes-gateway/internal/queue"
	"trademinutes-gateway/internal/repository"
	"trademinutes-gateway/internal/routes"
	"trademinutes-gateway/internal/service"
	"trademinutes-gateway/internal/upstream"
	"trademinutes-gateway/internal/worker"
	"trademinutes-gateway/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// .env never overrides variables already set in the environment
	_ = godotenv.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	cfg := config.Get()
	logger.SetLevel(cfg.LogLevel)
	if cfg.JWTSecret == "" {
		logger.Warn(ctx, "JWT_SECRET is not set; every protected request will fail")
	}

	// Activity feed storage is optional; the gateway serves pages without it
	if db := database.DB(ctx); db != nil {
		if err := database.MigrateOrCreateSchema(ctx, db); err != nil {
			logger.Error(ctx, "Activity schema unavailable", "error", err)
		}
	}

	// Pre-warm Redis (optional; cache works lazily)
	cache.Client(ctx)
	store := cache.NewStore()

	// Pre-warm Kafka producer and ensure topic exists
	queue.Producer(ctx)
	queue.EnsureTopic(ctx)

	activities := repository.NewActivities()

	// Consumes gateway events, records activity, invalidates appointment caches
	go worker.Run(ctx, &worker.Handler{Activities: activities, Cache: store})

	tasks := upstream.NewTasks(upstream.NewClient("tasks", cfg.TaskAPIURL, cfg.UpstreamTimeout))
	gw := &service.Gateway{
		Profiles:  upstream.NewAuth(upstream.NewClient("auth", cfg.AuthAPIURL, cfg.UpstreamTimeout)),
		Tasks:     tasks,
		Bookings:  upstream.NewBookings(upstream.NewClient("bookings", cfg.TaskAPIURL, cfg.UpstreamTimeout)),
		Messenger: upstream.NewMessaging(upstream.NewClient("messaging", cfg.MessagingAPIURL, cfg.UpstreamTimeout)),
		Geocoder: upstream.NewGeocoder(
			upstream.NewClient("geocoder", cfg.GeocoderURL, cfg.UpstreamTimeout),
			cfg.GeocoderToken, cfg.GeocoderCountry, cfg.GeocoderCity,
		),
		Cache:      store,
		Events:     queue.Publisher{},
		Activities: activities,
		Enricher: &appointments.Enricher{
			Tasks:    tasks,
			Location: cfg.Location(),
			Limit:    cfg.EnrichConcurrency,
		},
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(controller.New(gw)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	stop()
	if err := queue.Close(); err != nil {
		logger.Error(ctx, "Kafka producer close error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}
