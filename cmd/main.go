package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/circadian-app/reminder-scheduler/internal/config"
	"github.com/circadian-app/reminder-scheduler/internal/handler"
	"github.com/circadian-app/reminder-scheduler/internal/health"
	"github.com/circadian-app/reminder-scheduler/internal/infra/pushgateway"
	"github.com/circadian-app/reminder-scheduler/internal/infra/repository"
	"github.com/circadian-app/reminder-scheduler/internal/infra/runrecorder"
	"github.com/circadian-app/reminder-scheduler/internal/infra/webpush"
	"github.com/circadian-app/reminder-scheduler/internal/observability"
	"github.com/circadian-app/reminder-scheduler/internal/observability/metrics"
	"github.com/circadian-app/reminder-scheduler/internal/observability/middleware"
	"github.com/circadian-app/reminder-scheduler/internal/service/dedupe"
	"github.com/circadian-app/reminder-scheduler/internal/service/dispatch"
)

// Version is set via ldflags at build time
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "reminder-scheduler"
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceName:  serviceName,
		Version:      Version,
		LogLevel:     cfg.LogLevel,
		SamplingRate: 1.0,
	})
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.SetDefault(obs.Logger())

	if err := config.ValidateForRun(cfg); err != nil {
		slog.Error("configuration validation error", slog.String("error", err.Error()))
		return 1
	}

	httpMetrics, err := metrics.NewHTTPMetrics()
	if err != nil {
		slog.Error("failed to initialize HTTP metrics", slog.String("error", err.Error()))
		return 1
	}

	dispatchMetrics, err := metrics.NewDispatchMetrics()
	if err != nil {
		slog.Error("failed to initialize dispatch metrics", slog.String("error", err.Error()))
		return 1
	}

	// Initialize run result recorder (InfluxDB for local, BigQuery for gcloud)
	runRecorderCfg := runrecorder.LoadConfig()
	runRecorder, err := runrecorder.NewRecorder(ctx, runRecorderCfg)
	if err != nil {
		slog.Error("failed to initialize run result recorder", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := runRecorder.Close(); err != nil {
			slog.Warn("failed to close run result recorder", slog.String("error", err.Error()))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		slog.Error("failed to instrument redis tracing",
			slog.String("event", "redis.otel.tracing.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		slog.Error("failed to instrument redis metrics",
			slog.String("event", "redis.otel.metrics.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis",
			slog.String("event", "redis.connect.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}()

	slog.Info("redis connected",
		slog.String("addr", cfg.Redis.Addr),
	)

	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		slog.Error("failed to connect postgres",
			slog.String("event", "postgres.connect.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Warn("failed to close postgres connection", slog.String("error", err.Error()))
			}
		}
	}()

	store := repository.NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		slog.Error("failed to run database migrations", slog.String("error", err.Error()))
		return 1
	}

	slog.Info("postgres connected")

	sentMarkers := repository.NewSentMarkerRepository(redisClient)
	guard := dedupe.NewGuard(store, sentMarkers)

	pushSender := webpush.NewVAPIDSender(
		cfg.VAPID.PublicKey,
		cfg.VAPID.PrivateKey,
		cfg.VAPID.Subscriber,
	)
	sendGateway := pushgateway.NewClient(cfg.SendEndpointURL, cfg.CronSecret)

	dispatchService := dispatch.NewService(
		store,
		store,
		store,
		guard,
		sendGateway,
		dispatchMetrics,
		cfg.DefaultTimezone,
	)

	runHandler := handler.NewRunHandler(dispatchService, dispatchMetrics, runRecorder)
	sendHandler := handler.NewSendHandler(store, store, pushSender)
	userHandler := handler.NewUserHandler(store, store, cfg.DefaultTimezone)

	// Setup router with observability middleware
	r := gin.New()
	r.Use(middleware.Gin(middleware.GinConfig{
		SkipPaths:   []string{"/health", "/health/live", "/health/ready"},
		HTTPMetrics: httpMetrics,
	}))
	r.Use(middleware.PanicRecoveryGin())

	// Health check endpoints
	healthChecker := health.NewChecker(redisClient, db, Version)
	r.GET("/health/live", healthChecker.LiveHandler())
	r.GET("/health/ready", healthChecker.ReadyHandler())
	r.GET("/health", healthChecker.ReadyHandler())

	// API routes
	v1 := r.Group("/api/v1")
	{
		cron := v1.Group("/reminders", handler.RequireCronSecret(cfg.CronSecret))
		{
			cron.POST("/run", runHandler.HandleRun)
			cron.POST("/send", sendHandler.HandleSend)
		}

		users := v1.Group("/users/:userID")
		{
			users.PUT("/settings", userHandler.HandleUpdateSettings)
			users.GET("/reminders", userHandler.HandleListReminders)
			users.GET("/reminders/upcoming", userHandler.HandleUpcoming)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Port),
			slog.String("default_timezone", cfg.DefaultTimezone),
		)
		serverErr <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
			return 1
		}

		slog.Info("server exited properly")
		return 0

	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		slog.Error("server exited with error", slog.String("error", err.Error()))
		return 1
	}
}
