package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrcrandell/event-calendar-api/internal/di"
	"github.com/mrcrandell/event-calendar-api/pkg/config"
	"github.com/mrcrandell/event-calendar-api/pkg/logger"
	"github.com/mrcrandell/event-calendar-api/pkg/middleware"
	"github.com/mrcrandell/event-calendar-api/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = cfg.App.Name
	logCfg.Development = cfg.IsDevelopment()
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		logger.Fatal("failed to init telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer container.Close()

	router := setupRouter(container)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func setupRouter(container *di.Container) *gin.Engine {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())

	router.GET("/health", container.HealthHandler.Health)

	jwtConfig := &middleware.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}

	importRateLimit := middleware.RateLimitConfig{
		RequestsPerMinute: cfg.Import.RateLimitPerMinute,
		BurstSize:         cfg.Import.RateLimitPerMinute,
		UseRedis:          container.Redis != nil,
		RedisClient:       container.Redis,
		KeyPrefix:         "ratelimit:import:",
	}

	v1 := router.Group("/api/v1")
	{
		events := v1.Group("/events")
		{
			events.GET("", container.EventHandler.List)
			events.GET("/:slug", container.EventHandler.GetBySlug)

			protected := events.Group("")
			protected.Use(middleware.JWTMiddleware(jwtConfig))
			{
				protected.POST("", container.EventHandler.Create)
				protected.PUT("/:id", container.EventHandler.Update)
				protected.DELETE("/:id", container.EventHandler.Delete)
				protected.POST("/import",
					middleware.RateLimiter(importRateLimit),
					container.ImportHandler.Import,
				)
			}
		}
	}

	return router
}
