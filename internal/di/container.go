package di

import (
	"context"
	"fmt"
	"time"

	"github.com/mrcrandell/event-calendar-api/internal/handler"
	"github.com/mrcrandell/event-calendar-api/internal/repository"
	"github.com/mrcrandell/event-calendar-api/internal/service"
	"github.com/mrcrandell/event-calendar-api/pkg/config"
	"github.com/mrcrandell/event-calendar-api/pkg/database"
	"github.com/mrcrandell/event-calendar-api/pkg/logger"
	"github.com/mrcrandell/event-calendar-api/pkg/redis"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	DB    *database.PostgresDB
	Redis *redis.Client

	EventRepo repository.EventRepository

	EventService service.EventService

	EventHandler  *handler.EventHandler
	ImportHandler *handler.ImportHandler
	HealthHandler *handler.HealthHandler
}

// NewContainer wires the full dependency graph. Redis is optional; a
// connection failure there is logged and rate limiting falls back to
// local buckets.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	importZone, err := time.LoadLocation(cfg.Import.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid import timezone %q: %w", cfg.Import.Timezone, err)
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = redis.NewClient(ctx, &redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		}
	}

	eventRepo := repository.NewPostgresEventRepository(db.Pool())
	eventService := service.NewEventService(eventRepo, importZone)

	return &Container{
		Config:        cfg,
		DB:            db,
		Redis:         redisClient,
		EventRepo:     eventRepo,
		EventService:  eventService,
		EventHandler:  handler.NewEventHandler(eventService),
		ImportHandler: handler.NewImportHandler(eventService, cfg.Import.MaxUploadBytes),
		HealthHandler: handler.NewHealthHandler(db, redisClient),
	}, nil
}

// Close releases held connections in reverse dependency order
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
