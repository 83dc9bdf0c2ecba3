// Package bootstrap wires the shared process dependencies for the api and
// worker binaries: config, logging, tracing, metrics, postgres, redis.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/festivo/ticketing/internal/infrastructure/config"
	"github.com/festivo/ticketing/internal/infrastructure/observability"
	infraRedis "github.com/festivo/ticketing/internal/infrastructure/redis"
	"github.com/festivo/ticketing/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// New loads config and connects everything a binary needs. Tracing failures
// degrade to a warning; database or redis failures abort startup.
func New(ctx context.Context, serviceName, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Str("environment", cfg.Environment).Msg("Starting")

	if cfg.Observability.EnableTracing {
		initTracing(ctx, logger, serviceName, cfg.Observability.JaegerEndpoint)
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL and Redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: observability.NewMetrics(metricsNamespace, nil),
	}, nil
}

// initTracing installs the global tracer and flushes it when ctx ends.
func initTracing(ctx context.Context, logger zerolog.Logger, serviceName, endpoint string) {
	tp, err := observability.InitTracer(serviceName, endpoint)
	if err != nil {
		logger.Warn().Err(err).Msg("Tracing disabled, exporter init failed")
		return
	}
	go func() {
		<-ctx.Done()
		observability.Shutdown(context.Background(), tp)
	}()
	logger.Info().Msg("Tracing enabled")
}

func (a *App) Close() {
	a.Redis.Close()
	a.Pool.Close()
}
