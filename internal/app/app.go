// Package app wires configuration, store connections and use cases into a
// ready-to-run pipeline for the commands.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/cellguard/internal/adapter/metrics"
	"github.com/V4T54L/cellguard/internal/adapter/pii"
	"github.com/V4T54L/cellguard/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/cellguard/internal/adapter/repository/redis"
	"github.com/V4T54L/cellguard/internal/detection"
	"github.com/V4T54L/cellguard/internal/domain"
	"github.com/V4T54L/cellguard/internal/pkg/config"
	"github.com/V4T54L/cellguard/internal/usecase"
)

// App holds the open connections and the assembled pipeline.
type App struct {
	Pipeline *usecase.PipelineUseCase
	Metrics  *metrics.PipelineMetrics
	Cache    *redisrepo.CacheRepository

	timescale *sql.DB
	postgres  *sql.DB
	redis     *redis.Client
}

// New connects to all stores, applies migrations when configured and builds
// the pipeline. Failing to reach a store yields a *domain.ConnectionError.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	a := &App{}

	var err error
	if a.timescale, err = openDB(ctx, "timescale", cfg.Timescale.DSN()); err != nil {
		return nil, err
	}
	if a.postgres, err = openDB(ctx, "postgres", cfg.Postgres.DSN()); err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("connected to timescale and postgres")

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.Timescale.DSN(), postgres.SchemaEvents, logger); err != nil {
			a.Close()
			return nil, err
		}
		if err := postgres.Migrate(cfg.Postgres.DSN(), postgres.SchemaAlerts, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.Cache = redisrepo.NewCacheRepository(a.redis, logger)
	if err := a.Cache.Ping(ctx); err != nil {
		a.Close()
		return nil, &domain.ConnectionError{Target: "redis", Err: err}
	}
	logger.Info("connected to redis")

	a.Metrics = metrics.NewPipelineMetrics(reg)

	eventStore := postgres.NewEventRepository(a.timescale, logger)
	alertStore := postgres.NewAlertRepository(a.postgres, logger)

	ingest := usecase.NewIngestUseCase(eventStore, logger)
	engine := detection.NewEngine(eventStore, cfg.Thresholds, cfg.DetectionWindow, logger)
	alerts := usecase.NewAlertUseCase(alertStore, cfg.Thresholds, cfg.AlertNumberPrefix, a.Metrics, logger)
	publisher := usecase.NewCachePublisher(a.Cache, alertStore, usecase.CacheOptions{
		Namespace:   cfg.CacheNamespace,
		AlertTTL:    cfg.AlertSnapshotTTL,
		MetricsTTL:  cfg.MetricsSnapshotTTL,
		ActiveLimit: cfg.ActiveAlertsMax,
	}, a.Metrics, logger)

	a.Pipeline = usecase.NewPipelineUseCase(ingest, engine, alerts, publisher, a.Metrics, logger).
		WithRedactor(pii.NewRedactor(cfg.PIIRedactionFields, logger))
	return a, nil
}

// Close releases every open connection.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	if a.timescale != nil {
		errs = append(errs, a.timescale.Close())
	}
	return errors.Join(errs...)
}

func openDB(ctx context.Context, target, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &domain.ConnectionError{Target: target, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &domain.ConnectionError{Target: target, Err: err}
	}
	return db, nil
}
