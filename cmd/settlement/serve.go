package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/config"
	"github.com/emperorhan/custody-settlement/internal/notify"
	"github.com/emperorhan/custody-settlement/internal/pipeline"
	"github.com/emperorhan/custody-settlement/internal/store/postgres"
	redisstore "github.com/emperorhan/custody-settlement/internal/store/redis"
	"github.com/emperorhan/custody-settlement/internal/tracing"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	enabled := cfg.Enabled()
	symbols := make([]string, 0, len(enabled))
	for _, n := range enabled {
		symbols = append(symbols, n.Symbol)
	}
	logger.Info("starting settlement",
		"version", version,
		"networks", symbols,
		"redis", cfg.Redis.URL != "",
		"health_port", cfg.Server.HealthPort,
	)

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		ServiceName:    "custody-settlement",
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Endpoint != "" {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint, "sample_ratio", cfg.Tracing.SampleRatio)
	}

	db, err := postgres.New(postgres.Config{
		URL:                cfg.DB.URL,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetime:    cfg.DB.ConnMaxLifetime(),
		StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	alerter := buildAlerter(cfg.Alert, logger)

	shared := sharedDeps{
		store:   postgres.NewStore(db),
		alerter: alerter,
		run:     cfg.Run,
		logger:  logger,
	}
	redisClient, err := resolveRedis(ctx, cfg.Redis, &shared)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := pipeline.NewRegistry()
	for _, nc := range enabled {
		p, err := buildPipeline(nc, shared)
		if err != nil {
			return fmt.Errorf("network %s: %w", nc.Symbol, err)
		}
		registry.Register(p)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, registry, logger)
	})
	for _, p := range registry.All() {
		p := p
		g.Go(func() error {
			return p.Run(gCtx)
		})
	}
	startDBPoolStatsPump(gCtx, db.DB, cfg.DB.PoolStatsInterval(), alerter, logger)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildAlerter(cfg config.AlertConfig, logger *slog.Logger) alert.Alerter {
	var channels []alert.Alerter
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.WebhookURL))
	}
	if len(channels) == 0 {
		logger.Info("no alert channel configured")
		return &alert.NoopAlerter{}
	}
	return alert.NewMultiAlerter(cfg.Cooldown(), logger, channels...)
}

var newRedisClient = redisstore.NewClient

// resolveRedis picks the run lock and notifier. Without a Redis URL both fall
// back to in-process versions, which only hold for a single instance.
func resolveRedis(ctx context.Context, cfg config.RedisConfig, deps *sharedDeps) (*redis.Client, error) {
	if cfg.URL == "" {
		deps.lock = pipeline.NewLocalRunLock()
		deps.notifier = notify.NewLogNotifier(deps.logger)
		deps.logger.Warn("redis not configured, using process-local run lock")
		return nil, nil
	}
	client, err := newRedisClient(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	deps.lock = pipeline.NewRedisRunLock(redisstore.NewLocker(client, cfg.LockPrefix, deps.run.LockTTL()))
	deps.notifier = notify.NewStreamNotifier(redisstore.NewStream(client, cfg.Stream, cfg.StreamMaxLen), deps.logger)
	deps.logger.Info("redis run lock and transfer stream enabled", "stream", cfg.Stream)
	return client, nil
}
