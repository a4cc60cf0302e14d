// Package main provides the worker application entry point.
// The worker consumes queued rank requests from Redpanda and stores the rankings.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-candidate-screener/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-candidate-screener/internal/app"
	"github.com/fairyhunter13/ai-candidate-screener/internal/config"
	"github.com/fairyhunter13/ai-candidate-screener/internal/service/catalog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv), slog.Int("score_workers", cfg.ScoreWorkers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DBURL, postgres.PoolOptions{})
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("db schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		if opts, err := goredis.ParseURL(cfg.RedisURL); err != nil {
			slog.Warn("invalid redis url; requirements cache disabled", slog.Any("error", err))
		} else {
			rdb = goredis.NewClient(opts)
			defer func() { _ = rdb.Close() }()
		}
	}

	cat, err := catalog.Load(cfg.SkillCatalogPath)
	if err != nil {
		slog.Error("skill catalog load failed", slog.String("path", cfg.SkillCatalogPath), slog.Any("error", err))
		os.Exit(1)
	}

	// Events go through a producer with its own transactional ID so it never
	// fences the HTTP server's producer or the consumer session.
	events, err := redpanda.NewProducer(ctx, redpanda.ProducerConfig{
		Brokers:         cfg.KafkaBrokers,
		TransactionalID: cfg.TransactionalID + "-worker",
		Partitions:      cfg.TopicPartitions,
		Replication:     cfg.TopicReplication,
	})
	if err != nil {
		slog.Error("queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := events.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	svcs := app.BuildServices(cfg, app.Deps{
		Catalog:  cat,
		Redis:    rdb,
		Rankings: postgres.NewRankingRepo(pool),
		Events:   events,
	})

	consumer, err := redpanda.NewConsumer(ctx, redpanda.ConsumerConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroup,
		TransactionalID: cfg.TransactionalID + "-consumer",
		Topic:           redpanda.TopicRankRequests,
		Workers:         cfg.ScoreWorkers,
		Partitions:      cfg.TopicPartitions,
		Replication:     cfg.TopicReplication,
	}, svcs.Rank)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	done := make(chan error, 1)
	go func() {
		slog.Info("starting redpanda consumer", slog.String("group", cfg.ConsumerGroup))
		done <- consumer.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("worker error", slog.Any("error", err))
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
