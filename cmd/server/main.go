// Command server starts the candidate screening HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/httpserver"
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
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Infra: DB pool
	pool, err := postgres.NewPool(ctx, cfg.DBURL, postgres.PoolOptions{})
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		slog.Error("db schema setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	rankings := postgres.NewRankingRepo(pool)

	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	// Redis backs the requirements cache and the answer evaluator limiter.
	// Both degrade gracefully, so a bad URL only disables them.
	var rdb *goredis.Client
	var redisPing app.RedisPinger
	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Warn("invalid redis url; cache and limiter disabled", slog.Any("error", err))
		} else {
			rdb = goredis.NewClient(opts)
			redisPing = rdb
			defer func() { _ = rdb.Close() }()
		}
	}

	cat, err := catalog.Load(cfg.SkillCatalogPath)
	if err != nil {
		slog.Error("skill catalog load failed", slog.String("path", cfg.SkillCatalogPath), slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("skill catalog loaded", slog.String("version", cat.Version()))

	producer, err := redpanda.NewProducer(ctx, redpanda.ProducerConfig{
		Brokers:         cfg.KafkaBrokers,
		TransactionalID: cfg.TransactionalID,
		Partitions:      cfg.TopicPartitions,
		Replication:     cfg.TopicReplication,
	})
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue client", slog.Any("error", err))
		}
	}()

	svcs := app.BuildServices(cfg, app.Deps{
		Catalog:  cat,
		Redis:    rdb,
		Rankings: rankings,
		Events:   producer,
		Queue:    producer,
	})

	dbCheck, redisCheck, queueCheck := app.BuildReadinessChecks(pool, redisPing, producer)
	if redisPing == nil {
		// redis is optional; without it readiness covers db and broker only
		redisCheck = nil
	}
	srv := httpserver.NewServer(cfg, svcs.Rank, svcs.Enqueue, svcs.Query, svcs.Reevaluate, dbCheck, redisCheck, queueCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
