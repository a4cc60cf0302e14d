package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
)

// RankHandler runs one queued rank request.
type RankHandler interface {
	HandleRank(ctx context.Context, payload domain.RankTaskPayload) error
}

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	TransactionalID string
	Topic           string
	Workers         int
	Partitions      int32
	Replication     int16
}

// Consumer reads rank requests inside group transactions so offsets are only
// committed once a batch is handled. Poison records are dropped; any other
// failure aborts the batch and it is redelivered after a backoff.
type Consumer struct {
	session *kgo.GroupTransactSession
	handler RankHandler
	groupID string
	topic   string
	workers int
}

// NewConsumer creates the transactional group session.
func NewConsumer(ctx context.Context, cfg ConsumerConfig, h RankHandler) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: no seed brokers provided")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: missing required group ID")
	}
	if h == nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: handler required")
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicRankRequests
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.Replication <= 0 {
		cfg.Replication = 1
	}

	admin, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	if err := createTopicIfNotExists(ctx, admin, cfg.Topic, cfg.Partitions, cfg.Replication); err != nil {
		slog.Warn("failed to ensure topic", slog.String("topic", cfg.Topic), slog.Any("error", err))
	}
	admin.Close()

	k := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	session, err := kgo.NewGroupTransactSession(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.TransactionalID(cfg.TransactionalID),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.RequireStableFetchOffsets(),
		kgo.WithHooks(k.Hooks()...),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.FetchMaxBytes(10*1024*1024),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewConsumer: %w", err)
	}
	slog.Info("redpanda consumer ready",
		slog.String("group_id", cfg.GroupID),
		slog.String("topic", cfg.Topic),
		slog.Int("workers", cfg.Workers))
	return &Consumer{session: session, handler: h, groupID: cfg.GroupID, topic: cfg.Topic, workers: cfg.Workers}, nil
}

// Run polls until ctx is cancelled. It returns nil on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	for {
		fetches := c.session.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				slog.Error("fetch error", slog.String("topic", fe.Topic), slog.Int("partition", int(fe.Partition)), slog.Any("error", fe.Err))
			}
			if !sleep(ctx, b.NextBackOff()) {
				return nil
			}
			continue
		}
		if fetches.NumRecords() == 0 {
			continue
		}

		if err := c.session.Begin(); err != nil {
			return fmt.Errorf("op=redpanda.Run: begin: %w", err)
		}
		procErr := c.processBatch(ctx, fetches.Records())
		commit := kgo.TryCommit
		if procErr != nil {
			slog.Warn("aborting batch for redelivery", slog.Int("records", fetches.NumRecords()), slog.Any("error", procErr))
			commit = kgo.TryAbort
		}
		committed, err := c.session.End(ctx, commit)
		if err != nil {
			slog.Error("failed to end transaction", slog.Any("error", err))
		}
		if procErr != nil || err != nil || !committed {
			if !sleep(ctx, b.NextBackOff()) {
				return nil
			}
			continue
		}
		b.Reset()
	}
}

// Close leaves the group and closes the session.
func (c *Consumer) Close() {
	if c.session != nil {
		c.session.Close()
	}
}

func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, rec := range records {
		rec := rec
		g.Go(func() error { return c.processRecord(gctx, rec) })
	}
	return g.Wait()
}

// processRecord returns an error only when the record should be redelivered.
func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) error {
	ctx, span := otel.Tracer("queue.consumer").Start(ctx, "ProcessRankRequest")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", rec.Topic),
		attribute.Int64("messaging.kafka.offset", rec.Offset),
	)

	payload, err := decodeRankPayload(rec)
	if err != nil {
		slog.Error("dropping undecodable rank request",
			slog.String("topic", rec.Topic),
			slog.Int64("offset", rec.Offset),
			slog.Any("error", err))
		span.SetStatus(codes.Error, "poison record")
		return nil
	}
	if payload.RequestID != "" {
		ctx = observability.ContextWithRequestID(ctx, payload.RequestID)
		ctx = observability.ContextWithAttrs(ctx, slog.String("request_id", payload.RequestID))
	}
	span.SetAttributes(attribute.String("job.id", payload.JobID))
	lg := observability.LoggerFromContext(ctx).With(slog.String("job_id", payload.JobID))

	if err := c.handler.HandleRank(ctx, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if permanent(err) {
			lg.Error("rank request rejected, not retrying", slog.Any("error", err))
			return nil
		}
		lg.Error("rank request failed", slog.Any("error", err))
		return err
	}
	return nil
}

func decodeRankPayload(rec *kgo.Record) (domain.RankTaskPayload, error) {
	if t := header(rec, "event_type"); t != "" && t != EventRankRequest {
		return domain.RankTaskPayload{}, fmt.Errorf("%w: unexpected event type %q", domain.ErrSchemaInvalid, t)
	}
	var p domain.RankTaskPayload
	if err := json.Unmarshal(rec.Value, &p); err != nil {
		return domain.RankTaskPayload{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if strings.TrimSpace(p.JobID) == "" {
		p.JobID = string(rec.Key)
	}
	if strings.TrimSpace(p.JobID) == "" {
		return domain.RankTaskPayload{}, fmt.Errorf("%w: job id missing", domain.ErrSchemaInvalid)
	}
	if p.RequestID == "" {
		p.RequestID = header(rec, "request_id")
	}
	if p.RunID == "" {
		p.RunID = header(rec, "run_id")
	}
	return p, nil
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrSchemaInvalid)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
