// Package redpanda carries rank requests and decision events over
// Redpanda/Kafka with transactional producers and a group-transact consumer.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	obs "github.com/fairyhunter13/ai-candidate-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-candidate-screener/internal/domain"
	"github.com/fairyhunter13/ai-candidate-screener/internal/observability"
)

const (
	// TopicRankRequests carries async rank requests to workers.
	TopicRankRequests = "rank-requests"
	// TopicCandidateDecisions carries ranking and re-evaluation events.
	TopicCandidateDecisions = "candidate-decisions"

	EventRankRequest          = "rank_request"
	EventRankingCompleted     = "ranking_completed"
	EventCandidateReevaluated = "candidate_reevaluated"
)

// ProducerConfig configures a Producer. Each process needs its own
// TransactionalID.
type ProducerConfig struct {
	Brokers         []string
	TransactionalID string
	Partitions      int32
	Replication     int16
}

// Producer implements domain.Queue and domain.EventPublisher. Every record is
// written in its own transaction; transactions are serialised.
type Producer struct {
	client *kgo.Client
	txLock chan struct{}
}

// NewProducer connects and makes sure both topics exist.
func NewProducer(ctx context.Context, cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.NewProducer: no seed brokers provided")
	}
	if cfg.TransactionalID == "" {
		return nil, fmt.Errorf("op=redpanda.NewProducer: transactional id required")
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.Replication <= 0 {
		cfg.Replication = 1
	}

	k := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.TransactionalID(cfg.TransactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.WithHooks(k.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.NewProducer: %w", err)
	}
	for _, topic := range []string{TopicRankRequests, TopicCandidateDecisions} {
		if err := createTopicIfNotExists(ctx, client, topic, cfg.Partitions, cfg.Replication); err != nil {
			slog.Warn("failed to ensure topic", slog.String("topic", topic), slog.Any("error", err))
		}
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", cfg.Brokers), slog.String("transactional_id", cfg.TransactionalID))
	return &Producer{client: client, txLock: make(chan struct{}, 1)}, nil
}

// EnqueueRank publishes a rank request keyed by job id and returns the job id.
func (p *Producer) EnqueueRank(ctx domain.Context, payload domain.RankTaskPayload) (string, error) {
	rec, err := rankRecord(payload)
	if err != nil {
		return "", fmt.Errorf("op=redpanda.EnqueueRank: %w", err)
	}
	if err := p.produce(ctx, rec); err != nil {
		return "", fmt.Errorf("op=redpanda.EnqueueRank: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("rank request enqueued",
		slog.String("job_id", payload.JobID), slog.Int("candidates", len(payload.Candidates)))
	return payload.JobID, nil
}

// PublishRankingCompleted emits a ranking_completed event.
func (p *Producer) PublishRankingCompleted(ctx domain.Context, ev domain.RankingCompletedEvent) error {
	rec, err := eventRecord(EventRankingCompleted, ev.JobID, ev)
	if err == nil {
		err = p.produce(ctx, rec)
	}
	obs.EventPublished(TopicCandidateDecisions, err)
	if err != nil {
		return fmt.Errorf("op=redpanda.PublishRankingCompleted: %w", err)
	}
	return nil
}

// PublishCandidateReevaluated emits a candidate_reevaluated event.
func (p *Producer) PublishCandidateReevaluated(ctx domain.Context, ev domain.CandidateReevaluatedEvent) error {
	rec, err := eventRecord(EventCandidateReevaluated, ev.JobID, ev)
	if err == nil {
		err = p.produce(ctx, rec)
	}
	obs.EventPublished(TopicCandidateDecisions, err)
	if err != nil {
		return fmt.Errorf("op=redpanda.PublishCandidateReevaluated: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error { return p.client.Ping(ctx) }

// Close flushes and closes the client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

func (p *Producer) produce(ctx context.Context, rec *kgo.Record) error {
	select {
	case p.txLock <- struct{}{}:
		defer func() { <-p.txLock }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, rec, e.Promise())
	if err := e.Err(); err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return fmt.Errorf("produce: %w", err)
	}
	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func rankRecord(payload domain.RankTaskPayload) (*kgo.Record, error) {
	if payload.JobID == "" {
		return nil, fmt.Errorf("%w: job id required", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	headers := []kgo.RecordHeader{
		{Key: "event_type", Value: []byte(EventRankRequest)},
		{Key: "job_id", Value: []byte(payload.JobID)},
	}
	if payload.RequestID != "" {
		headers = append(headers, kgo.RecordHeader{Key: "request_id", Value: []byte(payload.RequestID)})
	}
	if payload.RunID != "" {
		headers = append(headers, kgo.RecordHeader{Key: "run_id", Value: []byte(payload.RunID)})
	}
	return &kgo.Record{Topic: TopicRankRequests, Key: []byte(payload.JobID), Value: b, Headers: headers}, nil
}

func eventRecord(eventType, jobID string, v any) (*kgo.Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return &kgo.Record{
		Topic: TopicCandidateDecisions,
		Key:   []byte(jobID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "job_id", Value: []byte(jobID)},
		},
	}, nil
}

func header(rec *kgo.Record, key string) string {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
