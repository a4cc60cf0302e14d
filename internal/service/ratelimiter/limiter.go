// Package ratelimiter throttles outbound answer-evaluation calls with a token
// bucket kept in Redis, so every server and worker replica shares one budget.
package ratelimiter

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BucketAnswerEval is the bucket consulted before each LLM answer evaluation.
const BucketAnswerEval = "answer_eval"

// Limiter decides whether a call spending cost tokens from bucket may proceed.
type Limiter interface {
	Allow(ctx context.Context, bucket string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig describes one token bucket. A zero value disables limiting.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// PerMinute returns a bucket refilling perMinute tokens every minute.
func PerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// RedisLimiter evaluates the bucket atomically with a Lua script.
type RedisLimiter struct {
	rdb     redis.Scripter
	prefix  string
	script  *redis.Script
	mu      sync.RWMutex
	buckets map[string]BucketConfig
	now     func() time.Time
}

// NewRedisLimiter returns nil when rdb is nil; a nil limiter allows everything.
func NewRedisLimiter(rdb redis.Scripter, buckets map[string]BucketConfig) *RedisLimiter {
	if rdb == nil {
		return nil
	}
	cp := make(map[string]BucketConfig, len(buckets))
	for k, v := range buckets {
		cp[k] = v
	}
	return &RedisLimiter{
		rdb:     rdb,
		prefix:  "rate:",
		script:  redis.NewScript(tokenBucketScript),
		buckets: cp,
		now:     time.Now,
	}
}

// Redis truncates Lua numbers to integers on return, so tokens are reported in
// thousandths and the wait in milliseconds.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local wait_ms = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif refill_rate > 0 then
  wait_ms = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tokens, "last_refill", now)
redis.call("EXPIRE", key, ttl)

return { allowed, math.floor(tokens * 1000), wait_ms }
`

// Allow fails open: Redis errors allow the call and are returned for logging.
func (l *RedisLimiter) Allow(ctx context.Context, bucket string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[bucket]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(l.now().UnixNano()) / 1e9
	// idle buckets expire once they would have refilled completely
	ttl := int64(math.Ceil(float64(cfg.Capacity)/cfg.RefillRate)) + 1

	res, err := l.script.Run(ctx, l.rdb, []string{l.prefix + bucket}, cfg.Capacity, cfg.RefillRate, nowSec, cost, ttl).Slice()
	if err != nil {
		slog.Error("rate limiter script failed", slog.String("bucket", bucket), slog.Any("error", err))
		return true, 0, err
	}
	if len(res) < 3 {
		slog.Error("rate limiter unexpected script result", slog.String("bucket", bucket), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := toInt64(res[0]) == 1
	retryAfter := time.Duration(toInt64(res[2])) * time.Millisecond
	return allowed, retryAfter, nil
}

// SetBucket replaces the configuration of bucket. Safe for concurrent use.
func (l *RedisLimiter) SetBucket(bucket string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[bucket] = cfg
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
