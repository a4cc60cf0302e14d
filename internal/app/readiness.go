package app

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by the pgx pool and the Kafka producer.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPinger is the slice of a go-redis client readiness needs.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

var errNotConfigured = errors.New("not configured")

// BuildReadinessChecks returns the db, redis and broker checks.
func BuildReadinessChecks(pool Pinger, rdb RedisPinger, broker Pinger) (
	dbCheck func(ctx context.Context) error,
	redisCheck func(ctx context.Context) error,
	brokerCheck func(ctx context.Context) error,
) {
	dbCheck = func(ctx context.Context) error {
		if pool == nil {
			return errNotConfigured
		}
		return pool.Ping(ctx)
	}
	redisCheck = func(ctx context.Context) error {
		if rdb == nil {
			return errNotConfigured
		}
		return rdb.Ping(ctx).Err()
	}
	brokerCheck = func(ctx context.Context) error {
		if broker == nil {
			return errNotConfigured
		}
		return broker.Ping(ctx)
	}
	return dbCheck, redisCheck, brokerCheck
}
