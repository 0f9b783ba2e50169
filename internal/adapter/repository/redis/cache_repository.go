package redis

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheRepository implements domain.Cache on Redis. It remembers whether the
// last command succeeded so that an outage is logged once, not per command.
type CacheRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	isAvailable atomic.Bool
}

// NewCacheRepository creates a new Redis-backed cache.
func NewCacheRepository(client *redis.Client, logger *slog.Logger) *CacheRepository {
	repo := &CacheRepository{
		client: client,
		logger: logger.With("component", "redis_cache"),
	}
	repo.isAvailable.Store(true) // Assume available initially
	return repo
}

// SetWithTTL stores value under key with an expiry.
func (r *CacheRepository) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.track(r.client.Set(ctx, key, value, ttl).Err())
}

// PushBounded prepends value to the list at key and trims the list to its
// newest maxLen entries, atomically.
func (r *CacheRepository) PushBounded(ctx context.Context, key, value string, maxLen int64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, maxLen-1)
		return nil
	})
	return r.track(err)
}

// Increment adds one to the counter at key and returns the new value.
func (r *CacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	return n, r.track(err)
}

// Ping checks connectivity and updates the availability flag.
func (r *CacheRepository) Ping(ctx context.Context) error {
	return r.track(r.client.Ping(ctx).Err())
}

// IsAvailable reports whether the last command reached Redis.
func (r *CacheRepository) IsAvailable() bool {
	return r.isAvailable.Load()
}

func (r *CacheRepository) track(err error) error {
	if err != nil {
		if r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis connection lost", "error", err)
		}
		return err
	}
	if r.isAvailable.CompareAndSwap(false, true) {
		r.logger.Info("Redis connection recovered")
	}
	return nil
}
