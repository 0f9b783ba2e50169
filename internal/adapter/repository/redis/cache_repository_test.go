package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CacheRepository, *redis.Client, string) {
	t.Helper()
	addr := os.Getenv("CELLGUARD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CELLGUARD_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	ns := "test-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), ns+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
	})
	return NewCacheRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil))), client, ns
}

func TestCacheRepository_SetWithTTL(t *testing.T) {
	cache, client, ns := newTestCache(t)
	ctx := context.Background()

	key := ns + ":alert:FR-1"
	require.NoError(t, cache.SetWithTTL(ctx, key, []byte(`{"severity":"high"}`), 5*time.Minute))

	val, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"high"}`, val)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 4*time.Minute)
}

func TestCacheRepository_PushBounded(t *testing.T) {
	cache, client, ns := newTestCache(t)
	ctx := context.Background()

	key := ns + ":alerts:active"
	for i := 0; i < 120; i++ {
		require.NoError(t, cache.PushBounded(ctx, key, fmt.Sprintf("FR-%03d", i), 100))
	}

	list, err := client.LRange(ctx, key, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, list, 100)
	assert.Equal(t, "FR-119", list[0])
	assert.Equal(t, "FR-020", list[99])
}

func TestCacheRepository_Increment(t *testing.T) {
	cache, _, ns := newTestCache(t)
	ctx := context.Background()

	key := ns + ":metrics:critical_count"
	for want := int64(1); want <= 3; want++ {
		got, err := cache.Increment(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCacheRepository_TracksAvailability(t *testing.T) {
	// Nothing listens on this port.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	cache := NewCacheRepository(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.True(t, cache.IsAvailable())
	assert.Error(t, cache.Ping(context.Background()))
	assert.False(t, cache.IsAvailable())
	_, err := cache.Increment(context.Background(), "k")
	assert.Error(t, err)
}
