package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/billforge/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedis starts a miniredis server and a client pointing at it
func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func redisConfigFor(t *testing.T, mr *miniredis.Miniredis) config.RedisConfig {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("connects and pings", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := NewRedisClient(context.Background(), redisConfigFor(t, mr))
		require.NoError(t, err)
		defer client.Close()
		assert.NoError(t, client.Ping(context.Background()).Err())
	})

	t.Run("fails when server is down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := redisConfigFor(t, mr)
		mr.Close()

		_, err := NewRedisClient(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})
}

func TestRedisIdempotencyStore(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewRedisIdempotencyStore(client, "test:")
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, mr.Exists("test:evt-1"))

	isNew, err = store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)

	mr.FastForward(2 * time.Hour)
	processed, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.Close())
	assert.NoError(t, client.Ping(ctx).Err(), "store does not own the client")
}

func TestRedisIdempotencyStore_ServerError(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewRedisIdempotencyStore(client, "")
	mr.SetError("LOADING")

	_, err := store.MarkProcessed(context.Background(), "evt", time.Hour)
	require.Error(t, err)
}

func TestIdempotencyStoreFactory(t *testing.T) {
	t.Run("uses redis when a client is configured", func(t *testing.T) {
		client, _ := setupRedis(t)
		store, err := NewIdempotencyStoreFactory(client, WithKeyPrefix("svc:")).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &RedisIdempotencyStore{}, store)
	})

	t.Run("falls back to memory without a client", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(nil, WithLocalLimits(10, time.Minute)).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("refuses without a client when fallback is disabled", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(nil, WithInMemoryFallback(false)).CreateStore()
		require.Error(t, err)
	})
}
