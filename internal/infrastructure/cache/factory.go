package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewRedisClient opens a client for cfg and verifies it with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// IdempotencyStoreFactory picks an idempotency store for the deployment
type IdempotencyStoreFactory struct {
	client                *redis.Client
	keyPrefix             string
	localSize             int
	maxTTL                time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a nil Redis client falls back to the
// in-memory store. Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithKeyPrefix namespaces Redis keys
func WithKeyPrefix(prefix string) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.keyPrefix = prefix
	}
}

// WithLocalLimits bounds the in-memory fallback store
func WithLocalLimits(size int, maxTTL time.Duration) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.localSize = size
		f.maxTTL = maxTTL
	}
}

// NewIdempotencyStoreFactory creates a factory; client may be nil when Redis is disabled
func NewIdempotencyStoreFactory(client *redis.Client, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		client:                client,
		keyPrefix:             "billing:",
		localSize:             defaultLocalIdempotencySize,
		maxTTL:                shared.DefaultIdempotencyConfig().TTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the Redis store when a client is configured, otherwise
// the in-memory store if fallback is allowed
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	if f.client != nil {
		f.logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(f.client, f.keyPrefix+"idempotency:"), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis is required for idempotency but not configured")
	}

	// Deliveries to different instances are not deduplicated.
	f.logger.Warn("Redis disabled, using in-memory idempotency store")
	return NewInMemoryIdempotencyStore(f.localSize, f.maxTTL), nil
}
