package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "fx:rate:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisRateCache shares resolved quotes between instances through Redis
type RedisRateCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisRateCache connects to Redis and verifies the connection
func NewRedisRateCache(cfg RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisRateCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRateCacheWithClient(client, "", ttl, logger), nil
}

// NewRedisRateCacheWithClient wraps an existing client
func NewRedisRateCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisRateCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *RedisRateCache) key(base, quote valueobject.Currency) string {
	return c.keyPrefix + pairKey(base, quote)
}

// Get reads a quote. Redis failures are logged and reported as a miss.
func (c *RedisRateCache) Get(ctx context.Context, base, quote valueobject.Currency) (fx.Quote, bool) {
	data, err := c.client.Get(ctx, c.key(base, quote)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis rate cache read failed", zap.Error(err))
		}
		return fx.Quote{}, false
	}

	var q fx.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		c.logger.Warn("discarding undecodable cached rate", zap.String("key", c.key(base, quote)), zap.Error(err))
		return fx.Quote{}, false
	}
	return q, true
}

// Set writes a quote with the cache TTL. A zero TTL disables caching.
func (c *RedisRateCache) Set(ctx context.Context, q fx.Quote) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode rate: %w", err)
	}
	if err := c.client.Set(ctx, c.key(q.Base, q.Quote), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rate: %w", err)
	}
	return nil
}

// Clear removes every key under the cache prefix
func (c *RedisRateCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached rates: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cached rates: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisRateCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisRateCache) Close() error {
	return c.client.Close()
}

var _ fx.RateCache = (*RedisRateCache)(nil)
