package cache

import (
	"fmt"
	"io"
	"time"

	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Closable is a rate cache that owns resources
type Closable interface {
	fx.RateCache
	io.Closer
}

// RateCacheFactory builds the configured rate cache
type RateCacheFactory struct {
	redisConfig           config.RedisConfig
	backend               string
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RateCacheFactoryOption configures the factory
type RateCacheFactoryOption func(*RateCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RateCacheFactoryOption {
	return func(f *RateCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to memory.
// Default is true.
func WithInMemoryFallback(allow bool) RateCacheFactoryOption {
	return func(f *RateCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewRateCacheFactory creates a factory from the fx and redis config sections
func NewRateCacheFactory(fxCfg config.FXConfig, redisCfg config.RedisConfig, opts ...RateCacheFactoryOption) *RateCacheFactory {
	f := &RateCacheFactory{
		redisConfig:           redisCfg,
		backend:               fxCfg.CacheBackend,
		ttl:                   fxCfg.CacheTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the cache selected by fx.cache_backend
func (f *RateCacheFactory) Create() (Closable, error) {
	if f.backend != "redis" {
		f.logger.Info("using in-memory rate cache", zap.Duration("ttl", f.ttl))
		return NewInMemoryRateCache(f.ttl), nil
	}

	store, err := NewRedisRateCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl, f.logger)
	if err == nil {
		f.logger.Info("using Redis rate cache", zap.Duration("ttl", f.ttl))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis rate cache unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory rate cache. "+
		"Instances will not share cached rates.",
		zap.Error(err),
	)
	return NewInMemoryRateCache(f.ttl), nil
}
