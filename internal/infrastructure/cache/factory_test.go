package cache

import (
	"testing"
	"time"

	"github.com/finadmin/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// port 1 is never a Redis server, so the connection check fails fast
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestRateCacheFactory_MemoryBackend(t *testing.T) {
	f := NewRateCacheFactory(config.FXConfig{CacheBackend: "memory", CacheTTL: time.Hour}, unreachableRedis)
	c, err := f.Create()
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &InMemoryRateCache{}, c)
}

func TestRateCacheFactory_RedisFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := NewRateCacheFactory(
		config.FXConfig{CacheBackend: "redis", CacheTTL: time.Hour},
		unreachableRedis,
		WithLogger(zap.New(core)),
	)

	c, err := f.Create()
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &InMemoryRateCache{}, c)
	assert.Equal(t, 1, logs.Len())
}

func TestRateCacheFactory_RedisRequired(t *testing.T) {
	f := NewRateCacheFactory(
		config.FXConfig{CacheBackend: "redis", CacheTTL: time.Hour},
		unreachableRedis,
		WithInMemoryFallback(false),
	)
	_, err := f.Create()
	assert.ErrorContains(t, err, "redis rate cache unavailable")
}
