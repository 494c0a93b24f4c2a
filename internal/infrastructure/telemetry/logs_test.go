package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerProvider_DisabledYieldsNopCore(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))

	core := lp.ZapCore(zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	var nilProvider *LoggerProvider
	assert.False(t, nilProvider.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	logger := zap.New(core).With(zap.String("component", "fx"))

	logger.Debug("cache miss")
	logger.Info("rates refreshed")
	logger.Warn("rate api unavailable, using fallback")
	logger.Error("refresh failed")

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "rate api unavailable, using fallback", entries[0].Message)
	assert.Equal(t, "fx", entries[0].ContextMap()["component"])
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}
