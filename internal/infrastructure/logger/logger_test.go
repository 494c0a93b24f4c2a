package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("writes json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(&Config{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		l.Info("fx refreshed", zap.Int("count", 4))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"fx refreshed"`)
		assert.Contains(t, string(data), `"count":4`)
	})

	t.Run("tees into extra core with fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		l, err := New(&Config{Level: "error", Output: "stderr"},
			WithCore(core),
			WithFields(zap.String("service", "finadmin")),
		)
		require.NoError(t, err)

		l.Info("visible to the extra core only")
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "visible to the extra core only", entry.Message)
		assert.Equal(t, "finadmin", entry.ContextMap()["service"])
	})
}
