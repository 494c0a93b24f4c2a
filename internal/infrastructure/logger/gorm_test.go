package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM fx_rates", 3 }
	ctx := WithTenantID(WithRequestID(context.Background(), "req-1"), "t-1")

	t.Run("error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, 0)
		l.Trace(ctx, time.Now(), sql, errors.New("relation missing"))

		entries := logs.FilterMessage("SQL Error").All()
		assert.Len(t, entries, 1)
		assert.Equal(t, "t-1", entries[0].ContextMap()["tenant_id"])
		assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, 0)
		l.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())
	})

	t.Run("slow query", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, time.Millisecond)
		l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})

	t.Run("silent", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info, 0).LogMode(gormlogger.Silent)
		l.Trace(ctx, time.Now(), sql, errors.New("x"))
		assert.Zero(t, logs.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
