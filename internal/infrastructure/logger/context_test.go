package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestRequestAndTenantIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenantID(ctx, "tenant-9")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-9", GetTenantID(ctx))
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithTenantID(ctx, "t-1")

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	L(ctx).With(zap.String("component", "fx")).Warn("fallback rate used")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "t-1", fields["tenant_id"])
	assert.Equal(t, "fx", fields["component"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}

func TestWithLogger_OverridesContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithLogger(context.Background(), zap.New(core)).Info("hello")
	assert.Equal(t, 1, logs.Len())

	// nothing attached: must not panic
	L(context.Background()).Error("dropped")
}
