package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/finadmin/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	tenantID := uuid.New()

	ctx, span := telemetry.StartServiceSpan(context.Background(), "settlement", "record",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, decimal.RequireFromString("400.10"),
		telemetry.SpanAttrCurrency, "EUR",
		42, "ignored",
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "settlement.record", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, tenantID.String(), attrs[telemetry.SpanAttrTenantID])
	assert.Equal(t, "400.1", attrs[telemetry.SpanAttrAmount])
	assert.Equal(t, "EUR", attrs[telemetry.SpanAttrCurrency])
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "fx.get_rate")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("rate api down"))
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "rate api down", got.Status().Description)
	require.Len(t, got.Events(), 1)
}

func TestAddEventAndSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "fx.refresh")
	telemetry.AddEvent(span, "rates_stored", "count", 160)
	telemetry.SetOK(span)
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Ok, got.Status().Code)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "rates_stored", got.Events()[0].Name)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}
