package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// restoreGlobals puts back the otel globals a test replaces.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestInitTracer_Disabled(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "storefront"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Same(t, before, otel.GetTracerProvider())
}

func TestInitTracer_Enabled(t *testing.T) {
	restoreGlobals(t)

	for _, rate := range []float64{1, 0.5, 0} {
		shutdown, err := InitTracer(context.Background(), Config{
			ServiceName:    "admin",
			ServiceVersion: "0.1.0",
			Environment:    "test",
			OTLPEndpoint:   "127.0.0.1:0",
			SampleRate:     rate,
			Enabled:        true,
		})
		require.NoError(t, err)

		assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
		fields := otel.GetTextMapPropagator().Fields()
		assert.Contains(t, fields, "traceparent")
		assert.Contains(t, fields, "baggage")

		// The endpoint is unreachable; a flush error is expected and harmless.
		_ = shutdown(context.Background())
	}
}

func TestNewSampler(t *testing.T) {
	tests := map[float64]string{
		1:    "AlwaysOnSampler",
		3:    "AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-0.5: "AlwaysOffSampler",
		0.25: "TraceIDRatioBased{0.25}",
	}
	for rate, root := range tests {
		desc := newSampler(rate).Description()
		assert.True(t, strings.HasPrefix(desc, "ParentBased{root:"+root), "rate %v: %s", rate, desc)
	}
}

func TestStart(t *testing.T) {
	restoreGlobals(t)
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, endFetch := Start(context.Background(), "yellowcat/storefront/backend", "backend.FetchCart",
		attribute.String("keycloak_id", "kc-1"))
	_, endChild := Start(ctx, "yellowcat/storefront/backend", "decode")
	endChild(nil)
	endFetch(errors.New("connection refused"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	child, parent := spans[0], spans[1]

	assert.Equal(t, "decode", child.Name())
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
	assert.Equal(t, codes.Unset, child.Status().Code)

	assert.Equal(t, "backend.FetchCart", parent.Name())
	assert.Equal(t, codes.Error, parent.Status().Code)
	assert.Equal(t, "connection refused", parent.Status().Description)
	assert.Contains(t, parent.Attributes(), attribute.String("keycloak_id", "kc-1"))
	require.NotEmpty(t, parent.Events())
	assert.Equal(t, "exception", parent.Events()[0].Name)
}
