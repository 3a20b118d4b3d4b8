package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "event_type", Value: []byte("cart.changed")}}}
	c := headerCarrier{msg: &msg}

	assert.Equal(t, "cart.changed", c.Get("event_type"))
	assert.Empty(t, c.Get("traceparent"))

	c.Set("source", "storefront")
	c.Set("event_type", "cart.cleared")

	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "cart.cleared", c.Get("event_type"))
	assert.ElementsMatch(t, []string{"event_type", "source"}, c.Keys())
	assert.Empty(t, headerCarrier{msg: &kafka.Message{}}.Keys())
}

func TestTraceContextSurvivesMessage(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tid, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))

	msg := kafka.Message{Topic: Topic("cart", "changed")}
	injectTraceContext(ctx, &msg)
	injectTraceContext(ctx, &msg)
	require.Len(t, msg.Headers, 1, "re-injecting must overwrite traceparent")

	got := trace.SpanContextFromContext(extractTraceContext(context.Background(), &msg))
	assert.Equal(t, tid, got.TraceID())
	assert.Equal(t, sid, got.SpanID())
	assert.True(t, got.IsRemote())
}
