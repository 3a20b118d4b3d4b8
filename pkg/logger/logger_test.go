package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func spanContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	tid, err := trace.TraceIDFromHex("5b8efff798038103d269b633813fc60c")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("eee19b7ec3c1b174")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("admin", "warn", &buf)
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	rec := decodeRecord(t, &buf)
	assert.Equal(t, "admin", rec["service"])
	assert.NotContains(t, rec, "source")
}

func TestNewWithWriter_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("admin", "debug", &buf).Debug("visible")
	assert.Contains(t, decodeRecord(t, &buf), "source")
}

func TestWithContext(t *testing.T) {
	traced, sc := spanContext(t)

	tests := []struct {
		name    string
		ctx     context.Context
		want    map[string]string
		missing []string
	}{
		{
			name:    "empty context",
			ctx:     context.Background(),
			missing: []string{"correlation_id", "user_id", "guest_id", "trace_id", "span_id"},
		},
		{
			name:    "guest cart request",
			ctx:     WithCorrelationID(WithGuestID(context.Background(), "guest-42"), "req-1"),
			want:    map[string]string{"correlation_id": "req-1", "guest_id": "guest-42"},
			missing: []string{"user_id", "trace_id"},
		},
		{
			name:    "user wins over guest",
			ctx:     WithUserID(WithGuestID(context.Background(), "guest-42"), "kc-1"),
			want:    map[string]string{"user_id": "kc-1"},
			missing: []string{"guest_id"},
		},
		{
			name: "traced account request",
			ctx:  WithUserID(WithCorrelationID(traced, "req-2"), "kc-2"),
			want: map[string]string{
				"correlation_id": "req-2",
				"user_id":        "kc-2",
				"trace_id":       sc.TraceID().String(),
				"span_id":        sc.SpanID().String(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WithContext(tt.ctx, NewWithWriter("storefront", "info", &buf)).Info("cart")

			rec := decodeRecord(t, &buf)
			for k, v := range tt.want {
				assert.Equal(t, v, rec[k], k)
			}
			for _, k := range tt.missing {
				assert.NotContains(t, rec, k)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("storefront", "info", &buf)

	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestContextAccessors_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationIDFromContext(ctx))
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Empty(t, GuestIDFromContext(ctx))
}
