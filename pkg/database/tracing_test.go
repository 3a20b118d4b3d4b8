package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestTraceCommand(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status codes.Code
		events int
	}{
		{"ok", nil, codes.Unset, 0},
		{"cache miss", redis.Nil, codes.Unset, 0},
		{"failure", errors.New("connection refused"), codes.Error, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recordSpans(t)

			ctx, parent := otel.Tracer("test").Start(context.Background(), "GET /api/v1/cart")
			_, end := TraceCommand(ctx, "GetGuestCart", "cart:guest:abc")
			end(tt.err)
			parent.End()

			spans := rec.Ended()
			require.Len(t, spans, 2)
			span := spans[0]
			assert.Equal(t, "redis.GetGuestCart", span.Name())
			assert.Equal(t, spans[1].SpanContext().SpanID(), span.Parent().SpanID())
			assert.Equal(t, tt.status, span.Status().Code)
			assert.Len(t, span.Events(), tt.events)

			attrs := map[string]string{}
			for _, a := range span.Attributes() {
				attrs[string(a.Key)] = a.Value.Emit()
			}
			assert.Equal(t, map[string]string{
				"db.system":    "redis",
				"db.operation": "GetGuestCart",
				"db.redis.key": "cart:guest:abc",
			}, attrs)
		})
	}
}

func hookedClient(t *testing.T, threshold time.Duration) (*redis.Client, *bytes.Buffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	var buf bytes.Buffer
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	rdb.AddHook(NewSlowCommandHook(threshold, slog.New(slog.NewJSONHandler(&buf, nil))))
	return rdb, &buf
}

// logLine returns the single log line containing marker.
func logLine(t *testing.T, logs *bytes.Buffer, marker string) string {
	t.Helper()
	var found []string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, marker) {
			found = append(found, line)
		}
	}
	require.Len(t, found, 1, logs.String())
	return found[0]
}

func TestSlowCommandHook(t *testing.T) {
	ctx := context.Background()

	t.Run("fast commands are quiet", func(t *testing.T) {
		rdb, logs := hookedClient(t, time.Hour)
		require.NoError(t, rdb.Set(ctx, "cart:guest:abc", "{}", 0).Err())
		assert.Empty(t, logs.String())
	})

	t.Run("slow command names its key", func(t *testing.T) {
		rdb, logs := hookedClient(t, time.Nanosecond)
		require.NoError(t, rdb.Set(ctx, "refdata:colors:list", "[]", 0).Err())
		assert.Contains(t, logs.String(), `"msg":"slow redis command"`)
		assert.Contains(t, logs.String(), `"command":"set"`)
		assert.Contains(t, logs.String(), `"key":"refdata:colors:list"`)
	})

	t.Run("miss is not an error", func(t *testing.T) {
		rdb, logs := hookedClient(t, time.Nanosecond)
		assert.ErrorIs(t, rdb.Get(ctx, "cart:guest:none").Err(), redis.Nil)
		line := logLine(t, logs, `"command":"get"`)
		assert.Contains(t, line, `"key":"cart:guest:none"`)
		assert.NotContains(t, line, `"error"`)
	})

	t.Run("pipeline counts commands", func(t *testing.T) {
		rdb, logs := hookedClient(t, time.Nanosecond)
		_, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, "a", 1, 0)
			p.Set(ctx, "b", 2, 0)
			return nil
		})
		require.NoError(t, err)
		assert.Contains(t, logs.String(), `"command":"pipeline","commands":2`)
	})
}
