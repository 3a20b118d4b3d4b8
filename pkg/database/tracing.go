package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nongtiensonpro/yellowcat/pkg/database"

// TraceCommand opens a client span named "redis.<operation>" around one
// repository call. Call the returned func with the call's error:
//
//	ctx, end := database.TraceCommand(ctx, "GetGuestCart", key)
//	defer func() { end(err) }()
//
// redis.Nil is a cache miss, not a failure, and leaves the span status unset.
func TraceCommand(ctx context.Context, operation, key string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "redis."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", operation),
			attribute.String("db.redis.key", key),
		),
	)
	return ctx, func(err error) {
		if err != nil && !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// SlowCommandHook is a redis.Hook that warns about every command, or whole
// pipeline, taking at least threshold.
type SlowCommandHook struct {
	threshold time.Duration
	logger    *slog.Logger
}

var _ redis.Hook = SlowCommandHook{}

func NewSlowCommandHook(threshold time.Duration, logger *slog.Logger) SlowCommandHook {
	return SlowCommandHook{threshold: threshold, logger: logger}
}

func (h SlowCommandHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h SlowCommandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, time.Since(start), err, slog.String("command", cmd.Name()), slog.String("key", commandKey(cmd)))
		return err
	}
}

func (h SlowCommandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe(ctx, time.Since(start), err, slog.String("command", "pipeline"), slog.Int("commands", len(cmds)))
		return err
	}
}

func (h SlowCommandHook) observe(ctx context.Context, elapsed time.Duration, err error, attrs ...slog.Attr) {
	if elapsed < h.threshold {
		return
	}
	attrs = append(attrs, slog.Duration("duration", elapsed))
	if err != nil && !errors.Is(err, redis.Nil) {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger.LogAttrs(ctx, slog.LevelWarn, "slow redis command", attrs...)
}

// commandKey is the first argument after the command name, which for the
// commands the repositories issue is the key.
func commandKey(cmd redis.Cmder) string {
	if args := cmd.Args(); len(args) > 1 {
		return fmt.Sprint(args[1])
	}
	return ""
}
