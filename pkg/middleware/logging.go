package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
)

const correlationHeader = "X-Correlation-ID"

// RequestLogging assigns the correlation id and writes one access log line
// per request once the handler returns. Event streams are logged when the
// client disconnects, with their full lifetime as duration.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := correlationID(r.Header.Get(correlationHeader))
			ctx := logger.WithCorrelationID(r.Context(), id)
			w.Header().Set(correlationHeader, id)

			rec := record(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			msg := "http request"
			if rec.streaming() {
				msg = "http stream closed"
			}
			l.Log(ctx, accessLevel(rec.status), msg,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", rec.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", id),
			)
		})
	}
}

// correlationID keeps a caller-supplied id only when it is a short printable
// token; anything else is replaced so it cannot forge log lines.
func correlationID(given string) string {
	if given == "" || len(given) > 128 {
		return uuid.NewString()
	}
	for _, c := range given {
		if c <= ' ' || c > '~' {
			return uuid.NewString()
		}
	}
	return given
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
