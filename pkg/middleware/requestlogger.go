package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
)

// GuestIDHeader carries the anonymous cart owner id between browser and BFF.
const GuestIDHeader = "X-Guest-ID"

// RequestLogger stores a logger carrying the caller's identity and the trace
// ids in the request context, for handlers to pick up with logger.FromContext.
// It must run after Tracing and the auth middleware.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := withCaller(r.Context(), r.Header.Get(GuestIDHeader))
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withCaller prefers the authenticated user. A guest id is client supplied,
// so only a well-formed UUID is logged.
func withCaller(ctx context.Context, guestID string) context.Context {
	if userID := UserIDFromContext(ctx); userID != "" {
		return logger.WithUserID(ctx, userID)
	}
	if _, err := uuid.Parse(guestID); guestID != "" && err == nil {
		return logger.WithGuestID(ctx, guestID)
	}
	return ctx
}
