package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
	"github.com/nongtiensonpro/yellowcat/pkg/middleware"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/domain"
)

type contextKey string

const ownerKey contextKey = "cart_owner"

// ResolveOwner decides whose cart a request addresses. An authenticated
// request (see middleware.OptionalAuth) uses the account cart. Anything else
// is a guest identified by X-Guest-ID; a missing or malformed id is replaced
// by a fresh one, and the id in use is echoed in the response.
func ResolveOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var owner domain.Owner
		if userID := middleware.UserIDFromContext(ctx); userID != "" {
			owner = domain.Owner{Mode: domain.ModeAccount, ID: userID}
		} else {
			guestID := r.Header.Get(middleware.GuestIDHeader)
			if _, err := uuid.Parse(guestID); err != nil {
				guestID = uuid.NewString()
			}
			owner = domain.Owner{Mode: domain.ModeGuest, ID: guestID}
			w.Header().Set(middleware.GuestIDHeader, guestID)
			ctx = logger.WithGuestID(ctx, guestID)
		}

		ctx = context.WithValue(ctx, ownerKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerFromContext returns the owner set by ResolveOwner.
func ownerFromContext(ctx context.Context) (domain.Owner, bool) {
	owner, ok := ctx.Value(ownerKey).(domain.Owner)
	return owner, ok && owner.ID != ""
}
