package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nongtiensonpro/yellowcat/pkg/httputil"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/event"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/service"
)

// EventsHandler streams cart snapshots as Server-Sent Events.
type EventsHandler struct {
	service   *service.CartService
	hub       *event.Hub
	heartbeat time.Duration
	// done closes when the server is shutting down.
	done   <-chan struct{}
	logger *slog.Logger
}

// NewEventsHandler creates a new cart event stream handler.
// Streams end when done closes.
func NewEventsHandler(svc *service.CartService, hub *event.Hub, heartbeat time.Duration, done <-chan struct{}, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &EventsHandler{service: svc, hub: hub, heartbeat: heartbeat, done: done, logger: logger}
}

// Stream handles GET /api/v1/cart/events. The current cart is sent first,
// then one "cart" event per change until the client goes away.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "cart owner could not be resolved"},
		})
		return
	}

	// Subscribe before reading so no change between the two is lost.
	sub := h.hub.Subscribe(owner)
	defer sub.Close()

	cart, err := h.service.GetCart(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "cart", event.Snapshot{Mode: cart.Mode, Items: cart.Items}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.WarnContext(r.Context(), "event stream cannot flush", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case snap := <-sub.C:
			if err := writeEvent(w, "cart", snap); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
