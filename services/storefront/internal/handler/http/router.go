package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nongtiensonpro/yellowcat/pkg/health"
	"github.com/nongtiensonpro/yellowcat/pkg/middleware"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/event"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/service"
)

// RouterConfig holds the HTTP-level settings of the storefront.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	PprofCIDRs     []string
	EventHeartbeat time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
// ctx bounds the rate limiter's cleanup loop and open event streams.
func NewRouter(
	ctx context.Context,
	cartService *service.CartService,
	hub *event.Hub,
	healthHandler *health.Handler,
	validateToken middleware.TokenValidator,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(cartService, logger)
	eventsHandler := NewEventsHandler(cartService, hub, cfg.EventHeartbeat, ctx.Done(), logger)
	limit := middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(validateToken, logger))
		r.Use(ResolveOwner)
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.NoStore)

		// The event stream outlives the request timeout.
		r.Get("/cart/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/cart", cartHandler.GetCart)
			r.Post("/cart/summary", cartHandler.Summary)
			r.Get("/orders/{orderCode}/summary", cartHandler.OrderDetail)

			r.Group(func(r chi.Router) {
				r.Use(limit)

				r.Delete("/cart", cartHandler.ClearCart)
				r.Post("/cart/items", cartHandler.AddItem)
				r.Put("/cart/items/{variantId}", cartHandler.UpdateQuantity)
				r.Delete("/cart/items/{variantId}", cartHandler.RemoveItem)
				r.Post("/cart/confirm", cartHandler.Confirm)
			})
		})
	})

	return r
}
