package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nongtiensonpro/yellowcat/pkg/health"
	"github.com/nongtiensonpro/yellowcat/pkg/middleware"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/service"
)

// RouterConfig holds the HTTP-level settings of the admin API.
type RouterConfig struct {
	CORS       middleware.CORSConfig
	AdminRole  string
	PprofCIDRs []string
	// ListMaxAge is the private cache lifetime of GET responses, in seconds.
	ListMaxAge int
}

// NewRouter creates a chi router with all admin routes registered.
func NewRouter(
	refData *service.RefDataService,
	promotions *service.PromotionService,
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
	r.Use(middleware.PrometheusMetrics("admin"))
	r.Use(middleware.Tracing("admin"))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	refDataHandler := NewRefDataHandler(refData, logger)
	promotionHandler := NewPromotionHandler(promotions, logger)

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(validateToken, logger))
		r.Use(middleware.RequireRole(cfg.AdminRole))
		r.Use(middleware.RequestLogger(logger))
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(middleware.CacheControl(true, cfg.ListMaxAge))

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", promotionHandler.List)
			r.Post("/", promotionHandler.Create)
			r.Post("/preview", promotionHandler.Preview)
			r.Get("/{id}", promotionHandler.Get)
			r.Put("/{id}", promotionHandler.Update)
			r.Delete("/{id}", promotionHandler.Delete)
		})

		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", refDataHandler.List)
			r.Post("/", refDataHandler.Create)
			r.Get("/{id}", refDataHandler.Get)
			r.Put("/{id}", refDataHandler.Update)
			r.Delete("/{id}", refDataHandler.Delete)
		})
	})

	return r
}
