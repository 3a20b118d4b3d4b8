package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yellowcat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests served, by route and status.",
		},
		[]string{"service", "method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yellowcat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of non-streaming requests.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "route"},
	)

	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "yellowcat",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served, open event streams included.",
		},
		[]string{"service"},
	)

	httpStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yellowcat",
			Subsystem: "http",
			Name:      "stream_duration_seconds",
			Help:      "How long event stream connections stayed open.",
			Buckets:   []float64{1, 10, 60, 300, 900, 3600},
		},
		[]string{"service", "route"},
	)
)

// routeLabel returns the chi route pattern so ids in paths do not explode
// label cardinality.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// PrometheusMetrics records request counts and latency. Event streams are
// timed separately so they do not distort the latency histogram.
func PrometheusMetrics(serviceName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight := httpInFlight.WithLabelValues(serviceName)
			inFlight.Inc()
			defer inFlight.Dec()

			rec := record(w)
			next.ServeHTTP(rec, r)

			route := routeLabel(r)
			elapsed := time.Since(start).Seconds()
			httpRequestsTotal.WithLabelValues(serviceName, r.Method, route, strconv.Itoa(rec.status)).Inc()
			if rec.streaming() {
				httpStreamDuration.WithLabelValues(serviceName, route).Observe(elapsed)
				return
			}
			httpRequestDuration.WithLabelValues(serviceName, r.Method, route).Observe(elapsed)
		})
	}
}
