package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nongtiensonpro/yellowcat/pkg/database"
	"github.com/nongtiensonpro/yellowcat/pkg/health"
	"github.com/nongtiensonpro/yellowcat/pkg/httpclient"
	"github.com/nongtiensonpro/yellowcat/pkg/middleware"
	"github.com/nongtiensonpro/yellowcat/pkg/tracing"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/config"
	handler "github.com/nongtiensonpro/yellowcat/services/admin/internal/handler/http"
	redisrepo "github.com/nongtiensonpro/yellowcat/services/admin/internal/repository/redis"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/service"
)

// App owns the admin service's long-lived resources.
type App struct {
	logger     *slog.Logger
	httpServer *http.Server
	// closers run in order after the HTTP server drains.
	closers []closer
}

type closer struct {
	name  string
	close func(context.Context) error
}

// NewApp connects Redis, wires the backend client behind its breaker and
// builds the router. Startup is bounded to 10s.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "admin",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, closer{"tracer", tracerShutdown})

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, closer{"redis", func(context.Context) error { return rdb.Close() }})
	logger.Info("redis connected", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, rdb, "admin"); err != nil {
		logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
	}
	if cfg.SlowCommandThresholdMs > 0 {
		rdb.AddHook(database.NewSlowCommandHook(time.Duration(cfg.SlowCommandThresholdMs)*time.Millisecond, logger))
	}

	// Admin traffic is light; a small pool and the default breaker suffice.
	backendClient := backend.NewClient(
		httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.Config{
				Timeout:         time.Duration(cfg.BackendTimeoutSec) * time.Second,
				MaxRetries:      cfg.BackendMaxRetries,
				RetryWaitMin:    200 * time.Millisecond,
				RetryWaitMax:    2 * time.Second,
				MaxConnsPerHost: 20,
			}),
			httpclient.DefaultCircuitBreakerConfig("admin-backend"),
			logger,
		),
		cfg.BackendURL, logger,
	)

	cache := redisrepo.NewListCache(rdb, cfg.RefDataCacheTTL())
	refData := service.NewRefDataService(backendClient, cache, logger)
	promotions := service.NewPromotionService(backendClient, cache, logger)

	checks := health.NewHandler()
	checks.RegisterCritical("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	checks.RegisterNonCritical("backend", backendClient.Ping)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(refData, promotions, checks, middleware.HMACValidator(cfg.JWTSecret), handler.RouterConfig{
		CORS:       cors,
		AdminRole:  cfg.AdminRole,
		PprofCIDRs: cfg.PprofAllowedCIDRs,
		ListMaxAge: cfg.ListMaxAgeSec,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// Run serves HTTP until ctx is canceled or the listener fails, then shuts
// everything down.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-serveErr:
		return errors.Join(err, a.Shutdown())
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
		return a.Shutdown()
	}
}

// Shutdown drains HTTP for up to 5s, then runs the closers with 3s each.
func (a *App) Shutdown() error {
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs := []error{a.stop("http server", drainCtx, a.httpServer.Shutdown)}

	for _, c := range a.closers {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		errs = append(errs, a.stop(c.name, ctx, c.close))
		cancel()
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stop(name string, ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		a.logger.Error("shutdown step failed", slog.String("step", name), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
