package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/nongtiensonpro/yellowcat/pkg/database"
	"github.com/nongtiensonpro/yellowcat/pkg/health"
	"github.com/nongtiensonpro/yellowcat/pkg/httpclient"
	pkgkafka "github.com/nongtiensonpro/yellowcat/pkg/kafka"
	"github.com/nongtiensonpro/yellowcat/pkg/middleware"
	"github.com/nongtiensonpro/yellowcat/pkg/tracing"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/config"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/event"
	handler "github.com/nongtiensonpro/yellowcat/services/storefront/internal/handler/http"
	redisrepo "github.com/nongtiensonpro/yellowcat/services/storefront/internal/repository/redis"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/service"
)

// App owns the storefront's long-lived resources.
type App struct {
	logger     *slog.Logger
	httpServer *http.Server
	consumer   *pkgkafka.Consumer
	// closers run in order once HTTP has drained and background work ended.
	closers []closer

	// background scopes the rate limiter janitor, the relay consumer and
	// open event streams.
	background context.Context
	stopAll    context.CancelFunc
	wg         sync.WaitGroup
}

type closer struct {
	name  string
	close func(context.Context) error
}

// NewApp connects Redis, wires the backend behind its breaker, optionally
// joins the cart event topic and builds the router. Startup is bounded to 10s.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
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

	rdb, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	checks := health.NewHandler()
	checks.RegisterCritical("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	backendClient := newBackendClient(cfg, logger)
	checks.RegisterNonCritical("backend", backendClient.Ping)

	hub := event.NewHub()
	var publisher *event.Producer
	if cfg.KafkaEnabled {
		publisher = a.joinCartEvents(cfg, rdb, hub, checks)
	}

	dispatcher := event.NewDispatcher(hub, publisher, logger)
	guest := service.NewGuestCartService(
		redisrepo.NewGuestCartRepository(rdb, cfg.GuestCartTTL(), logger), dispatcher, logger)
	account := service.NewAccountCartService(
		backendClient, redisrepo.NewAccountCartCache(rdb, cfg.AccountCartCacheTTL(), logger), dispatcher, logger)
	carts := service.NewCartService(guest, account, cfg.DefaultShippingFee)

	// Redis closes last, after the producer has flushed.
	a.closers = append(a.closers, closer{"redis", func(context.Context) error { return rdb.Close() }})

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	a.background, a.stopAll = context.WithCancel(context.Background())
	router := handler.NewRouter(a.background, carts, hub, checks, middleware.HMACValidator(cfg.JWTSecret), handler.RouterConfig{
		CORS:           cors,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		EventHeartbeat: time.Duration(cfg.EventHeartbeatSec) * time.Second,
	}, logger)

	// No WriteTimeout: the event stream is long-lived and other routes are
	// bounded by the router's timeout middleware.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("redis connected", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, rdb, "storefront"); err != nil {
		logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
	}
	if cfg.SlowCommandThresholdMs > 0 {
		rdb.AddHook(database.NewSlowCommandHook(time.Duration(cfg.SlowCommandThresholdMs)*time.Millisecond, logger))
	}
	return rdb, nil
}

func newBackendClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	retrying := httpclient.New(httpclient.Config{
		Timeout:         time.Duration(cfg.BackendTimeoutSec) * time.Second,
		MaxRetries:      cfg.BackendMaxRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 100,
	})
	breaker := httpclient.NewCircuitBreakerClient(retrying, httpclient.CircuitBreakerConfig{
		Name:         "storefront-backend",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}, logger)
	logger.Info("backend client ready", slog.String("url", cfg.BackendURL))
	return backend.NewClient(breaker, cfg.BackendURL, logger)
}

// joinCartEvents publishes local cart changes and relays other instances'
// changes into hub. Each instance reads the topic with its own group so it
// sees every event; Redis drops redeliveries.
func (a *App) joinCartEvents(cfg *config.Config, rdb *redis.Client, hub *event.Hub, checks *health.Handler) *event.Producer {
	instanceID := uuid.NewString()

	pcfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	pcfg.Async = true
	producer := pkgkafka.NewProducer(pcfg, a.logger)
	a.closers = append(a.closers, closer{"kafka producer", func(context.Context) error { return producer.Close() }})
	checks.RegisterNonCritical("kafka", producer.Ping)

	publisher := event.NewProducer(producer, cfg.CartEventsTopic, instanceID, a.logger)
	relay := event.NewRelay(hub, instanceID, a.logger)
	dedup := pkgkafka.NewRedisDedupStore(rdb, "storefront:relay:"+instanceID+":", 10*time.Minute)
	a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     "storefront-" + instanceID,
		Topic:       publisher.Topic(),
		MinBytes:    1,
		MaxBytes:    1 << 20,
		StartOffset: kafkago.LastOffset,
	}, pkgkafka.Deduplicate(dedup, relay.Handle, a.logger), a.logger)

	a.logger.Info("cart events enabled",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", publisher.Topic()),
		slog.String("instance_id", instanceID),
	)
	return publisher
}

// Run serves HTTP and relays cart events until ctx is canceled or the
// listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if a.consumer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.consumer.Start(a.background); err != nil {
				a.logger.Error("cart event consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

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

// Shutdown ends open event streams and background work, drains HTTP for up
// to 5s, then runs the closers with 3s each.
func (a *App) Shutdown() error {
	a.stopAll()

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs := []error{a.stop("http server", drainCtx, a.httpServer.Shutdown)}
	a.wg.Wait()

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
