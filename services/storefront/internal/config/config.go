package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	pkgconfig "github.com/nongtiensonpro/yellowcat/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Remote commerce backend
	BackendURL        string `env:"BACKEND_API_URL" envDefault:"http://localhost:8088"`
	BackendTimeoutSec int    `env:"BACKEND_TIMEOUT" envDefault:"10"`
	BackendMaxRetries int    `env:"BACKEND_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker around the backend
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Guest carts live for 30 days unless touched.
	GuestCartTTLHours          int `env:"GUEST_CART_TTL_HOURS" envDefault:"720"`
	AccountCartCacheTTLMinutes int `env:"ACCOUNT_CART_CACHE_TTL_MINUTES" envDefault:"60"`

	// Kafka fan-out of cart changes between instances
	KafkaEnabled    bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	CartEventsTopic string   `env:"CART_EVENTS_TOPIC" envDefault:""`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// Per-IP throttling of cart mutations
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Cart event stream keep-alive
	EventHeartbeatSec int `env:"CART_EVENTS_HEARTBEAT_SECONDS" envDefault:"25"`

	// Shipping fee applied to summaries when the client does not send one.
	DefaultShippingFee int64 `env:"DEFAULT_SHIPPING_FEE" envDefault:"30000"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow Redis command logging
	SlowCommandThresholdMs int `env:"LOG_SLOW_COMMAND_MS" envDefault:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_API_URL is required")
	}
	backendURL, err := url.ParseRequestURI(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid BACKEND_API_URL %q: %w", c.BackendURL, err)
	}
	if loopsBack(backendURL, c.HTTPPort) {
		return fmt.Errorf("BACKEND_API_URL %q points at this service's own port %d", c.BackendURL, c.HTTPPort)
	}
	if c.BackendTimeoutSec <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %d", c.BackendTimeoutSec)
	}
	if c.BackendMaxRetries < 0 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must not be negative, got %d", c.BackendMaxRetries)
	}
	if c.GuestCartTTLHours <= 0 {
		return fmt.Errorf("GUEST_CART_TTL_HOURS must be positive, got %d", c.GuestCartTTLHours)
	}
	if c.AccountCartCacheTTLMinutes <= 0 {
		return fmt.Errorf("ACCOUNT_CART_CACHE_TTL_MINUTES must be positive, got %d", c.AccountCartCacheTTLMinutes)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DefaultShippingFee < 0 {
		return fmt.Errorf("DEFAULT_SHIPPING_FEE must not be negative, got %d", c.DefaultShippingFee)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// loopsBack reports whether u addresses a local listener on port.
func loopsBack(u *url.URL, port int) bool {
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
	default:
		return false
	}
	p := u.Port()
	if p == "" {
		p = map[string]string{"http": "80", "https": "443"}[u.Scheme]
	}
	return p == strconv.Itoa(port)
}

// GuestCartTTL is how long an untouched guest cart is kept.
func (c *Config) GuestCartTTL() time.Duration {
	return time.Duration(c.GuestCartTTLHours) * time.Hour
}

// AccountCartCacheTTL bounds how stale a fallback account cart may be.
func (c *Config) AccountCartCacheTTL() time.Duration {
	return time.Duration(c.AccountCartCacheTTLMinutes) * time.Minute
}
