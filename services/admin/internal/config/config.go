package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/nongtiensonpro/yellowcat/pkg/config"
)

// envPrefix lets the admin console share an env file with the storefront:
// ADMIN_BACKEND_API_URL wins over BACKEND_API_URL.
const envPrefix = "ADMIN_"

// Config holds all configuration for the admin service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"ADMIN_HTTP_PORT" envDefault:"8081"`

	// Remote commerce backend
	BackendURL        string `env:"BACKEND_API_URL" envDefault:"http://localhost:8088"`
	BackendTimeoutSec int    `env:"BACKEND_TIMEOUT" envDefault:"10"`
	BackendMaxRetries int    `env:"BACKEND_MAX_RETRIES" envDefault:"2"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	RefDataCacheTTLSec int `env:"REFDATA_CACHE_TTL_SECONDS" envDefault:"60"`

	// Commands at least this slow are logged; zero disables.
	SlowCommandThresholdMs int `env:"LOG_SLOW_COMMAND_MS" envDefault:"100"`

	// Browser cache lifetime of list responses; zero forces revalidation.
	ListMaxAgeSec int `env:"LIST_MAX_AGE_SECONDS" envDefault:"0"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	AdminRole string `env:"ADMIN_ROLE" envDefault:"admin"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables, then applies any
// ADMIN_-prefixed overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load admin config: %w", err)
	}

	var overrides struct {
		BackendURL string `env:"BACKEND_API_URL"`
		JWTSecret  string `env:"JWT_SECRET"`
		RedisDB    *int   `env:"REDIS_DB"`
	}
	if err := pkgconfig.LoadWithPrefix(&overrides, envPrefix); err != nil {
		return nil, fmt.Errorf("load admin config: %w", err)
	}
	if overrides.BackendURL != "" {
		cfg.BackendURL = overrides.BackendURL
	}
	if overrides.JWTSecret != "" {
		cfg.JWTSecret = overrides.JWTSecret
	}
	if overrides.RedisDB != nil {
		cfg.RedisDB = *overrides.RedisDB
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
	if _, err := url.ParseRequestURI(c.BackendURL); err != nil {
		return fmt.Errorf("invalid BACKEND_API_URL %q: %w", c.BackendURL, err)
	}
	if c.BackendTimeoutSec <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %d", c.BackendTimeoutSec)
	}
	if c.BackendMaxRetries < 0 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must not be negative, got %d", c.BackendMaxRetries)
	}
	if c.RefDataCacheTTLSec <= 0 {
		return fmt.Errorf("REFDATA_CACHE_TTL_SECONDS must be positive, got %d", c.RefDataCacheTTLSec)
	}
	if c.ListMaxAgeSec < 0 {
		return fmt.Errorf("LIST_MAX_AGE_SECONDS must not be negative, got %d", c.ListMaxAgeSec)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminRole == "" {
		return fmt.Errorf("ADMIN_ROLE is required")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// RefDataCacheTTL is how long a cached list page is served.
func (c *Config) RefDataCacheTTL() time.Duration {
	return time.Duration(c.RefDataCacheTTLSec) * time.Second
}
