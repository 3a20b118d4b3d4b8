// Command storefront serves the shopper-facing cart API in front of the
// commerce backend.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/app"
	"github.com/nongtiensonpro/yellowcat/services/storefront/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return 2
	}

	log := logger.New("storefront-service", cfg.LogLevel)
	log.Info("storefront starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("backend_url", cfg.BackendURL),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)

	storefront, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("storefront init failed", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := storefront.Run(ctx); err != nil {
		log.Error("storefront exited with error", slog.String("error", err.Error()))
		return 1
	}
	log.Info("storefront stopped")
	return 0
}
