// Command admin serves the back-office API for reference data and
// promotions.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nongtiensonpro/yellowcat/pkg/logger"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/app"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/config"
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

	log := logger.New("admin-service", cfg.LogLevel)
	log.Info("admin starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("backend_url", cfg.BackendURL),
	)

	admin, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("admin init failed", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := admin.Run(ctx); err != nil {
		log.Error("admin exited with error", slog.String("error", err.Error()))
		return 1
	}
	log.Info("admin stopped")
	return 0
}
