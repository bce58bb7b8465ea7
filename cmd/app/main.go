package main

import (
	"context"
	"os/signal"
	"syscall"

	"party_server/internal/app"
	"party_server/internal/config"
	"party_server/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to start", "error", err)
	}
	if !a.Identity.Enabled() {
		logger.Warn("JWT_SECRET not set, every connection is anonymous")
	}

	if err := a.Run(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}
}
