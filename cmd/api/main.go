package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/app"
	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/observability"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.Start(ctx, cfg, logger)
	if err != nil {
		logger.Error("start observability", "error", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	exitCode := 0
	if err := a.Run(ctx, cfg.ShutdownTimeout); err != nil {
		logger.Error("app stopped with error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("stop observability", "error", err)
	}

	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
