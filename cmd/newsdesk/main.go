package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"NewsDesk/internal/app"
	"NewsDesk/internal/config"
	"NewsDesk/internal/logging"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn("cannot read .env", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
