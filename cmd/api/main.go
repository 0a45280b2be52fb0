package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/electoral-rag/internal/bootstrap"
	"github.com/kirillkom/electoral-rag/internal/config"
	"github.com/kirillkom/electoral-rag/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("electoral-rag-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.WarmStart(ctx); err != nil {
		slog.Warn("warm_start_failed", "error", err)
	}
	if err := app.Serve(ctx); err != nil {
		slog.Error("api_server_error", "error", err)
		os.Exit(1)
	}
}
