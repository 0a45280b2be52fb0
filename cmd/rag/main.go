package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/electoral-rag/internal/adapters/cli"
	"github.com/kirillkom/electoral-rag/internal/bootstrap"
	"github.com/kirillkom/electoral-rag/internal/config"
	"github.com/kirillkom/electoral-rag/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(loadServices, serve)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, logger func(service, level string) *slog.Logger) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger("electoral-rag", cfg.LogLevel))

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if err := app.WarmStart(ctx); err != nil {
		slog.Warn("warm_start_failed", "error", err)
	}
	return app, nil
}

func loadServices(ctx context.Context) (*cli.Services, func(), error) {
	app, err := newApp(ctx, logging.NewCLILogger)
	if err != nil {
		return nil, nil, err
	}
	services := &cli.Services{
		Ingestor:   app.IngestUC,
		Query:      app.QueryUC,
		Translator: app.Translator,
	}
	if app.Queue != nil {
		services.Queue = app.Queue
	}
	return services, app.Close, nil
}

func serve(ctx context.Context) error {
	app, err := newApp(ctx, logging.NewJSONLogger)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
