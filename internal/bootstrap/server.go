package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/kirillkom/electoral-rag/internal/adapters/http"
	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

const ingestRequestTimeout = 5 * time.Minute

func (a *App) Handler() http.Handler {
	opts := []httpadapter.Option{httpadapter.WithMetricsHandler(a.Metrics.Handler())}
	if a.Queue != nil {
		opts = append(opts, httpadapter.WithIngestQueue(a.Queue))
	}
	router := httpadapter.NewRouter(a.Config, a.QueryUC, a.IngestUC, a.IngestUC, opts...)
	return a.Metrics.Middleware(router.Handler())
}

// Serve runs the HTTP API, and the ingest consumer when a queue is
// configured, until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         ":" + a.Config.APIPort,
		Handler:      a.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api_listening", "port", a.Config.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("api_shutdown_failed", "error", err)
		}
		return nil
	})
	if a.Queue != nil {
		g.Go(func() error {
			slog.Info("ingest_consumer_subscribed", "subject", a.Config.NATSSubject)
			return a.Queue.SubscribeIngestRequests(gctx, a.HandleIngestRequest)
		})
	}
	return g.Wait()
}

func (a *App) HandleIngestRequest(ctx context.Context, paths []string) error {
	ingestCtx, cancel := context.WithTimeout(ctx, ingestRequestTimeout)
	defer cancel()

	report, err := a.IngestUC.AddPaths(ingestCtx, paths)
	if err != nil {
		return err
	}
	slog.Info("ingest_request_done",
		"paths", len(paths),
		"processed", report.Count(domain.PathProcessed),
		"missing", report.Count(domain.PathMissing),
		"failed", report.Count(domain.PathFailed),
		"chunks", report.TotalChunks,
	)
	return nil
}
