package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/resilience"
)

const queueGroup = "ingesters"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("electoral-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

type ingestRequest struct {
	Paths       []string  `json:"paths"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeIngestRequest(paths []string) ([]byte, error) {
	if len(paths) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode ingest request", fmt.Errorf("no paths"))
	}
	return json.Marshal(ingestRequest{Paths: paths, RequestedAt: time.Now().UTC()})
}

// decodeIngestRequest also accepts a bare newline-separated path list.
func decodeIngestRequest(data []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode ingest request", fmt.Errorf("empty message"))
	}
	if strings.HasPrefix(trimmed, "{") {
		var req ingestRequest
		if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode ingest request", err)
		}
		return req.Paths, nil
	}

	var paths []string
	for _, line := range strings.Split(trimmed, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (q *Queue) PublishIngestRequest(ctx context.Context, paths []string) error {
	payload, err := encodeIngestRequest(paths)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("nats flush: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporaryIfNeeded("nats publish", err, classifyNATSError)
}

// SubscribeIngestRequests blocks until ctx is done, then drains.
func (q *Queue) SubscribeIngestRequests(ctx context.Context, handler func(context.Context, []string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		paths, err := decodeIngestRequest(msg.Data)
		if err != nil {
			slog.Warn("ingest_request_invalid", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, paths); err != nil {
			slog.Error("ingest_request_failed", "paths", len(paths), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
