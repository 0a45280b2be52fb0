package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/electoral-rag/internal/config"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
	"github.com/kirillkom/electoral-rag/internal/core/usecase"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/lexical/bm25"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/processor"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/translate/mymemory"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/vector"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/vector/local"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/electoral-rag/internal/observability/metrics"
)

const serviceName = "electoral-rag"

type App struct {
	Config  config.Config
	Metrics *metrics.Metrics

	Dense      *vector.EmbeddingIndex
	Lexical    *bm25.Index
	IngestUC   *usecase.IngestUseCase
	QueryUC    *usecase.QueryUseCase
	Translator *mymemory.Translator
	// Queue is nil unless NATS_URL is set.
	Queue *nats.Queue

	closers []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.New(serviceName),
		Lexical: bm25.New(),
	}
	executor := resilience.NewExecutor(executorConfig(cfg)).WithEvents(app.Metrics)

	embedder, generator, err := newModelProvider(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}

	store, err := app.newVectorStore(ctx, cfg, executor)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Dense = vector.NewEmbeddingIndex(embedder, store)

	storage, err := localfs.New(cfg.UploadPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init upload storage: %w", err)
	}
	proc := processor.New(
		storage,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		plaintext.NewExtractor(storage),
		map[string]ports.TextExtractor{".pdf": pdf.NewExtractor(storage)},
	)

	app.Translator = mymemory.New(mymemory.Config{
		Endpoint:   cfg.TranslateURL,
		SourceLang: cfg.TranslateSourceLang,
		TargetLang: cfg.TranslateTargetLang,
		ChunkChars: cfg.TranslateChunkChars,
		RatePerSec: cfg.TranslateRatePerSec,
	}, nil, resilience.NewExecutor(translatorExecutorConfig(cfg)).WithEvents(app.Metrics))

	retriever := usecase.NewHybridRetriever(app.Dense, app.Lexical, app.Metrics)
	app.IngestUC = usecase.NewIngestUseCase(proc, app.Dense, app.Lexical, storage, app.Metrics)
	app.QueryUC = usecase.NewQueryUseCase(retriever, generator, app.Translator, usecase.QueryConfig{
		TopK:      cfg.RAGTopK,
		UseHybrid: cfg.RAGUseHybrid,
	}, app.Metrics)

	if cfg.NATSURL != "" {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init ingest queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
	}

	return app, nil
}

// WarmStart rebuilds the lexical index from the dense store when enabled.
func (a *App) WarmStart(ctx context.Context) error {
	if !a.Config.RAGLexicalWarmStart {
		return nil
	}
	if _, err := a.IngestUC.WarmStart(ctx, a.Dense); err != nil {
		return fmt.Errorf("lexical warm start: %w", err)
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func executorConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		rc.RetryInitialBackoff = cfg.RetryInitialBackoff
	}
	if cfg.RetryMaxBackoff > 0 {
		rc.RetryMaxBackoff = cfg.RetryMaxBackoff
	}
	if cfg.BreakerOpenTimeout > 0 {
		rc.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	}
	rc.BreakerEnabled = cfg.BreakerEnabled
	return rc
}

func translatorExecutorConfig(cfg config.Config) resilience.Config {
	rc := resilience.ThrottledConfig()
	if cfg.RetryMaxAttempts > rc.RetryMaxAttempts {
		rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	}
	rc.BreakerEnabled = cfg.BreakerEnabled
	return rc
}

func newModelProvider(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.AnswerGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		client, err := gemini.New(ctx, cfg.GoogleAPIKey, cfg.GeminiGenModel, cfg.GeminiEmbedModel, gemini.Options{
			Temperature: cfg.LLMTemperature,
			Executor:    executor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		return gemini.NewEmbedder(client), gemini.NewGenerator(client), nil
	case config.ProviderOllama:
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			Temperature: cfg.LLMTemperature,
			Executor:    executor,
		})
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) newVectorStore(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendLocal:
		store, err := local.Open(ctx, cfg.PersistDirectory, cfg.CollectionName)
		if err != nil {
			return nil, fmt.Errorf("open local vector store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case config.BackendQdrant:
		return qdrant.New(cfg.QdrantURL, cfg.CollectionName, executor), nil
	case config.BackendPGVector:
		db, err := pgvector.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		store := pgvector.NewStore(db, cfg.CollectionName)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
