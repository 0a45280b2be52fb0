package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

type QueryConfig struct {
	TopK      int
	UseHybrid bool
}

type QueryUseCase struct {
	retriever  Retriever
	generator  ports.AnswerGenerator
	translator ports.Translator
	cfg        QueryConfig
	observer   Observer
}

func NewQueryUseCase(
	retriever Retriever,
	generator ports.AnswerGenerator,
	translator ports.Translator,
	cfg QueryConfig,
	observer Observer,
) *QueryUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &QueryUseCase{
		retriever:  retriever,
		generator:  generator,
		translator: translator,
		cfg:        cfg,
		observer:   observerOrNop(observer),
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is required"))
	}

	k := opts.TopK
	if k <= 0 {
		k = uc.cfg.TopK
	}
	var retrieveOpts []RetrieveOption
	if !uc.cfg.UseHybrid || opts.DisableLexical {
		retrieveOpts = append(retrieveOpts, WithoutLexical())
	}
	if len(opts.Filter) > 0 {
		retrieveOpts = append(retrieveOpts, WithFilter(opts.Filter))
	}

	start := time.Now()
	state, err := NewRAGPipeline(uc.retriever, uc.generator, k, uc.observer, retrieveOpts...).Run(ctx, question)
	if err != nil {
		uc.observer.ObserveQuery("error", 0, time.Since(start))
		return nil, fmt.Errorf("run rag pipeline: %w", err)
	}
	uc.observer.ObserveQuery("success", len(state.Context), time.Since(start))

	answer := &domain.Answer{
		Question: state.Question,
		Answer:   state.Answer,
		Sources:  domain.SourcesOf(state.Context),
	}
	if opts.Translate && uc.translator != nil {
		answer.Translation = uc.translator.Translate(ctx, state.Answer)
	}
	return answer, nil
}
