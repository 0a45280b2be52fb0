package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/core/ports"
)

const (
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
)

type StageFunc func(ctx context.Context, state domain.RetrievalState) (domain.RetrievalState, error)

type Stage struct {
	Name string
	Run  StageFunc
}

// Pipeline runs its stages in order, START to END. The first failing stage
// aborts the run and no partial state is returned.
type Pipeline struct {
	stages   []Stage
	observer Observer
}

func NewPipeline(observer Observer, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:   stages,
		observer: observerOrNop(observer),
	}
}

func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name)
	}
	return names
}

func (p *Pipeline) Run(ctx context.Context, question string) (domain.RetrievalState, error) {
	state := domain.RetrievalState{
		Question: question,
		Context:  []domain.Document{},
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return domain.RetrievalState{}, fmt.Errorf("%s stage: %w", stage.Name, err)
		}

		start := time.Now()
		next, err := stage.Run(ctx, state)
		elapsed := time.Since(start)
		p.observer.ObserveStage(stage.Name, elapsed, err)
		if err != nil {
			return domain.RetrievalState{}, fmt.Errorf("%s stage: %w", stage.Name, err)
		}
		slog.Debug("pipeline_stage",
			"stage", stage.Name,
			"duration_ms", float64(elapsed.Microseconds())/1000.0,
			"context_docs", len(next.Context),
		)
		state = next
	}
	return state, nil
}

// NewRAGPipeline wires START -> RETRIEVE -> GENERATE -> END.
func NewRAGPipeline(
	retriever Retriever,
	generator ports.AnswerGenerator,
	k int,
	observer Observer,
	opts ...RetrieveOption,
) *Pipeline {
	if k <= 0 {
		k = DefaultTopK
	}
	retrieve := func(ctx context.Context, state domain.RetrievalState) (domain.RetrievalState, error) {
		docs, err := retriever.Retrieve(ctx, state.Question, k, opts...)
		if err != nil {
			return state, err
		}
		state.Context = docs
		return state, nil
	}
	generate := func(ctx context.Context, state domain.RetrievalState) (domain.RetrievalState, error) {
		answer, err := generator.GenerateAnswer(ctx, state.Question, state.Context)
		if err != nil {
			return state, err
		}
		state.Answer = answer
		return state, nil
	}

	return NewPipeline(observer,
		Stage{Name: StageRetrieve, Run: retrieve},
		Stage{Name: StageGenerate, Run: generate},
	)
}
