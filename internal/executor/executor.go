package executor

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Evaluator,ScorerRegistry,ThresholdSource

import (
	"context"
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
)

// Evaluator runs one scored evaluation
type Evaluator interface {
	Evaluate(ctx context.Context, samples []models.EvaluationSample, scorer pipeline.Scorer, thresholds policy.Thresholds) (models.EvaluationResult, error)
}

// ScorerRegistry resolves a scorer by name, "" meaning the default
type ScorerRegistry interface {
	Get(name string) (pipeline.Scorer, error)
}

// ThresholdSource provides the currently active threshold policy
type ThresholdSource interface {
	Current() policy.Thresholds
}

type Executor struct {
	evaluator  Evaluator
	scorers    ScorerRegistry
	thresholds ThresholdSource
	logger     *zerolog.Logger
}

func NewExecutor(
	evaluator Evaluator,
	scorers ScorerRegistry,
	thresholds ThresholdSource,
	logger *zerolog.Logger,
) *Executor {
	return &Executor{
		evaluator:  evaluator,
		scorers:    scorers,
		thresholds: thresholds,
		logger:     logger,
	}
}

// Execute resolves the scorer and the effective thresholds for req and runs
// the pipeline once.
func (e *Executor) Execute(ctx context.Context, req intake.Request) (models.EvaluationResult, error) {
	e.logger.Info().
		Str("requestID", req.RequestID).
		Str("scorer", req.Scorer).
		Int("samples", len(req.Samples)).
		Msg("starting evaluation")

	scorer, err := e.scorers.Get(req.Scorer)
	if err != nil {
		e.logger.Error().Err(err).Str("scorer", req.Scorer).Msg("scorer not found")
		return models.EvaluationResult{}, err
	}

	thresholds, err := e.Thresholds(req)
	if err != nil {
		return models.EvaluationResult{}, err
	}

	result, err := e.evaluator.Evaluate(ctx, req.Samples, scorer, thresholds)
	if err != nil {
		e.logger.Warn().Err(err).Str("requestID", req.RequestID).Msg("evaluation failed")
		return models.EvaluationResult{}, err
	}

	e.logger.Info().
		Str("requestID", req.RequestID).
		Str("run_id", result.RunID).
		Bool("passed", result.Passed()).
		Msg("evaluation complete")
	return result, nil
}

// Thresholds returns the active policy with the request overrides applied.
func (e *Executor) Thresholds(req intake.Request) (policy.Thresholds, error) {
	base := policy.Default()
	if e.thresholds != nil {
		base = e.thresholds.Current()
	}
	t, err := req.ResolveThresholds(base)
	if err != nil {
		return policy.Thresholds{}, &intake.ValidationError{Err: fmt.Errorf("thresholds: %w", err)}
	}
	return t, nil
}
