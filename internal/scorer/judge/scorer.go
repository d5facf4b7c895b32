package judge

import (
	"context"
	"errors"
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/aggregator"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/config"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/llm"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Judge scores one metric for one sample.
type Judge interface {
	Metric() models.Metric
	Evaluate(ctx context.Context, sample models.EvaluationSample) (float64, error)
}

// Scorer runs every judge against every sample and reports the per-metric
// mean. Any judge failure fails the whole call.
type Scorer struct {
	judges      []Judge
	concurrency int
	agg         *aggregator.Aggregator
	logger      *zerolog.Logger
}

func NewScorer(judges []Judge, concurrency int, logger *zerolog.Logger) *Scorer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scorer{
		judges:      judges,
		concurrency: concurrency,
		agg:         aggregator.NewAggregator(logger),
		logger:      logger,
	}
}

// NewScorerFromConfig builds one LLM judge per enabled evaluator in cfg.
// Each metric may be judged at most once.
func NewScorerFromConfig(cfg *config.JudgesConfig, llmClient llm.LLMClient, logger *zerolog.Logger) (*Scorer, error) {
	if cfg == nil {
		return nil, errors.New("judges config is nil")
	}

	var judges []Judge
	seen := make(map[models.Metric]string)
	for _, judgeCfg := range cfg.Enabled() {
		j, err := NewLLMJudge(judgeCfg, llmClient, logger)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[j.Metric()]; ok {
			return nil, fmt.Errorf("judges %s and %s both score %s", prev, judgeCfg.Name, j.Metric())
		}
		seen[j.Metric()] = judgeCfg.Name
		judges = append(judges, j)

		logger.Debug().
			Str("metric", string(j.Metric())).
			Int("max_tokens", judgeCfg.Model.MaxTokens).
			Bool("retry", judgeCfg.Model.Retry).
			Bool("requires_context", judgeCfg.RequiresContext).
			Msg("judge created")
	}
	if len(judges) == 0 {
		return nil, errors.New("no enabled judges found in config")
	}

	s := NewScorer(judges, cfg.Judges.Concurrency, logger)
	logger.Info().
		Strs("metrics", metricNames(judges)).
		Int("concurrency", s.concurrency).
		Msg("judge scorer ready")
	return s, nil
}

func metricNames(judges []Judge) []string {
	out := make([]string, len(judges))
	for i, j := range judges {
		out[i] = string(j.Metric())
	}
	return out
}

func (s *Scorer) Score(ctx context.Context, samples []models.EvaluationSample) (models.Scores, error) {
	if len(s.judges) == 0 {
		return nil, fmt.Errorf("no judges configured")
	}

	// perSample[i][k] is judge k's score for sample i.
	perSample := make([][]float64, len(samples))
	for i := range perSample {
		perSample[i] = make([]float64, len(s.judges))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, sample := range samples {
		for k, judge := range s.judges {
			g.Go(func() error {
				score, err := judge.Evaluate(gctx, sample)
				if err != nil {
					return fmt.Errorf("sample %d: %w", i, err)
				}
				perSample[i][k] = score
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("judge scoring failed")
		return nil, err
	}

	rows := make([]models.Scores, len(samples))
	for i := range samples {
		row := make(models.Scores, len(s.judges))
		for k, judge := range s.judges {
			row[judge.Metric()] = perSample[i][k]
		}
		rows[i] = row
	}

	return s.agg.Aggregate(rows), nil
}
