package lexical

import (
	"context"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/aggregator"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

const DefaultMinOverlap = 0.3

// Scorer estimates the four RAG metrics from token overlap. It is
// deterministic and needs no network access.
type Scorer struct {
	// MinOverlap is the share of ground-truth tokens a context must contain
	// to count as relevant for context precision.
	MinOverlap float64

	agg    *aggregator.Aggregator
	logger *zerolog.Logger
}

func NewScorer(minOverlap float64, logger *zerolog.Logger) *Scorer {
	if minOverlap <= 0 {
		minOverlap = DefaultMinOverlap
	}
	return &Scorer{
		MinOverlap: minOverlap,
		agg:        aggregator.NewAggregator(logger),
		logger:     logger,
	}
}

func (s *Scorer) Score(ctx context.Context, samples []models.EvaluationSample) (models.Scores, error) {
	perSample := make([]models.Scores, 0, len(samples))
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		perSample = append(perSample, s.scoreSample(sample))
	}

	scores := s.agg.Aggregate(perSample)

	s.logger.Debug().
		Int("samples", len(samples)).
		Interface("scores", scores).
		Msg("lexical scoring complete")

	return scores, nil
}

func (s *Scorer) scoreSample(sample models.EvaluationSample) models.Scores {
	question := tokenize(sample.Question)
	truth := tokenize(sample.GroundTruth)
	answer := tokenize(sample.Answer)

	contexts := make([]tokenSet, len(sample.Contexts))
	for i, c := range sample.Contexts {
		contexts[i] = tokenize(c)
	}
	retrieved := union(contexts...)

	return models.Scores{
		models.MetricContextPrecision: s.contextPrecision(truth, contexts),
		models.MetricContextRecall:    coverage(truth, retrieved),
		models.MetricFaithfulness:     coverage(answer, retrieved),
		models.MetricAnswerRelevancy:  coverage(question, answer),
	}
}

// contextPrecision is the mean of precision@k over the ranks k that hold a
// relevant context, so relevant contexts ranked first score higher.
func (s *Scorer) contextPrecision(truth tokenSet, contexts []tokenSet) float64 {
	relevant := 0
	sum := 0.0
	for k, c := range contexts {
		if coverage(truth, c) < s.MinOverlap {
			continue
		}
		relevant++
		sum += float64(relevant) / float64(k+1)
	}
	if relevant == 0 {
		return 0
	}
	return sum / float64(relevant)
}
