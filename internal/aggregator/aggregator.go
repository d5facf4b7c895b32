package aggregator

import (
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

type Aggregator struct {
	logger *zerolog.Logger
}

func NewAggregator(logger *zerolog.Logger) *Aggregator {
	return &Aggregator{
		logger: logger,
	}
}

// Aggregate reduces per-sample scores to one batch score per metric.
// Each metric is averaged over the samples that carry it.
func (a *Aggregator) Aggregate(perSample []models.Scores) models.Scores {
	sums := make(map[models.Metric]float64)
	counts := make(map[models.Metric]int)

	for _, scores := range perSample {
		for metric, score := range scores {
			sums[metric] += score
			counts[metric]++
		}
	}

	result := make(models.Scores, len(sums))
	for metric, sum := range sums {
		result[metric] = sum / float64(counts[metric])
	}

	a.logger.
		Debug().
		Int("samples", len(perSample)).
		Int("metrics", len(result)).
		Msg("aggregation complete")
	return result
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
