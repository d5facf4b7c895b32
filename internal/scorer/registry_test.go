package scorer

import (
	"context"
	"testing"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(v float64) pipeline.Scorer {
	return pipeline.ScorerFunc(func(context.Context, []models.EvaluationSample) (models.Scores, error) {
		return models.Scores{models.MetricFaithfulness: v}, nil
	})
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(Lexical)
	r.Register(Lexical, fixed(0.1))
	r.Register(Judge, fixed(0.9))

	s, err := r.Get("")
	require.NoError(t, err)
	scores, _ := s.Score(context.Background(), nil)
	assert.Equal(t, 0.1, scores[models.MetricFaithfulness])

	s, err = r.Get(Judge)
	require.NoError(t, err)
	scores, _ = s.Score(context.Background(), nil)
	assert.Equal(t, 0.9, scores[models.MetricFaithfulness])

	assert.Equal(t, []string{Judge, Lexical}, r.Names())
	assert.Equal(t, Lexical, r.Default())
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry(Judge)

	_, err := r.Get("")
	assert.ErrorIs(t, err, ErrUnknownScorer)

	_, err = r.Get("ragas")
	assert.ErrorIs(t, err, ErrUnknownScorer)
	assert.Contains(t, err.Error(), "ragas")
}
