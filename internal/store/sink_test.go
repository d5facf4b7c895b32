package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSamples() []models.EvaluationSample {
	return []models.EvaluationSample{{Question: "q", GroundTruth: "g", Answer: "a", Contexts: []string{"c"}}}
}

func TestSink_RecordsPipelineRuns(t *testing.T) {
	logger := zerolog.Nop()
	s := openTestStore(t)

	ids := []string{"ok-run", "bad-run"}
	p := pipeline.NewPipeline(NewSink(s, &logger), &logger,
		pipeline.WithRunIDGenerator(func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}),
	)

	passing := pipeline.ScorerFunc(func(context.Context, []models.EvaluationSample) (models.Scores, error) {
		return models.Scores{
			models.MetricContextPrecision: 0.9,
			models.MetricContextRecall:    0.9,
			models.MetricFaithfulness:     0.5,
			models.MetricAnswerRelevancy:  0.9,
		}, nil
	})
	_, err := p.Evaluate(context.Background(), testSamples(), passing, policy.Thresholds{})
	require.NoError(t, err)

	failing := pipeline.ScorerFunc(func(context.Context, []models.EvaluationSample) (models.Scores, error) {
		return nil, errors.New("judge down")
	})
	_, err = p.Evaluate(context.Background(), testSamples(), failing, policy.Thresholds{})
	require.Error(t, err)

	ok, err := s.GetRun(context.Background(), "ok-run")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, ok.Status)
	require.NotNil(t, ok.Result)
	assert.Equal(t, []models.Metric{models.MetricFaithfulness}, ok.Result.ThresholdFailures)
	assert.NotNil(t, ok.FinishedAt)

	bad, err := s.GetRun(context.Background(), "bad-run")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailure, bad.Status)
	assert.Equal(t, string(pipeline.KindScorerError), bad.ErrorKind)
	assert.Equal(t, "judge down", bad.ErrorMessage)
}

func TestSink_CancelledContextStillRecords(t *testing.T) {
	logger := zerolog.Nop()
	s := openTestStore(t)
	sink := NewSink(s, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink.RunStarted(ctx, pipeline.RunStart{RunID: "r", SampleCount: 1, StartedAt: time.Now()})
	sink.RunFailed(ctx, pipeline.RunFailure{RunID: "r", SampleCount: 1, Kind: pipeline.KindScorerError, Err: context.Canceled})

	got, err := s.GetRun(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailure, got.Status)
}
