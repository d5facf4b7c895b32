package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsSink(reg)
	ctx := context.Background()

	m.RunStarted(ctx, pipeline.RunStart{RunID: "r1"})
	m.RunStarted(ctx, pipeline.RunStart{RunID: "r2"})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InFlight))

	m.RunSucceeded(ctx, pipeline.RunSuccess{
		Result: models.EvaluationResult{
			RunID: "r1",
			Scores: models.Scores{
				models.MetricFaithfulness:    0.6,
				models.MetricAnswerRelevancy: 0.9,
			},
			ThresholdFailures: []models.Metric{models.MetricFaithfulness},
		},
		Duration: 250 * time.Millisecond,
	})
	m.RunFailed(ctx, pipeline.RunFailure{RunID: "r2", Kind: pipeline.KindScorerError, Err: errors.New("x")})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 0.6, testutil.ToFloat64(m.MetricScore.WithLabelValues("faithfulness")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThresholdFailures.WithLabelValues("faithfulness")))

	expected := `
# HELP rag_eval_threshold_failures_total Metrics that fell below their threshold
# TYPE rag_eval_threshold_failures_total counter
rag_eval_threshold_failures_total{metric="faithfulness"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rag_eval_threshold_failures_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RunDuration))
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TraceConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
