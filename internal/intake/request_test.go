package intake

import (
	"errors"
	"testing"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRequest = `{
  "request_id": "req-1",
  "scorer": "lexical",
  "samples": [
    {
      "question": "What is Go?",
      "ground_truth": "Go is a programming language.",
      "answer": "Go is a language made at Google.",
      "contexts": ["Go is an open source programming language."]
    }
  ],
  "thresholds": {"faithfulness": 0.9, "context_recall": 0.5}
}`

func TestDecodeRequest_Valid(t *testing.T) {
	req, err := DecodeRequest([]byte(validRequest))
	require.NoError(t, err)

	assert.Equal(t, "req-1", req.RequestID)
	assert.Equal(t, "lexical", req.Scorer)
	require.Len(t, req.Samples, 1)
	assert.Equal(t, []string{"Go is an open source programming language."}, req.Samples[0].Contexts)
	assert.Equal(t, []models.Metric{models.MetricFaithfulness, models.MetricContextRecall}, req.Thresholds.Metrics())
}

func TestDecodeRequest_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":          `{"samples": [`,
		"missing samples":   `{"request_id": "x"}`,
		"sample not object": `{"samples": ["hello"]}`,
		"missing answer":    `{"samples": [{"question": "q", "ground_truth": "g", "contexts": []}]}`,
		"contexts string":   `{"samples": [{"question": "q", "ground_truth": "g", "answer": "a", "contexts": "c"}]}`,
		"unknown metric":    `{"samples": [], "thresholds": {"bleu": 0.5}}`,
		"threshold too big": `{"samples": [], "thresholds": {"faithfulness": 1.5}}`,
		"threshold string":  `{"samples": [], "thresholds": {"faithfulness": "high"}}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(raw))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestDecodeRequest_EmptySamplesDecodes(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"samples": []}`))
	require.NoError(t, err)
	assert.Empty(t, req.Samples)
	assert.True(t, req.Thresholds.IsZero())
}

func TestDecodeSample(t *testing.T) {
	sample, err := DecodeSample([]byte(`{"question":"q","ground_truth":"g","answer":"a","contexts":["c1","c2"],"extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationSample{Question: "q", GroundTruth: "g", Answer: "a", Contexts: []string{"c1", "c2"}}, sample)

	_, err = DecodeSample([]byte(`{"question":"q"}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestResolveThresholds(t *testing.T) {
	req, err := DecodeRequest([]byte(validRequest))
	require.NoError(t, err)

	got, err := req.ResolveThresholds(policy.Thresholds{})
	require.NoError(t, err)

	assert.Equal(t, []policy.Threshold{
		{Metric: models.MetricContextPrecision, Min: 0.75},
		{Metric: models.MetricContextRecall, Min: 0.5},
		{Metric: models.MetricFaithfulness, Min: 0.9},
		{Metric: models.MetricAnswerRelevancy, Min: 0.75},
	}, got.Entries())

	base, err := policy.New(policy.Threshold{Metric: models.MetricAnswerRelevancy, Min: 0.1})
	require.NoError(t, err)
	got, err = Request{}.ResolveThresholds(base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Line: 4, Err: errors.New("bad")}
	assert.Equal(t, "line 4: invalid input: bad", err.Error())
	assert.Equal(t, "invalid input: bad", (&ValidationError{Err: errors.New("bad")}).Error())
}
