package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	got    intake.Request
	result models.EvaluationResult
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, req intake.Request) (models.EvaluationResult, error) {
	f.got = req
	return f.result, f.err
}

type staticSource struct{ t policy.Thresholds }

func (s staticSource) Current() policy.Thresholds { return s.t }

func sample() models.EvaluationSample {
	return models.EvaluationSample{
		Question:    "What is Go?",
		GroundTruth: "Go is a programming language.",
		Answer:      "Go is a language.",
		Contexts:    []string{"Go is an open source programming language."},
	}
}

func connect(t *testing.T, exec Executor, source ThresholdSource) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	server := NewServer(exec, source, "test", &logger)
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func decodeStructured(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestEvaluateResponse(t *testing.T) {
	exec := &fakeExecutor{result: models.EvaluationResult{
		RunID:             "run-1",
		Timestamp:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SampleCount:       1,
		Scores:            models.Scores{models.MetricFaithfulness: 0.4, models.MetricContextRecall: 0.9},
		ThresholdFailures: []models.Metric{models.MetricFaithfulness},
	}}
	logger := zerolog.Nop()

	_, out, err := EvaluateResponse(context.Background(), exec, &logger, EvaluateInput{
		RequestID:  "req-1",
		Samples:    []models.EvaluationSample{sample()},
		Thresholds: map[string]float64{"faithfulness": 0.8},
		Scorer:     "lexical",
	})
	require.NoError(t, err)

	assert.Equal(t, EvaluateOutput{
		RunID:             "run-1",
		Timestamp:         "2024-03-01T12:00:00Z",
		SampleCount:       1,
		Scores:            map[string]float64{"faithfulness": 0.4, "context_recall": 0.9},
		ThresholdFailures: []string{"faithfulness"},
		Passed:            false,
	}, out)

	assert.Equal(t, "req-1", exec.got.RequestID)
	assert.Equal(t, "lexical", exec.got.Scorer)
	v, ok := exec.got.Thresholds.Get(models.MetricFaithfulness)
	assert.True(t, ok)
	assert.Equal(t, 0.8, v)
}

func TestEvaluateResponse_Errors(t *testing.T) {
	logger := zerolog.Nop()

	_, _, err := EvaluateResponse(context.Background(), &fakeExecutor{}, &logger, EvaluateInput{
		Samples:    []models.EvaluationSample{sample()},
		Thresholds: map[string]float64{"bleu": 0.5},
	})
	var verr *intake.ValidationError
	assert.ErrorAs(t, err, &verr)

	boom := errors.New("judge unavailable")
	_, _, err = EvaluateResponse(context.Background(), &fakeExecutor{err: boom}, &logger, EvaluateInput{
		Samples: []models.EvaluationSample{sample()},
	})
	assert.ErrorIs(t, err, boom)
}

func TestServer_Tools(t *testing.T) {
	exec := &fakeExecutor{result: models.EvaluationResult{
		RunID:             "run-7",
		Timestamp:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SampleCount:       1,
		Scores:            models.Scores{models.MetricFaithfulness: 0.95},
		ThresholdFailures: []models.Metric{},
	}}
	custom, err := policy.New(
		policy.Threshold{Metric: models.MetricAnswerRelevancy, Min: 0.6},
		policy.Threshold{Metric: models.MetricContextPrecision, Min: 0.5},
	)
	require.NoError(t, err)

	session := connect(t, exec, staticSource{t: custom})
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolEvaluate, ToolGetThresholds}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: ToolEvaluate,
		Arguments: map[string]any{
			"samples": []any{map[string]any{
				"question":     "What is Go?",
				"ground_truth": "Go is a programming language.",
				"answer":       "Go is a language.",
				"contexts":     []string{"Go is an open source programming language."},
			}},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out EvaluateOutput
	decodeStructured(t, res, &out)
	assert.Equal(t, "run-7", out.RunID)
	assert.True(t, out.Passed)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: ToolGetThresholds, Arguments: map[string]any{}})
	require.NoError(t, err)
	var th ThresholdsOutput
	decodeStructured(t, res, &th)
	assert.Equal(t, []ThresholdEntry{
		{Metric: "answer_relevancy", Min: 0.6},
		{Metric: "context_precision", Min: 0.5},
	}, th.Thresholds)
}

func TestServer_EvaluateToolError(t *testing.T) {
	session := connect(t, &fakeExecutor{err: errors.New("scorer exploded")}, nil)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: ToolEvaluate,
		Arguments: map[string]any{
			"samples": []any{map[string]any{
				"question": "q", "ground_truth": "g", "answer": "a", "contexts": []string{},
			}},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
