package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
)

const (
	ToolEvaluate      = "evaluate_rag"
	ToolGetThresholds = "get_thresholds"
)

type Executor interface {
	Execute(ctx context.Context, req intake.Request) (models.EvaluationResult, error)
}

type ThresholdSource interface {
	Current() policy.Thresholds
}

// EvaluateInput is the MCP tool input schema (matches HTTP API field names).
type EvaluateInput struct {
	RequestID  string                    `json:"request_id,omitempty" jsonschema:"optional request identifier"`
	Samples    []models.EvaluationSample `json:"samples" jsonschema:"samples to score as one batch"`
	Thresholds map[string]float64        `json:"thresholds,omitempty" jsonschema:"per-metric minimum scores overriding the active policy"`
	Scorer     string                    `json:"scorer,omitempty" jsonschema:"scorer name: lexical or judge"`
}

// EvaluateOutput mirrors EvaluationResult with plain JSON types.
type EvaluateOutput struct {
	RunID             string             `json:"run_id"`
	Timestamp         string             `json:"timestamp"`
	SampleCount       int                `json:"sample_count"`
	Scores            map[string]float64 `json:"scores"`
	ThresholdFailures []string           `json:"threshold_failures"`
	Passed            bool               `json:"passed"`
}

type ThresholdsInput struct{}

type ThresholdEntry struct {
	Metric string  `json:"metric"`
	Min    float64 `json:"min"`
}

type ThresholdsOutput struct {
	Thresholds []ThresholdEntry `json:"thresholds" jsonschema:"thresholds in policy order"`
}

// NewEvaluateHandler returns a tool handler that uses the given executor.
// Pass the returned function to mcp.AddTool.
func NewEvaluateHandler(exec Executor, logger *zerolog.Logger) func(context.Context, *mcp.CallToolRequest, EvaluateInput) (*mcp.CallToolResult, EvaluateOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input EvaluateInput) (*mcp.CallToolResult, EvaluateOutput, error) {
		return EvaluateResponse(ctx, exec, logger, input)
	}
}

// EvaluateResponse validates input the same way the HTTP API does and runs
// the pipeline once.
func EvaluateResponse(
	ctx context.Context,
	exec Executor,
	logger *zerolog.Logger,
	input EvaluateInput,
) (*mcp.CallToolResult, EvaluateOutput, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, EvaluateOutput{}, fmt.Errorf("encode input: %w", err)
	}
	req, err := intake.DecodeRequest(raw)
	if err != nil {
		return nil, EvaluateOutput{}, err
	}

	result, err := exec.Execute(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("MCP evaluation failed")
		return nil, EvaluateOutput{}, err
	}
	return nil, toOutput(result), nil
}

func toOutput(r models.EvaluationResult) EvaluateOutput {
	out := EvaluateOutput{
		RunID:             r.RunID,
		Timestamp:         r.Timestamp.UTC().Format(time.RFC3339Nano),
		SampleCount:       r.SampleCount,
		Scores:            make(map[string]float64, len(r.Scores)),
		ThresholdFailures: make([]string, 0, len(r.ThresholdFailures)),
		Passed:            r.Passed(),
	}
	for m, v := range r.Scores {
		out.Scores[string(m)] = v
	}
	for _, m := range r.ThresholdFailures {
		out.ThresholdFailures = append(out.ThresholdFailures, string(m))
	}
	return out
}

func NewThresholdsHandler(source ThresholdSource) func(context.Context, *mcp.CallToolRequest, ThresholdsInput) (*mcp.CallToolResult, ThresholdsOutput, error) {
	return func(context.Context, *mcp.CallToolRequest, ThresholdsInput) (*mcp.CallToolResult, ThresholdsOutput, error) {
		current := policy.Default()
		if source != nil {
			current = source.Current()
		}
		out := ThresholdsOutput{Thresholds: make([]ThresholdEntry, 0, current.Len())}
		for _, e := range current.Entries() {
			out.Thresholds = append(out.Thresholds, ThresholdEntry{Metric: string(e.Metric), Min: e.Min})
		}
		return nil, out, nil
	}
}

// NewServer registers the evaluation tools on a fresh MCP server.
func NewServer(exec Executor, source ThresholdSource, version string, logger *zerolog.Logger) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "rag-eval",
			Version: version,
		}, nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolEvaluate,
		Description: "Score a batch of RAG samples (context precision, context recall, faithfulness, answer relevancy) and check the scores against thresholds",
	}, NewEvaluateHandler(exec, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetThresholds,
		Description: "Return the active threshold policy",
	}, NewThresholdsHandler(source))

	return server
}
