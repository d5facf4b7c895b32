package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/config"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/llm"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

var (
	ErrContextRequired = errors.New("judge requires retrieved contexts")
	ErrInvalidResponse = errors.New("invalid judge response")
)

// promptData is what a judge prompt template can reference.
type promptData struct {
	Question    string
	GroundTruth string
	Answer      string
	Contexts    []string
	Context     string
}

type judgeResponse struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// LLMJudge scores one metric for one sample with a configurable prompt.
type LLMJudge struct {
	metric          models.Metric
	promptTemplate  *template.Template
	modelConfig     config.ModelConfig
	requiresContext bool
	llmClient       llm.LLMClient
	logger          *zerolog.Logger
}

func NewLLMJudge(
	judgeCfg config.JudgeConfiguration,
	llmClient llm.LLMClient,
	logger *zerolog.Logger,
) (*LLMJudge, error) {
	metric, err := models.ParseMetric(judgeCfg.Name)
	if err != nil {
		return nil, fmt.Errorf("judge %s: %w", judgeCfg.Name, err)
	}

	tmpl, err := template.New(judgeCfg.Name).Option("missingkey=error").Parse(judgeCfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template for judge %s: %w", judgeCfg.Name, err)
	}
	// Catch references to unknown fields at build time instead of per sample.
	if err := tmpl.Execute(&bytes.Buffer{}, promptData{Contexts: []string{""}}); err != nil {
		return nil, fmt.Errorf("prompt template for judge %s does not render: %w", judgeCfg.Name, err)
	}

	if judgeCfg.Model == nil {
		return nil, fmt.Errorf("judge %s has nil model config (should be populated by config loader)", judgeCfg.Name)
	}

	return &LLMJudge{
		metric:          metric,
		promptTemplate:  tmpl,
		modelConfig:     *judgeCfg.Model,
		requiresContext: judgeCfg.RequiresContext,
		llmClient:       llmClient,
		logger:          logger,
	}, nil
}

func (j *LLMJudge) Metric() models.Metric {
	return j.metric
}

// Evaluate returns the judge's score for one sample.
func (j *LLMJudge) Evaluate(ctx context.Context, sample models.EvaluationSample) (float64, error) {
	now := time.Now()

	if j.requiresContext && len(sample.Contexts) == 0 {
		j.logger.Warn().
			Str("judge", string(j.metric)).
			Msg("judge requires context but none provided")
		return 0, fmt.Errorf("%s: %w", j.metric, ErrContextRequired)
	}

	prompt, err := j.buildPrompt(sample)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build prompt: %w", j.metric, err)
	}

	request := llm.LLMRequest{
		Prompt:      prompt,
		MaxTokens:   j.modelConfig.MaxTokens,
		Temperature: j.modelConfig.Temperature,
	}

	var resp *llm.LLMResponse
	if j.modelConfig.Retry {
		resp, err = j.llmClient.InvokeModelWithRetry(ctx, request)
	} else {
		resp, err = j.llmClient.InvokeModel(ctx, request)
	}
	if err != nil {
		j.logger.Error().
			Err(err).
			Str("judge", string(j.metric)).
			Msg("LLM call failed")
		return 0, fmt.Errorf("%s: LLM call failed: %w", j.metric, err)
	}

	content := stripMarkdownCodeBlock(resp.Content)
	var parsed judgeResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		j.logger.Error().
			Err(err).
			Str("judge", string(j.metric)).
			Str("content", resp.Content).
			Msg("failed to deserialize LLM response")
		return 0, fmt.Errorf("%s: %w: %v", j.metric, ErrInvalidResponse, err)
	}

	if parsed.Score == nil {
		return 0, fmt.Errorf("%s: %w: missing score", j.metric, ErrInvalidResponse)
	}
	score := *parsed.Score
	if math.IsNaN(score) || score < 0.0 || score > 1.0 {
		return 0, fmt.Errorf("%s: %w: score %f out of range [0.0, 1.0]", j.metric, ErrInvalidResponse, score)
	}

	j.logger.Debug().
		Str("judge", string(j.metric)).
		Float64("score", score).
		Str("reason", parsed.Reason).
		Dur("duration", time.Since(now)).
		Msg("judge completed")

	return score, nil
}

func (j *LLMJudge) buildPrompt(sample models.EvaluationSample) (string, error) {
	data := promptData{
		Question:    sample.Question,
		GroundTruth: sample.GroundTruth,
		Answer:      sample.Answer,
		Contexts:    sample.Contexts,
		Context:     strings.Join(sample.Contexts, "\n\n"),
	}

	var buf bytes.Buffer
	if err := j.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

// stripMarkdownCodeBlock removes markdown code block formatting if present
func stripMarkdownCodeBlock(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		firstNewline := strings.Index(content, "\n")
		if firstNewline == -1 {
			return content
		}

		closingBackticks := strings.LastIndex(content, "```")
		if closingBackticks == -1 || closingBackticks <= firstNewline {
			return content
		}

		content = strings.TrimSpace(content[firstNewline+1 : closingBackticks])
	}

	return content
}
