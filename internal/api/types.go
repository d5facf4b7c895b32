package api

import (
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/store"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// EvaluateRequest documents the evaluate body. Decoding goes through
// intake.DecodeRequest so the schema is enforced.
type EvaluateRequest struct {
	RequestID  string                    `json:"request_id,omitempty"`
	Samples    []models.EvaluationSample `json:"samples"`
	Thresholds map[string]float64        `json:"thresholds,omitempty"`
	Scorer     string                    `json:"scorer,omitempty"`
}

type ThresholdsResponse struct {
	Thresholds policy.Thresholds `json:"thresholds"`
}

type RunsResponse struct {
	Runs []store.RunRecord `json:"runs"`
}
