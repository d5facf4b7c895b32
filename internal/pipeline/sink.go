package pipeline

import (
	"context"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
)

type RunStart struct {
	RunID       string
	SampleCount int
	Thresholds  policy.Thresholds
	StartedAt   time.Time
}

type RunSuccess struct {
	Result     models.EvaluationResult
	Thresholds policy.Thresholds
	Duration   time.Duration
}

type RunFailure struct {
	RunID       string
	SampleCount int
	Thresholds  policy.Thresholds
	Kind        ErrorKind
	Err         error
	Duration    time.Duration
}

// EventSink observes the lifecycle of a run. Implementations handle their
// own failures; nothing they do changes the outcome of Evaluate.
type EventSink interface {
	RunStarted(ctx context.Context, event RunStart)
	RunSucceeded(ctx context.Context, event RunSuccess)
	RunFailed(ctx context.Context, event RunFailure)
}

// MultiSink forwards every event to each sink in order.
type MultiSink []EventSink

func (m MultiSink) RunStarted(ctx context.Context, event RunStart) {
	for _, s := range m {
		s.RunStarted(ctx, event)
	}
}

func (m MultiSink) RunSucceeded(ctx context.Context, event RunSuccess) {
	for _, s := range m {
		s.RunSucceeded(ctx, event)
	}
}

func (m MultiSink) RunFailed(ctx context.Context, event RunFailure) {
	for _, s := range m {
		s.RunFailed(ctx, event)
	}
}
