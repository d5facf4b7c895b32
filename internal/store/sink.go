package store

import (
	"context"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/rs/zerolog"
)

// Sink records every run: a pending row on start, updated on finish.
// Rows left pending point at runs that never completed.
type Sink struct {
	store  Store
	now    func() time.Time
	logger *zerolog.Logger
}

func NewSink(store Store, logger *zerolog.Logger) *Sink {
	return &Sink{store: store, now: time.Now, logger: logger}
}

func (s *Sink) RunStarted(ctx context.Context, e pipeline.RunStart) {
	err := s.store.CreateRun(context.WithoutCancel(ctx), RunRecord{
		RunID:       e.RunID,
		Status:      models.RunStatusPending,
		SampleCount: e.SampleCount,
		StartedAt:   e.StartedAt,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", e.RunID).Msg("failed to record run start")
	}
}

func (s *Sink) RunSucceeded(ctx context.Context, e pipeline.RunSuccess) {
	finished := s.now().UTC()
	result := e.Result
	s.finish(ctx, RunRecord{
		RunID:       result.RunID,
		Status:      models.RunStatusSuccess,
		SampleCount: result.SampleCount,
		FinishedAt:  &finished,
		Result:      &result,
	})
}

func (s *Sink) RunFailed(ctx context.Context, e pipeline.RunFailure) {
	finished := s.now().UTC()
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	s.finish(ctx, RunRecord{
		RunID:        e.RunID,
		Status:       models.RunStatusFailure,
		SampleCount:  e.SampleCount,
		FinishedAt:   &finished,
		ErrorKind:    string(e.Kind),
		ErrorMessage: msg,
	})
}

func (s *Sink) finish(ctx context.Context, run RunRecord) {
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.RunID).Msg("failed to record run finish")
	}
}
