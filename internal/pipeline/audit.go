package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/eventlog"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

const (
	OperationStart  = "evaluation_start"
	OperationAlert  = "threshold_alert"
	OperationFinish = "evaluation_finish"

	StatusBelowThreshold = "below_threshold"
)

// Emitter writes one structured record. *eventlog.Logger implements it.
type Emitter interface {
	Emit(fields map[string]any) error
}

type AuditOption func(*AuditSink)

// WithExtraFields adds static fields (service name, environment) to every
// record. Core fields always win over extra ones.
func WithExtraFields(extra map[string]any) AuditOption {
	return func(s *AuditSink) {
		for k, v := range extra {
			s.extra[k] = v
		}
	}
}

// AuditSink writes the run lifecycle to the structured event log.
type AuditSink struct {
	log    Emitter
	logger *zerolog.Logger
	extra  map[string]any
}

func NewAuditSink(log Emitter, logger *zerolog.Logger, opts ...AuditOption) *AuditSink {
	s := &AuditSink{
		log:    log,
		logger: logger,
		extra:  map[string]any{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuditSink) RunStarted(_ context.Context, e RunStart) {
	s.emit(e.RunID, OperationStart, string(models.RunStatusPending), map[string]any{
		"sample_count": e.SampleCount,
		"thresholds":   e.Thresholds,
	})
}

func (s *AuditSink) RunSucceeded(_ context.Context, e RunSuccess) {
	res := e.Result

	for _, metric := range res.ThresholdFailures {
		threshold, _ := e.Thresholds.Get(metric)
		s.emit(res.RunID, OperationAlert, StatusBelowThreshold, map[string]any{
			"metric":    metric,
			"score":     res.Scores[metric],
			"threshold": threshold,
		})
	}

	fields := map[string]any{
		"sample_count":       res.SampleCount,
		"scores":             res.Scores,
		"threshold_failures": res.ThresholdFailures,
		"passed":             res.Passed(),
		"result_timestamp":   res.Timestamp,
		"duration_ms":        e.Duration.Milliseconds(),
	}
	digest, err := res.Digest()
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", res.RunID).Msg("failed to compute result digest")
	} else {
		fields["result_digest"] = digest
	}

	s.emit(res.RunID, OperationFinish, string(models.RunStatusSuccess), fields)
}

func (s *AuditSink) RunFailed(_ context.Context, e RunFailure) {
	s.emit(e.RunID, OperationFinish, string(models.RunStatusFailure), map[string]any{
		"sample_count": e.SampleCount,
		"error_kind":   e.Kind,
		"error_type":   fmt.Sprintf("%T", e.Err),
		"error":        e.Err.Error(),
		"duration_ms":  e.Duration.Milliseconds(),
	})
}

func (s *AuditSink) emit(runID, operation, status string, payload map[string]any) {
	fields := make(map[string]any, len(s.extra)+len(payload)+3)
	for k, v := range s.extra {
		fields[k] = v
	}
	for k, v := range payload {
		fields[k] = v
	}
	fields["run_id"] = runID
	fields["operation"] = operation
	fields["status"] = status

	err := s.log.Emit(fields)
	if err == nil {
		return
	}

	var serr *eventlog.SerializationError
	if !errors.As(err, &serr) {
		s.logger.Error().Err(err).Str("run_id", runID).Str("operation", operation).Msg("failed to write audit record")
		return
	}

	s.logger.Warn().Err(err).Str("run_id", runID).Str("operation", operation).Msg("audit record not serializable, writing degraded record")

	degraded := map[string]any{
		"run_id":              runID,
		"operation":           operation,
		"status":              status,
		"degraded":            true,
		"serialization_error": serr.Error(),
	}
	if err := s.log.Emit(degraded); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Str("operation", operation).Msg("failed to write degraded audit record")
	}
}
