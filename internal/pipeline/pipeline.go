package pipeline

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Scorer,EventSink

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"

var ErrEmptyBatch = errors.New("evaluation batch is empty")

// Scorer computes batch level scores for a set of samples.
type Scorer interface {
	Score(ctx context.Context, samples []models.EvaluationSample) (models.Scores, error)
}

type ScorerFunc func(ctx context.Context, samples []models.EvaluationSample) (models.Scores, error)

func (f ScorerFunc) Score(ctx context.Context, samples []models.EvaluationSample) (models.Scores, error) {
	return f(ctx, samples)
}

// ScoreRangeError reports a scorer value that is not a finite number in [0, 1].
type ScoreRangeError struct {
	Metric models.Metric
	Score  float64
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("score for %s is %v, want a finite value in [0.0, 1.0]", e.Metric, e.Score)
}

type ErrorKind string

const (
	KindMetricMissing ErrorKind = "metric_missing"
	KindInvalidScore  ErrorKind = "invalid_score"
	KindScorerError   ErrorKind = "scorer_error"
	KindScorerPanic   ErrorKind = "scorer_panic"
)

type Option func(*Pipeline)

func WithRunIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		p.newRunID = gen
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// Pipeline runs one scorer invocation per call and reports the lifecycle of
// each run to its sink.
type Pipeline struct {
	sink     EventSink
	logger   *zerolog.Logger
	newRunID func() string
	now      func() time.Time
	tracer   trace.Tracer
}

func NewPipeline(sink EventSink, logger *zerolog.Logger, opts ...Option) *Pipeline {
	if sink == nil {
		sink = MultiSink{}
	}
	p := &Pipeline{
		sink:     sink,
		logger:   logger,
		newRunID: uuid.NewString,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the state shared by the success and failure paths.
type run struct {
	id         string
	samples    int
	thresholds policy.Thresholds
	started    time.Time
	span       trace.Span
}

// Evaluate scores samples once and compares the scores to thresholds.
// A zero thresholds value means policy.Default(). Errors from the scorer
// and from score validation are returned unchanged.
func (p *Pipeline) Evaluate(
	ctx context.Context,
	samples []models.EvaluationSample,
	scorer Scorer,
	thresholds policy.Thresholds,
) (models.EvaluationResult, error) {
	if len(samples) == 0 {
		return models.EvaluationResult{}, ErrEmptyBatch
	}
	if scorer == nil {
		return models.EvaluationResult{}, errors.New("scorer is required")
	}
	if thresholds.IsZero() {
		thresholds = policy.Default()
	}

	r := run{
		id:         p.newRunID(),
		samples:    len(samples),
		thresholds: thresholds,
		started:    p.now(),
	}

	ctx, r.span = p.tracer.Start(ctx, "pipeline.evaluate", trace.WithAttributes(
		attribute.String("rag_eval.run_id", r.id),
		attribute.Int("rag_eval.sample_count", r.samples),
	))
	defer r.span.End()

	p.logger.Info().
		Str("run_id", r.id).
		Int("sample_count", r.samples).
		Msg("starting evaluation")

	p.sink.RunStarted(ctx, RunStart{
		RunID:       r.id,
		SampleCount: r.samples,
		Thresholds:  thresholds,
		StartedAt:   r.started,
	})

	scores, err := p.score(ctx, &r, scorer, models.CloneSamples(samples))
	if err != nil {
		p.fail(ctx, &r, KindScorerError, err)
		return models.EvaluationResult{}, err
	}

	scores, err = p.validate(&r, scores)
	if err != nil {
		p.fail(ctx, &r, KindInvalidScore, err)
		return models.EvaluationResult{}, err
	}

	failures, err := thresholds.Failures(scores)
	if err != nil {
		p.fail(ctx, &r, KindMetricMissing, err)
		return models.EvaluationResult{}, err
	}

	result := models.EvaluationResult{
		RunID:             r.id,
		Timestamp:         p.now().UTC(),
		SampleCount:       r.samples,
		Scores:            scores,
		ThresholdFailures: failures,
	}
	duration := p.now().Sub(r.started)

	r.span.SetAttributes(attribute.Int("rag_eval.threshold_failures", len(failures)))
	r.span.SetStatus(codes.Ok, "")

	p.logger.Info().
		Str("run_id", r.id).
		Int("threshold_failures", len(failures)).
		Dur("duration", duration).
		Msg("evaluation complete")

	p.sink.RunSucceeded(ctx, RunSuccess{
		Result:     result,
		Thresholds: thresholds,
		Duration:   duration,
	})

	return result, nil
}

// score invokes the scorer exactly once. A panic is reported as a failed run
// and then re-raised.
func (p *Pipeline) score(ctx context.Context, r *run, scorer Scorer, samples []models.EvaluationSample) (scores models.Scores, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.score")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			perr := fmt.Errorf("scorer panicked: %v", rec)
			span.RecordError(perr)
			span.SetStatus(codes.Error, perr.Error())
			p.fail(ctx, r, KindScorerPanic, perr)
			panic(rec)
		}
	}()

	scores, err = scorer.Score(ctx, samples)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return scores, err
}

// validate drops metrics outside the closed set and rejects values that are
// not finite numbers in [0, 1].
func (p *Pipeline) validate(r *run, scores models.Scores) (models.Scores, error) {
	clean := make(models.Scores, len(scores))
	for metric := range scores {
		if !metric.Valid() {
			p.logger.Warn().
				Str("run_id", r.id).
				Str("metric", string(metric)).
				Msg("dropping unknown metric from scorer output")
		}
	}

	for _, metric := range models.AllMetrics() {
		v, ok := scores[metric]
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0.0 || v > 1.0 {
			return nil, &ScoreRangeError{Metric: metric, Score: v}
		}
		clean[metric] = v
	}
	return clean, nil
}

func (p *Pipeline) fail(ctx context.Context, r *run, kind ErrorKind, err error) {
	duration := p.now().Sub(r.started)

	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
	r.span.SetAttributes(attribute.String("rag_eval.error_kind", string(kind)))

	p.logger.Error().
		Err(err).
		Str("run_id", r.id).
		Str("error_kind", string(kind)).
		Dur("duration", duration).
		Msg("evaluation failed")

	p.sink.RunFailed(ctx, RunFailure{
		RunID:       r.id,
		SampleCount: r.samples,
		Thresholds:  r.thresholds,
		Kind:        kind,
		Err:         err,
		Duration:    duration,
	})
}
