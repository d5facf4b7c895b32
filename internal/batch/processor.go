package batch

import (
	"context"
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type Executor interface {
	Execute(ctx context.Context, req intake.Request) (models.EvaluationResult, error)
}

// Batch is a group of samples evaluated as one run.
type Batch struct {
	Index     int
	FirstLine int
	Samples   []models.EvaluationSample
}

// Result is the outcome of one batch. Exactly one of Result and Error is set.
type Result struct {
	Batch       int                      `json:"batch"`
	RequestID   string                   `json:"request_id"`
	FirstLine   int                      `json:"first_line"`
	SampleCount int                      `json:"sample_count"`
	Result      *models.EvaluationResult `json:"result,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Err         error                    `json:"-"`
}

type ProcessorConfig struct {
	BatchSize  int
	Workers    int
	Scorer     string
	Thresholds policy.Thresholds
}

type Processor struct {
	executor Executor
	cfg      ProcessorConfig
	logger   *zerolog.Logger
}

func NewProcessor(executor Executor, cfg ProcessorConfig, logger *zerolog.Logger) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Processor{
		executor: executor,
		cfg:      cfg,
		logger:   logger,
	}
}

// Split groups valid records into batches of size samples. A size of 0 or
// less puts every record into a single batch.
func Split(records []InputRecord, size int) []Batch {
	var valid []InputRecord
	for _, r := range records {
		if r.Error == nil {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(valid)
	}

	batches := make([]Batch, 0, (len(valid)+size-1)/size)
	for start := 0; start < len(valid); start += size {
		end := min(start+size, len(valid))
		b := Batch{
			Index:     len(batches),
			FirstLine: valid[start].LineNumber,
			Samples:   make([]models.EvaluationSample, 0, end-start),
		}
		for _, r := range valid[start:end] {
			b.Samples = append(b.Samples, r.Sample)
		}
		batches = append(batches, b)
	}
	return batches
}

// Process evaluates batches with at most Workers runs in flight. Results
// arrive in completion order and the channel closes when all are done. A
// failing batch does not stop the others.
func (p *Processor) Process(ctx context.Context, batches []Batch) <-chan Result {
	out := make(chan Result, len(batches))

	go func() {
		defer close(out)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)

		for _, b := range batches {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				out <- p.run(gctx, b)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

func (p *Processor) run(ctx context.Context, b Batch) Result {
	req := intake.Request{
		RequestID:  fmt.Sprintf("batch-%04d", b.Index+1),
		Samples:    b.Samples,
		Thresholds: p.cfg.Thresholds,
		Scorer:     p.cfg.Scorer,
	}

	res := Result{
		Batch:       b.Index,
		RequestID:   req.RequestID,
		FirstLine:   b.FirstLine,
		SampleCount: len(b.Samples),
	}

	result, err := p.executor.Execute(ctx, req)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("request_id", req.RequestID).
			Int("first_line", b.FirstLine).
			Msg("batch evaluation failed")
		res.Err = err
		res.Error = err.Error()
		return res
	}

	res.Result = &result
	return res
}
