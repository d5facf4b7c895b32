package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/aggregator"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

const (
	FormatJSONL   = "jsonl"
	FormatSummary = "summary"
)

type Writer interface {
	Write(result Result) error
	Close() error
}

func NewWriter(w io.Writer, format string, logger *zerolog.Logger) (Writer, error) {
	switch format {
	case FormatJSONL, "":
		return &jsonlWriter{enc: json.NewEncoder(w)}, nil
	case FormatSummary:
		return &summaryWriter{
			w:          w,
			aggregator: aggregator.NewAggregator(logger),
			failures:   make(map[models.Metric]int),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: %s, %s)", format, FormatJSONL, FormatSummary)
	}
}

type jsonlWriter struct {
	enc *json.Encoder
}

func (w *jsonlWriter) Write(result Result) error {
	return w.enc.Encode(result)
}

func (w *jsonlWriter) Close() error { return nil }

// Summary is the aggregate report over every batch of a run.
type Summary struct {
	Runs              int                   `json:"runs"`
	FailedRuns        int                   `json:"failed_runs"`
	ErroredRuns       int                   `json:"errored_runs"`
	Samples           int                   `json:"samples"`
	MeanScores        models.Scores         `json:"mean_scores"`
	ThresholdFailures map[models.Metric]int `json:"threshold_failures"`
}

type summaryWriter struct {
	w          io.Writer
	aggregator *aggregator.Aggregator
	scores     []models.Scores
	failures   map[models.Metric]int
	summary    Summary
}

func (w *summaryWriter) Write(result Result) error {
	w.summary.Runs++
	w.summary.Samples += result.SampleCount

	if result.Result == nil {
		w.summary.ErroredRuns++
		return nil
	}

	w.scores = append(w.scores, result.Result.Scores)
	if !result.Result.Passed() {
		w.summary.FailedRuns++
	}
	for _, m := range result.Result.ThresholdFailures {
		w.failures[m]++
	}
	return nil
}

// Summarize returns the report accumulated so far.
func (w *summaryWriter) Summarize() Summary {
	s := w.summary
	s.MeanScores = w.aggregator.Aggregate(w.scores)
	s.ThresholdFailures = w.failures
	return s
}

func (w *summaryWriter) Close() error {
	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	return enc.Encode(w.Summarize())
}
