package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gowebpki/jcs"
)

type Metric string

const (
	MetricContextPrecision Metric = "context_precision"
	MetricContextRecall    Metric = "context_recall"
	MetricFaithfulness     Metric = "faithfulness"
	MetricAnswerRelevancy  Metric = "answer_relevancy"
)

var ErrUnknownMetric = errors.New("unknown metric")

var allMetrics = []Metric{
	MetricContextPrecision,
	MetricContextRecall,
	MetricFaithfulness,
	MetricAnswerRelevancy,
}

// AllMetrics returns every supported metric in declaration order.
func AllMetrics() []Metric {
	return slices.Clone(allMetrics)
}

func ParseMetric(name string) (Metric, error) {
	m := Metric(name)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return m, nil
}

func (m Metric) Valid() bool {
	return slices.Contains(allMetrics, m)
}

func (m Metric) String() string {
	return string(m)
}

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

// EvaluationSample is one unit under test.
type EvaluationSample struct {
	Question    string   `json:"question" jsonschema:"Question to evaluate"`
	GroundTruth string   `json:"ground_truth" jsonschema:"Expected answer"`
	Answer      string   `json:"answer" jsonschema:"Generated answer from the RAG system"`
	Contexts    []string `json:"contexts" jsonschema:"Retrieved contexts in rank order"`
}

// Clone returns a deep copy so a scorer can never alias the caller's slices.
func (s EvaluationSample) Clone() EvaluationSample {
	s.Contexts = slices.Clone(s.Contexts)
	return s
}

func CloneSamples(samples []EvaluationSample) []EvaluationSample {
	out := make([]EvaluationSample, len(samples))
	for i, s := range samples {
		out[i] = s.Clone()
	}
	return out
}

// Scores maps a metric to its batch score in [0.0, 1.0].
type Scores map[Metric]float64

// EvaluationResult is the output of one pipeline run.
type EvaluationResult struct {
	RunID             string    `json:"run_id"`
	Timestamp         time.Time `json:"timestamp"`
	SampleCount       int       `json:"sample_count"`
	Scores            Scores    `json:"scores"`
	ThresholdFailures []Metric  `json:"threshold_failures"`
}

// Passed reports whether every thresholded metric met its minimum.
func (r EvaluationResult) Passed() bool {
	return len(r.ThresholdFailures) == 0
}

// Digest returns the hex SHA-256 of the canonical (RFC 8785) JSON form of the result.
func (r EvaluationResult) Digest() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize result: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
