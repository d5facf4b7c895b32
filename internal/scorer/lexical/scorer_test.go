package lexical

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTokenize(t *testing.T) {
	got := tokenize("The capital of France, is Paris!")

	want := []string{"capital", "france", "paris"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), got)
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("expected token %q in %v", w, got)
		}
	}
}

func TestCoverage(t *testing.T) {
	tests := []struct {
		name string
		want string
		have string
		cov  float64
	}{
		{"empty want", "", "anything here", 0.0},
		{"no overlap", "apple banana", "orange grape", 0.0},
		{"full overlap", "encryption security", "encryption and security matter", 1.0},
		{"partial overlap", "foo bar baz", "foo bar", 2.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coverage(tokenize(tt.want), tokenize(tt.have))
			if !almostEqual(got, tt.cov) {
				t.Errorf("expected %f, got %f", tt.cov, got)
			}
		})
	}
}

func TestContextPrecision_RankWeighted(t *testing.T) {
	s := NewScorer(0, newTestLogger())
	truth := tokenize("Paris is the capital of France")
	relevant := tokenize("Paris is the capital of France")
	noise := tokenize("Berlin is in Germany")

	tests := []struct {
		name     string
		contexts []tokenSet
		want     float64
	}{
		{"relevant first", []tokenSet{relevant, noise}, 1.0},
		{"relevant second", []tokenSet{noise, relevant}, 0.5},
		{"two relevant after noise", []tokenSet{noise, relevant, relevant}, (1.0/2.0 + 2.0/3.0) / 2},
		{"none relevant", []tokenSet{noise}, 0.0},
		{"no contexts", nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.contextPrecision(truth, tt.contexts)
			if !almostEqual(got, tt.want) {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestScore_Batch(t *testing.T) {
	s := NewScorer(DefaultMinOverlap, newTestLogger())

	samples := []models.EvaluationSample{
		{
			Question:    "What is the capital of France?",
			GroundTruth: "Paris is the capital of France.",
			Answer:      "The capital of France is Paris.",
			Contexts:    []string{"Paris is the capital of France."},
		},
		{
			Question:    "Who wrote Hamlet?",
			GroundTruth: "Shakespeare wrote Hamlet.",
			Answer:      "Berlin is in Germany.",
			Contexts:    []string{"Hamlet is a play by Shakespeare."},
		},
	}

	scores, err := s.Score(context.Background(), samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := models.Scores{
		models.MetricContextPrecision: 1.0,
		models.MetricContextRecall:    5.0 / 6.0,
		models.MetricFaithfulness:     0.5,
		models.MetricAnswerRelevancy:  1.0 / 3.0,
	}
	if len(scores) != len(want) {
		t.Fatalf("expected %d metrics, got %v", len(want), scores)
	}
	for metric, w := range want {
		if !almostEqual(scores[metric], w) {
			t.Errorf("%s: expected %f, got %f", metric, w, scores[metric])
		}
	}
}

func TestScore_EmptyContexts(t *testing.T) {
	s := NewScorer(0, newTestLogger())

	scores, err := s.Score(context.Background(), []models.EvaluationSample{{
		Question:    "What is Go?",
		GroundTruth: "Go is a language.",
		Answer:      "Go is a language.",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, metric := range []models.Metric{models.MetricContextPrecision, models.MetricContextRecall, models.MetricFaithfulness} {
		if scores[metric] != 0 {
			t.Errorf("%s: expected 0 without contexts, got %f", metric, scores[metric])
		}
	}
}

func TestScore_ContextCancelled(t *testing.T) {
	s := NewScorer(0, newTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Score(ctx, []models.EvaluationSample{{Question: "q"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewScorer_DefaultMinOverlap(t *testing.T) {
	if s := NewScorer(0, newTestLogger()); s.MinOverlap != DefaultMinOverlap {
		t.Errorf("expected default %f, got %f", DefaultMinOverlap, s.MinOverlap)
	}
}
