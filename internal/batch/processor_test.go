package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
)

type fakeExecutor struct {
	mu       sync.Mutex
	requests []intake.Request
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	fail     map[string]error
}

func (f *fakeExecutor) Execute(ctx context.Context, req intake.Request) (models.EvaluationResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.fail[req.RequestID]; err != nil {
		return models.EvaluationResult{}, err
	}

	failures := []models.Metric{}
	score := 0.9
	if len(req.Samples) == 1 {
		score = 0.2
		failures = []models.Metric{models.MetricFaithfulness}
	}
	return models.EvaluationResult{
		RunID:             "run-" + req.RequestID,
		SampleCount:       len(req.Samples),
		Scores:            models.Scores{models.MetricFaithfulness: score},
		ThresholdFailures: failures,
	}, nil
}

func records(n int) []InputRecord {
	out := make([]InputRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, InputRecord{
			LineNumber: i + 1,
			Sample:     models.EvaluationSample{Question: "q", GroundTruth: "g", Answer: "a", Contexts: []string{"c"}},
		})
	}
	return out
}

func drain(ch <-chan Result) []Result {
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Batch < out[j].Batch })
	return out
}

func TestSplit(t *testing.T) {
	in := records(5)
	in[1].Error = errors.New("bad line")

	tests := []struct {
		name      string
		size      int
		wantSizes []int
		wantFirst []int
	}{
		{name: "single batch", size: 0, wantSizes: []int{4}, wantFirst: []int{1}},
		{name: "pairs", size: 2, wantSizes: []int{2, 2}, wantFirst: []int{1, 4}},
		{name: "larger than input", size: 10, wantSizes: []int{4}, wantFirst: []int{1}},
		{name: "one each", size: 1, wantSizes: []int{1, 1, 1, 1}, wantFirst: []int{1, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(in, tt.size)
			if len(got) != len(tt.wantSizes) {
				t.Fatalf("expected %d batches, got %d", len(tt.wantSizes), len(got))
			}
			for i, b := range got {
				if b.Index != i {
					t.Errorf("batch %d: index %d", i, b.Index)
				}
				if len(b.Samples) != tt.wantSizes[i] {
					t.Errorf("batch %d: expected %d samples, got %d", i, tt.wantSizes[i], len(b.Samples))
				}
				if b.FirstLine != tt.wantFirst[i] {
					t.Errorf("batch %d: expected first line %d, got %d", i, tt.wantFirst[i], b.FirstLine)
				}
			}
		})
	}

	if got := Split(nil, 3); got != nil {
		t.Errorf("expected no batches for empty input, got %v", got)
	}
}

func TestProcessor_Process(t *testing.T) {
	boom := errors.New("judge unavailable")
	exec := &fakeExecutor{
		delay: 20 * time.Millisecond,
		fail:  map[string]error{"batch-0002": boom},
	}
	override, err := policy.New(policy.Threshold{Metric: models.MetricFaithfulness, Min: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	p := NewProcessor(exec, ProcessorConfig{BatchSize: 2, Workers: 2, Scorer: "lexical", Thresholds: override}, newTestLogger())
	results := drain(p.Process(context.Background(), Split(records(7), 2)))

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[1].Err == nil || results[1].Error != boom.Error() {
		t.Errorf("expected batch 2 to fail with %v, got %+v", boom, results[1])
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].Result == nil {
			t.Errorf("batch %d: expected result", i)
		}
	}
	if results[3].SampleCount != 1 || results[3].FirstLine != 7 {
		t.Errorf("unexpected last batch %+v", results[3])
	}

	if peak := exec.peak.Load(); peak > 2 {
		t.Errorf("expected at most 2 concurrent runs, saw %d", peak)
	}
	for _, req := range exec.requests {
		if req.Scorer != "lexical" {
			t.Errorf("expected scorer lexical, got %q", req.Scorer)
		}
		if v, _ := req.Thresholds.Get(models.MetricFaithfulness); v != 0.5 {
			t.Errorf("expected threshold override 0.5, got %v", v)
		}
	}
}

func TestProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExecutor{}
	p := NewProcessor(exec, ProcessorConfig{Workers: 1}, newTestLogger())
	results := drain(p.Process(ctx, Split(records(3), 1)))

	if len(results) != 0 {
		t.Errorf("expected no batches to start after cancellation, got %d", len(results))
	}
}

func TestWriter_JSONL(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatJSONL, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	result := models.EvaluationResult{RunID: "run-1", SampleCount: 2, Scores: models.Scores{models.MetricFaithfulness: 0.9}, ThresholdFailures: []models.Metric{}}
	if err := w.Write(Result{Batch: 0, RequestID: "batch-0001", FirstLine: 1, SampleCount: 2, Result: &result}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Result{Batch: 1, RequestID: "batch-0002", FirstLine: 3, SampleCount: 1, Error: "boom", Err: errors.New("boom")}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatal(err)
	}
	if _, ok := first["error"]; ok {
		t.Errorf("successful batch should not carry an error: %v", first)
	}
	if second["error"] != "boom" {
		t.Errorf("expected error in second line, got %v", second)
	}
	if _, ok := second["result"]; ok {
		t.Errorf("failed batch should not carry a result: %v", second)
	}
}

func TestWriter_Summary(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatSummary, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	pass := models.EvaluationResult{
		Scores:            models.Scores{models.MetricFaithfulness: 0.9, models.MetricContextRecall: 0.8},
		ThresholdFailures: []models.Metric{},
	}
	fail := models.EvaluationResult{
		Scores:            models.Scores{models.MetricFaithfulness: 0.5, models.MetricContextRecall: 0.4},
		ThresholdFailures: []models.Metric{models.MetricFaithfulness, models.MetricContextRecall},
	}
	for _, r := range []Result{
		{SampleCount: 2, Result: &pass},
		{SampleCount: 2, Result: &fail},
		{SampleCount: 1, Error: "boom"},
	} {
		if err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	var got Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if got.Runs != 3 || got.FailedRuns != 1 || got.ErroredRuns != 1 || got.Samples != 5 {
		t.Errorf("unexpected counts %+v", got)
	}
	if v := got.MeanScores[models.MetricFaithfulness]; v < 0.6999 || v > 0.7001 {
		t.Errorf("expected mean faithfulness 0.7, got %v", v)
	}
	if got.ThresholdFailures[models.MetricContextRecall] != 1 {
		t.Errorf("expected one context_recall failure, got %v", got.ThresholdFailures)
	}
}

func TestNewWriter_UnknownFormat(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, "csv", newTestLogger()); err == nil {
		t.Error("expected error for unknown format")
	}
}
