package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoThresholds       = errors.New("no thresholds configured")
	ErrDuplicateThreshold = errors.New("duplicate threshold")
	ErrThresholdRange     = errors.New("threshold out of range [0.0, 1.0]")
)

// Threshold is the minimum acceptable score for one metric.
type Threshold struct {
	Metric models.Metric `json:"metric"`
	Min    float64       `json:"min"`
}

// MetricMissingError reports a thresholded metric absent from the scorer output.
type MetricMissingError struct {
	Metric models.Metric
}

func (e *MetricMissingError) Error() string {
	return fmt.Sprintf("scorer output is missing metric %q", e.Metric)
}

// Thresholds is an ordered, immutable metric -> minimum policy.
// The zero value holds no entries; callers treat it as "use Default()".
type Thresholds struct {
	entries []Threshold
}

// Default returns the stock policy in declaration order.
func Default() Thresholds {
	return Thresholds{entries: []Threshold{
		{Metric: models.MetricContextPrecision, Min: 0.75},
		{Metric: models.MetricContextRecall, Min: 0.70},
		{Metric: models.MetricFaithfulness, Min: 0.80},
		{Metric: models.MetricAnswerRelevancy, Min: 0.75},
	}}
}

// New validates entries and returns them as a policy, keeping their order.
func New(entries ...Threshold) (Thresholds, error) {
	if len(entries) == 0 {
		return Thresholds{}, ErrNoThresholds
	}

	seen := make(map[models.Metric]bool, len(entries))
	out := make([]Threshold, 0, len(entries))
	for _, e := range entries {
		if err := validate(e); err != nil {
			return Thresholds{}, err
		}
		if seen[e.Metric] {
			return Thresholds{}, fmt.Errorf("%w: %s", ErrDuplicateThreshold, e.Metric)
		}
		seen[e.Metric] = true
		out = append(out, e)
	}

	return Thresholds{entries: out}, nil
}

func validate(e Threshold) error {
	if !e.Metric.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownMetric, e.Metric)
	}
	if math.IsNaN(e.Min) || e.Min < 0.0 || e.Min > 1.0 {
		return fmt.Errorf("%w: %s=%v", ErrThresholdRange, e.Metric, e.Min)
	}
	return nil
}

// With returns a copy where overridden metrics keep their position and
// metrics not yet present are appended in argument order.
func (t Thresholds) With(overrides ...Threshold) (Thresholds, error) {
	out := t.Entries()
	for _, o := range overrides {
		if err := validate(o); err != nil {
			return Thresholds{}, err
		}
		replaced := false
		for i := range out {
			if out[i].Metric == o.Metric {
				out[i].Min = o.Min
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return Thresholds{}, ErrNoThresholds
	}
	return Thresholds{entries: out}, nil
}

func (t Thresholds) Entries() []Threshold {
	out := make([]Threshold, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t Thresholds) Metrics() []models.Metric {
	out := make([]models.Metric, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Metric
	}
	return out
}

func (t Thresholds) Len() int {
	return len(t.entries)
}

func (t Thresholds) IsZero() bool {
	return len(t.entries) == 0
}

func (t Thresholds) Get(metric models.Metric) (float64, bool) {
	for _, e := range t.entries {
		if e.Metric == metric {
			return e.Min, true
		}
	}
	return 0, false
}

// Failures lists the metrics whose score is below the minimum, in declared
// order. It fails on the first thresholded metric the scores do not carry.
func (t Thresholds) Failures(scores models.Scores) ([]models.Metric, error) {
	failures := []models.Metric{}
	for _, e := range t.entries {
		score, ok := scores[e.Metric]
		if !ok {
			return nil, &MetricMissingError{Metric: e.Metric}
		}
		if score < e.Min {
			failures = append(failures, e.Metric)
		}
	}
	return failures, nil
}

// AsMap is a convenience view for log payloads; it loses ordering.
func (t Thresholds) AsMap() map[string]float64 {
	out := make(map[string]float64, len(t.entries))
	for _, e := range t.entries {
		out[string(e.Metric)] = e.Min
	}
	return out
}

// MarshalJSON writes an object whose keys follow the declared order.
func (t Thresholds) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Metric))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Min, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of metric -> minimum, keeping document order.
func (t *Thresholds) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = Thresholds{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("thresholds must be a JSON object")
	}

	var entries []Threshold
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("threshold %q must be a number", key)
		}
		v, err := num.Float64()
		if err != nil {
			return fmt.Errorf("threshold %q: %w", key, err)
		}
		entries = append(entries, Threshold{Metric: models.Metric(key), Min: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	if len(entries) == 0 {
		*t = Thresholds{}
		return nil
	}
	parsed, err := New(entries...)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML reads a mapping node, keeping document order.
func (t *Thresholds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: thresholds must be a mapping", node.Line)
	}

	entries := make([]Threshold, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var v float64
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("line %d: threshold %q: %w", val.Line, key.Value, err)
		}
		entries = append(entries, Threshold{Metric: models.Metric(key.Value), Min: v})
	}

	if len(entries) == 0 {
		*t = Thresholds{}
		return nil
	}
	parsed, err := New(entries...)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Thresholds) String() string {
	b, _ := t.MarshalJSON()
	return string(b)
}

// FromMap builds a policy from an unordered mapping. Entries follow the
// declaration order of models.AllMetrics. An empty map yields the zero value.
func FromMap(m map[string]float64) (Thresholds, error) {
	if len(m) == 0 {
		return Thresholds{}, nil
	}
	for name := range m {
		if _, err := models.ParseMetric(name); err != nil {
			return Thresholds{}, err
		}
	}

	entries := make([]Threshold, 0, len(m))
	for _, metric := range models.AllMetrics() {
		if v, ok := m[string(metric)]; ok {
			entries = append(entries, Threshold{Metric: metric, Min: v})
		}
	}
	return New(entries...)
}
