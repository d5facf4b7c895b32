package telemetry

import (
	"context"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink exports pipeline runs as Prometheus metrics.
//
//	rag_eval_runs_total{status}                  finished runs by outcome
//	rag_eval_threshold_failures_total{metric}    metrics below their minimum
//	rag_eval_metric_score{metric}                last batch score per metric
//	rag_eval_run_duration_seconds{status}        run latency
//	rag_eval_runs_in_flight                      runs started but not finished
type MetricsSink struct {
	RunsTotal         *prometheus.CounterVec
	ThresholdFailures *prometheus.CounterVec
	MetricScore       *prometheus.GaugeVec
	RunDuration       *prometheus.HistogramVec
	InFlight          prometheus.Gauge
}

// NewMetricsSink registers the collectors with reg. Use
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)
	return &MetricsSink{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_eval_runs_total",
				Help: "Evaluation runs by final status",
			},
			[]string{"status"},
		),
		ThresholdFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_eval_threshold_failures_total",
				Help: "Metrics that fell below their threshold",
			},
			[]string{"metric"},
		),
		MetricScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rag_eval_metric_score",
				Help: "Most recent batch score per metric",
			},
			[]string{"metric"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rag_eval_run_duration_seconds",
				Help:    "Evaluation run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rag_eval_runs_in_flight",
				Help: "Evaluation runs currently scoring",
			},
		),
	}
}

func (m *MetricsSink) RunStarted(context.Context, pipeline.RunStart) {
	m.InFlight.Inc()
}

func (m *MetricsSink) RunSucceeded(_ context.Context, e pipeline.RunSuccess) {
	m.InFlight.Dec()
	m.RunsTotal.WithLabelValues(string(models.RunStatusSuccess)).Inc()
	m.RunDuration.WithLabelValues(string(models.RunStatusSuccess)).Observe(e.Duration.Seconds())

	for metric, score := range e.Result.Scores {
		m.MetricScore.WithLabelValues(string(metric)).Set(score)
	}
	for _, metric := range e.Result.ThresholdFailures {
		m.ThresholdFailures.WithLabelValues(string(metric)).Inc()
	}
}

func (m *MetricsSink) RunFailed(_ context.Context, e pipeline.RunFailure) {
	m.InFlight.Dec()
	m.RunsTotal.WithLabelValues(string(models.RunStatusFailure)).Inc()
	m.RunDuration.WithLabelValues(string(models.RunStatusFailure)).Observe(e.Duration.Seconds())
}
