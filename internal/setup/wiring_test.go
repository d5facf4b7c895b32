package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/scorer"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("EVENT_LOG_MAX_BACKUPS", "")
	t.Setenv("API_PORT", "")
	t.Setenv("DEFAULT_SCORER", "")
	t.Setenv("CLAIM_MIN_IDLE", "")

	cfg := LoadConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "logs/rag_evaluation.log", cfg.EventLogPath)
	assert.Equal(t, 5, cfg.EventLogMaxBackups)
	assert.Equal(t, 18081, cfg.APIPort)
	assert.Equal(t, scorer.Lexical, cfg.DefaultScorer)
	assert.Equal(t, "rag-eval-requests", cfg.RequestsStream)
	assert.Zero(t, cfg.EventLogRotateInterval)
	assert.Equal(t, 5*time.Minute, cfg.ClaimMinIdle)

	t.Setenv("API_PORT", "9000")
	t.Setenv("THRESHOLDS_WATCH", "true")
	t.Setenv("EVENT_LOG_ROTATE_INTERVAL", "24h")
	t.Setenv("EVENT_LOG_MAX_SIZE_BYTES", "not-a-number")
	t.Setenv("CLAIM_MIN_IDLE", "90s")

	cfg = LoadConfig()
	assert.Equal(t, 9000, cfg.APIPort)
	assert.True(t, cfg.ThresholdsWatch)
	assert.Equal(t, 24*time.Hour, cfg.EventLogRotateInterval)
	assert.Equal(t, int64(10*1024*1024), cfg.EventLogMaxSizeBytes)
	assert.Equal(t, 90*time.Second, cfg.ClaimMinIdle)
}

func baseConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		EventLogPath:  filepath.Join(dir, "logs", "rag_evaluation.log"),
		DefaultScorer: scorer.Lexical,
		ResultsStream: "rag-eval-results",
	}
}

func TestWire_LexicalEndToEnd(t *testing.T) {
	cfg := baseConfig(t)
	dir := filepath.Dir(cfg.EventLogPath)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cfg.ThresholdsConfigPath = filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(cfg.ThresholdsConfigPath, []byte("thresholds:\n  faithfulness: 0.99\n"), 0o644))
	cfg.StoreDriver = store.DriverSQLite
	cfg.StoreDSN = filepath.Join(dir, "runs.db")

	ctx := context.Background()
	deps, err := Wire(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer func() { assert.NoError(t, deps.Close(ctx)) }()

	assert.ElementsMatch(t, []string{scorer.Lexical}, deps.Scorers.Names())
	v, _ := deps.Thresholds.Current().Get(models.MetricFaithfulness)
	assert.Equal(t, 0.99, v)

	result, err := deps.Executor.Execute(ctx, intake.Request{
		RequestID: "req-1",
		Samples: []models.EvaluationSample{{
			Question:    "What is the capital of France?",
			GroundTruth: "Paris is the capital of France.",
			Answer:      "The capital of France is Paris and it is lovely.",
			Contexts:    []string{"Paris is the capital of France."},
		}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Scores, len(models.AllMetrics()))
	assert.Contains(t, result.ThresholdFailures, models.MetricFaithfulness)

	run, err := deps.Store.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, run.Status)

	data, err := os.ReadFile(cfg.EventLogPath)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, `"operation":"evaluation_start"`)
	assert.Contains(t, log, `"operation":"threshold_alert"`)
	assert.Contains(t, log, `"operation":"evaluation_finish"`)
	assert.Contains(t, log, result.RunID)

	families, err := deps.Metrics.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, strings.Join(names, ","), "rag_eval_runs_total")
}

func TestWire_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "judge default without provider",
			mutate:  func(c *Config) { c.DefaultScorer = scorer.Judge },
			wantErr: scorer.ErrUnknownScorer.Error(),
		},
		{
			name:    "unsupported provider",
			mutate:  func(c *Config) { c.LLMProvider = "watsonx" },
			wantErr: `unsupported LLM provider "watsonx"`,
		},
		{
			name:    "openai without key",
			mutate:  func(c *Config) { c.LLMProvider = "openai" },
			wantErr: "API key is required",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.StoreDriver = "mysql" },
			wantErr: `unsupported store driver "mysql"`,
		},
		{
			name: "late failure closes store and watcher",
			mutate: func(c *Config) {
				dir := filepath.Dir(c.EventLogPath)
				require.NoError(t, os.MkdirAll(dir, 0o755))
				c.StoreDriver = store.DriverSQLite
				c.StoreDSN = filepath.Join(dir, "runs.db")
				c.ThresholdsConfigPath = filepath.Join(dir, "thresholds.yaml")
				require.NoError(t, os.WriteFile(c.ThresholdsConfigPath, []byte("thresholds:\n  faithfulness: 0.5\n"), 0o644))
				c.ThresholdsWatch = true
				c.DefaultScorer = scorer.Judge
			},
			wantErr: scorer.ErrUnknownScorer.Error(),
		},
		{
			name:    "missing thresholds file",
			mutate:  func(c *Config) { c.ThresholdsConfigPath = filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: "failed to load thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tt.mutate(cfg)

			var (
				deps *Dependencies
				err  error
			)
			require.NotPanics(t, func() {
				deps, err = Wire(context.Background(), cfg, testLogger())
			})
			require.Error(t, err)
			assert.Nil(t, deps)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
