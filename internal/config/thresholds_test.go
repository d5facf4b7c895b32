package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	writeFile(t, path, `
thresholds:
  faithfulness: 0.9
  context_precision: 0.6
`)

	th, err := LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, []models.Metric{models.MetricFaithfulness, models.MetricContextPrecision}, th.Metrics())

	v, ok := th.Get(models.MetricFaithfulness)
	assert.True(t, ok)
	assert.Equal(t, 0.9, v)
}

func TestLoadThresholds_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantIs  error
	}{
		{name: "empty file", content: "", wantIs: policy.ErrNoThresholds},
		{name: "empty mapping", content: "thresholds: {}\n", wantIs: policy.ErrNoThresholds},
		{name: "out of range", content: "thresholds:\n  faithfulness: 1.5\n", wantIs: policy.ErrThresholdRange},
		{name: "unknown metric", content: "thresholds:\n  coherence: 0.5\n", wantIs: models.ErrUnknownMetric},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "t"+string(rune('a'+i))+".yaml")
			writeFile(t, path, tt.content)

			_, err := LoadThresholds(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}

	_, err := LoadThresholds(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestThresholdStore(t *testing.T) {
	var empty ThresholdStore
	assert.Equal(t, policy.Default().Entries(), empty.Current().Entries())

	custom, err := policy.New(policy.Threshold{Metric: models.MetricFaithfulness, Min: 0.5})
	require.NoError(t, err)

	s := NewThresholdStore(custom)
	assert.Equal(t, custom.Entries(), s.Current().Entries())

	s.Set(policy.Default())
	assert.Equal(t, policy.Default().Entries(), s.Current().Entries())
}

func TestWatchThresholds_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	writeFile(t, path, "thresholds:\n  faithfulness: 0.9\n")

	initial, err := LoadThresholds(path)
	require.NoError(t, err)
	store := NewThresholdStore(initial)

	logger := zerolog.Nop()
	w, err := WatchThresholds(context.Background(), path, store, &logger)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "thresholds:\n  faithfulness: 0.4\n")

	assert.Eventually(t, func() bool {
		v, _ := store.Current().Get(models.MetricFaithfulness)
		return v == 0.4
	}, 5*time.Second, 20*time.Millisecond)

	// An invalid file keeps the last good policy.
	writeFile(t, path, "thresholds:\n  faithfulness: 7\n")
	time.Sleep(3 * reloadDebounce)

	v, _ := store.Current().Get(models.MetricFaithfulness)
	assert.Equal(t, 0.4, v)
}
