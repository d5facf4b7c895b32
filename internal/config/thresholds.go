package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 250 * time.Millisecond

type thresholdsFile struct {
	Thresholds policy.Thresholds `yaml:"thresholds"`
}

// LoadThresholds reads an ordered `thresholds:` mapping from a YAML file.
func LoadThresholds(path string) (policy.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.Thresholds{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f thresholdsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return policy.Thresholds{}, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}
	if f.Thresholds.IsZero() {
		return policy.Thresholds{}, fmt.Errorf("%s: %w", path, policy.ErrNoThresholds)
	}
	return f.Thresholds, nil
}

// ThresholdStore holds the active threshold policy and can be swapped at
// runtime without locking readers.
type ThresholdStore struct {
	current atomic.Pointer[policy.Thresholds]
}

func NewThresholdStore(initial policy.Thresholds) *ThresholdStore {
	s := &ThresholdStore{}
	s.Set(initial)
	return s
}

// Current returns the active policy, or policy.Default() when none was set.
func (s *ThresholdStore) Current() policy.Thresholds {
	t := s.current.Load()
	if t == nil || t.IsZero() {
		return policy.Default()
	}
	return *t
}

func (s *ThresholdStore) Set(t policy.Thresholds) {
	s.current.Store(&t)
}

// ThresholdWatcher reloads a thresholds file into a store whenever it
// changes. A file that fails to load leaves the previous policy active.
type ThresholdWatcher struct {
	path    string
	store   *ThresholdStore
	logger  *zerolog.Logger
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WatchThresholds starts watching path. The parent directory is watched so
// editors that replace the file atomically are picked up too.
func WatchThresholds(ctx context.Context, path string, store *ThresholdStore, logger *zerolog.Logger) (*ThresholdWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &ThresholdWatcher{
		path:    filepath.Clean(path),
		store:   store,
		logger:  logger,
		watcher: watcher,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.loop(watchCtx)

	logger.Info().Str("path", path).Msg("watching thresholds file")
	return w, nil
}

func (w *ThresholdWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, w.reload)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("thresholds watch error")
		}
	}
}

func (w *ThresholdWatcher) reload() {
	t, err := LoadThresholds(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("thresholds reload failed, keeping previous policy")
		return
	}
	w.store.Set(t)
	w.logger.Info().Str("path", w.path).Str("thresholds", t.String()).Msg("thresholds reloaded")
}

// Close stops the watcher.
func (w *ThresholdWatcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
