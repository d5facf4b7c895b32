package scorer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
)

const (
	Lexical = "lexical"
	Judge   = "judge"
)

var ErrUnknownScorer = errors.New("unknown scorer")

// Registry maps scorer names to implementations. An empty name resolves to
// the default scorer.
type Registry struct {
	mu          sync.RWMutex
	scorers     map[string]pipeline.Scorer
	defaultName string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		scorers:     make(map[string]pipeline.Scorer),
		defaultName: defaultName,
	}
}

func (r *Registry) Register(name string, s pipeline.Scorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[name] = s
}

func (r *Registry) Get(name string) (pipeline.Scorer, error) {
	if name == "" {
		name = r.defaultName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scorers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScorer, name)
	}
	return s, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scorers))
	for name := range r.scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Default() string {
	return r.defaultName
}
