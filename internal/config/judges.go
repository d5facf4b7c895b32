package config

import (
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	DefaultJudgesPath  = "configs/judges.yaml"
	defaultMaxTokens   = 256
	defaultConcurrency = 4
)

// LoadJudgesConfig reads and validates the judges file at path, falling back
// to configs/judges.yaml when path is empty.
func LoadJudgesConfig(path string) (*JudgesConfig, error) {
	if path == "" {
		path = DefaultJudgesPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg JudgesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid judges config %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills the default model and merges it into every judge.
// Retry is taken from the judge when it declares its own model block.
func applyDefaults(cfg *JudgesConfig) {
	if cfg.Judges.DefaultModel.MaxTokens == 0 {
		cfg.Judges.DefaultModel.MaxTokens = defaultMaxTokens
	}
	if cfg.Judges.Concurrency <= 0 {
		cfg.Judges.Concurrency = defaultConcurrency
	}

	def := cfg.Judges.DefaultModel
	for i := range cfg.Judges.Evaluators {
		j := &cfg.Judges.Evaluators[i]
		if j.Model == nil {
			m := def
			j.Model = &m
			continue
		}
		if j.Model.MaxTokens == 0 {
			j.Model.MaxTokens = def.MaxTokens
		}
		if j.Model.Temperature == 0 {
			j.Model.Temperature = def.Temperature
		}
	}
}

func (c *JudgesConfig) Validate() error {
	if len(c.Judges.Evaluators) == 0 {
		return errors.New("no judges configured")
	}

	if err := c.Judges.DefaultModel.validate("default_model"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Judges.Evaluators))
	for i, j := range c.Judges.Evaluators {
		if j.Name == "" {
			return fmt.Errorf("judge at index %d: missing name", i)
		}
		if _, err := models.ParseMetric(j.Name); err != nil {
			return fmt.Errorf("judge %s: %w", j.Name, err)
		}
		if j.Prompt == "" {
			return fmt.Errorf("judge %s: missing prompt", j.Name)
		}
		if _, err := template.New(j.Name).Parse(j.Prompt); err != nil {
			return fmt.Errorf("judge %s: invalid prompt template: %w", j.Name, err)
		}
		if seen[j.Name] {
			return fmt.Errorf("duplicate judge name: %s", j.Name)
		}
		seen[j.Name] = true

		if j.Model != nil {
			if err := j.Model.validate(j.Name); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m ModelConfig) validate(owner string) error {
	if m.MaxTokens < 0 {
		return fmt.Errorf("%s: negative max_tokens %d", owner, m.MaxTokens)
	}
	if m.Temperature < 0.0 || m.Temperature > 1.0 {
		return fmt.Errorf("%s: invalid temperature %v, must be in [0.0, 1.0]", owner, m.Temperature)
	}
	return nil
}

// Enabled returns the evaluators switched on in the file.
func (c *JudgesConfig) Enabled() []JudgeConfiguration {
	var out []JudgeConfiguration
	for _, j := range c.Judges.Evaluators {
		if j.Enabled {
			out = append(out, j)
		}
	}
	return out
}
