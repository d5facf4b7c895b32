package config

// JudgesConfig is the root of configs/judges.yaml.
type JudgesConfig struct {
	Judges Judges `yaml:"judges"`
}

// Judges holds the shared model defaults and one evaluator per metric.
type Judges struct {
	DefaultModel ModelConfig          `yaml:"default_model"`
	Concurrency  int                  `yaml:"concurrency"`
	Evaluators   []JudgeConfiguration `yaml:"evaluators"`
}

// JudgeConfiguration configures the LLM judge for one metric. Name must be
// a metric name; Prompt is a text/template rendered per sample.
type JudgeConfiguration struct {
	Name            string       `yaml:"name"`
	Enabled         bool         `yaml:"enabled"`
	Description     string       `yaml:"description"`
	RequiresContext bool         `yaml:"requires_context"`
	Prompt          string       `yaml:"prompt"`
	Model           *ModelConfig `yaml:"model,omitempty"`
}

type ModelConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Retry       bool    `yaml:"retry"`
}
