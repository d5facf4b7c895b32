package setup

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/config"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/eventlog"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/scorer"
	streamredis "github.com/povarna/generative-ai-agents/rag-eval/internal/stream/redis"
)

const Version = "1.0.0"

type Config struct {
	LogLevel  string
	LogFormat string

	EventLogPath           string
	EventLogMaxSizeBytes   int64
	EventLogMaxBackups     int
	EventLogRotateInterval time.Duration

	ThresholdsConfigPath string
	ThresholdsWatch      bool
	JudgesConfigPath     string
	DefaultScorer        string

	LLMProvider      string
	AWSRegion        string
	ClaudeModelID    string
	OpenAIKey        string
	OpenAIModelID    string
	AnthropicKey     string
	AnthropicModelID string

	StoreDriver string
	StoreDSN    string

	RedisAddr      string
	RedisPassword  string
	RequestsStream string
	ResultsStream  string
	ConsumerGroup  string
	ConsumerName   string
	ClaimMinIdle   time.Duration

	OTELEndpoint string
	APIPort      int
}

// LoadEnv reads .env files when present. Missing files are not an error.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func LoadConfig() *Config {
	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		EventLogPath:           getEnv("EVENT_LOG_PATH", "logs/rag_evaluation.log"),
		EventLogMaxSizeBytes:   int64(getEnvInt("EVENT_LOG_MAX_SIZE_BYTES", eventlog.DefaultMaxSizeBytes)),
		EventLogMaxBackups:     getEnvInt("EVENT_LOG_MAX_BACKUPS", eventlog.DefaultMaxBackups),
		EventLogRotateInterval: getEnvDuration("EVENT_LOG_ROTATE_INTERVAL", 0),

		ThresholdsConfigPath: getEnv("THRESHOLDS_CONFIG_PATH", ""),
		ThresholdsWatch:      getEnvBool("THRESHOLDS_WATCH", false),
		JudgesConfigPath:     getEnv("JUDGES_CONFIG_PATH", config.DefaultJudgesPath),
		DefaultScorer:        getEnv("DEFAULT_SCORER", scorer.Lexical),

		LLMProvider:      getEnv("LLM_PROVIDER", ""),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:    getEnv("CLAUDE_MODEL_ID", ""),
		OpenAIKey:        getEnv("OPEN_AI_KEY", ""),
		OpenAIModelID:    getEnv("OPEN_AI_MODEL_ID", ""),
		AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModelID: getEnv("ANTHROPIC_MODEL_ID", ""),

		StoreDriver: getEnv("STORE_DRIVER", ""),
		StoreDSN:    getEnv("STORE_DSN", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RequestsStream: getEnv("REQUESTS_STREAM", "rag-eval-requests"),
		ResultsStream:  getEnv("RESULTS_STREAM", "rag-eval-results"),
		ConsumerGroup:  getEnv("CONSUMER_GROUP", "rag-eval-group"),
		ConsumerName:   getEnv("CONSUMER_NAME", hostname()),
		ClaimMinIdle:   getEnvDuration("CLAIM_MIN_IDLE", streamredis.DefaultClaimMinIdle),

		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		APIPort:      getEnvInt("API_PORT", 18081),
	}
}

func (c *Config) RotationConfig() eventlog.RotationConfig {
	return eventlog.RotationConfig{
		MaxSizeBytes:   c.EventLogMaxSizeBytes,
		MaxBackups:     c.EventLogMaxBackups,
		RotateInterval: c.EventLogRotateInterval,
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "rag-eval"
	}
	return name
}
