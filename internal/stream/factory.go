package stream

import (
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/stream/redis"
	"github.com/rs/zerolog"
)

const ProviderRedis = "redis"

type StreamConfig struct {
	Provider    string // redis is the only provider for now
	RedisConfig *redis.RedisStreamConfig
}

// NewStreamConsumer builds the consumer for cfg.Provider on an already
// connected client.
func NewStreamConsumer(
	cfg *StreamConfig,
	client redis.StreamClient,
	exec redis.Executor,
	logger *zerolog.Logger,
) (StreamConsumer, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderRedis
	}

	switch provider {
	case ProviderRedis:
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("redis config required")
		}
		return redis.NewConsumer(
			client,
			cfg.RedisConfig.Stream,
			cfg.RedisConfig.Group,
			cfg.RedisConfig.ConsumerName,
			exec,
			logger,
			redis.WithClaimMinIdle(cfg.RedisConfig.ClaimMinIdle),
		), nil

	default:
		return nil, fmt.Errorf("unsupported stream provider: %s", cfg.Provider)
	}
}
