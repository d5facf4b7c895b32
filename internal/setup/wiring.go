package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/config"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/eventlog"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/executor"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/llm"
	llmanthropic "github.com/povarna/generative-ai-agents/rag-eval/internal/llm/anthropic"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/llm/bedrock"
	llmopenai "github.com/povarna/generative-ai-agents/rag-eval/internal/llm/openai"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/policy"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/scorer"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/scorer/judge"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/scorer/lexical"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/store"
	streamredis "github.com/povarna/generative-ai-agents/rag-eval/internal/stream/redis"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisMaxRetries = 5

type Dependencies struct {
	Executor   *executor.Executor
	Pipeline   *pipeline.Pipeline
	Scorers    *scorer.Registry
	Thresholds *config.ThresholdStore
	EventLog   *eventlog.Logger
	Store      store.Store
	Redis      *goredis.Client
	Metrics    *prometheus.Registry
	Logger     *zerolog.Logger

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func (d *Dependencies) onClose(name string, fn func(context.Context) error) {
	d.closers = append(d.closers, closer{name: name, fn: fn})
}

// Close releases everything Wire opened, in reverse order.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		c := d.closers[i]
		if err := c.fn(ctx); err != nil {
			d.Logger.Error().Err(err).Str("component", c.name).Msg("Failed to close")
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Wire builds the evaluation stack described by cfg. Optional components
// (run store, Redis publisher, judge scorer, trace export) are only created
// when configured. On error everything opened so far is closed.
func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (_ *Dependencies, err error) {
	deps := &Dependencies{
		Logger:  logger,
		Metrics: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = deps.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TraceConfig{
		Endpoint:       cfg.OTELEndpoint,
		ServiceVersion: Version,
		Insecure:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	deps.onClose("tracing", shutdownTracing)

	deps.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Sinks
	evlog, err := eventlog.Open(cfg.EventLogPath, cfg.RotationConfig(), eventlog.WithDiagnostics(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	deps.EventLog = evlog
	deps.onClose("event log", func(context.Context) error { return evlog.Close() })

	sinks := pipeline.MultiSink{
		pipeline.NewAuditSink(evlog, logger, pipeline.WithExtraFields(map[string]any{
			"service": telemetry.ServiceName,
		})),
		telemetry.NewMetricsSink(deps.Metrics),
	}

	runStore, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	if runStore != nil {
		deps.Store = runStore
		deps.onClose("run store", func(context.Context) error { return runStore.Close() })
		sinks = append(sinks, store.NewSink(runStore, logger))
	}

	if cfg.RedisAddr != "" {
		client, err := streamredis.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, redisMaxRetries, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Redis = client
		deps.onClose("redis", func(context.Context) error { return client.Close() })
		sinks = append(sinks, streamredis.NewPublisherSink(client, cfg.ResultsStream, logger))
	}

	// Thresholds
	thresholds, err := loadThresholds(ctx, cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	deps.Thresholds = thresholds

	// Scorers
	registry, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Scorers = registry

	deps.Pipeline = pipeline.NewPipeline(sinks, logger)
	deps.Executor = executor.NewExecutor(deps.Pipeline, registry, thresholds, logger)

	logger.Info().
		Str("default_scorer", cfg.DefaultScorer).
		Strs("scorers", registry.Names()).
		Str("thresholds", thresholds.Current().String()).
		Str("event_log", evlog.Path()).
		Bool("store", deps.Store != nil).
		Bool("redis", deps.Redis != nil).
		Msg("Dependencies wired")

	return deps, nil
}

func loadThresholds(ctx context.Context, cfg *Config, deps *Dependencies, logger *zerolog.Logger) (*config.ThresholdStore, error) {
	initial := policy.Default()
	if cfg.ThresholdsConfigPath != "" {
		t, err := config.LoadThresholds(cfg.ThresholdsConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load thresholds: %w", err)
		}
		initial = t
	}
	thresholds := config.NewThresholdStore(initial)

	if cfg.ThresholdsWatch && cfg.ThresholdsConfigPath != "" {
		w, err := config.WatchThresholds(ctx, cfg.ThresholdsConfigPath, thresholds, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to watch thresholds: %w", err)
		}
		deps.onClose("thresholds watcher", func(context.Context) error { return w.Close() })
	}
	return thresholds, nil
}

func buildRegistry(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*scorer.Registry, error) {
	registry := scorer.NewRegistry(cfg.DefaultScorer)
	registry.Register(scorer.Lexical, lexical.NewScorer(lexical.DefaultMinOverlap, logger))

	if cfg.LLMProvider != "" {
		llmClient, err := createLLMClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLMProvider, err)
		}

		judgesConfig, err := config.LoadJudgesConfig(cfg.JudgesConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load judges config: %w", err)
		}

		judgeScorer, err := judge.NewScorerFromConfig(judgesConfig, llmClient, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build judges from config: %w", err)
		}
		registry.Register(scorer.Judge, judgeScorer)
	}

	if _, err := registry.Get(""); err != nil {
		return nil, fmt.Errorf("default scorer %q: %w (set LLM_PROVIDER to enable the judge scorer)", cfg.DefaultScorer, err)
	}
	return registry, nil
}

func createLLMClient(ctx context.Context, cfg *Config) (llm.LLMClient, error) {
	switch cfg.LLMProvider {
	case llm.ProviderBedrock:
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
	case llm.ProviderOpenAI:
		return llmopenai.NewClient(cfg.OpenAIKey, cfg.OpenAIModelID)
	case llm.ProviderAnthropic:
		return llmanthropic.NewClient(cfg.AnthropicKey, cfg.AnthropicModelID)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
