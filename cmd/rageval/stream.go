package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/setup"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/stream"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/stream/redis"
	"github.com/spf13/cobra"
)

func buildConsumeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Evaluate requests read from a Redis stream",
		Long: `Join the CONSUMER_GROUP on REQUESTS_STREAM and evaluate every message.
Results of every run are added to RESULTS_STREAM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsume(cmd.Context(), rt)
		},
	}
}

func runConsume(ctx context.Context, rt *runtime) error {
	if rt.cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required for consume")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := rt.logger
	deps, err := setup.Wire(ctx, rt.cfg, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	redisCfg := redis.NewRedisStreamConfig(
		rt.cfg.RedisAddr,
		rt.cfg.RedisPassword,
		rt.cfg.RequestsStream,
		rt.cfg.ResultsStream,
		rt.cfg.ConsumerGroup,
		rt.cfg.ConsumerName,
	)
	redisCfg.ClaimMinIdle = rt.cfg.ClaimMinIdle
	streamCfg := &stream.StreamConfig{
		Provider:    stream.ProviderRedis,
		RedisConfig: redisCfg,
	}

	consumer, err := stream.NewStreamConsumer(streamCfg, deps.Redis, deps.Executor, &logger)
	if err != nil {
		return fmt.Errorf("failed to create stream consumer: %w", err)
	}
	if err := consumer.Setup(ctx); err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	err = consumer.Start(ctx)
	_ = consumer.Stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Consumer stopped")
	return nil
}

func buildPublishCmd(rt *runtime) *cobra.Command {
	var (
		data   string
		file   string
		target string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Add an evaluation request to the requests stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}
			if target == "" {
				target = rt.cfg.RequestsStream
			}
			return runPublish(cmd.Context(), rt, target, payload)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Inline JSON evaluation request")
	cmd.Flags().StringVarP(&file, "file", "f", "", "File holding a JSON evaluation request")
	cmd.Flags().StringVar(&target, "stream", "", "Stream name (default: REQUESTS_STREAM)")
	cmd.MarkFlagsMutuallyExclusive("data", "file")
	cmd.MarkFlagsOneRequired("data", "file")
	return cmd
}

func readPayload(data, file string) ([]byte, error) {
	if data != "" {
		return []byte(data), nil
	}
	payload, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	return payload, nil
}

func runPublish(ctx context.Context, rt *runtime, target string, payload []byte) error {
	addr := rt.cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	logger := rt.logger
	client, err := redis.ConnectRedis(ctx, addr, rt.cfg.RedisPassword, 3, &logger)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := redis.PublishRequest(ctx, client, target, payload)
	if err != nil {
		return err
	}

	logger.Info().Str("stream", target).Str("id", id).Msg("Published successfully")
	return nil
}
