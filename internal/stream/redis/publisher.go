package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/pipeline"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PublisherSink appends every finished run to a results stream.
type PublisherSink struct {
	client StreamClient
	stream string
	logger *zerolog.Logger
}

func NewPublisherSink(client StreamClient, stream string, logger *zerolog.Logger) *PublisherSink {
	return &PublisherSink{client: client, stream: stream, logger: logger}
}

func (p *PublisherSink) RunStarted(context.Context, pipeline.RunStart) {}

func (p *PublisherSink) RunSucceeded(ctx context.Context, e pipeline.RunSuccess) {
	body, err := json.Marshal(e.Result)
	if err != nil {
		p.logger.Error().Err(err).Str("run_id", e.Result.RunID).Msg("Failed to encode result")
		return
	}
	p.publish(ctx, e.Result.RunID, map[string]any{
		"run_id":     e.Result.RunID,
		"status":     string(models.RunStatusSuccess),
		"passed":     e.Result.Passed(),
		PayloadField: string(body),
	})
}

func (p *PublisherSink) RunFailed(ctx context.Context, e pipeline.RunFailure) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	p.publish(ctx, e.RunID, map[string]any{
		"run_id":     e.RunID,
		"status":     string(models.RunStatusFailure),
		"error_kind": string(e.Kind),
		"error":      msg,
	})
}

func (p *PublisherSink) publish(ctx context.Context, runID string, values map[string]any) {
	id, err := p.client.XAdd(context.WithoutCancel(ctx), &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		p.logger.Error().Err(err).Str("run_id", runID).Str("stream", p.stream).Msg("Failed to publish result")
		return
	}
	p.logger.Debug().Str("run_id", runID).Str("id", id).Msg("Result published")
}

// PublishRequest validates payload as an evaluation request and appends it
// to stream. It returns the entry id.
func PublishRequest(ctx context.Context, client StreamClient, stream string, payload []byte) (string, error) {
	if _, err := intake.DecodeRequest(payload); err != nil {
		return "", err
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{PayloadField: string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", stream, err)
	}
	return id, nil
}
