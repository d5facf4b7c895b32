package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/intake"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PayloadField carries the JSON request in every stream entry.
const PayloadField = "payload"

// DefaultClaimMinIdle is how long an entry must sit unacknowledged in the
// group before this consumer takes it over.
const DefaultClaimMinIdle = 5 * time.Minute

const claimBatch = 10

// Executor runs one decoded evaluation request.
type Executor interface {
	Execute(ctx context.Context, req intake.Request) (models.EvaluationResult, error)
}

type Consumer struct {
	client       StreamClient
	stream       string
	groupID      string
	consumerName string
	executor     Executor
	logger       *zerolog.Logger
	block        time.Duration
	claimMinIdle time.Duration
	lastClaim    time.Time
}

type ConsumerOption func(*Consumer)

// WithClaimMinIdle sets the idle time after which pending entries left by
// other consumers are claimed. Zero keeps the default.
func WithClaimMinIdle(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.claimMinIdle = d
		}
	}
}

func NewConsumer(client StreamClient, stream string, groupID string, consumerName string, exec Executor, logger *zerolog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:       client,
		stream:       stream,
		groupID:      groupID,
		consumerName: consumerName,
		executor:     exec,
		logger:       logger,
		block:        2 * time.Second,
		claimMinIdle: DefaultClaimMinIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.groupID, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.groupID).
		Str("consumer", c.consumerName).
		Msg("Consumer started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(c.lastClaim) >= c.claimMinIdle {
			c.reclaim(ctx)
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupID,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    1,
			Block:    c.block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

// reclaim takes over entries that have been pending longer than
// claimMinIdle, such as those left by a consumer that shut down mid-run,
// and processes them.
func (c *Consumer) reclaim(ctx context.Context) {
	c.lastClaim = time.Now()

	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.groupID,
			Consumer: c.consumerName,
			MinIdle:  c.claimMinIdle,
			Start:    start,
			Count:    claimBatch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, redis.Nil) {
				c.logger.Error().Err(err).Msg("Failed to claim pending messages")
			}
			return
		}

		if len(msgs) > 0 {
			c.logger.Info().Int("count", len(msgs)).Msg("Claimed pending messages")
		}
		for _, msg := range msgs {
			c.process(ctx, msg)
		}

		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

func (c *Consumer) Stop() error {
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.logger.Info().Str("id", msg.ID).Msg("Message received")

	payload, ok := msg.Values[PayloadField].(string)
	if !ok {
		c.logger.Error().Str("id", msg.ID).Msg("Missing payload field")
		c.ack(ctx, msg.ID)
		return
	}

	req, err := intake.DecodeRequest([]byte(payload))
	if err != nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to decode message")
		c.ack(ctx, msg.ID)
		return
	}
	if req.RequestID == "" {
		req.RequestID = msg.ID
	}

	result, err := c.executor.Execute(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Left pending so a later reclaim pass picks it up.
			c.logger.Warn().Err(err).Str("id", msg.ID).Msg("Evaluation interrupted")
			return
		}
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Evaluation failed")
		c.ack(ctx, msg.ID)
		return
	}

	c.logger.Info().
		Str("id", msg.ID).
		Str("run_id", result.RunID).
		Bool("passed", result.Passed()).
		Msg("Evaluation complete")

	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.client.XAck(context.WithoutCancel(ctx), c.stream, c.groupID, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
	}
}
