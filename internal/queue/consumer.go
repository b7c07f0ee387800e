// Package queue carries analysis requests over Redis Streams: a producer,
// a consumer-group reader with delayed retry and dead-lettering, and a
// promoter that moves due retries back onto the stream.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/mention-analyzer/internal/config"
)

// Consumer reads analysis requests as a member of a consumer group.
type Consumer struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	dlqStream  string
	delayedKey string
	batchSize  int64
	block      time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewConsumer creates a Consumer and ensures its group exists.
func NewConsumer(ctx context.Context, client *redis.Client, cfg *config.QueueConfig, logger *slog.Logger) (*Consumer, error) {
	c := &Consumer{
		client:     client,
		stream:     cfg.Stream,
		group:      cfg.Group,
		consumer:   cfg.Consumer,
		dlqStream:  cfg.DLQStream,
		delayedKey: cfg.DelayedKey,
		batchSize:  cfg.BatchSize,
		block:      cfg.BlockDuration(),
		retryDelay: cfg.RetryDelayDuration(),
		logger:     logger.With("system", "queue", "stream", cfg.Stream, "consumer", cfg.Consumer),
		now:        time.Now,
	}

	if err := c.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// The group starts at "0" so messages added before it existed are still delivered.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Read blocks for up to the configured duration and returns new messages.
// Messages that fail to parse are acknowledged and dropped.
func (c *Consumer) Read(ctx context.Context) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		messages = append(messages, c.parse(ctx, stream.Messages)...)
	}

	if len(messages) > 0 {
		c.logger.Debug("read messages from stream", "count", len(messages))
	}

	return messages, nil
}

// Claim takes ownership of up to count deliveries idle for at least minIdle,
// whichever consumer they were delivered to.
func (c *Consumer) Claim(ctx context.Context, minIdle time.Duration, count int64) ([]Message, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending: %w", err)
	}

	if len(pending) == 0 {
		return []Message{}, nil
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim: %w", err)
	}

	return c.parse(ctx, claimed), nil
}

// Ack acknowledges msg so it is not redelivered.
func (c *Consumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.stream, err)
	}
	return nil
}

// Requeue schedules msg for redelivery with the next attempt number after
// the retry delay, then acknowledges the original delivery.
func (c *Consumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	now := c.now()
	next := msg.Attempt + 1

	member, err := encodeDelayed(msg, next, errMsg, now)
	if err != nil {
		return err
	}

	readyAt := now.Add(c.retryDelay)

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, c.delayedKey, redis.Z{
			Score:  float64(readyAt.UnixMilli()),
			Member: member,
		})
		pipe.XAck(ctx, c.stream, c.group, msg.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}

	c.logger.Info("message requeued for retry",
		"mention_id", msg.MentionID,
		"next_attempt", next,
		"ready_at", readyAt,
		"reason", errMsg,
	)
	return nil
}

// SendDLQ copies msg to the dead letter stream with its final error and
// acknowledges the original delivery.
func (c *Consumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	fields := values(msg.MentionID, msg.Text, msg.Attempt)
	fields["error"] = errMsg

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: c.dlqStream,
			Values: fields,
		})
		pipe.XAck(ctx, c.stream, c.group, msg.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.dlqStream, err)
	}

	c.logger.Error("message sent to DLQ",
		"mention_id", msg.MentionID,
		"attempts", msg.Attempt,
		"final_error", errMsg,
		"dlq_stream", c.dlqStream,
	)
	return nil
}

func (c *Consumer) parse(ctx context.Context, raw []redis.XMessage) []Message {
	messages := make([]Message, 0, len(raw))
	for _, xm := range raw {
		msg, err := ParseMessage(xm)
		if err != nil {
			c.logger.Error("failed to parse message, acknowledging to prevent loop",
				"error", err,
				"message_id", xm.ID,
			)
			_ = c.Ack(ctx, Message{ID: xm.ID})
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}
