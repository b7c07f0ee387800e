package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Producer publishes analysis requests to the stream.
type Producer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewProducer creates a Producer for stream.
func NewProducer(client *redis.Client, stream string, logger *slog.Logger) *Producer {
	return &Producer{
		client: client,
		stream: stream,
		logger: logger.With("system", "queue", "stream", stream),
	}
}

// Enqueue adds a request for the given attempt, which defaults to 1.
func (p *Producer) Enqueue(ctx context.Context, id uuid.UUID, text string, attempt int) error {
	if attempt <= 0 {
		attempt = 1
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values(id, text, attempt),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue mention: %w", err)
	}

	p.logger.Info("enqueued mention", "mention_id", id, "attempt", attempt)
	return nil
}
