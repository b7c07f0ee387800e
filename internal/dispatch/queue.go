package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
)

// ErrStopped is returned by Inline.Dispatch after shutdown has begun.
var ErrStopped = errors.New("dispatcher stopped")

// Enqueuer publishes a mention for a worker to analyze.
type Enqueuer interface {
	Enqueue(ctx context.Context, id uuid.UUID, text string, attempt int) error
}

// Queue hands mentions to the worker process through the stream.
type Queue struct {
	producer Enqueuer
	logger   *slog.Logger
}

var _ mentions.Dispatcher = (*Queue)(nil)

// NewQueue creates a Queue dispatcher.
func NewQueue(producer Enqueuer, logger *slog.Logger) *Queue {
	return &Queue{
		producer: producer,
		logger:   logger.With("system", "dispatch", "mode", "queue"),
	}
}

// Dispatch publishes the first attempt for the mention.
func (d *Queue) Dispatch(ctx context.Context, id uuid.UUID, text string) error {
	if err := d.producer.Enqueue(ctx, id, text, 1); err != nil {
		metrics.DispatchTotal.WithLabelValues("queue", "error").Inc()
		return err
	}

	metrics.DispatchTotal.WithLabelValues("queue", "ok").Inc()
	return nil
}
