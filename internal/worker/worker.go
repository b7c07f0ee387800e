// Package worker consumes queued analysis requests and runs them through
// the orchestrator, requeueing failures until the retry budget is spent.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/internal/orchestrator"
	"github.com/JaimeStill/mention-analyzer/internal/queue"
)

// Consumer is the queue surface the worker reads and settles messages through.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Claim(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Runner executes one analysis attempt for a mention.
type Runner interface {
	Retry(ctx context.Context, id uuid.UUID, text string, attempt, maxAttempts int) error
}

// Worker processes batches read from a Consumer.
type Worker struct {
	consumer    Consumer
	runner      Runner
	concurrency int
	maxRetries  int
	logger      *slog.Logger

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a Worker. maxRetries counts redeliveries after the first attempt.
func New(consumer Consumer, runner Runner, concurrency, maxRetries int, logger *slog.Logger) *Worker {
	return &Worker{
		consumer:    consumer,
		runner:      runner,
		concurrency: max(concurrency, 1),
		maxRetries:  max(maxRetries, 0),
		logger:      logger.With("system", "worker"),
		stopCh:      make(chan struct{}),
		stoppedCh:   make(chan struct{}),
	}
}

// Run reads and processes batches until ctx is done or Stop is called.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	w.logger.Info("worker started", "concurrency", w.concurrency, "max_retries", w.maxRetries)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			w.logger.Info("worker stopping")
			return nil
		default:
			if err := w.processBatch(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop signals Run to return after the current batch and waits for it.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	w.Process(ctx, messages)
	return nil
}

// Process handles messages with bounded concurrency and returns when all are settled.
func (w *Worker) Process(ctx context.Context, messages []queue.Message) {
	var g errgroup.Group
	g.SetLimit(w.concurrency)

	for _, msg := range messages {
		g.Go(func() error {
			w.handle(ctx, msg)
			return nil
		})
	}

	_ = g.Wait()
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	logger := w.logger.With("message_id", msg.ID, "mention_id", msg.MentionID, "attempt", msg.Attempt)
	logger.Info("processing message")

	maxAttempts := w.maxRetries + 1
	err := w.runSafe(ctx, msg, maxAttempts)

	switch {
	case err == nil:
		if ackErr := w.consumer.Ack(ctx, msg); ackErr != nil {
			logger.Warn("failed to ack message", "error", ackErr)
			return
		}
		metrics.QueueMessagesTotal.WithLabelValues("ack").Inc()

	case errors.Is(err, orchestrator.ErrRetriesExhausted), msg.Attempt >= maxAttempts:
		logger.Error("max attempts reached, sending to DLQ", "error", err)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			logger.Error("failed to send to DLQ", "error", dlqErr)
			return
		}
		metrics.QueueMessagesTotal.WithLabelValues("dlq").Inc()

	default:
		logger.Warn("requeuing failed message", "error", err)
		if reqErr := w.consumer.Requeue(ctx, msg, err.Error()); reqErr != nil {
			logger.Error("failed to requeue message", "error", reqErr)
			return
		}
		metrics.QueueMessagesTotal.WithLabelValues("requeue").Inc()
	}
}

func (w *Worker) runSafe(ctx context.Context, msg queue.Message, maxAttempts int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"mention_id", msg.MentionID,
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.runner.Retry(ctx, msg.MentionID, msg.Text, msg.Attempt, maxAttempts)
}
