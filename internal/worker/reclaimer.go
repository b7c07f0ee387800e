package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/mention-analyzer/internal/metrics"
)

// Reclaimer periodically claims deliveries left pending by a consumer that
// died between read and ack, and runs them through the worker.
type Reclaimer struct {
	consumer  Consumer
	worker    *Worker
	minIdle   time.Duration
	interval  time.Duration
	batchSize int64
	logger    *slog.Logger
}

// NewReclaimer creates a Reclaimer that hands claimed messages to w.
func NewReclaimer(consumer Consumer, w *Worker, minIdle, interval time.Duration, batchSize int64, logger *slog.Logger) *Reclaimer {
	return &Reclaimer{
		consumer:  consumer,
		worker:    w,
		minIdle:   minIdle,
		interval:  interval,
		batchSize: max(batchSize, 1),
		logger:    logger.With("system", "reclaimer"),
	}
}

// Run reclaims on every interval until ctx is done.
func (r *Reclaimer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reclaimer started", "interval", r.interval, "min_idle", r.minIdle)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reclaimer stopping")
			return nil
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("reclaim cycle error", "error", err)
			}
		}
	}
}

// ReclaimOnce claims one batch of stale deliveries, processes them, and
// returns how many were claimed.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	messages, err := r.consumer.Claim(ctx, r.minIdle, r.batchSize)
	if err != nil {
		return 0, err
	}

	if len(messages) == 0 {
		return 0, nil
	}

	r.logger.Info("reclaimed stale messages", "count", len(messages))
	metrics.QueueMessagesTotal.WithLabelValues("reclaim").Add(float64(len(messages)))

	r.worker.Process(ctx, messages)
	return len(messages), nil
}
