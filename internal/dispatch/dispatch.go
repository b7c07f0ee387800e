// Package dispatch schedules orchestration runs off the request path,
// either on bounded in-process goroutines or by publishing to the queue.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
)

// Runner executes one analysis run.
type Runner interface {
	Run(ctx context.Context, id uuid.UUID, text string) error
}

// Inline runs analysis on background goroutines inside the server process.
// At most maxConcurrency runs execute at once; further dispatches wait for a slot
// without blocking the caller.
type Inline struct {
	runner       Runner
	sem          *semaphore.Weighted
	drainTimeout time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

var _ mentions.Dispatcher = (*Inline)(nil)

// NewInline creates an Inline dispatcher.
func NewInline(runner Runner, maxConcurrency int, drainTimeout time.Duration, logger *slog.Logger) *Inline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Inline{
		runner:       runner,
		sem:          semaphore.NewWeighted(int64(max(maxConcurrency, 1))),
		drainTimeout: drainTimeout,
		logger:       logger.With("system", "dispatch", "mode", "inline"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Dispatch starts a run for the mention and returns immediately.
// The run is detached from ctx and is cancelled only by Drain.
func (d *Inline) Dispatch(ctx context.Context, id uuid.UUID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping {
		metrics.DispatchTotal.WithLabelValues("inline", "rejected").Inc()
		return ErrStopped
	}

	d.wg.Go(func() {
		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			d.logger.Warn("run abandoned before start", "id", id, "error", err)
			return
		}
		defer d.sem.Release(1)

		// Run errors are already recorded on the mention by the orchestrator.
		_ = d.runner.Run(d.ctx, id, text)
	})

	metrics.DispatchTotal.WithLabelValues("inline", "ok").Inc()
	return nil
}

// Drain waits up to the drain timeout for in-flight runs, then cancels the rest.
// Dispatch calls made after Drain begins return ErrStopped.
func (d *Inline) Drain() {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("inline runs drained")
	case <-time.After(d.drainTimeout):
		d.logger.Warn("drain timeout reached, cancelling in-flight runs", "timeout", d.drainTimeout)
		d.cancel()
		<-done
	}

	d.cancel()
}
