// Package sweeper periodically re-dispatches mentions left in a non-terminal
// status, recovering runs lost to a crash or a failed hand-off.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/pkg/lifecycle"
)

// Lister finds mentions that have not progressed since before a cutoff.
type Lister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]mentions.Mention, error)
}

// Sweeper runs SweepOnce on a cron schedule.
type Sweeper struct {
	cron       *cron.Cron
	ctx        context.Context
	lister     Lister
	dispatcher mentions.Dispatcher
	enabled    bool
	staleAfter time.Duration
	batchSize  int
	stopOnce   sync.Once
	logger     *slog.Logger
}

// New creates a Sweeper from cfg. The schedule is registered but not started.
func New(cfg *config.SweeperConfig, lister Lister, d mentions.Dispatcher, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		lister:     lister,
		dispatcher: d,
		enabled:    cfg.IsEnabled(),
		staleAfter: cfg.StaleAfterDuration(),
		batchSize:  cfg.BatchSize,
		logger:     logger.With("system", "sweeper"),
	}

	if !s.enabled {
		return s, nil
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, s.tick); err != nil {
		return nil, fmt.Errorf("schedule sweeper %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// SweepOnce re-dispatches up to batchSize mentions whose last update is older
// than staleAfter relative to now. It returns how many were dispatched.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.lister.ListStale(ctx, now.Add(-s.staleAfter), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale mentions: %w", err)
	}

	dispatched := 0
	for _, m := range stale {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}

		if err := s.dispatcher.Dispatch(ctx, m.ID, m.Text); err != nil {
			s.logger.Warn("redispatch failed", "mention_id", m.ID, "status", m.Status, "error", err)
			continue
		}

		dispatched++
		metrics.SweepRedispatchedTotal.Inc()
		s.logger.Info("mention redispatched",
			"mention_id", m.ID,
			"status", m.Status,
			"stale_for", now.Sub(m.UpdatedAt).Round(time.Second),
		)
	}

	return dispatched, nil
}

// Start begins the schedule and registers its shutdown with lc. A disabled
// sweeper registers nothing.
func (s *Sweeper) Start(lc *lifecycle.Coordinator) {
	if !s.enabled {
		s.logger.Info("sweeper disabled")
		return
	}

	s.ctx = lc.Context()
	s.cron.Start()
	s.logger.Info("sweeper started", "stale_after", s.staleAfter, "batch_size", s.batchSize)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.Stop()
	})
}

// Stop halts the schedule and waits for a running sweep to return.
func (s *Sweeper) Stop() {
	if !s.enabled {
		return
	}
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.logger.Info("sweeper stopped")
	})
}

func (s *Sweeper) tick() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := s.SweepOnce(ctx, time.Now())
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("sweep complete", "redispatched", n)
	}
}
