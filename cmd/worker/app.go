package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/mention-analyzer/internal/analysis"
	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/infrastructure"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/internal/orchestrator"
	"github.com/JaimeStill/mention-analyzer/internal/queue"
	"github.com/JaimeStill/mention-analyzer/internal/worker"
	"github.com/JaimeStill/mention-analyzer/pkg/handlers"
)

// App runs the stream worker, the pending-entry reclaimer, and the delayed
// retry promoter against one Redis broker.
type App struct {
	cfg       *config.Config
	infra     *infrastructure.Infrastructure
	worker    *worker.Worker
	reclaimer *worker.Reclaimer
	promoter  *queue.Promoter
	probe     *http.Server
}

// NewApp starts the infrastructure and wires the worker, reclaimer,
// promoter, and probe listener. Any failure after the infrastructure starts
// shuts it down before returning.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, abort(infra, cfg, err)
	}
	infra.Lifecycle.WaitForStartup()

	if !infra.Lifecycle.Ready() {
		return nil, abort(infra, cfg, fmt.Errorf("dependencies not ready: %v", infra.Lifecycle.Readiness()))
	}

	app, err := build(ctx, cfg, infra)
	if err != nil {
		return nil, abort(infra, cfg, err)
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*App, error) {
	logger := infra.Logger.With("module", "worker")

	client, err := analysis.New(&cfg.Analysis, logger)
	if err != nil {
		return nil, err
	}

	store := mentions.New(infra.Database.Connection(), logger, cfg.API.Pagination)
	orch := orchestrator.New(
		store,
		client,
		cfg.Analysis.Persona,
		cfg.Orchestrator.FailTimeoutDuration(),
		logger,
	)

	redis := infra.Broker.Client()
	consumer, err := queue.NewConsumer(ctx, redis, &cfg.Queue, logger)
	if err != nil {
		return nil, err
	}

	w := worker.New(consumer, orch, cfg.Queue.Concurrency, cfg.Queue.MaxRetries, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handlers.Healthz)
	mux.Handle("GET /readyz", handlers.Readyz(infra.Lifecycle))
	mux.Handle("GET /metrics", metrics.Handler())

	return &App{
		cfg:    cfg,
		infra:  infra,
		worker: w,
		reclaimer: worker.NewReclaimer(
			consumer,
			w,
			cfg.Queue.ReclaimMinIdleDuration(),
			cfg.Queue.ReclaimIntervalDuration(),
			cfg.Queue.BatchSize,
			logger,
		),
		promoter: queue.NewPromoter(redis, &cfg.Queue, logger),
		probe: &http.Server{
			Addr:         cfg.Worker.Addr(),
			Handler:      mux,
			ReadTimeout:  cfg.Worker.ReadTimeoutDuration(),
			WriteTimeout: cfg.Worker.WriteTimeoutDuration(),
		},
	}, nil
}

// abort shuts down started infrastructure and joins its error with cause.
func abort(infra *infrastructure.Infrastructure, cfg *config.Config, cause error) error {
	return errors.Join(cause, infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()))
}

// Run blocks until ctx is done, then stops the worker after its current
// batch (bounded by the drain timeout) and shuts the infrastructure down.
func (a *App) Run(ctx context.Context) error {
	logger := a.infra.Logger

	runCtx, cancelRun := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRun()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return a.worker.Run(gctx) })
	g.Go(func() error { return a.reclaimer.Run(gctx) })
	g.Go(func() error { return a.promoter.Run(gctx) })
	g.Go(func() error {
		logger.Info("probe listening", "addr", a.probe.Addr)
		if err := a.probe.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("probe server: %w", err)
		}
		return nil
	})

	select {
	case <-ctx.Done():
		logger.Info("initiating shutdown")
	case <-gctx.Done():
		logger.Error("worker component stopped unexpectedly")
	}

	a.drain()
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Worker.ShutdownTimeoutDuration())
	defer cancel()
	probeErr := a.probe.Shutdown(shutdownCtx)

	runErr := g.Wait()
	return errors.Join(runErr, probeErr, a.infra.Lifecycle.Shutdown(a.cfg.ShutdownTimeoutDuration()))
}

func (a *App) drain() {
	timeout := a.cfg.Orchestrator.DrainTimeoutDuration()

	stopped := make(chan struct{})
	go func() {
		a.worker.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		a.infra.Logger.Info("worker drained")
	case <-time.After(timeout):
		a.infra.Logger.Warn("drain timeout reached, cancelling in-flight runs", "timeout", timeout)
	}
}
