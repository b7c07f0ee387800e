package api

import (
	"errors"

	"github.com/JaimeStill/mention-analyzer/internal/analysis"
	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/dispatch"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/orchestrator"
	"github.com/JaimeStill/mention-analyzer/internal/queue"
)

// dispatcher is a Dispatcher that can wait for its in-flight work.
type dispatcher interface {
	mentions.Dispatcher
	Drain()
}

// queueDispatcher has nothing in flight once Enqueue returns.
type queueDispatcher struct {
	*dispatch.Queue
}

func (queueDispatcher) Drain() {}

// newDispatcher selects inline or queue dispatch from cfg.
func newDispatcher(cfg *config.Config, runtime *Runtime, store mentions.System) (dispatcher, error) {
	if cfg.QueueDispatch() {
		if runtime.Broker == nil {
			return nil, errors.New("queue dispatch requires a broker")
		}

		producer := queue.NewProducer(runtime.Broker.Client(), cfg.Queue.Stream, runtime.Logger)
		runtime.Logger.Info("dispatch mode", "mode", config.DispatchQueue, "stream", cfg.Queue.Stream)
		return queueDispatcher{dispatch.NewQueue(producer, runtime.Logger)}, nil
	}

	client, err := analysis.New(&cfg.Analysis, runtime.Logger)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(
		store,
		client,
		cfg.Analysis.Persona,
		cfg.Orchestrator.FailTimeoutDuration(),
		runtime.Logger,
	)

	runtime.Logger.Info("dispatch mode",
		"mode", config.DispatchInline,
		"max_concurrency", cfg.Orchestrator.MaxConcurrency,
	)

	return dispatch.NewInline(
		orch,
		cfg.Orchestrator.MaxConcurrency,
		cfg.Orchestrator.DrainTimeoutDuration(),
		runtime.Logger,
	), nil
}
