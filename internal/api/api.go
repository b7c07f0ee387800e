// Package api assembles the API module with the mention domain, its
// dispatcher, the stale-mention sweeper, and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/infrastructure"
	"github.com/JaimeStill/mention-analyzer/internal/sweeper"
	"github.com/JaimeStill/mention-analyzer/pkg/middleware"
	"github.com/JaimeStill/mention-analyzer/pkg/module"
)

// API is the mounted module together with the background systems that
// serve its submissions.
type API struct {
	Module *module.Module
	Domain *Domain

	runtime    *Runtime
	dispatcher dispatcher
	sweeper    *sweeper.Sweeper
}

// New creates the API module with all domain handlers, middleware, and
// the configured dispatcher.
func New(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	d, err := newDispatcher(cfg, runtime, domain.Mentions)
	if err != nil {
		return nil, fmt.Errorf("dispatcher init failed: %w", err)
	}

	sw, err := sweeper.New(&cfg.Sweeper, domain.Mentions, d, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("sweeper init failed: %w", err)
	}

	spec, err := buildSpec(cfg)
	if err != nil {
		return nil, fmt.Errorf("openapi spec failed: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime, d, spec)

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return &API{
		Module:     m,
		Domain:     domain,
		runtime:    runtime,
		dispatcher: d,
		sweeper:    sw,
	}, nil
}

// Start begins the sweeper schedule.
func (a *API) Start() {
	a.sweeper.Start(a.runtime.Lifecycle)
}

// Stop halts the sweeper and drains in-flight dispatches. It must run
// before the lifecycle shuts down the database so that drained runs can
// still record their outcome.
func (a *API) Stop() {
	a.sweeper.Stop()
	a.dispatcher.Drain()
}
