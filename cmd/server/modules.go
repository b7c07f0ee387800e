package main

import (
	"net/http"

	"github.com/JaimeStill/mention-analyzer/internal/api"
	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/infrastructure"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/pkg/handlers"
	"github.com/JaimeStill/mention-analyzer/pkg/module"
)

const welcomeMessage = "Welcome to the Mention Analyzer API"

type Modules struct {
	API *api.API
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.New(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) error {
	return router.Mount(m.API.Module)
}

func (m *Modules) Start() {
	m.API.Start()
}

func (m *Modules) Stop() {
	m.API.Stop()
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
	}))
	router.HandleNative("GET /healthz", http.HandlerFunc(handlers.Healthz))
	router.HandleNative("GET /readyz", handlers.Readyz(infra.Lifecycle))
	router.HandleNative("GET /metrics", metrics.Handler())

	return router
}
