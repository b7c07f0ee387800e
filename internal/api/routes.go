package api

import (
	"net/http"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/pkg/openapi"
	"github.com/JaimeStill/mention-analyzer/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
	dispatcher mentions.Dispatcher,
	spec []byte,
) {
	routes.RegisterWith(
		mux,
		metrics.Route,
		domain.Mentions.Handler(dispatcher, runtime.MaxBodySize).Routes(),
	)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
}

// buildSpec documents the API module's routes under its base path.
func buildSpec(cfg *config.Config) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(mentions.Schemas())
	spec.AddPaths(mentions.Paths())
	return openapi.MarshalJSON(spec)
}
