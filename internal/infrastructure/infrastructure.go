// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, broker, telemetry) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/pkg/broker"
	"github.com/JaimeStill/mention-analyzer/pkg/database"
	"github.com/JaimeStill/mention-analyzer/pkg/lifecycle"
	"github.com/JaimeStill/mention-analyzer/pkg/logging"
	"github.com/JaimeStill/mention-analyzer/pkg/telemetry"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, and the Redis broker. Broker is nil unless
// dispatch is set to queue.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Broker    broker.System
	Telemetry *telemetry.Telemetry
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()

	tel, err := telemetry.Setup(lc.Context(), &cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Level(), tel.LogHandler())

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Telemetry: tel,
	}

	if cfg.QueueDispatch() {
		b, err := broker.New(&cfg.Broker, logger)
		if err != nil {
			return nil, fmt.Errorf("broker init failed: %w", err)
		}
		infra.Broker = b
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and broker readiness gate the coordinator's Ready.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	i.Lifecycle.Track("database", i.Database)

	if i.Broker != nil {
		if err := i.Broker.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("broker start failed: %w", err)
		}
		i.Lifecycle.Track("broker", i.Broker)
	}

	i.Telemetry.Start(i.Lifecycle, i.Logger)
	return nil
}
