// Package broker provides Redis connection management with lifecycle coordination.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/mention-analyzer/pkg/lifecycle"
)

// System manages the Redis client and lifecycle coordination.
type System interface {
	lifecycle.ReadinessChecker

	// Client returns the underlying Redis client.
	Client() *redis.Client
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type broker struct {
	client *redis.Client
	logger *slog.Logger
	cfg    *Config
	ready  atomic.Bool
}

// Options builds redis.Options from the config. URL takes precedence over Addr.
func Options(cfg *Config) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeoutDuration(),
	}, nil
}

// New creates a broker system. No connection is made until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	return &broker{
		client: redis.NewClient(opts),
		logger: logger.With("system", "broker"),
		cfg:    cfg,
	}, nil
}

func (b *broker) Client() *redis.Client {
	return b.client
}

func (b *broker) Ready() bool {
	return b.ready.Load()
}

func (b *broker) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting broker connection", "addr", b.client.Options().Addr)

	lc.OnStartup(func() {
		pingCtx, cancel := context.WithTimeout(lc.Context(), b.cfg.DialTimeoutDuration())
		defer cancel()

		if err := b.client.Ping(pingCtx).Err(); err != nil {
			b.logger.Error("broker ping failed", "error", err)
			return
		}

		b.ready.Store(true)
		b.logger.Info("broker connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		b.ready.Store(false)

		if err := b.client.Close(); err != nil {
			b.logger.Error("broker close failed", "error", err)
			return
		}

		b.logger.Info("broker connection closed")
	})

	return nil
}
