package main

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/infrastructure"
	"github.com/JaimeStill/mention-analyzer/pkg/broker"
	"github.com/JaimeStill/mention-analyzer/pkg/database"
)

func testConfig() *config.Config {
	return &config.Config{
		ShutdownTimeout: "2s",
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "mentions",
			User:            "mentions",
			Password:        "mentions",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    1,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "1s",
		},
		Broker: broker.Config{
			Addr:        "localhost:6379",
			DialTimeout: "1s",
		},
		Dispatch: config.DispatchQueue,
		LogLevel: "error",
		Version:  "0.1.0",
	}
}

func TestAbortShutsDownInfrastructure(t *testing.T) {
	cfg := testConfig()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}

	var closed atomic.Bool
	lc := infra.Lifecycle
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		closed.Store(true)
	})

	cause := errors.New("consumer group unavailable")
	err = abort(infra, cfg, cause)

	if !errors.Is(err, cause) {
		t.Errorf("error = %v, want cause", err)
	}
	if !closed.Load() {
		t.Error("shutdown hooks did not run")
	}
	if lc.Context().Err() == nil {
		t.Error("lifecycle context still live after abort")
	}
}

func TestAbortJoinsShutdownTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ShutdownTimeout = "10ms"
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}

	release := make(chan struct{})
	defer close(release)
	infra.Lifecycle.OnShutdown(func() { <-release })

	cause := errors.New("analysis client")
	err = abort(infra, cfg, cause)

	if !errors.Is(err, cause) {
		t.Errorf("error = %v, want cause", err)
	}
	if err == cause {
		t.Error("shutdown timeout was not joined")
	}
}
