package telemetry_test

import (
	"context"
	"testing"

	"github.com/JaimeStill/mention-analyzer/pkg/telemetry"
)

func TestFinalize(t *testing.T) {
	t.Setenv("TEST_OTEL_ENDPOINT", "http://collector:4318/")

	cfg := telemetry.Config{}
	if err := cfg.Finalize(&telemetry.Env{Endpoint: "TEST_OTEL_ENDPOINT"}); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Endpoint != "http://collector:4318" {
		t.Errorf("endpoint: got %s", cfg.Endpoint)
	}
	if cfg.ServiceName != "mention-analyzer" {
		t.Errorf("service_name: got %s", cfg.ServiceName)
	}
	if !cfg.Enabled() {
		t.Error("config with endpoint should be enabled")
	}
}

func TestSetupDisabled(t *testing.T) {
	cfg := telemetry.Config{ServiceName: "mention-analyzer"}

	tel, err := telemetry.Setup(context.Background(), &cfg, "test")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if tel.Enabled() {
		t.Error("telemetry should be disabled without an endpoint")
	}
	if tel.LogHandler() != nil {
		t.Error("disabled telemetry should not provide a log handler")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	cfg := telemetry.Config{Endpoint: "http://127.0.0.1:4318", ServiceName: "mention-analyzer"}

	tel, err := telemetry.Setup(context.Background(), &cfg, "0.1.0")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !tel.Enabled() {
		t.Fatal("telemetry should be enabled")
	}
	if tel.LogHandler() == nil {
		t.Error("enabled telemetry should provide a log handler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tel.Shutdown(ctx)
}
