// Package orchestrator drives a mention through its analysis lifecycle:
// pending to processing, then completed or failed. Each transition is
// committed on its own so a crash leaves the last durable state behind.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/mention-analyzer/internal/analysis"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/pkg/logging"
)

var (
	// ErrPersistence wraps a failed lifecycle write.
	ErrPersistence = errors.New("analysis persistence failed")

	// ErrRetriesExhausted is returned by Retry once the attempt budget is spent.
	ErrRetriesExhausted = errors.New("analysis retries exhausted")
)

const defaultFailTimeout = 10 * time.Second

// Store is the subset of mentions.System the orchestrator writes through.
type Store interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, analysis mentions.Analysis) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
}

// Orchestrator runs analysis for one mention at a time per call.
// It is safe for concurrent use across different mentions.
type Orchestrator struct {
	store       Store
	client      analysis.Client
	persona     string
	failTimeout time.Duration
	tracer      trace.Tracer
	logger      *slog.Logger
}

// New creates an Orchestrator. failTimeout bounds the FAILED write,
// which runs detached from the caller's cancellation.
func New(
	store Store,
	client analysis.Client,
	persona string,
	failTimeout time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if failTimeout <= 0 {
		failTimeout = defaultFailTimeout
	}

	return &Orchestrator{
		store:       store,
		client:      client,
		persona:     persona,
		failTimeout: failTimeout,
		tracer:      otel.Tracer("github.com/JaimeStill/mention-analyzer/internal/orchestrator"),
		logger:      logger.With("system", "orchestrator"),
	}
}

// Run marks the mention processing, analyzes text, and records the result.
// Any failure is written as FAILED before returning. If that write also
// fails the error is logged at CRITICAL and both errors are returned.
func (o *Orchestrator) Run(ctx context.Context, id uuid.UUID, text string) error {
	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	ctx, span := o.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("mention.id", id.String())),
	)
	defer span.End()

	logger := o.logger.With("id", id)
	logger.Info("analysis started", "text", mentions.Preview(text))

	err := o.run(ctx, id, text)
	outcome := Outcome(err)

	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("analysis.outcome", outcome))

	if err == nil {
		logger.Info("analysis completed")
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)

	if ferr := o.fail(ctx, id, err); ferr != nil {
		logging.Critical(ctx, logger, "failed to record analysis failure",
			"cause", err,
			"error", ferr,
		)
		metrics.RunsTotal.WithLabelValues("critical").Inc()
		return errors.Join(err, ferr)
	}

	logger.Warn("analysis failed", "outcome", outcome, "error", err)
	return err
}

// Retry runs the mention when attempt is within maxAttempts. Past the
// budget it marks the mention FAILED and returns ErrRetriesExhausted.
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID, text string, attempt, maxAttempts int) error {
	if attempt <= maxAttempts {
		return o.Run(ctx, id, text)
	}

	cause := fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, maxAttempts)
	if ferr := o.fail(ctx, id, cause); ferr != nil {
		logging.Critical(ctx, o.logger, "failed to record exhausted retries",
			"id", id,
			"error", ferr,
		)
		return errors.Join(cause, ferr)
	}

	o.logger.Warn("analysis retries exhausted", "id", id, "attempts", maxAttempts)
	return cause
}

func (o *Orchestrator) run(ctx context.Context, id uuid.UUID, text string) error {
	if err := o.store.MarkProcessing(ctx, id); err != nil {
		return fmt.Errorf("%w: mark processing: %w", ErrPersistence, err)
	}

	result, err := o.client.Analyze(ctx, text, o.persona)
	if err != nil {
		return err
	}

	if err := o.store.Complete(ctx, id, *result); err != nil {
		return fmt.Errorf("%w: mark completed: %w", ErrPersistence, err)
	}

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, id uuid.UUID, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.failTimeout)
	defer cancel()

	if err := o.store.Fail(ctx, id, mentions.TruncateError(cause.Error())); err != nil {
		return fmt.Errorf("%w: mark failed: %w", ErrPersistence, err)
	}
	return nil
}

// Outcome labels err by failure class for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrRetriesExhausted):
		return "retries_exhausted"
	case errors.Is(err, analysis.ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, analysis.ErrUpstreamUnavailable), errors.Is(err, analysis.ErrUnexpected):
		return "upstream_fatal"
	default:
		return "unexpected"
	}
}
