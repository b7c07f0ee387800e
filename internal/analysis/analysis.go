// Package analysis classifies mention text with an LLM structured-output call.
//
// The client owns its retry policy: the SDK's retries are disabled and each
// attempt runs under its own timeout, with full-jitter exponential backoff
// between retryable failures.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
	"github.com/JaimeStill/mention-analyzer/pkg/formatting"
)

const tracerName = "github.com/JaimeStill/mention-analyzer/internal/analysis"

// Client analyzes a single mention.
type Client interface {
	Analyze(ctx context.Context, text, persona string) (*mentions.Analysis, error)
}

type client struct {
	openai         openai.Client
	model          string
	temperature    float64
	maxTokens      int64
	maxAttempts    uint
	baseDelay      time.Duration
	maxDelay       time.Duration
	requestTimeout time.Duration
	limiter        *rate.Limiter
	tracer         trace.Tracer
	logger         *slog.Logger
}

// New creates a Client from finalized analysis configuration.
func New(cfg *config.AnalysisConfig, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("analysis: api key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &client{
		openai:         openai.NewClient(opts...),
		model:          cfg.Model,
		temperature:    cfg.TemperatureValue(),
		maxTokens:      int64(cfg.MaxTokens),
		maxAttempts:    uint(max(cfg.MaxAttempts, 1)),
		baseDelay:      cfg.BaseDelayDuration(),
		maxDelay:       cfg.MaxDelayDuration(),
		requestTimeout: cfg.RequestTimeoutDuration(),
		tracer:         otel.Tracer(tracerName),
		logger:         logger.With("system", "analysis"),
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return c, nil
}

// Analyze runs up to max_attempts calls. Exhausted transient failures return
// ErrUpstreamUnavailable; anything else returns ErrUnexpected. Both wrap the cause.
func (c *client) Analyze(ctx context.Context, text, persona string) (*mentions.Analysis, error) {
	c.logger.Info("analyzing mention", "text", mentions.Preview(text))

	attempt := 0
	operation := func() (*mentions.Analysis, error) {
		attempt++
		result, err := c.attempt(ctx, text, persona, attempt)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamTransient, err)
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&FullJitter{Base: c.baseDelay, Max: c.maxDelay}),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("analysis attempt failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}),
	)
	if err == nil {
		c.logger.Info("analysis complete", "text", mentions.Preview(text), "attempts", attempt)
		return result, nil
	}

	if errors.Is(err, ErrUpstreamTransient) && ctx.Err() == nil {
		c.logger.Error("analysis retries exhausted", "attempts", attempt, "error", err)
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrUpstreamUnavailable, attempt, err)
	}

	c.logger.Error("analysis failed", "attempts", attempt, "error", err)
	return nil, fmt.Errorf("%w: %w", ErrUnexpected, err)
}

func (c *client) attempt(ctx context.Context, text, persona string, n int) (*mentions.Analysis, error) {
	ctx, span := c.tracer.Start(ctx, "analysis.attempt",
		trace.WithAttributes(
			attribute.Int("analysis.attempt", n),
			attribute.String("llm.model", c.model),
		),
	)
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.call(ctx, text, persona)
	outcome := classify(ctx, err)

	metrics.AnalysisAttemptsTotal.WithLabelValues(outcome).Inc()
	metrics.AnalysisAttemptDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("analysis.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	return result, nil
}

func (c *client) call(ctx context.Context, text, persona string) (*mentions.Analysis, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(persona)),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        schemaName,
					Description: openai.String("Structured analysis of a product mention"),
					Schema:      Schema(),
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}

	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	c.logger.Debug("llm chat completed",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrSchemaViolation)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: model refused: %s", ErrSchemaViolation, choice.Message.Refusal)
	}

	out, err := formatting.Parse[output](choice.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	return out.analysis()
}

func classify(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSchemaViolation):
		return "schema"
	case IsRetryable(context.WithoutCancel(ctx), err):
		return "retryable"
	default:
		return "fatal"
	}
}
