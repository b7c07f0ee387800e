package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/JaimeStill/mention-analyzer/internal/analysis"
	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
)

const validContent = `{"product":"app","sentiment":"negative","needs_response":true,"response":"Sorry about that, we're on it.","support_ticket_description":"Login crash on iOS"}`

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	})
	return string(body)
}

func apiError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"message":"status %d","type":"test_error"}}`, status)
}

func ok(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, completion(content))
}

// scripted serves each request with the next step; the last step repeats.
type scripted struct {
	steps    []func(w http.ResponseWriter, r *http.Request)
	calls    atomic.Int32
	lastBody atomic.Value
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.lastBody.Store(body)

	n := int(s.calls.Add(1)) - 1
	if n >= len(s.steps) {
		n = len(s.steps) - 1
	}
	s.steps[n](w, r)
}

func newClient(t *testing.T, h http.Handler, mutate ...func(*config.AnalysisConfig)) analysis.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &config.AnalysisConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/",
		Model:          "gpt-4o-mini",
		Persona:        "neutral",
		MaxTokens:      1000,
		MaxAttempts:    3,
		BaseDelay:      "1ms",
		MaxDelay:       "5ms",
		RequestTimeout: "2s",
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	c, err := analysis.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := analysis.New(&config.AnalysisConfig{}, slog.Default())
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := &scripted{steps: []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
	}}
	c := newClient(t, srv)

	got, err := c.Analyze(context.Background(), "The app crashes on login", "friendly")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got.Product != mentions.ProductApp {
		t.Errorf("product = %q, want app", got.Product)
	}
	if got.Sentiment != mentions.SentimentNegative {
		t.Errorf("sentiment = %q, want negative", got.Sentiment)
	}
	if !got.NeedsResponse {
		t.Error("needs_response = false, want true")
	}
	if got.SupportTicketDescription == nil || *got.SupportTicketDescription != "Login crash on iOS" {
		t.Errorf("support_ticket_description = %v", got.SupportTicketDescription)
	}
	if n := srv.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	var req struct {
		Model          string  `json:"model"`
		Temperature    float64 `json:"temperature"`
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name   string `json:"name"`
				Strict bool   `json:"strict"`
			} `json:"json_schema"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(srv.lastBody.Load().([]byte), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}

	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", req.Model)
	}
	if req.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", req.Temperature)
	}
	if req.ResponseFormat.Type != "json_schema" || !req.ResponseFormat.JSONSchema.Strict {
		t.Errorf("response_format = %+v, want strict json_schema", req.ResponseFormat)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(req.Messages))
	}
	if !strings.Contains(req.Messages[0].Content, "Your persona is friendly.") {
		t.Errorf("system prompt missing persona: %q", req.Messages[0].Content)
	}
	if req.Messages[1].Content != "The app crashes on login" {
		t.Errorf("user message = %q", req.Messages[1].Content)
	}
}

func TestAnalyzeRetries(t *testing.T) {
	tests := []struct {
		name      string
		steps     []func(http.ResponseWriter, *http.Request)
		wantCalls int32
		wantErr   error
	}{
		{
			name: "recovers after server error",
			steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusInternalServerError) },
				func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
			},
			wantCalls: 2,
		},
		{
			name: "recovers after rate limit",
			steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusTooManyRequests) },
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusRequestTimeout) },
				func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
			},
			wantCalls: 3,
		},
		{
			name: "exhausts on persistent unavailability",
			steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusServiceUnavailable) },
			},
			wantCalls: 3,
			wantErr:   analysis.ErrUpstreamUnavailable,
		},
		{
			name: "recovers after client error",
			steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusBadRequest) },
				func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
			},
			wantCalls: 2,
		},
		{
			name: "recovers after unprocessable entity",
			steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusUnprocessableEntity) },
				func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
			},
			wantCalls: 2,
		},
		{
			name: "exhausts on persistent auth error",
			steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { apiError(w, http.StatusUnauthorized) },
			},
			wantCalls: 3,
			wantErr:   analysis.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &scripted{steps: tt.steps}
			c := newClient(t, srv)

			_, err := c.Analyze(context.Background(), "hello", "")

			if tt.wantErr == nil && err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Analyze() error = %v, want %v", err, tt.wantErr)
			}
			if n := srv.calls.Load(); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestAnalyzeSchemaViolation(t *testing.T) {
	contents := []struct {
		name    string
		content string
	}{
		{"out of enum sentiment", `{"product":"app","sentiment":"furious","needs_response":true,"response":null,"support_ticket_description":null}`},
		{"out of enum product", `{"product":"desktop","sentiment":"neutral","needs_response":false,"response":null,"support_ticket_description":null}`},
		{"missing needs_response", `{"product":"app","sentiment":"neutral","response":null,"support_ticket_description":null}`},
		{"malformed json", `{"product":`},
	}

	for _, tt := range contents {
		t.Run(tt.name, func(t *testing.T) {
			srv := &scripted{steps: []func(http.ResponseWriter, *http.Request){
				func(w http.ResponseWriter, _ *http.Request) { ok(w, tt.content) },
			}}
			c := newClient(t, srv)

			_, err := c.Analyze(context.Background(), "hello", "")
			if !errors.Is(err, analysis.ErrSchemaViolation) {
				t.Fatalf("error = %v, want ErrSchemaViolation", err)
			}
			if !errors.Is(err, analysis.ErrUnexpected) {
				t.Errorf("error = %v, want ErrUnexpected", err)
			}
			if n := srv.calls.Load(); n != 1 {
				t.Errorf("calls = %d, want 1", n)
			}
		})
	}
}

func TestAnalyzeEmptyChoices(t *testing.T) {
	srv := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`)
	})
	c := newClient(t, srv)

	_, err := c.Analyze(context.Background(), "hello", "")
	if !errors.Is(err, analysis.ErrSchemaViolation) {
		t.Errorf("error = %v, want ErrSchemaViolation", err)
	}
}

func TestAnalyzePerAttemptTimeout(t *testing.T) {
	srv := &scripted{steps: []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
		func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
	}}
	c := newClient(t, srv, func(cfg *config.AnalysisConfig) {
		cfg.RequestTimeout = "50ms"
	})

	got, err := c.Analyze(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got.Product != mentions.ProductApp {
		t.Errorf("product = %q, want app", got.Product)
	}
	if n := srv.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestAnalyzeCallerCancellation(t *testing.T) {
	srv := &scripted{steps: []func(http.ResponseWriter, *http.Request){
		func(w http.ResponseWriter, _ *http.Request) { ok(w, validContent) },
	}}
	c := newClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Analyze(ctx, "hello", "")
	if !errors.Is(err, analysis.ErrUnexpected) {
		t.Fatalf("error = %v, want ErrUnexpected", err)
	}
	if errors.Is(err, analysis.ErrUpstreamUnavailable) {
		t.Error("caller cancellation must not be reported as upstream unavailable")
	}
	if n := srv.calls.Load(); n > 1 {
		t.Errorf("calls = %d, want at most 1", n)
	}
}
