package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/mention-analyzer/internal/analysis"
	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/internal/orchestrator"
)

type record struct {
	status   mentions.Status
	analysis *mentions.Analysis
	errMsg   *string
	updates  int
}

// memStore is an in-memory Store keyed by mention id.
type memStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*record
	history []mentions.Status

	processErr  error
	completeErr error
	failErr     error
	failCtxErr  error
}

func newStore(ids ...uuid.UUID) *memStore {
	s := &memStore{rows: make(map[uuid.UUID]*record)}
	for _, id := range ids {
		s.rows[id] = &record{status: mentions.StatusPending}
	}
	return s
}

func (s *memStore) row(id uuid.UUID) (*record, error) {
	r, ok := s.rows[id]
	if !ok {
		return nil, mentions.ErrNotFound
	}
	return r, nil
}

func (s *memStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processErr != nil {
		return s.processErr
	}
	r, err := s.row(id)
	if err != nil {
		return err
	}
	r.status = mentions.StatusProcessing
	r.errMsg = nil
	r.updates++
	s.history = append(s.history, r.status)
	return nil
}

func (s *memStore) Complete(_ context.Context, id uuid.UUID, a mentions.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	r, err := s.row(id)
	if err != nil {
		return err
	}
	r.status = mentions.StatusCompleted
	r.analysis = &a
	r.errMsg = nil
	r.updates++
	s.history = append(s.history, r.status)
	return nil
}

func (s *memStore) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCtxErr = ctx.Err()
	if s.failErr != nil {
		return s.failErr
	}
	r, err := s.row(id)
	if err != nil {
		return err
	}
	r.status = mentions.StatusFailed
	r.errMsg = &msg
	r.updates++
	s.history = append(s.history, r.status)
	return nil
}

type fakeClient struct {
	result  *mentions.Analysis
	err     error
	calls   int
	persona string
	block   bool
}

func (c *fakeClient) Analyze(ctx context.Context, _ string, persona string) (*mentions.Analysis, error) {
	c.calls++
	c.persona = persona
	if c.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", analysis.ErrUnexpected, ctx.Err())
	}
	return c.result, c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleAnalysis() *mentions.Analysis {
	reply := "Thanks for the kind words!"
	return &mentions.Analysis{
		Product:       mentions.ProductWebsite,
		Sentiment:     mentions.SentimentPositive,
		NeedsResponse: true,
		Response:      &reply,
	}
}

func TestRunCompletes(t *testing.T) {
	id := uuid.New()
	store := newStore(id)
	client := &fakeClient{result: sampleAnalysis()}
	o := orchestrator.New(store, client, "witty", time.Second, discard())

	if err := o.Run(context.Background(), id, "love the new site"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	r := store.rows[id]
	if r.status != mentions.StatusCompleted {
		t.Errorf("status = %q, want completed", r.status)
	}
	if r.analysis == nil || r.analysis.Sentiment != mentions.SentimentPositive {
		t.Errorf("analysis = %+v, want positive sentiment", r.analysis)
	}
	if r.errMsg != nil {
		t.Errorf("error_message = %q, want nil", *r.errMsg)
	}
	if client.persona != "witty" {
		t.Errorf("persona = %q, want witty", client.persona)
	}

	want := []mentions.Status{mentions.StatusProcessing, mentions.StatusCompleted}
	if fmt.Sprint(store.history) != fmt.Sprint(want) {
		t.Errorf("history = %v, want %v", store.history, want)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name        string
		client      *fakeClient
		processErr  error
		completeErr error
		wantErr     error
		wantOutcome string
		wantCalls   int
	}{
		{
			name:        "schema violation",
			client:      &fakeClient{err: fmt.Errorf("%w: %w", analysis.ErrUnexpected, analysis.ErrSchemaViolation)},
			wantErr:     analysis.ErrSchemaViolation,
			wantOutcome: "schema_violation",
			wantCalls:   1,
		},
		{
			name:        "upstream unavailable",
			client:      &fakeClient{err: fmt.Errorf("%w: 503", analysis.ErrUpstreamUnavailable)},
			wantErr:     analysis.ErrUpstreamUnavailable,
			wantOutcome: "upstream_fatal",
			wantCalls:   1,
		},
		{
			name:        "complete write fails",
			client:      &fakeClient{result: sampleAnalysis()},
			completeErr: errors.New("connection reset"),
			wantErr:     orchestrator.ErrPersistence,
			wantOutcome: "persistence",
			wantCalls:   1,
		},
		{
			name:        "processing write fails",
			client:      &fakeClient{result: sampleAnalysis()},
			processErr:  errors.New("connection reset"),
			wantErr:     orchestrator.ErrPersistence,
			wantOutcome: "persistence",
			wantCalls:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			store := newStore(id)
			store.processErr = tt.processErr
			store.completeErr = tt.completeErr
			o := orchestrator.New(store, tt.client, "", time.Second, discard())

			err := o.Run(context.Background(), id, "hello")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if got := orchestrator.Outcome(err); got != tt.wantOutcome {
				t.Errorf("Outcome() = %q, want %q", got, tt.wantOutcome)
			}
			if tt.client.calls != tt.wantCalls {
				t.Errorf("client calls = %d, want %d", tt.client.calls, tt.wantCalls)
			}

			r := store.rows[id]
			if r.status != mentions.StatusFailed {
				t.Errorf("status = %q, want failed", r.status)
			}
			if r.errMsg == nil || *r.errMsg == "" {
				t.Error("error_message should be set")
			}
		})
	}
}

func TestRunFailureTruncatesMessage(t *testing.T) {
	id := uuid.New()
	store := newStore(id)
	client := &fakeClient{err: fmt.Errorf("%w: %s", analysis.ErrUnexpected, strings.Repeat("x", 2000))}
	o := orchestrator.New(store, client, "", time.Second, discard())

	_ = o.Run(context.Background(), id, "hello")

	msg := store.rows[id].errMsg
	if msg == nil {
		t.Fatal("error_message not set")
	}
	if n := utf8.RuneCountInString(*msg); n != mentions.MaxErrorLength {
		t.Errorf("error_message length = %d, want %d", n, mentions.MaxErrorLength)
	}
}

func TestRunFailureRetainsPriorAnalysis(t *testing.T) {
	id := uuid.New()
	store := newStore(id)
	prior := sampleAnalysis()
	store.rows[id].analysis = prior
	store.rows[id].status = mentions.StatusCompleted

	client := &fakeClient{err: fmt.Errorf("%w: boom", analysis.ErrUpstreamUnavailable)}
	o := orchestrator.New(store, client, "", time.Second, discard())

	_ = o.Run(context.Background(), id, "hello")

	r := store.rows[id]
	if r.status != mentions.StatusFailed {
		t.Errorf("status = %q, want failed", r.status)
	}
	if r.analysis != prior {
		t.Error("failed re-run should retain the prior analysis result")
	}
}

func TestRunFailWriteSurvivesCancellation(t *testing.T) {
	id := uuid.New()
	store := newStore(id)
	client := &fakeClient{block: true}
	o := orchestrator.New(store, client, "", time.Second, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx, id, "hello") }()

	// Let the run reach the blocking analysis call.
	for {
		store.mu.Lock()
		processing := store.rows[id].status == mentions.StatusProcessing
		store.mu.Unlock()
		if processing {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; err == nil {
		t.Fatal("expected error after cancellation")
	}

	if s := store.rows[id].status; s != mentions.StatusFailed {
		t.Errorf("status = %q, want failed", s)
	}
	store.mu.Lock()
	failCtxErr := store.failCtxErr
	store.mu.Unlock()
	if failCtxErr != nil {
		t.Errorf("fail write context was cancelled: %v", failCtxErr)
	}
}

func TestRunFailWriteErrorIsJoined(t *testing.T) {
	id := uuid.New()
	store := newStore(id)
	store.failErr = errors.New("database gone")
	client := &fakeClient{err: fmt.Errorf("%w: boom", analysis.ErrUpstreamUnavailable)}
	o := orchestrator.New(store, client, "", time.Second, discard())

	err := o.Run(context.Background(), id, "hello")

	if !errors.Is(err, analysis.ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if !errors.Is(err, orchestrator.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
	if s := store.rows[id].status; s != mentions.StatusProcessing {
		t.Errorf("status = %q, want processing left behind", s)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	id := uuid.New()
	store := newStore(id)
	client := &fakeClient{result: sampleAnalysis()}
	o := orchestrator.New(store, client, "", time.Second, discard())

	for range 2 {
		if err := o.Run(context.Background(), id, "hello"); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	r := store.rows[id]
	if r.status != mentions.StatusCompleted || r.analysis == nil {
		t.Errorf("re-run state = %+v, want completed with analysis", r)
	}
}

func TestRetry(t *testing.T) {
	t.Run("within budget runs", func(t *testing.T) {
		id := uuid.New()
		store := newStore(id)
		client := &fakeClient{result: sampleAnalysis()}
		o := orchestrator.New(store, client, "", time.Second, discard())

		if err := o.Retry(context.Background(), id, "hello", 2, 3); err != nil {
			t.Fatalf("Retry() error = %v", err)
		}
		if client.calls != 1 {
			t.Errorf("client calls = %d, want 1", client.calls)
		}
		if s := store.rows[id].status; s != mentions.StatusCompleted {
			t.Errorf("status = %q, want completed", s)
		}
	})

	t.Run("past budget marks failed", func(t *testing.T) {
		id := uuid.New()
		store := newStore(id)
		client := &fakeClient{result: sampleAnalysis()}
		o := orchestrator.New(store, client, "", time.Second, discard())

		err := o.Retry(context.Background(), id, "hello", 4, 3)
		if !errors.Is(err, orchestrator.ErrRetriesExhausted) {
			t.Fatalf("Retry() error = %v, want ErrRetriesExhausted", err)
		}
		if client.calls != 0 {
			t.Errorf("client calls = %d, want 0", client.calls)
		}

		r := store.rows[id]
		if r.status != mentions.StatusFailed {
			t.Errorf("status = %q, want failed", r.status)
		}
		if r.errMsg == nil || !strings.Contains(*r.errMsg, "retries exhausted") {
			t.Errorf("error_message = %v, want retries exhausted", r.errMsg)
		}
	})
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "completed"},
		{analysis.ErrSchemaViolation, "schema_violation"},
		{analysis.ErrUnexpected, "upstream_fatal"},
		{analysis.ErrUpstreamUnavailable, "upstream_fatal"},
		{orchestrator.ErrPersistence, "persistence"},
		{orchestrator.ErrRetriesExhausted, "retries_exhausted"},
		{errors.New("other"), "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := orchestrator.Outcome(tt.err); got != tt.want {
				t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
