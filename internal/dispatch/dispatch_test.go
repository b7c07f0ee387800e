package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/mention-analyzer/internal/dispatch"
)

type fakeRunner struct {
	mu     sync.Mutex
	ids    []uuid.UUID
	active atomic.Int32
	peak   atomic.Int32
	hold   chan struct{}
	ctxErr atomic.Value
}

func (r *fakeRunner) Run(ctx context.Context, id uuid.UUID, _ string) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if r.hold != nil {
		select {
		case <-r.hold:
		case <-ctx.Done():
			r.ctxErr.Store(ctx.Err())
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInlineRunsDetachedFromCaller(t *testing.T) {
	runner := &fakeRunner{}
	d := dispatch.NewInline(runner, 4, time.Second, discard())

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	if err := d.Dispatch(ctx, id, "hello"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	cancel()

	d.Drain()

	if len(runner.ids) != 1 || runner.ids[0] != id {
		t.Errorf("runs = %v, want [%v]", runner.ids, id)
	}
}

func TestInlineBoundsConcurrency(t *testing.T) {
	hold := make(chan struct{})
	runner := &fakeRunner{hold: hold}
	d := dispatch.NewInline(runner, 2, 5*time.Second, discard())

	for range 6 {
		if err := d.Dispatch(context.Background(), uuid.New(), "hello"); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runner.active.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if peak := runner.peak.Load(); peak != 2 {
		t.Errorf("peak concurrency = %d, want 2", peak)
	}

	close(hold)
	d.Drain()

	if len(runner.ids) != 6 {
		t.Errorf("completed runs = %d, want 6", len(runner.ids))
	}
}

func TestInlineDrainTimeoutCancels(t *testing.T) {
	runner := &fakeRunner{hold: make(chan struct{})}
	d := dispatch.NewInline(runner, 1, 20*time.Millisecond, discard())

	if err := d.Dispatch(context.Background(), uuid.New(), "hello"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	for runner.active.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	start := time.Now()
	d.Drain()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Drain took %v, want near drain timeout", elapsed)
	}
	if err, _ := runner.ctxErr.Load().(error); !errors.Is(err, context.Canceled) {
		t.Errorf("run context error = %v, want context.Canceled", err)
	}
}

func TestInlineRejectsAfterDrain(t *testing.T) {
	d := dispatch.NewInline(&fakeRunner{}, 1, time.Second, discard())
	d.Drain()

	err := d.Dispatch(context.Background(), uuid.New(), "hello")
	if !errors.Is(err, dispatch.ErrStopped) {
		t.Errorf("Dispatch() error = %v, want ErrStopped", err)
	}
}

type enqueueCall struct {
	id      uuid.UUID
	text    string
	attempt int
}

type fakeProducer struct {
	calls []enqueueCall
	err   error
}

func (p *fakeProducer) Enqueue(_ context.Context, id uuid.UUID, text string, attempt int) error {
	p.calls = append(p.calls, enqueueCall{id, text, attempt})
	return p.err
}

func TestQueueDispatch(t *testing.T) {
	t.Run("publishes first attempt", func(t *testing.T) {
		p := &fakeProducer{}
		d := dispatch.NewQueue(p, discard())
		id := uuid.New()

		if err := d.Dispatch(context.Background(), id, "hello"); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		if len(p.calls) != 1 {
			t.Fatalf("enqueue calls = %d, want 1", len(p.calls))
		}
		if got := p.calls[0]; got.id != id || got.text != "hello" || got.attempt != 1 {
			t.Errorf("enqueue = %+v, want (%v, hello, 1)", got, id)
		}
	})

	t.Run("returns producer error", func(t *testing.T) {
		p := &fakeProducer{err: errors.New("redis down")}
		d := dispatch.NewQueue(p, discard())

		if err := d.Dispatch(context.Background(), uuid.New(), "hello"); err == nil {
			t.Error("expected error from producer")
		}
	})
}
