package mentions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/mention-analyzer/pkg/pagination"
)

// System defines the public contract for mention domain operations.
type System interface {
	Handler(d Dispatcher, maxBodySize int64) *Handler

	List(ctx context.Context, window pagination.Window, filters Filters) ([]Mention, error)
	Find(ctx context.Context, id uuid.UUID) (*Mention, error)
	Create(ctx context.Context, cmd CreateCommand) (*Mention, error)
	Summary(ctx context.Context) (*Summary, error)

	// Lifecycle writes. Each is a single UPDATE scoped by id.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, analysis Analysis) error
	Fail(ctx context.Context, id uuid.UUID, message string) error

	// ListStale returns pending or processing mentions last updated before the cutoff, oldest first.
	ListStale(ctx context.Context, before time.Time, limit int) ([]Mention, error)
}

// Dispatcher schedules analysis of a persisted mention off the request path.
type Dispatcher interface {
	Dispatch(ctx context.Context, id uuid.UUID, text string) error
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(ctx context.Context, id uuid.UUID, text string) error

// Dispatch calls f(ctx, id, text).
func (f DispatchFunc) Dispatch(ctx context.Context, id uuid.UUID, text string) error {
	return f(ctx, id, text)
}
