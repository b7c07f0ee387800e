package mentions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/mention-analyzer/pkg/pagination"
	"github.com/JaimeStill/mention-analyzer/pkg/query"
	"github.com/JaimeStill/mention-analyzer/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a mention repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "mentions"),
		pagination: pagination,
	}
}

func (r *repo) Handler(d Dispatcher, maxBodySize int64) *Handler {
	return NewHandler(r, d, r.logger, r.pagination, maxBodySize)
}

func (r *repo) List(ctx context.Context, window pagination.Window, filters Filters) ([]Mention, error) {
	window.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(window.Sort) > 0 {
		qb.OrderByFields(window.Sort)
	}

	q, args := qb.BuildWindow(window.Skip, window.Limit)
	items, err := repository.QueryMany(ctx, r.db, q, args, scanMention)
	if err != nil {
		return nil, fmt.Errorf("query mentions: %w", err)
	}

	return items, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Mention, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMention)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &m, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Mention, error) {
	metadata, err := encodeJSON(mapOrNil(cmd.Metadata))
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidMention, err)
	}

	q := `
		INSERT INTO mentions (id, text, source, metadata, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + returning

	id := uuid.New()

	m, err := repository.QueryOne(
		ctx, r.db, q,
		[]any{id, cmd.Text, cmd.Source, metadata, string(StatusPending)},
		scanMention,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("mention created", "id", m.ID, "text", Preview(m.Text))
	return &m, nil
}

func (r *repo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	q := `
		UPDATE mentions
		SET status = $2, error_message = NULL, updated_at = NOW()
		WHERE id = $1`

	if err := repository.ExecExpectOne(ctx, r.db, q, id, string(StatusProcessing)); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return nil
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID, analysis Analysis) error {
	result, err := encodeJSON(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	q := `
		UPDATE mentions
		SET status = $2,
			analysis_result = $3,
			product = $4,
			sentiment = $5,
			needs_response = $6,
			error_message = NULL,
			updated_at = NOW()
		WHERE id = $1`

	err = repository.ExecExpectOne(
		ctx, r.db, q,
		id,
		string(StatusCompleted),
		result,
		string(analysis.Product),
		string(analysis.Sentiment),
		analysis.NeedsResponse,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return nil
}

func (r *repo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	q := `
		UPDATE mentions
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1`

	err := repository.ExecExpectOne(ctx, r.db, q, id, string(StatusFailed), TruncateError(message))
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return nil
}

func (r *repo) ListStale(ctx context.Context, before time.Time, limit int) ([]Mention, error) {
	qb := query.
		NewBuilder(projection, query.SortField{Field: "UpdatedAt"}).
		WhereIn("Status", []any{string(StatusPending), string(StatusProcessing)}).
		WhereBefore("UpdatedAt", before)

	q, args := qb.BuildWindow(0, limit)
	items, err := repository.QueryMany(ctx, r.db, q, args, scanMention)
	if err != nil {
		return nil, fmt.Errorf("query stale mentions: %w", err)
	}

	return items, nil
}

func mapOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
