package mentions

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/JaimeStill/mention-analyzer/pkg/query"
	"github.com/JaimeStill/mention-analyzer/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "mentions", "m").
	Project("id", "ID").
	Project("text", "Text").
	Project("source", "Source").
	Project("metadata", "Metadata").
	Project("status", "Status").
	Project("analysis_result", "AnalysisResult").
	Project("error_message", "ErrorMessage").
	Project("product", "Product").
	Project("sentiment", "Sentiment").
	Project("needs_response", "NeedsResponse").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

const returning = `id, text, source, metadata, status, analysis_result, error_message,
	product, sentiment, needs_response, created_at, updated_at`

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional exact-match criteria for mention queries.
// Nil fields are ignored.
type Filters struct {
	Status        *Status `json:"status,omitempty"`
	Source        *string `json:"source,omitempty"`
	Product       *string `json:"product,omitempty"`
	Sentiment     *string `json:"sentiment,omitempty"`
	NeedsResponse *bool   `json:"needs_response,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var status any
	if f.Status != nil {
		status = string(*f.Status)
	}

	return b.
		WhereEquals("Status", status).
		WhereEquals("Source", f.Source).
		WhereEquals("Product", f.Product).
		WhereEquals("Sentiment", f.Sentiment).
		WhereEquals("NeedsResponse", f.NeedsResponse)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unknown statuses and unparsable booleans are rejected with ErrInvalidFilter.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		if !status.Valid() {
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, s)
		}
		f.Status = &status
	}

	if src := values.Get("source"); src != "" {
		f.Source = &src
	}

	if p := values.Get("product"); p != "" {
		f.Product = &p
	}

	if s := values.Get("sentiment"); s != "" {
		f.Sentiment = &s
	}

	if nr := values.Get("needs_response"); nr != "" {
		v, err := strconv.ParseBool(nr)
		if err != nil {
			return f, fmt.Errorf("%w: needs_response must be a boolean", ErrInvalidFilter)
		}
		f.NeedsResponse = &v
	}

	return f, nil
}

func scanMention(s repository.Scanner) (Mention, error) {
	var (
		m        Mention
		status   string
		metadata []byte
		analysis []byte
	)

	err := s.Scan(
		&m.ID,
		&m.Text,
		&m.Source,
		&metadata,
		&status,
		&analysis,
		&m.ErrorMessage,
		&m.Product,
		&m.Sentiment,
		&m.NeedsResponse,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return m, err
	}

	m.Status = Status(status)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return m, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if len(analysis) > 0 {
		m.AnalysisResult = &Analysis{}
		if err := json.Unmarshal(analysis, m.AnalysisResult); err != nil {
			return m, fmt.Errorf("decode analysis_result: %w", err)
		}
	}

	return m, nil
}

// encodeJSON returns nil for a nil value so the column is stored as NULL.
func encodeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
