package pagination

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/mention-analyzer/pkg/query"
)

// Window selects a contiguous slice of an ordered result set by skip and limit.
type Window struct {
	Skip  int               `json:"skip"`
	Limit int               `json:"limit"`
	Sort  []query.SortField `json:"sort,omitempty"`
}

// Normalize clamps the window to valid values based on the config.
// A negative skip becomes zero, a non-positive limit takes the default,
// and a limit above the maximum is capped.
func (w *Window) Normalize(cfg Config) {
	if w.Skip < 0 {
		w.Skip = 0
	}
	if w.Limit < 1 {
		w.Limit = cfg.DefaultLimit
	}
	if w.Limit > cfg.MaxLimit {
		w.Limit = cfg.MaxLimit
	}
}

// WindowFromQuery parses window parameters from URL query values.
// Supported parameters: skip, limit, sort.
func WindowFromQuery(values url.Values, cfg Config) Window {
	skip, _ := strconv.Atoi(values.Get("skip"))

	limit := cfg.DefaultLimit
	if v := values.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	w := Window{
		Skip:  skip,
		Limit: limit,
		Sort:  query.ParseSortFields(values.Get("sort")),
	}

	w.Normalize(cfg)
	return w
}
