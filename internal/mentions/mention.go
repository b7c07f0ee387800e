// Package mentions implements the mention domain: persisted social posts,
// their analysis lifecycle, list and summary queries, and the HTTP surface.
package mentions

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxErrorLength bounds the stored error_message in characters.
const MaxErrorLength = 500

// Status is the analysis lifecycle state of a mention.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Statuses lists every lifecycle state in progression order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected without a re-trigger.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Product identifies what a mention is about.
type Product string

const (
	ProductApp           Product = "app"
	ProductWebsite       Product = "website"
	ProductNotApplicable Product = "not_applicable"
)

// Sentiment is the overall tone of a mention.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Analysis is the structured classification of a mention.
type Analysis struct {
	Product                  Product   `json:"product"`
	Sentiment                Sentiment `json:"sentiment"`
	NeedsResponse            bool      `json:"needs_response"`
	Response                 *string   `json:"response"`
	SupportTicketDescription *string   `json:"support_ticket_description"`
}

// Mention is a submitted post and the state of its analysis.
// Product, Sentiment, and NeedsResponse mirror the completed analysis for filtering.
type Mention struct {
	ID             uuid.UUID      `json:"id"`
	Text           string         `json:"text"`
	Source         *string        `json:"source"`
	Metadata       map[string]any `json:"metadata"`
	Status         Status         `json:"status"`
	AnalysisResult *Analysis      `json:"analysis_result"`
	ErrorMessage   *string        `json:"error_message"`
	Product        *string        `json:"-"`
	Sentiment      *string        `json:"-"`
	NeedsResponse  *bool          `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CreateCommand carries a new submission.
type CreateCommand struct {
	Text     string         `json:"text" validate:"notblank"`
	Source   *string        `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Summary aggregates mention counts at a single point in time.
type Summary struct {
	TotalMentions int               `json:"total_mentions"`
	ByStatus      map[Status]int    `json:"by_status"`
	BySentiment   map[Sentiment]int `json:"by_sentiment"`
}

// TruncateError shortens msg to MaxErrorLength characters without splitting a rune.
func TruncateError(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxErrorLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxErrorLength])
}

// Preview returns the first 50 characters of text for log lines.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= 50 {
		return text
	}
	return string([]rune(text)[:50])
}
