package queue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Message is one analysis request read from the stream.
type Message struct {
	ID        string
	MentionID uuid.UUID
	Text      string
	Attempt   int
	LastError string
}

// ParseMessage decodes stream fields into a Message.
// A missing attempt is treated as the first attempt.
func ParseMessage(msg redis.XMessage) (Message, error) {
	rawID, err := parseString(msg.Values, "mention_id")
	if err != nil {
		return Message{}, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Message{}, fmt.Errorf("parsing mention_id: %w", err)
	}

	text, err := parseString(msg.Values, "text")
	if err != nil {
		return Message{}, err
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt <= 0 {
		attempt = 1
	}

	lastError, _ := msg.Values["last_error"].(string)

	return Message{
		ID:        msg.ID,
		MentionID: id,
		Text:      text,
		Attempt:   attempt,
		LastError: lastError,
	}, nil
}

func values(id uuid.UUID, text string, attempt int) map[string]any {
	return map[string]any{
		"mention_id": id.String(),
		"text":       text,
		"attempt":    attempt,
	}
}

// delayed is the sorted-set member scheduled for redelivery. QueuedAt keeps
// members distinct when the same mention is requeued more than once.
type delayed struct {
	MentionID string `json:"mention_id"`
	Text      string `json:"text"`
	Attempt   int    `json:"attempt"`
	LastError string `json:"last_error"`
	QueuedAt  int64  `json:"queued_at"`
}

func encodeDelayed(msg Message, attempt int, lastError string, now time.Time) (string, error) {
	data, err := json.Marshal(delayed{
		MentionID: msg.MentionID.String(),
		Text:      msg.Text,
		Attempt:   attempt,
		LastError: lastError,
		QueuedAt:  now.UnixNano(),
	})
	if err != nil {
		return "", fmt.Errorf("encode delayed message: %w", err)
	}
	return string(data), nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}
