package formatting_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/mention-analyzer/pkg/formatting"
)

type verdict struct {
	Product       string  `json:"product"`
	NeedsResponse *bool   `json:"needs_response"`
	Response      *string `json:"response"`
}

func TestParse(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		got, err := formatting.Parse[verdict](`{"product":"app","needs_response":true,"response":"Sorry!"}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Product != "app" || got.NeedsResponse == nil || !*got.NeedsResponse {
			t.Errorf("Parse = %+v, want product=app needs_response=true", got)
		}
		if got.Response == nil || *got.Response != "Sorry!" {
			t.Errorf("Response = %v, want Sorry!", got.Response)
		}
	})

	t.Run("null and missing fields", func(t *testing.T) {
		got, err := formatting.Parse[verdict](`{"product":"website","response":null}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.NeedsResponse != nil {
			t.Errorf("NeedsResponse = %v, want nil", *got.NeedsResponse)
		}
		if got.Response != nil {
			t.Errorf("Response = %v, want nil", *got.Response)
		}
	})

	t.Run("direct JSON with whitespace", func(t *testing.T) {
		got, err := formatting.Parse[verdict]("  \n{\"product\":\"app\"}\n  ")
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Product != "app" {
			t.Errorf("Product = %q, want app", got.Product)
		}
	})

	fenced := []struct {
		name  string
		input string
	}{
		{"json tag", "```json\n{\"product\":\"website\"}\n```"},
		{"no language tag", "```\n{\"product\":\"website\"}\n```"},
		{"surrounding text", "Here is the analysis:\n```json\n{\"product\":\"website\"}\n```\nDone."},
	}

	for _, tt := range fenced {
		t.Run("fenced "+tt.name, func(t *testing.T) {
			got, err := formatting.Parse[verdict](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got.Product != "website" {
				t.Errorf("Product = %q, want website", got.Product)
			}
		})
	}

	failures := []struct {
		name  string
		input string
	}{
		{"plain text", "not json at all"},
		{"empty", ""},
		{"broken fence", "```json\n{broken\n```"},
	}

	for _, tt := range failures {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := formatting.Parse[verdict](tt.input)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("error = %v, want ErrParseFailed", err)
			}
		})
	}

	t.Run("error clips long content", func(t *testing.T) {
		_, err := formatting.Parse[verdict](strings.Repeat("x", 5000))
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Fatalf("error = %v, want ErrParseFailed", err)
		}
		if len(err.Error()) > 300 {
			t.Errorf("error length = %d, want clipped content", len(err.Error()))
		}
		if !strings.HasSuffix(err.Error(), "...") {
			t.Error("clipped error should end with ellipsis")
		}
	})

	t.Run("parses into map type", func(t *testing.T) {
		got, err := formatting.Parse[map[string]any](`{"key":"value"}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got["key"] != "value" {
			t.Errorf("got[key] = %v, want value", got["key"])
		}
	})
}
