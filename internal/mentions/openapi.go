package mentions

import "github.com/JaimeStill/mention-analyzer/pkg/openapi"

func enum[T ~string](values ...T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func nullable(typ, description string) *openapi.Schema {
	return &openapi.Schema{Type: typ, Description: description + " (nullable)"}
}

// Schemas returns the component schemas referenced by Paths.
func Schemas() map[string]*openapi.Schema {
	maxLen := MaxErrorLength

	return map[string]*openapi.Schema{
		"MentionCreate": {
			Type:     "object",
			Required: []string{"text"},
			Properties: map[string]*openapi.Schema{
				"text":     {Type: "string", Description: "Mention text; must not be blank", Example: "The app keeps crashing on login"},
				"source":   {Type: "string", Description: "Origin of the mention", Example: "twitter"},
				"metadata": {Type: "object", Description: "Arbitrary JSON passed through unchanged"},
			},
		},
		"Analysis": {
			Type:     "object",
			Required: []string{"product", "sentiment", "needs_response"},
			Properties: map[string]*openapi.Schema{
				"product":                    {Type: "string", Enum: enum(ProductApp, ProductWebsite, ProductNotApplicable)},
				"sentiment":                  {Type: "string", Enum: enum(SentimentPositive, SentimentNegative, SentimentNeutral)},
				"needs_response":             {Type: "boolean"},
				"response":                   nullable("string", "Suggested reply"),
				"support_ticket_description": nullable("string", "Ticket summary when follow-up is needed"),
			},
		},
		"Mention": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"text":            {Type: "string"},
				"source":          nullable("string", "Origin of the mention"),
				"metadata":        {Type: "object", Description: "Submitted metadata (nullable)"},
				"status":          {Type: "string", Enum: enum(Statuses...)},
				"analysis_result": openapi.SchemaRef("Analysis"),
				"error_message":   {Type: "string", Description: "Last failure (nullable)", MaxLength: &maxLen},
				"created_at":      {Type: "string", Format: "date-time"},
				"updated_at":      {Type: "string", Format: "date-time"},
			},
		},
		"MentionList": {
			Type:  "array",
			Items: openapi.SchemaRef("Mention"),
		},
		"Summary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"total_mentions": {Type: "integer"},
				"by_status":      {Type: "object", Description: "Count per status; every status is present"},
				"by_sentiment":   {Type: "object", Description: "Count per sentiment among completed mentions"},
			},
		},
	}
}

// Paths documents the routes registered by Handler.Routes, relative to the API base path.
func Paths() map[string]*openapi.PathItem {
	return map[string]*openapi.PathItem{
		"/mentions": {
			Post: &openapi.Operation{
				Summary:     "Submit a mention",
				Description: "Persists a pending mention and schedules its analysis.",
				Tags:        []string{"mentions"},
				RequestBody: openapi.RequestBodyJSON("MentionCreate", true),
				Responses: map[int]*openapi.Response{
					202: openapi.ResponseJSON("Accepted for analysis", "Mention"),
					400: openapi.ResponseRef("BadRequest"),
					413: openapi.ResponseRef("PayloadTooLarge"),
					500: openapi.ResponseRef("InternalError"),
				},
			},
			Get: &openapi.Operation{
				Summary: "List mentions",
				Tags:    []string{"mentions"},
				Parameters: []*openapi.Parameter{
					openapi.QueryParam("skip", "integer", "Rows to skip", false),
					openapi.QueryParam("limit", "integer", "Maximum rows to return", false),
					openapi.QueryParam("status", "string", "Filter by status", false),
					openapi.QueryParam("source", "string", "Filter by source", false),
					openapi.QueryParam("product", "string", "Filter by analyzed product", false),
					openapi.QueryParam("sentiment", "string", "Filter by analyzed sentiment", false),
					openapi.QueryParam("needs_response", "boolean", "Filter by response need", false),
				},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Mentions, newest first", "MentionList"),
					400: openapi.ResponseRef("BadRequest"),
				},
			},
		},
		"/mentions/summary": {
			Get: &openapi.Operation{
				Summary: "Aggregate mention counts",
				Tags:    []string{"mentions"},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Counts by status and sentiment", "Summary"),
				},
			},
		},
		"/mentions/{id}": {
			Get: &openapi.Operation{
				Summary:    "Get a mention",
				Tags:       []string{"mentions"},
				Parameters: []*openapi.Parameter{openapi.PathParam("id", "Mention ID")},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("The mention", "Mention"),
					400: openapi.ResponseRef("BadRequest"),
					404: openapi.ResponseRef("NotFound"),
				},
			},
		},
	}
}
