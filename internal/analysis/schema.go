package analysis

import (
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/JaimeStill/mention-analyzer/internal/mentions"
	"github.com/JaimeStill/mention-analyzer/pkg/validation"
)

const schemaName = "mention_analysis"

// output is the model-facing shape. Required fields are pointers so a
// missing key is distinguishable from a zero value.
type output struct {
	Product                  *string `json:"product" jsonschema:"enum=app,enum=website,enum=not_applicable,description=The product the mention refers to" validate:"required,oneof=app website not_applicable"`
	Sentiment                *string `json:"sentiment" jsonschema:"enum=positive,enum=negative,enum=neutral,description=Overall sentiment of the mention" validate:"required,oneof=positive negative neutral"`
	NeedsResponse            *bool   `json:"needs_response" jsonschema:"description=Whether the mention warrants a reply" validate:"required"`
	Response                 *string `json:"response" jsonschema:"description=Draft reply when a response is needed"`
	SupportTicketDescription *string `json:"support_ticket_description" jsonschema:"description=Support ticket summary when developer attention is required"`
}

var (
	schema     *jsonschema.Schema
	schemaOnce sync.Once
)

// Schema returns the strict JSON schema sent as the response format.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		schema = reflector.Reflect(&output{})

		for _, name := range []string{"response", "support_ticket_description"} {
			prop, ok := schema.Properties.Get(name)
			if !ok {
				continue
			}
			schema.Properties.Set(name, &jsonschema.Schema{
				Description: prop.Description,
				AnyOf: []*jsonschema.Schema{
					{Type: "string"},
					{Type: "null"},
				},
			})
		}
	})
	return schema
}

func (o output) analysis() (*mentions.Analysis, error) {
	if err := validation.Struct(o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	return &mentions.Analysis{
		Product:                  mentions.Product(*o.Product),
		Sentiment:                mentions.Sentiment(*o.Sentiment),
		NeedsResponse:            *o.NeedsResponse,
		Response:                 o.Response,
		SupportTicketDescription: o.SupportTicketDescription,
	}, nil
}
