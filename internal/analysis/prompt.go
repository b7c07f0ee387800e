package analysis

import "fmt"

const systemPromptTemplate = `Extract structured information from social media mentions about our products.
Your persona is %s.

Identify:
- The product mentioned (website, app, not_applicable).
- The mention's sentiment (positive, negative, neutral).
- Whether a response is needed (true/false). Avoid responding to inflammatory content or clear bait.
- A customized response draft if needed.
- A concise description for a support ticket if the issue requires developer attention (e.g., bug report, feature request).`

// DefaultPersona is used when no persona is configured or supplied.
const DefaultPersona = "neutral"

// SystemPrompt renders the analysis instruction for persona.
func SystemPrompt(persona string) string {
	if persona == "" {
		persona = DefaultPersona
	}
	return fmt.Sprintf(systemPromptTemplate, persona)
}
