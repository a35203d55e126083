package voice

import (
	"time"

	"github.com/paisaflow/paisaflow/internal/nlp"
	"github.com/paisaflow/paisaflow/internal/tool"
)

// newVoiceTools builds the Voice Agent's fixed tool set: local
// transcript analysis only.
func newVoiceTools() *tool.Registry {
	textSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{"type": "string"},
		},
		"required": []interface{}{"text"},
	}

	return tool.MustRegistry(
		&tool.Tool{
			Name:        "extract_amount",
			Description: "Extract the first currency-marked amount from the transcript",
			Schema:      textSchema,
			Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
				text, _ := input["text"].(string)
				out := map[string]interface{}{"amount": nil}
				if amount := nlp.ExtractAmount(text); amount != nil {
					out["amount"] = *amount
				}
				return out, nil
			},
		},
		&tool.Tool{
			Name:        "parse_word_number",
			Description: "Parse a spelled-out amount like 'fifty' or 'two hundred'",
			Schema:      textSchema,
			Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
				text, _ := input["text"].(string)
				out := map[string]interface{}{"amount": nil}
				if amount := nlp.ParseWordNumber(text); amount != nil {
					out["amount"] = *amount
				}
				return out, nil
			},
		},
		&tool.Tool{
			Name:        "resolve_date",
			Description: "Resolve a relative date reference like 'yesterday' or '3 days ago'",
			Schema:      textSchema,
			Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
				text, _ := input["text"].(string)
				out := map[string]interface{}{"date": nil}
				if date := nlp.ResolveDateReference(text, time.Now()); date != nil {
					out["date"] = *date
				}
				return out, nil
			},
		},
	)
}
