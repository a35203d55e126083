package routing

import (
	"github.com/paisaflow/paisaflow/internal/nlp"
	"github.com/paisaflow/paisaflow/internal/tool"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// newRouterTools builds the Router Agent's fixed tool set. All three
// tools are local text analysis; none of them touches the reasoning
// client.
func newRouterTools() *tool.Registry {
	return tool.MustRegistry(
		&tool.Tool{
			Name:        "detect_intent",
			Description: "Classify intent from keyword heuristics over the input text",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text":     map[string]interface{}{"type": "string"},
					"is_image": map[string]interface{}{"type": "boolean"},
				},
				"required": []interface{}{"text"},
			},
			Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
				text, _ := input["text"].(string)
				isImage, _ := input["is_image"].(bool)
				guess := nlp.DetectIntent(text, isImage)
				return map[string]interface{}{
					"intent":     guess.Intent,
					"confidence": guess.Confidence,
				}, nil
			},
		},
		&tool.Tool{
			Name:        "extract_amount",
			Description: "Extract the first currency-marked amount from the text",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"text"},
			},
			Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
				text, _ := input["text"].(string)
				out := map[string]interface{}{"amount": nil}
				if amount := nlp.ExtractAmount(text); amount != nil {
					out["amount"] = *amount
				}
				if currency := nlp.DetectCurrency(text); currency != "" {
					out["currency"] = currency
				}
				return out, nil
			},
		},
		&tool.Tool{
			Name:        "select_processor",
			Description: "Select the downstream processor for an intent and modality",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"intent":   map[string]interface{}{"type": "string"},
					"modality": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"intent"},
			},
			Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
				intent, _ := input["intent"].(string)
				modality, _ := input["modality"].(string)
				return map[string]interface{}{
					"processor": RouteFor(models.ParseIntent(intent), models.ParseModality(modality)),
				}, nil
			},
		},
	)
}
