// Package extract parses structured output out of free-form model
// responses. Reasoning models wrap the JSON object the agent asked
// for in prose, markdown fences, or apologies; this package locates
// the first balanced curly-brace object and decodes it.
package extract

import (
	"encoding/json"

	"github.com/paisaflow/paisaflow/pkg/contracts"
)

// FirstObject returns the first balanced curly-brace object substring
// in raw. It fails with a ParseError when no brace-delimited object is
// found or the substring is not well-formed JSON — the caller is
// expected to absorb that with its deterministic fallback.
func FirstObject(raw string) (json.RawMessage, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return nil, &contracts.ParseError{Reason: "brace-delimited substring is not well-formed JSON"}
				}
				return json.RawMessage(candidate), nil
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}

	if start >= 0 {
		return nil, &contracts.ParseError{Reason: "unbalanced braces in response"}
	}
	return nil, &contracts.ParseError{Reason: "no JSON object found in response"}
}

// Decode extracts the first object in raw and unmarshals it into out.
func Decode(raw string, out interface{}) error {
	obj, err := FirstObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, out); err != nil {
		return &contracts.ParseError{Reason: "decode object: " + err.Error()}
	}
	return nil
}
