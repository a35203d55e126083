package extract

import (
	"testing"

	"github.com/paisaflow/paisaflow/pkg/contracts"
)

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"bare object",
			`{"intent":"add_expense"}`,
			`{"intent":"add_expense"}`,
		},
		{
			"object wrapped in prose",
			"Sure! Here is the classification:\n{\"intent\":\"query_expenses\",\"confidence\":0.8}\nLet me know if you need more.",
			`{"intent":"query_expenses","confidence":0.8}`,
		},
		{
			"markdown fence",
			"```json\n{\"amount\": 250}\n```",
			`{"amount": 250}`,
		},
		{
			"nested objects",
			`prefix {"a":{"b":{"c":1}},"d":2} suffix`,
			`{"a":{"b":{"c":1}},"d":2}`,
		},
		{
			"braces inside strings ignored",
			`{"note":"use {curly} braces","x":1}`,
			`{"note":"use {curly} braces","x":1}`,
		},
		{
			"escaped quote inside string",
			`{"note":"she said \"hi {there}\"","x":1}`,
			`{"note":"she said \"hi {there}\"","x":1}`,
		},
		{
			"first of two objects",
			`{"first":true} {"second":true}`,
			`{"first":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstObject(tt.raw)
			if err != nil {
				t.Fatalf("FirstObject() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("FirstObject() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFirstObjectFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object at all", "I could not classify that input."},
		{"unbalanced braces", `{"intent":"add_expense"`},
		{"malformed object", `{intent: add_expense}`},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FirstObject(tt.raw)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !contracts.IsParse(err) {
				t.Errorf("error is %T, want ParseError", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}

	raw := "The classification follows.\n{\"intent\":\"split_expense\",\"confidence\":0.8}"
	if err := Decode(raw, &out); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.Intent != "split_expense" {
		t.Errorf("intent = %q, want split_expense", out.Intent)
	}
	if out.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", out.Confidence)
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	var out struct {
		Amount float64 `json:"amount"`
	}
	err := Decode(`{"amount":"not a number"}`, &out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !contracts.IsParse(err) {
		t.Errorf("error is %T, want ParseError", err)
	}
}
