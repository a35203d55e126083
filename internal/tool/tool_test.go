package tool

import (
	"errors"
	"strings"
	"testing"

	"github.com/paisaflow/paisaflow/pkg/contracts"
)

func textSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func upperTool() *Tool {
	return &Tool{
		Name:        "to_upper",
		Description: "Upper-cases the text field.",
		Schema:      textSchema(),
		Fn: func(input map[string]interface{}) (map[string]interface{}, error) {
			text, _ := input["text"].(string)
			return map[string]interface{}{"text": strings.ToUpper(text)}, nil
		},
	}
}

func TestRegistryInvoke(t *testing.T) {
	r, err := NewRegistry(upperTool())
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}

	out, err := r.Invoke("to_upper", map[string]interface{}{"text": "chai"})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if out["text"] != "CHAI" {
		t.Errorf("output = %v, want CHAI", out["text"])
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	r := MustRegistry(upperTool())

	_, err := r.Invoke("does_not_exist", map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var verr *contracts.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error is %T, want ValidationError", err)
	}
	if verr.Tool != "does_not_exist" {
		t.Errorf("Tool = %q, want does_not_exist", verr.Tool)
	}
}

func TestRegistryValidation(t *testing.T) {
	r := MustRegistry(upperTool())

	tests := []struct {
		name  string
		input map[string]interface{}
	}{
		{"missing required field", map[string]interface{}{}},
		{"wrong type", map[string]interface{}{"text": 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Invoke("to_upper", tt.input)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var verr *contracts.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error is %T, want ValidationError", err)
			}
		})
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	_, err := NewRegistry(upperTool(), upperTool())
	if err == nil {
		t.Fatal("expected duplicate-name error, got nil")
	}
}

func TestRegistryEmptyName(t *testing.T) {
	_, err := NewRegistry(&Tool{Name: "", Fn: func(map[string]interface{}) (map[string]interface{}, error) { return nil, nil }})
	if err == nil {
		t.Fatal("expected empty-name error, got nil")
	}
}

func TestRegistryOrderAndDescribe(t *testing.T) {
	a := &Tool{Name: "alpha", Description: "first tool", Fn: func(map[string]interface{}) (map[string]interface{}, error) { return nil, nil }}
	b := &Tool{Name: "beta", Description: "second tool", Fn: func(map[string]interface{}) (map[string]interface{}, error) { return nil, nil }}

	r := MustRegistry(a, b)

	tools := r.Tools()
	if len(tools) != 2 || tools[0].Name != "alpha" || tools[1].Name != "beta" {
		t.Errorf("Tools() order = %v", []string{tools[0].Name, tools[1].Name})
	}

	desc := r.Describe()
	if !strings.Contains(desc, "alpha: first tool") || !strings.Contains(desc, "beta: second tool") {
		t.Errorf("Describe() = %q", desc)
	}
	if strings.Index(desc, "alpha") > strings.Index(desc, "beta") {
		t.Error("Describe() lost registration order")
	}
}
