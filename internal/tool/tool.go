// Package tool implements the registry of named, schema-described
// callables an agent may invoke during reasoning.
//
// Tools are local computation only: pattern matching, date arithmetic,
// table lookups. They never call the reasoning client and never block
// beyond a short bounded duration, so no timeout handling exists at
// this layer. An agent registers an ordered, fixed set of tools at
// construction; the set is immutable thereafter and safe to share
// across concurrent requests.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
	"github.com/paisaflow/paisaflow/pkg/contracts"
)

// Func is the tool implementation: a structurally-validated input in,
// an arbitrary result mapping out.
type Func func(input map[string]interface{}) (map[string]interface{}, error)

// Tool is a named, described, schema-constrained callable.
// Identity is the name, unique within a registry.
type Tool struct {
	Name        string
	Description string
	// Schema is a JSON Schema object declaring the input shape:
	// field names, types, and which fields are required.
	Schema map[string]interface{}
	Fn     Func

	compiled *jsonschema.Schema
}

// Registry holds an agent's fixed, ordered tool set.
type Registry struct {
	ordered []*Tool
	byName  map[string]*Tool
}

// NewRegistry compiles each tool's schema and returns an immutable
// registry. Duplicate names and invalid schemas are construction
// errors: a broken tool set should fail at startup, not per request.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Tool, len(tools))}
	compiler := jsonschema.NewCompiler()

	for _, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool registry: tool with empty name")
		}
		if _, exists := r.byName[t.Name]; exists {
			return nil, fmt.Errorf("tool registry: duplicate tool %q", t.Name)
		}
		if t.Schema != nil {
			raw, err := json.Marshal(t.Schema)
			if err != nil {
				return nil, fmt.Errorf("tool %s: marshal schema: %w", t.Name, err)
			}
			schema, err := compiler.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("tool %s: compile schema: %w", t.Name, err)
			}
			t.compiled = schema
		}
		r.ordered = append(r.ordered, t)
		r.byName[t.Name] = t
	}
	return r, nil
}

// MustRegistry is NewRegistry for fixed tool sets declared at agent
// construction, where a schema error is a programming bug.
func MustRegistry(tools ...*Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.byName[name]
}

// Invoke validates input against the named tool's declared shape and
// executes it. A missing tool or a required field that is absent or
// of the wrong type fails with a ValidationError; nothing beyond the
// declared shape is checked.
func (r *Registry) Invoke(name string, input map[string]interface{}) (map[string]interface{}, error) {
	t := r.byName[name]
	if t == nil {
		return nil, &contracts.ValidationError{Tool: name, Reason: "unknown tool"}
	}

	if t.compiled != nil {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, &contracts.ValidationError{Tool: name, Reason: "input not serializable: " + err.Error()}
		}
		result := t.compiled.ValidateJSON(raw)
		if !result.IsValid() {
			return nil, &contracts.ValidationError{Tool: name, Reason: fmt.Sprintf("schema validation failed: %v", result.Errors)}
		}
	}

	return t.Fn(input)
}

// Describe renders a one-line-per-tool summary for inclusion in a
// reasoning prompt.
func (r *Registry) Describe() string {
	out := ""
	for _, t := range r.ordered {
		out += fmt.Sprintf("- %s: %s\n", t.Name, t.Description)
	}
	return out
}
