// Package tools implements the tool registry and dispatch protocol:
// registration with a uniqueness/protection contract, JSON-schema emission
// with an auto-injected tool_description property, and sandboxed filesystem
// path resolution.
//
// Grounded on
// github.com/haasonsaas/nexus/internal/agent/tool_registry.go (ToolRegistry:
// RWMutex-protected map, Register/Unregister/Get/Execute/AsLLMTools) and
// pkg/pluginsdk/validation.go (schema compilation via
// santhosh-tekuri/jsonschema/v5, cached by schema text).
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/curiosity/internal/llm"
)

// Handler implements a tool's effect. args never contains tool_description
// (the registry strips it before dispatch). A non-map return value is
// coerced by the Dispatcher into {"result": value}.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a named, schema-described effect the LLM may invoke.
type Tool struct {
	Name            string
	Description     string
	ParameterSchema map[string]any
	Handler         Handler
	Category        string
	// Protected tools cannot be unregistered, overwritten by create_tool, or
	// deleted by delete_tool.
	Protected bool

	compiled *jsonschema.Schema
}

// Registry holds the set of tools available to an agent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. It fails with a *ValidationError if the name is
// already taken by a protected tool, or if the parameter schema does not
// compile.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return &ValidationError{Field: "name", Message: "tool name is required"}
	}
	if t.Handler == nil {
		return &ValidationError{Field: "handler", Message: "tool handler is required"}
	}
	compiled, err := compileSchema(t.Name, t.ParameterSchema)
	if err != nil {
		return &ValidationError{Field: "parameter_schema", Message: err.Error()}
	}
	t.compiled = compiled

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tools[t.Name]; ok && existing.Protected {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("tool %q is protected and cannot be overwritten", t.Name)}
	}
	r.tools[t.Name] = &t
	return nil
}

// Unregister removes a tool by name. Protected tools cannot be removed;
// callers observe {success: false} rather than an unregistry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tools[name]
	if !ok {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("tool %q not found", name)}
	}
	if existing.Protected {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("tool %q is protected and cannot be unregistered", name)}
	}
	delete(r.tools, name)
	return nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools, ordered by name for deterministic
// schema emission.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// toolDescriptionProperty is the schema fragment auto-injected into every
// emitted tool schema: a required free-text rationale field (spec.md §3's
// ToolCall.arguments.tool_description, §4.4's schema-emission contract).
var toolDescriptionProperty = map[string]any{
	"type":        "string",
	"description": "Free-text rationale for why this tool call is being made.",
}

// AsLLMTools renders the registry's tools as the schema the LLM client
// sends upstream, each with an auto-injected required tool_description
// property.
func (r *Registry) AsLLMTools() []llm.ToolSchema {
	list := r.List()
	out := make([]llm.ToolSchema, 0, len(list))
	for _, t := range list {
		out = append(out, llm.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  withToolDescription(t.ParameterSchema),
		})
	}
	return out
}

func withToolDescription(schema map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range schema {
		out[k] = v
	}
	if out["type"] == nil {
		out["type"] = "object"
	}

	props := map[string]any{}
	if existing, ok := out["properties"].(map[string]any); ok {
		for k, v := range existing {
			props[k] = v
		}
	}
	props["tool_description"] = toolDescriptionProperty
	out["properties"] = props

	required := []any{"tool_description"}
	if existing, ok := out["required"].([]any); ok {
		required = append(required, existing...)
	} else if existing, ok := out["required"].([]string); ok {
		for _, s := range existing {
			required = append(required, s)
		}
	}
	out["required"] = required
	return out
}

var (
	schemaCacheMu sync.Mutex
	schemaCache   = map[string]*jsonschema.Schema{}
)

func compileSchema(toolName string, schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	key := string(raw)

	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()
	if cached, ok := schemaCache[key]; ok {
		return cached, nil
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache[key] = compiled
	return compiled, nil
}
