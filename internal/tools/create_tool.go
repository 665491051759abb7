package tools

import (
	"context"
	"fmt"
)

// ImplementationLoader turns a host-defined implementation blob into a
// Handler. How the blob is interpreted (an inline script, a reference to a
// process-isolated plug-in, ...) is host-defined; this package requires
// only that the resulting Handler obeys the same dispatch contract as any
// built-in tool (spec.md §9 "Dynamic tool registration").
type ImplementationLoader func(ctx context.Context, implementation string) (Handler, error)

// CreateToolDefinition builds the protected create_tool meta-tool bound to
// a Registry and an ImplementationLoader. Calling it registers a new,
// non-protected tool; it cannot overwrite a protected tool (Registry.Register
// already enforces this).
//
// Grounded on spec.md §4.4's "create_tool meta-tool" and
// github.com/haasonsaas/nexus/internal/agent/tool_registry.go's protected-tool
// guard idiom.
func CreateToolDefinition(registry *Registry, loader ImplementationLoader) Tool {
	return Tool{
		Name:        "create_tool",
		Description: "Register a new tool at runtime from a name, description, parameter schema, and an implementation blob.",
		Category:    "meta",
		Protected:   true,
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":            map[string]any{"type": "string"},
				"description":     map[string]any{"type": "string"},
				"parameter_schema": map[string]any{"type": "object"},
				"implementation":  map[string]any{"type": "string"},
			},
			"required": []any{"name", "description", "parameter_schema", "implementation"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			description, _ := args["description"].(string)
			schema, _ := args["parameter_schema"].(map[string]any)
			implementation, _ := args["implementation"].(string)

			if name == "" || implementation == "" {
				return nil, &ValidationError{Field: "name", Message: "name and implementation are required"}
			}

			handler, err := loader(ctx, implementation)
			if err != nil {
				return nil, fmt.Errorf("load implementation: %w", err)
			}

			newTool := Tool{
				Name:            name,
				Description:     description,
				ParameterSchema: schema,
				Handler:         handler,
				Category:        "custom",
				Protected:       false,
			}
			if err := registry.Register(newTool); err != nil {
				return nil, err
			}
			return map[string]any{"registered": name}, nil
		},
	}
}
