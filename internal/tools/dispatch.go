package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/curiosity/pkg/models"
)

// Dispatcher invokes registered tools against incoming ToolCalls, enforcing
// the dispatch contract from spec.md §4.4: strip tool_description, validate
// remaining arguments against the declared schema, invoke the handler
// (recovering from panics into a synthetic failure result, per spec.md §7's
// "the dispatcher must emit a synthetic failure tool result even on
// exception inside the handler"), coerce non-map results, and always
// reattach the tool_description for logging.
//
// Grounded on
// github.com/haasonsaas/nexus/internal/agent/tool_registry.go's
// Runtime.Execute / guardToolResult pattern.
type Dispatcher struct {
	Registry *Registry
}

// NewDispatcher creates a Dispatcher bound to a Registry.
func NewDispatcher(r *Registry) *Dispatcher {
	return &Dispatcher{Registry: r}
}

// Dispatch executes one tool call and always returns a ToolResult — it
// never returns an error itself, since every failure mode (validation,
// permission, panic) must surface as a tool-role message the model can
// observe (spec.md §7's propagation policy).
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall) (result models.ToolResult) {
	description := call.ToolDescription()
	args := call.ArgumentsWithoutDescription()

	result.ToolCallID = call.ID
	result.ToolDescription = description

	tool, ok := d.Registry.Get(call.Name)
	if !ok {
		result.Success = false
		result.Error = fmt.Sprintf("tool not found: %s", call.Name)
		return result
	}

	if tool.compiled != nil {
		payload, err := json.Marshal(args)
		if err == nil {
			var decoded any
			if err := json.Unmarshal(payload, &decoded); err == nil {
				if err := tool.compiled.Validate(decoded); err != nil {
					result.Success = false
					result.Error = fmt.Sprintf("invalid arguments: %v", err)
					return result
				}
			}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("tool %s panicked: %v", call.Name, r)
		}
	}()

	raw, err := tool.Handler(ctx, args)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Result = coerceResult(raw)
	return result
}

func coerceResult(raw any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	if m, ok := raw.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": raw}
}
