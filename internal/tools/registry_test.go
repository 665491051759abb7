package tools

import (
	"context"
	"testing"
)

func echoTool(name string, protected bool) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its input",
		Protected:   protected,
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value": map[string]any{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo", false)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	tool, ok := r.Get("echo")
	if !ok {
		t.Fatalf("expected tool to be registered")
	}
	if tool.Name != "echo" {
		t.Fatalf("got name %q", tool.Name)
	}
}

func TestProtectedToolCannotBeOverwritten(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("complete_task", true)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echoTool("complete_task", false)); err == nil {
		t.Fatalf("expected overwrite of protected tool to fail")
	}
	tool, _ := r.Get("complete_task")
	if !tool.Protected {
		t.Fatalf("protected flag lost after rejected overwrite")
	}
}

func TestProtectedToolCannotBeUnregistered(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoTool("complete_task", true))
	if err := r.Unregister("complete_task"); err == nil {
		t.Fatalf("expected unregister of protected tool to fail")
	}
	if _, ok := r.Get("complete_task"); !ok {
		t.Fatalf("protected tool should still be registered")
	}
}

func TestUnregisterUnknownTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Unregister("nope"); err == nil {
		t.Fatalf("expected error unregistering unknown tool")
	}
}

func TestAsLLMToolsInjectsToolDescription(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoTool("echo", false))
	schemas := r.AsLLMTools()
	if len(schemas) != 1 {
		t.Fatalf("expected 1 schema, got %d", len(schemas))
	}
	props, ok := schemas[0].Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map")
	}
	if _, ok := props["tool_description"]; !ok {
		t.Fatalf("expected tool_description to be auto-injected")
	}
	required, ok := schemas[0].Parameters["required"].([]any)
	if !ok || len(required) == 0 {
		t.Fatalf("expected tool_description to be required")
	}
}

func TestAsLLMToolsDeterministicOrder(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoTool("zzz", false))
	_ = r.Register(echoTool("aaa", false))
	schemas := r.AsLLMTools()
	if schemas[0].Name != "aaa" || schemas[1].Name != "zzz" {
		t.Fatalf("expected alphabetical order, got %v, %v", schemas[0].Name, schemas[1].Name)
	}
}

func TestRegisterRejectsBadSchema(t *testing.T) {
	r := NewRegistry()
	bad := echoTool("bad", false)
	bad.ParameterSchema = map[string]any{"type": 123}
	if err := r.Register(bad); err == nil {
		t.Fatalf("expected bad schema to be rejected")
	}
}
