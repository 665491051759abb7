package exec

import (
	"context"
	"testing"
)

func buildHandler(t *testing.T, root string) func(map[string]any) (any, error) {
	t.Helper()
	tool := Tool(root)
	return func(args map[string]any) (any, error) {
		return tool.Handler(context.Background(), args)
	}
}

func TestRunShellSnippetCapturesStdout(t *testing.T) {
	root := t.TempDir()
	handle := buildHandler(t, root)

	result, err := handle(map[string]any{
		"language":    "shell",
		"code":        "echo hello",
		"working_dir": ".",
		"timeout":     float64(5),
	})
	if err != nil {
		t.Fatalf("run_code: %v", err)
	}
	m := result.(map[string]any)
	if m["exit_code"] != 0 {
		t.Errorf("expected exit_code 0, got %v", m["exit_code"])
	}
}

func TestRunRejectsUnsupportedLanguage(t *testing.T) {
	root := t.TempDir()
	handle := buildHandler(t, root)

	if _, err := handle(map[string]any{"language": "ruby", "code": "", "working_dir": "."}); err == nil {
		t.Error("expected unsupported language to be rejected")
	}
}

func TestRunZeroTimeoutDoesNotSpawn(t *testing.T) {
	root := t.TempDir()
	handle := buildHandler(t, root)

	result, err := handle(map[string]any{
		"language":    "shell",
		"code":        "echo hello",
		"working_dir": ".",
		"timeout":     float64(0),
	})
	if err != nil {
		t.Fatalf("run_code: %v", err)
	}
	m := result.(map[string]any)
	if m["success"] != false {
		t.Errorf("expected success=false for zero timeout, got %v", m["success"])
	}
}

func TestRunRejectsWorkingDirEscape(t *testing.T) {
	root := t.TempDir()
	handle := buildHandler(t, root)

	if _, err := handle(map[string]any{"language": "shell", "code": "echo hi", "working_dir": "../../etc"}); err == nil {
		t.Error("expected working_dir escape to be rejected")
	}
}
