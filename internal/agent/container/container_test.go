package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c, err := New(t.TempDir(), "agent-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func findTool(t *testing.T, c *Container, name string) func(context.Context, map[string]any) (any, error) {
	t.Helper()
	for _, tool := range c.Tools() {
		if tool.Name == name {
			return tool.Handler
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

func TestNewCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, "agent-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, dir := range []string{c.WorkspaceDir, c.RevealedDir, c.LogsDir} {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestWriteThenReadFile(t *testing.T) {
	c := newTestContainer(t)
	write := findTool(t, c, "write_file")
	read := findTool(t, c, "read_file")

	if _, err := write(context.Background(), map[string]any{"path": "notes.txt", "content": "hello"}); err != nil {
		t.Fatalf("write_file: %v", err)
	}
	result, err := read(context.Background(), map[string]any{"path": "notes.txt"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	m := result.(map[string]any)
	if m["content"] != "hello" {
		t.Errorf("expected content %q, got %q", "hello", m["content"])
	}
}

func TestRevealMissingFileReturnsFailureWithoutRecording(t *testing.T) {
	c := newTestContainer(t)
	reveal := findTool(t, c, "reveal")

	result, err := reveal(context.Background(), map[string]any{"filename": "missing.txt"})
	if err != nil {
		t.Fatalf("reveal should not error on missing file: %v", err)
	}
	m := result.(map[string]any)
	if m["success"] != false {
		t.Errorf("expected success=false, got %v", m["success"])
	}
	if len(c.Revealed()) != 0 {
		t.Errorf("expected no revealed files, got %d", len(c.Revealed()))
	}
}

func TestRevealRecordsFileInCallOrder(t *testing.T) {
	c := newTestContainer(t)
	write := findTool(t, c, "write_file")
	reveal := findTool(t, c, "reveal")

	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := write(context.Background(), map[string]any{"path": name, "content": "content-" + name}); err != nil {
			t.Fatalf("write_file(%s): %v", name, err)
		}
	}
	for _, name := range []string{"b.txt", "a.txt"} {
		result, err := reveal(context.Background(), map[string]any{"filename": name, "description": "desc-" + name})
		if err != nil {
			t.Fatalf("reveal(%s): %v", name, err)
		}
		if result.(map[string]any)["success"] != true {
			t.Fatalf("reveal(%s) expected success", name)
		}
	}

	revealed := c.Revealed()
	if len(revealed) != 2 {
		t.Fatalf("expected 2 revealed files, got %d", len(revealed))
	}
	if revealed[0].Filename != "b.txt" || revealed[1].Filename != "a.txt" {
		t.Errorf("expected reveal order [b.txt, a.txt], got [%s, %s]", revealed[0].Filename, revealed[1].Filename)
	}
	if revealed[0].AgentID != "agent-1" {
		t.Errorf("expected AgentID to be set, got %q", revealed[0].AgentID)
	}
}

func TestWriteFileRejectsPathEscape(t *testing.T) {
	c := newTestContainer(t)
	write := findTool(t, c, "write_file")
	if _, err := write(context.Background(), map[string]any{"path": "../../etc/passwd", "content": "x"}); err == nil {
		t.Error("expected sandbox escape to be rejected")
	}
}

func TestWorkspaceFiles(t *testing.T) {
	c := newTestContainer(t)
	write := findTool(t, c, "write_file")
	if _, err := write(context.Background(), map[string]any{"path": "sub/dir/file.txt", "content": "nested"}); err != nil {
		t.Fatalf("write_file: %v", err)
	}

	files, err := c.WorkspaceFiles()
	if err != nil {
		t.Fatalf("WorkspaceFiles: %v", err)
	}
	key := filepath.Join("sub", "dir", "file.txt")
	if files[key] != "nested" {
		t.Errorf("expected %q, got %q", "nested", files[key])
	}
}

func TestSeedInputFiles(t *testing.T) {
	c := newTestContainer(t)
	files := []RevealedFile{
		{Filename: "shared.txt", Content: "payload", AgentID: "other-agent-id"},
	}
	if err := c.SeedInputFiles(files); err != nil {
		t.Fatalf("SeedInputFiles: %v", err)
	}

	read := findTool(t, c, "read_file")
	result, err := read(context.Background(), map[string]any{"path": "other-ag_shared.txt"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if result.(map[string]any)["content"] != "payload" {
		t.Errorf("expected seeded content to be readable")
	}
}
