package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{
		"start", "stop", "pause", "resume", "restart", "status",
		"factory-reset", "prompt", "questions", "todos", "journal",
		"goal", "tournament", "subagent",
	}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestPromptAndTournamentHaveSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	for _, group := range []struct {
		name string
		want []string
	}{
		{"prompt", []string{"enqueue", "list", "remove", "clear"}},
		{"questions", []string{"list", "answer"}},
		{"todos", []string{"add", "list", "set-status", "remove"}},
		{"journal", []string{"list", "write"}},
		{"tournament", []string{"create", "start", "get", "list"}},
	} {
		sub, _, err := cmd.Find([]string{group.name})
		if err != nil {
			t.Fatalf("find %q: %v", group.name, err)
		}
		got := map[string]bool{}
		for _, s := range sub.Commands() {
			got[s.Name()] = true
		}
		for _, name := range group.want {
			if !got[name] {
				t.Errorf("expected %q to have subcommand %q", group.name, name)
			}
		}
	}
}

func TestParseStages(t *testing.T) {
	stages, err := parseStages("4, 2,1")
	if err != nil {
		t.Fatalf("parseStages: %v", err)
	}
	if len(stages) != 3 || stages[0] != 4 || stages[1] != 2 || stages[2] != 1 {
		t.Errorf("unexpected stages: %v", stages)
	}

	if _, err := parseStages("4,x"); err == nil {
		t.Error("expected parseStages to reject a non-integer stage count")
	}
}

func TestFactoryResetRequiresConfirmFlag(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "curiosity.yaml")
	if err := os.WriteFile(configPath, []byte("sandbox:\n  root: "+t.TempDir()+"\nllm:\n  api_key: test-key\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"factory-reset", "--config", configPath})

	if err := cmd.Execute(); err == nil {
		t.Error("expected factory-reset without --confirm to fail")
	}
}
