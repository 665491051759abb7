package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSandboxResolveWithinRoot(t *testing.T) {
	root := t.TempDir()
	s := Sandbox{Root: root}
	resolved, err := s.Resolve("sub/file.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "sub", "file.txt")
	if resolved != want {
		t.Fatalf("got %q, want %q", resolved, want)
	}
}

func TestSandboxRejectsEscape(t *testing.T) {
	root := t.TempDir()
	s := Sandbox{Root: root}
	if _, err := s.Resolve("../../etc/passwd"); err == nil {
		t.Fatalf("expected escape to be rejected")
	}
}

func TestSandboxRejectsProtectedPath(t *testing.T) {
	root := t.TempDir()
	protected := filepath.Join(root, "locked")
	if err := os.MkdirAll(protected, 0o755); err != nil {
		t.Fatal(err)
	}
	s := Sandbox{Root: root, ProtectedPaths: []string{protected}}
	if _, err := s.Resolve("locked/secret.txt"); err == nil {
		t.Fatalf("expected protected path to be rejected")
	}
}

func TestSandboxRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	s := Sandbox{Root: root}
	if _, err := s.Resolve("escape/file.txt"); err == nil {
		t.Fatalf("expected symlink escape to be rejected")
	}
}

func TestSandboxAllowsSymlinkWithinRoot(t *testing.T) {
	root := t.TempDir()
	realDir := filepath.Join(root, "real")
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "alias")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	s := Sandbox{Root: root}
	if _, err := s.Resolve("alias/file.txt"); err != nil {
		t.Fatalf("expected in-sandbox symlink to be allowed: %v", err)
	}
}
