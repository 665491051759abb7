package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox resolves workspace-relative paths to an absolute, contained form,
// rejecting anything outside Root or under a ProtectedPath — including
// via symlink traversal.
//
// Grounded on
// github.com/haasonsaas/nexus/internal/tools/files/resolver.go's
// Resolver, extended per spec.md §4.4: "no symbolic-link traversal outside
// the sandbox is permitted — resolution must follow links and re-check."
// The teacher's resolver only performs lexical (filepath.Rel) containment;
// it never calls filepath.EvalSymlinks, so a symlink inside the sandbox
// pointing outside it would pass. Sandbox.Resolve adds that re-check.
type Sandbox struct {
	Root           string
	ProtectedPaths []string
}

// Resolve returns an absolute, sandbox-contained path for the given
// (possibly relative) path, or a *PermissionError.
func (s Sandbox) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", &ValidationError{Field: "path", Message: "path is required"}
	}

	rootAbs, err := canonicalDir(s.Root)
	if err != nil {
		return "", &PermissionError{Path: path, Message: fmt.Sprintf("resolve sandbox root: %v", err)}
	}

	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", &PermissionError{Path: path, Message: fmt.Sprintf("resolve path: %v", err)}
	}

	if err := requireDescendant(rootAbs, targetAbs); err != nil {
		return "", &PermissionError{Path: path, Message: "path escapes sandbox"}
	}

	// Re-check through symlinks: resolve the longest existing prefix of
	// targetAbs via EvalSymlinks and verify the result is still inside the
	// (symlink-resolved) root. This catches a symlink inside the sandbox
	// that points outside it, even when the target path itself does not
	// yet exist (e.g. a file about to be created in a symlinked directory).
	resolvedRoot, err := evalExistingSymlinks(rootAbs)
	if err != nil {
		return "", &PermissionError{Path: path, Message: fmt.Sprintf("resolve sandbox root: %v", err)}
	}
	resolvedTarget, err := evalExistingSymlinks(targetAbs)
	if err != nil {
		return "", &PermissionError{Path: path, Message: fmt.Sprintf("resolve path: %v", err)}
	}
	if err := requireDescendant(resolvedRoot, resolvedTarget); err != nil {
		return "", &PermissionError{Path: path, Message: "path escapes sandbox via symlink"}
	}

	for _, protected := range s.ProtectedPaths {
		protAbs, err := canonicalDir(protected)
		if err != nil {
			continue
		}
		if requireDescendant(protAbs, resolvedTarget) == nil {
			return "", &PermissionError{Path: path, Message: "path is under a protected path"}
		}
	}

	return targetAbs, nil
}

func canonicalDir(dir string) (string, error) {
	d := strings.TrimSpace(dir)
	if d == "" {
		d = "."
	}
	abs, err := filepath.Abs(d)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// requireDescendant returns nil iff target is root or a descendant of root.
func requireDescendant(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("not a descendant")
	}
	return nil
}

// evalExistingSymlinks resolves symlinks along the longest existing prefix
// of path, then rejoins the remaining (not-yet-existing) suffix. This lets
// sandbox checks apply to paths about to be created.
func evalExistingSymlinks(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == path {
		return path, nil
	}
	resolvedDir, err := evalExistingSymlinks(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
