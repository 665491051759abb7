// Package container implements the per-agent filesystem workspace shared by
// the sub-agent and tournament-agent variants: a sandboxed workspace/
// directory, a revealed/ mirror, a logs/ directory, and the reveal tool
// that moves a workspace artifact into the next round's input set
// (spec.md §4.6's filesystem layout and §3's RevealedFile).
//
// Grounded on _examples/original_source/agent/tournament.py's
// AgentContainer (workspace/revealed/logs subdirectories per agent, one
// per round) and haasonsaas-nexus/internal/tools/files's sandboxed
// read/write idiom, adapted onto internal/tools.Sandbox.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/curiosity/internal/tools"
)

// RevealedFile is an immutable artifact an agent marked as a contribution
// to the next round (spec.md §3). Content is copied on reveal, never
// mutated afterward.
type RevealedFile struct {
	Filename    string
	Content     string
	FileType    string
	AgentID     string
	RevealedAt  time.Time
	Description string
}

// Container owns one agent's workspace/revealed/logs directory triad
// (spec.md §6's filesystem layout) and the tools that operate on it.
type Container struct {
	AgentID      string
	Root         string
	WorkspaceDir string
	RevealedDir  string
	LogsDir      string

	mu       sync.Mutex
	revealed []RevealedFile
}

// New creates the workspace/revealed/logs subdirectories under root and
// returns a Container bound to them.
func New(root, agentID string) (*Container, error) {
	ws := filepath.Join(root, "workspace")
	rv := filepath.Join(root, "revealed")
	lg := filepath.Join(root, "logs")
	for _, dir := range []string{ws, rv, lg} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("container: create %s: %w", dir, err)
		}
	}
	return &Container{AgentID: agentID, Root: root, WorkspaceDir: ws, RevealedDir: rv, LogsDir: lg}, nil
}

// Revealed returns the files this container's agent has revealed so far,
// in reveal order.
func (c *Container) Revealed() []RevealedFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RevealedFile, len(c.revealed))
	copy(out, c.revealed)
	return out
}

// WorkspaceFiles walks the workspace directory and returns every regular
// file's content keyed by its path relative to the workspace root,
// supporting call_subagent's "workspace_files" result (spec.md §4.6).
func (c *Container) WorkspaceFiles() (map[string]string, error) {
	out := map[string]string{}
	err := filepath.Walk(c.WorkspaceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.WorkspaceDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SeedInputFiles writes a round's input files into the workspace so the
// agent can read/build on them before revealing new artifacts (spec.md
// §4.6's round scheduling step 2).
func (c *Container) SeedInputFiles(files []RevealedFile) error {
	for _, f := range files {
		name := fmt.Sprintf("%s_%s", shortID(f.AgentID), f.Filename)
		if err := os.WriteFile(filepath.Join(c.WorkspaceDir, name), []byte(f.Content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Tools builds the write_file, read_file, and reveal tools bound to this
// container's sandboxed workspace.
func (c *Container) Tools() []tools.Tool {
	sandbox := tools.Sandbox{Root: c.WorkspaceDir}
	return []tools.Tool{
		c.writeFileTool(sandbox),
		c.readFileTool(sandbox),
		c.revealTool(sandbox),
	}
}

func (c *Container) writeFileTool(sandbox tools.Sandbox) tools.Tool {
	return tools.Tool{
		Name:        "write_file",
		Description: "Write a file into the agent's workspace.",
		Category:    "workspace",
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []any{"path", "content"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			resolved, err := sandbox.Resolve(path)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return nil, fmt.Errorf("write_file: %w", err)
			}
			if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
				return nil, fmt.Errorf("write_file: %w", err)
			}
			return map[string]any{"path": path, "bytes": len(content)}, nil
		},
	}
}

func (c *Container) readFileTool(sandbox tools.Sandbox) tools.Tool {
	return tools.Tool{
		Name:        "read_file",
		Description: "Read a file from the agent's workspace.",
		Category:    "workspace",
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []any{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			resolved, err := sandbox.Resolve(path)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(resolved)
			if err != nil {
				return nil, fmt.Errorf("read_file: %w", err)
			}
			return map[string]any{"path": path, "content": string(data)}, nil
		},
	}
}

// revealTool implements spec.md §8's "reveal(filename) with a non-existent
// workspace file returns {success: false} and does not add to
// revealed_files" and the ordering guarantee that revealed_files preserve
// reveal-call order.
func (c *Container) revealTool(sandbox tools.Sandbox) tools.Tool {
	return tools.Tool{
		Name:        "reveal",
		Description: "Mark a workspace file as a contribution to the next round.",
		Category:    "workspace",
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filename":    map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
			},
			"required": []any{"filename"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			filename, _ := args["filename"].(string)
			description, _ := args["description"].(string)

			resolved, err := sandbox.Resolve(filename)
			if err != nil {
				return map[string]any{"success": false, "error": err.Error()}, nil
			}
			data, err := os.ReadFile(resolved)
			if err != nil {
				return map[string]any{"success": false, "error": fmt.Sprintf("workspace file not found: %s", filename)}, nil
			}

			base := filepath.Base(filename)
			fileType := strings.TrimPrefix(filepath.Ext(base), ".")
			rf := RevealedFile{
				Filename:    base,
				Content:     string(data),
				FileType:    fileType,
				AgentID:     c.AgentID,
				RevealedAt:  time.Now(),
				Description: description,
			}

			c.mu.Lock()
			c.revealed = append(c.revealed, rf)
			c.mu.Unlock()

			_ = os.WriteFile(filepath.Join(c.RevealedDir, base), data, 0o644)

			return map[string]any{"success": true, "filename": base}, nil
		},
	}
}

// SortByReveal orders a slice of RevealedFile by RevealedAt, used when
// merging multiple agents' reveals into a single deterministic input list.
func SortByReveal(files []RevealedFile) {
	sort.SliceStable(files, func(i, j int) bool { return files[i].RevealedAt.Before(files[j].RevealedAt) })
}
