// Package pluginhost implements the host side of the "external plug-in"
// protocol spec.md §9 calls for: create_tool's implementation blob names a
// process-isolated executable, invoked once per dispatch with the tool's
// arguments on stdin and its result on stdout, so a newly created tool's
// handler runs outside the agent process and cannot corrupt its memory.
//
// Grounded on github.com/haasonsaas/nexus/cmd/nexus-plugin-runner's
// "exec-tool" subcommand (a separate process invoked with JSON config/args
// and JSON stdout, per pkg/pluginsdk's manifest-driven plugin contract),
// adapted from a one-shared-plugin-process model into create_tool's
// one-executable-per-tool-name model. The executable/extra-args split in
// the implementation blob is validated by this package's own
// sanitizeExecutable/sanitizeExtraArgs before anything is spawned, since
// that blob ultimately comes from a tool call the model made (spec.md
// §4.4's create_tool), not a trusted operator.
package pluginhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/haasonsaas/curiosity/internal/tools"
)

// DefaultTimeout bounds a single plug-in tool invocation.
const DefaultTimeout = 10 * time.Second

// execRequest is the JSON payload written to the plug-in process's stdin.
type execRequest struct {
	Arguments map[string]any `json:"arguments"`
}

// execResponse is the JSON payload the plug-in process must write to
// stdout.
type execResponse struct {
	Result map[string]any `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Loader constructs a tools.ImplementationLoader that treats the
// implementation blob as "<path-to-executable>" (optionally followed by
// extra args, space-separated): a fresh process is spawned per dispatch,
// fed the tool's arguments as JSON on stdin, and must emit an execResponse
// as JSON on stdout within timeout.
func Loader(timeout time.Duration) tools.ImplementationLoader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return func(ctx context.Context, implementation string) (tools.Handler, error) {
		fields := strings.Fields(strings.TrimSpace(implementation))
		if len(fields) == 0 {
			return nil, fmt.Errorf("pluginhost: implementation must name an executable")
		}
		binary, err := sanitizeExecutable(fields[0])
		if err != nil {
			return nil, fmt.Errorf("pluginhost: unsafe executable %q: %w", fields[0], err)
		}
		extraArgs, err := sanitizeExtraArgs(fields[1:])
		if err != nil {
			return nil, fmt.Errorf("pluginhost: unsafe argument: %w", err)
		}

		return func(ctx context.Context, args map[string]any) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			reqBody, err := json.Marshal(execRequest{Arguments: args})
			if err != nil {
				return nil, fmt.Errorf("pluginhost: encode request: %w", err)
			}

			cmd := exec.CommandContext(callCtx, binary, extraArgs...)
			cmd.Stdin = bytes.NewReader(reqBody)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			if err := cmd.Run(); err != nil {
				if callCtx.Err() != nil {
					return nil, &tools.TimeoutError{Operation: fmt.Sprintf("plugin tool %q", binary)}
				}
				return nil, fmt.Errorf("pluginhost: %s: %w (stderr: %s)", binary, err, stderr.String())
			}

			var resp execResponse
			if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
				return nil, fmt.Errorf("pluginhost: decode response from %s: %w", binary, err)
			}
			if resp.Error != "" {
				return nil, fmt.Errorf("pluginhost: %s: %s", binary, resp.Error)
			}
			return resp.Result, nil
		}, nil
	}
}
