// Package agent implements the shared agent lifecycle: the step/loop state
// machine, the two protected lifecycle tools, and the five-kind error
// taxonomy every variant (main agent, sub-agent, tournament agent) builds
// on.
//
// Grounded on github.com/haasonsaas/nexus/internal/agent/loop.go's phase
// state machine (Init -> Stream -> ExecuteTools -> Continue -> Complete),
// adapted from its streaming multi-iteration loop into the single-LLM-call
// step defined by spec.md §4.3, and on its errors.go sentinel/typed-error
// idiom, adapted into the five error kinds spec.md §7 requires.
package agent

import "fmt"

// Sentinel errors for lifecycle operations.
var (
	ErrAlreadyRunning = fmt.Errorf("agent: already running")
	ErrNotRunning     = fmt.Errorf("agent: not running")
	ErrNotPaused      = fmt.Errorf("agent: not paused")
	ErrNoClient       = fmt.Errorf("agent: no LLM client configured")
)

// ValidationError reports bad input: an unknown tool, an out-of-range
// threshold, a missing required field. Reported to the caller; causes no
// state change. See spec.md §7.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// PermissionError reports a sandbox violation. A tool dispatch that fails
// this way returns {success: false, error} and the agent continues; it is
// never fatal.
type PermissionError struct {
	Path    string
	Message string
}

func (e *PermissionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("permission error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("permission error: %s", e.Message)
}

// ProviderError reports an LLM provider failure. It bubbles to the step,
// which is marked unsuccessful, but the agent itself does not fail —
// transient network faults must not kill a long-running agent.
type ProviderError struct {
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %v", e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// TimeoutError reports a wall-clock expiry. For a whole agent this yields
// status=completed, completion_reason=timeout. For a tool (e.g. run_code)
// it is returned as a tool error and the agent continues.
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s", e.Operation)
}

// InvariantError reports an internal bug — e.g. a tool-call id without a
// matching result message. This is the only error kind that fails the
// whole agent (status becomes failed).
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Message)
}

// IsFatal reports whether err should drive an agent to the failed state.
// Only InvariantError is fatal; every other kind leaves the agent able to
// attempt its next step (spec.md §7).
func IsFatal(err error) bool {
	_, ok := err.(*InvariantError)
	return ok
}
