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

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/curiosity/internal/agent/contextmgr"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/internal/observability"
	"github.com/haasonsaas/curiosity/internal/tools"
	"github.com/haasonsaas/curiosity/pkg/models"
)

// Status is a node in the agent state machine (spec.md §4.3).
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning      Status = "running"
	StatusPaused       Status = "paused"
	StatusCompleted    Status = "completed"
	StatusStopped      Status = "stopped"
	StatusFailed       Status = "failed"
)

// State is a snapshot of one agent's lifecycle (spec.md §3 AgentState).
type State struct {
	AgentID          string
	AgentType        string
	Status           Status
	TurnCount        int
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CompletionReason string
	CompletionOutput map[string]any
	Error            string
}

// Config mirrors spec.md §3's AgentConfig. MaxTurns == 0 and Timeout == 0
// both mean "unbounded" — the agent controls its own exit via
// complete_task, per spec.md's "max_turns=∞ and timeout=∞" convention.
type Config struct {
	Model                  string
	SummarizerModel        string
	MaxTokens              int
	CompactionThreshold    float64
	Temperature            float64
	MaxResponseTokens      int
	MaxTurns               int
	Timeout                time.Duration
	PreserveRecentMessages int
}

// LogEntry is one recorded step/tool event, per the "enhanced logger with
// descriptions" supplemented feature (SPEC_FULL.md §6): every tool
// dispatch is logged with its free-text tool_description alongside the
// structured name/args/result, not just a bare level+message pair.
type LogEntry struct {
	Time        time.Time
	Level       string
	Message     string
	Description string
	ToolName    string
	ToolArgs    map[string]any
	ToolResult  map[string]any
}

// StepInfo summarizes one completed step, passed to PostStep hooks.
type StepInfo struct {
	TurnCount    int
	HadToolCalls bool
	Completed    bool
	Err          error
}

// Hooks is implemented by every agent variant (main agent, sub-agent,
// tournament agent). BuildSystemPrompt and InitialPrompt are the two hooks
// spec.md §4.3 requires every subclass to implement; the optional
// Setup/Teardown/PreStep/PostStep hooks are detected via the narrower
// Setupper/Teardowner/PreStepper/PostStepper interfaces below so a variant
// that doesn't need one need not implement it.
type Hooks interface {
	// BuildSystemPrompt is called at Core construction and, for variants
	// that also implement PreStepper, may be called again each step so
	// fresh state (todos, goal, context usage) takes effect on the next
	// LLM call.
	BuildSystemPrompt() string
	// InitialPrompt returns the prompt to seed Run with, and whether one
	// is supplied at all (a nil/false pair means the agent proceeds with
	// no seed user message).
	InitialPrompt() (string, bool)
}

// Setupper is implemented by variants needing one-time setup before the
// first step.
type Setupper interface {
	Setup(ctx context.Context) error
}

// Teardowner is implemented by variants needing cleanup after the loop
// ends, regardless of how it ended.
type Teardowner interface {
	Teardown(ctx context.Context) error
}

// PreStepper is implemented by variants needing per-step preparation (the
// main agent rebuilds its system prompt, drains the prompt queue, and
// injects answered questions here — spec.md §4.7).
type PreStepper interface {
	PreStep(ctx context.Context, core *Core) error
}

// PostStepper is implemented by variants needing per-step bookkeeping
// after a step completes (the main agent persists loop_count here).
type PostStepper interface {
	PostStep(ctx context.Context, core *Core, info StepInfo) error
}

// NonTerminatingCompleter is implemented by variants whose complete_task
// calls should not end Run's loop — the Main Agent (spec.md §4.7): "The
// Main Agent's complete_task invocation does not terminate its outer
// loop; it only clears the internal flag and continues." OnCompleteTask
// is invoked with the reason/output the model supplied; returning true
// clears the completion flag instead of letting it end the loop, giving
// the model a way to signal a pause point without stopping the process.
type NonTerminatingCompleter interface {
	OnCompleteTask(reason string, output map[string]any) (suppress bool)
}

// Core implements the shared step/loop state machine every agent variant
// is built on (spec.md §4.3). It owns exactly one ContextState and one
// tool Registry; it is never shared between agents.
type Core struct {
	AgentID   string
	AgentType string

	cfg     Config
	client  llm.Client
	context *contextmgr.Manager
	tools   *tools.Registry
	dispatch *tools.Dispatcher
	hooks   Hooks
	logger  *observability.Logger

	mu          sync.Mutex
	state       State
	paused      bool
	stopped     bool
	completed   bool
	completionReason string
	completionOutput map[string]any

	doneCh chan struct{}
	logs   []LogEntry
}

// New constructs a Core for one agent. The caller supplies its own
// *tools.Registry (already populated with variant-specific tools); New
// additionally registers the two protected lifecycle tools every agent
// carries (spec.md §4.3): complete_task and manage_context.
func New(agentType string, cfg Config, client llm.Client, registry *tools.Registry, hooks Hooks) *Core {
	if cfg.PreserveRecentMessages < 1 {
		cfg.PreserveRecentMessages = 1
	}
	c := &Core{
		AgentID:   uuid.NewString(),
		AgentType: agentType,
		cfg:       cfg,
		client:    client,
		context:   contextmgr.New(cfg.MaxTokens, cfg.CompactionThreshold, cfg.PreserveRecentMessages),
		tools:     registry,
		dispatch:  tools.NewDispatcher(registry),
		hooks:     hooks,
		doneCh:    make(chan struct{}),
	}
	c.state = State{AgentID: c.AgentID, AgentType: agentType, Status: StatusInitialized}
	c.context.SetSystemPrompt(hooks.BuildSystemPrompt())
	registerLifecycleTools(c)
	return c
}

// SetLogger attaches the structured logger every I/O/dispatch component
// logs lifecycle transitions and tool dispatches through (SPEC_FULL.md §2).
// Logging through a nil logger is a no-op, so variants constructed without
// one (e.g. in tests) are unaffected.
func (c *Core) SetLogger(l *observability.Logger) { c.logger = l }

// Context exposes the agent's context manager for variant hooks that need
// to append notifications (prompt queue injection, answered questions).
func (c *Core) Context() *contextmgr.Manager { return c.context }

// Tools exposes the agent's tool registry.
func (c *Core) Tools() *tools.Registry { return c.tools }

// RegisterTool registers an additional tool, subject to the registry's
// protected-tool guard.
func (c *Core) RegisterTool(t tools.Tool) error { return c.tools.Register(t) }

// UnregisterTool removes a tool by name; protected tools cannot be removed.
func (c *Core) UnregisterTool(name string) error { return c.tools.Unregister(name) }

// GetStatus returns a snapshot of the agent's current state.
func (c *Core) GetStatus() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetLogs returns a copy of the agent's recorded log entries.
func (c *Core) GetLogs() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

func (c *Core) log(level, message, description string) {
	c.mu.Lock()
	c.logs = append(c.logs, LogEntry{Time: time.Now(), Level: level, Message: message, Description: description})
	c.mu.Unlock()
	if c.logger == nil {
		return
	}
	ctx := context.Background()
	switch level {
	case "debug":
		c.logger.Debug(ctx, message, "agent_id", c.AgentID, "agent_type", c.AgentType, "description", description)
	case "warn":
		c.logger.Warn(ctx, message, "agent_id", c.AgentID, "agent_type", c.AgentType, "description", description)
	case "error":
		c.logger.Error(ctx, message, "agent_id", c.AgentID, "agent_type", c.AgentType, "description", description)
	default:
		c.logger.Info(ctx, message, "agent_id", c.AgentID, "agent_type", c.AgentType, "description", description)
	}
}

func (c *Core) logTool(name string, args, result map[string]any, description string) {
	c.mu.Lock()
	c.logs = append(c.logs, LogEntry{
		Time: time.Now(), Level: "debug", Message: "tool dispatched",
		Description: description, ToolName: name, ToolArgs: args, ToolResult: result,
	})
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Debug(context.Background(), "tool dispatched",
			"agent_id", c.AgentID, "agent_type", c.AgentType,
			"tool", name, "description", description)
	}
}

// Pause transitions running -> paused. It is a no-op error if the agent is
// not running.
func (c *Core) Pause() error {
	c.mu.Lock()
	if c.state.Status != StatusRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.paused = true
	c.state.Status = StatusPaused
	c.mu.Unlock()
	c.log("info", "agent paused", "")
	return nil
}

// Resume transitions paused -> running. Resume is observed by Run within a
// bounded small delay (spec.md §4.3), not necessarily instantaneously.
func (c *Core) Resume() error {
	c.mu.Lock()
	if c.state.Status != StatusPaused {
		c.mu.Unlock()
		return ErrNotPaused
	}
	c.paused = false
	c.state.Status = StatusRunning
	c.mu.Unlock()
	c.log("info", "agent resumed", "")
	return nil
}

// Stop requests external termination. The agent transitions to stopped
// once its in-flight step (if any) completes — a step is never torn down
// mid-flight (spec.md §5).
func (c *Core) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.log("info", "agent stop requested", "")
}

// WaitForCompletion blocks until the agent reaches a terminal status or the
// timeout elapses, returning whether it reached a terminal status in time.
func (c *Core) WaitForCompletion(timeout time.Duration) bool {
	if timeout <= 0 {
		<-c.doneCh
		return true
	}
	select {
	case <-c.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run drives the step loop until completion, max_turns, timeout, or an
// external Stop (spec.md §4.3's loop semantics). It returns the final
// state. Run must be called at most once per Core.
func (c *Core) Run(ctx context.Context, initialPrompt string) *State {
	c.mu.Lock()
	now := time.Now()
	c.state.Status = StatusRunning
	c.state.StartedAt = &now
	c.mu.Unlock()
	c.log("info", "agent run started", "")

	if setup, ok := c.hooks.(Setupper); ok {
		if err := setup.Setup(ctx); err != nil {
			return c.fail(fmt.Errorf("setup: %w", err))
		}
	}

	if initialPrompt != "" {
		c.context.AppendUser(initialPrompt)
	} else if p, ok := c.hooks.InitialPrompt(); ok && p != "" {
		c.context.AppendUser(p)
	}

	var deadline time.Time
	if c.cfg.Timeout > 0 {
		deadline = time.Now().Add(c.cfg.Timeout)
	}

	for {
		if c.isPaused() {
			time.Sleep(25 * time.Millisecond)
			if c.isStopped() {
				return c.finish(StatusStopped, "stopped", nil)
			}
			continue
		}
		if c.isStopped() {
			return c.finish(StatusStopped, "stopped", nil)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return c.finish(StatusCompleted, "timeout", nil)
		}

		info := c.step(ctx)

		if tdw, ok := c.hooks.(PostStepper); ok {
			if err := tdw.PostStep(ctx, c, info); err != nil {
				c.log("error", "post-step hook failed", err.Error())
			}
		}

		if info.Completed {
			reason, output := c.completionDetails()
			return c.finish(StatusCompleted, reason, output)
		}
		if info.Err != nil && IsFatal(info.Err) {
			return c.fail(info.Err)
		}
		if c.cfg.MaxTurns > 0 && c.state.TurnCount >= c.cfg.MaxTurns {
			return c.finish(StatusCompleted, "max_turns", nil)
		}
	}
}

func (c *Core) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Core) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Core) completionDetails() (string, map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reason := c.completionReason
	if reason == "" {
		reason = "success"
	}
	return reason, c.completionOutput
}

func (c *Core) finish(status Status, reason string, output map[string]any) *State {
	if tdw, ok := c.hooks.(Teardowner); ok {
		_ = tdw.Teardown(context.Background())
	}
	c.mu.Lock()
	now := time.Now()
	c.state.Status = status
	c.state.CompletedAt = &now
	c.state.CompletionReason = reason
	c.state.CompletionOutput = output
	c.mu.Unlock()
	c.log("info", fmt.Sprintf("agent run finished: %s (%s)", status, reason), "")
	close(c.doneCh)
	return c.GetStatusPtr()
}

func (c *Core) fail(err error) *State {
	if tdw, ok := c.hooks.(Teardowner); ok {
		_ = tdw.Teardown(context.Background())
	}
	c.mu.Lock()
	now := time.Now()
	c.state.Status = StatusFailed
	c.state.CompletedAt = &now
	c.state.Error = err.Error()
	c.mu.Unlock()
	c.log("error", "agent run failed", err.Error())
	close(c.doneCh)
	return c.GetStatusPtr()
}

// GetStatusPtr returns a pointer snapshot of the current state.
func (c *Core) GetStatusPtr() *State {
	s := c.GetStatus()
	return &s
}

// step performs one atomic step: pre_step, conditional compaction, one LLM
// call, and its induced tool dispatches, per spec.md §4.3's six numbered
// phases.
func (c *Core) step(ctx context.Context) StepInfo {
	if pre, ok := c.hooks.(PreStepper); ok {
		if err := pre.PreStep(ctx, c); err != nil {
			c.log("error", "pre-step hook failed", err.Error())
		}
	}

	if c.context.NeedsCompaction() {
		if _, err := c.context.Compact(ctx, c.client, c.cfg.SummarizerModel); err != nil {
			// Compaction failure leaves the log unmodified; the agent
			// proceeds unsummarized rather than failing (spec.md §4.2).
			c.log("warn", "compaction failed, continuing unsummarized", err.Error())
		}
	}

	resp, err := c.client.Chat(ctx, llm.ChatRequest{
		Model:       c.cfg.Model,
		Messages:    c.context.GetMessagesForAPI(),
		Tools:       c.tools.AsLLMTools(),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxResponseTokens,
	})
	if err != nil {
		// ProviderError never fails the agent; the next step may succeed
		// (spec.md §7).
		c.incrementTurn()
		c.log("warn", "llm call failed", err.Error())
		return StepInfo{TurnCount: c.state.TurnCount, Err: &ProviderError{Cause: err}}
	}

	completedThisStep := false

	if len(resp.ToolCalls) > 0 {
		for _, call := range resp.ToolCalls {
			c.context.AppendToolCall(call)
			result := c.dispatch.Dispatch(ctx, call)
			c.context.AppendToolResult(result)
			c.logTool(call.Name, call.ArgumentsWithoutDescription(), result.Result, result.ToolDescription)
			if call.Name == completeTaskToolName && result.Success {
				completedThisStep = true
			}
		}
	} else if resp.Content != "" {
		c.context.AppendAssistant(resp.Content, nil)
	}

	c.incrementTurn()

	if completedThisStep {
		suppress := false
		if np, ok := c.hooks.(NonTerminatingCompleter); ok {
			c.mu.Lock()
			reason, output := c.completionReason, c.completionOutput
			c.mu.Unlock()
			suppress = np.OnCompleteTask(reason, output)
		}
		if suppress {
			c.mu.Lock()
			c.completionReason = ""
			c.completionOutput = nil
			c.mu.Unlock()
		} else {
			c.mu.Lock()
			c.completed = true
			c.mu.Unlock()
		}
	}

	return StepInfo{TurnCount: c.state.TurnCount, HadToolCalls: len(resp.ToolCalls) > 0, Completed: c.isCompleted()}
}

func (c *Core) incrementTurn() {
	c.mu.Lock()
	c.state.TurnCount++
	c.mu.Unlock()
}

func (c *Core) isCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}
