// Package subagent implements the Sub-Agent variant: a single
// container-scoped agent invoked synchronously via call_subagent, given a
// goal instead of a tournament topic, and terminating once it calls
// complete_task or exhausts its turn/timeout budget (spec.md §4.6's
// "single-agent invocation" special case).
//
// Grounded on github.com/haasonsaas/nexus/internal/agent/loop.go's
// single-purpose worker pattern and _examples/original_source/agent's
// call_subagent handler, adapted onto agent.Hooks and
// internal/agent/container.Container.
package subagent

import (
	"context"
	"fmt"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/container"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/internal/tools"
)

// Params configures one Sub-Agent invocation (spec.md §4.6's "tools as
// requested (base, + web search, + code execution)").
type Params struct {
	Goal          string
	IncludeSearch bool
	IncludeExec   bool
}

// Result is call_subagent's return shape: the agent's final workspace
// contents plus its logs, per spec.md §4.6.
type Result struct {
	State          *agent.State
	WorkspaceFiles map[string]string
	Logs           []agent.LogEntry
}

// Agent is one Sub-Agent instance.
type Agent struct {
	Core      *agent.Core
	Container *container.Container
	params    Params
}

// New constructs a Sub-Agent bound to a fresh container rooted at
// containerRoot. extraTools (e.g. web_search, run_code) are registered
// alongside the container's write_file/read_file/reveal trio, subject to
// Params selecting which are offered.
func New(containerRoot, agentID string, params Params, cfg agent.Config, client llm.Client, extraTools ...tools.Tool) (*Agent, error) {
	c, err := container.New(containerRoot, agentID)
	if err != nil {
		return nil, fmt.Errorf("subagent: %w", err)
	}

	a := &Agent{Container: c, params: params}

	registry := tools.NewRegistry()
	for _, t := range c.Tools() {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("subagent: register container tool: %w", err)
		}
	}
	for _, t := range extraTools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("subagent: register extra tool %q: %w", t.Name, err)
		}
	}

	a.Core = agent.New("sub_agent", cfg, client, registry, a)
	return a, nil
}

// Run drives the sub-agent to completion and assembles the call_subagent
// result shape.
func (a *Agent) Run(ctx context.Context) Result {
	state := a.Core.Run(ctx, "")
	files, err := a.Container.WorkspaceFiles()
	if err != nil {
		files = map[string]string{}
	}
	return Result{State: state, WorkspaceFiles: files, Logs: a.Core.GetLogs()}
}

// BuildSystemPrompt implements agent.Hooks: a goal-driven prompt, not a
// tournament topic, distinguishing Sub-Agent termination policy (goal
// satisfied, not a synthesis round) from Tournament Agent's.
func (a *Agent) BuildSystemPrompt() string {
	prompt := "You are a sub-agent. Your goal is:\n\n" + a.params.Goal + "\n\n"
	prompt += "Use write_file and read_file to do your work. "
	if a.params.IncludeSearch {
		prompt += "Use web_search to research as needed. "
	}
	if a.params.IncludeExec {
		prompt += "Use run_code to execute and verify code as needed. "
	}
	prompt += "Call reveal(filename, description) for any artifact the caller should receive. "
	prompt += "Call complete_task(reason, summary) once the goal is satisfied."
	return prompt
}

// InitialPrompt implements agent.Hooks; the goal is fully expressed in the
// system prompt.
func (a *Agent) InitialPrompt() (string, bool) { return "", false }
