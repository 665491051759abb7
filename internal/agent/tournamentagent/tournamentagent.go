// Package tournamentagent implements the Tournament Agent variant: a
// container-scoped agent that works a synthesis round, optionally building
// on the prior round's revealed files, and terminates by calling
// complete_task after revealing whatever artifacts are worth carrying
// forward (spec.md §4.6).
//
// Grounded on _examples/original_source/agent/tournament.py's
// TournamentAgent system-prompt construction (topic + per-input-file
// summary + fenced verbatim contents) and on
// github.com/haasonsaas/nexus/internal/agent/loop.go's Hooks-style
// BuildSystemPrompt pattern, adapted onto agent.Hooks.
package tournamentagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/container"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/internal/tools"
)

// Params configures one Tournament Agent instance (spec.md §4.6 step 2).
type Params struct {
	Topic          string
	InputFiles     []container.RevealedFile
	IsInitialRound bool
	RoundNumber    int
}

// Agent is one Tournament Agent: its Core, its Container, and the
// parameters it was constructed with.
type Agent struct {
	Core      *agent.Core
	Container *container.Container
	params    Params
}

// New constructs a Tournament Agent bound to a fresh container rooted at
// containerRoot (the caller supplies `base/<tournament_id>/round_<k+1>/<agent_id>/`
// per spec.md §4.6 step 1).
func New(containerRoot, agentID string, params Params, cfg agent.Config, client llm.Client) (*Agent, error) {
	c, err := container.New(containerRoot, agentID)
	if err != nil {
		return nil, fmt.Errorf("tournamentagent: %w", err)
	}

	a := &Agent{Container: c, params: params}

	registry := tools.NewRegistry()
	for _, t := range c.Tools() {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("tournamentagent: register container tool: %w", err)
		}
	}

	a.Core = agent.New("tournament_agent", cfg, client, registry, a)
	return a, nil
}

// Run seeds the container with the round's input files (if any) and drives
// the agent to completion.
func (a *Agent) Run(ctx context.Context) *agent.State {
	if len(a.params.InputFiles) > 0 {
		if err := a.Container.SeedInputFiles(a.params.InputFiles); err != nil {
			return &agent.State{
				AgentID: a.Core.AgentID, AgentType: a.Core.AgentType,
				Status: agent.StatusFailed, Error: fmt.Sprintf("seed input files: %v", err),
			}
		}
	}
	return a.Core.Run(ctx, "")
}

// Revealed exposes the files this agent revealed, for the scheduler's
// round-collection step (spec.md §4.6 step 5).
func (a *Agent) Revealed() []container.RevealedFile { return a.Container.Revealed() }

// BuildSystemPrompt implements agent.Hooks. For round 0 it is a bare topic
// statement; for round k>0 it is the full synthesis prompt spec.md §4.6
// describes: topic, per-file summary lines, verbatim fenced contents, the
// standard instruction to reveal and complete_task.
func (a *Agent) BuildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a tournament agent working on the following topic:\n\n")
	b.WriteString(a.params.Topic)
	b.WriteString("\n\n")

	if a.params.IsInitialRound || len(a.params.InputFiles) == 0 {
		b.WriteString("This is the first round: there is no prior work to build on. ")
		b.WriteString("Produce your best independent attempt.\n\n")
	} else {
		b.WriteString("The following files were revealed by agents in the previous round:\n\n")
		for _, f := range a.params.InputFiles {
			b.WriteString(fmt.Sprintf("- %q from %s: %s\n", f.Filename, shortID(f.AgentID), f.Description))
		}
		b.WriteString("\nFull contents:\n\n")
		for _, f := range a.params.InputFiles {
			b.WriteString(fmt.Sprintf("%q (from %s):\n```%s\n%s\n```\n\n", f.Filename, shortID(f.AgentID), f.FileType, f.Content))
		}
	}

	b.WriteString("Use write_file and read_file to build your work in the workspace. ")
	b.WriteString("Call reveal(filename, description) for every artifact worth carrying forward to the next round. ")
	b.WriteString("Call complete_task(reason, summary) when you are done.\n")
	return b.String()
}

// InitialPrompt implements agent.Hooks; tournament agents are fully seeded
// via the system prompt, so no separate user message is required.
func (a *Agent) InitialPrompt() (string, bool) { return "", false }

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
