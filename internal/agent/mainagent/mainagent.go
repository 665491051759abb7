// Package mainagent implements the Main Agent variant: the perpetual-loop
// agent holding the prompt queue, todo store, questions store, journal, and
// knowledge-base stats, and splicing them into its system prompt each step
// (spec.md §4.7).
package mainagent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/internal/tools"
)

// ToolUsageGuidance is one line of the per-tool usage-guidance block
// spliced into the system prompt (spec.md §4.7).
type ToolUsageGuidance struct {
	ToolName string
	Guidance string
}

// LoopCountStore persists the Main Agent's durable loop_count, independent
// of the in-memory Core.turn_count (spec.md §4.7's post_step obligation).
// The concrete encoding lives in internal/state; this interface is the
// only thing PostStep needs.
type LoopCountStore interface {
	IncrementLoopCount() (int, error)
}

// Agent is the Main Agent: a perpetual-loop variant of agent.Core carrying
// the goal text, todo store, journal, question store, prompt queue, and
// knowledge base that the control surface (§6) mutates between steps.
type Agent struct {
	Core *agent.Core

	Todos      *TodoStore
	Journal    *Journal
	Questions  *QuestionStore
	Queue      *PromptQueue
	Knowledge  *KnowledgeBase
	LoopCounts LoopCountStore
	ToolUsage  []ToolUsageGuidance

	mu               sync.Mutex
	goal             string
	loopCount        int
	lastStagnationAt int
	reminderFired    bool
}

// New constructs a Main Agent bound to registry (already populated with
// built-in and plugin-registered tools) and the given client/config. The
// Main Agent's two protected lifecycle tools are registered by agent.New,
// same as every other variant.
func New(registry *tools.Registry, cfg agent.Config, client llm.Client, loopCounts LoopCountStore) *Agent {
	a := &Agent{
		Todos:      NewTodoStore(),
		Journal:    NewJournal(),
		Questions:  NewQuestionStore(),
		Queue:      NewPromptQueue(),
		Knowledge:  NewKnowledgeBase(),
		LoopCounts: loopCounts,
	}
	a.Core = agent.New("main_agent", cfg, client, registry, a)
	return a
}

// SetGoal updates the current goal text spliced into the system prompt on
// the next step (spec.md §4.7's "rebuild system prompt" pre_step action).
func (a *Agent) SetGoal(goal string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.goal = goal
}

func (a *Agent) currentGoal() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.goal == "" {
		return "No goal has been set yet."
	}
	return a.goal
}

// BuildSystemPrompt implements agent.Hooks: splices the current goal text,
// a rendered todo summary, a knowledge-base statistics line, a per-tool
// usage-guidance block, and the live context usage percentage (spec.md
// §4.7).
func (a *Agent) BuildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are the main autonomous agent. Your current goal is:\n\n")
	b.WriteString(a.currentGoal())
	b.WriteString("\n\n")
	b.WriteString("Todo status: ")
	b.WriteString(a.Todos.Summary())
	b.WriteString("\n")
	b.WriteString(a.Knowledge.StatsLine())
	b.WriteString("\n\n")

	if len(a.ToolUsage) > 0 {
		b.WriteString("Tool usage guidance:\n")
		for _, g := range a.ToolUsage {
			b.WriteString(fmt.Sprintf("- %s: %s\n", g.ToolName, g.Guidance))
		}
		b.WriteString("\n")
	}

	if a.Core != nil {
		status := a.Core.Context().GetStatus()
		pct := 0.0
		if status.MaxTokens > 0 {
			pct = 100 * float64(status.EstimatedTokens) / float64(status.MaxTokens)
		}
		b.WriteString(fmt.Sprintf("Context usage: %.1f%% (%d/%d estimated tokens, threshold %.0f%%).\n",
			pct, status.EstimatedTokens, status.MaxTokens, status.Threshold*100))
	}

	return b.String()
}

// InitialPrompt implements agent.Hooks. The Main Agent has no fixed seed
// prompt — it is driven entirely by its goal and the injected notification
// channel.
func (a *Agent) InitialPrompt() (string, bool) { return "", false }

// PreStep implements agent.PreStepper: three ordered actions every step
// (spec.md §4.7):
//  1. rebuild the system prompt so fresh todos/goal take effect next call;
//  2. drain the prompt queue in priority order into the context as system
//     notifications;
//  3. poll the questions store for answered-since-last-check items and
//     inject those as a single notification.
//
// Every 10 steps, if the agent appears to be stagnating, a one-shot
// "improvement reminder" notification is added.
func (a *Agent) PreStep(ctx context.Context, core *agent.Core) error {
	core.Context().SetSystemPrompt(a.BuildSystemPrompt())

	for _, p := range a.Queue.DrainAll() {
		core.Context().AppendSystemNotification(p.Prompt)
	}

	if answered := a.Questions.PollAnsweredSinceLastCheck(); len(answered) > 0 {
		var b strings.Builder
		b.WriteString("The following questions have been answered:\n")
		for _, q := range answered {
			b.WriteString(fmt.Sprintf("- %q -> %q\n", q.Text, q.Answer))
		}
		core.Context().AppendSystemNotification(b.String())
	}

	turn := core.GetStatus().TurnCount
	if turn > 0 && turn%10 == 0 && a.shouldRemindImprovement(turn) {
		core.Context().AppendSystemNotification(
			"[IMPROVEMENT REMINDER] Recent progress looks stagnant: few or no journal " +
				"entries, no failed attempts logged despite many steps, or todos are all " +
				"done with unexplored ideas sitting idle. Consider writing a journal entry, " +
				"adding a new todo, or spawning a tournament to explore an idea.",
		)
	}

	return nil
}

// shouldRemindImprovement implements spec.md §4.7's stagnation heuristic: no
// recent journal entries; no failed attempts logged despite many steps;
// todos all done; ideas exist but no tournaments spawned. The reminder
// fires at most once per 10-step window.
func (a *Agent) shouldRemindImprovement(turn int) bool {
	a.mu.Lock()
	if a.lastStagnationAt == turn {
		a.mu.Unlock()
		return false
	}
	a.lastStagnationAt = turn
	a.mu.Unlock()

	stats := a.Journal.Stats()
	noFailedAttempts := stats[EntryFailedAttempt] == 0
	fewRecentEntries := a.Journal.SinceCount(time.Now().Add(-10*time.Minute)) == 0
	todosAllDone := a.Todos.AllDone()
	ideasIdle := stats[EntryIdea] > 0

	return fewRecentEntries && noFailedAttempts && (todosAllDone || ideasIdle)
}

// PostStep implements agent.PostStepper: increments and persists the
// durable loop_count, independent of the in-memory turn_count (spec.md
// §4.7).
func (a *Agent) PostStep(ctx context.Context, core *agent.Core, info agent.StepInfo) error {
	if a.LoopCounts == nil {
		return nil
	}
	n, err := a.LoopCounts.IncrementLoopCount()
	if err != nil {
		return fmt.Errorf("mainagent: persist loop count: %w", err)
	}
	a.mu.Lock()
	a.loopCount = n
	a.mu.Unlock()
	return nil
}

// LoopCount returns the most recently persisted loop_count.
func (a *Agent) LoopCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loopCount
}

// OnCompleteTask implements agent.NonTerminatingCompleter: the Main
// Agent's complete_task invocation does not terminate its outer loop; it
// only clears the internal flag and continues (spec.md §4.7). Only
// external Stop() or process shutdown ends the Main Agent. The call is
// still recorded to the journal as a freeform entry so the pause point is
// visible to later stagnation checks.
func (a *Agent) OnCompleteTask(reason string, output map[string]any) bool {
	summary, _ := output["summary"].(string)
	a.Journal.Write(EntryFreeform, "pause point", fmt.Sprintf("complete_task(%s): %s", reason, summary), nil)
	return true
}

// Run drives the Main Agent's perpetual loop until external Stop() or
// process shutdown (spec.md §4.7). Unlike the sub-agent and tournament-agent
// variants, a "success" completion never ends this loop — only
// OnCompleteTask's suppression makes that true; Run delegates straight to
// agent.Core.Run, which now only returns on stop/timeout/max_turns/failure.
func (a *Agent) Run(ctx context.Context) *agent.State {
	return a.Core.Run(ctx, "")
}
