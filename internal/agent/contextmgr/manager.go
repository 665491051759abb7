// Package contextmgr owns an agent's message log: appends, token
// accounting, and the LLM-driven compaction protocol.
//
// Grounded on github.com/haasonsaas/nexus/internal/agent/compaction.go's
// CompactionManager/CompactionConfig shape (threshold-driven state machine),
// adapted from its confirm/reject/timeout flow into spec.md §4.2's simpler
// synchronous compact(), and on
// _examples/original_source/agent/context_manager.py for the exact
// head/middle/tail split semantics the distilled spec summarizes.
package contextmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/pkg/models"
)

const (
	notificationPrefix = "[SYSTEM NOTIFICATION] "
	summaryPrefix      = "[CONTEXT SUMMARY] "

	minThreshold = 0.5
	maxThreshold = 0.95

	defaultSummarizerMaxTokens = 1024
)

// summarizerPrompt is the fixed prompt used to compact a span of messages.
// It instructs preservation of the properties spec.md §4.2 names: current
// goal, decisions, pending tasks, facts, recent progress, failed attempts.
const summarizerPrompt = `Summarize the following conversation transcript into a compact briefing for the same agent to resume from. Preserve: the current goal, decisions already made, pending tasks, important facts learned, recent progress, and any failed attempts (so they are not repeated). Be concise but do not omit anything the agent still needs to act correctly.

Transcript:
%s`

// Status is a snapshot of the context manager's accounting.
type Status struct {
	MessageCount    int
	EstimatedTokens int
	MaxTokens       int
	Threshold       float64
	NeedsCompaction bool
	CompactionCount int
}

// Manager owns one agent's ContextState (spec.md §3). It is never shared
// between agents.
type Manager struct {
	systemPrompt   string
	messages       []models.Message
	maxTokens      int
	threshold      float64
	preserveRecent int
	compactionCount int
}

// New creates a Manager with the given token budget, compaction threshold,
// and preserve-recent window.
func New(maxTokens int, threshold float64, preserveRecent int) *Manager {
	if maxTokens <= 0 {
		maxTokens = 100000
	}
	if threshold < minThreshold || threshold > maxThreshold {
		threshold = 0.8
	}
	if preserveRecent < 1 {
		preserveRecent = 1
	}
	return &Manager{
		maxTokens:      maxTokens,
		threshold:      threshold,
		preserveRecent: preserveRecent,
	}
}

// SetSystemPrompt establishes the invariant from spec.md §3: if the log is
// nonempty, messages[0] is a system message whose content equals the
// system prompt. Calling this after messages already exist rewrites or
// inserts that leading message.
func (m *Manager) SetSystemPrompt(s string) {
	m.systemPrompt = s
	sysMsg := models.Message{Role: models.RoleSystem, Content: s, CreatedAt: now()}
	if len(m.messages) > 0 && m.messages[0].Role == models.RoleSystem {
		m.messages[0] = sysMsg
		return
	}
	m.messages = append([]models.Message{sysMsg}, m.messages...)
}

// AppendUser appends a user-role message.
func (m *Manager) AppendUser(content string) {
	m.messages = append(m.messages, models.Message{Role: models.RoleUser, Content: content, CreatedAt: now()})
}

// AppendAssistant appends an assistant-role message with optional tool
// calls.
func (m *Manager) AppendAssistant(content string, toolCalls []models.ToolCall) {
	m.messages = append(m.messages, models.Message{
		Role:      models.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
		CreatedAt: now(),
	})
}

// AppendToolCall records an assistant message consisting solely of a single
// tool call (used when the step loop appends tool calls one at a time).
func (m *Manager) AppendToolCall(call models.ToolCall) {
	m.messages = append(m.messages, models.Message{
		Role:      models.RoleAssistant,
		ToolCalls: []models.ToolCall{call},
		CreatedAt: now(),
	})
}

// AppendToolResult appends the tool-role result message for a prior tool
// call.
func (m *Manager) AppendToolResult(result models.ToolResult) {
	content := result.Error
	if result.Success {
		content = formatResult(result)
	}
	m.messages = append(m.messages, models.Message{
		Role:       models.RoleTool,
		Content:    content,
		ToolCallID: result.ToolCallID,
		CreatedAt:  now(),
	})
}

// AppendSystemNotification injects an out-of-band event (an answered
// question, a queued prompt, a stagnation nudge) as a user-role message
// prefixed with a literal marker, per the Open Question resolution recorded
// in DESIGN.md: rendering as a genuine system-role message is
// provider-dependent, so this channel always uses the user role.
func (m *Manager) AppendSystemNotification(content string) {
	m.messages = append(m.messages, models.Message{
		Role:      models.RoleUser,
		Content:   notificationPrefix + content,
		CreatedAt: now(),
	})
}

// GetMessagesForAPI returns a copy of the message log suitable for passing
// to the LLM client.
func (m *Manager) GetMessagesForAPI() []models.Message {
	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// SetThreshold accepts the new threshold iff 0.5 <= x <= 0.95; otherwise
// the threshold is left unchanged and an error is returned (spec.md §8).
func (m *Manager) SetThreshold(x float64) error {
	if x < minThreshold || x > maxThreshold {
		return fmt.Errorf("threshold %.3f out of range [%.2f, %.2f]", x, minThreshold, maxThreshold)
	}
	m.threshold = x
	return nil
}

// EstimatedTokens returns the current log's token estimate.
func (m *Manager) EstimatedTokens() int {
	return llm.EstimateTokens(m.messages)
}

// NeedsCompaction reports whether estimated_tokens / max_tokens > threshold.
func (m *Manager) NeedsCompaction() bool {
	if m.maxTokens <= 0 {
		return false
	}
	return float64(m.EstimatedTokens())/float64(m.maxTokens) > m.threshold
}

// GetStatus returns a snapshot of the manager's accounting.
func (m *Manager) GetStatus() Status {
	return Status{
		MessageCount:    len(m.messages),
		EstimatedTokens: m.EstimatedTokens(),
		MaxTokens:       m.maxTokens,
		Threshold:       m.threshold,
		NeedsCompaction: m.NeedsCompaction(),
		CompactionCount: m.compactionCount,
	}
}

// Export serializes the current message log for the persisted-state
// adapter (spec.md §6): a restart restores exactly this log via Import,
// preserving the §3 ContextState invariants (system message at index 0,
// compaction history already folded into the log it produced).
func (m *Manager) Export() ([]byte, error) {
	return json.Marshal(m.messages)
}

// Import replaces the message log with a previously Exported snapshot. The
// system prompt recorded at construction/SetSystemPrompt time is left as
// the Manager's own bookkeeping field; callers restoring into a fresh
// Manager should call SetSystemPrompt first so future compactions still
// know what to re-anchor index 0 to if the snapshot predates it.
func (m *Manager) Import(payload []byte) error {
	var messages []models.Message
	if err := json.Unmarshal(payload, &messages); err != nil {
		return fmt.Errorf("contextmgr: import snapshot: %w", err)
	}
	m.messages = messages
	return nil
}

// Reset clears the log back to just the system prompt (if one was set).
func (m *Manager) Reset() {
	m.messages = nil
	m.compactionCount = 0
	if m.systemPrompt != "" {
		m.SetSystemPrompt(m.systemPrompt)
	}
}

// Compact runs the compaction protocol from spec.md §4.2: split the log
// into head (system message)/middle/tail, summarize middle via client,
// and replace the log with [head, summary, *tail]. An empty summarizer
// response rejects the compaction, leaving the log unmodified (the Open
// Question resolution recorded in DESIGN.md).
func (m *Manager) Compact(ctx context.Context, client llm.Client, summarizerModel string) (string, error) {
	if len(m.messages) == 0 || m.messages[0].Role != models.RoleSystem {
		return "", fmt.Errorf("contextmgr: cannot compact without a system message at index 0")
	}

	head := m.messages[0]
	preserve := m.preserveRecent
	if preserve > len(m.messages)-1 {
		preserve = len(m.messages) - 1
	}
	if preserve < 0 {
		preserve = 0
	}
	middleEnd := len(m.messages) - preserve
	if middleEnd < 1 {
		middleEnd = 1
	}
	middle := m.messages[1:middleEnd]
	tail := append([]models.Message{}, m.messages[middleEnd:]...)

	if len(middle) == 0 {
		// Boundary behavior from spec.md §8: nothing to summarize, no-op.
		return "", nil
	}

	transcript := renderTranscript(middle)
	prompt := fmt.Sprintf(summarizerPrompt, transcript)

	summary, err := client.SimpleCompletion(ctx, prompt, "", summarizerModel, defaultSummarizerMaxTokens)
	if err != nil {
		return "", fmt.Errorf("contextmgr: compaction failed: %w", err)
	}
	if summary == "" {
		return "", fmt.Errorf("contextmgr: compaction rejected: summarizer returned empty summary")
	}

	summaryMsg := models.Message{
		Role:      models.RoleAssistant,
		Content:   summaryPrefix + summary,
		CreatedAt: now(),
	}

	newLog := make([]models.Message, 0, 2+len(tail))
	newLog = append(newLog, head, summaryMsg)
	newLog = append(newLog, tail...)
	m.messages = newLog
	m.compactionCount++

	return summary, nil
}

func formatResult(result models.ToolResult) string {
	return fmt.Sprintf("%v", result.Result)
}

func renderTranscript(messages []models.Message) string {
	out := ""
	for _, msg := range messages {
		out += fmt.Sprintf("[%s] %s\n", msg.Role, msg.Content)
	}
	return out
}

// now is a seam so tests can't rely on wall-clock ordering of messages
// appended within the same instant; it is not mocked in production.
func now() time.Time {
	return time.Now()
}
