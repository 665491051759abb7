// Package llm provides the request/response contract the agent core uses to
// drive a large language model, plus an Anthropic-backed implementation.
//
// Grounded on github.com/haasonsaas/nexus/internal/agent (LLMProvider,
// CompletionRequest/CompletionChunk) and
// internal/agent/providers/anthropic.go.
package llm

import (
	"context"
	"fmt"

	"github.com/haasonsaas/curiosity/pkg/models"
)

// ToolSchema describes a tool the model may call, as emitted by
// internal/tools.Registry.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is a single request to chat with tool calling enabled.
type ChatRequest struct {
	Model       string
	Messages    []models.Message
	Tools       []ToolSchema
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the model's reply to a ChatRequest.
type ChatResponse struct {
	Content      string
	ToolCalls    []models.ToolCall
	Usage        models.Usage
	FinishReason models.FinishReason
}

// Client is the minimal surface the agent core needs from an LLM backend.
//
// Implementations must accept a per-call model override and must return
// ToolCalls with structured Arguments (never a raw JSON string) — see
// spec.md §4.1.
type Client interface {
	// Chat sends messages (with optional tool schemas) and returns the
	// model's reply. temperature/maxTokens/model are per-call overrides.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// SimpleCompletion issues a single-shot prompt/response exchange with no
	// tool calling, used by context compaction (internal/agent/contextmgr)
	// to summarize.
	SimpleCompletion(ctx context.Context, prompt, system, model string, maxTokens int) (string, error)
}

// ProviderError wraps a transport or non-2xx failure from the LLM backend.
// The agent core never retries automatically (spec.md §4.1); retry policy,
// if any, belongs to the caller.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm provider error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm provider error (status %d): %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// charsPerToken and messageOverheadTokens implement the deterministic,
// monotone token heuristic required by spec.md §4.1/§9: 4 characters per
// token, plus a fixed per-message overhead for role/formatting tokens.
const (
	charsPerToken        = 4
	messageOverheadTokens = 4
)

// EstimateTokens approximates the token count of a message list using a
// 4-characters-per-token heuristic plus a 4-token per-message overhead.
//
// The estimator is deterministic and strictly monotone: appending any
// nonempty message strictly increases the result, which is what
// internal/agent/contextmgr relies on to decide when compaction is needed.
func EstimateTokens(messages []models.Message) int {
	total := 0
	for _, m := range messages {
		total += messageOverheadTokens
		total += estimateStringTokens(m.Content)
		for _, tc := range m.ToolCalls {
			total += estimateStringTokens(tc.Name)
			total += estimateStringTokens(fmt.Sprintf("%v", tc.Arguments))
		}
	}
	return total
}

func estimateStringTokens(s string) int {
	if s == "" {
		return 0
	}
	n := len(s) / charsPerToken
	if len(s)%charsPerToken != 0 {
		n++
	}
	return n
}
