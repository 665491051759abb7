package agent

import (
	"context"
	"fmt"

	"github.com/haasonsaas/curiosity/internal/tools"
)

const (
	completeTaskToolName   = "complete_task"
	manageContextToolName  = "manage_context"
)

// registerLifecycleTools registers the two protected tools every agent
// carries regardless of variant (spec.md §4.3).
func registerLifecycleTools(c *Core) {
	_ = c.tools.Register(completeTaskTool(c))
	_ = c.tools.Register(manageContextTool(c))
}

// completeTaskTool builds the complete_task tool: it records the
// completion reason/summary/output and sets the internal completion flag.
// Execution of the current step continues to its end (any further tool
// calls in the same LLM response are still honored) before the loop exits
// (spec.md §4.3 step 4).
func completeTaskTool(c *Core) tools.Tool {
	return tools.Tool{
		Name:        completeTaskToolName,
		Description: "Signal that the agent's task is finished. Ends the run after the current step.",
		Category:    "lifecycle",
		Protected:   true,
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason":  map[string]any{"type": "string", "description": "Why the task is complete."},
				"summary": map[string]any{"type": "string", "description": "A short summary of the outcome."},
				"output":  map[string]any{"type": "object", "description": "Optional structured output."},
			},
			"required": []any{"reason", "summary"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			reason, _ := args["reason"].(string)
			summary, _ := args["summary"].(string)
			output, _ := args["output"].(map[string]any)
			if reason == "" {
				return nil, &ValidationError{Field: "reason", Message: "reason is required"}
			}

			c.mu.Lock()
			c.completionReason = reason
			if c.completionOutput == nil {
				c.completionOutput = map[string]any{}
			}
			c.completionOutput["summary"] = summary
			if output != nil {
				c.completionOutput["output"] = output
			}
			c.mu.Unlock()

			return map[string]any{"acknowledged": true, "reason": reason}, nil
		},
	}
}

// manageContextTool builds the manage_context tool, routing to the context
// manager's compact_now / set_threshold / get_status operations (spec.md
// §4.3, §4.2).
func manageContextTool(c *Core) tools.Tool {
	return tools.Tool{
		Name:        manageContextToolName,
		Description: "Inspect or adjust the agent's context window: compact now, change the compaction threshold, or get status.",
		Category:    "lifecycle",
		Protected:   true,
		ParameterSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action":    map[string]any{"type": "string", "enum": []any{"compact_now", "set_threshold", "get_status"}},
				"threshold": map[string]any{"type": "number"},
			},
			"required": []any{"action"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			action, _ := args["action"].(string)
			switch action {
			case "compact_now":
				summary, err := c.context.Compact(ctx, c.client, c.cfg.SummarizerModel)
				if err != nil {
					return nil, err
				}
				return map[string]any{"summary": summary}, nil
			case "set_threshold":
				threshold, _ := args["threshold"].(float64)
				if err := c.context.SetThreshold(threshold); err != nil {
					return nil, &ValidationError{Field: "threshold", Message: err.Error()}
				}
				return map[string]any{"threshold": threshold}, nil
			case "get_status":
				status := c.context.GetStatus()
				return map[string]any{
					"message_count":    status.MessageCount,
					"estimated_tokens": status.EstimatedTokens,
					"max_tokens":       status.MaxTokens,
					"threshold":        status.Threshold,
					"needs_compaction": status.NeedsCompaction,
					"compaction_count": status.CompactionCount,
				}, nil
			default:
				return nil, &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", action)}
			}
		},
	}
}
