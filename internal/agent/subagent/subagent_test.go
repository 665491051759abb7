package subagent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/pkg/models"
)

type scriptedClient struct {
	responses []llm.ChatResponse
	calls     int32
}

func (s *scriptedClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	i := atomic.AddInt32(&s.calls, 1) - 1
	if int(i) >= len(s.responses) {
		return &llm.ChatResponse{Content: "done"}, nil
	}
	resp := s.responses[i]
	return &resp, nil
}

func (s *scriptedClient) SimpleCompletion(ctx context.Context, prompt, system, model string, maxTokens int) (string, error) {
	return "summary", nil
}

func TestSubAgentCompletesAndReturnsWorkspaceFiles(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.ChatResponse{
			{ToolCalls: []models.ToolCall{
				{ID: "1", Name: "write_file", Arguments: map[string]any{"path": "result.txt", "content": "ok", "tool_description": "write result"}},
			}},
			{ToolCalls: []models.ToolCall{
				{ID: "2", Name: "complete_task", Arguments: map[string]any{"reason": "goal met", "summary": "wrote result.txt", "tool_description": "finish"}},
			}},
		},
	}

	a, err := New(t.TempDir(), "sub-1", Params{Goal: "write a file named result.txt"}, agent.Config{Model: "m", MaxTokens: 100000, CompactionThreshold: 0.9}, client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := a.Run(context.Background())
	if result.State.Status != agent.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.State.Status, result.State.Error)
	}
	if result.WorkspaceFiles["result.txt"] != "ok" {
		t.Errorf("expected result.txt in workspace files, got %+v", result.WorkspaceFiles)
	}
}
