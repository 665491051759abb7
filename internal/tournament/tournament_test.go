package tournament

import (
	"context"
	"testing"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/pkg/models"
)

// fixedAnswerClient drives every agent through the same write/reveal/
// complete script, keyed off how many tool results already appear in that
// agent's own message history — not a shared call counter — so the script
// stays deterministic under concurrent round fan-out.
type fixedAnswerClient struct{}

func (c *fixedAnswerClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	completedSteps := 0
	for _, m := range req.Messages {
		if m.Role == models.RoleTool {
			completedSteps++
		}
	}
	switch completedSteps {
	case 0:
		return &llm.ChatResponse{ToolCalls: []models.ToolCall{
			{ID: "1", Name: "write_file", Arguments: map[string]any{"path": "out.txt", "content": "result", "tool_description": "d"}},
		}}, nil
	case 1:
		return &llm.ChatResponse{ToolCalls: []models.ToolCall{
			{ID: "2", Name: "reveal", Arguments: map[string]any{"filename": "out.txt", "description": "an answer", "tool_description": "d"}},
		}}, nil
	default:
		return &llm.ChatResponse{ToolCalls: []models.ToolCall{
			{ID: "3", Name: "complete_task", Arguments: map[string]any{"reason": "done", "summary": "s", "tool_description": "d"}},
		}}, nil
	}
}

func (c *fixedAnswerClient) SimpleCompletion(ctx context.Context, prompt, system, model string, maxTokens int) (string, error) {
	return "summary", nil
}

func TestSchedulerRunsMultiRoundTournament(t *testing.T) {
	client := &fixedAnswerClient{}
	sched := NewScheduler(t.TempDir(), 2, agent.Config{Model: "m", MaxTokens: 100000, CompactionThreshold: 0.9}, client, nil)

	tour, err := sched.Create("best approach to X", []int{3, 1}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := sched.Run(context.Background(), tour.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}
	if len(result.Rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(result.Rounds))
	}
	if result.Rounds[0].AgentCount != 3 || result.Rounds[1].AgentCount != 1 {
		t.Errorf("unexpected agent counts: %+v", result.Rounds)
	}
	if len(result.Rounds[1].InputFiles) != 3 {
		t.Errorf("expected round 1 to receive 3 input files from round 0, got %d", len(result.Rounds[1].InputFiles))
	}
	if len(result.FinalFiles) != 1 {
		t.Errorf("expected 1 final file, got %d", len(result.FinalFiles))
	}
}

func TestSchedulerRerunAfterCompletionIsError(t *testing.T) {
	client := &fixedAnswerClient{}
	sched := NewScheduler(t.TempDir(), 2, agent.Config{Model: "m", MaxTokens: 100000, CompactionThreshold: 0.9}, client, nil)

	tour, err := sched.Create("topic", []int{1}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sched.Run(context.Background(), tour.ID); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := sched.Run(context.Background(), tour.ID); err == nil {
		t.Error("expected rerun of a completed tournament to error")
	}
}

func TestCreateRejectsEmptyStages(t *testing.T) {
	sched := NewScheduler(t.TempDir(), 2, agent.Config{}, &fixedAnswerClient{}, nil)
	if _, err := sched.Create("topic", nil, ""); err == nil {
		t.Error("expected empty stages to be rejected")
	}
}

func TestRestoreRepopulatesSchedulerForGetAndList(t *testing.T) {
	sched := NewScheduler(t.TempDir(), 2, agent.Config{}, &fixedAnswerClient{}, nil)
	tour, err := sched.Create("topic", []int{1}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	fresh := NewScheduler(t.TempDir(), 2, agent.Config{}, &fixedAnswerClient{}, nil)
	if _, ok := fresh.Get(tour.ID); ok {
		t.Fatal("expected fresh scheduler to know nothing before Restore")
	}

	fresh.Restore([]*Tournament{tour})

	got, ok := fresh.Get(tour.ID)
	if !ok {
		t.Fatal("expected Restore to make the tournament visible to Get")
	}
	if got.Topic != tour.Topic || got.Status != tour.Status {
		t.Errorf("restored tournament mismatch: got %+v, want %+v", got, tour)
	}
	if len(fresh.List()) != 1 {
		t.Errorf("expected List to return 1 tournament after Restore, got %d", len(fresh.List()))
	}

	fresh.Restore(nil)
	if len(fresh.List()) != 0 {
		t.Errorf("expected Restore(nil) to clear the scheduler, got %d entries", len(fresh.List()))
	}
}
