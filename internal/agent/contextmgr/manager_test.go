package contextmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/pkg/models"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) SimpleCompletion(ctx context.Context, prompt, system, model string, maxTokens int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestSetSystemPromptInvariant(t *testing.T) {
	m := New(1000, 0.8, 2)
	m.SetSystemPrompt("you are a test agent")
	msgs := m.GetMessagesForAPI()
	if len(msgs) != 1 || msgs[0].Role != models.RoleSystem || msgs[0].Content != "you are a test agent" {
		t.Fatalf("system message invariant violated: %+v", msgs)
	}

	m.AppendUser("hello")
	m.SetSystemPrompt("updated prompt")
	msgs = m.GetMessagesForAPI()
	if msgs[0].Content != "updated prompt" {
		t.Fatalf("expected system prompt update at index 0, got %+v", msgs[0])
	}
	if len(msgs) != 2 {
		t.Fatalf("expected system prompt update in place, not inserted, got %d messages", len(msgs))
	}
}

func TestSetThresholdRange(t *testing.T) {
	m := New(1000, 0.8, 2)
	if err := m.SetThreshold(0.3); err == nil {
		t.Fatalf("expected rejection below 0.5")
	}
	if got := m.GetStatus().Threshold; got != 0.8 {
		t.Fatalf("threshold changed after rejected SetThreshold: %v", got)
	}
	if err := m.SetThreshold(0.96); err == nil {
		t.Fatalf("expected rejection above 0.95")
	}
	if err := m.SetThreshold(0.5); err != nil {
		t.Fatalf("expected 0.5 to be accepted: %v", err)
	}
	if err := m.SetThreshold(0.95); err != nil {
		t.Fatalf("expected 0.95 to be accepted: %v", err)
	}
}

func TestCompactPreservesTailByteForByte(t *testing.T) {
	m := New(1000, 0.8, 2)
	m.SetSystemPrompt("system")
	for i := 0; i < 20; i++ {
		m.AppendUser("turn")
		m.AppendAssistant("reply", nil)
	}
	before := m.GetMessagesForAPI()
	tailBefore := append([]models.Message{}, before[len(before)-2:]...)

	client := &fakeClient{response: "a summary"}
	summary, err := m.Compact(context.Background(), client, "")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if summary != "a summary" {
		t.Fatalf("unexpected summary %q", summary)
	}

	after := m.GetMessagesForAPI()
	if len(after) > 2+2 {
		t.Fatalf("expected len(messages) <= 2+preserve_recent, got %d", len(after))
	}
	tailAfter := after[len(after)-2:]
	for i := range tailBefore {
		if tailBefore[i] != tailAfter[i] {
			t.Fatalf("tail message %d changed: %+v != %+v", i, tailBefore[i], tailAfter[i])
		}
	}
	if after[0].Role != models.RoleSystem {
		t.Fatalf("system message must remain at index 0 after compaction")
	}
	if m.GetStatus().CompactionCount != 1 {
		t.Fatalf("expected compaction_count to increment")
	}
}

func TestCompactEmptySummaryRejectsCompaction(t *testing.T) {
	m := New(1000, 0.8, 2)
	m.SetSystemPrompt("system")
	for i := 0; i < 10; i++ {
		m.AppendUser("turn")
	}
	before := m.GetMessagesForAPI()

	client := &fakeClient{response: ""}
	_, err := m.Compact(context.Background(), client, "")
	if err == nil {
		t.Fatalf("expected empty summary to reject compaction")
	}

	after := m.GetMessagesForAPI()
	if len(after) != len(before) {
		t.Fatalf("log modified despite rejected compaction: before=%d after=%d", len(before), len(after))
	}
}

func TestCompactNoOpWhenPreserveRecentCoversWholeLog(t *testing.T) {
	m := New(1000, 0.8, 100)
	m.SetSystemPrompt("system")
	m.AppendUser("only message")

	client := &fakeClient{response: "should not be used"}
	summary, err := m.Compact(context.Background(), client, "")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if summary != "" {
		t.Fatalf("expected no-op compaction to return empty summary")
	}
	if client.calls != 0 {
		t.Fatalf("expected no LLM call when middle is empty")
	}
}

func TestNeedsCompactionThreshold(t *testing.T) {
	m := New(40, 0.5, 1)
	m.SetSystemPrompt("s")
	if m.NeedsCompaction() {
		t.Fatalf("should not need compaction yet")
	}
	for i := 0; i < 20; i++ {
		m.AppendUser("padding padding padding padding")
	}
	if !m.NeedsCompaction() {
		t.Fatalf("expected compaction to be needed after growth")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := New(1000, 0.8, 2)
	m.SetSystemPrompt("system")
	m.AppendUser("hello")
	m.AppendAssistant("hi there", nil)

	snapshot, err := m.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	restored := New(1000, 0.8, 2)
	restored.SetSystemPrompt("system")
	if err := restored.Import(snapshot); err != nil {
		t.Fatalf("Import: %v", err)
	}

	before := m.GetMessagesForAPI()
	after := restored.GetMessagesForAPI()
	if len(before) != len(after) {
		t.Fatalf("expected %d messages after import, got %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("message %d differs after round-trip: %+v != %+v", i, before[i], after[i])
		}
	}
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	m := New(1000, 0.8, 2)
	if err := m.Import([]byte("not json")); err == nil {
		t.Fatalf("expected error importing malformed payload")
	}
}

func TestAppendSystemNotificationPrefix(t *testing.T) {
	m := New(1000, 0.8, 2)
	m.SetSystemPrompt("s")
	m.AppendSystemNotification("queued prompt: A")
	msgs := m.GetMessagesForAPI()
	last := msgs[len(msgs)-1]
	if last.Role != models.RoleUser {
		t.Fatalf("system notification must render as user role")
	}
	if last.Content != "[SYSTEM NOTIFICATION] queued prompt: A" {
		t.Fatalf("unexpected notification content: %q", last.Content)
	}
}
