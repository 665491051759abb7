package state

import (
	"context"
	"testing"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/mainagent"
	"github.com/haasonsaas/curiosity/internal/tournament"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIncrementLoopCountStartsAtOneAndPersists(t *testing.T) {
	s := openTestStore(t)
	n, err := s.IncrementLoopCount()
	if err != nil {
		t.Fatalf("IncrementLoopCount: %v", err)
	}
	if n != 1 {
		t.Errorf("expected first increment to be 1, got %d", n)
	}
	n, err = s.IncrementLoopCount()
	if err != nil {
		t.Fatalf("IncrementLoopCount: %v", err)
	}
	if n != 2 {
		t.Errorf("expected second increment to be 2, got %d", n)
	}
	stored, err := s.LoopCount()
	if err != nil {
		t.Fatalf("LoopCount: %v", err)
	}
	if stored != 2 {
		t.Errorf("expected LoopCount to read back 2, got %d", stored)
	}
}

func TestTodoRoundTrip(t *testing.T) {
	s := openTestStore(t)
	store := mainagent.NewTodoStore()
	id := store.Add("write the design doc")
	store.SetStatus(id, mainagent.TodoDone)

	if err := s.SaveTodos(store.List()); err != nil {
		t.Fatalf("SaveTodos: %v", err)
	}

	restored := mainagent.NewTodoStore()
	if err := s.LoadTodos(restored); err != nil {
		t.Fatalf("LoadTodos: %v", err)
	}
	items := restored.List()
	if len(items) != 1 || items[0].ID != id || items[0].Status != mainagent.TodoDone {
		t.Fatalf("unexpected restored todos: %+v", items)
	}
}

func TestJournalRoundTripPreservesOrder(t *testing.T) {
	s := openTestStore(t)
	journal := mainagent.NewJournal()
	journal.Write(mainagent.EntryIdea, "idea one", "try X", nil)
	journal.Write(mainagent.EntryFailedAttempt, "attempt one", "X did not work", nil)

	if err := s.SaveJournal(journal.Recent(0)); err != nil {
		t.Fatalf("SaveJournal: %v", err)
	}

	restored := mainagent.NewJournal()
	if err := s.LoadJournal(restored); err != nil {
		t.Fatalf("LoadJournal: %v", err)
	}
	entries := restored.Recent(0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 restored entries, got %d", len(entries))
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	store := mainagent.NewQuestionStore()
	id := store.Ask("should we pursue approach Y?")
	store.Answer(id, "yes")

	if err := s.SaveQuestions(store.List("")); err != nil {
		t.Fatalf("SaveQuestions: %v", err)
	}

	restored := mainagent.NewQuestionStore()
	if err := s.LoadQuestions(restored); err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	answered := restored.List(mainagent.QuestionAnswered)
	if len(answered) != 1 || answered[0].Answer != "yes" {
		t.Fatalf("unexpected restored questions: %+v", answered)
	}
}

func TestPromptQueueRoundTripPreservesDequeueOrder(t *testing.T) {
	s := openTestStore(t)
	queue := mainagent.NewPromptQueue()
	queue.Enqueue("first", mainagent.PriorityNormal)
	queue.Enqueue("urgent", mainagent.PriorityHigh)

	if err := s.SavePromptQueue(queue.List()); err != nil {
		t.Fatalf("SavePromptQueue: %v", err)
	}

	restored := mainagent.NewPromptQueue()
	if err := s.LoadPromptQueue(restored); err != nil {
		t.Fatalf("LoadPromptQueue: %v", err)
	}
	items := restored.List()
	if len(items) != 2 || items[0].Prompt != "urgent" || items[1].Prompt != "first" {
		t.Fatalf("expected dequeue order [urgent, first], got %+v", items)
	}
}

func TestTournamentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	sched := tournament.NewScheduler(t.TempDir(), 2, agent.Config{}, nil, nil)
	tour, err := sched.Create("topic", []int{1}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SaveTournament(tour); err != nil {
		t.Fatalf("SaveTournament: %v", err)
	}

	restored, err := s.LoadTournaments()
	if err != nil {
		t.Fatalf("LoadTournaments: %v", err)
	}
	if len(restored) != 1 || restored[0].ID != tour.ID {
		t.Fatalf("unexpected restored tournaments: %+v", restored)
	}
}

func TestFactoryResetClearsEverything(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.IncrementLoopCount(); err != nil {
		t.Fatalf("IncrementLoopCount: %v", err)
	}
	if err := s.SaveTodos([]mainagent.TodoItem{{ID: "t1", Title: "x", Status: mainagent.TodoPending}}); err != nil {
		t.Fatalf("SaveTodos: %v", err)
	}

	if err := s.FactoryReset(context.Background()); err != nil {
		t.Fatalf("FactoryReset: %v", err)
	}

	count, err := s.LoopCount()
	if err != nil {
		t.Fatalf("LoopCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected loop count reset to 0, got %d", count)
	}

	restored := mainagent.NewTodoStore()
	if err := s.LoadTodos(restored); err != nil {
		t.Fatalf("LoadTodos: %v", err)
	}
	if len(restored.List()) != 0 {
		t.Error("expected FactoryReset to clear todos")
	}
}
