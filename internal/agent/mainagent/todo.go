package mainagent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TodoStatus is a todo item's lifecycle state, grounded on
// _examples/original_source/agent/todo_manager.py's TodoStatus literal.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoDone       TodoStatus = "done"
)

// TodoItem is one entry in the Main Agent's todo list (spec.md §4.7's
// "rendered todo summary" system-prompt clause and the "todos all done"
// stagnation predicate).
type TodoItem struct {
	ID        string
	Title     string
	Status    TodoStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodoStore is a simple CRUD todo list, single-writer via its own mutex
// (spec.md §5's "Shared resource policy").
type TodoStore struct {
	mu    sync.Mutex
	items map[string]*TodoItem
}

// NewTodoStore constructs an empty TodoStore.
func NewTodoStore() *TodoStore { return &TodoStore{items: map[string]*TodoItem{}} }

// Add creates a new pending todo item and returns its id.
func (s *TodoStore) Add(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	now := time.Now()
	s.items[id] = &TodoItem{ID: id, Title: title, Status: TodoPending, CreatedAt: now, UpdatedAt: now}
	return id
}

// SetStatus updates an item's status. It is a no-op if the id is unknown.
func (s *TodoStore) SetStatus(id string, status TodoStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		item.Status = status
		item.UpdatedAt = time.Now()
	}
}

// Remove deletes a todo item by id.
func (s *TodoStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// List returns all todo items ordered by creation time.
func (s *TodoStore) List() []TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TodoItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// AllDone reports whether the store is nonempty and every item is done —
// one of the §4.7 stagnation predicates.
func (s *TodoStore) AllDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return false
	}
	for _, item := range s.items {
		if item.Status != TodoDone {
			return false
		}
	}
	return true
}

// Restore repopulates the store from previously persisted items,
// preserving their original ids (spec.md §6's persisted-state obligation
// for todos). Any existing items are replaced.
func (s *TodoStore) Restore(items []TodoItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*TodoItem, len(items))
	for i := range items {
		item := items[i]
		s.items[item.ID] = &item
	}
}

// Summary renders a short human-readable todo summary for the system
// prompt (spec.md §4.7).
func (s *TodoStore) Summary() string {
	items := s.List()
	if len(items) == 0 {
		return "No todos."
	}
	counts := map[TodoStatus]int{}
	for _, item := range items {
		counts[item.Status]++
	}
	return fmt.Sprintf("%d todos (%d pending, %d in progress, %d done)",
		len(items), counts[TodoPending], counts[TodoInProgress], counts[TodoDone])
}
