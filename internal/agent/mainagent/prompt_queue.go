package mainagent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority is a queued prompt's dequeue priority (spec.md §3's
// PromptQueue).
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// QueuedPrompt is one entry in the prompt queue.
type QueuedPrompt struct {
	ID       string
	Prompt   string
	Priority Priority
	QueuedAt time.Time
}

// PromptQueue is an ordered sequence of prompts awaiting injection into the
// Main Agent's context (spec.md §4.7's "Prompt queue operations"). High
// priority inserts at head, normal at tail; otherwise FIFO.
type PromptQueue struct {
	mu    sync.Mutex
	items []QueuedPrompt
}

// NewPromptQueue constructs an empty PromptQueue.
func NewPromptQueue() *PromptQueue { return &PromptQueue{} }

// Enqueue inserts a prompt and returns its id.
func (q *PromptQueue) Enqueue(prompt string, priority Priority) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	item := QueuedPrompt{ID: uuid.NewString(), Prompt: prompt, Priority: priority, QueuedAt: time.Now()}
	if priority == PriorityHigh {
		q.items = append([]QueuedPrompt{item}, q.items...)
	} else {
		q.items = append(q.items, item)
	}
	return item.ID
}

// Restore repopulates the queue from previously persisted entries,
// preserving order, ids, and timestamps (spec.md §6's persisted-state
// obligation). Any existing entries are replaced.
func (q *PromptQueue) Restore(items []QueuedPrompt) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]QueuedPrompt(nil), items...)
}

// Remove deletes a queued prompt by id.
func (q *PromptQueue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Clear empties the queue.
func (q *PromptQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// List returns a copy of the queue in dequeue order.
func (q *PromptQueue) List() []QueuedPrompt {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueuedPrompt(nil), q.items...)
}

// DrainAll removes and returns every queued prompt in dequeue order. Only
// called from pre_step (spec.md §4.7: "Dequeue happens only in pre_step").
func (q *PromptQueue) DrainAll() []QueuedPrompt {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
