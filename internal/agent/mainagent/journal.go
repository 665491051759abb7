// Package mainagent implements the Main Agent variant: the perpetual-loop
// agent holding the prompt queue, todo store, questions store, journal, and
// knowledge-base stats, and splicing them into its system prompt each step
// (spec.md §4.7).
package mainagent

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntryType categorizes a Journal entry, grounded on
// _examples/original_source/agent/journal_manager.py's EntryType literal.
type EntryType string

const (
	EntryIdea            EntryType = "idea"
	EntryEmpiricalResult EntryType = "empirical_result"
	EntryToolSpec        EntryType = "tool_spec"
	EntryFailedAttempt   EntryType = "failed_attempt"
	EntryFreeform        EntryType = "freeform"
)

// JournalEntry is one append-only entry (spec.md §4.7's stagnation
// heuristic reads entries of type EntryFailedAttempt and checks recency
// across all types).
type JournalEntry struct {
	ID        string
	Type      EntryType
	Title     string
	Content   string
	Tags      []string
	CreatedAt time.Time
}

// Journal is an append-only, single-writer-mutex-protected log of the Main
// Agent's progress notes (spec.md §6's "Persisted state" obligation;
// snapshot/restore lives in internal/state).
type Journal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

// NewJournal constructs an empty Journal.
func NewJournal() *Journal { return &Journal{} }

// Write appends a new entry and returns its id.
func (j *Journal) Write(entryType EntryType, title, content string, tags []string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	id := uuid.NewString()
	j.entries = append(j.entries, JournalEntry{
		ID: id, Type: entryType, Title: title, Content: content, Tags: tags, CreatedAt: time.Now(),
	})
	return id
}

// Restore repopulates the journal from previously persisted entries,
// preserving original ids and timestamps (spec.md §6's persisted-state
// obligation). Any existing entries are replaced.
func (j *Journal) Restore(entries []JournalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append([]JournalEntry(nil), entries...)
}

// Recent returns the most recently written entries, newest first.
func (j *Journal) Recent(limit int) []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := append([]JournalEntry(nil), j.entries...)
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SinceCount returns how many entries were written since the given time.
func (j *Journal) SinceCount(since time.Time) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.entries {
		if e.CreatedAt.After(since) {
			n++
		}
	}
	return n
}

// Stats returns a per-type entry count, backing the Journal manager's
// get_stats() (used by the stagnation heuristic and system-prompt summary).
func (j *Journal) Stats() map[EntryType]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	stats := map[EntryType]int{}
	for _, e := range j.entries {
		stats[e.Type]++
	}
	return stats
}
