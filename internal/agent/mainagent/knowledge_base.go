package mainagent

import (
	"fmt"
	"sync"
)

// KnowledgeBase tracks fact counts for the Main Agent's system-prompt
// "knowledge base statistics line" (spec.md §4.7), grounded on
// _examples/original_source/agent/chat_session.py's knowledge-base stats
// splice — deliberately without importing the teacher's RAG/vector-store
// stack, which is out of scope (SPEC_FULL.md §6).
type KnowledgeBase struct {
	mu        sync.Mutex
	factCount int
	sources   map[string]int
}

// NewKnowledgeBase constructs an empty KnowledgeBase.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{sources: map[string]int{}}
}

// RecordFact increments the fact count attributed to source.
func (k *KnowledgeBase) RecordFact(source string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.factCount++
	k.sources[source]++
}

// StatsLine renders the one-line summary spliced into the system prompt.
func (k *KnowledgeBase) StatsLine() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return fmt.Sprintf("Knowledge base: %d facts across %d sources.", k.factCount, len(k.sources))
}
