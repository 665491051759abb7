package mainagent

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QuestionStatus distinguishes a pending question from an answered one,
// grounded on _examples/original_source/agent/questions_manager.py.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
)

// Question is one question the Main Agent raised for the external control
// surface (spec.md §6's "Questions: list(pending|answered), answer(id,
// answer, answer_text?)").
type Question struct {
	ID         string
	Text       string
	Status     QuestionStatus
	Answer     string
	AnsweredAt *time.Time
	CreatedAt  time.Time
	checked    bool // consumed by the last PreStep poll
}

// QuestionStore holds pending and answered questions, single-writer via its
// own mutex.
type QuestionStore struct {
	mu        sync.Mutex
	questions map[string]*Question
}

// NewQuestionStore constructs an empty QuestionStore.
func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: map[string]*Question{}}
}

// Ask records a new pending question and returns its id.
func (s *QuestionStore) Ask(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.questions[id] = &Question{ID: id, Text: text, Status: QuestionPending, CreatedAt: time.Now()}
	return id
}

// Answer records an answer for a pending question.
func (s *QuestionStore) Answer(id, answer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return false
	}
	now := time.Now()
	q.Status = QuestionAnswered
	q.Answer = answer
	q.AnsweredAt = &now
	return true
}

// Restore repopulates the store from previously persisted questions,
// preserving original ids (spec.md §6's persisted-state obligation).
// Restored questions are treated as already checked, so a restart does not
// re-fire notifications for questions answered before the restart.
func (s *QuestionStore) Restore(questions []Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = make(map[string]*Question, len(questions))
	for i := range questions {
		q := questions[i]
		q.checked = true
		s.questions[q.ID] = &q
	}
}

// List returns questions filtered by status; an empty status returns all.
func (s *QuestionStore) List(status QuestionStatus) []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		if status != "" && q.Status != status {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

// PollAnsweredSinceLastCheck returns questions answered since the previous
// call to this method, marking them checked (spec.md §4.7's pre_step
// "poll the questions store for answered-since-last-check items").
func (s *QuestionStore) PollAnsweredSinceLastCheck() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Question
	for _, q := range s.questions {
		if q.Status == QuestionAnswered && !q.checked {
			q.checked = true
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].AnsweredAt == nil || out[k].AnsweredAt == nil {
			return false
		}
		return out[i].AnsweredAt.Before(*out[k].AnsweredAt)
	})
	return out
}
