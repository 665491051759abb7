package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/curiosity/internal/agent/mainagent"
)

// SaveTodos replaces the persisted todo list with the given snapshot
// (spec.md §6's CRUD-over-a-durable-store obligation for todos).
func (s *Store) SaveTodos(items []mainagent.TodoItem) error {
	return replaceTable(s.db, "todos", func(item mainagent.TodoItem) (string, any, error) {
		payload, err := json.Marshal(item)
		return item.ID, payload, err
	}, items)
}

// LoadTodos restores the persisted todo list into store, preserving ids.
func (s *Store) LoadTodos(store *mainagent.TodoStore) error {
	items, err := loadRows[mainagent.TodoItem](s.db, "todos")
	if err != nil {
		return err
	}
	store.Restore(items)
	return nil
}

// SaveJournal replaces the persisted journal with the given snapshot.
func (s *Store) SaveJournal(entries []mainagent.JournalEntry) error {
	return replaceTableWithTime("journal_entries", s.db, entries, func(e mainagent.JournalEntry) (string, any, int64, error) {
		payload, err := json.Marshal(e)
		return e.ID, payload, e.CreatedAt.Unix(), err
	})
}

// LoadJournal restores the persisted journal into journal, preserving ids
// and write order.
func (s *Store) LoadJournal(journal *mainagent.Journal) error {
	rows, err := s.db.Query(`SELECT payload FROM journal_entries ORDER BY created_at ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()
	var entries []mainagent.JournalEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		var e mainagent.JournalEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	journal.Restore(entries)
	return nil
}

// SaveQuestions replaces the persisted question store with the given
// snapshot.
func (s *Store) SaveQuestions(questions []mainagent.Question) error {
	return replaceTable(s.db, "questions", func(q mainagent.Question) (string, any, error) {
		payload, err := json.Marshal(q)
		return q.ID, payload, err
	}, questions)
}

// LoadQuestions restores the persisted question store into store.
func (s *Store) LoadQuestions(store *mainagent.QuestionStore) error {
	questions, err := loadRows[mainagent.Question](s.db, "questions")
	if err != nil {
		return err
	}
	store.Restore(questions)
	return nil
}

// SavePromptQueue replaces the persisted prompt queue with the given
// snapshot, preserving dequeue order.
func (s *Store) SavePromptQueue(items []mainagent.QueuedPrompt) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM prompt_queue`); err != nil {
		return err
	}
	for i, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("state: marshal queued prompt: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO prompt_queue (id, payload, position) VALUES (?, ?, ?)`, item.ID, string(payload), i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadPromptQueue restores the persisted prompt queue into queue,
// preserving dequeue order.
func (s *Store) LoadPromptQueue(queue *mainagent.PromptQueue) error {
	rows, err := s.db.Query(`SELECT payload FROM prompt_queue ORDER BY position ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()
	var items []mainagent.QueuedPrompt
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		var item mainagent.QueuedPrompt
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	queue.Restore(items)
	return nil
}

// replaceTable deletes every row of table and re-inserts one row per item,
// keyed by the id the keyFn extracts.
func replaceTable[T any](db *sql.DB, table string, keyFn func(T) (string, any, error), items []T) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return err
	}
	for _, item := range items {
		id, payload, err := keyFn(item)
		if err != nil {
			return fmt.Errorf("state: marshal row for %s: %w", table, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (id, payload) VALUES (?, ?)", table), id, payload); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func replaceTableWithTime[T any](table string, db *sql.DB, items []T, keyFn func(T) (string, any, int64, error)) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return err
	}
	for _, item := range items {
		id, payload, createdAt, err := keyFn(item)
		if err != nil {
			return fmt.Errorf("state: marshal row for %s: %w", table, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (id, payload, created_at) VALUES (?, ?, ?)", table), id, payload, createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func loadRows[T any](db *sql.DB, table string) ([]T, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT payload FROM %s", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item T
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
