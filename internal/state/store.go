// Package state implements the persistent state adapters spec.md §6
// requires for every mutable entity (context, agent state, todos, journal,
// questions, prompt queue, tournaments): a store that survives process
// restart and preserves the invariants of §3.
//
// Grounded on _examples/nevindra-oasis/store/sqlite/sqlite.go's pure-Go
// SQLite idiom (single shared connection, SetMaxOpenConns(1) so all
// goroutines serialize through one connection rather than hitting
// SQLITE_BUSY) adapted from its document/chunk/thread schema onto the
// agent runtime's entities. The encoding choice (SQLite with JSON-encoded
// payload columns) is the implementation's; spec.md §6 requires only that
// the store round-trips and survives a restart, not a specific schema.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/mainagent"
	"github.com/haasonsaas/curiosity/internal/tournament"
)

// Store is the persistence adapter backing every mutable entity the
// control surface and the Main Agent mutate between process restarts.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite-backed Store at path (":memory:" for an
// ephemeral store, used by tests and by factory_reset). Open runs the
// schema migration and returns a ready Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	// One connection: every caller serializes through it, avoiding
	// SQLITE_BUSY from concurrent writers opening independent connections
	// (the Main Agent and the external control surface are the only two
	// writers, per spec.md §5's single-writer-per-store policy).
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS loop_count (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_state (
			agent_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prompt_queue (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tournaments (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS context_snapshots (
			agent_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("state: migrate: %w", err)
		}
	}
	return nil
}

// IncrementLoopCount implements mainagent.LoopCountStore: atomically bumps
// and returns the Main Agent's durable loop_count (spec.md §4.7).
func (s *Store) IncrementLoopCount() (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRow(`SELECT count FROM loop_count WHERE id = 1`).Scan(&count)
	if err == sql.ErrNoRows {
		count = 0
		if _, err := tx.Exec(`INSERT INTO loop_count (id, count) VALUES (1, 0)`); err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}
	count++
	if _, err := tx.Exec(`UPDATE loop_count SET count = ? WHERE id = 1`, count); err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

var _ mainagent.LoopCountStore = (*Store)(nil)

// LoopCount returns the last persisted loop_count without incrementing it.
func (s *Store) LoopCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM loop_count WHERE id = 1`).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// SaveAgentState upserts a snapshot of one agent's lifecycle state.
func (s *Store) SaveAgentState(st agent.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal agent state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO agent_state (agent_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		st.AgentID, string(payload), time.Now().Unix(),
	)
	return err
}

// LoadAgentState restores a previously saved agent state snapshot.
func (s *Store) LoadAgentState(agentID string) (*agent.State, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM agent_state WHERE agent_id = ?`, agentID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var st agent.State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, false, err
	}
	return &st, true, nil
}

// SaveContextSnapshot persists the raw message log for an agent's
// ContextState, supporting restart-survival of in-flight conversations
// (spec.md §3's ContextState lifecycle and §6's persisted-state
// obligation). The encoding is opaque JSON; callers round-trip it through
// their own context manager's export/import.
func (s *Store) SaveContextSnapshot(agentID string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO context_snapshots (agent_id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		agentID, string(payload), time.Now().Unix(),
	)
	return err
}

// LoadContextSnapshot restores a previously saved context snapshot.
func (s *Store) LoadContextSnapshot(agentID string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM context_snapshots WHERE agent_id = ?`, agentID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// SaveTournament upserts a tournament snapshot.
func (s *Store) SaveTournament(t *tournament.Tournament) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("state: marshal tournament: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO tournaments (id, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		t.ID, string(payload), time.Now().Unix(),
	)
	return err
}

// LoadTournaments restores every persisted tournament snapshot.
func (s *Store) LoadTournaments() ([]*tournament.Tournament, error) {
	rows, err := s.db.Query(`SELECT payload FROM tournaments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*tournament.Tournament
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var t tournament.Tournament
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// FactoryReset drops every row from every table, restoring the store to
// its just-migrated state. Idempotent: calling it twice in a row is
// observably equivalent to calling it once (spec.md §8's round-trip law).
func (s *Store) FactoryReset(ctx context.Context) error {
	tables := []string{
		"loop_count", "agent_state", "todos", "journal_entries",
		"questions", "prompt_queue", "tournaments", "context_snapshots",
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("state: factory reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
