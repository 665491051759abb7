// Package tournament implements the tournament scheduler: multi-round
// bounded-parallel orchestration of Tournament Agents, collecting each
// round's revealed files as the next round's input, per spec.md §4.6.
//
// Grounded on _examples/original_source/agent/tournament.py's round
// scheduling loop and on golang.org/x/sync's semaphore+errgroup idiom as
// used by github.com/haasonsaas/nexus's worker-pool packages, adapted to
// enforce a global concurrency bound across a single round's agent
// fan-out.
package tournament

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/container"
	"github.com/haasonsaas/curiosity/internal/agent/tournamentagent"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/internal/observability"
)

// Status is a tournament's lifecycle state (spec.md §3's Tournament.status).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSynthesis Status = "synthesis"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// AgentOutcome records one round participant's terminal state, independent
// of whether it succeeded (spec.md §4.6 step 4: per-agent failures do not
// cancel siblings).
type AgentOutcome struct {
	AgentID  string
	State    *agent.State
	Revealed []container.RevealedFile
	Err      error
}

// SynthesisRound is one completed or in-flight round (spec.md §3).
type SynthesisRound struct {
	RoundNumber int
	AgentCount  int
	InputFiles  []container.RevealedFile
	Agents      []AgentOutcome
	Status      Status
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Tournament is the persisted record of one run (spec.md §3).
type Tournament struct {
	ID          string
	Topic       string
	Stages      []int
	Model       string
	Status      Status
	Rounds      []SynthesisRound
	FinalFiles  []container.RevealedFile
	Error       string

	mu sync.Mutex
}

func (t *Tournament) snapshot() *Tournament {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := &Tournament{
		ID:         t.ID,
		Topic:      t.Topic,
		Stages:     t.Stages,
		Model:      t.Model,
		Status:     t.Status,
		Error:      t.Error,
		Rounds:     append([]SynthesisRound(nil), t.Rounds...),
		FinalFiles: append([]container.RevealedFile(nil), t.FinalFiles...),
	}
	return cp
}

// Scheduler creates, runs, and persists tournaments (spec.md §4.6).
//
// Its own state (the tournaments map) is mutated only by the goroutine that
// calls Create/Run; worker agents never hold a reference into Scheduler
// state, communicating upward solely via returned AgentState and container
// files (spec.md §4.6's concurrency-safety note).
type Scheduler struct {
	BaseDir     string
	MaxParallel int64
	AgentConfig agent.Config
	Client      llm.Client
	Metrics     *observability.Metrics
	Logger      *observability.Logger

	mu          sync.Mutex
	tournaments map[string]*Tournament
}

// NewScheduler constructs a Scheduler rooted at baseDir. maxParallel <= 0
// defaults to 8 (spec.md §4.6 step 3).
func NewScheduler(baseDir string, maxParallel int64, cfg agent.Config, client llm.Client, metrics *observability.Metrics) *Scheduler {
	if maxParallel <= 0 {
		maxParallel = 8
	}
	return &Scheduler{
		BaseDir:     baseDir,
		MaxParallel: maxParallel,
		AgentConfig: cfg,
		Client:      client,
		Metrics:     metrics,
		tournaments: map[string]*Tournament{},
	}
}

// Create registers a new pending tournament (spec.md §4.6's
// `create(topic, stages, debate_rounds, model?)`). debateRounds is folded
// into stages by the caller; Scheduler only needs the resolved per-round
// agent counts.
func (s *Scheduler) Create(topic string, stages []int, model string) (*Tournament, error) {
	if len(stages) == 0 {
		return nil, &agent.ValidationError{Field: "stages", Message: "at least one round is required"}
	}
	for i, n := range stages {
		if n <= 0 {
			return nil, &agent.ValidationError{Field: "stages", Message: fmt.Sprintf("stage %d must have at least one agent", i)}
		}
	}
	t := &Tournament{ID: uuid.NewString(), Topic: topic, Stages: stages, Model: model, Status: StatusPending}
	s.mu.Lock()
	s.tournaments[t.ID] = t
	s.mu.Unlock()
	s.logInfo("tournament created", "tournament_id", t.ID, "topic", topic, "stages", stages)
	return t.snapshot(), nil
}

// Get returns a snapshot of the tournament by id.
func (s *Scheduler) Get(id string) (*Tournament, bool) {
	s.mu.Lock()
	t, ok := s.tournaments[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return t.snapshot(), true
}

// List returns snapshots of every known tournament.
func (s *Scheduler) List() []*Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		out = append(out, t.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore repopulates the scheduler from previously persisted tournament
// snapshots (spec.md §6's persisted-state obligation), so a restarted
// process can still serve get/list/results for tournaments started before
// the restart. A tournament left mid-round by a crash is restored as-is;
// Run refuses to resume it (it will report "already completed" only for a
// genuinely completed one, otherwise the caller must inspect its rounds
// before deciding whether to re-run).
func (s *Scheduler) Restore(tournaments []*Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments = make(map[string]*Tournament, len(tournaments))
	for _, t := range tournaments {
		s.tournaments[t.ID] = t
	}
}

// Run executes every round of the tournament sequentially, fanning each
// round's agents out under the scheduler's concurrency bound. Run is
// idempotent-unsafe by design: rerunning an already-completed tournament is
// an error (spec.md §4.6).
func (s *Scheduler) Run(ctx context.Context, id string) (*Tournament, error) {
	s.mu.Lock()
	t, ok := s.tournaments[id]
	s.mu.Unlock()
	if !ok {
		return nil, &agent.ValidationError{Field: "id", Message: fmt.Sprintf("tournament %q not found", id)}
	}

	t.mu.Lock()
	if t.Status == StatusCompleted {
		t.mu.Unlock()
		return nil, &agent.ValidationError{Field: "id", Message: "tournament already completed"}
	}
	t.Status = StatusRunning
	t.mu.Unlock()
	s.logInfo("tournament run started", "tournament_id", id, "rounds", len(t.Stages))

	var priorRevealed []container.RevealedFile

	for roundNum, agentCount := range t.Stages {
		round := SynthesisRound{RoundNumber: roundNum, AgentCount: agentCount, InputFiles: priorRevealed, Status: StatusRunning}
		started := time.Now()
		round.StartedAt = &started
		s.logInfo("tournament round started", "tournament_id", id, "round", roundNum, "agent_count", agentCount)

		outcomes := s.runRound(ctx, t, roundNum, agentCount, priorRevealed)
		round.Agents = outcomes
		completed := time.Now()
		round.CompletedAt = &completed
		round.Status = StatusCompleted

		t.mu.Lock()
		t.Rounds = append(t.Rounds, round)
		t.mu.Unlock()

		failures := countFailures(outcomes)
		s.logInfo("tournament round completed", "tournament_id", id, "round", roundNum,
			"duration_s", completed.Sub(started).Seconds(), "failures", failures)

		if s.Metrics != nil {
			s.Metrics.RecordTournamentRound(id, completed.Sub(started).Seconds(), agentCount)
		}

		priorRevealed = collectRevealed(outcomes)
	}

	t.mu.Lock()
	t.Status = StatusSynthesis
	t.mu.Unlock()

	finalFiles, err := s.writeFinalOutput(t, priorRevealed)
	if err != nil {
		t.mu.Lock()
		t.Status = StatusFailed
		t.Error = err.Error()
		t.mu.Unlock()
		s.logError("tournament run failed", "tournament_id", id, "error", err.Error())
		return t.snapshot(), err
	}

	t.mu.Lock()
	t.FinalFiles = finalFiles
	t.Status = StatusCompleted
	t.mu.Unlock()
	s.logInfo("tournament run completed", "tournament_id", id, "final_files", len(finalFiles))

	return t.snapshot(), nil
}

func countFailures(outcomes []AgentOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

func (s *Scheduler) logInfo(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Info(context.Background(), msg, args...)
	}
}

func (s *Scheduler) logError(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Error(context.Background(), msg, args...)
	}
}

// runRound schedules agentCount Tournament Agents under the scheduler's
// semaphore, awaits all of them, and returns their outcomes in agent-index
// order (spec.md §4.6 steps 1-4). A per-agent failure is recorded on its
// outcome and does not cancel its siblings.
func (s *Scheduler) runRound(ctx context.Context, t *Tournament, roundNum, agentCount int, inputFiles []container.RevealedFile) []AgentOutcome {
	sem := semaphore.NewWeighted(s.MaxParallel)
	outcomes := make([]AgentOutcome, agentCount)

	var group errgroup.Group
	for i := 0; i < agentCount; i++ {
		i := i
		group.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = AgentOutcome{Err: err}
				return nil
			}
			defer sem.Release(1)

			agentID := fmt.Sprintf("%s-r%d-a%d", t.ID, roundNum, i)
			root := filepath.Join(s.BaseDir, t.ID, fmt.Sprintf("round_%d", roundNum+1), agentID)

			if s.Metrics != nil {
				s.Metrics.SetAgentStatus("tournament_agent", "running", 1)
				defer s.Metrics.SetAgentStatus("tournament_agent", "running", -1)
			}

			ta, err := tournamentagent.New(root, agentID, tournamentagent.Params{
				Topic:          t.Topic,
				InputFiles:     inputFiles,
				IsInitialRound: roundNum == 0,
				RoundNumber:    roundNum,
			}, s.withModel(t.Model), s.Client)
			if err != nil {
				outcomes[i] = AgentOutcome{AgentID: agentID, Err: err}
				return nil
			}
			ta.Core.SetLogger(s.Logger)

			state := ta.Run(ctx)
			outcomes[i] = AgentOutcome{AgentID: agentID, State: state, Revealed: ta.Revealed()}
			if state.Status == agent.StatusFailed {
				outcomes[i].Err = fmt.Errorf("agent %s failed: %s", agentID, state.Error)
				s.logError("tournament agent failed", "tournament_id", t.ID, "round", roundNum, "agent_id", agentID, "error", state.Error)
			}
			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}

func (s *Scheduler) withModel(model string) agent.Config {
	cfg := s.AgentConfig
	if model != "" {
		cfg.Model = model
	}
	return cfg
}

// collectRevealed flattens a round's outcomes into the next round's
// input_files, ordered by agent index then by each agent's reveal order
// (spec.md §4.6 step 5).
func collectRevealed(outcomes []AgentOutcome) []container.RevealedFile {
	var out []container.RevealedFile
	for _, o := range outcomes {
		out = append(out, o.Revealed...)
	}
	return out
}

// writeFinalOutput copies the final round's revealed files into
// base/<tournament_id>/final_output/, resolving filename collisions by
// suffixing with the producing agent's id (spec.md §4.6).
func (s *Scheduler) writeFinalOutput(t *Tournament, files []container.RevealedFile) ([]container.RevealedFile, error) {
	dir := filepath.Join(s.BaseDir, t.ID, "final_output")
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	out := make([]container.RevealedFile, 0, len(files))
	for _, f := range files {
		name := f.Filename
		if seen[name] {
			name = fmt.Sprintf("%s_%s", shortID(f.AgentID), f.Filename)
		}
		seen[name] = true
		if err := writeFile(filepath.Join(dir, name), f.Content); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
