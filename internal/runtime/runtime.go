// Package runtime wires the agent substrate's components into a single
// explicit Runtime value: the control surface (§6) mutates a Runtime, not
// module-level globals, per spec.md §9's "Global mutable state" note — "the
// source has a module-level 'current agent'. Re-express as an explicit
// Runtime value threaded into the control surface; unit tests construct a
// fresh Runtime per test."
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/mainagent"
	"github.com/haasonsaas/curiosity/internal/agent/subagent"
	"github.com/haasonsaas/curiosity/internal/config"
	"github.com/haasonsaas/curiosity/internal/llm"
	"github.com/haasonsaas/curiosity/internal/observability"
	"github.com/haasonsaas/curiosity/internal/state"
	"github.com/haasonsaas/curiosity/internal/tools"
	toolsexec "github.com/haasonsaas/curiosity/internal/tools/exec"
	"github.com/haasonsaas/curiosity/internal/tools/pluginhost"
	"github.com/haasonsaas/curiosity/internal/tools/websearch"
	"github.com/haasonsaas/curiosity/internal/tournament"
)

// Runtime is the one stateful value the control surface operates on. It
// owns the Main Agent, the tournament scheduler, the persistence adapter,
// and the shared client/metrics/logger. Construct one per process (or one
// per test for isolation).
type Runtime struct {
	Config  *config.Config
	Client  llm.Client
	Metrics *observability.Metrics
	Logger  *observability.Logger
	Store   *state.Store

	MainAgent  *mainagent.Agent
	Scheduler  *tournament.Scheduler
	subagentCfg agent.Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	runDone chan struct{}
	running bool
}

// New constructs a Runtime from a loaded configuration: builds the
// Anthropic client, observability stack, persistence store, the base tool
// registry (run_code, create_tool/pluginhost), the Main Agent, and the
// tournament scheduler, then restores any persisted state.
func New(cfg *config.Config) (*Runtime, error) {
	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:       cfg.LLM.APIKey,
		DefaultModel: cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("runtime: llm client: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	metrics := observability.NewMetrics()

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("runtime: state store: %w", err)
	}

	agentCfg := agent.Config{
		Model:                  cfg.LLM.Model,
		SummarizerModel:        cfg.LLM.SummarizerModel,
		MaxTokens:              cfg.Agent.MaxTokens,
		CompactionThreshold:    cfg.Agent.CompactionThreshold,
		Temperature:            cfg.Agent.Temperature,
		MaxResponseTokens:      cfg.Agent.MaxResponseTokens,
		MaxTurns:               cfg.Agent.MaxTurns,
		Timeout:                cfg.Agent.Timeout,
		PreserveRecentMessages: cfg.Agent.PreserveRecentMessages,
	}

	registry := tools.NewRegistry()
	sandbox := tools.Sandbox{Root: cfg.Sandbox.Root, ProtectedPaths: cfg.Sandbox.ProtectedPaths}
	if err := registry.Register(toolsexec.Tool(sandbox.Root)); err != nil {
		return nil, fmt.Errorf("runtime: register run_code: %w", err)
	}
	if err := registry.Register(tools.CreateToolDefinition(registry, pluginhost.Loader(pluginhost.DefaultTimeout))); err != nil {
		return nil, fmt.Errorf("runtime: register create_tool: %w", err)
	}

	main := mainagent.New(registry, agentCfg, client, store)
	main.Core.SetLogger(logger)

	scheduler := tournament.NewScheduler(cfg.Tournament.BaseDir, cfg.Tournament.MaxParallel, agentCfg, client, metrics)
	scheduler.Logger = logger

	rt := &Runtime{
		Config:      cfg,
		Client:      client,
		Metrics:     metrics,
		Logger:      logger,
		Store:       store,
		MainAgent:   main,
		Scheduler:   scheduler,
		subagentCfg: agentCfg,
	}

	if err := rt.restore(); err != nil {
		return nil, fmt.Errorf("runtime: restore state: %w", err)
	}

	return rt, nil
}

// restore loads every persisted entity into the freshly constructed Main
// Agent and tournament scheduler (spec.md §6's persisted-state obligation:
// "the store survives process restart and preserves invariants").
func (rt *Runtime) restore() error {
	if err := rt.Store.LoadTodos(rt.MainAgent.Todos); err != nil {
		return err
	}
	if err := rt.Store.LoadJournal(rt.MainAgent.Journal); err != nil {
		return err
	}
	if err := rt.Store.LoadQuestions(rt.MainAgent.Questions); err != nil {
		return err
	}
	if err := rt.Store.LoadPromptQueue(rt.MainAgent.Queue); err != nil {
		return err
	}
	tournaments, err := rt.Store.LoadTournaments()
	if err != nil {
		return err
	}
	rt.Scheduler.Restore(tournaments)

	if payload, ok, err := rt.Store.LoadContextSnapshot(rt.MainAgent.Core.AgentID); err != nil {
		return err
	} else if ok {
		if err := rt.MainAgent.Core.Context().Import(payload); err != nil {
			return err
		}
	}
	return nil
}

// persist snapshots every mutable entity back to the store. Called on
// Stop() and FactoryReset(); spec.md §1 explicitly disclaims
// exactly-once persistence, so this is a best-effort snapshot, not a
// transaction log.
func (rt *Runtime) persist() error {
	if err := rt.Store.SaveTodos(rt.MainAgent.Todos.List()); err != nil {
		return err
	}
	if err := rt.Store.SaveJournal(rt.MainAgent.Journal.Recent(0)); err != nil {
		return err
	}
	if err := rt.Store.SaveQuestions(rt.MainAgent.Questions.List("")); err != nil {
		return err
	}
	if err := rt.Store.SavePromptQueue(rt.MainAgent.Queue.List()); err != nil {
		return err
	}
	for _, t := range rt.Scheduler.List() {
		if err := rt.Store.SaveTournament(t); err != nil {
			return err
		}
	}
	snapshot, err := rt.MainAgent.Core.Context().Export()
	if err != nil {
		return err
	}
	return rt.Store.SaveContextSnapshot(rt.MainAgent.Core.AgentID, snapshot)
}

// Start launches the Main Agent's perpetual loop in the background (spec.md
// §6's "Lifecycle: start(max_iterations?)"). Calling Start while already
// running is a no-op error.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	if rt.running {
		rt.mu.Unlock()
		return fmt.Errorf("runtime: already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	rt.runDone = make(chan struct{})
	rt.running = true
	rt.mu.Unlock()

	go func() {
		defer close(rt.runDone)
		rt.MainAgent.Run(runCtx)
		rt.mu.Lock()
		rt.running = false
		rt.mu.Unlock()
	}()
	return nil
}

// Stop requests the Main Agent to stop and blocks until it does, then
// persists state (spec.md §6's "Exit semantics": the control process
// exits zero on clean shutdown).
func (rt *Runtime) Stop(timeout time.Duration) error {
	rt.mu.Lock()
	cancel := rt.cancel
	done := rt.runDone
	rt.mu.Unlock()

	rt.MainAgent.Core.Stop()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		if timeout <= 0 {
			<-done
		} else {
			select {
			case <-done:
			case <-time.After(timeout):
			}
		}
	}
	return rt.persist()
}

// Pause/Resume delegate to the Main Agent's Core (spec.md §6).
func (rt *Runtime) Pause() error  { return rt.MainAgent.Core.Pause() }
func (rt *Runtime) Resume() error { return rt.MainAgent.Core.Resume() }

// Status returns the Main Agent's current lifecycle snapshot plus its
// durable loop_count (spec.md §6's "status()").
func (rt *Runtime) Status() (agent.State, int) {
	return rt.MainAgent.Core.GetStatus(), rt.MainAgent.LoopCount()
}

// Restart implements spec.md §6's "restart({prompt?, keep_context})": stop
// the current run, optionally reset the context, set a new goal prompt,
// and start again.
func (rt *Runtime) Restart(ctx context.Context, prompt string, keepContext bool) error {
	if err := rt.Stop(5 * time.Second); err != nil {
		return err
	}
	if !keepContext {
		rt.MainAgent.Core.Context().Reset()
	}
	if prompt != "" {
		rt.MainAgent.SetGoal(prompt)
	}
	return rt.Start(ctx)
}

// FactoryReset implements spec.md §6's "factory_reset({confirm, backup})".
// It is idempotent: calling it twice in a row observably matches calling
// it once, since the second call resets an already-empty store.
func (rt *Runtime) FactoryReset(ctx context.Context, confirm bool) error {
	if !confirm {
		return fmt.Errorf("runtime: factory_reset requires confirm=true")
	}
	if rt.isRunning() {
		if err := rt.Stop(5 * time.Second); err != nil {
			return err
		}
	}
	if err := rt.Store.FactoryReset(ctx); err != nil {
		return err
	}
	rt.MainAgent.Todos.Restore(nil)
	rt.MainAgent.Journal.Restore(nil)
	rt.MainAgent.Questions.Restore(nil)
	rt.MainAgent.Queue.Restore(nil)
	rt.MainAgent.Core.Context().Reset()
	return nil
}

func (rt *Runtime) isRunning() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.running
}

// CallSubagent implements spec.md §4.6's "call_subagent" single-agent
// invocation: one agent, one round, tools as requested.
func (rt *Runtime) CallSubagent(ctx context.Context, containerRoot, goal string, includeSearch, includeExec bool, timeout time.Duration) (subagent.Result, error) {
	cfg := rt.subagentCfg
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	var extra []tools.Tool
	if includeExec {
		extra = append(extra, toolsexec.Tool(containerRoot))
	}
	if includeSearch {
		extra = append(extra, websearch.Tool())
	}

	a, err := subagent.New(containerRoot, fmt.Sprintf("subagent-%d", time.Now().UnixNano()), subagent.Params{
		Goal:          goal,
		IncludeSearch: includeSearch,
		IncludeExec:   includeExec,
	}, cfg, rt.Client, extra...)
	if err != nil {
		return subagent.Result{}, err
	}
	a.Core.SetLogger(rt.Logger)
	return a.Run(ctx), nil
}
