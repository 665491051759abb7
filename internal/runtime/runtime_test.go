package runtime

import (
	"context"
	"testing"

	"github.com/haasonsaas/curiosity/internal/agent"
	"github.com/haasonsaas/curiosity/internal/agent/mainagent"
	"github.com/haasonsaas/curiosity/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.APIKey = "test-key"
	cfg.Sandbox.Root = t.TempDir()
	cfg.Tournament.BaseDir = t.TempDir()
	cfg.State.Path = ":memory:"
	return cfg
}

func TestNewWiresEveryComponent(t *testing.T) {
	rt, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rt.Client == nil || rt.Metrics == nil || rt.Logger == nil || rt.Store == nil {
		t.Fatal("expected New to populate Client/Metrics/Logger/Store")
	}
	if rt.MainAgent == nil || rt.MainAgent.Core == nil {
		t.Fatal("expected New to construct a Main Agent")
	}
	if rt.Scheduler == nil {
		t.Fatal("expected New to construct a tournament scheduler")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = ""
	if _, err := New(cfg); err == nil {
		t.Error("expected New to fail without an API key")
	}
}

func TestStatusReflectsInitializedAgent(t *testing.T) {
	rt, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	state, loopCount := rt.Status()
	if state.Status != agent.StatusInitialized {
		t.Errorf("expected initial status %q, got %q", agent.StatusInitialized, state.Status)
	}
	if loopCount != 0 {
		t.Errorf("expected loop count 0 before any steps, got %d", loopCount)
	}
}

func TestPauseBeforeStartIsError(t *testing.T) {
	rt, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := rt.Pause(); err == nil {
		t.Error("expected Pause before Start to fail")
	}
}

func TestStopBeforeStartIsSafeAndPersists(t *testing.T) {
	rt, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rt.MainAgent.Todos.Add("write the thing")
	if err := rt.Stop(0); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestFactoryResetRequiresConfirm(t *testing.T) {
	rt, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := rt.FactoryReset(context.Background(), false); err == nil {
		t.Error("expected FactoryReset without confirm to fail")
	}
}

func TestFactoryResetClearsMainAgentStores(t *testing.T) {
	rt, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rt.MainAgent.Todos.Add("explore idea X")
	rt.MainAgent.Journal.Write(mainagent.EntryIdea, "idea", "try approach Y", nil)
	if err := rt.FactoryReset(context.Background(), true); err != nil {
		t.Fatalf("FactoryReset: %v", err)
	}
	if len(rt.MainAgent.Todos.List()) != 0 {
		t.Error("expected FactoryReset to clear todos")
	}
}
