package pluginhost

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

// This file uses the standard re-exec trick for testing a subprocess
// protocol: the test binary re-invokes itself with a sentinel environment
// variable set, so TestMain can short-circuit into acting as the plugin
// executable rather than running the test suite. Grounded on the same
// pattern github.com/haasonsaas/nexus/cmd/nexus-plugin-runner's own tests
// use to exercise its stdin/stdout protocol without a separate fixture
// binary.
const reexecEnvVar = "CURIOSITY_PLUGINHOST_TEST_HELPER"

func TestMain(m *testing.M) {
	switch os.Getenv(reexecEnvVar) {
	case "echo":
		runEchoHelper()
		return
	case "fail":
		runFailHelper()
		return
	case "hang":
		time.Sleep(time.Hour)
		return
	}
	os.Exit(m.Run())
}

func runEchoHelper() {
	var req execRequest
	_ = json.NewDecoder(os.Stdin).Decode(&req)
	_ = json.NewEncoder(os.Stdout).Encode(execResponse{Result: req.Arguments})
}

func runFailHelper() {
	_ = json.NewEncoder(os.Stdout).Encode(execResponse{Error: "helper exploded"})
}

func selfExecWith(t *testing.T, mode string) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	t.Setenv(reexecEnvVar, mode)
	return exe
}

func TestLoaderRoundTripsArguments(t *testing.T) {
	exe := selfExecWith(t, "echo")
	loader := Loader(2 * time.Second)
	handler, err := loader(context.Background(), exe)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	result, err := handler(context.Background(), map[string]any{"x": float64(1)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", result)
	}
	if m["x"] != float64(1) {
		t.Errorf("expected echoed argument x=1, got %v", m["x"])
	}
}

func TestLoaderSurfacesPluginReportedError(t *testing.T) {
	exe := selfExecWith(t, "fail")
	loader := Loader(2 * time.Second)
	handler, err := loader(context.Background(), exe)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	if _, err := handler(context.Background(), map[string]any{}); err == nil {
		t.Error("expected the plugin's reported error to surface")
	}
}

func TestLoaderTimesOutOnHangingProcess(t *testing.T) {
	exe := selfExecWith(t, "hang")
	loader := Loader(50 * time.Millisecond)
	handler, err := loader(context.Background(), exe)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}

	if _, err := handler(context.Background(), map[string]any{}); err == nil {
		t.Error("expected a hanging plugin process to time out")
	}
}

func TestLoaderRejectsEmptyImplementation(t *testing.T) {
	loader := Loader(DefaultTimeout)
	if _, err := loader(context.Background(), "   "); err == nil {
		t.Error("expected an empty implementation string to be rejected")
	}
}

func TestLoaderRejectsShellMetacharactersInExecutable(t *testing.T) {
	loader := Loader(DefaultTimeout)
	if _, err := loader(context.Background(), "/bin/sh; rm -rf /"); err == nil {
		t.Error("expected an executable with shell metacharacters to be rejected")
	}
}

func TestLoaderRejectsShellMetacharactersInArgs(t *testing.T) {
	exe := selfExecWith(t, "echo")
	loader := Loader(DefaultTimeout)
	if _, err := loader(context.Background(), exe+" foo;bar"); err == nil {
		t.Error("expected an argument containing a shell metacharacter to be rejected")
	}
}
