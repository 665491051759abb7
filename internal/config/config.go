// Package config loads the agent substrate's on-disk configuration: LLM
// model defaults, context/compaction tuning, sandbox roots, tournament
// scheduling defaults, and observability settings.
//
// Grounded on github.com/haasonsaas/nexus/internal/config's YAML-plus-
// environment-override idiom (config.go's top-level Config struct,
// LoadRaw's $include-free env-var expansion via os.ExpandEnv before
// unmarshal) and github.com/joho/godotenv for .env loading, as the
// teacher's cmd/nexus/main.go does at process startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the curiosityctl process.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Agent       AgentConfig       `yaml:"agent"`
	Sandbox     SandboxConfig     `yaml:"sandbox"`
	Tournament  TournamentConfig  `yaml:"tournament"`
	State       StateConfig       `yaml:"state"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// LLMConfig configures the Anthropic client.
type LLMConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	SummarizerModel string `yaml:"summarizer_model"`
}

// AgentConfig holds the defaults applied to every agent.Config an agent
// variant is constructed with (spec.md §3's AgentConfig), overridable per
// call site.
type AgentConfig struct {
	MaxTokens              int           `yaml:"max_tokens"`
	CompactionThreshold    float64       `yaml:"compaction_threshold"`
	Temperature            float64       `yaml:"temperature"`
	MaxResponseTokens      int           `yaml:"max_response_tokens"`
	MaxTurns               int           `yaml:"max_turns"`
	Timeout                time.Duration `yaml:"timeout"`
	PreserveRecentMessages int           `yaml:"preserve_recent_messages"`
}

// SandboxConfig configures the filesystem containment every file-touching
// tool enforces (spec.md §4.4).
type SandboxConfig struct {
	Root           string   `yaml:"root"`
	ProtectedPaths []string `yaml:"protected_paths"`
}

// TournamentConfig configures the tournament scheduler's defaults (spec.md
// §4.6).
type TournamentConfig struct {
	BaseDir     string `yaml:"base_dir"`
	MaxParallel int64  `yaml:"max_parallel"`
}

// StateConfig configures the persistence adapter (internal/state).
type StateConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures internal/observability.Logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus metrics HTTP exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration applied before a config file
// or environment overrides are layered on.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:           "claude-sonnet-4-5",
			SummarizerModel: "claude-sonnet-4-5",
		},
		Agent: AgentConfig{
			MaxTokens:              180_000,
			CompactionThreshold:    0.8,
			Temperature:            0.7,
			MaxResponseTokens:      4096,
			PreserveRecentMessages: 6,
		},
		Sandbox: SandboxConfig{
			Root: "./workspace",
		},
		Tournament: TournamentConfig{
			BaseDir:     "./tournaments",
			MaxParallel: 8,
		},
		State: StateConfig{
			Path: "./curiosity.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Load reads a .env file (if present, silently ignored if not), reads a
// YAML config file at path (skipped if path is empty or unreadable-because-
// absent), and applies CURIOSITY_-prefixed environment variable overrides
// on top. Precedence, lowest to highest: Default() < file < environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers CURIOSITY_-prefixed (and the conventional
// ANTHROPIC_API_KEY) environment variables over the loaded configuration,
// the highest-precedence layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CURIOSITY_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("CURIOSITY_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("CURIOSITY_SANDBOX_ROOT"); v != "" {
		cfg.Sandbox.Root = v
	}
	if v := os.Getenv("CURIOSITY_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("CURIOSITY_TOURNAMENT_MAX_PARALLEL"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Tournament.MaxParallel = n
		}
	}
	if v := os.Getenv("CURIOSITY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the invariants the rest of the runtime relies on:
// compaction threshold within spec.md §3's [0.5, 0.95] range, a nonempty
// sandbox root, and at least one preserved recent message.
func (c *Config) Validate() error {
	if c.Agent.CompactionThreshold < 0.5 || c.Agent.CompactionThreshold > 0.95 {
		return fmt.Errorf("config: agent.compaction_threshold must be in [0.5, 0.95], got %.3f", c.Agent.CompactionThreshold)
	}
	if c.Agent.PreserveRecentMessages < 1 {
		return fmt.Errorf("config: agent.preserve_recent_messages must be >= 1")
	}
	if strings.TrimSpace(c.Sandbox.Root) == "" {
		return fmt.Errorf("config: sandbox.root is required")
	}
	if c.Tournament.MaxParallel <= 0 {
		c.Tournament.MaxParallel = 8
	}
	return nil
}
