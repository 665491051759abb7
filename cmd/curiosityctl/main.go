// Package main provides the CLI entry point for the curiosity autonomous
// agent runtime.
//
// curiosityctl drives a single Main Agent's perpetual loop (spec.md §4.7),
// the control surface spec.md §6 describes (lifecycle, prompt queue,
// questions, todos, journal, tournaments, call_subagent), and persists all
// of it to a local SQLite store so state survives a restart.
//
// # Basic Usage
//
// Start the Main Agent with a goal:
//
//	curiosityctl start --config curiosity.yaml --goal "Explore the search space for X"
//
// Check status:
//
//	curiosityctl status
//
// Inspect and drive a tournament:
//
//	curiosityctl tournament create "topic" --stages 4,2,1
//	curiosityctl tournament start <id>
//	curiosityctl tournament get <id>
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY / CURIOSITY_LLM_API_KEY: Anthropic API key
//   - CURIOSITY_SANDBOX_ROOT: sandbox root for file/run_code tools
//   - CURIOSITY_STATE_PATH: SQLite database path
//   - CURIOSITY_LOG_LEVEL: log level override
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/curiosity/internal/agent/mainagent"
	"github.com/haasonsaas/curiosity/internal/config"
	"github.com/haasonsaas/curiosity/internal/runtime"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with every subcommand attached.
// Separated from main() so tests can exercise it directly.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "curiosityctl",
		Short: "curiosityctl - autonomous agent runtime control surface",
		Long: `curiosityctl drives a perpetual-loop Main Agent backed by an LLM,
with a tournament scheduler for parallel multi-round exploration and a
sandboxed tool surface (file I/O, code execution, dynamically created
tools).`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildStartCmd(),
		buildStopCmd(),
		buildPauseCmd(),
		buildResumeCmd(),
		buildRestartCmd(),
		buildStatusCmd(),
		buildFactoryResetCmd(),
		buildPromptCmd(),
		buildQuestionsCmd(),
		buildTodosCmd(),
		buildJournalCmd(),
		buildGoalCmd(),
		buildTournamentCmd(),
		buildSubagentCmd(),
	)

	return rootCmd
}

const defaultConfigPath = "curiosity.yaml"

func loadRuntime(configPath string) (*runtime.Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return runtime.New(cfg)
}

func buildStartCmd() *cobra.Command {
	var configPath string
	var goal string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Main Agent's perpetual loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(goal) != "" {
				rt.MainAgent.SetGoal(goal)
			}
			if err := rt.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Main agent started: %s\n", rt.MainAgent.Core.AgentID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&goal, "goal", "", "Goal text to set before starting")
	return cmd
}

func buildStopCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the Main Agent and persist state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if err := rt.Stop(0); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildPauseCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the Main Agent between steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if err := rt.Pause(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Paused.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildResumeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused Main Agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if err := rt.Resume(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Resumed.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildRestartCmd() *cobra.Command {
	var configPath, prompt string
	var keepContext bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop, optionally reset context, and start the Main Agent again",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if err := rt.Restart(cmd.Context(), prompt, keepContext); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Restarted.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&prompt, "prompt", "", "New goal prompt to set on restart")
	cmd.Flags().BoolVar(&keepContext, "keep-context", false, "Preserve the existing conversation context")
	return cmd
}

func buildStatusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the Main Agent's lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			state, loopCount := rt.Status()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Agent:      %s (%s)\n", state.AgentID, state.AgentType)
			fmt.Fprintf(out, "Status:     %s\n", state.Status)
			fmt.Fprintf(out, "Turn count: %d\n", state.TurnCount)
			fmt.Fprintf(out, "Loop count: %d\n", loopCount)
			if state.CompletionReason != "" {
				fmt.Fprintf(out, "Completion: %s\n", state.CompletionReason)
			}
			if state.Error != "" {
				fmt.Fprintf(out, "Error:      %s\n", state.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildFactoryResetCmd() *cobra.Command {
	var configPath string
	var confirm bool
	cmd := &cobra.Command{
		Use:   "factory-reset",
		Short: "Wipe all persisted state (todos, journal, questions, prompt queue, tournaments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("factory-reset requires --confirm")
			}
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if err := rt.FactoryReset(cmd.Context(), confirm); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Factory reset complete.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the irreversible reset")
	return cmd
}

// buildPromptCmd creates the "prompt" command group (spec.md §6's prompt
// queue operations).
func buildPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage the Main Agent's prompt queue",
	}
	cmd.AddCommand(buildPromptEnqueueCmd(), buildPromptListCmd(), buildPromptRemoveCmd(), buildPromptClearCmd())
	return cmd
}

func buildPromptEnqueueCmd() *cobra.Command {
	var configPath, priority string
	cmd := &cobra.Command{
		Use:   "enqueue [text]",
		Short: "Enqueue a prompt for injection into the Main Agent's context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			id := rt.MainAgent.Queue.Enqueue(args[0], mainagent.Priority(priority))
			fmt.Fprintf(cmd.OutOrStdout(), "Enqueued: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&priority, "priority", string(mainagent.PriorityNormal), "Priority: high or normal")
	return cmd
}

func buildPromptListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued prompts in dequeue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, rt.MainAgent.Queue.List())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildPromptRemoveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a queued prompt by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			rt.MainAgent.Queue.Remove(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildPromptClearCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the prompt queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			rt.MainAgent.Queue.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildQuestionsCmd creates the "questions" command group.
func buildQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List and answer questions the Main Agent has raised",
	}
	cmd.AddCommand(buildQuestionsListCmd(), buildQuestionsAnswerCmd())
	return cmd
}

func buildQuestionsListCmd() *cobra.Command {
	var configPath, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions, optionally filtered by status (pending|answered)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, rt.MainAgent.Questions.List(mainagent.QuestionStatus(status)))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: pending, answered, or empty for all")
	return cmd
}

func buildQuestionsAnswerCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "answer [id] [answer]",
		Short: "Answer a pending question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			if !rt.MainAgent.Questions.Answer(args[0], args[1]) {
				return fmt.Errorf("question %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Answered.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildTodosCmd creates the "todos" command group.
func buildTodosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todos",
		Short: "Manage the Main Agent's todo list",
	}
	cmd.AddCommand(buildTodosAddCmd(), buildTodosListCmd(), buildTodosSetStatusCmd(), buildTodosRemoveCmd())
	return cmd
}

func buildTodosAddCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new pending todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			id := rt.MainAgent.Todos.Add(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildTodosListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all todos",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, rt.MainAgent.Todos.List())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildTodosSetStatusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "set-status [id] [pending|in_progress|done]",
		Short: "Update a todo's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			rt.MainAgent.Todos.SetStatus(args[0], mainagent.TodoStatus(args[1]))
			fmt.Fprintln(cmd.OutOrStdout(), "Updated.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildTodosRemoveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a todo by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			rt.MainAgent.Todos.Remove(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildJournalCmd creates the "journal" command group.
func buildJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and append to the Main Agent's journal",
	}
	cmd.AddCommand(buildJournalListCmd(), buildJournalWriteCmd())
	return cmd
}

func buildJournalListCmd() *cobra.Command {
	var configPath string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, rt.MainAgent.Journal.Recent(limit))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 for all)")
	return cmd
}

func buildJournalWriteCmd() *cobra.Command {
	var configPath, entryType, title string
	cmd := &cobra.Command{
		Use:   "write [content]",
		Short: "Append a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			id := rt.MainAgent.Journal.Write(mainagent.EntryType(entryType), title, args[0], nil)
			fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&entryType, "type", string(mainagent.EntryFreeform), "Entry type")
	cmd.Flags().StringVar(&title, "title", "", "Entry title")
	return cmd
}

// buildGoalCmd creates the "goal" command for setting the Main Agent's goal.
func buildGoalCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "goal [text]",
		Short: "Set the Main Agent's current goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			rt.MainAgent.SetGoal(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), "Goal set.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildTournamentCmd creates the "tournament" command group (spec.md §4.6).
func buildTournamentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tournament",
		Short: "Create, run, and inspect tournaments",
	}
	cmd.AddCommand(
		buildTournamentCreateCmd(),
		buildTournamentStartCmd(),
		buildTournamentGetCmd(),
		buildTournamentListCmd(),
	)
	return cmd
}

func buildTournamentCreateCmd() *cobra.Command {
	var configPath, stages, model string
	cmd := &cobra.Command{
		Use:   "create [topic]",
		Short: "Create a pending tournament with the given per-round agent counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			counts, err := parseStages(stages)
			if err != nil {
				return err
			}
			t, err := rt.Scheduler.Create(args[0], counts, model)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tournament: %s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&stages, "stages", "4,2,1", "Comma-separated per-round agent counts")
	cmd.Flags().StringVar(&model, "model", "", "Model override for this tournament's agents")
	return cmd
}

func buildTournamentStartCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "start [id]",
		Short: "Run a pending tournament to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			t, err := rt.Scheduler.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildTournamentGetCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one tournament's full record, including rounds and final output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			t, ok := rt.Scheduler.Get(args[0])
			if !ok {
				return fmt.Errorf("tournament %q not found", args[0])
			}
			return printJSON(cmd, t)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

func buildTournamentListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every known tournament",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, rt.Scheduler.List())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildSubagentCmd creates the "subagent" command for spec.md §4.6's
// single-agent call_subagent invocation.
func buildSubagentCmd() *cobra.Command {
	var configPath, root string
	var includeSearch, includeExec bool
	cmd := &cobra.Command{
		Use:   "subagent [goal]",
		Short: "Run one Sub-Agent synchronously with the given goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(configPath)
			if err != nil {
				return err
			}
			result, err := rt.CallSubagent(cmd.Context(), root, args[0], includeSearch, includeExec, 0)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&root, "root", "./subagent-workspace", "Container root directory for this invocation")
	cmd.Flags().BoolVar(&includeSearch, "search", false, "Offer the web_search tool")
	cmd.Flags().BoolVar(&includeExec, "exec", false, "Offer the run_code tool")
	return cmd
}

func parseStages(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid stage count %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
