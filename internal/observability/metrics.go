package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting runtime metrics
// for the agent substrate: LLM call performance, tool dispatch outcomes,
// and tournament fan-out/round progress.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	defer metrics.LLMRequestDuration("anthropic", "claude-sonnet-4").Observe(time.Since(start).Seconds())
type Metrics struct {
	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider, model, and status.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// AgentStatus is a gauge of agents currently in a given status.
	// Labels: agent_type (main|subagent|tournament_agent), status
	AgentStatus *prometheus.GaugeVec

	// CompactionCounter counts context compactions by outcome.
	// Labels: outcome (success|rejected_empty|error)
	CompactionCounter *prometheus.CounterVec

	// TournamentRoundAgents tracks the configured agent count per running round.
	// Labels: tournament_id
	TournamentRoundAgents *prometheus.GaugeVec

	// TournamentAgentsRunning tracks agents currently running within a
	// tournament, bounded by the scheduler's max_parallel semaphore.
	// Labels: tournament_id
	TournamentAgentsRunning *prometheus.GaugeVec

	// TournamentRoundDuration measures wall-clock round duration in seconds.
	// Labels: tournament_id
	TournamentRoundDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curiosity_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curiosity_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curiosity_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),
		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curiosity_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curiosity_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
		AgentStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curiosity_agent_status",
				Help: "Number of agents currently in a given status, by agent type",
			},
			[]string{"agent_type", "status"},
		),
		CompactionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curiosity_compactions_total",
				Help: "Total number of context compactions by outcome",
			},
			[]string{"outcome"},
		),
		TournamentRoundAgents: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curiosity_tournament_round_agents",
				Help: "Configured agent count for the currently running round",
			},
			[]string{"tournament_id"},
		),
		TournamentAgentsRunning: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curiosity_tournament_agents_running",
				Help: "Agents currently running within a tournament round",
			},
			[]string{"tournament_id"},
		),
		TournamentRoundDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curiosity_tournament_round_duration_seconds",
				Help:    "Wall-clock duration of a tournament round",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"tournament_id"},
		),
	}
}

// RecordLLMRequest records an LLM request's latency, status, and token usage.
func (m *Metrics) RecordLLMRequest(provider, model, status string, seconds float64, promptTokens, completionTokens int) {
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records a tool dispatch's outcome and latency.
func (m *Metrics) RecordToolExecution(toolName, status string, seconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(seconds)
}

// SetAgentStatus sets the gauge for one (agent_type, status) pair. Callers
// typically decrement the old status and increment the new one around a
// transition.
func (m *Metrics) SetAgentStatus(agentType, status string, delta float64) {
	m.AgentStatus.WithLabelValues(agentType, status).Add(delta)
}

// RecordCompaction records a compaction attempt's outcome.
func (m *Metrics) RecordCompaction(outcome string) {
	m.CompactionCounter.WithLabelValues(outcome).Inc()
}

// RecordTournamentRound records a completed round's configured agent count
// and wall-clock duration.
func (m *Metrics) RecordTournamentRound(tournamentID string, seconds float64, agentCount int) {
	m.TournamentRoundAgents.WithLabelValues(tournamentID).Set(float64(agentCount))
	m.TournamentRoundDuration.WithLabelValues(tournamentID).Observe(seconds)
}
