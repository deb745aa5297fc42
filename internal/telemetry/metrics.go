// Package telemetry provides the Prometheus metrics and OpenTelemetry span
// glue scoped to the agent execution core's four components (§2's Metrics
// row): the parallel tool executor, the sandbox layer, the context
// compactor, and the render gate.
//
// It owns its own prometheus.Registry rather than registering into the
// default one, following pkg/observability/metrics.go in the
// kadirpekel-hector example repo, so a caller can mount it under any HTTP
// path (or none) and tests can construct isolated instances without
// colliding on duplicate registration.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the counters/histograms/gauges the four core components
// emit during a session.
type Metrics struct {
	registry *prometheus.Registry

	// Executor (§4.4)
	ToolExecutions    *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	ToolParallelReads prometheus.Counter
	ToolSerialWrites  prometheus.Counter

	// Sandbox (§4.5)
	SandboxExecutions *prometheus.CounterVec
	SandboxDuration   *prometheus.HistogramVec
	SandboxDenials    *prometheus.CounterVec

	// Compactor (§4.6)
	Compactions        prometheus.Counter
	CompactionTokens   *prometheus.HistogramVec
	ConversationTokens prometheus.Gauge

	// Render gate (§4.7)
	RenderGateScans      prometheus.Counter
	RenderGateViolations *prometheus.CounterVec
	RenderGateNumbers    *prometheus.CounterVec
}

// NewMetrics builds a Metrics bound to a fresh, private registry. namespace
// prefixes every metric name (e.g. "agentcore"); it may be empty.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tool_executions_total",
			Help:      "Total tool calls completed, by tool name and outcome.",
		}, []string{"tool_name", "outcome"}),

		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tool_duration_seconds",
			Help:      "Tool call handler duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"tool_name"}),

		ToolParallelReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "parallel_reads_total",
			Help:      "Total calls dispatched under a shared read guard.",
		}),

		ToolSerialWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "serial_writes_total",
			Help:      "Total calls dispatched under the exclusive write guard.",
		}),

		SandboxExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "executions_total",
			Help:      "Total sandboxed subprocess executions, by backend and outcome.",
		}, []string{"backend", "outcome"}),

		SandboxDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "execution_duration_seconds",
			Help:      "Sandboxed subprocess wall-clock duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"backend"}),

		SandboxDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "denials_total",
			Help:      "Total sandbox denials detected, by backend.",
		}, []string{"backend"}),

		Compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compactor",
			Name:      "compactions_total",
			Help:      "Total non-no-op compactions performed.",
		}),

		CompactionTokens: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compactor",
			Name:      "compacted_messages",
			Help:      "Number of old messages folded into a summary per compaction.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"outcome"}),

		ConversationTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compactor",
			Name:      "conversation_tokens_estimated",
			Help:      "Most recent estimated token count of the active transcript.",
		}),

		RenderGateScans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rendergate",
			Name:      "scans_total",
			Help:      "Total assistant replies screened by the render gate.",
		}),

		RenderGateViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rendergate",
			Name:      "violations_total",
			Help:      "Total replies flagged with an unprovenanced material property.",
		}, []string{"flag"}),

		RenderGateNumbers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rendergate",
			Name:      "numbers_classified_total",
			Help:      "Total detected numbers, by classification.",
		}, []string{"classification"}),
	}

	registry.MustRegister(
		m.ToolExecutions, m.ToolDuration, m.ToolParallelReads, m.ToolSerialWrites,
		m.SandboxExecutions, m.SandboxDuration, m.SandboxDenials,
		m.Compactions, m.CompactionTokens, m.ConversationTokens,
		m.RenderGateScans, m.RenderGateViolations, m.RenderGateNumbers,
	)
	return m
}

// Registry returns the private registry backing m, for mounting under an
// HTTP handler (e.g. promhttp.HandlerFor(m.Registry(), ...)).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordToolExecution records one completed tool call (§4.4).
func (m *Metrics) RecordToolExecution(toolName string, parallel, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.ToolExecutions.WithLabelValues(toolName, outcome).Inc()
	m.ToolDuration.WithLabelValues(toolName).Observe(duration.Seconds())
	if parallel {
		m.ToolParallelReads.Inc()
	} else {
		m.ToolSerialWrites.Inc()
	}
}

// RecordSandboxExecution records one sandboxed subprocess run (§4.5).
func (m *Metrics) RecordSandboxExecution(backend string, denied bool, duration time.Duration) {
	outcome := "allowed"
	if denied {
		outcome = "denied"
		m.SandboxDenials.WithLabelValues(backend).Inc()
	}
	m.SandboxExecutions.WithLabelValues(backend, outcome).Inc()
	m.SandboxDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordCompaction records one Compactor.Compact call's outcome (§4.6).
func (m *Metrics) RecordCompaction(noop bool, oldMessageCount int) {
	outcome := "compacted"
	if noop {
		outcome = "no_op"
	} else {
		m.Compactions.Inc()
	}
	m.CompactionTokens.WithLabelValues(outcome).Observe(float64(oldMessageCount))
}

// RecordRenderGateScan records one Gate.Analyze call's classified numbers
// and whether it produced a violation (§4.7).
func (m *Metrics) RecordRenderGateScan(classifications []string, flags []string) {
	m.RenderGateScans.Inc()
	for _, c := range classifications {
		m.RenderGateNumbers.WithLabelValues(c).Inc()
	}
	for _, f := range flags {
		m.RenderGateViolations.WithLabelValues(f).Inc()
	}
}
