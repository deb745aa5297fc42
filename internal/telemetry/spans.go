package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crystalyse/agentcore/internal/observability"
)

// Spans wraps an observability.Tracer with the core's four span kinds
// (§2's Metrics/telemetry row: spans around Executor.Queue/Drain, sandbox
// Execute, Compactor.Compact, and the render gate's Analyze).
type Spans struct {
	tracer *observability.Tracer
}

// NewSpans binds Spans to tracer. A nil tracer makes every method a no-op
// returning the input context and a no-op span, so callers can wire Spans
// unconditionally even when tracing is disabled.
func NewSpans(tracer *observability.Tracer) *Spans {
	return &Spans{tracer: tracer}
}

func (s *Spans) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name, observability.SpanOptions{
		Kind:       trace.SpanKindInternal,
		Attributes: attrs,
	})
}

// ToolCall traces one Executor.Queue/run invocation.
func (s *Spans) ToolCall(ctx context.Context, toolName string, parallel bool) (context.Context, trace.Span) {
	return s.start(ctx, "executor.tool_call",
		attribute.String("tool.name", toolName),
		attribute.Bool("tool.parallel", parallel),
	)
}

// SandboxExecute traces one sandbox backend Execute call.
func (s *Spans) SandboxExecute(ctx context.Context, backend string, cmd []string) (context.Context, trace.Span) {
	return s.start(ctx, "sandbox.execute",
		attribute.String("sandbox.backend", backend),
		attribute.StringSlice("sandbox.cmd", cmd),
	)
}

// Compaction traces one Compactor.Compact call.
func (s *Spans) Compaction(ctx context.Context, messageCount int) (context.Context, trace.Span) {
	return s.start(ctx, "compactor.compact", attribute.Int("compactor.message_count", messageCount))
}

// RenderGateAnalyze traces one Gate.Analyze call.
func (s *Spans) RenderGateAnalyze(ctx context.Context, textLength int) (context.Context, trace.Span) {
	return s.start(ctx, "rendergate.analyze", attribute.Int("rendergate.text_length", textLength))
}
