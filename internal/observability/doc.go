// Package observability provides the ambient structured-logging,
// distributed-tracing, and event-timeline primitives shared by the agent
// execution core.
//
// # Overview
//
// The package covers two of the three observability pillars generically:
//
//  1. Logging - structured logs with sensitive data redaction
//  2. Tracing - distributed request tracing with OpenTelemetry
//
// plus an in-process event timeline (Event, EventStore, EventRecorder) used
// to replay a single turn or session for debugging. Prometheus metrics are
// scoped to the four core components and live in internal/telemetry instead
// of here, since "how many tool calls ran in parallel" and "how many render
// gate violations were flagged" only mean something with that context.
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request/turn/call ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx = observability.AddRunID(ctx, turnID)
//	ctx = observability.AddToolCallID(ctx, call.ID)
//
//	logger.Info(ctx, "tool call queued", "tool", call.Name)
//	logger.Error(ctx, "tool call failed", "error", err, "api_key", apiKey) // redacted
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a turn across the
// executor, sandbox, compactor, and render gate:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:  "agentcore",
//	    Endpoint:     "localhost:4317",
//	    SamplingRate: 0.1,
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceToolExecution(ctx, call.Name)
//	defer span.End()
//
// # Event timeline
//
// EventRecorder.RecordToolStart/RecordToolEnd and RecordRunStart/RecordRunEnd
// append to an EventStore, which the turn driver uses to build an
// append-only event timeline for replaying a turn after the fact.
//
// # Security Considerations
//
// The logging component automatically redacts API keys, passwords, secrets,
// JWTs, and bearer tokens in both message arguments and context-attached
// fields.
package observability
