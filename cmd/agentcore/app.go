package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crystalyse/agentcore/internal/artifacts"
	"github.com/crystalyse/agentcore/internal/compaction"
	"github.com/crystalyse/agentcore/internal/exec"
	"github.com/crystalyse/agentcore/internal/executor"
	"github.com/crystalyse/agentcore/internal/observability"
	"github.com/crystalyse/agentcore/internal/rendergate"
	"github.com/crystalyse/agentcore/internal/sandbox"
	"github.com/crystalyse/agentcore/internal/telemetry"
	"github.com/crystalyse/agentcore/internal/turndriver"
	"github.com/crystalyse/agentcore/pkg/models"
)

// app wires the four core components (executor, sandbox-backed exec tool,
// compactor, render gate) plus the observability/telemetry glue into one
// turndriver.Driver, assembled from one Config value.
type app struct {
	driver   *turndriver.Driver
	tracker  *artifacts.Tracker
	metrics  *telemetry.Metrics
	shutdown func(context.Context) error
}

func newApp(cfg Config) (*app, error) {
	logger := slog.Default()

	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Telemetry.Namespace,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		EnableInsecure: cfg.Tracing.EnableInsecure,
	})
	spans := telemetry.NewSpans(tracer)

	backend := sandbox.GetBackend(logger)
	mgr := exec.NewManager(cfg.Workspace, backend, cfg.sandboxPolicy(), logger).WithSpans(spans)

	registry := executor.NewRegistry()
	if err := registry.Register(exec.Spec("run_command"), exec.Handler(mgr)); err != nil {
		return nil, fmt.Errorf("register exec tool: %w", err)
	}

	execCfg := executor.DefaultConfig()
	execCfg.Timeout = time.Duration(cfg.Executor.TimeoutSeconds) * time.Second
	execCfg.Logger = logger
	ex := executor.NewExecutor(registry, execCfg)

	tracker := artifacts.NewTracker(artifacts.Config{Logger: logger})
	gate := rendergate.NewGate(tracker, cfg.RenderGate.Tolerance)

	compCfg := compaction.Config{
		MaxTokens:        cfg.Compaction.MaxTokens,
		Threshold:        cfg.Compaction.Threshold,
		KeepRecent:       cfg.Compaction.KeepRecent,
		SummaryMaxTokens: cfg.Compaction.SummaryMaxTokens,
	}
	compactor := compaction.New(compCfg, nil)

	store := observability.NewMemoryEventStore(0)
	obsLogger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
	recorder := observability.NewEventRecorder(store, obsLogger)

	metrics := telemetry.NewMetrics(cfg.Telemetry.Namespace)

	driver := turndriver.New(turndriver.Config{
		Executor:  ex,
		Tracker:   tracker,
		Gate:      gate,
		Compactor: compactor,
		Recorder:  recorder,
		Spans:     spans,
		Logger:    logger,
	})

	return &app{driver: driver, tracker: tracker, metrics: metrics, shutdown: shutdown}, nil
}

// turnRequest is the JSON shape the `turn` subcommand reads from stdin.
type turnRequest struct {
	TurnID string                   `json:"turn_id"`
	Calls  []turndriver.CallRequest `json:"calls"`
	Reply  string                   `json:"reply"`
	Seed   []turnMessage            `json:"seed_transcript,omitempty"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func seedMessage(m turnMessage) models.Message {
	return models.Message{Role: models.Role(m.Role), Content: m.Content}
}

func (a *app) runTurn(ctx context.Context, req turnRequest) (*turndriver.TurnResult, error) {
	if req.TurnID == "" {
		req.TurnID = fmt.Sprintf("turn-%d", time.Now().UnixNano())
	}
	for _, m := range req.Seed {
		a.driver.AppendMessage(seedMessage(m))
	}

	result, err := a.driver.RunTurn(ctx, req.TurnID, req.Calls, req.Reply)
	if err != nil {
		return nil, err
	}
	for _, outcome := range result.Metrics.ToolCalls {
		a.metrics.RecordToolExecution(outcome.ToolName, outcome.Parallel, outcome.Success, outcome.EndTime.Sub(outcome.StartTime))
	}
	return result, nil
}
