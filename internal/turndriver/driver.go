package turndriver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crystalyse/agentcore/internal/artifacts"
	"github.com/crystalyse/agentcore/internal/compaction"
	"github.com/crystalyse/agentcore/internal/executor"
	"github.com/crystalyse/agentcore/internal/observability"
	"github.com/crystalyse/agentcore/internal/rendergate"
	"github.com/crystalyse/agentcore/internal/telemetry"
	"github.com/crystalyse/agentcore/pkg/models"
)

// CallRequest is one tool invocation the reasoning model asked for within a
// turn, before the driver has assigned it a call id (§4.8: "allocate a call
// id from the turn id and an incrementing counter").
type CallRequest struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Config wires a Driver to the four core components plus the ambient
// observability sink (§6's event_sink option).
type Config struct {
	Executor  *executor.Executor
	Tracker   *artifacts.Tracker
	Gate      *rendergate.Gate
	Compactor *compaction.Compactor
	Recorder  *observability.EventRecorder
	Spans     *telemetry.Spans
	Logger    *slog.Logger
}

// TurnResult is everything RunTurn produces for one turn: the tool results
// in submission order, the aggregated metrics, and the render gate's
// verdict on the assistant's textual reply.
type TurnResult struct {
	TurnID          string
	Results         []models.ToolResult
	ToolEvents      []models.ToolEvent
	Metrics         executor.TurnMetrics
	DetectedNumbers []rendergate.DetectedNumber
	HasViolations   bool
	Transcript      []models.Message
}

// Driver implements §4.8: it allocates call ids, derives a per-call
// cancellation context from the turn's, queues calls onto the executor,
// drains them, registers artifacts, screens the assistant reply through the
// render gate, and compacts the transcript.
type Driver struct {
	executor  *executor.Executor
	tracker   *artifacts.Tracker
	gate      *rendergate.Gate
	compactor *compaction.Compactor
	recorder  *observability.EventRecorder
	spans     *telemetry.Spans
	logger    *slog.Logger

	mu         sync.Mutex
	transcript []models.Message
	callSeq    uint64
}

// New builds a Driver. Tracker, Gate, and Compactor may be nil to disable
// their respective stage (Executor must be set).
func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		executor:  cfg.Executor,
		tracker:   cfg.Tracker,
		gate:      cfg.Gate,
		compactor: cfg.Compactor,
		recorder:  cfg.Recorder,
		spans:     cfg.Spans,
		logger:    logger,
	}
}

// Transcript returns a snapshot of the current message list.
func (d *Driver) Transcript() []models.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Message, len(d.transcript))
	copy(out, d.transcript)
	return out
}

// AppendMessage appends a message to the transcript without running
// compaction; RunTurn calls this for the assistant's reply and then
// triggers compaction itself, but callers may use this directly to seed a
// session with prior user/system messages.
func (d *Driver) AppendMessage(m models.Message) {
	d.mu.Lock()
	d.transcript = append(d.transcript, m)
	d.mu.Unlock()
}

// nextCallID allocates a call id scoped to turnID, per §4.8.
func (d *Driver) nextCallID(turnID string) string {
	n := atomic.AddUint64(&d.callSeq, 1)
	return fmt.Sprintf("%s-%d", turnID, n)
}

// RunTurn feeds requests into the executor under turnCtx (whose
// cancellation cancels every call queued for this turn, per §5), drains the
// results, registers each successful call's output as an artifact, screens
// reply through the render gate, appends reply to the transcript, and
// compacts the transcript if it crosses threshold.
func (d *Driver) RunTurn(turnCtx context.Context, turnID string, requests []CallRequest, reply string) (*TurnResult, error) {
	turnStart := time.Now()
	if d.recorder != nil {
		ctx := observability.AddRunID(turnCtx, turnID)
		_ = d.recorder.RecordRunStart(ctx, turnID, map[string]any{"tool_calls": len(requests)})
	}

	calls := make([]models.ToolCall, len(requests))
	cancels := make([]context.CancelFunc, len(requests))
	for i, req := range requests {
		callID := d.nextCallID(turnID)
		calls[i] = models.ToolCall{ID: callID, Name: req.Name, Input: req.Input}

		callCtx, cancel := context.WithCancel(turnCtx)
		callCtx, span := d.spans.ToolCall(callCtx, req.Name, d.executor.SupportsParallel(req.Name))
		cancels[i] = chainCancel(cancel, func() { span.End() })
		if d.recorder != nil {
			_ = d.recorder.RecordToolStart(observability.AddToolCallID(callCtx, callID), req.Name, json.RawMessage(req.Input))
		}
		d.executor.Queue(callCtx, calls[i])
	}

	outcomes := d.executor.Drain()
	// Every call has finished (successfully, with an error, or cancelled);
	// release its child context now rather than waiting for turnCtx to end
	// (§4.1 resource cleanup — no watcher should outlive the work it guards).
	for _, cancel := range cancels {
		cancel()
	}

	results := make([]models.ToolResult, len(outcomes))
	toolEvents := make([]models.ToolEvent, len(outcomes))
	turnMetrics := executor.TurnMetrics{TurnID: turnID, StartTime: turnStart}
	for i, outcome := range outcomes {
		results[i] = outcome.Result
		turnMetrics.ToolCalls = append(turnMetrics.ToolCalls, outcome.Metrics)

		stage := models.ToolEventSucceeded
		var inputJSON json.RawMessage
		if i < len(requests) {
			inputJSON = requests[i].Input
		}
		event := models.ToolEvent{
			ToolCallID: outcome.Metrics.CallID,
			ToolName:   outcome.Metrics.ToolName,
			Input:      inputJSON,
			Output:     outcome.Result.Content,
			StartedAt:  outcome.Metrics.StartTime,
			FinishedAt: outcome.Metrics.EndTime,
		}
		if outcome.Result.IsError() {
			stage = models.ToolEventFailed
			event.Error = outcome.Result.Error
		} else if denied, reason := sandboxDenial(outcome.Result.Content); denied {
			stage = models.ToolEventDenied
			event.PolicyReason = reason
			if d.recorder != nil {
				_ = d.recorder.Record(turnCtx, observability.EventTypeSandboxDenied, outcome.Metrics.ToolName, map[string]any{
					"tool_call_id": outcome.Metrics.CallID,
					"reason":       reason,
				})
			}
		}
		event.Stage = stage
		toolEvents[i] = event

		if d.recorder != nil {
			var err error
			if outcome.Result.IsError() {
				err = fmt.Errorf("%s", outcome.Result.Error)
			}
			_ = d.recorder.RecordToolEnd(turnCtx, outcome.Metrics.ToolName, outcome.Metrics.EndTime.Sub(outcome.Metrics.StartTime), outcome.Result.Content, err)
		}

		if d.tracker != nil && !outcome.Result.IsError() && i < len(requests) {
			d.tracker.Register(turnCtx, outcome.Metrics.ToolName, outcome.Metrics.CallID, decodeRawInput(requests[i].Input), decodeOutput(outcome.Result.Content), outcome.Metrics.EndTime)
		}
	}

	var detected []rendergate.DetectedNumber
	hasViolations := false
	if d.gate != nil && reply != "" {
		_, gateSpan := d.spans.RenderGateAnalyze(turnCtx, len(reply))
		_, detected, hasViolations = d.gate.Analyze(reply)
		if hasViolations {
			d.logger.Warn("render gate flagged unprovenanced material property", "turn_id", turnID, "flagged", countFlagged(detected))
		}
		gateSpan.End()
	}

	if reply != "" {
		d.AppendMessage(models.Message{Role: models.RoleAssistant, Content: reply})
	}

	var transcript []models.Message
	if d.compactor != nil {
		d.mu.Lock()
		compactCtx, compactSpan := d.spans.Compaction(turnCtx, len(d.transcript))
		compacted, err := d.compactor.CompactIfNeeded(compactCtx, d.transcript)
		if err != nil {
			compactSpan.RecordError(err)
		} else {
			d.transcript = compacted
		}
		compactSpan.End()
		transcript = append([]models.Message(nil), d.transcript...)
		d.mu.Unlock()
	} else {
		transcript = d.Transcript()
	}

	if d.recorder != nil {
		_ = d.recorder.RecordRunEnd(turnCtx, time.Since(turnStart), nil)
	}

	return &TurnResult{
		TurnID:          turnID,
		Results:         results,
		ToolEvents:      toolEvents,
		Metrics:         turnMetrics,
		DetectedNumbers: detected,
		HasViolations:   hasViolations,
		Transcript:      transcript,
	}, nil
}

// chainCancel returns a CancelFunc that calls cancel and then end, so a
// call's span closes at the same point its context is released.
func chainCancel(cancel context.CancelFunc, end func()) context.CancelFunc {
	return func() {
		cancel()
		end()
	}
}

func countFlagged(detected []rendergate.DetectedNumber) int {
	n := 0
	for _, d := range detected {
		if d.HasFlag(rendergate.FlagUnprovenancedMaterialProperty) {
			n++
		}
	}
	return n
}

// sandboxDenial inspects a tool result's (typically JSON-serialised) content
// for the exec tool's sandbox_denied/denial_reason fields, so the driver can
// flag a denied command as such instead of reporting it as a plain success.
// Tools other than the sandboxed subprocess one never set these fields, so
// this is a no-op for them.
func sandboxDenial(content string) (bool, string) {
	m, ok := decodeOutput(content).(map[string]any)
	if !ok {
		return false, ""
	}
	denied, _ := m["sandbox_denied"].(bool)
	if !denied {
		return false, ""
	}
	reason, _ := m["denial_reason"].(string)
	return true, reason
}

func decodeRawInput(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// decodeOutput mirrors the artifact tracker's expectation of structured
// output where possible: a tool result's Content is typically serialised
// JSON (§3), so the driver decodes it back to a map/slice for extraction;
// plain strings fall back to the regex extractor in internal/artifacts.
func decodeOutput(content string) any {
	if content == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return content
	}
	return v
}
