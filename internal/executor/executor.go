package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/crystalyse/agentcore/pkg/models"
)

// DefaultTimeout is the per-call handler timeout applied when Config.Timeout
// is zero (§4.4: "default suggested 300s").
const DefaultTimeout = 300 * time.Second

// Config configures an Executor.
type Config struct {
	// Timeout bounds how long a single handler invocation may run. Zero
	// means DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns the suggested configuration.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, Logger: slog.Default()}
}

// Outcome pairs a call's result with the metrics recorded for it. Callers
// aggregate Outcome.Metrics into a TurnMetrics keyed on whatever turn id
// they track; the executor itself has no notion of a turn.
type Outcome struct {
	Result  models.ToolResult
	Metrics ToolMetrics
}

// Executor runs tool calls against a Registry, serialising mutating calls
// against an exclusive lock and letting read-only calls run concurrently
// (§4.4). Queue is non-blocking; Drain awaits every queued call and returns
// outcomes in submission order.
type Executor struct {
	registry *Registry
	lock     *rwLock
	queue    *orderedFutures[Outcome]
	timeout  time.Duration
	logger   *slog.Logger
	schemas  *schemaCompiler
}

// NewExecutor builds an Executor bound to registry.
func NewExecutor(registry *Registry, cfg Config) *Executor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		lock:     newRWLock(),
		queue:    newOrderedFutures[Outcome](),
		timeout:  timeout,
		logger:   logger,
		schemas:  newSchemaCompiler(),
	}
}

// Queue schedules call for execution and returns immediately; the call's
// lifecycle runs in its own goroutine and is collected on the next Drain.
// ctx governs cancellation of this specific call — it is typically a child
// of a per-turn context so that cancelling the turn cancels every call
// queued under it.
func (e *Executor) Queue(ctx context.Context, call models.ToolCall) {
	e.queue.Push(func() Outcome {
		return e.run(ctx, call)
	})
}

// Drain awaits every call queued since the last Drain and returns their
// outcomes in submission order, then resets the queue for the next batch.
func (e *Executor) Drain() []Outcome {
	return e.queue.Drain()
}

// Pending reports how many calls are queued but not yet drained.
func (e *Executor) Pending() int {
	return e.queue.Len()
}

// SupportsParallel reports whether name is registered with
// SupportsParallel: true. An unregistered name reports false, the same
// classification run would give it before failing with an unknown-tool
// error.
func (e *Executor) SupportsParallel(name string) bool {
	spec, _, ok := e.registry.Lookup(name)
	return ok && spec.SupportsParallel
}

func (e *Executor) run(ctx context.Context, call models.ToolCall) Outcome {
	start := time.Now()

	spec, handler, ok := e.registry.Lookup(call.Name)
	if !ok {
		return e.finish(call, false, false, start, models.ToolResult{
			CallID: call.ID,
			Error:  newToolError(call.ID, call.Name, KindUnknownTool, nil).Error(),
		})
	}

	release, err := e.acquire(ctx, spec.SupportsParallel)
	if err != nil {
		result := e.cancelledResult(call, err)
		return e.finish(call, spec.SupportsParallel, false, start, result)
	}
	defer release()

	if ctx.Err() != nil {
		return e.finish(call, spec.SupportsParallel, false, start, e.cancelledResult(call, ctx.Err()))
	}

	input, err := decodeInput(call.Input)
	if err != nil {
		te := newToolError(call.ID, call.Name, KindInvalidInput, err)
		return e.finish(call, spec.SupportsParallel, false, start, models.ToolResult{CallID: call.ID, Error: te.Error()})
	}

	if err := e.schemas.validate(call.Name, spec.Schema, input); err != nil {
		te := newToolError(call.ID, call.Name, KindInvalidInput, err)
		return e.finish(call, spec.SupportsParallel, false, start, models.ToolResult{CallID: call.ID, Error: te.Error()})
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	value, herr := handler(callCtx, input)
	if herr != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			te := newToolError(call.ID, call.Name, KindTimeout, fmt.Errorf("timed out after %s", e.timeout))
			return e.finish(call, spec.SupportsParallel, false, start, models.ToolResult{CallID: call.ID, Error: te.Error()})
		}
		if ctx.Err() != nil {
			return e.finish(call, spec.SupportsParallel, false, start, e.cancelledResult(call, ctx.Err()))
		}
		te := newToolError(call.ID, call.Name, KindHandler, herr)
		return e.finish(call, spec.SupportsParallel, false, start, models.ToolResult{CallID: call.ID, Error: te.Error()})
	}

	content, err := stringify(value)
	if err != nil {
		te := newToolError(call.ID, call.Name, KindHandler, err)
		return e.finish(call, spec.SupportsParallel, false, start, models.ToolResult{CallID: call.ID, Error: te.Error()})
	}

	return e.finish(call, spec.SupportsParallel, true, start, models.ToolResult{CallID: call.ID, Content: content})
}

func (e *Executor) acquire(ctx context.Context, parallel bool) (func(), error) {
	if parallel {
		return e.lock.Read(ctx)
	}
	return e.lock.Write(ctx)
}

func (e *Executor) cancelledResult(call models.ToolCall, cause error) models.ToolResult {
	te := newToolError(call.ID, call.Name, KindCancelled, cause)
	return models.ToolResult{CallID: call.ID, Error: te.Error()}
}

func (e *Executor) finish(call models.ToolCall, parallel, success bool, start time.Time, result models.ToolResult) Outcome {
	end := time.Now()
	if result.IsError() {
		e.logger.Debug("tool call failed", "tool", call.Name, "call_id", call.ID, "error", result.Error)
	}
	return Outcome{
		Result: result,
		Metrics: ToolMetrics{
			ToolName:  call.Name,
			CallID:    call.ID,
			StartTime: start,
			EndTime:   end,
			Success:   success,
			Parallel:  parallel,
			Error:     result.Error,
		},
	}
}

func decodeInput(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode tool input: %w", err)
	}
	return input, nil
}

func stringify(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("serialise tool result: %w", err)
	}
	return string(data), nil
}
