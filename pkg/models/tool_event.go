package models

import (
	"encoding/json"
	"time"
)

// ToolEventStage is the terminal outcome of one drained tool call.
type ToolEventStage string

const (
	ToolEventSucceeded ToolEventStage = "succeeded"
	ToolEventFailed    ToolEventStage = "failed"
	ToolEventDenied    ToolEventStage = "denied"
)

// ToolEvent is the turn driver's per-call record of one tool invocation:
// what ran, what it produced, and how it ended. Unlike the executor's
// ToolMetrics (timing for aggregate stats), ToolEvent carries the actual
// input/output so a turn's tool activity can be inspected or replayed.
type ToolEvent struct {
	ToolCallID   string          `json:"tool_call_id"`
	ToolName     string          `json:"tool_name"`
	Stage        ToolEventStage  `json:"stage"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       string          `json:"output,omitempty"`
	Error        string          `json:"error,omitempty"`
	PolicyReason string          `json:"policy_reason,omitempty"`
	StartedAt    time.Time       `json:"started_at,omitempty"`
	FinishedAt   time.Time       `json:"finished_at,omitempty"`
}
