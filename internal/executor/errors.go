package executor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a tool call did not succeed (§7).
type ErrorKind string

const (
	// KindUnknownTool means the call named a tool with no registered spec.
	KindUnknownTool ErrorKind = "unknown_tool"
	// KindTimeout means the handler did not return before its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindCancelled means the call's context was cancelled, either before
	// lock acquisition (handler never ran) or while the handler was running.
	KindCancelled ErrorKind = "cancelled"
	// KindHandler means the handler itself returned an error.
	KindHandler ErrorKind = "handler"
	// KindInvalidInput means the call's input failed schema validation.
	KindInvalidInput ErrorKind = "invalid_input"
)

// ToolError is the structured error type returned for a failed ToolCall. The
// caller can switch on Kind without parsing Error strings.
type ToolError struct {
	CallID string
	Name   string
	Kind   ErrorKind
	Err    error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %q (%s): %s: %v", e.Name, e.CallID, e.Kind, e.Err)
	}
	return fmt.Sprintf("tool %q (%s): %s", e.Name, e.CallID, e.Kind)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ErrQueueClosed is returned by Queue once Drain has been called and the
// executor has not been reset for a new batch.
var ErrQueueClosed = errors.New("executor: queue closed")

func newToolError(callID, name string, kind ErrorKind, err error) *ToolError {
	return &ToolError{CallID: callID, Name: name, Kind: kind, Err: err}
}
