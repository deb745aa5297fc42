package executor

import "time"

// ToolMetrics is recorded once per completed call (§3, §4.4).
type ToolMetrics struct {
	ToolName  string
	CallID    string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Parallel  bool
	Error     string
}

// DurationMS is the derived wall-clock duration of the call, in milliseconds.
func (m ToolMetrics) DurationMS() int64 {
	if m.EndTime.Before(m.StartTime) {
		return 0
	}
	return m.EndTime.Sub(m.StartTime).Milliseconds()
}

// TurnMetrics aggregates the ToolMetrics produced by one Drain. Callers key
// aggregation on whatever turn id they supplied; the executor itself has no
// notion of a turn.
type TurnMetrics struct {
	TurnID    string
	StartTime time.Time
	ToolCalls []ToolMetrics
}

// ParallelCount is the number of recorded calls that ran under a read guard.
func (t TurnMetrics) ParallelCount() int {
	n := 0
	for _, m := range t.ToolCalls {
		if m.Parallel {
			n++
		}
	}
	return n
}

// SerialCount is the number of recorded calls that ran under a write guard.
func (t TurnMetrics) SerialCount() int {
	return len(t.ToolCalls) - t.ParallelCount()
}

// SuccessCount is the number of recorded calls that succeeded.
func (t TurnMetrics) SuccessCount() int {
	n := 0
	for _, m := range t.ToolCalls {
		if m.Success {
			n++
		}
	}
	return n
}

// TotalDuration sums DurationMS across every recorded call.
func (t TurnMetrics) TotalDuration() time.Duration {
	var total time.Duration
	for _, m := range t.ToolCalls {
		total += m.EndTime.Sub(m.StartTime)
	}
	return total
}
