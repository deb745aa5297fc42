// Package observability provides logging, tracing, and event timeline
// capabilities for the agent execution core.
//
// This file implements the event timeline used to replay a turn for
// debugging, and backs the append-only event stream the turn driver writes
// to at each pipeline stage.
package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Context keys correlating an event (or a log line, see logging.go) to the
// turn and tool call that produced it.
const (
	// RunIDKey is the context key for a turn id.
	RunIDKey ContextKey = "run_id"

	// ToolCallIDKey is the context key for a tool call id.
	ToolCallIDKey ContextKey = "tool_call_id"
)

// AddRunID adds a turn id to the context.
func AddRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the turn id from the context.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// AddToolCallID adds a tool call id to the context.
func AddToolCallID(ctx context.Context, toolCallID string) context.Context {
	return context.WithValue(ctx, ToolCallIDKey, toolCallID)
}

// GetToolCallID retrieves the tool call id from the context.
func GetToolCallID(ctx context.Context) string {
	if id, ok := ctx.Value(ToolCallIDKey).(string); ok {
		return id
	}
	return ""
}

// EventType categorizes timeline events.
type EventType string

const (
	EventTypeRunStart        EventType = "run.start"
	EventTypeRunEnd          EventType = "run.end"
	EventTypeRunError        EventType = "run.error"
	EventTypeToolStart       EventType = "tool.start"
	EventTypeToolEnd         EventType = "tool.end"
	EventTypeToolError       EventType = "tool.error"
	EventTypeSandboxDenied   EventType = "sandbox.denied"
	EventTypeArtifactStored  EventType = "artifact.stored"
	EventTypeCompaction      EventType = "compaction.run"
	EventTypeRenderViolation EventType = "rendergate.violation"
	EventTypeCustom          EventType = "custom"
)

// Event represents a single event in the timeline.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	RunID      string         `json:"run_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Duration   time.Duration  `json:"duration_ns,omitempty"`
	Error      string         `json:"error,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	SpanID     string         `json:"span_id,omitempty"`
}

// EventStore stores and retrieves events for debugging and replay.
type EventStore interface {
	// Record stores an event.
	Record(event *Event) error

	// GetByRunID returns all events for a turn, sorted by timestamp.
	GetByRunID(runID string) ([]*Event, error)

	// GetByType returns events of a specific type, most recent first.
	GetByType(eventType EventType, limit int) ([]*Event, error)

	// Get returns a single event by ID.
	Get(id string) (*Event, error)

	// Delete removes events older than the given duration and returns the
	// count removed.
	Delete(olderThan time.Duration) (int, error)
}

// MemoryEventStore is an in-memory EventStore.
type MemoryEventStore struct {
	mu      sync.RWMutex
	events  map[string]*Event
	byRunID map[string][]string
	maxSize int
}

// NewMemoryEventStore creates an in-memory event store holding at most
// maxSize events (0 or negative defaults to 10000, evicting the oldest 10%
// once full).
func NewMemoryEventStore(maxSize int) *MemoryEventStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryEventStore{
		events:  make(map[string]*Event),
		byRunID: make(map[string][]string),
		maxSize: maxSize,
	}
}

func (s *MemoryEventStore) Record(event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxSize {
		s.evictOldest()
	}

	s.events[event.ID] = event
	if event.RunID != "" {
		s.byRunID[event.RunID] = append(s.byRunID[event.RunID], event.ID)
	}
	return nil
}

func (s *MemoryEventStore) GetByRunID(runID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRunID[runID]
	events := make([]*Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.events[id]; ok {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (s *MemoryEventStore) GetByType(eventType EventType, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*Event
	for _, e := range s.events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *MemoryEventStore) Get(id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event not found: %s", id)
	}
	return e, nil
}

func (s *MemoryEventStore) Delete(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	for id, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			delete(s.events, id)
			deleted++
		}
	}
	for runID, ids := range s.byRunID {
		remaining := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := s.events[id]; ok {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			delete(s.byRunID, runID)
		} else {
			s.byRunID[runID] = remaining
		}
	}
	return deleted, nil
}

func (s *MemoryEventStore) evictOldest() {
	toRemove := s.maxSize / 10
	if toRemove < 1 {
		toRemove = 1
	}

	events := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	for i := 0; i < toRemove && i < len(events); i++ {
		delete(s.events, events[i].ID)
	}
}

// EventRecorder is the observability sink the turn driver calls at each
// pipeline stage; it fans out to an EventStore and a Logger.
type EventRecorder struct {
	store  EventStore
	logger *Logger
}

// NewEventRecorder creates a recorder writing to store and logging through
// logger (either may be used independently of the other).
func NewEventRecorder(store EventStore, logger *Logger) *EventRecorder {
	return &EventRecorder{store: store, logger: logger}
}

// Record records an event, extracting correlation IDs from context.
func (r *EventRecorder) Record(ctx context.Context, eventType EventType, name string, data map[string]any) error {
	event := &Event{
		ID:         generateEventID(),
		Type:       eventType,
		Timestamp:  time.Now(),
		RunID:      GetRunID(ctx),
		SessionID:  GetSessionID(ctx),
		ToolCallID: GetToolCallID(ctx),
		Name:       name,
		Data:       data,
		TraceID:    GetTraceID(ctx),
		SpanID:     GetSpanID(ctx),
	}

	if r.logger != nil {
		r.logger.Debug(ctx, "event recorded", "event_type", string(eventType), "event_name", name, "event_id", event.ID)
	}
	if r.store == nil {
		return nil
	}
	return r.store.Record(event)
}

// RecordError records a failed event, attaching err's message to data["error"].
func (r *EventRecorder) RecordError(ctx context.Context, eventType EventType, name string, err error, data map[string]any) error {
	if data == nil {
		data = make(map[string]any)
	}
	data["error"] = err.Error()

	event := &Event{
		ID:         generateEventID(),
		Type:       eventType,
		Timestamp:  time.Now(),
		RunID:      GetRunID(ctx),
		SessionID:  GetSessionID(ctx),
		ToolCallID: GetToolCallID(ctx),
		Name:       name,
		Data:       data,
		Error:      err.Error(),
		TraceID:    GetTraceID(ctx),
		SpanID:     GetSpanID(ctx),
	}

	if r.logger != nil {
		r.logger.Error(ctx, "error event recorded", "event_type", string(eventType), "event_name", name, "event_id", event.ID, "error", err)
	}
	if r.store == nil {
		return nil
	}
	return r.store.Record(event)
}

// RecordToolStart records a tool call leaving the queue and entering
// execution.
func (r *EventRecorder) RecordToolStart(ctx context.Context, toolName string, input json.RawMessage) error {
	data := map[string]any{"tool_name": toolName}
	if len(input) > 0 {
		data["input"] = string(input)
	}
	return r.Record(ctx, EventTypeToolStart, toolName, data)
}

// RecordToolEnd records a tool call reaching a terminal state. A non-nil err
// routes through RecordError/EventTypeToolError instead of EventTypeToolEnd.
func (r *EventRecorder) RecordToolEnd(ctx context.Context, toolName string, duration time.Duration, output string, err error) error {
	data := map[string]any{
		"tool_name":   toolName,
		"duration_ms": duration.Milliseconds(),
	}
	if output != "" {
		data["output"] = output
	}
	if err != nil {
		return r.RecordError(ctx, EventTypeToolError, toolName, err, data)
	}
	return r.Record(ctx, EventTypeToolEnd, toolName, data)
}

// RecordRunStart records the start of one turn driver RunTurn call.
func (r *EventRecorder) RecordRunStart(ctx context.Context, runID string, data map[string]any) error {
	ctx = AddRunID(ctx, runID)
	return r.Record(ctx, EventTypeRunStart, "run_start", data)
}

// RecordRunEnd records the end of one turn driver RunTurn call.
func (r *EventRecorder) RecordRunEnd(ctx context.Context, duration time.Duration, err error) error {
	data := map[string]any{"duration_ms": duration.Milliseconds()}
	if err != nil {
		return r.RecordError(ctx, EventTypeRunError, "run_error", err, data)
	}
	return r.Record(ctx, EventTypeRunEnd, "run_end", data)
}

// Timeline is a sequence of events for one turn, with aggregate stats.
type Timeline struct {
	RunID     string           `json:"run_id"`
	SessionID string           `json:"session_id"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Duration  time.Duration    `json:"duration"`
	Events    []*Event         `json:"events"`
	Summary   *TimelineSummary `json:"summary"`
}

// TimelineSummary aggregates a Timeline's events.
type TimelineSummary struct {
	TotalEvents   int           `json:"total_events"`
	ErrorCount    int           `json:"error_count"`
	ToolCalls     int           `json:"tool_calls"`
	TotalDuration time.Duration `json:"total_duration"`
}

// BuildTimeline assembles a Timeline from a (possibly unsorted) event slice.
func BuildTimeline(events []*Event) *Timeline {
	if len(events) == 0 {
		return &Timeline{Summary: &TimelineSummary{}}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	timeline := &Timeline{
		Events:    events,
		StartTime: events[0].Timestamp,
		EndTime:   events[len(events)-1].Timestamp,
		Duration:  events[len(events)-1].Timestamp.Sub(events[0].Timestamp),
		Summary:   &TimelineSummary{TotalEvents: len(events)},
	}

	for _, e := range events {
		if e.RunID != "" && timeline.RunID == "" {
			timeline.RunID = e.RunID
		}
		if e.SessionID != "" && timeline.SessionID == "" {
			timeline.SessionID = e.SessionID
		}
	}

	for _, e := range events {
		if e.Error != "" {
			timeline.Summary.ErrorCount++
		}
		if e.Type == EventTypeToolStart {
			timeline.Summary.ToolCalls++
		}
		timeline.Summary.TotalDuration += e.Duration
	}

	return timeline
}

// FormatTimeline renders a Timeline as a human-readable tree.
func FormatTimeline(timeline *Timeline) string {
	if timeline == nil || len(timeline.Events) == 0 {
		return "No events found"
	}

	var b []byte
	b = append(b, fmt.Sprintf("=== Timeline for Run: %s ===\n", timeline.RunID)...)
	b = append(b, fmt.Sprintf("Duration: %v\n", timeline.Duration)...)
	b = append(b, fmt.Sprintf("Events: %d (Errors: %d, Tool calls: %d)\n\n",
		timeline.Summary.TotalEvents, timeline.Summary.ErrorCount, timeline.Summary.ToolCalls)...)

	for i, e := range timeline.Events {
		prefix := "├─"
		if i == len(timeline.Events)-1 {
			prefix = "└─"
		}
		errorMark := ""
		if e.Error != "" {
			errorMark = " [error]"
		}
		b = append(b, fmt.Sprintf("%s [%s] %s: %s%s\n", prefix, e.Timestamp.Format("15:04:05.000"), e.Type, e.Name, errorMark)...)
		if e.Duration > 0 {
			b = append(b, fmt.Sprintf("   duration: %v\n", e.Duration)...)
		}
		if e.Error != "" {
			b = append(b, fmt.Sprintf("   error: %s\n", e.Error)...)
		}
	}

	return string(b)
}

var (
	eventIDCounter int64
	eventIDMu      sync.Mutex
)

func generateEventID() string {
	eventIDMu.Lock()
	defer eventIDMu.Unlock()
	eventIDCounter++
	return fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), eventIDCounter)
}
