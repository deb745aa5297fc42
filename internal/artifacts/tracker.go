package artifacts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventSink receives structured events for artifact-tracker activity,
// satisfying the construction-time `event_sink` option of §6. Extraction or
// hashing failures are reported here rather than aborting the turn (§7).
type EventSink interface {
	Event(name string, fields map[string]any)
}

// noopSink is used when no EventSink is configured.
type noopSink struct{}

func (noopSink) Event(string, map[string]any) {}

// Config configures a Tracker.
type Config struct {
	Logger    *slog.Logger
	EventSink EventSink
	// Store optionally persists raw output bytes out-of-line once they
	// exceed InlineLimit; see limits.go. A nil Store keeps every raw output
	// inline on the Artifact.
	Store Store
	// Redactor, when set, scrubs secrets out of raw output before it is
	// inlined, logged, or spilled to Store.
	Redactor *RedactionPolicy
	// InlineLimit bounds how many bytes of raw output are kept inline on
	// the Artifact before spilling to Store. Zero means MaxInlineBytes.
	InlineLimit int
}

// Tracker is the single owner of the artifact map (§3/§4.7): it hashes
// every tool invocation's input/output, extracts numeric values from the
// output, and feeds a Registry that indexes those values for the render
// gate's reverse lookups. The tracker is safe for concurrent use only when
// wrapped by the caller if shared across turns running concurrently (§5);
// the turn driver normally owns one Tracker per session and calls it from a
// single goroutine.
type Tracker struct {
	mu sync.Mutex

	logger    *slog.Logger
	eventSink EventSink
	store     Store
	redactor  *RedactionPolicy
	inline    int

	byID     map[string]*Artifact
	byOutput map[string][]string // output hash -> artifact IDs, oldest first
	byCallID map[string]string   // call id -> artifact id (latest wins)
	tools    map[string]struct{}
	registry *Registry
}

// NewTracker builds a Tracker.
func NewTracker(cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := cfg.EventSink
	if sink == nil {
		sink = noopSink{}
	}
	inline := cfg.InlineLimit
	if inline <= 0 {
		inline = MaxInlineBytes
	}
	return &Tracker{
		logger:    logger,
		eventSink: sink,
		store:     cfg.Store,
		redactor:  cfg.Redactor,
		inline:    inline,
		byID:      make(map[string]*Artifact),
		byOutput:  make(map[string][]string),
		byCallID:  make(map[string]string),
		tools:     make(map[string]struct{}),
		registry:  newRegistry(),
	}
}

// Register hashes input/output, extracts numeric values from output, and
// stores the resulting Artifact (§4.7). Registering the same output twice
// produces two distinct artifact IDs sharing an OutputHash (§8). ts
// defaults to time.Now() when zero.
func (t *Tracker) Register(ctx context.Context, toolName, callID string, input, output any, ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}

	inputHash := HashValue(input)
	rawOutput := stringifyOutput(output)
	outputHash := Hash(rawOutput)

	values := t.safeExtract(toolName, callID, output)

	if t.redactor != nil {
		rawOutput = t.redactor.Redact(rawOutput)
	}

	artifact := &Artifact{
		ID:              uuid.NewString(),
		ToolName:        toolName,
		CallID:          callID,
		InputHash:       inputHash,
		OutputHash:      outputHash,
		Timestamp:       ts,
		RawOutput:       rawOutput,
		ExtractedValues: values,
	}

	if t.store != nil && len(rawOutput) > t.inline {
		if ref, err := t.store.Put(ctx, artifact.ID, strings.NewReader(rawOutput), PutOptions{MimeType: "application/json"}); err == nil {
			artifact.RawOutputRef = ref
			artifact.RawOutput = rawOutput[:t.inline]
		} else {
			t.eventSink.Event("artifact.store_error", map[string]any{"artifact_id": artifact.ID, "error": err.Error()})
		}
	}

	t.mu.Lock()
	t.byID[artifact.ID] = artifact
	t.byOutput[outputHash] = append(t.byOutput[outputHash], artifact.ID)
	t.byCallID[callID] = artifact.ID
	t.tools[toolName] = struct{}{}
	t.mu.Unlock()

	for _, v := range values {
		t.registry.add(artifact.ID, v)
	}

	t.logger.Debug("artifact registered", "tool", toolName, "call_id", callID, "output_hash", outputHash, "values", len(values))
	t.eventSink.Event("artifact.registered", map[string]any{
		"tool_name":   toolName,
		"call_id":     callID,
		"output_hash": outputHash,
		"values":      len(values),
	})

	return artifact.ID
}

func (t *Tracker) safeExtract(toolName, callID string, output any) (values []ExtractedValue) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("artifact value extraction panicked", "tool", toolName, "call_id", callID, "recover", r)
			t.eventSink.Event("artifact.extract_error", map[string]any{"tool_name": toolName, "call_id": callID, "error": "panic"})
			values = nil
		}
	}()
	return ExtractValues(output)
}

// Get returns the artifact registered with id.
func (t *Tracker) Get(id string) (*Artifact, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.byID[id]
	return a, ok
}

// ByCallID returns the most recently registered artifact for callID.
func (t *Tracker) ByCallID(callID string) (*Artifact, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byCallID[callID]
	if !ok {
		return nil, false
	}
	return t.byID[id], true
}

// ByOutputHash returns every artifact registered under outputHash, in
// registration order.
func (t *Tracker) ByOutputHash(outputHash string) []*Artifact {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.byOutput[outputHash]
	out := make([]*Artifact, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.byID[id])
	}
	return out
}

// Lookup resolves value against the registry (§4.7 registry lookup): exact
// match first, preferring an entry whose extracted-value Context equals
// material when given; otherwise the first fuzzy match within tolerance,
// with tolerance widened for values at or near zero.
func (t *Tracker) Lookup(value, tolerance float64, material string) (Provenance, bool) {
	candidates := t.registry.lookupCandidates(value, tolerance)
	if len(candidates) == 0 {
		return Provenance{}, false
	}

	if material != "" {
		for _, c := range candidates {
			if c.value.Context == material {
				if p, ok := t.materialise(c); ok {
					return p, true
				}
			}
		}
	}
	for _, c := range candidates {
		if p, ok := t.materialise(c); ok {
			return p, true
		}
	}
	return Provenance{}, false
}

func (t *Tracker) materialise(entry registryEntry) (Provenance, bool) {
	artifact, ok := t.Get(entry.artifactID)
	if !ok {
		return Provenance{}, false
	}
	return Provenance{
		Value:        entry.value.Value,
		Unit:         entry.value.Unit,
		SourceTool:   artifact.ToolName,
		ArtefactHash: artifact.OutputHash,
		Timestamp:    artifact.Timestamp,
		Confidence:   artifact.Confidence,
	}, true
}

// Stats reports artifact/value/tool counts for the current session.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	artifactCount := len(t.byID)
	toolCount := len(t.tools)
	t.mu.Unlock()
	return Stats{
		ArtifactCount: artifactCount,
		ValueCount:    t.registry.count(),
		ToolCount:     toolCount,
	}
}

func valueKey(v float64) string {
	b, err := json.Marshal(roundTo(v, 6))
	if err != nil {
		return "0"
	}
	return string(b)
}

func roundTo(v float64, decimals int) float64 {
	scale := 1.0
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+sign(v)*0.5)) / scale
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func stringifyOutput(output any) string {
	if s, ok := output.(string); ok {
		return s
	}
	data, err := json.Marshal(output)
	if err != nil {
		return ""
	}
	return string(data)
}
