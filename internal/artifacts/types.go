package artifacts

import "time"

// ExtractedValue is one numeric value pulled out of a tool's output (§3).
// A single Artifact may produce many.
type ExtractedValue struct {
	Value          float64 `json:"value"`
	OriginalString string  `json:"original_string"`
	Unit           string  `json:"unit,omitempty"`
	PropertyType   string  `json:"property_type,omitempty"`
	Context        string  `json:"context,omitempty"`
}

// Artifact is an immutable, hash-addressed record of one tool invocation
// (§3). OutputHash is its primary identifier; it is not required to be
// unique across the tracker — registering the same output twice produces
// two distinct artifact entries sharing an OutputHash (§8 boundary case).
type Artifact struct {
	ID              string           `json:"id"`
	ToolName        string           `json:"tool_name"`
	CallID          string           `json:"call_id"`
	InputHash       string           `json:"input_hash"`
	OutputHash      string           `json:"output_hash"`
	Timestamp       time.Time        `json:"timestamp"`
	RawOutput       string           `json:"raw_output"`
	RawOutputRef    string           `json:"raw_output_ref,omitempty"`
	ExtractedValues []ExtractedValue `json:"extracted_values"`
	Confidence      *float64         `json:"confidence,omitempty"`
	Method          string           `json:"method,omitempty"`
}

// Provenance is the render-gate view of a registered value (§3):
// materialised on lookup, never stored directly.
type Provenance struct {
	Value        float64   `json:"value"`
	Unit         string    `json:"unit,omitempty"`
	SourceTool   string    `json:"source_tool"`
	ArtefactHash string    `json:"artefact_hash"`
	Timestamp    time.Time `json:"timestamp"`
	Confidence   *float64  `json:"confidence,omitempty"`
}

// Stats summarises the tracker's contents: how many artifacts, extracted
// values, and distinct tools have contributed to the current session.
type Stats struct {
	ArtifactCount int `json:"artifact_count"`
	ValueCount    int `json:"value_count"`
	ToolCount     int `json:"tool_count"`
}
