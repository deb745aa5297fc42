package artifacts

import (
	"context"
	"testing"
	"time"
)

func TestTracker_RegisterAndLookup(t *testing.T) {
	tr := NewTracker(Config{})

	input := map[string]any{"material_id": "mp-1234"}
	output := map[string]any{
		"composition":      "LiFePO4",
		"formation_energy": -1.23,
	}

	id := tr.Register(context.Background(), "query_formation_energy", "call-1", input, output, time.Now())
	if id == "" {
		t.Fatalf("expected non-empty artifact id")
	}

	artifact, ok := tr.Get(id)
	if !ok {
		t.Fatalf("expected artifact to be retrievable by id")
	}
	if artifact.ToolName != "query_formation_energy" {
		t.Fatalf("unexpected tool name: %q", artifact.ToolName)
	}
	if len(artifact.ExtractedValues) != 1 {
		t.Fatalf("expected 1 extracted value, got %d", len(artifact.ExtractedValues))
	}

	prov, ok := tr.Lookup(-1.23, 0.01, "LiFePO4")
	if !ok {
		t.Fatalf("expected lookup to find the registered value")
	}
	if prov.SourceTool != "query_formation_energy" {
		t.Fatalf("unexpected provenance source tool: %q", prov.SourceTool)
	}
	if prov.ArtefactHash != artifact.OutputHash {
		t.Fatalf("expected provenance hash to match artifact output hash")
	}
}

func TestTracker_DuplicateOutputTwoArtifactsSameHash(t *testing.T) {
	tr := NewTracker(Config{})
	output := map[string]any{"formation_energy": -2.0}

	id1 := tr.Register(context.Background(), "tool", "call-1", nil, output, time.Now())
	id2 := tr.Register(context.Background(), "tool", "call-2", nil, output, time.Now())

	if id1 == id2 {
		t.Fatalf("expected distinct artifact ids for repeated registration")
	}
	a1, _ := tr.Get(id1)
	a2, _ := tr.Get(id2)
	if a1.OutputHash != a2.OutputHash {
		t.Fatalf("expected identical output hash for identical output")
	}

	matches := tr.ByOutputHash(a1.OutputHash)
	if len(matches) != 2 {
		t.Fatalf("expected 2 artifacts indexed under the same output hash, got %d", len(matches))
	}
}

func TestTracker_LookupMissReturnsFalse(t *testing.T) {
	tr := NewTracker(Config{})
	if _, ok := tr.Lookup(99.9, 0.01, ""); ok {
		t.Fatalf("expected no match in an empty tracker")
	}
}

func TestTracker_LookupZeroWidenedTolerance(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Register(context.Background(), "tool", "call-1", nil, map[string]any{"energy_above_hull": 0.2}, time.Now())

	// The model rounded a small hull energy to zero in its reply; the
	// zero-widened tolerance should still find the 0.2 registered value.
	if _, ok := tr.Lookup(0.0, 0.0, ""); !ok {
		t.Fatalf("expected zero-widened tolerance to match a near-zero queried value")
	}
}

func TestTracker_ExtractionPanicDoesNotAbortRegistration(t *testing.T) {
	tr := NewTracker(Config{})
	// A self-referential-looking output is fine for this tracker since
	// ExtractValues only walks map[string]any/[]any; this case instead
	// exercises that unknown/odd types still register an artifact with no
	// extracted values rather than erroring.
	id := tr.Register(context.Background(), "tool", "call-1", nil, 12345, time.Now())
	artifact, ok := tr.Get(id)
	if !ok {
		t.Fatalf("expected artifact to register despite unextractable output")
	}
	if len(artifact.ExtractedValues) != 0 {
		t.Fatalf("expected no extracted values for a bare scalar output")
	}
}

func TestTracker_Stats(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Register(context.Background(), "tool_a", "call-1", nil, map[string]any{"formation_energy": -1.0}, time.Now())
	tr.Register(context.Background(), "tool_b", "call-2", nil, map[string]any{"band_gap": 2.0}, time.Now())

	stats := tr.Stats()
	if stats.ArtifactCount != 2 {
		t.Fatalf("expected 2 artifacts, got %d", stats.ArtifactCount)
	}
	if stats.ValueCount != 2 {
		t.Fatalf("expected 2 indexed values, got %d", stats.ValueCount)
	}
	if stats.ToolCount != 2 {
		t.Fatalf("expected 2 distinct tools, got %d", stats.ToolCount)
	}
}
