package artifacts

import "testing"

func TestRegistry_ExactMatch(t *testing.T) {
	r := newRegistry()
	r.add("artifact-1", ExtractedValue{Value: -1.23, PropertyType: "formation_energy"})

	candidates := r.lookupCandidates(-1.23, 0.0)
	if len(candidates) != 1 {
		t.Fatalf("expected exact match, got %d candidates", len(candidates))
	}
	if candidates[0].artifactID != "artifact-1" {
		t.Fatalf("unexpected artifact id: %q", candidates[0].artifactID)
	}
}

func TestRegistry_FuzzyMatchWithinTolerance(t *testing.T) {
	r := newRegistry()
	r.add("artifact-1", ExtractedValue{Value: 3.40, PropertyType: "band_gap"})

	candidates := r.lookupCandidates(3.42, 0.05)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 fuzzy match, got %d", len(candidates))
	}
}

func TestRegistry_NoMatchOutsideTolerance(t *testing.T) {
	r := newRegistry()
	r.add("artifact-1", ExtractedValue{Value: 3.40, PropertyType: "band_gap"})

	candidates := r.lookupCandidates(3.9, 0.05)
	if len(candidates) != 0 {
		t.Fatalf("expected no match, got %d", len(candidates))
	}
}

func TestRegistry_Count(t *testing.T) {
	r := newRegistry()
	r.add("a", ExtractedValue{Value: 1})
	r.add("b", ExtractedValue{Value: 2})
	if r.count() != 2 {
		t.Fatalf("expected count 2, got %d", r.count())
	}
}
