package rendergate

import (
	"context"
	"testing"
	"time"

	"github.com/crystalyse/agentcore/internal/artifacts"
)

// TestGate_FlagsUnprovenancedMaterialProperty mirrors spec scenario 6: an
// empty registry flags the formation-energy claim, registering the matching
// artefact clears it.
func TestGate_FlagsUnprovenancedMaterialProperty(t *testing.T) {
	tracker := artifacts.NewTracker(artifacts.Config{})
	gate := NewGate(tracker, 0)

	text := "The formation energy is -3.45 eV/atom."

	_, detected, violations := gate.Analyze(text)
	if !violations {
		t.Fatalf("expected violations with empty registry")
	}
	found := false
	for _, d := range detected {
		if d.Classification == ClassMaterialProperty && d.HasFlag(FlagUnprovenancedMaterialProperty) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a flagged material-property number, got %+v", detected)
	}

	tracker.Register(context.Background(), "energy_calculator", "call-1",
		map[string]any{"composition": "LiCoO2"},
		map[string]any{"formation_energy": -3.45, "composition": "LiCoO2"},
		time.Now())

	_, detected2, violations2 := gate.Analyze(text)
	if violations2 {
		t.Fatalf("expected no violations once the artefact is registered, got %+v", detected2)
	}
	haveProvenance := false
	for _, d := range detected2 {
		if d.Classification == ClassMaterialProperty && d.Provenance != nil {
			haveProvenance = true
			if d.Provenance.SourceTool != "energy_calculator" {
				t.Errorf("unexpected source tool: %q", d.Provenance.SourceTool)
			}
		}
	}
	if !haveProvenance {
		t.Fatalf("expected a provenanced material-property number, got %+v", detected2)
	}
}

func TestGate_LiteratureClassification(t *testing.T) {
	tracker := artifacts.NewTracker(artifacts.Config{})
	gate := NewGate(tracker, 0)

	_, detected, violations := gate.Analyze("The band gap was reported in MP-1234 as 1.1 eV.")
	if violations {
		t.Fatalf("literature-sourced numbers should not be flagged, got %+v", detected)
	}
	if len(detected) == 0 {
		t.Fatalf("expected at least one detected number")
	}
	if detected[0].Classification != ClassLiterature {
		t.Errorf("expected literature classification, got %s", detected[0].Classification)
	}
}

func TestGate_StatisticalClassification(t *testing.T) {
	tracker := artifacts.NewTracker(artifacts.Config{})
	gate := NewGate(tracker, 0)

	_, detected, violations := gate.Analyze("7 out of 10 candidates were stable.")
	if violations {
		t.Fatalf("statistical counts should not be flagged, got %+v", detected)
	}
	sawStatistical := false
	for _, d := range detected {
		if d.Classification == ClassStatistical {
			sawStatistical = true
		}
	}
	if !sawStatistical {
		t.Fatalf("expected a statistical classification, got %+v", detected)
	}
}

func TestGate_ContextualClassification(t *testing.T) {
	tracker := artifacts.NewTracker(artifacts.Config{})
	gate := NewGate(tracker, 0)

	_, detected, violations := gate.Analyze("The measured value was typically around 5.2 on average.")
	if violations {
		t.Fatalf("hedged contextual numbers should not be flagged, got %+v", detected)
	}
	if len(detected) == 0 || detected[0].Classification != ClassContextual {
		t.Fatalf("expected contextual classification, got %+v", detected)
	}
}
