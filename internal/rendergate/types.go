package rendergate

import "github.com/crystalyse/agentcore/internal/artifacts"

// Classification is the six-way bucket a detected number falls into (§4.7).
type Classification string

const (
	ClassLiterature       Classification = "literature"
	ClassDerived          Classification = "derived"
	ClassStatistical      Classification = "statistical"
	ClassMaterialProperty Classification = "material_property"
	ClassContextual       Classification = "contextual"
	ClassUnknown          Classification = "unknown"
)

// FlagUnprovenancedMaterialProperty marks a material-property number that
// the registry could not attach a provenance tuple to.
const FlagUnprovenancedMaterialProperty = "UNPROVENANCED_MATERIAL_PROPERTY"

// DetectedNumber is one numeral the gate found in the text, along with its
// classification and (if resolved) provenance.
type DetectedNumber struct {
	Value          string
	Context        string
	FullSentence   string
	Classification Classification
	Provenance     *artifacts.Provenance
	Flags          []string
	Start, End     int
}

// HasFlag reports whether the number carries the given flag.
func (d DetectedNumber) HasFlag(flag string) bool {
	for _, f := range d.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
