package rendergate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/crystalyse/agentcore/internal/artifacts"
)

// DefaultTolerance is the absolute tolerance applied to a fuzzy registry
// lookup when a caller does not specify one (§4.7 step 2).
const DefaultTolerance = 0.01

// sentenceSplit breaks text on sentence-ending punctuation followed by
// whitespace and a capital letter or end of string. It is intentionally
// simple: the gate only needs sentence-scoped context for its keyword scans,
// not a linguistically exact boundary.
var sentenceSplit = regexp.MustCompile(`(?:[.!?]+)(?:\s+|$)`)

// numberPattern matches numerals with optional sign, decimal part,
// scientific notation, unit suffix, or range ("-3.1 to -2.9"), per §4.7
// step 2 ("locate numerals with unit suffixes, scientific notation,
// decimals, and ranges").
var numberPattern = regexp.MustCompile(
	`[-+]?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?\s*(?:%|[a-zA-Z]+(?:/[a-zA-Z]+)?)?`,
)

// formulaPattern is a rough chemical-formula matcher: an element symbol
// optionally followed by digits, repeated two or more times (e.g. LiCoO2,
// Fe2O3). It is a heuristic used only to narrow a registry lookup, never to
// validate chemistry.
var formulaPattern = regexp.MustCompile(`\b(?:[A-Z][a-z]?\d*){2,}\b`)

// Gate is the render gate described in §4.7: it scans model-facing text,
// classifies every detected numeral, and for those classified as material
// properties requires a matching artefact in the tracker's registry.
type Gate struct {
	tracker   *artifacts.Tracker
	tolerance float64
}

// NewGate builds a Gate bound to tracker. tolerance<=0 uses DefaultTolerance.
func NewGate(tracker *artifacts.Tracker, tolerance float64) *Gate {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Gate{tracker: tracker, tolerance: tolerance}
}

// Analyze implements §4.7's analyze(text): it returns text unchanged (the
// gate never rewrites model output), the list of detected numbers, and
// whether any of them were flagged as unprovenanced material properties.
func (g *Gate) Analyze(text string) (string, []DetectedNumber, bool) {
	var detected []DetectedNumber
	hasViolations := false

	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		formula := extractFormula(sentence)

		for _, loc := range numberPattern.FindAllStringIndex(sentence, -1) {
			raw := strings.TrimSpace(sentence[loc[0]:loc[1]])
			if raw == "" || !looksNumeric(raw) {
				continue
			}

			dn := DetectedNumber{
				Value:        raw,
				FullSentence: sentence,
				Start:        loc[0],
				End:          loc[1],
			}
			dn.Classification = classify(lower)

			if dn.Classification == ClassMaterialProperty {
				if numeric, ok := parseLeadingFloat(raw); ok {
					if prov, found := g.tracker.Lookup(numeric, g.tolerance, formula); found {
						p := prov
						dn.Provenance = &p
					} else {
						dn.Flags = append(dn.Flags, FlagUnprovenancedMaterialProperty)
						hasViolations = true
					}
				} else {
					// Couldn't parse a number out of what matched; treat
					// conservatively as unprovenanced rather than silently
					// dropping it (§4.7 failure model: never abort, but
					// never assume provenance either).
					dn.Flags = append(dn.Flags, FlagUnprovenancedMaterialProperty)
					hasViolations = true
				}
			}

			detected = append(detected, dn)
		}
	}

	return text, detected, hasViolations
}

// classify implements the §4.7 step-3 classification order. Order matters:
// literature and derived markers take precedence over a bare property
// keyword, since a sentence citing MP-1234's band gap is provenance via
// citation, not a bare unprovenanced claim.
func classify(lowerSentence string) Classification {
	switch {
	case countMatches(lowerSentence, literatureIndicators) > 0:
		return ClassLiterature
	case countMatches(lowerSentence, derivedIndicators) > 0:
		return ClassDerived
	case countMatches(lowerSentence, statisticalIndicators) > 0:
		return ClassStatistical
	case countMatches(lowerSentence, materialPropertyKeywords) > 0:
		return ClassMaterialProperty
	case countMatches(lowerSentence, contextualIndicators) >= 2:
		return ClassContextual
	default:
		return ClassUnknown
	}
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func extractFormula(sentence string) string {
	return formulaPattern.FindString(sentence)
}

// looksNumeric rejects matches that are pure unit/word text with no leading
// digit, which numberPattern's optional-sign/optional-digit grouping can
// otherwise let through on degenerate input.
func looksNumeric(raw string) bool {
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// parseLeadingFloat extracts the leading numeric portion of a matched token
// (stripping any trailing unit/percent suffix) and parses it as a float64.
func parseLeadingFloat(raw string) (float64, bool) {
	end := 0
	for end < len(raw) {
		c := raw[end]
		if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			end++
			continue
		}
		break
	}
	numStr := strings.TrimSpace(raw[:end])
	if numStr == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
