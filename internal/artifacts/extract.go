package artifacts

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// propertyField describes one recognised numeric field in a tool's output
// dict (§4.7): its canonical property type and inferred unit.
type propertyField struct {
	propertyType string
	unit         string
}

// knownFields is the closed vocabulary of material-property fields this
// tracker recognises by name. Field names are matched case-insensitively
// and with underscores/spaces interchangeable.
var knownFields = map[string]propertyField{
	"formation_energy":   {"formation_energy", "eV/atom"},
	"energy_per_atom":    {"energy_per_atom", "eV/atom"},
	"total_energy":       {"total_energy", "eV"},
	"band_gap":           {"band_gap", "eV"},
	"energy_above_hull":  {"energy_above_hull", "eV/atom"},
	"bulk_modulus":       {"bulk_modulus", "GPa"},
	"shear_modulus":      {"shear_modulus", "GPa"},
	"lattice_a":          {"lattice_parameter", "Å"},
	"lattice_b":          {"lattice_parameter", "Å"},
	"lattice_c":          {"lattice_parameter", "Å"},
	"a":                  {"lattice_parameter", "Å"},
	"b":                  {"lattice_parameter", "Å"},
	"c":                  {"lattice_parameter", "Å"},
	"alpha":              {"lattice_angle", "degree"},
	"beta":               {"lattice_angle", "degree"},
	"gamma":              {"lattice_angle", "degree"},
	"space_group_number": {"space_group_number", ""},
	"spacegroup_number":  {"space_group_number", ""},
	"stress_xx":          {"stress_tensor", "GPa"},
	"stress_yy":          {"stress_tensor", "GPa"},
	"stress_zz":          {"stress_tensor", "GPa"},
	"stress_xy":          {"stress_tensor", "GPa"},
	"stress_yz":          {"stress_tensor", "GPa"},
	"stress_zx":          {"stress_tensor", "GPa"},
	"voltage":            {"voltage", "V"},
	"capacity":           {"capacity", "mAh/g"},
}

// contextKeys name fields commonly found alongside numeric values that
// identify the material the numbers describe. When present in the same
// dict, their string value is attached to every ExtractedValue as Context.
var contextKeys = []string{"composition", "material", "formula", "material_id"}

// ExtractValues pulls every recognised numeric value out of a tool output.
// output may be a map[string]any, a []any, a JSON-wrapped text block
// (`{"type":"text","text":"<json>"}`), or a plain string, in which case a
// regex fallback looks for "property: value unit"-shaped text (§4.7).
func ExtractValues(output any) []ExtractedValue {
	unwrapped := unwrapTextBlock(output)
	switch t := unwrapped.(type) {
	case map[string]any:
		return extractFromMap(t, "")
	case []any:
		return extractFromSlice(t, "")
	case string:
		return extractFromString(t)
	default:
		return nil
	}
}

// unwrapTextBlock normalises the `{"type":"text","text":"<json>"}` ad-hoc
// wrapper some tool outputs arrive in into the structure it wraps, parsing
// the inner JSON when possible and otherwise leaving it a string.
func unwrapTextBlock(output any) any {
	m, ok := output.(map[string]any)
	if !ok {
		return output
	}
	if typ, _ := m["type"].(string); typ != "text" {
		return output
	}
	text, ok := m["text"].(string)
	if !ok {
		return output
	}
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}
	return text
}

func extractFromMap(m map[string]any, context string) []ExtractedValue {
	if context == "" {
		for _, key := range contextKeys {
			if v, ok := m[key]; ok {
				if s, ok := v.(string); ok && s != "" {
					context = s
					break
				}
			}
		}
	}

	var values []ExtractedValue
	for key, raw := range m {
		normalized := strings.ToLower(strings.ReplaceAll(key, " ", "_"))
		field, known := knownFields[normalized]

		switch v := raw.(type) {
		case float64:
			if known {
				values = append(values, ExtractedValue{
					Value:          v,
					OriginalString: strconv.FormatFloat(v, 'g', -1, 64),
					Unit:           field.unit,
					PropertyType:   field.propertyType,
					Context:        context,
				})
			}
		case map[string]any:
			values = append(values, extractFromMap(v, context)...)
		case []any:
			values = append(values, extractFromSlice(v, context)...)
		}
	}
	return values
}

func extractFromSlice(s []any, context string) []ExtractedValue {
	var values []ExtractedValue
	for _, item := range s {
		switch v := item.(type) {
		case map[string]any:
			values = append(values, extractFromMap(v, context)...)
		case []any:
			values = append(values, extractFromSlice(v, context)...)
		}
	}
	return values
}

// propertyPattern matches "<label>: <number> <unit>"-shaped fragments in
// free text, the fallback used when a tool's output is a plain string
// rather than structured data.
var propertyPattern = regexp.MustCompile(
	`(?i)(formation energy|energy above hull|band gap|bulk modulus|total energy|energy per atom|voltage|capacity)` +
		`\s*(?:is|of|=|:)?\s*(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)\s*([A-Za-zÅ/%]+)?`)

var fallbackPropertyTypes = map[string]string{
	"formation energy":   "formation_energy",
	"energy above hull":  "energy_above_hull",
	"band gap":           "band_gap",
	"bulk modulus":       "bulk_modulus",
	"total energy":       "total_energy",
	"energy per atom":    "energy_per_atom",
	"voltage":            "voltage",
	"capacity":           "capacity",
}

func extractFromString(text string) []ExtractedValue {
	matches := propertyPattern.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return nil
	}
	values := make([]ExtractedValue, 0, len(matches))
	for _, match := range matches {
		label := strings.ToLower(strings.TrimSpace(match[1]))
		numStr := match[2]
		unit := strings.TrimSpace(match[3])
		value, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}
		values = append(values, ExtractedValue{
			Value:          value,
			OriginalString: numStr,
			Unit:           unit,
			PropertyType:   fallbackPropertyTypes[label],
		})
	}
	return values
}
