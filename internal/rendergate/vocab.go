package rendergate

import "strings"

// materialPropertyKeywords is the closed vocabulary of property names that
// require provenance when a number is attached to them (§4.7). Grounded on
// the original MATERIAL_PROPERTIES set (render_gate.py), trimmed of
// duplicate underscore/space variants where a single substring covers both.
var materialPropertyKeywords = []string{
	// Energy
	"formation_energy", "formation energy", "binding_energy", "binding energy",
	"cohesive_energy", "cohesive energy", "total_energy", "total energy",
	"energy_above_hull", "energy above hull", "decomposition_energy",
	"ev/atom", "kj/mol", "kcal/mol", "hartree",

	// Electronic
	"band_gap", "band gap", "bandgap", "homo", "lumo", "fermi_level",
	"fermi level", "work_function", "work function", "electron_affinity",

	// Structural
	"lattice_parameter", "lattice parameter", "lattice_constant",
	"space_group", "space group", "spacegroup", "crystal_system",
	"unit_cell", "unit cell", "cell_volume", "density",

	// Mechanical
	"bulk_modulus", "bulk modulus", "young_modulus", "young's modulus",
	"shear_modulus", "shear modulus", "hardness", "fracture_toughness",
	"stress", "strain", "gpa", "mpa",

	// Magnetic
	"magnetic_moment", "magnetic moment", "magnetization",
	"curie_temperature", "curie temperature", "néel_temperature",

	// Thermodynamic
	"melting_point", "melting point", "boiling_point", "boiling point",
	"heat_capacity", "heat capacity", "entropy", "enthalpy",
	"gibbs_energy", "gibbs energy", "free_energy",

	// Electrochemical
	"voltage", "capacity", "mah/g", "wh/kg", "coulombic_efficiency",
	"oxidation_state", "oxidation state", "redox_potential",
}

// contextualIndicators mark hedged, explanatory numbers that don't need
// provenance (§4.7 Contextual).
var contextualIndicators = []string{
	"typically", "usually", "generally", "approximately", "about",
	"roughly", "around", "often", "commonly", "tend to", "tends to",
	"in the range", "between", "varies", "can be",
	"theoretical", "experimental", "measured", "observed", "found to be",
	"average", "mean", "typical",
}

// statisticalIndicators mark counts, percentages, and summary language
// (§4.7 Statistical).
var statisticalIndicators = []string{
	"out of", "percent", "%", "fraction", "ratio", "total",
	"count", "number of", "materials", "structures", "candidates",
	"passed", "failed", "stable", "unstable", "metastable",
}

// derivedIndicators mark values computed from other, already-provenanced
// values (§4.7 Derived).
var derivedIndicators = []string{
	"calculated from", "derived from", "computed using", "based on calculation",
	"sum of", "difference between", "product of", "divided by",
	"multiplied by", "resulting in", "gives", "yields", "therefore", "thus",
}

// literatureIndicators mark references to external sources or databases
// (§4.7 Literature).
var literatureIndicators = []string{
	"materials project", "mp-", "icsd", "cod", "csd", "pubchem",
	"according to", "reported in", "published", "literature",
	"paper", "study", "research", "et al.", "reference",
	"database", "repository", "archive", "journal",
}

// countMatches counts how many terms occur in text, which must already be
// lowercased.
func countMatches(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}
