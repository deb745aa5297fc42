// Package rendergate screens model-facing text for numerical material
// property claims that lack provenance (§4.5, §4.7).
//
// It never blocks or rewrites a turn: unprovenanced claims are flagged so a
// caller can warn, annotate, or log, and extraction/classification/lookup
// failures are treated as "unprovenanced" rather than propagated as errors.
package rendergate
