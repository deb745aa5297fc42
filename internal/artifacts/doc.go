// Package artifacts implements the provenance layer of the agent execution
// core (§4.7): every tool invocation and its output is hashed and recorded
// as an immutable Artifact, the numeric values it contains are extracted and
// indexed in a ValueRegistry, and the render gate (internal/rendergate)
// queries that registry to decide whether a material-property number in the
// model's reply traces back to a real computation.
//
// Hashing and extraction never abort a turn (§7): a failure to extract
// values from a malformed output still registers the artifact, just with an
// empty ExtractedValues slice, and is logged to the configured event sink.
package artifacts
