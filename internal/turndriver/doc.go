// Package turndriver wires the four core components — the parallel tool
// executor, the artifact tracker, the render gate, and the context
// compactor — into one agent turn (§4.8).
//
// A Driver owns the conversation transcript and a monotonic call-id
// counter; it is not safe for concurrent RunTurn calls on the same
// instance, matching §5's "the turn driver normally owns one Tracker per
// session and calls it from a single goroutine."
package turndriver
