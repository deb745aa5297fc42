// Package executor implements the agent execution core's parallel tool
// executor: classification of tools as read-only or mutating, scheduling
// of reads concurrently under a shared lock and writes exclusively under
// an exclusive one, submission-order preserving drains, and cancellation
// propagation via context.Context.
//
// Three building blocks compose into that contract:
//
//   - rwLock: the multi-reader/single-writer coordinator (§4.3).
//   - orderedFutures: the FIFO of in-flight calls that drains in
//     submission order regardless of completion order (§4.2).
//   - Executor: ties the two together with per-call timeouts, retries,
//     and ToolMetrics/TurnMetrics recording (§4.4).
package executor
