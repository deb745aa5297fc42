// Package sandbox wraps subprocess invocation under platform-specific
// confinement: a generated Seatbelt (SBPL) profile on macOS, a Landlock
// ruleset (plus an optional network-blocking seccomp filter) on Linux, and
// an unconfined pass-through everywhere else (§4.5).
//
// Callers describe intent with a Policy (disk/network access level plus
// writable roots); GetBackend dispatches to the platform implementation at
// runtime. Every backend reports denials detected from the child's output
// even when the underlying confinement mechanism itself can't be verified
// from Go, so callers get a consistent SandboxResult regardless of platform.
package sandbox
