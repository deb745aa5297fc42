//go:build !linux

package sandbox

import "errors"

// ErrLandlockUnsupported is returned by RestrictSelf on platforms without
// Landlock.
var ErrLandlockUnsupported = errors.New("landlock is only supported on linux")

// MaybeRunHelper is a no-op on non-Linux platforms; cmd/agentcore calls it
// unconditionally so main() doesn't need a build tag of its own.
func MaybeRunHelper() {}

// RestrictSelf always fails on non-Linux platforms.
func RestrictSelf(policy Policy, cwd string) error {
	return ErrLandlockUnsupported
}
