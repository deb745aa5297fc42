//go:build darwin

package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

func getPlatformBackend(logger *slog.Logger) Backend {
	return NewSeatbeltBackend(logger)
}

// SeatbeltBackend confines subprocesses with macOS's sandbox-exec and a
// generated SBPL profile (§4.5 "Policy assembly (macOS)").
type SeatbeltBackend struct {
	logger *slog.Logger
}

// NewSeatbeltBackend builds a Seatbelt-confined backend.
func NewSeatbeltBackend(logger *slog.Logger) *SeatbeltBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeatbeltBackend{logger: logger}
}

func (b *SeatbeltBackend) Type() Type { return TypeSeatbelt }

func (b *SeatbeltBackend) Execute(ctx context.Context, argv []string, cwd string, policy Policy, timeout time.Duration, env map[string]string) (Result, error) {
	if policy.Unrestricted() {
		return runUnconfined(ctx, argv, cwd, env, TypeNone, timeout)
	}
	if len(argv) == 0 {
		return Result{ExitCode: 127, Stderr: "Command not found", SandboxType: TypeSeatbelt}, nil
	}

	profile, params := buildSBPLProfile(policy, cwd)

	wrapped := append([]string{"sandbox-exec", "-p", profile}, paramArgs(params)...)
	wrapped = append(wrapped, argv...)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runUnconfined(ctx, wrapped, cwd, env, TypeSeatbelt, timeout)
}

// paramArgs turns the parameter bindings collected while building the
// profile into sandbox-exec's `-D NAME=value` flags.
func paramArgs(params map[string]string) []string {
	args := make([]string, 0, len(params)*2)
	for name, value := range params {
		args = append(args, "-D", fmt.Sprintf("%s=%s", name, value))
	}
	return args
}

// baseSBPLTemplate establishes the deny-by-default posture and the small
// set of always-on allowances every profile needs to run a process at all
// (§4.5): process-exec/fork, a restricted sysctl-read list, iokit-open for
// the root domain, pseudo-tty, and POSIX semaphores.
const baseSBPLTemplate = `(version 1)
(deny default)
(allow process-exec)
(allow process-fork)
(allow sysctl-read
  (sysctl-name "hw.ncpu")
  (sysctl-name "hw.activecpu")
  (sysctl-name "hw.byteorder")
  (sysctl-name "hw.memsize")
  (sysctl-name "kern.ostype")
  (sysctl-name "kern.osversion")
  (sysctl-name "kern.osrelease"))
(allow iokit-open (iokit-registry-entry-class "IORegistryEntry"))
(allow pseudo-tty)
(allow ipc-posix-sem)
`

// buildSBPLProfile renders an SBPL policy string and the `-D` parameter
// bindings it references, following §4.5's file-read/file-write/network
// assembly rules.
func buildSBPLProfile(policy Policy, cwd string) (string, map[string]string) {
	var sb strings.Builder
	sb.WriteString(baseSBPLTemplate)

	if policy.AllowsRead() {
		sb.WriteString("(allow file-read*)\n")
	}

	params := make(map[string]string)

	if policy.AllowsWrites() {
		roots := ResolveWritableRoots(policy, cwd)
		for i, root := range roots {
			rootParam := fmt.Sprintf("WRITABLE_ROOT_%d", i)
			params[rootParam] = root.Path

			if len(root.Protected) == 0 {
				fmt.Fprintf(&sb, "(allow file-write* (subpath (param %q)))\n", rootParam)
				continue
			}

			sb.WriteString("(allow file-write*\n  (require-all\n    (subpath (param \"" + rootParam + "\"))\n")
			for j, protected := range root.Protected {
				roParam := fmt.Sprintf("%s_RO_%d", rootParam, j)
				params[roParam] = protected
				fmt.Fprintf(&sb, "    (require-not (subpath (param %q)))\n", roParam)
			}
			sb.WriteString("  ))\n")
		}
	} else {
		sb.WriteString("(allow file-write* (literal \"/dev/null\"))\n")
	}

	if policy.NetworkAccess {
		sb.WriteString(`(allow network-outbound)
(allow network-inbound)
(allow mach-lookup
  (global-name "com.apple.SystemConfiguration.configd")
  (global-name "com.apple.SecurityServer")
  (global-name "com.apple.mDNSResponder"))
`)
	}

	return sb.String(), params
}
