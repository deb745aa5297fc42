//go:build linux

package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func getPlatformBackend(logger *slog.Logger) Backend {
	return NewLandlockBackend(logger)
}

// landlockHelperFlag is the argv[1] this binary recognises as "re-exec
// entered helper mode" (§4.5 "a backend that spawns a helper"). A
// cmd/agentcore main() must call MaybeRunHelper() before any other work so
// this dispatch happens before cobra/flag parsing sees the same argv.
const landlockHelperFlag = "__sandbox-landlock-helper"

// helperPayload is the policy/cwd this process needs to restrict itself
// before execve-ing the real command, passed as a JSON blob in argv[2].
// Protect is carried through for parity with the macOS profile builder but
// unused here: Landlock rules are additive with no subtraction operator,
// so a write-allow rule on a root can't be narrowed to exclude a nested
// path the way SBPL's require-not can (§4.5 covers only macOS for this).
type helperPayload struct {
	Roots   []string `json:"roots"`
	Protect []string `json:"protect"`
}

// LandlockBackend confines subprocesses with a Landlock ruleset applied by
// a re-exec'd helper (§4.5 "Policy assembly (Linux)").
type LandlockBackend struct {
	logger *slog.Logger
}

func NewLandlockBackend(logger *slog.Logger) *LandlockBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LandlockBackend{logger: logger}
}

func (b *LandlockBackend) Type() Type { return TypeLandlock }

func (b *LandlockBackend) Execute(ctx context.Context, argv []string, cwd string, policy Policy, timeout time.Duration, env map[string]string) (Result, error) {
	if policy.Unrestricted() {
		return runUnconfined(ctx, argv, cwd, env, TypeNone, timeout)
	}
	if len(argv) == 0 {
		return Result{ExitCode: 127, Stderr: "Command not found", SandboxType: TypeLandlock}, nil
	}

	self, err := os.Executable()
	if err != nil {
		b.logger.Warn("sandbox: could not resolve self for landlock helper, running unconfined", "error", err)
		return runUnconfined(ctx, argv, cwd, env, TypeNone, timeout)
	}

	var roots, protect []string
	if policy.AllowsWrites() {
		for _, r := range ResolveWritableRoots(policy, cwd) {
			roots = append(roots, r.Path)
			protect = append(protect, r.Protected...)
		}
	}
	payload, err := json.Marshal(helperPayload{Roots: roots, Protect: protect})
	if err != nil {
		return Result{}, fmt.Errorf("encode landlock helper payload: %w", err)
	}

	wrapped := append([]string{self, landlockHelperFlag, string(payload), "--"}, argv...)

	envOverrides := map[string]string{}
	if !policy.NetworkAccess {
		envOverrides["CRYSTALYSE_SANDBOX_NETWORK_DISABLED"] = "1"
	}
	merged := make(map[string]string, len(env)+len(envOverrides))
	for k, v := range env {
		merged[k] = v
	}
	for k, v := range envOverrides {
		merged[k] = v
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runUnconfined(ctx, wrapped, cwd, merged, TypeLandlock, timeout)
}

// MaybeRunHelper checks os.Args for the landlock helper invocation; when
// present it restricts the current process per the encoded policy and
// execve's the real command, never returning. A cmd/agentcore main() calls
// this first, before any flag/cobra parsing.
func MaybeRunHelper() {
	if len(os.Args) < 4 || os.Args[1] != landlockHelperFlag {
		return
	}
	var payload helperPayload
	if err := json.Unmarshal([]byte(os.Args[2]), &payload); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox: invalid landlock helper payload: %v\n", err)
		os.Exit(126)
	}

	sepIdx := 3
	if sepIdx >= len(os.Args) || os.Args[sepIdx] != "--" {
		fmt.Fprintln(os.Stderr, "sandbox: malformed landlock helper invocation")
		os.Exit(126)
	}
	target := os.Args[sepIdx+1:]
	if len(target) == 0 {
		fmt.Fprintln(os.Stderr, "sandbox: landlock helper invoked with no target command")
		os.Exit(126)
	}

	if err := restrictSelf(payload); err != nil {
		if errors.Is(err, unix.ENOSYS) {
			fmt.Fprintln(os.Stderr, "sandbox: landlock unsupported by kernel, running unconfined")
		} else {
			fmt.Fprintf(os.Stderr, "sandbox: landlock restriction failed, running unconfined: %v\n", err)
		}
	}

	path, err := exec.LookPath(target[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Command not found")
		os.Exit(127)
	}
	if err := syscall.Exec(path, target, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox: exec failed: %v\n", err)
		os.Exit(126)
	}
}

// restrictSelf applies PR_SET_NO_NEW_PRIVS, builds a Landlock ruleset
// granting read-everywhere plus write-only-in-roots, and restricts the
// calling process to it (§4.5). On ENOSYS the caller falls through and
// execs unconfined with a stderr warning, the same fallback as the
// subprocess backend.
func restrictSelf(payload helperPayload) error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("prctl no_new_privs: %w", err)
	}

	const accessFS = unix.LANDLOCK_ACCESS_FS_EXECUTE |
		unix.LANDLOCK_ACCESS_FS_WRITE_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_DIR |
		unix.LANDLOCK_ACCESS_FS_REMOVE_DIR |
		unix.LANDLOCK_ACCESS_FS_REMOVE_FILE |
		unix.LANDLOCK_ACCESS_FS_MAKE_CHAR |
		unix.LANDLOCK_ACCESS_FS_MAKE_DIR |
		unix.LANDLOCK_ACCESS_FS_MAKE_REG |
		unix.LANDLOCK_ACCESS_FS_MAKE_SOCK |
		unix.LANDLOCK_ACCESS_FS_MAKE_FIFO |
		unix.LANDLOCK_ACCESS_FS_MAKE_BLOCK |
		unix.LANDLOCK_ACCESS_FS_MAKE_SYM

	attr := unix.LandlockRulesetAttr{Access: accessFS}
	rulesetFD, err := unix.LandlockCreateRuleset(&attr, 0)
	if err != nil {
		return fmt.Errorf("landlock_create_ruleset: %w", err)
	}
	defer unix.Close(rulesetFD)

	const readOnlyMask = unix.LANDLOCK_ACCESS_FS_EXECUTE |
		unix.LANDLOCK_ACCESS_FS_READ_FILE |
		unix.LANDLOCK_ACCESS_FS_READ_DIR

	if err := addPathRule(rulesetFD, "/", readOnlyMask); err != nil {
		return fmt.Errorf("allow read-only rule for /: %w", err)
	}
	if err := addPathRule(rulesetFD, "/dev/null", accessFS); err != nil {
		return fmt.Errorf("allow full-access rule for /dev/null: %w", err)
	}
	for _, root := range payload.Roots {
		if err := addPathRule(rulesetFD, root, accessFS); err != nil {
			return fmt.Errorf("allow full-access rule for %s: %w", root, err)
		}
	}

	if err := unix.LandlockRestrictSelf(rulesetFD, 0); err != nil {
		return fmt.Errorf("landlock_restrict_self: %w", err)
	}
	return nil
}

func addPathRule(rulesetFD int, path string, access uint64) error {
	fd, err := unix.Open(path, unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return err
	}
	defer unix.Close(fd)

	attr := unix.LandlockPathBeneathAttr{
		AllowedAccess: access,
		ParentFd:      int32(fd),
	}
	return unix.LandlockAddPathBeneathRule(rulesetFD, &attr, 0)
}

// RestrictSelf applies the same Landlock confinement the helper uses, to
// the current process directly (§C "In-process Landlock self-restriction")
// — for binaries that want to confine themselves rather than spawning a
// child.
func RestrictSelf(policy Policy, cwd string) error {
	var roots, protect []string
	if policy.AllowsWrites() {
		for _, r := range ResolveWritableRoots(policy, cwd) {
			roots = append(roots, r.Path)
			protect = append(protect, r.Protected...)
		}
	}
	return restrictSelf(helperPayload{Roots: roots, Protect: protect})
}
