package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/crystalyse/agentcore/internal/sandbox"
	"github.com/crystalyse/agentcore/internal/telemetry"
)

// DefaultTimeout bounds a subprocess invocation when Manager.Run is called
// with timeout <= 0.
const DefaultTimeout = 120 * time.Second

// Manager runs validated command lines through a sandbox.Backend, scoping
// every invocation's default writable root to a workspace directory
// (§4.5 "Sandbox subprocess invocation"). Unlike an unconfined
// os/exec-based process manager, every invocation always goes through the
// confinement layer.
type Manager struct {
	workspace string
	backend   sandbox.Backend
	policy    sandbox.Policy
	logger    *slog.Logger
	spans     *telemetry.Spans
}

// NewManager builds a Manager scoped to workspace, running commands through
// backend under policy. A nil backend resolves to sandbox.GetBackend's
// platform default; a nil logger falls back to slog.Default().
func NewManager(workspace string, backend sandbox.Backend, policy sandbox.Policy, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if backend == nil {
		backend = sandbox.GetBackend(logger)
	}
	return &Manager{
		workspace: workspace,
		backend:   backend,
		policy:    policy,
		logger:    logger,
	}
}

// WithSpans attaches a telemetry.Spans to the manager so Run traces each
// sandbox backend invocation; it returns m for chaining at construction
// time. A nil spans (the zero value of Manager) makes Run trace nothing.
func (m *Manager) WithSpans(spans *telemetry.Spans) *Manager {
	m.spans = spans
	return m
}

// ErrEmptyCommand is returned when Run is called with no argv.
var ErrEmptyCommand = errors.New("exec: command is empty")

// Run validates argv against the executable/argument safety rules and
// executes it through the sandbox backend. cwd is resolved relative to the
// manager's workspace; an empty cwd runs in the workspace root itself.
func (m *Manager) Run(ctx context.Context, argv []string, cwd string, env map[string]string, timeout time.Duration) (sandbox.Result, error) {
	if len(argv) == 0 {
		return sandbox.Result{}, ErrEmptyCommand
	}

	exe, err := SanitizeExecutableValue(argv[0])
	if err != nil {
		return sandbox.Result{}, fmt.Errorf("exec: unsafe executable %q: %w", argv[0], err)
	}
	args, err := SanitizeArguments(argv[1:])
	if err != nil {
		return sandbox.Result{}, fmt.Errorf("exec: unsafe argument: %w", err)
	}

	dir, err := m.resolveCwd(cwd)
	if err != nil {
		return sandbox.Result{}, err
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	policy := m.policy
	if len(policy.WritableRoots) == 0 {
		policy.WritableRoots = []string{m.workspace}
	}

	cmd := append([]string{exe}, args...)
	ctx, span := m.spans.SandboxExecute(ctx, string(m.backend.Type()), cmd)
	defer span.End()

	start := time.Now()
	result, err := m.backend.Execute(ctx, cmd, dir, policy, timeout, env)
	if err != nil {
		span.RecordError(err)
	}
	m.logger.Debug("exec: command finished",
		"command", exe,
		"cwd", dir,
		"exit_code", result.ExitCode,
		"sandbox_denied", result.SandboxDenied,
		"duration", time.Since(start),
	)
	return result, err
}

// resolveCwd joins cwd onto the workspace root, rejecting paths that escape
// it.
func (m *Manager) resolveCwd(cwd string) (string, error) {
	if cwd == "" || cwd == "." {
		return m.workspace, nil
	}
	if filepath.IsAbs(cwd) {
		return "", fmt.Errorf("exec: cwd must be relative to the workspace, got absolute path %q", cwd)
	}
	joined := filepath.Join(m.workspace, cwd)
	rel, err := filepath.Rel(m.workspace, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("exec: cwd %q escapes the workspace", cwd)
	}
	return joined, nil
}
