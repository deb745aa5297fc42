package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crystalyse/agentcore/internal/executor"
	"github.com/crystalyse/agentcore/pkg/models"
)

// toolSchema requires an argv-style command (no shell string) so that every
// element passes through SanitizeExecutableValue/SanitizeArguments rather
// than being interpreted by a shell, which would defeat them.
var toolSchema = json.RawMessage(`{
	"type": "object",
	"required": ["command"],
	"properties": {
		"command": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1
		},
		"cwd": {"type": "string"},
		"env": {"type": "object"},
		"timeout_seconds": {"type": "integer", "minimum": 0}
	}
}`)

// Spec is the tool specification for the sandboxed subprocess tool,
// registered non-parallel (§4.4 classification): a subprocess can mutate
// the workspace, so it runs under the executor's exclusive write guard
// alongside other write tools.
func Spec(name string) models.ToolSpec {
	if name == "" {
		name = "run_command"
	}
	return models.ToolSpec{
		Name:             name,
		Description:      "Run a command, confined by the sandbox policy, and return its output.",
		SupportsParallel: false,
		Schema:           toolSchema,
	}
}

// Handler adapts a Manager into an executor.Handler, decoding the
// schema-validated input and reporting sandbox denials as part of the
// returned value rather than as a handler error, so the caller can see
// stdout/stderr/exit code even when the command was denied.
func Handler(mgr *Manager) executor.Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		argv, err := stringSlice(input["command"])
		if err != nil {
			return nil, fmt.Errorf("exec tool: %w", err)
		}
		cwd, _ := input["cwd"].(string)
		env := stringMap(input["env"])
		timeout := DefaultTimeout
		if secs, ok := input["timeout_seconds"].(float64); ok && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}

		result, err := mgr.Run(ctx, argv, cwd, env, timeout)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"stdout":         result.Stdout,
			"stderr":         result.Stderr,
			"exit_code":      result.ExitCode,
			"sandbox_type":   string(result.SandboxType),
			"sandbox_denied": result.SandboxDenied,
			"denial_reason":  result.DenialReason,
		}, nil
	}
}

func stringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("command must be a non-empty array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("command elements must be strings")
		}
		out = append(out, s)
	}
	return out, nil
}

func stringMap(v any) map[string]string {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
