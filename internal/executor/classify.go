package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/crystalyse/agentcore/pkg/models"
)

// Handler executes a tool call and returns a JSON-serialisable value. The
// executor stringifies the return value via canonical JSON unless it is
// already a string (§6's handler contract).
type Handler func(ctx context.Context, input map[string]any) (any, error)

type registeredTool struct {
	spec    models.ToolSpec
	handler Handler
}

// Registry is a read-mostly lookup from tool name to its spec and handler.
// The tool spec map is read-only after construction: Register/Unregister
// are intended for setup time, not for use while calls are in flight.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register adds or replaces a tool. It returns an error if name is empty or
// handler is nil.
func (r *Registry) Register(spec models.ToolSpec, handler Handler) error {
	if spec.Name == "" {
		return fmt.Errorf("executor: tool name must not be empty")
	}
	if handler == nil {
		return fmt.Errorf("executor: tool %q has no handler", spec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = &registeredTool{spec: spec, handler: handler}
	return nil
}

// Unregister removes a tool.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Lookup returns the registered tool for name, classifying it purely by
// table lookup: no heuristics are applied to unknown tool names (§4.4).
func (r *Registry) Lookup(name string) (spec models.ToolSpec, handler Handler, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return models.ToolSpec{}, nil, false
	}
	return t.spec, t.handler, true
}

// Specs returns a snapshot of every registered tool spec.
func (r *Registry) Specs() []models.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]models.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, t.spec)
	}
	return specs
}
