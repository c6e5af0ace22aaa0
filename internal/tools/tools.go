// Package tools executes tool calls requested by agents in gateway replies.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/switchboardhq/switchboard/internal/gateway"
)

// Runner executes one tool call and returns its output. Implementations are
// external collaborators; the scheduler only needs this seam.
type Runner interface {
	Run(ctx context.Context, call gateway.ToolCall) (string, error)
}

// Func is a single tool implementation.
type Func func(ctx context.Context, arguments string) (string, error)

// Registry is a Runner backed by a name-to-function map.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty tool Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces a tool implementation.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Run executes the named tool.
func (r *Registry) Run(ctx context.Context, call gateway.ToolCall) (string, error) {
	r.mu.RLock()
	fn, ok := r.funcs[call.Name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("tools: unknown tool %q", call.Name)
	}
	out, err := fn(ctx, call.Arguments)
	if err != nil {
		return "", fmt.Errorf("tools: %s: %w", call.Name, err)
	}
	return out, nil
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
