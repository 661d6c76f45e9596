// ABOUTME: Thread-safe registry for the tools exposed over MCP.
// ABOUTME: Provides a single explicit registration path with collision detection.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrToolCollision indicates a tool name is already registered.
var ErrToolCollision = errors.New("tool name collision")

// ErrToolNotFound indicates the named tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// HandlerFunc executes a tool call. Input is the raw JSON arguments object;
// the returned message is the raw JSON result.
type HandlerFunc func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Tool describes a registered tool: its name, description, JSON Schema for
// input validation, and the handler that executes it.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     HandlerFunc
}

// Registry maintains the set of registered tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register validates and stores a tool. Returns ErrToolCollision if the name
// is already taken. This is the only registration path.
func (r *Registry) Register(tool *Tool) error {
	if tool == nil {
		return errors.New("tool is nil")
	}
	if tool.Name == "" {
		return errors.New("tool name is empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %q has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %q", ErrToolCollision, tool.Name)
	}

	r.tools[tool.Name] = tool

	r.logger.Debug("tool registered", "tool", tool.Name)
	return nil
}

// RegisterAll registers every tool in the slice, stopping at the first error.
func (r *Registry) RegisterAll(tools []*Tool) error {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return tool, nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Call looks up and executes the named tool.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return tool.Handler(ctx, input)
}
