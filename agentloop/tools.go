package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// ToolExecutor runs one tool invocation with its raw JSON arguments.
type ToolExecutor func(ctx context.Context, arguments json.RawMessage) (string, error)

// ToolDefinition is what the model sees: a name, a description and a JSON
// Schema for the arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// RegisteredTool is a definition bound to the function that runs it.
type RegisteredTool struct {
	Definition ToolDefinition
	Executor   ToolExecutor
}

// ToolRegistry holds tools in registration order. Names are unique; a later
// registration under an existing name replaces it in place.
type ToolRegistry struct {
	order []string
	tools map[string]*RegisteredTool
	mu    sync.RWMutex
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: map[string]*RegisteredTool{}}
}

// Register adds a tool, or replaces the one with the same name. It reports
// whether an existing tool was replaced.
func (r *ToolRegistry) Register(tool RegisteredTool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Definition.Name
	_, replaced := r.tools[name]
	if !replaced {
		r.order = append(r.order, name)
	}
	r.tools[name] = &tool
	return replaced
}

// Get returns the tool registered as name, or nil.
func (r *ToolRegistry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions lists the tool definitions in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, len(r.order))
	for i, name := range r.order {
		defs[i] = r.tools[name].Definition
	}
	return defs
}

func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Suggest returns the registered name that best fuzzy-matches name, or "".
func (r *ToolRegistry) Suggest(name string) string {
	matches := fuzzy.Find(name, r.Names())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// ParseToolArguments decodes a tool call's JSON object. Empty input is an
// empty map.
func ParseToolArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

func typedArg[T any](args map[string]any, key string) (T, bool) {
	v, ok := args[key].(T)
	return v, ok
}

// GetStringArg returns args[key] if it is a string.
func GetStringArg(args map[string]any, key string) (string, bool) {
	return typedArg[string](args, key)
}

// GetBoolArg returns args[key] if it is a bool.
func GetBoolArg(args map[string]any, key string) (bool, bool) {
	return typedArg[bool](args, key)
}

// GetIntArg truncates the numeric argument key toward zero.
func GetIntArg(args map[string]any, key string) (int, bool) {
	f, ok := GetFloatArg(args, key)
	return int(f), ok
}

// GetFloatArg returns a numeric argument. Models sometimes quote numbers,
// so numeric strings are accepted.
func GetFloatArg(args map[string]any, key string) (float64, bool) {
	switch n := args[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
