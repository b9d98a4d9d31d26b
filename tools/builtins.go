// Package tools provides the built-in tools a session can offer the model:
// arithmetic, code execution and file access rooted at a work directory.
package tools

import (
	"github.com/martinemde/codeinterp/agentloop"
)

// Registrar accepts tool registrations. *agentloop.Session satisfies it.
type Registrar interface {
	RegisterTool(def agentloop.ToolDefinition, executor agentloop.ToolExecutor)
}

// Options selects which built-ins RegisterBuiltins installs.
type Options struct {
	// WorkDir roots the file tools. "" skips them.
	WorkDir string
	// Runner backs execute_code. nil skips it.
	Runner agentloop.CodeRunner
}

// RegisterBuiltins registers the calculator plus whichever of execute_code
// and the file tools opts enables, in that order.
func RegisterBuiltins(r Registrar, opts Options) {
	r.RegisterTool(CalculatorDefinition(), Calculator)
	if opts.Runner != nil {
		r.RegisterTool(ExecuteCodeDefinition(), ExecuteCode(opts.Runner))
	}
	if opts.WorkDir != "" {
		files := NewFiles(opts.WorkDir)
		r.RegisterTool(ReadFileDefinition(), files.ReadFile)
		r.RegisterTool(WriteFileDefinition(), files.WriteFile)
		r.RegisterTool(EditFileDefinition(), files.EditFile)
		r.RegisterTool(ListDirectoryDefinition(), files.ListDirectory)
	}
}

func schema(required []string, properties map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}
