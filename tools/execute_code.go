package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/martinemde/codeinterp/agentloop"
)

// ExecuteCodeDefinition describes the execute_code tool.
func ExecuteCodeDefinition() agentloop.ToolDefinition {
	return agentloop.ToolDefinition{
		Name:        "execute_code",
		Description: "Run a code snippet and return its combined stdout and stderr.",
		Parameters: schema([]string{"language", "code"}, map[string]interface{}{
			"language": prop("string", "Language of the snippet, e.g. python, javascript, shell, go."),
			"code":     prop("string", "Source code to run."),
		}),
	}
}

// ExecuteCode returns an executor backed by runner. Execution failures are
// returned as output so the model can read and correct them.
func ExecuteCode(runner agentloop.CodeRunner) agentloop.ToolExecutor {
	return func(ctx context.Context, arguments json.RawMessage) (string, error) {
		args, err := agentloop.ParseToolArguments(arguments)
		if err != nil {
			return "", err
		}
		language, _ := agentloop.GetStringArg(args, "language")
		code, _ := agentloop.GetStringArg(args, "code")
		if language == "" {
			return "", fmt.Errorf("language is required")
		}

		output, err := runner.Execute(ctx, language, code)
		if err != nil {
			if output != "" {
				return output + "\n" + err.Error(), nil
			}
			return err.Error(), nil
		}
		return output, nil
	}
}
