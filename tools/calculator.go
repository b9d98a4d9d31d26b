package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/martinemde/codeinterp/agentloop"
)

// CalculatorDefinition describes the calculator tool.
func CalculatorDefinition() agentloop.ToolDefinition {
	ops := prop("string", "The operation to perform.")
	ops["enum"] = []string{"add", "subtract", "multiply", "divide"}
	return agentloop.ToolDefinition{
		Name:        "calculator",
		Description: "Perform a basic arithmetic operation on two numbers.",
		Parameters: schema([]string{"operation", "a", "b"}, map[string]interface{}{
			"operation": ops,
			"a":         prop("number", "The first operand."),
			"b":         prop("number", "The second operand."),
		}),
	}
}

// Calculator executes the calculator tool. Division by zero is reported in
// the result text, not as an error.
func Calculator(_ context.Context, arguments json.RawMessage) (string, error) {
	args, err := agentloop.ParseToolArguments(arguments)
	if err != nil {
		return "", err
	}
	op, _ := agentloop.GetStringArg(args, "operation")
	a, okA := agentloop.GetFloatArg(args, "a")
	b, okB := agentloop.GetFloatArg(args, "b")
	if !okA || !okB {
		return "", fmt.Errorf("a and b must be numbers")
	}

	var result float64
	switch op {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return "Error: Division by zero.", nil
		}
		result = a / b
	default:
		return "", fmt.Errorf("unknown operation %q (want add, subtract, multiply or divide)", op)
	}
	return strconv.FormatFloat(result, 'g', -1, 64), nil
}
