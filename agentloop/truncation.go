package agentloop

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how output is truncated.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// defaultToolCharLimit applies to tools with no entry in DefaultToolCharLimits.
const defaultToolCharLimit = 30000

// DefaultToolCharLimits caps the characters of tool output sent back to the model.
var DefaultToolCharLimits = map[string]int{
	"read_file":      50000,
	"execute_code":   30000,
	"list_directory": 20000,
	"edit_file":      10000,
	"write_file":     1000,
	"calculator":     1000,
}

// DefaultTruncationModes picks which end of a tool's output is kept.
var DefaultTruncationModes = map[string]TruncationMode{
	"read_file":      TruncateHeadTail,
	"execute_code":   TruncateHeadTail,
	"list_directory": TruncateTail,
	"edit_file":      TruncateTail,
	"write_file":     TruncateTail,
}

// DefaultToolLineLimits are applied after character truncation.
var DefaultToolLineLimits = map[string]int{
	"execute_code":   256,
	"list_directory": 500,
}

// TruncateOutput cuts output to maxChars, keeping the end (TruncateTail)
// or both ends (TruncateHeadTail), and says how much was dropped.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	removed := len(output) - maxChars
	if maxChars <= 0 || removed <= 0 {
		return output
	}
	if mode == TruncateTail {
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n%s",
			removed, output[removed:])
	}
	half := maxChars / 2
	return fmt.Sprintf("%s\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
		"If you need to see specific parts, re-run the tool with more targeted parameters.]\n\n%s",
		output[:half], removed, output[len(output)-half:])
}

// TruncateLines keeps the first and last lines of output, maxLines in
// total.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return output
	}
	head := maxLines / 2
	tail := len(lines) - (maxLines - head)
	return fmt.Sprintf("%s\n[... %d lines omitted ...]\n%s",
		strings.Join(lines[:head], "\n"), tail-head, strings.Join(lines[tail:], "\n"))
}

// TruncateToolOutput applies the character limit and then the line limit for
// toolName. charLimits and lineLimits override the package defaults.
func TruncateToolOutput(output, toolName string, charLimits, lineLimits map[string]int) string {
	maxChars := lookup(toolName, defaultToolCharLimit, charLimits, DefaultToolCharLimits)
	mode := lookup(toolName, TruncateHeadTail, DefaultTruncationModes)
	maxLines := lookup(toolName, 0, lineLimits, DefaultToolLineLimits)
	return TruncateLines(TruncateOutput(output, maxChars, mode), maxLines)
}

// lookup returns key's value from the first table that has it.
func lookup[V any](key string, fallback V, tables ...map[string]V) V {
	for _, t := range tables {
		if v, ok := t[key]; ok {
			return v
		}
	}
	return fallback
}
