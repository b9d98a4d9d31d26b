package computer

import (
	"fmt"
	"strings"
	"time"
)

// UnsupportedLanguageError is returned for a language with no runtime entry
// and no registered skill.
type UnsupportedLanguageError struct {
	Language   string
	Suggestion string
}

func (e *UnsupportedLanguageError) Error() string {
	msg := fmt.Sprintf("Unsupported language: %s", e.Language)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean %q?", e.Suggestion)
	}
	return msg
}

// ExecKind classifies an execution failure.
type ExecKind string

const (
	KindCompile ExecKind = "compile"
	KindExit    ExecKind = "exit"
	KindTimeout ExecKind = "timeout"
	KindSpawn   ExecKind = "spawn"
)

// ExecError reports a failed compile or run. Output holds whatever the
// process wrote before failing.
type ExecError struct {
	Kind     ExecKind
	Language string
	ExitCode int
	Timeout  time.Duration
	Output   string
	Err      error
}

func (e *ExecError) Error() string {
	var msg string
	switch e.Kind {
	case KindCompile:
		msg = fmt.Sprintf("%s compilation failed", e.Language)
	case KindExit:
		msg = fmt.Sprintf("%s process exited with code %d", e.Language, e.ExitCode)
	case KindTimeout:
		msg = fmt.Sprintf("%s execution timed out after %gs", e.Language, e.Timeout.Seconds())
	default:
		msg = fmt.Sprintf("failed to run %s code", e.Language)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ":\n" + out
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// EnvironmentSetupError reports a toolchain that is missing and could not be
// installed. Execute returns its text as the result instead of an error.
type EnvironmentSetupError struct {
	Language string
	Missing  []string
	Reason   string
	Err      error
}

func (e *EnvironmentSetupError) Error() string {
	msg := fmt.Sprintf("Environment setup failed for %s", e.Language)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (missing %s)", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EnvironmentSetupError) Unwrap() error { return e.Err }

// RefusedError is produced by a Guard that rejects a code block.
type RefusedError struct {
	Language string
	Pattern  string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("Execution refused by safe mode: %s code contains %q, which can modify or delete files.", e.Language, e.Pattern)
}
