package computer

import (
	"fmt"
	"strings"
)

// SafeMode selects how much the executor restricts code before running it.
type SafeMode string

const (
	SafeModeOff    SafeMode = "off"
	SafeModeBasic  SafeMode = "basic"
	SafeModeStrict SafeMode = "strict"
)

// ParseSafeMode validates a safe mode name. "" means off.
func ParseSafeMode(s string) (SafeMode, error) {
	switch m := SafeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", SafeModeOff:
		return SafeModeOff, nil
	case SafeModeBasic, SafeModeStrict:
		return m, nil
	default:
		return "", fmt.Errorf("unknown safe mode %q (want off, basic or strict)", s)
	}
}

// Guard decides whether a code block may run. A non-nil error refuses it
// and its text becomes the execution result.
type Guard interface {
	Check(language, code string) error
}

// DestructivePatterns are source substrings that write to or delete from
// the filesystem.
var DestructivePatterns = []string{
	"fs.writeFile",
	"fs.appendFile",
	"fs.unlink",
	"fs.rm",
	"os.remove(",
	"os.unlink(",
	"os.rmdir(",
	"shutil.rmtree(",
	"shutil.move(",
	"open(\"w\"",
	"File.delete",
	"File.write",
	"FileUtils.rm",
	"os.RemoveAll(",
	"os.WriteFile(",
	"Remove-Item",
	"rm -rf",
	"rm -r ",
	"mkfs",
	"dd if=",
	"> /dev/",
}

// PatternGuard refuses code containing any of Patterns. It only applies in
// SafeModeStrict. It is a textual heuristic, not a sandbox.
type PatternGuard struct {
	Mode     SafeMode
	Patterns []string
}

// Check implements Guard.
func (g PatternGuard) Check(language, code string) error {
	if g.Mode != SafeModeStrict {
		return nil
	}
	for _, p := range g.Patterns {
		if strings.Contains(code, p) {
			return &RefusedError{Language: language, Pattern: p}
		}
	}
	return nil
}
