package agentloop

import (
	"strings"
	"testing"
)

func TestTruncateOutput(t *testing.T) {
	short := "hello"
	if got := TruncateOutput(short, 100, TruncateHeadTail); got != short {
		t.Errorf("short output changed: %q", got)
	}

	long := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	headTail := TruncateOutput(long, 20, TruncateHeadTail)
	if !strings.HasPrefix(headTail, strings.Repeat("a", 10)) || !strings.HasSuffix(headTail, strings.Repeat("b", 10)) {
		t.Errorf("head_tail kept the wrong ends: %q", headTail)
	}
	if !strings.Contains(headTail, "80 characters were removed") {
		t.Errorf("expected removal count, got %q", headTail)
	}

	tail := TruncateOutput(long, 20, TruncateTail)
	if !strings.HasSuffix(tail, strings.Repeat("b", 20)) || !strings.Contains(tail, "First 80 characters") {
		t.Errorf("unexpected tail truncation: %q", tail)
	}
}

func TestTruncateLines(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = string(rune('a' + i))
	}
	got := TruncateLines(strings.Join(lines, "\n"), 4)
	want := "a\nb\n[... 6 lines omitted ...]\ni\nj"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := TruncateLines("a\nb", 0); got != "a\nb" {
		t.Errorf("zero limit should not truncate, got %q", got)
	}
}

func TestTruncateToolOutputOverrides(t *testing.T) {
	out := strings.Repeat("x", 2000)
	if got := TruncateToolOutput(out, "write_file", nil, nil); len(got) >= len(out) {
		t.Error("expected default write_file limit to truncate")
	}
	if got := TruncateToolOutput(out, "write_file", map[string]int{"write_file": 5000}, nil); got != out {
		t.Error("override should lift the limit")
	}

	many := strings.Repeat("line\n", 600)
	got := TruncateToolOutput(many, "execute_code", nil, nil)
	if !strings.Contains(got, "lines omitted") {
		t.Error("expected execute_code line limit to apply")
	}
}
