package computer

import (
	"errors"
	"testing"
)

func TestParseSafeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SafeMode
		wantErr bool
	}{
		{"", SafeModeOff, false},
		{"off", SafeModeOff, false},
		{"Basic", SafeModeBasic, false},
		{" strict ", SafeModeStrict, false},
		{"paranoid", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSafeMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSafeMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestPatternGuard(t *testing.T) {
	code := "import os\nos.remove('data.csv')"
	tests := []struct {
		mode    SafeMode
		refused bool
	}{
		{SafeModeOff, false},
		{SafeModeBasic, false},
		{SafeModeStrict, true},
	}
	for _, tt := range tests {
		err := PatternGuard{Mode: tt.mode, Patterns: DestructivePatterns}.Check("python", code)
		var refused *RefusedError
		if got := errors.As(err, &refused); got != tt.refused {
			t.Errorf("%s: refused = %v, want %v", tt.mode, got, tt.refused)
		}
		if tt.refused && refused.Pattern != "os.remove(" {
			t.Errorf("%s: unexpected pattern %q", tt.mode, refused.Pattern)
		}
	}

	if err := (PatternGuard{Mode: SafeModeStrict, Patterns: DestructivePatterns}).Check("python", "print(1)"); err != nil {
		t.Errorf("harmless code refused: %v", err)
	}
}
