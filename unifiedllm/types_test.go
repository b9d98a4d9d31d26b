package unifiedllm

import (
	"encoding/json"
	"testing"
)

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		role Role
		text string
	}{
		{"system", SystemMessage("You are helpful."), RoleSystem, "You are helpful."},
		{"user", UserMessage("Hello"), RoleUser, "Hello"},
		{"assistant", AssistantMessage("Hi there"), RoleAssistant, "Hi there"},
		{"tool", ToolResultMessage("call_123", "4", false), RoleTool, "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.msg.Role != tt.role {
				t.Errorf("expected role %q, got %q", tt.role, tt.msg.Role)
			}
			if tt.msg.TextContent() != tt.text {
				t.Errorf("expected text %q, got %q", tt.text, tt.msg.TextContent())
			}
		})
	}

	if msg := ToolResultMessage("call_123", "x", true); msg.ToolCallID != "call_123" || !msg.Content[0].ToolResult.IsError {
		t.Errorf("tool result lost its id or error flag: %+v", msg)
	}
}

func TestMessageToolCalls(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: []ContentPart{
			TextPart("Let me check."),
			ToolCallPart("call_1", "calculator", json.RawMessage(`{"a":1}`)),
			ToolCallPart("call_2", "read_file", json.RawMessage(`{"path":"x"}`)),
		},
	}

	calls := msg.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].Name != "calculator" || calls[1].ID != "call_2" {
		t.Errorf("unexpected calls: %+v", calls)
	}
	if msg.TextContent() != "Let me check." {
		t.Errorf("tool calls leaked into text: %q", msg.TextContent())
	}

	resp := Response{Message: msg}
	if got := resp.ToolCalls(); len(got) != 2 || string(got[0].Arguments) != `{"a":1}` {
		t.Errorf("unexpected response tool calls: %+v", got)
	}
	if resp.Text() != "Let me check." {
		t.Errorf("unexpected response text %q", resp.Text())
	}
}

func TestSystemText(t *testing.T) {
	got := systemText([]Message{SystemMessage("a"), UserMessage("u"), SystemMessage("b")})
	if got != "a\n\nb" {
		t.Errorf("unexpected system text %q", got)
	}
}
