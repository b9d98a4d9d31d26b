package unifiedllm

import (
	"strings"
	"testing"
)

func TestGollmAdapterShape(t *testing.T) {
	adapter := &GollmAdapter{name: "local"}
	if adapter.Shape() != ShapeDirect {
		t.Errorf("expected direct shape, got %v", adapter.Shape())
	}
	if adapter.Name() != "local" {
		t.Errorf("expected name %q, got %q", "local", adapter.Name())
	}
}

func TestFlattenConversation(t *testing.T) {
	system, input := flattenConversation([]Message{
		SystemMessage("You run code."),
		UserMessage("add 2 and 2"),
		AssistantMessage("```python\nprint(2+2)\n```"),
		UserMessage("4"),
	})

	if system != "You run code." {
		t.Errorf("unexpected system prompt %q", system)
	}
	want := "user: add 2 and 2\nassistant: ```python\nprint(2+2)\n```\nuser: 4\nassistant:"
	if input != want {
		t.Errorf("unexpected prompt:\n%s\nwant:\n%s", input, want)
	}
}

func TestFlattenConversationEmpty(t *testing.T) {
	_, input := flattenConversation([]Message{SystemMessage("sys")})
	if !strings.HasPrefix(input, "Hello") {
		t.Errorf("expected placeholder prompt, got %q", input)
	}
}

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{name: "local"}

	tests := []struct {
		errMsg    string
		check     func(error) bool
		retryable bool
	}{
		{"401 Unauthorized", func(e error) bool { _, ok := e.(*AuthenticationError); return ok }, false},
		{"model not found", func(e error) bool { _, ok := e.(*NotFoundError); return ok }, false},
		{"429 rate limit exceeded", func(e error) bool { _, ok := e.(*RateLimitError); return ok }, true},
		{"context length exceeded", func(e error) bool { _, ok := e.(*ContextLengthError); return ok }, false},
		{"dial tcp: connection refused", func(e error) bool { _, ok := e.(*NetworkError); return ok }, true},
		{"timeout waiting for response", func(e error) bool { _, ok := e.(*RequestTimeoutError); return ok }, true},
		{"something unknown", func(e error) bool { _, ok := e.(*ProviderError); return ok }, true},
	}

	for _, tt := range tests {
		err := adapter.translateError(errForMsg(tt.errMsg))
		if !tt.check(err) {
			t.Errorf("for %q: unexpected error type %T", tt.errMsg, err)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("for %q: expected retryable=%v", tt.errMsg, tt.retryable)
		}
	}
}

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }
func errForMsg(msg string) error     { return &simpleError{msg: msg} }
