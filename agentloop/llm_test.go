package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/martinemde/codeinterp/unifiedllm"
)

type stubAdapter struct {
	name    string
	shape   unifiedllm.Shape
	resp    *unifiedllm.Response
	calls   int
	lastReq unifiedllm.Request
}

func (a *stubAdapter) Name() string { return a.name }
func (a *stubAdapter) Shape() unifiedllm.Shape { return a.shape }

func (a *stubAdapter) Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	a.calls++
	a.lastReq = req
	return a.resp, nil
}

func newStubLLM(shape unifiedllm.Shape, cfg LLMConfig, msg unifiedllm.Message) (*LLM, *stubAdapter) {
	adapter := &stubAdapter{name: cfg.Provider, shape: shape, resp: &unifiedllm.Response{Message: msg}}
	client := unifiedllm.NewClient(unifiedllm.WithProvider(cfg.Provider, adapter))
	return NewLLM(client, cfg, nil), adapter
}

func TestEffectiveMaxTokens(t *testing.T) {
	tests := []struct {
		max, window, want int
	}{
		{1000, 8192, 1000},
		{8192, 8192, 8192},
		{10000, 8192, 1638},
		{200000, 131072, 26214},
		{0, 8192, 0},
		{5000, 0, 5000},
	}
	for _, tt := range tests {
		if got := EffectiveMaxTokens(tt.max, tt.window); got != tt.want {
			t.Errorf("EffectiveMaxTokens(%d, %d) = %d, want %d", tt.max, tt.window, got, tt.want)
		}
	}
}

func TestCheckConversation(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []Message
		wantErr bool
	}{
		{"valid", []Message{NewSystemMessage("s"), NewUserMessage("u")}, false},
		{"system only", []Message{NewSystemMessage("s")}, false},
		{"empty", nil, true},
		{"user first", []Message{NewUserMessage("u"), NewSystemMessage("s")}, true},
		{"second system", []Message{NewSystemMessage("s"), NewUserMessage("u"), NewSystemMessage("x")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConversation(tt.msgs)
			if tt.wantErr {
				var inv *InvariantError
				if !errors.As(err, &inv) {
					t.Errorf("expected InvariantError, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLLMRunRejectsBadConversation(t *testing.T) {
	llm, adapter := newStubLLM(unifiedllm.ShapeChat, LLMConfig{Provider: "openai"}, unifiedllm.AssistantMessage("x"))
	_, err := llm.Run(context.Background(), []Message{NewUserMessage("hi")}, nil)
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvariantError, got %v", err)
	}
	if adapter.calls != 0 {
		t.Errorf("expected no provider call, got %d", adapter.calls)
	}
}

func TestLLMRunChatShape(t *testing.T) {
	reply := unifiedllm.Message{
		Role: unifiedllm.RoleAssistant,
		Content: []unifiedllm.ContentPart{
			unifiedllm.TextPart("calling"),
			unifiedllm.ToolCallPart("", "add", json.RawMessage(`{"a":1}`)),
		},
	}
	llm, adapter := newStubLLM(unifiedllm.ShapeChat, LLMConfig{
		Provider:      "openai",
		Model:         "gpt-4o",
		Temperature:   0.2,
		MaxTokens:     10000,
		ContextWindow: 8192,
	}, reply)

	msg, err := llm.Run(context.Background(),
		[]Message{NewSystemMessage("sys"), NewUserMessage("hi")},
		[]ToolDefinition{addTool})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Role != RoleAssistant || msg.Content != "calling" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != "add" || msg.ToolCalls[0].ID == "" {
		t.Fatalf("unexpected tool calls %+v", msg.ToolCalls)
	}
	if msg.ToolCalls[0].Function.Arguments != `{"a":1}` {
		t.Errorf("unexpected arguments %q", msg.ToolCalls[0].Function.Arguments)
	}

	req := adapter.lastReq
	if len(req.ToolDefs) != 1 || req.ToolDefs[0].Name != "add" {
		t.Errorf("expected tool definitions to be sent, got %+v", req.ToolDefs)
	}
	if req.MaxTokens == nil || *req.MaxTokens != 1638 {
		t.Errorf("expected clamped max tokens 1638, got %v", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", req.Temperature)
	}
	if req.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", req.Model)
	}
}

func TestLLMRunDirectShapeSendsNoTools(t *testing.T) {
	llm, adapter := newStubLLM(unifiedllm.ShapeDirect, LLMConfig{Provider: "local"}, unifiedllm.AssistantMessage("plain"))

	msg, err := llm.Run(context.Background(), []Message{NewSystemMessage("sys"), NewUserMessage("hi")}, []ToolDefinition{addTool})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Content != "plain" {
		t.Errorf("unexpected content %q", msg.Content)
	}
	if adapter.lastReq.ToolDefs != nil {
		t.Errorf("direct shape must not receive tools, got %+v", adapter.lastReq.ToolDefs)
	}
}

func TestLLMContextWindow(t *testing.T) {
	tests := []struct {
		cfg  LLMConfig
		want int
	}{
		{LLMConfig{ContextWindow: 4096, Model: "gpt-4o"}, 4096},
		{LLMConfig{Model: "gpt-4o"}, 128000},
		{LLMConfig{Model: "unknown-model"}, 8192},
	}
	for _, tt := range tests {
		l := NewLLM(unifiedllm.NewClient(), tt.cfg, nil)
		if got := l.ContextWindow(); got != tt.want {
			t.Errorf("ContextWindow(%+v) = %d, want %d", tt.cfg, got, tt.want)
		}
	}
}

func TestToRequestMessages(t *testing.T) {
	got := ToRequestMessages([]Message{
		{Role: "SYSTEM", Content: "sys"},
		NewUserMessage("hi"),
		NewAssistantMessage("", toolCall("c1", "add", `{"a":1}`), toolCall("c2", "add", `{bad`)),
		NewToolMessage("c1", "2"),
		NewToolMessage("gone", "orphan"),
		NewComputerMessage("output"),
	})

	wantRoles := []unifiedllm.Role{
		unifiedllm.RoleSystem, unifiedllm.RoleUser, unifiedllm.RoleAssistant,
		unifiedllm.RoleTool, unifiedllm.RoleUser, unifiedllm.RoleUser,
	}
	if len(got) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(got))
	}
	for i, r := range wantRoles {
		if got[i].Role != r {
			t.Errorf("message %d: expected role %q, got %q", i, r, got[i].Role)
		}
	}

	calls := got[2].ToolCalls()
	if len(calls) != 2 || string(calls[1].Arguments) != "{}" {
		t.Errorf("expected invalid arguments to be replaced, got %+v", calls)
	}
	if got[3].ToolCallID != "c1" {
		t.Errorf("expected tool_call_id c1, got %q", got[3].ToolCallID)
	}
	if got[5].TextContent() != "output" {
		t.Errorf("expected computer output as user text, got %q", got[5].TextContent())
	}
}
