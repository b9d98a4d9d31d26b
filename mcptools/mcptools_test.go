package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/martinemde/codeinterp/agentloop"
)

type fakeClient struct {
	tools     []mcp.Tool
	result    *mcp.CallToolResult
	callErr   error
	initErr   error
	lastCall  mcp.CallToolRequest
	closed    bool
	initProto string
}

func (f *fakeClient) Initialize(_ context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	f.initProto = req.Params.ProtocolVersion
	return &mcp.InitializeResult{}, f.initErr
}

func (f *fakeClient) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeClient) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastCall = req
	return f.result, f.callErr
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{"type": "string"},
			},
			Required: []string{"query"},
		},
	}
}

func connect(t *testing.T, fc *fakeClient) *Server {
	t.Helper()
	s, err := newServer(context.Background(), "docs", fc, quietLogger())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return s
}

func TestBindings(t *testing.T) {
	fc := &fakeClient{tools: []mcp.Tool{searchTool()}}
	s := connect(t, fc)
	if fc.initProto != ProtocolVersion {
		t.Errorf("expected protocol %s, got %q", ProtocolVersion, fc.initProto)
	}

	bindings := s.Bindings()
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}
	def := bindings[0].Definition
	if def.Name != "docs_search" || def.Description != "Search documents" {
		t.Errorf("unexpected definition %+v", def)
	}
	if def.Parameters["type"] != "object" {
		t.Errorf("unexpected schema %v", def.Parameters)
	}
	props, _ := def.Parameters["properties"].(map[string]interface{})
	if _, ok := props["query"]; !ok {
		t.Errorf("schema lost its properties: %v", def.Parameters)
	}
}

func TestCallTool(t *testing.T) {
	fc := &fakeClient{
		tools: []mcp.Tool{searchTool()},
		result: &mcp.CallToolResult{Content: []mcp.Content{
			mcp.NewTextContent("first"),
			mcp.NewTextContent("second"),
		}},
	}
	exec := connect(t, fc).Bindings()[0].Executor

	out, err := exec(context.Background(), json.RawMessage(`{"query":"go"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "first\nsecond" {
		t.Errorf("unexpected output %q", out)
	}
	if fc.lastCall.Params.Name != "search" {
		t.Errorf("expected the unprefixed tool name, got %q", fc.lastCall.Params.Name)
	}
	args, _ := fc.lastCall.Params.Arguments.(map[string]interface{})
	if args["query"] != "go" {
		t.Errorf("unexpected arguments %v", fc.lastCall.Params.Arguments)
	}
}

func TestCallToolErrors(t *testing.T) {
	tests := []struct {
		name    string
		result  *mcp.CallToolResult
		callErr error
		args    string
		want    string
	}{
		{
			name:   "tool error result",
			result: &mcp.CallToolResult{IsError: true, Content: []mcp.Content{mcp.NewTextContent("no index")}},
			args:   `{}`,
			want:   "no index",
		},
		{name: "transport error", callErr: errors.New("broken pipe"), args: `{}`, want: "broken pipe"},
		{name: "bad arguments", args: `nope`, want: "invalid tool arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{tools: []mcp.Tool{searchTool()}, result: tt.result, callErr: tt.callErr}
			_, err := connect(t, fc).Bindings()[0].Executor(context.Background(), json.RawMessage(tt.args))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRegisterOnSession(t *testing.T) {
	fc := &fakeClient{
		tools:  []mcp.Tool{searchTool()},
		result: &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("ok")}},
	}
	session := agentloop.NewSession(nil, nil, nil)
	connect(t, fc).Register(session)
	if session.Tools().Get("docs_search") == nil {
		t.Fatal("tool not registered")
	}
}

func TestInitializeFailure(t *testing.T) {
	fc := &fakeClient{initErr: errors.New("handshake")}
	if _, err := newServer(context.Background(), "docs", fc, quietLogger()); err == nil {
		t.Fatal("expected error")
	}
}

func TestClose(t *testing.T) {
	fc := &fakeClient{}
	if err := connect(t, fc).Close(); err != nil || !fc.closed {
		t.Errorf("Close: %v, closed=%v", err, fc.closed)
	}
}

func TestConnectValidates(t *testing.T) {
	if _, err := Connect(context.Background(), ServerConfig{Name: "x"}, nil); err == nil {
		t.Fatal("expected error without command")
	}
}
