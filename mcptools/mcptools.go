// Package mcptools exposes the tools of stdio MCP servers as session tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/martinemde/codeinterp/agentloop"
)

// ProtocolVersion is sent in the initialize request.
const ProtocolVersion = "2025-06-18"

// ServerConfig describes a stdio MCP server.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string // KEY=VALUE pairs added to the inherited environment
}

// Binding pairs a session tool definition with the executor that calls the
// MCP tool behind it.
type Binding struct {
	Definition agentloop.ToolDefinition
	Executor   agentloop.ToolExecutor
}

// mcpClient is the subset of *client.Client a Server uses.
type mcpClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Server is a connected MCP server and the tools it advertised.
type Server struct {
	name   string
	client mcpClient
	tools  []mcp.Tool
	logger *slog.Logger
}

// Connect starts the server process, initializes the session and lists its
// tools.
func Connect(ctx context.Context, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if cfg.Name == "" || cfg.Command == "" {
		return nil, fmt.Errorf("mcp server needs a name and a command")
	}
	env := append(os.Environ(), cfg.Env...)
	c, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start mcp server %s: %w", cfg.Name, err)
	}
	s, err := newServer(ctx, cfg.Name, c, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

func newServer(ctx context.Context, name string, c mcpClient, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "codeinterp",
				Version: "1.0.0",
			},
		},
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("failed to initialize mcp server %s: %w", name, err)
	}
	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for %s: %w", name, err)
	}
	logger.Info("mcp server connected", "server", name, "tools", len(result.Tools))
	return &Server{name: name, client: c, tools: result.Tools, logger: logger}, nil
}

// Name returns the configured server name.
func (s *Server) Name() string { return s.name }

// Bindings returns one binding per advertised tool, named
// <server>_<tool>.
func (s *Server) Bindings() []Binding {
	bindings := make([]Binding, 0, len(s.tools))
	for _, tool := range s.tools {
		remote := tool.Name
		bindings = append(bindings, Binding{
			Definition: agentloop.ToolDefinition{
				Name:        s.name + "_" + remote,
				Description: tool.Description,
				Parameters:  schemaMap(tool),
			},
			Executor: func(ctx context.Context, arguments json.RawMessage) (string, error) {
				return s.call(ctx, remote, arguments)
			},
		})
	}
	return bindings
}

// Registrar accepts tool registrations. *agentloop.Session satisfies it.
type Registrar interface {
	RegisterTool(def agentloop.ToolDefinition, executor agentloop.ToolExecutor)
}

// Register adds every binding to r.
func (s *Server) Register(r Registrar) {
	for _, b := range s.Bindings() {
		r.RegisterTool(b.Definition, b.Executor)
	}
}

func (s *Server) call(ctx context.Context, tool string, arguments json.RawMessage) (string, error) {
	args, err := agentloop.ParseToolArguments(arguments)
	if err != nil {
		return "", err
	}
	s.logger.Debug("calling mcp tool", "server", s.name, "tool", tool)
	result, err := s.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("mcp %s/%s: %w", s.name, tool, err)
	}
	text := resultText(result)
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

// Close stops the server process.
func (s *Server) Close() error {
	return s.client.Close()
}

// resultText joins the text content of a result. Other content kinds are
// summarized by type.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		case mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s]", c.MIMEType))
		default:
			parts = append(parts, fmt.Sprintf("[%T content]", content))
		}
	}
	return strings.Join(parts, "\n")
}

// schemaMap converts the tool's input schema to the generic map the
// session's tool definitions use.
func schemaMap(tool mcp.Tool) map[string]interface{} {
	raw := tool.RawInputSchema
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(tool.InputSchema); err != nil {
			return map[string]interface{}{"type": "object"}
		}
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(raw, &schema); err != nil || schema == nil {
		return map[string]interface{}{"type": "object"}
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	return schema
}
