package unifiedllm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message on the provider wire.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
)

// ToolCallData is one function call requested by the model.
type ToolCallData struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultData answers a ToolCallData by id.
type ToolResultData struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ContentPart is one piece of a message; Kind says which field is set.
type ContentPart struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	ToolCall   *ToolCallData   `json:"tool_call,omitempty"`
	ToolResult *ToolResultData `json:"tool_result,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

func ToolCallPart(id, name string, args json.RawMessage) ContentPart {
	return ContentPart{Kind: ContentToolCall, ToolCall: &ToolCallData{id, name, args}}
}

func ToolResultPart(toolCallID, content string, isError bool) ContentPart {
	return ContentPart{Kind: ContentToolResult, ToolResult: &ToolResultData{toolCallID, content, isError}}
}

// Message is the provider-neutral unit of a request.
type Message struct {
	Role       Role          `json:"role"`
	Content    []ContentPart `json:"content"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// TextContent joins the message's text and tool result parts.
func (m Message) TextContent() string {
	return joinParts(m.Content, true)
}

// ToolCalls returns the message's tool call parts in order.
func (m Message) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range m.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

func joinParts(parts []ContentPart, withResults bool) string {
	var sb strings.Builder
	for _, part := range parts {
		switch {
		case part.Kind == ContentText:
			sb.WriteString(part.Text)
		case withResults && part.Kind == ContentToolResult && part.ToolResult != nil:
			sb.WriteString(part.ToolResult.Content)
		}
	}
	return sb.String()
}

func textMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentPart{TextPart(text)}}
}

func SystemMessage(text string) Message    { return textMessage(RoleSystem, text) }
func UserMessage(text string) Message      { return textMessage(RoleUser, text) }
func AssistantMessage(text string) Message { return textMessage(RoleAssistant, text) }

// ToolResultMessage answers the tool call with id toolCallID.
func ToolResultMessage(toolCallID, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    []ContentPart{ToolResultPart(toolCallID, content, isError)},
		ToolCallID: toolCallID,
	}
}

// ToolDefinition is the schema a model sees for one tool.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// FinishReason is the normalized stop reason plus the provider's own value.
type FinishReason struct {
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// Usage counts tokens for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Request is one completion call. Nil Temperature or MaxTokens leaves the
// provider default in place.
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Provider    string           `json:"provider,omitempty"`
	ToolDefs    []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

// Response is a provider's reply normalized to a single assistant Message.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// Text returns the reply's text parts.
func (r Response) Text() string { return joinParts(r.Message.Content, false) }

// ToolCalls returns the calls the model asked for.
func (r Response) ToolCalls() []ToolCallData { return r.Message.ToolCalls() }

// systemText joins the text of every system message in order.
func systemText(msgs []Message) string {
	var parts []string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			parts = append(parts, m.TextContent())
		}
	}
	return strings.Join(parts, "\n\n")
}
