package agentloop

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in the conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleComputer  Role = "computer"
	RoleTool      Role = "tool"
)

// UnmarshalJSON lower-cases the role so histories written with
// capitalised roles ("Assistant") still load.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Role(strings.ToLower(s))
	return nil
}

// MessageType says how a message's content should be rendered.
type MessageType string

const (
	TypeMessage MessageType = "message"
	TypeConsole MessageType = "console"
	TypeImage   MessageType = "image"
	TypeCode    MessageType = "code"
	TypeAudio   MessageType = "audio"
)

// UnmarshalJSON lower-cases the type, matching Role.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = MessageType(strings.ToLower(s))
	return nil
}

// FunctionCall names the tool to invoke and carries its JSON arguments as text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a structured tool invocation carried on an assistant message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// Message is one entry of the conversation history.
type Message struct {
	Role       Role        `json:"role"`
	Type       MessageType `json:"type,omitempty"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Type: TypeMessage, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Type: TypeMessage, Content: content}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Type: TypeMessage, Content: content, ToolCalls: calls}
}

// NewToolMessage creates the result message for one tool call.
func NewToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Type: TypeMessage, Content: content, ToolCallID: callID}
}

// NewComputerMessage creates a console message holding code output.
func NewComputerMessage(content string) Message {
	return Message{Role: RoleComputer, Type: TypeConsole, Content: content}
}

// EncodeConversation renders messages as a JSON array with 2-space indentation.
func EncodeConversation(messages []Message) ([]byte, error) {
	if messages == nil {
		messages = []Message{}
	}
	return json.MarshalIndent(messages, "", "  ")
}

// DecodeConversation parses a JSON array of messages.
func DecodeConversation(data []byte) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].Type == "" {
			messages[i].Type = TypeMessage
		}
	}
	return messages, nil
}
