package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/martinemde/codeinterp/unifiedllm"
)

// fallbackContextWindow is used when neither the config nor the model
// catalog knows the model's context window.
const fallbackContextWindow = 8192

// maxTokensClampPercent is the share of the context window allowed for
// output when the configured max tokens does not fit.
const maxTokensClampPercent = 20

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Run(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error)
}

// LLMConfig configures the LLM runner.
type LLMConfig struct {
	Provider      string
	Model         string
	Temperature   float64
	MaxTokens     int
	ContextWindow int // 0 = look the model up in the catalog
}

// LLM adapts a unifiedllm.Client to the conversation's message model.
type LLM struct {
	client *unifiedllm.Client
	config LLMConfig
	logger *slog.Logger
}

// NewLLM creates a runner over client. A nil logger uses slog.Default().
func NewLLM(client *unifiedllm.Client, cfg LLMConfig, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{client: client, config: cfg, logger: logger}
}

// EffectiveMaxTokens clamps maxTokens to 20% of contextWindow when it
// exceeds the window. Non-positive values pass through unchanged.
func EffectiveMaxTokens(maxTokens, contextWindow int) int {
	if contextWindow > 0 && maxTokens > contextWindow {
		return contextWindow * maxTokensClampPercent / 100
	}
	return maxTokens
}

// ContextWindow returns the configured window, the catalog's, or 8192.
func (l *LLM) ContextWindow() int {
	if l.config.ContextWindow > 0 {
		return l.config.ContextWindow
	}
	if w := unifiedllm.ContextWindow(l.config.Model); w > 0 {
		return w
	}
	return fallbackContextWindow
}

// CheckConversation verifies that messages[0] is the only system message.
func CheckConversation(messages []Message) error {
	if len(messages) == 0 {
		return &InvariantError{Message: "conversation is empty"}
	}
	if messages[0].Role != RoleSystem {
		return &InvariantError{Message: fmt.Sprintf("first message has role %q, want system", messages[0].Role)}
	}
	for i, m := range messages[1:] {
		if m.Role == RoleSystem {
			return &InvariantError{Message: fmt.Sprintf("message %d has role system", i+1)}
		}
	}
	return nil
}

// Run sends the conversation and returns exactly one assistant message.
// Direct-shape providers are sent no tool definitions.
func (l *LLM) Run(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error) {
	if err := CheckConversation(messages); err != nil {
		return Message{}, err
	}

	shape, err := l.client.Shape(l.config.Provider)
	if err != nil {
		return Message{}, err
	}

	window := l.ContextWindow()
	maxTokens := EffectiveMaxTokens(l.config.MaxTokens, window)
	if maxTokens != l.config.MaxTokens {
		l.logger.Debug("clamped max tokens", "configured", l.config.MaxTokens, "context_window", window, "max_tokens", maxTokens)
	}

	temperature := l.config.Temperature
	req := unifiedllm.Request{
		Model:       l.config.Model,
		Provider:    l.config.Provider,
		Messages:    ToRequestMessages(messages),
		Temperature: &temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	if shape == unifiedllm.ShapeChat {
		req.ToolDefs = toRequestTools(tools)
	}

	resp, err := l.client.Complete(ctx, req)
	if err != nil {
		return Message{}, err
	}
	return fromResponse(resp), nil
}

// ToRequestMessages normalises the conversation for a provider. Roles are
// lower-cased and the computer role is sent as user. Tool results whose
// call is no longer in the history, as happens after trimming, are also
// sent as user text. Unparseable tool-call arguments are sent as {}.
func ToRequestMessages(messages []Message) []unifiedllm.Message {
	known := make(map[string]bool)
	result := make([]unifiedllm.Message, 0, len(messages))
	for _, m := range messages {
		switch Role(strings.ToLower(string(m.Role))) {
		case RoleSystem:
			result = append(result, unifiedllm.SystemMessage(m.Content))
		case RoleAssistant:
			msg := unifiedllm.Message{Role: unifiedllm.RoleAssistant}
			if m.Content != "" {
				msg.Content = append(msg.Content, unifiedllm.TextPart(m.Content))
			}
			for _, c := range m.ToolCalls {
				known[c.ID] = true
				args := json.RawMessage(c.Function.Arguments)
				if !json.Valid(args) {
					args = json.RawMessage("{}")
				}
				msg.Content = append(msg.Content, unifiedllm.ToolCallPart(c.ID, c.Function.Name, args))
			}
			result = append(result, msg)
		case RoleTool:
			if m.ToolCallID != "" && known[m.ToolCallID] {
				result = append(result, unifiedllm.ToolResultMessage(m.ToolCallID, m.Content, false))
			} else {
				result = append(result, unifiedllm.UserMessage("Tool result:\n"+m.Content))
			}
		default:
			result = append(result, unifiedllm.UserMessage(m.Content))
		}
	}
	return result
}

func toRequestTools(tools []ToolDefinition) []unifiedllm.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]unifiedllm.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = unifiedllm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return defs
}

func fromResponse(resp *unifiedllm.Response) Message {
	msg := NewAssistantMessage(resp.Text())
	for _, tc := range resp.ToolCalls() {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:       id,
			Type:     "function",
			Function: FunctionCall{Name: tc.Name, Arguments: string(tc.Arguments)},
		})
	}
	return msg
}
