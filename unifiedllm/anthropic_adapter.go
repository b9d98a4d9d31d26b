package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBaseURL is the default Anthropic API endpoint.
const AnthropicBaseURL = "https://api.anthropic.com"

// anthropicDefaultMaxTokens is sent when the request carries no limit;
// the Messages API requires one.
const anthropicDefaultMaxTokens = 4096

// AnthropicAdapter speaks the chat-completion shape against the Anthropic
// Messages API, mapping tool calls to tool_use and tool_result blocks.
type AnthropicAdapter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicAdapter creates an adapter. An empty baseURL means the public API.
func NewAnthropicAdapter(baseURL, apiKey, model string) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "Anthropic API key is required"}}
	}
	if baseURL == "" {
		baseURL = AnthropicBaseURL
	}
	if model == "" {
		model = DefaultModel(ProviderAnthropic)
	}
	return &AnthropicAdapter{
		client: anthropic.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		model: model,
	}, nil
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() string { return ProviderAnthropic }

// Shape reports ShapeChat.
func (a *AnthropicAdapter) Shape() Shape { return ShapeChat }

// Complete sends one Messages API request.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := int64(anthropicDefaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  toAnthropicMessages(req.Messages),
		MaxTokens: maxTokens,
	}
	if system := systemText(req.Messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.ToolDefs) > 0 {
		params.Tools = toAnthropicTools(req.ToolDefs)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.translateError(err)
	}

	msg := Message{Role: RoleAssistant}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content = append(msg.Content, TextPart(b.Text))
		case anthropic.ToolUseBlock:
			msg.Content = append(msg.Content, ToolCallPart(b.ID, b.Name, json.RawMessage(b.Input)))
		}
	}

	return &Response{
		ID:           resp.ID,
		Model:        string(resp.Model),
		Provider:     ProviderAnthropic,
		Message:      msg,
		FinishReason: FinishReason{Reason: normalizeFinishReason(string(resp.StopReason)), Raw: string(resp.StopReason)},
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// toAnthropicMessages drops system messages (sent separately) and merges
// consecutive user-side messages, since tool results must share the user
// turn that follows the tool_use blocks.
func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(msgs))
	appendUser := func(block anthropic.ContentBlockParamUnion) {
		if n := len(result); n > 0 && result[n-1].Role == anthropic.MessageParamRoleUser {
			result[n-1].Content = append(result[n-1].Content, block)
			return
		}
		result = append(result, anthropic.NewUserMessage(block))
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			continue
		case RoleUser:
			appendUser(anthropic.NewTextBlock(m.TextContent()))
		case RoleTool:
			isError := false
			for _, part := range m.Content {
				if part.ToolResult != nil && part.ToolResult.IsError {
					isError = true
				}
			}
			appendUser(anthropic.NewToolResultBlock(m.ToolCallID, m.TextContent(), isError))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if text := m.TextContent(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, c := range m.ToolCalls() {
				var input any
				if err := json.Unmarshal(c.Arguments, &input); err != nil || input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, input, c.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	return result
}

func toAnthropicTools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(defs))
	for i, d := range defs {
		schema := anthropic.ToolInputSchemaParam{Properties: d.Parameters["properties"]}
		switch req := d.Parameters["required"].(type) {
		case []string:
			schema.Required = req
		case []interface{}:
			for _, r := range req {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		result[i] = anthropic.ToolUnionParamOfTool(schema, d.Name)
		if d.Description != "" {
			result[i].OfTool.Description = anthropic.String(d.Description)
		}
	}
	return result
}

func (a *AnthropicAdapter) translateError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(ProviderAnthropic, apiErr.StatusCode, apiErr.Error(), responseHeader(apiErr.Response), err)
	}
	return transportError(ProviderAnthropic, err)
}
