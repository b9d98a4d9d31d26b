package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Default endpoints for OpenAI-compatible providers.
const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIAdapter speaks the chat-completion shape against any
// OpenAI-compatible endpoint: OpenAI itself, OpenRouter, LM Studio or an
// Ollama server's /v1 route.
type OpenAIAdapter struct {
	name   string
	client openai.Client
	model  string
}

// NewOpenAIAdapter creates an adapter named name. An empty baseURL means
// api.openai.com. Self-hosted servers accept any non-empty key.
func NewOpenAIAdapter(name, baseURL, apiKey, model string) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	if apiKey == "" {
		apiKey = "not-needed"
	}
	if model == "" {
		model = DefaultModel(name)
	}
	return &OpenAIAdapter{
		name: name,
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		model: model,
	}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string { return a.name }

// Shape reports ShapeChat.
func (a *OpenAIAdapter) Shape() Shape { return ShapeChat }

// Complete sends one non-streaming chat completion.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(req.Messages),
		Model:    openai.ChatModel(model),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if len(req.ToolDefs) > 0 {
		params.Tools = toOpenAITools(req.ToolDefs)
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, &ProviderError{
			SDKError:  SDKError{Message: "completion returned no choices"},
			Provider:  a.name,
			Retryable: true,
		}
	}

	choice := completion.Choices[0]
	msg := Message{Role: RoleAssistant}
	if choice.Message.Content != "" {
		msg.Content = append(msg.Content, TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		msg.Content = append(msg.Content, ToolCallPart(id, tc.Function.Name, normalizeArguments(tc.Function.Arguments)))
	}

	return &Response{
		ID:           completion.ID,
		Model:        completion.Model,
		Provider:     a.name,
		Message:      msg,
		FinishReason: FinishReason{Reason: normalizeFinishReason(string(choice.FinishReason)), Raw: string(choice.FinishReason)},
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(m.TextContent()))
		case RoleUser:
			result = append(result, openai.UserMessage(m.TextContent()))
		case RoleTool:
			result = append(result, openai.ToolMessage(m.TextContent(), m.ToolCallID))
		case RoleAssistant:
			calls := m.ToolCalls()
			if len(calls) == 0 {
				result = append(result, openai.AssistantMessage(m.TextContent()))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if text := m.TextContent(); text != "" {
				assistant.Content.OfString = openai.String(text)
			}
			for _, c := range calls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: c.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      c.Name,
							Arguments: string(c.Arguments),
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		}
	}
	return result
}

func toOpenAITools(defs []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, len(defs))
	for i, d := range defs {
		result[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  openai.FunctionParameters(d.Parameters),
		})
	}
	return result
}

func (a *OpenAIAdapter) translateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(a.name, apiErr.StatusCode, apiErr.Message, responseHeader(apiErr.Response), err)
	}
	return transportError(a.name, err)
}

// normalizeArguments returns the model's argument text unchanged, or "{}"
// when it sent none. Invalid JSON is passed through for the caller to reject.
func normalizeArguments(args string) json.RawMessage {
	if args == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}

func normalizeFinishReason(raw string) string {
	switch raw {
	case "stop", "end_turn":
		return "stop"
	case "length", "max_tokens":
		return "length"
	case "tool_calls", "tool_use":
		return "tool_calls"
	case "content_filter":
		return "content_filter"
	case "":
		return "stop"
	default:
		return "other"
	}
}
