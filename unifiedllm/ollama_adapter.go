package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
)

// OllamaBaseURL is the default address of a local Ollama server.
const OllamaBaseURL = "http://localhost:11434"

// OllamaAdapter speaks the chat-completion shape against a native Ollama
// server using its /api/chat endpoint without streaming.
type OllamaAdapter struct {
	client *api.Client
	model  string
}

// NewOllamaAdapter creates an adapter for the server at baseURL.
func NewOllamaAdapter(baseURL, model string) (*OllamaAdapter, error) {
	if baseURL == "" {
		baseURL = OllamaBaseURL
	}
	if model == "" {
		model = DefaultModel(ProviderOllama)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "invalid Ollama URL", Cause: err}}
	}
	return &OllamaAdapter{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}, nil
}

// Name returns the provider identifier.
func (a *OllamaAdapter) Name() string { return ProviderOllama }

// Shape reports ShapeChat.
func (a *OllamaAdapter) Shape() Shape { return ShapeChat }

// Complete sends one chat request and collects the single non-streamed reply.
func (a *OllamaAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}

	messages, err := toOllamaMessages(req.Messages)
	if err != nil {
		return nil, &InvalidRequestError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "cannot encode tool call arguments", Cause: err},
			Provider: ProviderOllama,
		}}
	}
	tools, err := toOllamaTools(req.ToolDefs)
	if err != nil {
		return nil, &InvalidRequestError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "cannot encode tool schema", Cause: err},
			Provider: ProviderOllama,
		}}
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
		Stream:   &stream,
		Options:  map[string]interface{}{},
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		chatReq.Options["num_predict"] = *req.MaxTokens
	}

	var final api.ChatResponse
	err = a.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		final.Model = resp.Model
		final.Message.Content += resp.Message.Content
		final.Message.ToolCalls = append(final.Message.ToolCalls, resp.Message.ToolCalls...)
		if resp.Done {
			final.Done = true
			final.DoneReason = resp.DoneReason
			final.Metrics = resp.Metrics
		}
		return nil
	})
	if err != nil {
		return nil, translateOllamaError(err)
	}

	msg := Message{Role: RoleAssistant}
	if final.Message.Content != "" {
		msg.Content = append(msg.Content, TextPart(final.Message.Content))
	}
	for _, tc := range final.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			args = json.RawMessage("{}")
		}
		msg.Content = append(msg.Content, ToolCallPart("call_"+uuid.New().String()[:8], tc.Function.Name, args))
	}

	reason := normalizeFinishReason(final.DoneReason)
	if len(final.Message.ToolCalls) > 0 {
		reason = "tool_calls"
	}
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     ProviderOllama,
		Message:      msg,
		FinishReason: FinishReason{Reason: reason, Raw: final.DoneReason},
		Usage: Usage{
			InputTokens:  final.PromptEvalCount,
			OutputTokens: final.EvalCount,
			TotalTokens:  final.PromptEvalCount + final.EvalCount,
		},
	}, nil
}

func toOllamaMessages(msgs []Message) ([]api.Message, error) {
	result := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		out := api.Message{Role: string(m.Role), Content: m.TextContent()}
		for _, c := range m.ToolCalls() {
			var call api.ToolCall
			call.Function.Name = c.Name
			if err := json.Unmarshal(c.Arguments, &call.Function.Arguments); err != nil {
				return nil, fmt.Errorf("tool call %s: %w", c.Name, err)
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
		result = append(result, out)
	}
	return result, nil
}

// toOllamaTools converts tool definitions by re-decoding their JSON schema
// into Ollama's parameter type, which uses the same field names.
func toOllamaTools(defs []ToolDefinition) (api.Tools, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make(api.Tools, 0, len(defs))
	for _, d := range defs {
		var params api.ToolFunctionParameters
		raw, err := json.Marshal(d.Parameters)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools, nil
}

func translateOllamaError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return ErrorFromStatusCode(ProviderOllama, statusErr.StatusCode, msg, nil, err)
	}
	return transportError(ProviderOllama, err)
}
