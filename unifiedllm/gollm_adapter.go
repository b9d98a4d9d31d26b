package unifiedllm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// gollmDefaultMaxTokens is used when the configuration leaves MaxTokens unset.
const gollmDefaultMaxTokens = 1024

// GollmAdapter serves the direct shape through gollm: the conversation is
// flattened into one transcript prompt and the reply is plain text.
type GollmAdapter struct {
	name  string
	llm   gollm.LLM
	model string
}

// NewGollmAdapter creates an adapter called name on top of the gollm backend
// (for example "ollama"). cfg.Provider is ignored.
func NewGollmAdapter(name, backend string, cfg AdapterConfig) (*GollmAdapter, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(backend)
	}
	if model == "" {
		return nil, &ConfigurationError{SDKError{Message: fmt.Sprintf("no model configured for gollm backend %q", backend)}}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = gollmDefaultMaxTokens
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(backend),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("gollm %s backend: %w", backend, err)
	}
	return &GollmAdapter{name: name, llm: llm, model: model}, nil
}

func (a *GollmAdapter) Name() string { return a.name }

func (a *GollmAdapter) Shape() Shape { return ShapeDirect }

// Complete ignores req.ToolDefs; direct providers cannot call tools.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	system, input := flattenConversation(req.Messages)

	var popts []gollm.PromptOption
	if system != "" {
		popts = append(popts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	model := a.model
	if req.Model != "" {
		model = req.Model
		a.llm.SetOption("model", model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
		popts = append(popts, gollm.WithMaxLength(*req.MaxTokens))
	}

	text, err := a.llm.Generate(ctx, gollm.NewPrompt(input, popts...))
	if err != nil {
		return nil, a.translateError(err)
	}

	// gollm reports no usage; estimate four characters per token.
	in, out := len(input)/4, len(text)/4
	return &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        model,
		Provider:     a.name,
		Message:      AssistantMessage(text),
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}, nil
}

// flattenConversation renders the non-system messages as a "role: text"
// transcript ending with an open assistant turn. System text is returned
// separately.
func flattenConversation(msgs []Message) (system, input string) {
	var b strings.Builder
	for _, msg := range msgs {
		text := msg.TextContent()
		if msg.Role == RoleSystem || (msg.Role == RoleAssistant && text == "") {
			continue
		}
		b.WriteString(string(msg.Role) + ": " + text + "\n")
	}
	if b.Len() == 0 {
		b.WriteString("Hello\n")
	}
	return systemText(msgs), b.String() + "assistant:"
}

// gollm surfaces provider failures as plain strings, so they are classified
// by the first matching fragment.
var gollmErrorRules = []struct {
	fragments []string
	status    int
}{
	{[]string{"401", "unauthorized", "invalid api key"}, 401},
	{[]string{"404", "not found"}, 404},
	{[]string{"429", "rate limit"}, 429},
	{[]string{"context length", "too many tokens"}, 413},
	{[]string{"timeout"}, 408},
}

func (a *GollmAdapter) translateError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "connection refused") {
		return &NetworkError{SDKError{Message: msg, Cause: err}}
	}
	for _, rule := range gollmErrorRules {
		for _, f := range rule.fragments {
			if strings.Contains(lower, f) {
				return ErrorFromStatusCode(a.name, rule.status, msg, nil, err)
			}
		}
	}
	return &ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: a.name, Retryable: true}
}
