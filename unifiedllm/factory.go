package unifiedllm

import (
	"fmt"
	"strings"
)

// AdapterConfig selects and configures one provider adapter.
type AdapterConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// NewAdapter builds the adapter for cfg.Provider. "local" is served by
// gollm's direct-completion path against an Ollama backend; every other
// provider speaks the chat-completion shape.
func NewAdapter(cfg AdapterConfig) (ProviderAdapter, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderLocal:
		return NewGollmAdapter(ProviderLocal, ProviderOllama, cfg)
	case ProviderOpenAI:
		return NewOpenAIAdapter(ProviderOpenAI, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case ProviderOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = OpenRouterBaseURL
		}
		if cfg.APIKey == "" {
			return nil, &ConfigurationError{SDKError: SDKError{Message: "OpenRouter API key is required"}}
		}
		return NewOpenAIAdapter(ProviderOpenRouter, baseURL, cfg.APIKey, cfg.Model), nil
	case ProviderOllama:
		return NewOllamaAdapter(cfg.BaseURL, cfg.Model)
	case ProviderAnthropic:
		return NewAnthropicAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}}
	}
}
