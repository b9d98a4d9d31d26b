package unifiedllm

import "strings"

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	MaxOutput     *int     `json:"max_output,omitempty"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

// Models is the built-in model catalog. Local models are listed under the
// "ollama" provider; the "local" direct provider reuses those entries.
var Models = []ModelInfo{
	// Anthropic
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(16384), SupportsTools: true,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-haiku-4-5", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(8192), SupportsTools: true,
		Aliases: []string{"haiku", "claude-haiku"},
	},

	// OpenAI
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: intPtr(16384), SupportsTools: true,
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, MaxOutput: intPtr(16384), SupportsTools: true,
		Aliases: []string{"4o-mini"},
	},

	// Ollama
	{
		ID: "llama3.1", Provider: "ollama", DisplayName: "Llama 3.1 8B",
		ContextWindow: 131072, MaxOutput: intPtr(4096), SupportsTools: true,
		Aliases: []string{"llama3.1:8b"},
	},
	{
		ID: "qwen2.5-coder", Provider: "ollama", DisplayName: "Qwen2.5 Coder 7B",
		ContextWindow: 32768, MaxOutput: intPtr(4096), SupportsTools: true,
		Aliases: []string{"qwen2.5-coder:7b"},
	},
	{
		ID: "codellama", Provider: "ollama", DisplayName: "Code Llama 7B",
		ContextWindow: 16384, MaxOutput: intPtr(2048), SupportsTools: false,
		Aliases: []string{"codellama:7b"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
// Ollama tags such as ":latest" are ignored.
func GetModelInfo(modelID string) *ModelInfo {
	bare := strings.TrimSuffix(modelID, ":latest")
	for i := range Models {
		if Models[i].ID == modelID || Models[i].ID == bare {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == catalogProvider(provider) {
			result = append(result, m)
		}
	}
	return result
}

// DefaultModel returns the first catalog model for a provider, or "".
func DefaultModel(provider string) string {
	for _, m := range Models {
		if m.Provider == catalogProvider(provider) {
			return m.ID
		}
	}
	return ""
}

// ContextWindow returns the catalog context window for a model, or 0.
func ContextWindow(modelID string) int {
	if info := GetModelInfo(modelID); info != nil {
		return info.ContextWindow
	}
	return 0
}

func catalogProvider(provider string) string {
	switch provider {
	case ProviderLocal:
		return ProviderOllama
	case ProviderOpenRouter:
		return ProviderOpenAI
	}
	return provider
}

// Provider identifiers understood by NewAdapter.
const (
	ProviderLocal      = "local"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderAnthropic  = "anthropic"
)
