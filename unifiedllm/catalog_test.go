package unifiedllm

import "testing"

func TestGetModelInfo(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantID   string
		provider string
		window   int
	}{
		{"exact id", "claude-sonnet-4-5", "claude-sonnet-4-5", "anthropic", 200000},
		{"alias", "sonnet", "claude-sonnet-4-5", "anthropic", 200000},
		{"ollama tag", "qwen2.5-coder:7b", "qwen2.5-coder", "ollama", 32768},
		{"latest tag", "llama3.1:latest", "llama3.1", "ollama", 131072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetModelInfo(tt.query)
			if info == nil {
				t.Fatalf("expected to find %q", tt.query)
			}
			if info.ID != tt.wantID {
				t.Errorf("expected id %q, got %q", tt.wantID, info.ID)
			}
			if info.Provider != tt.provider {
				t.Errorf("expected provider %q, got %q", tt.provider, info.Provider)
			}
			if info.ContextWindow != tt.window {
				t.Errorf("expected context window %d, got %d", tt.window, info.ContextWindow)
			}
		})
	}

	if info := GetModelInfo("nonexistent-model"); info != nil {
		t.Errorf("expected nil for unknown model, got %v", info)
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	if len(all) != len(Models) {
		t.Errorf("expected %d models, got %d", len(Models), len(all))
	}

	for _, provider := range []string{ProviderOllama, ProviderLocal} {
		models := ListModels(provider)
		if len(models) == 0 {
			t.Fatalf("expected models for %q", provider)
		}
		for _, m := range models {
			if m.Provider != ProviderOllama {
				t.Errorf("%s: expected ollama models, got %q", provider, m.Provider)
			}
		}
	}
}

func TestDefaultModel(t *testing.T) {
	tests := map[string]string{
		ProviderLocal:      "llama3.1",
		ProviderOllama:     "llama3.1",
		ProviderOpenAI:     "gpt-4o",
		ProviderOpenRouter: "gpt-4o",
		ProviderAnthropic:  "claude-sonnet-4-5",
		"unknown":          "",
	}
	for provider, want := range tests {
		if got := DefaultModel(provider); got != want {
			t.Errorf("DefaultModel(%q) = %q, want %q", provider, got, want)
		}
	}
}

func TestContextWindow(t *testing.T) {
	if got := ContextWindow("gpt-4o-mini"); got != 128000 {
		t.Errorf("expected 128000, got %d", got)
	}
	if got := ContextWindow("mystery"); got != 0 {
		t.Errorf("expected 0 for unknown model, got %d", got)
	}
}
