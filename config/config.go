// Package config loads codeinterp settings from a TOML file and overlays
// environment variables. The environment is passed in as a lookup function
// so it is read once, at the process boundary.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/martinemde/codeinterp/agentloop"
	"github.com/martinemde/codeinterp/computer"
	"github.com/martinemde/codeinterp/mcptools"
	"github.com/martinemde/codeinterp/unifiedllm"
)

// Config is the full application configuration.
type Config struct {
	LogLevel   string      `toml:"log_level"`
	LLM        LLM         `toml:"llm"`
	Session    Session     `toml:"session"`
	Computer   Computer    `toml:"computer"`
	Storage    Storage     `toml:"storage"`
	MCPServers []MCPServer `toml:"mcp_servers"`
}

// LLM selects the provider and model.
type LLM struct {
	Provider      string  `toml:"provider"`
	Model         string  `toml:"model"`
	APIKey        string  `toml:"api_key"`
	BaseURL       string  `toml:"base_url"`
	Temperature   float64 `toml:"temperature"`
	MaxTokens     int     `toml:"max_tokens"`
	ContextWindow int     `toml:"context_window"`
}

// Session configures the conversation engine.
type Session struct {
	SystemPrompt      string   `toml:"system_prompt"`
	UserInstructions  string   `toml:"user_instructions"`
	MaxMessages       int      `toml:"max_messages"`
	MaxToolRounds     int      `toml:"max_tool_rounds"`
	AutoRun           bool     `toml:"auto_run"`
	LoopMode          bool     `toml:"loop_mode"`
	LoopBreakers      []string `toml:"loop_breakers"`
	ContinuePrompt    string   `toml:"continue_prompt"`
	MaxLoopIterations int      `toml:"max_loop_iterations"`
	LoopDetection     bool     `toml:"loop_detection"`
	History           string   `toml:"history"`
}

// Computer configures code execution.
type Computer struct {
	TimeoutSeconds float64 `toml:"timeout_seconds"`
	MaxOutput      int     `toml:"max_output"`
	SafeMode       string  `toml:"safe_mode"`
	AutoInstall    bool    `toml:"auto_install"`
	TempDir        string  `toml:"temp_dir"`
	SkillsDir      string  `toml:"skills_dir"`
}

// Storage selects where conversations are persisted.
type Storage struct {
	Backend string `toml:"backend"` // "file" or "sqlite"
	Dir     string `toml:"dir"`
}

// MCPServer is a stdio MCP server whose tools are offered to the model.
type MCPServer struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Env     []string `toml:"env"`
}

// Default returns the built-in defaults: the offline local provider,
// automatic code execution and file-backed history.
func Default() *Config {
	session := agentloop.DefaultSessionConfig()
	comp := computer.DefaultConfig()
	return &Config{
		LogLevel: "warn",
		LLM: LLM{
			Provider:    unifiedllm.ProviderLocal,
			Temperature: 0.2,
		},
		Session: Session{
			MaxToolRounds:     session.MaxToolRoundsPerInput,
			AutoRun:           session.AutoRun,
			LoopBreakers:      append([]string(nil), agentloop.DefaultLoopBreakers...),
			ContinuePrompt:    agentloop.DefaultContinuePrompt,
			MaxLoopIterations: session.MaxLoopIterations,
		},
		Computer: Computer{
			TimeoutSeconds: comp.Timeout.Seconds(),
			MaxOutput:      comp.MaxOutput,
			SafeMode:       string(comp.SafeMode),
			AutoInstall:    comp.AutoInstall,
		},
		Storage: Storage{Backend: "file"},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays CODEINTERP_* variables and the provider key variables
// found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("CODEINTERP_PROVIDER", &c.LLM.Provider)
	str("CODEINTERP_MODEL", &c.LLM.Model)
	str("CODEINTERP_API_KEY", &c.LLM.APIKey)
	str("CODEINTERP_BASE_URL", &c.LLM.BaseURL)
	float("CODEINTERP_TEMPERATURE", &c.LLM.Temperature)
	num("CODEINTERP_MAX_TOKENS", &c.LLM.MaxTokens)
	num("CODEINTERP_CONTEXT_WINDOW", &c.LLM.ContextWindow)

	num("CODEINTERP_MAX_MESSAGES", &c.Session.MaxMessages)
	boolean("CODEINTERP_AUTO_RUN", &c.Session.AutoRun)
	boolean("CODEINTERP_LOOP", &c.Session.LoopMode)
	num("CODEINTERP_MAX_LOOP_ITERATIONS", &c.Session.MaxLoopIterations)
	str("CODEINTERP_HISTORY", &c.Session.History)

	float("CODEINTERP_TIMEOUT", &c.Computer.TimeoutSeconds)
	num("CODEINTERP_MAX_OUTPUT", &c.Computer.MaxOutput)
	str("CODEINTERP_SAFE_MODE", &c.Computer.SafeMode)
	boolean("CODEINTERP_AUTO_INSTALL", &c.Computer.AutoInstall)
	str("CODEINTERP_SKILLS_DIR", &c.Computer.SkillsDir)

	str("CODEINTERP_STORAGE", &c.Storage.Backend)
	str("CODEINTERP_DATA_DIR", &c.Storage.Dir)
	str("CODEINTERP_LOG_LEVEL", &c.LogLevel)
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultDataDir(lookup)
	}

	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case unifiedllm.ProviderOpenAI:
			str("OPENAI_API_KEY", &c.LLM.APIKey)
		case unifiedllm.ProviderOpenRouter:
			str("OPENROUTER_API_KEY", &c.LLM.APIKey)
		case unifiedllm.ProviderAnthropic:
			str("ANTHROPIC_API_KEY", &c.LLM.APIKey)
		}
	}
	if c.LLM.BaseURL == "" && strings.ToLower(c.LLM.Provider) == unifiedllm.ProviderOllama {
		if host, ok := lookup("OLLAMA_HOST"); ok && host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			c.LLM.BaseURL = host
		}
	}
	return errors.Join(errs...)
}

var validProviders = []string{
	unifiedllm.ProviderLocal,
	unifiedllm.ProviderOpenAI,
	unifiedllm.ProviderOpenRouter,
	unifiedllm.ProviderOllama,
	unifiedllm.ProviderAnthropic,
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	provider := strings.ToLower(c.LLM.Provider)
	known := false
	for _, p := range validProviders {
		if p == provider {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q (want one of %s)", c.LLM.Provider, strings.Join(validProviders, ", ")))
	}
	if _, err := computer.ParseSafeMode(c.Computer.SafeMode); err != nil {
		errs = append(errs, fmt.Errorf("computer.safe_mode: %w", err))
	}
	if c.Storage.Backend != "file" && c.Storage.Backend != "sqlite" {
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q (want file or sqlite)", c.Storage.Backend))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	nonNegative := map[string]float64{
		"llm.max_tokens":              float64(c.LLM.MaxTokens),
		"llm.context_window":          float64(c.LLM.ContextWindow),
		"llm.temperature":             c.LLM.Temperature,
		"session.max_messages":        float64(c.Session.MaxMessages),
		"session.max_tool_rounds":     float64(c.Session.MaxToolRounds),
		"session.max_loop_iterations": float64(c.Session.MaxLoopIterations),
		"computer.timeout_seconds":    c.Computer.TimeoutSeconds,
		"computer.max_output":         float64(c.Computer.MaxOutput),
	}
	for _, key := range slices.Sorted(maps.Keys(nonNegative)) {
		if nonNegative[key] < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", key))
		}
	}

	seen := make(map[string]bool)
	for i, s := range c.MCPServers {
		if s.Name == "" || s.Command == "" {
			errs = append(errs, fmt.Errorf("mcp_servers[%d]: name and command are required", i))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("mcp_servers[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
	}
	return errors.Join(errs...)
}

// AdapterConfig returns the provider adapter settings.
func (c *Config) AdapterConfig() unifiedllm.AdapterConfig {
	return unifiedllm.AdapterConfig{
		Provider:    strings.ToLower(c.LLM.Provider),
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// LLMConfig returns the runner settings.
func (c *Config) LLMConfig() agentloop.LLMConfig {
	model := c.LLM.Model
	if model == "" {
		model = unifiedllm.DefaultModel(strings.ToLower(c.LLM.Provider))
	}
	return agentloop.LLMConfig{
		Provider:      strings.ToLower(c.LLM.Provider),
		Model:         model,
		Temperature:   c.LLM.Temperature,
		MaxTokens:     c.LLM.MaxTokens,
		ContextWindow: c.LLM.ContextWindow,
	}
}

// SessionConfig returns the conversation engine settings for workDir.
func (c *Config) SessionConfig(workDir string) *agentloop.SessionConfig {
	cfg := agentloop.DefaultSessionConfig()
	cfg.SystemPrompt = c.Session.SystemPrompt
	cfg.UserInstructions = c.Session.UserInstructions
	cfg.WorkDir = workDir
	cfg.Model = c.LLMConfig().Model
	cfg.MaxMessages = c.Session.MaxMessages
	if c.Session.MaxToolRounds > 0 {
		cfg.MaxToolRoundsPerInput = c.Session.MaxToolRounds
	}
	cfg.AutoRun = c.Session.AutoRun
	cfg.LoopMode = c.Session.LoopMode
	if len(c.Session.LoopBreakers) > 0 {
		cfg.LoopBreakers = c.Session.LoopBreakers
	}
	if c.Session.ContinuePrompt != "" {
		cfg.ContinuePrompt = c.Session.ContinuePrompt
	}
	cfg.MaxLoopIterations = c.Session.MaxLoopIterations
	cfg.EnableLoopDetection = c.Session.LoopDetection
	cfg.HistoryName = c.Session.History
	return &cfg
}

// ComputerConfig returns the code execution settings for workDir.
func (c *Config) ComputerConfig(workDir string) computer.Config {
	mode, _ := computer.ParseSafeMode(c.Computer.SafeMode)
	return computer.Config{
		TempDir:     c.Computer.TempDir,
		StateDir:    filepath.Join(c.DataDir(), "state"),
		WorkDir:     workDir,
		Timeout:     time.Duration(c.Computer.TimeoutSeconds * float64(time.Second)),
		MaxOutput:   c.Computer.MaxOutput,
		SafeMode:    mode,
		AutoInstall: c.Computer.AutoInstall,
	}
}

// MCPServerConfigs returns the MCP servers to connect to.
func (c *Config) MCPServerConfigs() []mcptools.ServerConfig {
	configs := make([]mcptools.ServerConfig, 0, len(c.MCPServers))
	for _, s := range c.MCPServers {
		configs = append(configs, mcptools.ServerConfig{Name: s.Name, Command: s.Command, Args: s.Args, Env: s.Env})
	}
	return configs
}

// DataDir returns the directory holding histories and toolchain state.
// ApplyEnv fills it in when the file leaves it empty.
func (c *Config) DataDir() string {
	return c.Storage.Dir
}
