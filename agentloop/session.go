package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CodeRunner executes one code block and returns its output.
type CodeRunner interface {
	Execute(ctx context.Context, language, code string) (string, error)
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	SystemPrompt          string         `json:"system_prompt,omitempty"` // "" = DefaultSystemPrompt
	UserInstructions      string         `json:"user_instructions,omitempty"`
	WorkDir               string         `json:"work_dir,omitempty"`
	Model                 string         `json:"model,omitempty"`
	MaxMessages           int            `json:"max_messages"` // 0 = unlimited
	MaxToolRoundsPerInput int            `json:"max_tool_rounds_per_input"`
	AutoRun               bool           `json:"auto_run"`
	LoopMode              bool           `json:"loop_mode"`
	LoopBreakers          []string       `json:"loop_breakers,omitempty"`
	ContinuePrompt        string         `json:"continue_prompt,omitempty"`
	MaxLoopIterations     int            `json:"max_loop_iterations"` // 0 = unlimited
	EnableLoopDetection   bool           `json:"enable_loop_detection"`
	LoopDetectionWindow   int            `json:"loop_detection_window"`
	ToolOutputLimits      map[string]int `json:"tool_output_limits,omitempty"`
	ToolLineLimits        map[string]int `json:"tool_line_limits,omitempty"`
	HistoryName           string         `json:"history_name,omitempty"` // "" = persistence off
}

// DefaultLoopBreakers end loop mode when found in a reply.
var DefaultLoopBreakers = []string{
	"The task is done.",
	"The task is impossible.",
	"Let me know what you'd like to do next.",
}

// DefaultContinuePrompt is appended as a user message between loop iterations.
const DefaultContinuePrompt = `Proceed. You can run code on my machine. If the entire task is done, say exactly "The task is done." If it cannot be completed, say exactly "The task is impossible." Otherwise continue with the next step.`

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxToolRoundsPerInput: 200,
		AutoRun:               true,
		LoopBreakers:          append([]string(nil), DefaultLoopBreakers...),
		ContinuePrompt:        DefaultContinuePrompt,
		MaxLoopIterations:     25,
		LoopDetectionWindow:   10,
	}
}

// SessionOption configures optional Session collaborators.
type SessionOption func(*Session)

// WithObserver sets the observer notified of appended messages.
func WithObserver(o Observer) SessionOption {
	return func(s *Session) { s.observer = o }
}

// WithHistoryStore sets the store used for conversation persistence.
func WithHistoryStore(store HistoryStore) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session is the conversation engine: it owns the history, calls the model,
// and dispatches tool calls and code blocks until the model replies in
// plain text. A Session runs one response cycle at a time; Chat and Resume
// must not be called concurrently.
type Session struct {
	id       string
	llm      Completer
	runner   CodeRunner
	config   SessionConfig
	tools    *ToolRegistry
	observer Observer
	store    HistoryStore
	logger   *slog.Logger
	envInfo  string
	docs     string
	messages []Message
	mu       sync.Mutex
}

// NewSession creates a session whose history holds only the system message.
// runner may be nil, in which case code blocks produce an error message.
func NewSession(llm Completer, runner CodeRunner, config *SessionConfig, opts ...SessionOption) *Session {
	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxToolRoundsPerInput <= 0 {
		cfg.MaxToolRoundsPerInput = DefaultSessionConfig().MaxToolRoundsPerInput
	}
	if cfg.ContinuePrompt == "" {
		cfg.ContinuePrompt = DefaultContinuePrompt
	}

	s := &Session{
		id:     uuid.New().String(),
		llm:    llm,
		runner: runner,
		config: cfg,
		tools:  NewToolRegistry(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	if cfg.WorkDir != "" {
		s.envInfo = BuildEnvironmentContext(cfg.WorkDir, cfg.Model)
		s.docs = DiscoverProjectDocs(cfg.WorkDir)
	}
	s.messages = []Message{NewSystemMessage(s.systemPrompt())}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Tools returns the session's tool registry.
func (s *Session) Tools() *ToolRegistry { return s.tools }

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// RegisterTool adds a tool and rewrites the system message to list it. A
// tool registered under an existing name replaces the earlier one and keeps
// its place in the list.
func (s *Session) RegisterTool(def ToolDefinition, executor ToolExecutor) {
	if s.tools.Register(RegisteredTool{Definition: def, Executor: executor}) {
		s.logger.Debug("tool replaced", "tool", def.Name)
	}
	s.mu.Lock()
	s.messages[0].Content = s.systemPrompt()
	s.mu.Unlock()
}

// Reset discards everything but a freshly generated system message and
// deletes the persisted history when persistence is on.
func (s *Session) Reset() error {
	s.mu.Lock()
	s.messages = []Message{NewSystemMessage(s.systemPrompt())}
	s.mu.Unlock()

	if !s.persistent() {
		return nil
	}
	if err := s.store.Delete(s.config.HistoryName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete history %q: %w", s.config.HistoryName, err)
	}
	return nil
}

// Chat appends message as user input and runs the conversation until the
// model replies in plain text, or until loop mode ends. It returns the full
// history. Only exhausted LLM retries, invariant violations and context
// cancellation are returned as errors; tool and code failures become
// messages in the history.
func (s *Session) Chat(ctx context.Context, message string) ([]Message, error) {
	if strings.TrimSpace(message) == "" {
		return s.Messages(), &InvalidInputError{Message: "message must not be empty"}
	}
	s.append(NewUserMessage(message))
	return s.Resume(ctx)
}

// Resume runs the conversation from its current history without adding a
// new user message.
func (s *Session) Resume(ctx context.Context) ([]Message, error) {
	var err error
	if s.config.LoopMode {
		err = s.loop(ctx)
	} else {
		err = s.respond(ctx)
	}
	if err != nil {
		return s.Messages(), err
	}
	if s.persistent() {
		if err := s.SaveConversation(s.config.HistoryName); err != nil {
			return s.Messages(), err
		}
	}
	return s.Messages(), nil
}

// SaveConversation writes the history to the store under name.
func (s *Session) SaveConversation(name string) error {
	if s.store == nil {
		return ErrNoHistoryStore
	}
	data, err := EncodeConversation(s.Messages())
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.store.Save(name, data); err != nil {
		return fmt.Errorf("save history %q: %w", name, err)
	}
	return nil
}

// LoadConversation replaces the history with the one stored under name. A
// missing history leaves a fresh conversation. A stored system message at
// index 0 is kept as is; system messages elsewhere are dropped, and a
// history without one gets the current system message prepended.
func (s *Session) LoadConversation(name string) error {
	if s.store == nil {
		return ErrNoHistoryStore
	}
	data, err := s.store.Load(name)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.messages = []Message{NewSystemMessage(s.systemPrompt())}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history %q: %w", name, err)
	}
	loaded, err := DecodeConversation(data)
	if err != nil {
		return fmt.Errorf("decode history %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]Message, 0, len(loaded)+1)
	if len(loaded) > 0 && loaded[0].Role == RoleSystem {
		messages = append(messages, loaded[0])
		loaded = loaded[1:]
	} else {
		messages = append(messages, NewSystemMessage(s.systemPrompt()))
	}
	for _, m := range loaded {
		if m.Role == RoleSystem {
			s.logger.Warn("dropping misplaced system message from history", "history", name)
			continue
		}
		messages = append(messages, m)
	}
	s.messages = messages
	s.trimLocked()
	return nil
}

// loop repeats response cycles until a reply contains a breaker phrase or
// the iteration cap is reached.
func (s *Session) loop(ctx context.Context) error {
	for i := 1; ; i++ {
		if err := s.respond(ctx); err != nil {
			return err
		}
		if s.hasBreaker(s.last().Content) {
			return nil
		}
		if limit := s.config.MaxLoopIterations; limit > 0 && i >= limit {
			s.logger.Warn("loop mode stopped at iteration cap", "iterations", i)
			return nil
		}
		s.append(NewUserMessage(s.config.ContinuePrompt))
	}
}

func (s *Session) hasBreaker(content string) bool {
	content = strings.TrimSpace(content)
	for _, b := range s.config.LoopBreakers {
		if b != "" && strings.Contains(content, b) {
			return true
		}
	}
	return false
}

// respond runs one response cycle.
func (s *Session) respond(ctx context.Context) error {
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if round >= s.config.MaxToolRoundsPerInput {
			s.logger.Warn("tool round limit reached", "rounds", round)
			return nil
		}

		reply, err := s.llm.Run(ctx, s.Messages(), s.tools.Definitions())
		if err != nil {
			return fmt.Errorf("llm: %w", err)
		}
		reply.Role = RoleAssistant
		if reply.Type == "" {
			reply.Type = TypeMessage
		}
		s.append(reply)

		if len(reply.ToolCalls) > 0 {
			for _, call := range reply.ToolCalls {
				s.append(s.callTool(ctx, call))
			}
			s.detectLoop()
			continue
		}

		if !s.config.AutoRun {
			return nil
		}
		ran := false
		for block := range CodeBlocks(reply.Content) {
			ran = true
			s.append(NewComputerMessage(s.runCode(ctx, block)))
		}
		if !ran {
			return nil
		}
	}
}

// callTool executes one tool call. Every failure is reported in the
// returned tool message.
func (s *Session) callTool(ctx context.Context, call ToolCall) (msg Message) {
	name := call.Function.Name
	logger := s.logger.With("tool", name, "call_id", call.ID)

	tool := s.tools.Get(name)
	if tool == nil {
		content := fmt.Sprintf("Tool not found: %s", name)
		if suggestion := s.tools.Suggest(name); suggestion != "" {
			content += fmt.Sprintf(". Did you mean %q?", suggestion)
		}
		logger.Warn("tool not found")
		return NewToolMessage(call.ID, content)
	}

	args := json.RawMessage(call.Function.Arguments)
	if strings.TrimSpace(call.Function.Arguments) == "" {
		args = json.RawMessage("{}")
	}
	var probe interface{}
	if err := json.Unmarshal(args, &probe); err != nil {
		logger.Warn("invalid tool arguments", "error", err)
		return NewToolMessage(call.ID, fmt.Sprintf("Error: invalid arguments for tool %s: %v", name, err))
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", "panic", r)
			msg = NewToolMessage(call.ID, fmt.Sprintf("Error executing tool %s: %v", name, r))
		}
	}()

	logger.Debug("calling tool")
	output, err := tool.Executor(ctx, args)
	if err != nil {
		logger.Warn("tool failed", "error", err)
		return NewToolMessage(call.ID, fmt.Sprintf("Error executing tool %s: %v", name, err))
	}
	return NewToolMessage(call.ID, TruncateToolOutput(output, name, s.config.ToolOutputLimits, s.config.ToolLineLimits))
}

// runCode executes one block; execution errors become the output text.
func (s *Session) runCode(ctx context.Context, block CodeBlock) string {
	if s.runner == nil {
		return "Error: code execution is not available in this session."
	}
	logger := s.logger.With("language", block.Language)
	logger.Debug("running code block")
	output, err := s.runner.Execute(ctx, block.Language, block.Code)
	if err != nil {
		logger.Warn("code execution failed", "error", err)
		if output != "" {
			return output + "\n" + err.Error()
		}
		return err.Error()
	}
	return output
}

// detectLoop appends a steering note when recent tool calls repeat.
func (s *Session) detectLoop() {
	if !s.config.EnableLoopDetection {
		return
	}
	window := s.config.LoopDetectionWindow
	if !DetectLoop(s.Messages(), window) {
		return
	}
	warning := fmt.Sprintf("Loop detected: the last %d tool calls follow a repeating pattern. Try a different approach.", window)
	s.logger.Warn("tool call loop detected", "window", window)
	s.append(NewUserMessage(warning))
}

// append adds msg, trims the history and notifies the observer.
func (s *Session) append(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.trimLocked()
	s.mu.Unlock()

	if s.observer != nil && observable(msg.Role) {
		s.observer.OnMessage(msg)
	}
}

// trimLocked drops the oldest non-system messages so that at most
// MaxMessages follow the system message.
func (s *Session) trimLocked() {
	limit := s.config.MaxMessages
	if limit <= 0 || len(s.messages)-1 <= limit {
		return
	}
	kept := s.messages[len(s.messages)-limit:]
	s.messages = append([]Message{s.messages[0]}, kept...)
}

func (s *Session) last() Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

func (s *Session) persistent() bool {
	return s.store != nil && s.config.HistoryName != ""
}

func (s *Session) systemPrompt() string {
	base := s.config.SystemPrompt
	if base == "" {
		base = DefaultSystemPrompt
	}
	var instructions string
	if s.config.UserInstructions != "" {
		instructions = "# User Instructions\n\n" + s.config.UserInstructions
	}
	return BuildSystemPrompt(base, s.envInfo, s.docs, BuildToolsSection(s.tools.Definitions()), instructions)
}
