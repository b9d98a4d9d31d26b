package computer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds one compile plus run.
const DefaultTimeout = 60 * time.Second

// DefaultMaxOutput caps the captured output in bytes.
const DefaultMaxOutput = 50000

// Config configures a Computer.
type Config struct {
	TempDir     string        `json:"temp_dir,omitempty"`  // "" = os.TempDir()
	StateDir    string        `json:"state_dir,omitempty"` // holds the Python venv
	WorkDir     string        `json:"work_dir,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	MaxOutput   int           `json:"max_output,omitempty"`
	SafeMode    SafeMode      `json:"safe_mode,omitempty"`
	AutoInstall bool          `json:"auto_install"`
}

// DefaultConfig returns the defaults: a 60 second timeout, a 50000 byte
// output cap, safe mode off and automatic installation on.
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		MaxOutput:   DefaultMaxOutput,
		SafeMode:    SafeModeOff,
		AutoInstall: true,
	}
}

// OutputFunc receives output chunks as the process writes them.
type OutputFunc func(language, chunk string)

// Option configures a Computer.
type Option func(*Computer)

// WithOutput streams process output to fn.
func WithOutput(fn OutputFunc) Option {
	return func(c *Computer) { c.output = fn }
}

// WithGuard replaces the safe-mode guard.
func WithGuard(g Guard) Option {
	return func(c *Computer) { c.guard = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Computer) { c.logger = l }
}

// WithToolchain replaces the toolchain.
func WithToolchain(t *Toolchain) Option {
	return func(c *Computer) { c.toolchain = t }
}

// Computer runs code blocks in per-call temporary directories.
type Computer struct {
	config    Config
	guard     Guard
	toolchain *Toolchain
	output    OutputFunc
	logger    *slog.Logger

	mu     sync.RWMutex
	skills map[string]SkillFunc
}

// New creates a Computer. Zero Timeout and MaxOutput take the defaults.
func New(cfg Config, opts ...Option) *Computer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	c := &Computer{
		config: cfg,
		skills: make(map[string]SkillFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.guard == nil {
		c.guard = PatternGuard{Mode: cfg.SafeMode, Patterns: DestructivePatterns}
	}
	if c.toolchain == nil {
		c.toolchain = NewToolchain(cfg.StateDir, cfg.WorkDir, cfg.AutoInstall, c.logger)
	}
	return c
}

// RegisterSkill routes a language to fn instead of the built-in runtime.
// Registering the same language again replaces the previous skill.
func (c *Computer) RegisterSkill(language string, fn SkillFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills[strings.ToLower(strings.TrimSpace(language))] = fn
}

func (c *Computer) skill(language string) (SkillFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.skills[strings.ToLower(strings.TrimSpace(language))]
	return fn, ok
}

// Execute runs code written in language and returns its combined output.
//
// Safe-mode refusals and toolchain setup failures are returned as the
// output text with a nil error. Unknown languages return
// *UnsupportedLanguageError, and failed builds and runs return *ExecError
// carrying the partial output. The temporary directory is removed on every
// path.
func (c *Computer) Execute(ctx context.Context, language, code string) (string, error) {
	if fn, ok := c.skill(language); ok {
		return fn(ctx, code)
	}

	id, ok := Resolve(language)
	if !ok {
		return "", &UnsupportedLanguageError{Language: language, Suggestion: suggestLanguage(language)}
	}
	lang := Languages[id]
	logger := c.logger.With("language", id)

	if err := c.guard.Check(id, code); err != nil {
		logger.Warn("execution refused", "error", err)
		return err.Error(), nil
	}

	if err := c.toolchain.Ensure(ctx, id, lang); err != nil {
		var setup *EnvironmentSetupError
		if errors.As(err, &setup) {
			logger.Warn("toolchain unavailable", "error", err)
			return err.Error(), nil
		}
		return "", err
	}

	if err := os.MkdirAll(c.config.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(c.config.TempDir, fmt.Sprintf("%s-%d-*", id, time.Now().UnixNano()))
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("temp dir cleanup failed", "dir", dir, "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	out, err := c.run(ctx, id, lang, dir, code)
	logger.Debug("execution finished", "duration", time.Since(start), "error", err)
	return out, err
}

func (c *Computer) run(ctx context.Context, id string, lang Language, dir, code string) (string, error) {
	name := "main"
	if lang.Prepare != nil {
		code, name = lang.Prepare(code, name)
	}
	vars := map[string]string{
		"{dir}":      dir,
		"{name}":     name,
		"{artifact}": filepath.Join(dir, name),
		"{python}":   c.toolchain.Python(),
	}
	if runtime.GOOS == "windows" {
		vars["{artifact}"] += ".exe"
	}

	for _, step := range lang.Scaffold {
		if out, err := c.command(ctx, dir, expand(step, vars), nil); err != nil {
			return "", c.failure(ctx, KindCompile, id, out, err)
		}
	}

	file := lang.File
	if file == "" {
		file = name + lang.Ext
	}
	source := filepath.Join(dir, file)
	vars["{source}"] = source
	if err := os.WriteFile(source, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("write source: %w", err)
	}

	if lang.Shape == Compile {
		if out, err := c.command(ctx, dir, expand(lang.Compile, vars), nil); err != nil {
			return "", c.failure(ctx, KindCompile, id, out, err)
		}
	}

	var stream func(string)
	if c.output != nil {
		stream = func(chunk string) { c.output(id, chunk) }
	}
	out, err := c.command(ctx, dir, expand(lang.Run, vars), stream)
	if err != nil {
		return "", c.failure(ctx, KindExit, id, out, err)
	}
	return out, nil
}

// command runs argv in dir, collecting combined output up to MaxOutput.
func (c *Computer) command(ctx context.Context, dir string, argv []string, stream func(string)) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var extra []string
	if nodePath := c.toolchain.NodePath(); nodePath != "" {
		extra = append(extra, "NODE_PATH="+nodePath)
	}
	cmd.Env = filterEnvironment(os.Environ(), extra...)
	setProcessGroup(cmd)
	cmd.WaitDelay = 2 * time.Second

	w := newCappedWriter(c.config.MaxOutput, stream)
	cmd.Stdout = w
	cmd.Stderr = w
	err := cmd.Run()
	return w.String(), err
}

// failure classifies a command error.
func (c *Computer) failure(ctx context.Context, kind ExecKind, id, out string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ExecError{Kind: KindTimeout, Language: id, Timeout: c.config.Timeout, Output: out, Err: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return &ExecError{Kind: KindSpawn, Language: id, Output: out, Err: err}
	}
	return &ExecError{Kind: kind, Language: id, ExitCode: exitErr.ExitCode(), Output: out, Err: err}
}

func expand(argv []string, vars map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, k, v)
		}
		out[i] = arg
	}
	return out
}
