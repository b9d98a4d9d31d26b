// Command codeinterp is a line-oriented code interpreter chat. The model
// answers in markdown; fenced code blocks in its replies are executed and
// their output is fed back into the conversation.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/martinemde/codeinterp/agentloop"
	"github.com/martinemde/codeinterp/computer"
	"github.com/martinemde/codeinterp/config"
	"github.com/martinemde/codeinterp/mcptools"
	"github.com/martinemde/codeinterp/storage"
	"github.com/martinemde/codeinterp/tools"
	"github.com/martinemde/codeinterp/unifiedllm"
)

type flags struct {
	configPath string
	provider   string
	model      string
	history    string
	safeMode   string
	logLevel   string
	workDir    string
	loop       bool
	noAutoRun  bool
	message    string
}

func parseFlags(args []string, lookup func(string) (string, bool)) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("codeinterp", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", config.DefaultPath(lookup), "path to config.toml")
	fs.StringVar(&f.provider, "provider", "", "LLM provider: local, openai, openrouter, ollama, anthropic")
	fs.StringVar(&f.model, "model", "", "model id")
	fs.StringVar(&f.history, "history", "", "persist the conversation under this name")
	fs.StringVar(&f.safeMode, "safe-mode", "", "code safety level: off, basic, strict")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.workDir, "workdir", "", "work directory for file tools and JavaScript modules (default: current directory)")
	fs.BoolVar(&f.loop, "loop", false, "keep going until the model says the task is done")
	fs.BoolVar(&f.noAutoRun, "no-auto-run", false, "do not execute code blocks")
	fs.StringVar(&f.message, "e", "", "send one message, print the reply and exit")
	err := fs.Parse(args)
	return f, err
}

func (f flags) apply(cfg *config.Config) {
	if f.provider != "" {
		cfg.LLM.Provider = f.provider
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.history != "" {
		cfg.Session.History = f.history
	}
	if f.safeMode != "" {
		cfg.Computer.SafeMode = f.safeMode
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.loop {
		cfg.Session.LoopMode = true
	}
	if f.noAutoRun {
		cfg.Session.AutoRun = false
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.LookupEnv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer, lookup func(string) (string, bool)) error {
	f, err := parseFlags(args, lookup)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	workDir := f.workDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	adapter, err := unifiedllm.NewAdapter(cfg.AdapterConfig())
	if err != nil {
		return err
	}
	client := unifiedllm.NewClient(
		unifiedllm.WithProvider(adapter.Name(), adapter),
		unifiedllm.WithDefaultProvider(adapter.Name()),
		unifiedllm.WithLogger(logger),
	)
	llm := agentloop.NewLLM(client, cfg.LLMConfig(), logger)

	out := newPrinter(stdout, terminalWidth(lookup))
	comp := computer.New(cfg.ComputerConfig(workDir),
		computer.WithLogger(logger),
		computer.WithOutput(out.stream),
	)
	if err := registerSkills(comp, cfg.Computer.SkillsDir, logger); err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	session := agentloop.NewSession(llm, comp, cfg.SessionConfig(workDir),
		agentloop.WithObserver(agentloop.ObserverFunc(out.message)),
		agentloop.WithHistoryStore(store),
		agentloop.WithLogger(logger),
	)
	tools.RegisterBuiltins(session, tools.Options{WorkDir: workDir, Runner: comp})

	for _, sc := range cfg.MCPServerConfigs() {
		server, err := mcptools.Connect(ctx, sc, logger)
		if err != nil {
			logger.Warn("mcp server unavailable", "server", sc.Name, "error", err)
			continue
		}
		defer server.Close()
		server.Register(session)
	}

	if name := cfg.Session.History; name != "" {
		if err := session.LoadConversation(name); err != nil {
			return err
		}
	}

	if f.message != "" {
		_, err := session.Chat(ctx, f.message)
		return err
	}
	return repl(ctx, session, stdin, out, cfg.Session.History)
}

func repl(ctx context.Context, session *agentloop.Session, stdin io.Reader, out *printer, history string) error {
	out.banner()
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		out.prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := command(session, out, line, history)
			if err != nil {
				out.showError(err)
			}
			if quit {
				return nil
			}
			continue
		}

		turnCtx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		_, err := session.Chat(turnCtx, line)
		cancel()
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() == nil {
				out.status("interrupted")
				continue
			}
			out.showError(err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// command handles a slash command and reports whether the REPL should exit.
func command(session *agentloop.Session, out *printer, line, history string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	if arg == "" {
		arg = history
	}
	switch name {
	case "/exit", "/quit":
		return true, nil
	case "/reset":
		if err := session.Reset(); err != nil {
			return false, err
		}
		out.status("conversation reset")
	case "/save":
		if arg == "" {
			return false, errors.New("usage: /save <name>")
		}
		if err := session.SaveConversation(arg); err != nil {
			return false, err
		}
		out.status("saved " + arg)
	case "/load":
		if arg == "" {
			return false, errors.New("usage: /load <name>")
		}
		if err := session.LoadConversation(arg); err != nil {
			return false, err
		}
		out.status(fmt.Sprintf("loaded %s (%d messages)", arg, len(session.Messages())))
	case "/tools":
		out.status(strings.Join(session.Tools().Names(), ", "))
	case "/help":
		out.help()
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func openStore(cfg *config.Config) (agentloop.HistoryStore, func(), error) {
	dir := cfg.DataDir()
	if cfg.Storage.Backend == "sqlite" {
		s, err := storage.OpenSQLite(filepath.Join(dir, "history.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return storage.NewFileStore(filepath.Join(dir, "history")), func() {}, nil
}

func registerSkills(comp *computer.Computer, dir string, logger *slog.Logger) error {
	if dir == "" {
		return nil
	}
	skills, err := computer.LoadSkills(dir)
	if err != nil {
		return err
	}
	for _, skill := range skills {
		comp.RegisterSkill(skill.Language, skill.Func())
		logger.Info("skill registered", "language", skill.Language, "path", skill.Path)
	}
	return nil
}
