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
)

// packageManager is one installer the toolchain can fall back to.
type packageManager struct {
	name string
	args []string // install arguments before the package name
	sudo bool     // needs root on Unix
}

var packageManagers = map[string][]packageManager{
	"linux": {
		{name: "apt-get", args: []string{"install", "-y"}, sudo: true},
		{name: "dnf", args: []string{"install", "-y"}, sudo: true},
		{name: "yum", args: []string{"install", "-y"}, sudo: true},
		{name: "pacman", args: []string{"-S", "--noconfirm"}, sudo: true},
		{name: "zypper", args: []string{"--non-interactive", "install"}, sudo: true},
	},
	"darwin": {
		{name: "brew", args: []string{"install"}},
	},
	"windows": {
		{name: "choco", args: []string{"install", "-y"}},
	},
}

// Toolchain makes sure a language's binaries are present before code runs,
// installing them with the first available package manager when allowed.
// Readiness is cached per language.
type Toolchain struct {
	goos        string
	stateDir    string
	workDir     string
	autoInstall bool
	isRoot      bool
	logger      *slog.Logger

	lookPath func(file string) (string, error)
	command  func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	mu     sync.Mutex
	ready  map[string]bool
	python string
}

// NewToolchain creates a Toolchain. stateDir holds the Python virtual
// environment; workDir is checked for a package.json before JavaScript runs.
func NewToolchain(stateDir, workDir string, autoInstall bool, logger *slog.Logger) *Toolchain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolchain{
		goos:        runtime.GOOS,
		stateDir:    stateDir,
		workDir:     workDir,
		autoInstall: autoInstall,
		isRoot:      os.Geteuid() == 0,
		logger:      logger,
		lookPath:    exec.LookPath,
		command:     runCombined,
		ready:       make(map[string]bool),
	}
}

func runCombined(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Python returns the interpreter used for Python code: the managed virtual
// environment once it exists, python3 before that.
func (t *Toolchain) Python() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.python != "" {
		return t.python
	}
	return "python3"
}

// Ensure prepares the toolchain for language id. Failures are
// *EnvironmentSetupError.
func (t *Toolchain) Ensure(ctx context.Context, id string, lang Language) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready[id] {
		return nil
	}

	if missing := t.missing(lang.Requires); len(missing) > 0 {
		if err := t.install(ctx, id, lang, missing); err != nil {
			return err
		}
		if still := t.missing(lang.Requires); len(still) > 0 {
			return &EnvironmentSetupError{Language: id, Missing: still, Reason: "still not on PATH after installation"}
		}
	}

	switch id {
	case "python":
		if err := t.ensureVenv(ctx); err != nil {
			return err
		}
	case "javascript":
		if err := t.ensureNodeModules(ctx); err != nil {
			return err
		}
	}

	t.ready[id] = true
	return nil
}

func (t *Toolchain) missing(binaries []string) []string {
	var missing []string
	for _, bin := range binaries {
		if _, err := t.lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}

// manager returns the first package manager found on PATH.
func (t *Toolchain) manager() (packageManager, bool) {
	for _, pm := range packageManagers[t.goos] {
		if _, err := t.lookPath(pm.name); err == nil {
			return pm, true
		}
	}
	return packageManager{}, false
}

func (t *Toolchain) install(ctx context.Context, id string, lang Language, missing []string) error {
	if !t.autoInstall {
		return &EnvironmentSetupError{Language: id, Missing: missing, Reason: "automatic installation is disabled"}
	}
	pm, ok := t.manager()
	if !ok {
		return &EnvironmentSetupError{Language: id, Missing: missing, Reason: "no supported package manager found"}
	}
	pkg, ok := lang.Packages[pm.name]
	if !ok {
		pkg = lang.Packages[""]
	}
	if pkg == "" {
		return &EnvironmentSetupError{Language: id, Missing: missing, Reason: fmt.Sprintf("no %s package is known for %s", pm.name, id)}
	}

	name, args := pm.name, append(append([]string(nil), pm.args...), pkg)
	if pm.sudo && !t.isRoot && t.goos != "windows" {
		args = append([]string{"-n", name}, args...)
		name = "sudo"
	}

	t.logger.Info("installing toolchain", "language", id, "manager", pm.name, "package", pkg)
	out, err := t.command(ctx, "", name, args...)
	if err != nil {
		return &EnvironmentSetupError{
			Language: id,
			Missing:  missing,
			Reason:   fmt.Sprintf("%s install %s failed: %s", pm.name, pkg, strings.TrimSpace(string(out))),
			Err:      err,
		}
	}
	return nil
}

// ensureVenv creates the Python virtual environment on first use.
func (t *Toolchain) ensureVenv(ctx context.Context) error {
	if t.stateDir == "" {
		return nil
	}
	venv := filepath.Join(t.stateDir, "venv")
	python := filepath.Join(venv, "bin", "python")
	if t.goos == "windows" {
		python = filepath.Join(venv, "Scripts", "python.exe")
	}

	if _, err := os.Stat(python); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(t.stateDir, 0o755); err != nil {
			return &EnvironmentSetupError{Language: "python", Reason: "cannot create state directory", Err: err}
		}
		t.logger.Info("creating python virtual environment", "path", venv)
		if out, err := t.command(ctx, "", "python3", "-m", "venv", venv); err != nil {
			return &EnvironmentSetupError{
				Language: "python",
				Reason:   "creating virtual environment failed: " + strings.TrimSpace(string(out)),
				Err:      err,
			}
		}
	}
	t.python = python
	return nil
}

// ensureNodeModules runs npm install in the work directory when it has a
// package.json but no node_modules yet.
func (t *Toolchain) ensureNodeModules(ctx context.Context) error {
	if t.workDir == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(t.workDir, "package.json")); err != nil {
		return nil
	}
	if _, err := os.Stat(filepath.Join(t.workDir, "node_modules")); err == nil {
		return nil
	}
	if _, err := t.lookPath("npm"); err != nil {
		return &EnvironmentSetupError{Language: "javascript", Missing: []string{"npm"}, Reason: "package.json needs npm install"}
	}
	t.logger.Info("installing javascript dependencies", "dir", t.workDir)
	if out, err := t.command(ctx, t.workDir, "npm", "install", "--no-audit", "--no-fund"); err != nil {
		return &EnvironmentSetupError{
			Language: "javascript",
			Reason:   "npm install failed: " + strings.TrimSpace(string(out)),
			Err:      err,
		}
	}
	return nil
}

// NodePath returns the NODE_PATH for JavaScript runs, or "".
func (t *Toolchain) NodePath() string {
	if t.workDir == "" {
		return ""
	}
	return filepath.Join(t.workDir, "node_modules")
}
