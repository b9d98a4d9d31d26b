package computer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// SkillFunc replaces the built-in dispatch for one language. It receives
// the raw source and returns the result text.
type SkillFunc func(ctx context.Context, code string) (string, error)

// Skill is an executable file that handles one language.
type Skill struct {
	Language string
	Path     string
}

// LoadSkills scans dir for executable files named <language>[.ext]. A
// missing directory yields no skills. The caller registers the result with
// RegisterSkill.
func LoadSkills(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills directory: %w", err)
	}

	var skills []Skill
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
			continue
		}
		name := entry.Name()
		lang := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		skills = append(skills, Skill{Language: lang, Path: filepath.Join(dir, name)})
	}
	return skills, nil
}

// Func returns a SkillFunc that runs the skill file with the source on
// stdin and returns its combined output.
func (s Skill) Func() SkillFunc {
	return func(ctx context.Context, code string) (string, error) {
		cmd := exec.CommandContext(ctx, s.Path)
		cmd.Stdin = strings.NewReader(code)
		cmd.Env = filterEnvironment(os.Environ())
		out, err := cmd.CombinedOutput()
		if err != nil {
			return string(out), fmt.Errorf("skill %s: %w", s.Language, err)
		}
		return string(out), nil
	}
}
