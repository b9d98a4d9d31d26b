package agentloop

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	maxProjectDocBytes = 32 * 1024
	docsTruncated      = "[Project instructions truncated at 32KB]"
)

// projectDocFiles are loaded into the system prompt when present between the
// git root and the working directory.
var projectDocFiles = []string{"AGENTS.md", "CODEINTERP.md"}

// DefaultSystemPrompt is the static head of the system message.
const DefaultSystemPrompt = `You are Code Interpreter, a world-class programmer that can complete any goal by executing code.
First, write a plan. Always recap the plan between each code block.
When you execute code, it will be executed on the user's machine. The user has given you full permission to execute any code necessary to complete the task.
To run code, write it in a fenced code block tagged with its language, for example:
` + "```python\nprint(\"hello\")\n```" + `
The output of each block is returned to you in a message from the computer.
You can also call the tools listed below. Prefer a tool when one fits the task.
Write messages to the user in Markdown. Keep replies concise.
When the task is complete, say "The task is done." If it cannot be completed, say "The task is impossible."`

// BuildEnvironmentContext describes the machine and working directory.
func BuildEnvironmentContext(workingDir, model string) string {
	lines := []string{"<environment>", "Working directory: " + workingDir}
	inRepo := git(workingDir, "rev-parse", "--is-inside-work-tree") == "true"
	lines = append(lines, fmt.Sprintf("Is git repository: %v", inRepo))
	if inRepo {
		if branch := git(workingDir, "rev-parse", "--abbrev-ref", "HEAD"); branch != "" {
			lines = append(lines, "Git branch: "+branch)
		}
	}
	lines = append(lines,
		"Platform: "+runtime.GOOS+"/"+runtime.GOARCH,
		"Today's date: "+time.Now().Format(time.DateOnly),
	)
	if model != "" {
		lines = append(lines, "Model: "+model)
	}
	return strings.Join(append(lines, "</environment>"), "\n")
}

// BuildToolsSection lists each tool with its description and indented JSON
// schema.
func BuildToolsSection(tools []ToolDefinition) string {
	if len(tools) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Tools\n")
	for _, t := range tools {
		fmt.Fprintf(&sb, "\n## %s\n", t.Name)
		if t.Description != "" {
			sb.WriteString(t.Description + "\n")
		}
		schema, err := json.MarshalIndent(t.Parameters, "", "  ")
		if err != nil {
			schema = []byte("{}")
		}
		fmt.Fprintf(&sb, "Parameters:\n```json\n%s\n```\n", schema)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BuildSystemPrompt joins the non-blank sections with blank lines.
func BuildSystemPrompt(sections ...string) string {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

// DiscoverProjectDocs concatenates the instruction files found from the git
// root (or workingDir outside a repository) down to workingDir. The total is
// capped at maxProjectDocBytes.
func DiscoverProjectDocs(workingDir string) string {
	if workingDir == "" {
		return ""
	}
	root := git(workingDir, "rev-parse", "--show-toplevel")
	if root == "" {
		root = workingDir
	}

	var docs []string
	budget := maxProjectDocBytes
	for _, dir := range collectPathHierarchy(root, workingDir) {
		for _, name := range projectDocFiles {
			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			if budget <= 0 {
				return strings.Join(append(docs, docsTruncated), "\n\n---\n\n")
			}
			text := string(content)
			if len(text) > budget {
				text = text[:budget] + "\n" + docsTruncated
			}
			budget -= len(text)
			docs = append(docs, fmt.Sprintf("# %s (from %s)\n\n%s", name, dir, text))
		}
	}
	return strings.Join(docs, "\n\n---\n\n")
}

// collectPathHierarchy returns root and each directory below it on the way
// to target. A target outside root yields just root.
func collectPathHierarchy(root, target string) []string {
	root = filepath.Clean(root)
	dirs := []string{root}
	rel, err := filepath.Rel(root, filepath.Clean(target))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dirs
	}
	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		dirs = append(dirs, current)
	}
	return dirs
}

// git runs a git subcommand in dir and returns its trimmed stdout, or "" on
// any failure.
func git(dir string, args ...string) string {
	if dir == "" {
		return ""
	}
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
