package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/lipgloss"

	"github.com/martinemde/codeinterp/agentloop"
)

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	warningColor = lipgloss.Color("11")
	dangerColor  = lipgloss.Color("9")

	promptStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	roleStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	toolStyle   = lipgloss.NewStyle().Foreground(warningColor)
	outputStyle = lipgloss.NewStyle().Foreground(dimColor)
	statusStyle = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(dangerColor).Bold(true)
)

const defaultWidth = 100

func terminalWidth(lookup func(string) (string, bool)) int {
	if v, ok := lookup("COLUMNS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 20 {
			return n
		}
	}
	return defaultWidth
}

// printer renders conversation messages and streamed code output.
type printer struct {
	w     io.Writer
	width int

	mu       sync.Mutex
	streamed strings.Builder
}

func newPrinter(w io.Writer, width int) *printer {
	return &printer{w: w, width: width}
}

// stream prints code output as it arrives.
func (p *printer) stream(_ string, chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamed.WriteString(chunk)
	fmt.Fprint(p.w, outputStyle.Render(chunk))
}

// message prints one appended message. Computer output that was already
// streamed is not repeated.
func (p *printer) message(msg agentloop.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch msg.Role {
	case agentloop.RoleAssistant:
		if strings.TrimSpace(msg.Content) != "" {
			fmt.Fprintln(p.w, roleStyle.Render("assistant"))
			fmt.Fprint(p.w, string(markdown.Render(msg.Content, p.width, 2)))
		}
		for _, call := range msg.ToolCalls {
			fmt.Fprintln(p.w, toolStyle.Render(fmt.Sprintf("→ %s %s", call.Function.Name, call.Function.Arguments)))
		}
	case agentloop.RoleTool, agentloop.RoleComputer:
		rest := strings.TrimPrefix(msg.Content, p.streamed.String())
		p.streamed.Reset()
		if rest = strings.TrimSpace(rest); rest != "" {
			fmt.Fprintln(p.w, outputStyle.Render(indent(rest)))
		}
	}
}

func (p *printer) banner() {
	fmt.Fprintln(p.w, roleStyle.Render("codeinterp")+statusStyle.Render("  /help for commands, /exit to quit"))
}

func (p *printer) prompt() {
	fmt.Fprint(p.w, promptStyle.Render("> "))
}

func (p *printer) status(s string) {
	fmt.Fprintln(p.w, statusStyle.Render(s))
}

func (p *printer) showError(err error) {
	fmt.Fprintln(p.w, errorStyle.Render("error: "+err.Error()))
}

func (p *printer) help() {
	p.status(strings.Join([]string{
		"/reset         start a new conversation",
		"/save [name]   save the conversation",
		"/load [name]   load a saved conversation",
		"/tools         list available tools",
		"/exit          quit",
	}, "\n"))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
