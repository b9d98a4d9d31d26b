package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/martinemde/codeinterp/agentloop"
)

type recordingRegistrar struct {
	names     []string
	executors map[string]agentloop.ToolExecutor
}

func (r *recordingRegistrar) RegisterTool(def agentloop.ToolDefinition, executor agentloop.ToolExecutor) {
	if r.executors == nil {
		r.executors = make(map[string]agentloop.ToolExecutor)
	}
	r.names = append(r.names, def.Name)
	r.executors[def.Name] = executor
}

type stubRunner struct {
	output string
	err    error
	got    [2]string
}

func (s *stubRunner) Execute(_ context.Context, language, code string) (string, error) {
	s.got = [2]string{language, code}
	return s.output, s.err
}

func call(t *testing.T, executor agentloop.ToolExecutor, args string) (string, error) {
	t.Helper()
	return executor(context.Background(), json.RawMessage(args))
}

func TestRegisterBuiltins(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{name: "calculator only", want: []string{"calculator"}},
		{name: "with runner", opts: Options{Runner: &stubRunner{}}, want: []string{"calculator", "execute_code"}},
		{
			name: "everything",
			opts: Options{Runner: &stubRunner{}, WorkDir: t.TempDir()},
			want: []string{"calculator", "execute_code", "read_file", "write_file", "edit_file", "list_directory"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRegistrar{}
			RegisterBuiltins(r, tt.opts)
			if strings.Join(r.names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", r.names, tt.want)
			}
		})
	}
}

func TestRegisterBuiltinsOnSession(t *testing.T) {
	s := agentloop.NewSession(nil, nil, nil)
	RegisterBuiltins(s, Options{})
	if s.Tools().Get("calculator") == nil {
		t.Fatal("calculator not registered on the session")
	}
	if !strings.Contains(s.Messages()[0].Content, "## calculator") {
		t.Error("system prompt should describe the calculator")
	}
}

func TestCalculator(t *testing.T) {
	tests := []struct {
		args    string
		want    string
		wantErr bool
	}{
		{args: `{"operation":"add","a":2,"b":3}`, want: "5"},
		{args: `{"operation":"subtract","a":2,"b":3.5}`, want: "-1.5"},
		{args: `{"operation":"multiply","a":"4","b":2.5}`, want: "10"},
		{args: `{"operation":"divide","a":1,"b":4}`, want: "0.25"},
		{args: `{"operation":"divide","a":1,"b":0}`, want: "Error: Division by zero."},
		{args: `{"operation":"modulo","a":1,"b":2}`, wantErr: true},
		{args: `{"operation":"add","a":1}`, wantErr: true},
		{args: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		got, err := call(t, Calculator, tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestExecuteCode(t *testing.T) {
	tests := []struct {
		name   string
		runner *stubRunner
		want   string
	}{
		{name: "success", runner: &stubRunner{output: "42\n"}, want: "42\n"},
		{name: "error only", runner: &stubRunner{err: errors.New("Unsupported language: cobol")}, want: "Unsupported language: cobol"},
		{name: "output and error", runner: &stubRunner{output: "partial", err: errors.New("exit 1")}, want: "partial\nexit 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, ExecuteCode(tt.runner), `{"language":"python","code":"print(42)"}`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if tt.runner.got != [2]string{"python", "print(42)"} {
				t.Errorf("runner received %v", tt.runner.got)
			}
		})
	}

	if _, err := call(t, ExecuteCode(&stubRunner{}), `{"code":"x"}`); err == nil {
		t.Error("expected error without language")
	}
}

func TestFileTools(t *testing.T) {
	root := t.TempDir()
	files := NewFiles(root)

	out, err := call(t, files.WriteFile, `{"file_path":"sub/notes.txt","content":"alpha\nbeta\ngamma"}`)
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if !strings.Contains(out, "sub/notes.txt") {
		t.Errorf("unexpected write result %q", out)
	}

	out, err = call(t, files.ReadFile, `{"file_path":"sub/notes.txt","offset":2,"limit":1}`)
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if out != "2 | beta\n" {
		t.Errorf("unexpected read result %q", out)
	}

	if _, err := call(t, files.EditFile, `{"file_path":"sub/notes.txt","old_string":"beta","new_string":"BETA"}`); err != nil {
		t.Fatalf("edit_file: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(root, "sub", "notes.txt"))
	if string(data) != "alpha\nBETA\ngamma" {
		t.Errorf("unexpected file content %q", data)
	}

	out, err = call(t, files.ListDirectory, `{}`)
	if err != nil {
		t.Fatalf("list_directory: %v", err)
	}
	if out != "sub/\n" {
		t.Errorf("unexpected listing %q", out)
	}
	out, _ = call(t, files.ListDirectory, `{"path":"sub"}`)
	if !strings.HasPrefix(out, "notes.txt (") {
		t.Errorf("unexpected listing %q", out)
	}
}

func TestEditFileAmbiguity(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("x x x"), 0o644)
	files := NewFiles(root)

	if _, err := call(t, files.EditFile, `{"file_path":"a.txt","old_string":"x","new_string":"y"}`); err == nil || !strings.Contains(err.Error(), "3 times") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
	if _, err := call(t, files.EditFile, `{"file_path":"a.txt","old_string":"z","new_string":"y"}`); err == nil {
		t.Error("expected not found error")
	}
	out, err := call(t, files.EditFile, `{"file_path":"a.txt","old_string":"x","new_string":"y","replace_all":true}`)
	if err != nil || !strings.Contains(out, "3 occurrence(s)") {
		t.Errorf("replace_all: %q, %v", out, err)
	}
}

func TestFilesStayInsideRoot(t *testing.T) {
	files := NewFiles(t.TempDir())
	for _, path := range []string{"../escape.txt", "/etc/passwd", "a/../../b"} {
		if _, err := files.resolve(path); err == nil {
			t.Errorf("%s: expected rejection", path)
		}
	}
	if _, err := files.resolve("a/../b"); err != nil {
		t.Errorf("a/../b should stay inside: %v", err)
	}
}
