package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rcore/interpreter-go/pkg/interpreter"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := newCLI(strings.NewReader(stdin), &stdout, &stderr).run(context.Background(), args)
	return code, stdout.String(), stderr.String()
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "", "--version")
	if code != 0 || out != cliToolVersion+"\n" {
		t.Fatalf("--version = %d %q", code, out)
	}
	code, out, _ = runCLI(t, "", "--help")
	if code != 0 || !strings.Contains(out, "usage: rcore") {
		t.Fatalf("--help = %d %q", code, out)
	}
	if code, _, _ := runCLI(t, ""); code != 1 {
		t.Fatalf("no arguments should fail, got %d", code)
	}
}

func TestEvalCommand(t *testing.T) {
	code, out, errOut := runCLI(t, "", "eval", "x <- 1:3; sum(x)")
	if code != 0 {
		t.Fatalf("eval failed: %s", errOut)
	}
	if out != "[1] 6\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEvalReportsErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "", "eval", "stop('bad')")
	if code != 1 || errOut != "Error: bad\n" {
		t.Fatalf("eval error = %d %q", code, errOut)
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.R")
	src := "greet <- function(who) cat(\"hello,\", who, \"\\n\")\ngreet(\"world\")\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	code, out, errOut := runCLI(t, "", "run", path)
	if code != 0 {
		t.Fatalf("run failed: %s", errOut)
	}
	if out != "hello, world \n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfigFlagAppliesDigits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcore.yml")
	if err := os.WriteFile(path, []byte("digits: 3\nlog_level: error\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	code, out, errOut := runCLI(t, "", "eval", "--config", path, "pi")
	if code != 0 {
		t.Fatalf("eval failed: %s", errOut)
	}
	if out != "[1] 3.14\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestBatchFromStdin(t *testing.T) {
	tasks := "tasks:\n  - id: one\n    source: \"1 + 1\"\n"
	code, out, errOut := runCLI(t, tasks, "batch", "--log-level", "error", "-j", "2", "-")
	if code != 0 {
		t.Fatalf("batch failed: %s", errOut)
	}
	want := "results:\n  - id: one\n    output: |\n      [1] 2\n    value: \"2\"\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	suite := "cases:\n  - name: ok\n    source: \"1\"\n    output: \"[1] 1\"\n  - name: bad\n    source: \"2\"\n    output: \"[1] 3\"\n"
	if err := os.WriteFile(filepath.Join(dir, "s.yml"), []byte(suite), 0o644); err != nil {
		t.Fatalf("write suite: %v", err)
	}
	code, out, _ := runCLI(t, "", "test", "--log-level", "error", dir)
	if code != 1 {
		t.Fatalf("expected failure status, got %d", code)
	}
	if !strings.Contains(out, "FAIL s / bad") || !strings.HasSuffix(out, "1 passed, 1 failed, 0 skipped\n") {
		t.Fatalf("unexpected report %q", out)
	}
}

type scriptedLines struct {
	lines []string
}

func (s *scriptedLines) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestReplLoopJoinsContinuationLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := newCLI(nil, &stdout, &stderr)
	interp := interpreter.New(interpreter.WithOutput(&stdout, &stderr))
	in := &scriptedLines{lines: []string{"f <- function(x) {", "  x * 2", "}", "f(4)", "undefined_name", "q()", "never"}}

	var history []string
	code := c.replLoop(context.Background(), interp, in, func(src string) { history = append(history, src) })
	if code != 0 {
		t.Fatalf("repl exit status %d", code)
	}
	if stdout.String() != "[1] 8\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if stderr.String() != "Error: object 'undefined_name' not found\n" {
		t.Fatalf("unexpected diagnostics %q", stderr.String())
	}
	if len(history) != 4 || history[0] != "f <- function(x) {\n  x * 2\n}" {
		t.Fatalf("unexpected history %q", history)
	}
}
