package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"rcore/interpreter-go/pkg/interpreter"
	"rcore/interpreter-go/pkg/parser"
)

const (
	historyFile = ".rcore_history"
	promptMain  = "> "
	promptCont  = "+ "
	replBanner  = cliToolVersion + "\nType 'q()' or press Ctrl+D to quit."
)

// lineReader is the part of liner.State the read loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

func (c *cli) runRepl(ctx context.Context, args []string) int {
	fs, opts := c.flagSet("repl")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	env, ok := c.setup(opts)
	if !ok {
		return 1
	}
	fmt.Fprintln(c.stdout, replBanner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetMultiLineMode(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	interp := c.newInterpreter(env)
	status := c.replLoop(ctx, interp, ln, func(src string) {
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	})

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return status
}

// replLoop reads complete expressions and evaluates them until end of
// input or q().
func (c *cli) replLoop(ctx context.Context, interp *interpreter.Interpreter, in lineReader, remember func(string)) int {
	for {
		src, ok := readExpression(in)
		if !ok {
			fmt.Fprintln(c.stdout)
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if remember != nil {
			remember(src)
		}
		if trimmed == "q()" || trimmed == "quit()" {
			return 0
		}
		if _, err := interp.EvalStringContext(ctx, src); err != nil {
			fmt.Fprintln(c.stderr, interpreter.DescribeError(err))
		}
		if ctx.Err() != nil {
			return 1
		}
	}
}

// readExpression accumulates lines until they parse, or fail to parse for
// a reason other than running out of input.
func readExpression(in lineReader) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := in.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		_, perr := parser.Parse(src)
		var parseErr *parser.ParseError
		if errors.As(perr, &parseErr) && parseErr.Incomplete {
			continue
		}
		return src, true
	}
}
