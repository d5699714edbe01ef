package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"

	"rcore/interpreter-go/pkg/driver"
	"rcore/interpreter-go/pkg/interpreter"
)

const cliToolVersion = "rcore 0.1.0-dev"

const usageText = `usage: rcore <command> [flags] [args]

commands:
  run <file.R>          evaluate a source file
  eval <expr>           evaluate an expression
  repl                  start an interactive session
  test [paths...]       run YAML behavioral suites
  batch <tasks.yml>     evaluate tasks concurrently and print YAML results
  fetch <git-url>       clone or update a suite repository

common flags:
  --config <path>       use this rcore.yml instead of searching upwards
  --log-level <level>   override log_level (debug, info, warn, error)
  --log-json            log JSON lines instead of console text
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newCLI(os.Stdin, os.Stdout, os.Stderr).run(ctx, args)
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *cli {
	return &cli{stdin: stdin, stdout: stdout, stderr: stderr}
}

// commonOptions are accepted by every subcommand.
type commonOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
}

// environment is what a subcommand runs with once flags are parsed.
type environment struct {
	config *driver.Config
	logger zerolog.Logger
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usageText)
		return 1
	}
	switch args[0] {
	case "--help", "-h", "help":
		fmt.Fprint(c.stdout, usageText)
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(c.stdout, cliToolVersion)
		return 0
	case "run":
		return c.runFile(ctx, args[1:])
	case "eval":
		return c.runEval(ctx, args[1:])
	case "repl":
		return c.runRepl(ctx, args[1:])
	case "test":
		return c.runTests(ctx, args[1:])
	case "batch":
		return c.runBatch(ctx, args[1:])
	case "fetch":
		return c.runFetch(ctx, args[1:])
	}
	if strings.HasSuffix(args[0], ".R") || strings.HasSuffix(args[0], ".r") {
		return c.runFile(ctx, args)
	}
	fmt.Fprintf(c.stderr, "unknown command %q\n\n%s", args[0], usageText)
	return 1
}

func (c *cli) flagSet(name string) (*flag.FlagSet, *commonOptions) {
	fs := flag.NewFlagSet("rcore "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	opts := &commonOptions{}
	fs.StringVar(&opts.configPath, "config", "", "path to rcore.yml")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level")
	fs.BoolVar(&opts.logJSON, "log-json", false, "log JSON lines")
	return fs, opts
}

func (c *cli) setup(opts *commonOptions) (*environment, bool) {
	var cfg *driver.Config
	var err error
	if opts.configPath != "" {
		cfg, err = driver.LoadConfig(opts.configPath)
	} else {
		cfg, err = driver.LoadConfigFrom(".")
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to load config: %v\n", err)
		return nil, false
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := driver.NewLogger(c.stderr, level, opts.logJSON)
	if err != nil {
		fmt.Fprintf(c.stderr, "%v\n", err)
		return nil, false
	}
	return &environment{config: cfg, logger: logger}, true
}

func (c *cli) newInterpreter(env *environment) *interpreter.Interpreter {
	return interpreter.New(
		interpreter.WithOutput(c.stdout, c.stderr),
		interpreter.WithLogger(env.logger),
		interpreter.WithOptions(env.config.InterpreterOptions()),
	)
}

// evaluate runs src and reports an uncaught error the way R does.
func (c *cli) evaluate(ctx context.Context, interp *interpreter.Interpreter, src string) int {
	if _, err := interp.EvalStringContext(ctx, src); err != nil {
		fmt.Fprintln(c.stderr, interpreter.DescribeError(err))
		return 1
	}
	return 0
}

func (c *cli) runFile(ctx context.Context, args []string) int {
	fs, opts := c.flagSet("run")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "rcore run requires exactly one source file")
		return 1
	}
	env, ok := c.setup(opts)
	if !ok {
		return 1
	}
	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to read %s: %v\n", fs.Arg(0), err)
		return 1
	}
	env.logger.Debug().Str("file", fs.Arg(0)).Msg("running source file")
	return c.evaluate(ctx, c.newInterpreter(env), string(src))
}

func (c *cli) runEval(ctx context.Context, args []string) int {
	fs, opts := c.flagSet("eval")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(c.stderr, "rcore eval requires an expression")
		return 1
	}
	env, ok := c.setup(opts)
	if !ok {
		return 1
	}
	return c.evaluate(ctx, c.newInterpreter(env), strings.Join(fs.Args(), " "))
}

func (c *cli) runTests(ctx context.Context, args []string) int {
	fs, opts := c.flagSet("test")
	verbose := fs.Bool("v", false, "list every case")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	env, ok := c.setup(opts)
	if !ok {
		return 1
	}
	roots := fs.Args()
	if len(roots) == 0 {
		for _, dir := range env.config.Suites {
			roots = append(roots, env.config.Resolve(dir))
		}
	}
	for k, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fmt.Fprintf(c.stderr, "resolve %s: %v\n", root, err)
			return 1
		}
		roots[k] = abs
	}

	runner := &driver.Runner{Config: env.config, Logger: env.logger}
	report, err := runner.Run(ctx, osfs.New("/"), roots...)
	if err != nil {
		fmt.Fprintf(c.stderr, "%v\n", err)
		return 1
	}
	for _, res := range report.Results {
		switch {
		case res.Skipped:
			if *verbose {
				fmt.Fprintf(c.stdout, "SKIP %s / %s\n", res.Suite, res.Case)
			}
		case res.Passed:
			if *verbose {
				fmt.Fprintf(c.stdout, "ok   %s / %s\n", res.Suite, res.Case)
			}
		default:
			fmt.Fprintf(c.stdout, "FAIL %s / %s\n%s\n", res.Suite, res.Case, indent(res.Failure))
		}
	}
	fmt.Fprintf(c.stdout, "%d passed, %d failed, %d skipped\n", report.Passed, report.Failed, report.Skipped)
	if report.Failed > 0 {
		return 1
	}
	return 0
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for k, line := range lines {
		lines[k] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func (c *cli) runBatch(ctx context.Context, args []string) int {
	fs, opts := c.flagSet("batch")
	workers := fs.Int("j", runtime.NumCPU(), "number of concurrent workers")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "rcore batch requires a tasks file (use - for stdin)")
		return 1
	}
	env, ok := c.setup(opts)
	if !ok {
		return 1
	}
	in := c.stdin
	if name := fs.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(c.stderr, "failed to open %s: %v\n", name, err)
			return 1
		}
		defer file.Close()
		in = file
	}
	tasks, err := driver.ReadTasks(in)
	if err != nil {
		fmt.Fprintf(c.stderr, "%v\n", err)
		return 1
	}
	env.logger.Info().Int("tasks", len(tasks)).Int("workers", *workers).Msg("running batch")
	results := driver.RunBatch(ctx, env.config, env.logger, tasks, *workers)
	if err := driver.WriteResults(c.stdout, results); err != nil {
		fmt.Fprintf(c.stderr, "%v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runFetch(ctx context.Context, args []string) int {
	fs, opts := c.flagSet("fetch")
	ref := fs.String("ref", "", "tag, branch or commit to check out")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "rcore fetch requires a repository url")
		return 1
	}
	env, ok := c.setup(opts)
	if !ok {
		return 1
	}
	res, err := driver.FetchSuites(ctx, driver.FetchOptions{
		URL:      fs.Arg(0),
		Ref:      *ref,
		CacheDir: env.config.Resolve(env.config.CacheDir),
		Logger:   env.logger,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.stderr, "fetch interrupted")
		} else {
			fmt.Fprintf(c.stderr, "%v\n", err)
		}
		return 1
	}
	fmt.Fprintf(c.stdout, "%s at %s\n", res.Dir, res.Commit)
	return 0
}
