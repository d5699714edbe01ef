package interpreter

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/parser"
	"rcore/interpreter-go/pkg/runtime"
)

// Options are the print and warning settings exposed through options().
type Options struct {
	Digits int
	Width  int
	Warn   int
}

// DefaultOptions mirrors a fresh R session.
func DefaultOptions() Options {
	return Options{Digits: 7, Width: 80, Warn: 0}
}

// Interpreter owns the base and global environments and the dynamic state of
// one evaluation thread. It is not safe for concurrent use.
type Interpreter struct {
	base   *runtime.Environment
	global *runtime.Environment
	empty  *runtime.Environment

	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger

	options Options
	extra   map[string]runtime.Value

	frames   []*callFrame
	handlers []*handlerEntry
	restarts []*restartEntry

	pendingWarnings []pendingWarning
	lastWarnings    []pendingWarning
	warningLog      []string
	visible         bool
	loops           []*runtime.Environment
	nextToken       int

	ctx context.Context
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput redirects printed output and diagnostics.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(i *Interpreter) {
		if stdout != nil {
			i.stdout = stdout
		}
		if stderr != nil {
			i.stderr = stderr
		}
	}
}

// WithLogger attaches a structured logger for debug tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interpreter) { i.logger = logger }
}

// WithOptions overrides the initial options() values.
func WithOptions(opts Options) Option {
	return func(i *Interpreter) {
		if opts.Digits > 0 {
			i.options.Digits = opts.Digits
		}
		if opts.Width > 0 {
			i.options.Width = opts.Width
		}
		i.options.Warn = opts.Warn
	}
}

// New creates an interpreter with the base library installed and an empty
// global environment.
func New(opts ...Option) *Interpreter {
	empty := runtime.NewNamedEnvironment("R_EmptyEnv", nil)
	base := runtime.NewNamedEnvironment("base", empty)
	global := runtime.NewNamedEnvironment("R_GlobalEnv", base)
	i := &Interpreter{
		base:    base,
		global:  global,
		empty:   empty,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  zerolog.Nop(),
		options: DefaultOptions(),
		extra:   make(map[string]runtime.Value),
		visible: true,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.installBuiltins()
	base.Lock()
	return i
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment { return i.global }

// BaseEnvironment returns the locked environment holding the builtins.
func (i *Interpreter) BaseEnvironment() *runtime.Environment { return i.base }

// Options returns the current options() values.
func (i *Interpreter) Options() Options { return i.options }

// WarningLog returns the message of every warning reported since the
// interpreter was created, in signalling order.
func (i *Interpreter) WarningLog() []string {
	return append([]string(nil), i.warningLog...)
}

// Result is the outcome of evaluating a top-level sequence.
type Result struct {
	Value   runtime.Value
	Visible bool
}

// EvalString parses and evaluates src in the global environment.
func (i *Interpreter) EvalString(src string) (Result, error) {
	return i.EvalStringContext(context.Background(), src)
}

// EvalStringContext is EvalString with cancellation. Visible top-level values
// are printed to stdout; deferred warnings go to stderr after each top-level
// expression. The first uncaught error stops evaluation and is returned as an
// *EvalError.
func (i *Interpreter) EvalStringContext(ctx context.Context, src string) (Result, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return Result{Value: runtime.Null}, err
	}
	return i.EvalProgram(ctx, prog)
}

// EvalProgram evaluates an already parsed program.
func (i *Interpreter) EvalProgram(ctx context.Context, prog *ast.Program) (Result, error) {
	prevCtx := i.ctx
	i.ctx = ctx
	defer func() { i.ctx = prevCtx }()

	result := Result{Value: runtime.Null}
	for _, expr := range prog.Body {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		val, visible, err := i.evaluateTopLevel(expr)
		if err != nil {
			i.flushWarnings()
			return result, err
		}
		result = Result{Value: val, Visible: visible}
		if visible {
			if err := i.autoPrint(val); err != nil {
				i.flushWarnings()
				return result, i.toEvalError(err)
			}
		}
		i.flushWarnings()
	}
	return result, nil
}

// Eval evaluates a single expression in env without printing.
func (i *Interpreter) Eval(expr ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if env == nil {
		env = i.global
	}
	val, err := i.evaluateExpression(expr, env)
	if err != nil {
		return nil, i.toEvalError(err)
	}
	return val, nil
}

func (i *Interpreter) evaluateTopLevel(expr ast.Expression) (runtime.Value, bool, error) {
	token := i.newToken()
	savedRestarts := i.restarts
	savedHandlers := i.handlers
	savedFrames := i.frames
	i.restarts = append(savedRestarts[:len(savedRestarts):len(savedRestarts)], &restartEntry{name: "abort", token: token})
	defer func() {
		i.restarts = savedRestarts
		i.handlers = savedHandlers
		i.frames = savedFrames
		i.loops = nil
	}()

	i.visible = true
	val, err := i.evaluateExpression(expr, i.global)
	if err == nil {
		return val, i.visible, nil
	}
	var ru *restartUnwind
	if errors.As(err, &ru) && ru.token == token {
		i.logger.Debug().Msg("top-level abort restart invoked")
		return runtime.Null, false, nil
	}
	return nil, false, i.toEvalError(err)
}

// toEvalError converts whatever escaped to the top level into an *EvalError.
func (i *Interpreter) toEvalError(err error) error {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr
	}
	var sig *errorSignal
	if errors.As(err, &sig) {
		return newEvalError(sig.condition, sig.cause)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch e := err.(type) {
	case *returnSignal:
		return &EvalError{Message: "no function to return from, jumping to top level"}
	case *conditionUnwind:
		return newEvalError(e.condition, nil)
	case *restartUnwind:
		return &EvalError{Message: "no 'restart' '" + e.name + "' found"}
	case breakSignal, nextSignal:
		return &EvalError{Message: "no loop for break/next, jumping to top level"}
	}
	cond := i.makeCondition(err.Error(), nil, "simpleError", "error", "condition")
	return newEvalError(cond, err)
}

func (i *Interpreter) newToken() int {
	i.nextToken++
	return i.nextToken
}

func (i *Interpreter) checkContext() error {
	if i.ctx == nil {
		return nil
	}
	return i.ctx.Err()
}
