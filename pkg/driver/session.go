package driver

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"rcore/interpreter-go/pkg/interpreter"
	"rcore/interpreter-go/pkg/runtime"
)

// Session wraps one interpreter whose output is captured instead of
// written to the terminal. Eval calls are serialized.
type Session struct {
	mu     sync.Mutex
	interp *interpreter.Interpreter
	stdout bytes.Buffer
	stderr bytes.Buffer
	logger zerolog.Logger
}

// Outcome is what one Eval call produced.
type Outcome struct {
	Value       runtime.Value
	Visible     bool
	Output      string
	Diagnostics string
	Warnings    []string
	Err         error
}

// NewSession creates a session with a fresh global environment.
func NewSession(cfg *Config, logger zerolog.Logger) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Session{logger: logger}
	s.interp = interpreter.New(
		interpreter.WithOutput(&s.stdout, &s.stderr),
		interpreter.WithLogger(logger),
		interpreter.WithOptions(cfg.InterpreterOptions()),
	)
	return s
}

// Interpreter exposes the wrapped interpreter, for registering builtins.
func (s *Session) Interpreter() *interpreter.Interpreter { return s.interp }

// Eval evaluates src and returns the output it printed. An evaluation
// error is reported in Outcome.Err; the returned error is only set when ctx
// ended first.
func (s *Session) Eval(ctx context.Context, src string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stdout.Reset()
	s.stderr.Reset()
	before := len(s.interp.WarningLog())

	res, err := s.interp.EvalStringContext(ctx, src)
	out := Outcome{
		Value:       res.Value,
		Visible:     res.Visible,
		Output:      s.stdout.String(),
		Diagnostics: s.stderr.String(),
		Warnings:    s.interp.WarningLog()[before:],
		Err:         err,
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return out, err
	}
	if err != nil {
		s.logger.Debug().Str("error", interpreter.DescribeError(err)).Msg("evaluation failed")
	}
	return out, nil
}

// ErrorMessage returns the bare condition message of an evaluation error,
// without the "Error in" prefix.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var evalErr *interpreter.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Message
	}
	return err.Error()
}
