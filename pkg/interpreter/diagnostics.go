package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"rcore/interpreter-go/pkg/parser"
	"rcore/interpreter-go/pkg/runtime"
)

// EvalError is an R error that reached the top level uncaught. Cause holds
// the typed runtime error (UnboundSymbolError, MissingArgumentError, ...)
// when the condition was raised by the evaluator rather than by stop().
type EvalError struct {
	Message   string
	Call      string
	Condition runtime.Value
	Cause     error
}

func newEvalError(cond runtime.Value, cause error) *EvalError {
	return &EvalError{
		Message:   conditionMessage(cond),
		Call:      conditionCallText(cond),
		Condition: cond,
		Cause:     cause,
	}
}

func (e *EvalError) Error() string {
	return formatConditionReport("Error", e.Call, e.Message)
}

func (e *EvalError) Unwrap() error { return e.Cause }

// longReport is the width past which the message moves to its own line.
const longReport = 77

func formatConditionReport(head, call, msg string) string {
	if call == "" {
		return head + ": " + msg
	}
	firstLine, _, _ := strings.Cut(msg, "\n")
	prefix := head + " in " + call + " : "
	if len(prefix)+len(firstLine) > longReport {
		return prefix + "\n  " + msg
	}
	return prefix + msg
}

// DescribeError renders an error returned by EvalString the way the R
// console reports it.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Error()
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Sprintf("Error: %s at %d:%d", parseErr.Message, parseErr.Line, parseErr.Column)
	}
	return "Error: " + err.Error()
}

type pendingWarning struct {
	call    string
	message string
}

// flushWarnings reports deferred warnings after a top-level expression.
func (i *Interpreter) flushWarnings() {
	if len(i.pendingWarnings) == 0 {
		return
	}
	warnings := i.pendingWarnings
	i.pendingWarnings = nil
	i.lastWarnings = warnings
	fmt.Fprint(i.stderr, formatWarnings(warnings))
}

func formatWarnings(warnings []pendingWarning) string {
	var b strings.Builder
	switch {
	case len(warnings) == 1:
		b.WriteString("Warning message:\n")
		b.WriteString(warningLine(warnings[0]))
		b.WriteString("\n")
	case len(warnings) <= 10:
		b.WriteString("Warning messages:\n")
		for idx, w := range warnings {
			fmt.Fprintf(&b, "%d: %s\n", idx+1, warningLine(w))
		}
	case len(warnings) < 50:
		fmt.Fprintf(&b, "There were %d warnings (use warnings() to see them)\n", len(warnings))
	default:
		b.WriteString("There were 50 or more warnings (use warnings() to see the first 50)\n")
	}
	return b.String()
}

// immediateWarning is the report printed as a warning is raised under
// options(warn = 1).
func immediateWarning(w pendingWarning) string {
	if w.call == "" {
		return "Warning: " + w.message + "\n"
	}
	prefix := "Warning in " + w.call + " :"
	if len(prefix)+len(w.message)+1 > longReport {
		return prefix + "\n  " + w.message + "\n"
	}
	return prefix + " " + w.message + "\n"
}

func warningLine(w pendingWarning) string {
	if w.call == "" {
		return w.message
	}
	prefix := "In " + w.call + " :"
	if len(prefix)+len(w.message)+1 > longReport {
		return prefix + "\n  " + w.message
	}
	return prefix + " " + w.message
}
