package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// handlerEntry is one established condition handler. Exiting handlers belong
// to a tryCatch identified by token; native handlers are installed by
// builtins such as suppressWarnings.
type handlerEntry struct {
	class   string
	handler runtime.Value
	native  func(cond runtime.Value) error
	exiting bool
	token   int
}

// makeCondition builds list(message = msg, call = call) with the given
// class vector.
func (i *Interpreter) makeCondition(msg string, call runtime.Value, classes ...string) *runtime.ListValue {
	if call == nil {
		call = runtime.Null
	}
	cond := runtime.NewList([]runtime.Value{runtime.StringScalar(msg), call})
	runtime.SetAttrRaw(cond, "names", runtime.StringVector("message", "call"))
	runtime.SetAttrRaw(cond, "class", runtime.StringVector(classes...))
	return cond
}

// listField returns the element of a named list, or nil.
func listField(v runtime.Value, name string) runtime.Value {
	list, ok := v.(*runtime.ListValue)
	if !ok {
		return nil
	}
	names := runtime.Names(list)
	if names == nil {
		return nil
	}
	for k, n := range names.Data {
		if !n.NA && n.Val == name && k < len(list.Data) {
			return list.Data[k]
		}
	}
	return nil
}

func conditionMessage(cond runtime.Value) string {
	msg := listField(cond, "message")
	if msg == nil {
		return ""
	}
	s, _ := runtime.AsStringScalar(msg)
	return s
}

func conditionCallExpr(cond runtime.Value) ast.Expression {
	if lang, ok := listField(cond, "call").(*runtime.LanguageValue); ok {
		return lang.Expr
	}
	return nil
}

// conditionCallText deparses the call of a condition, keeping the first line.
func conditionCallText(cond runtime.Value) string {
	expr := conditionCallExpr(cond)
	if expr == nil {
		return ""
	}
	text := ast.Deparse(expr)
	if first, _, found := strings.Cut(text, "\n"); found {
		return first
	}
	return text
}

func isCondition(v runtime.Value) bool {
	_, ok := v.(*runtime.ListValue)
	return ok && runtime.Inherits(v, "condition")
}

func handlerMatches(classes []string, class string) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

// signalCondition offers cond to the established handlers, innermost first.
// An exiting handler ends the search with a conditionUnwind; calling
// handlers run with the handler stack cut below themselves.
func (i *Interpreter) signalCondition(cond runtime.Value) error {
	classes := runtime.Class(cond)
	for idx := len(i.handlers) - 1; idx >= 0; idx-- {
		h := i.handlers[idx]
		if !handlerMatches(classes, h.class) {
			continue
		}
		if h.exiting {
			i.logger.Debug().Str("class", h.class).Msg("condition caught by exiting handler")
			return &conditionUnwind{token: h.token, condition: cond, handler: h.handler}
		}
		saved := i.handlers
		i.handlers = saved[:idx:idx]
		var err error
		if h.native != nil {
			err = h.native(cond)
		} else {
			args := []Arg{{Value: cond, Expr: ast.NewConstant(cond, "cond")}}
			_, err = i.callFunction(h.handler, args, syntheticCall("h", h.handler, args), i.global)
		}
		i.handlers = saved
		if err != nil {
			return err
		}
	}
	return nil
}

// signalWarning raises a simpleWarning for call.
func (i *Interpreter) signalWarning(msg string, call ast.Expression) error {
	return i.warningCondition(i.makeCondition(msg, callValue(call), "simpleWarning", "warning", "condition"))
}

// warningCondition signals a warning condition with a muffleWarning restart
// and applies the default action when nothing muffled it.
func (i *Interpreter) warningCondition(cond runtime.Value) error {
	muffled, err := i.withRestart("muffleWarning", func() error { return i.signalCondition(cond) })
	if err != nil || muffled != nil {
		return err
	}
	msg := conditionMessage(cond)
	w := pendingWarning{call: conditionCallText(cond), message: msg}
	if i.options.Warn >= 0 && i.options.Warn < 2 {
		i.warningLog = append(i.warningLog, msg)
	}
	switch warn := i.options.Warn; {
	case warn < 0:
	case warn == 0:
		i.pendingWarnings = append(i.pendingWarnings, w)
	case warn == 1:
		fmt.Fprint(i.stderr, immediateWarning(w))
	default:
		return i.raise(conditionCallExpr(cond), errors.New("(converted from warning) "+msg))
	}
	return nil
}

// messageCondition signals a message condition with a muffleMessage restart
// and writes it to stderr when nothing muffled it.
func (i *Interpreter) messageCondition(cond runtime.Value) error {
	muffled, err := i.withRestart("muffleMessage", func() error { return i.signalCondition(cond) })
	if err != nil || muffled != nil {
		return err
	}
	fmt.Fprint(i.stderr, conditionMessage(cond))
	return nil
}

// errorCondition signals an error condition and, when no handler took it,
// starts unwinding to the top level.
func (i *Interpreter) errorCondition(cond runtime.Value) error {
	if err := i.signalCondition(cond); err != nil {
		return err
	}
	return &errorSignal{condition: cond}
}
