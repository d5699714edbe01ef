package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installConditionBuiltins() {
	i.special("tryCatch", "expr, ..., finally", builtinTryCatch).Visibility = VisiblePass
	i.special("withCallingHandlers", "expr, ...", builtinWithCallingHandlers).Visibility = VisiblePass
	i.special("withRestarts", "expr, ...", builtinWithRestarts).Visibility = VisiblePass
	i.special("try", "expr, silent, outFile", builtinTry).Visibility = VisiblePass
	i.special("suppressWarnings", "expr, classes", builtinSuppress("warning", "muffleWarning")).Visibility = VisiblePass
	i.special("suppressMessages", "expr, classes", builtinSuppress("message", "muffleMessage")).Visibility = VisiblePass

	i.def("stop", "..., call., domain", builtinStop)
	i.invisibleDef("warning", "..., call., immediate., noBreaks., domain", builtinWarning)
	i.invisibleDef("message", "..., domain, appendLF", builtinMessage)
	i.def("signalCondition", "cond, message, call", builtinSignalCondition)
	i.def("invokeRestart", "r, ...", builtinInvokeRestart)
	i.def("computeRestarts", "cond", builtinComputeRestarts)
	i.def("findRestart", "name, cond", builtinFindRestart)
	i.def("conditionMessage", "c", builtinConditionMessage)
	i.def("conditionCall", "c", builtinConditionCall)
	i.def("simpleCondition", "message, call", conditionConstructor("simpleCondition", "condition"))
	i.def("simpleError", "message, call", conditionConstructor("simpleError", "error", "condition"))
	i.def("simpleWarning", "message, call", conditionConstructor("simpleWarning", "warning", "condition"))
	i.def("simpleMessage", "message, call", conditionConstructor("simpleMessage", "message", "condition"))
	i.def("errorCondition", "message, ..., class, call", classedConditionConstructor("error"))
	i.def("warningCondition", "message, ..., class, call", classedConditionConstructor("warning"))
	i.invisibleDef("warnings", "...", builtinWarnings)
	i.special("on.exit", "expr, add, after", builtinOnExit).Visibility = VisibleOff
}

// handlerArgs turns the named arguments of tryCatch and friends into handler
// entries, first-listed innermost.
func handlerArgs(c *CallContext, exiting bool, token int) ([]*handlerEntry, error) {
	entries := make([]*handlerEntry, 0, len(c.Dots))
	for _, d := range c.Dots {
		if d.Name == "" {
			continue
		}
		fn, err := c.Force(d.Value)
		if err != nil {
			return nil, err
		}
		if !runtime.IsFunction(fn) {
			return nil, runtime.Errorf("attempt to apply non-function")
		}
		entries = append(entries, &handlerEntry{class: d.Name, handler: fn, exiting: exiting, token: token})
	}
	for l, r := 0, len(entries)-1; l < r; l, r = l+1, r-1 {
		entries[l], entries[r] = entries[r], entries[l]
	}
	return entries, nil
}

func (i *Interpreter) pushHandlers(entries []*handlerEntry) []*handlerEntry {
	saved := i.handlers
	i.handlers = append(saved[:len(saved):len(saved)], entries...)
	return saved
}

func (c *CallContext) forceExpr() (runtime.Value, error) {
	if !c.Has(0) {
		return runtime.Null, nil
	}
	return c.Force(c.Args[0].Value)
}

func builtinTryCatch(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	result, err := tryCatchBody(c)
	visible := i.visible
	if c.Has(2) {
		if _, ferr := c.Force(c.Args[2].Value); ferr != nil {
			return nil, ferr
		}
	}
	i.visible = visible
	return result, err
}

func tryCatchBody(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	token := i.newToken()
	entries, err := handlerArgs(c, true, token)
	if err != nil {
		return nil, err
	}
	saved := i.pushHandlers(entries)
	result, err := c.forceExpr()
	i.handlers = saved
	var cu *conditionUnwind
	if errors.As(err, &cu) && cu.token == token {
		args := []Arg{{Value: cu.condition, Expr: ast.NewConstant(cu.condition, "cond")}}
		return i.callFunction(cu.handler, args, syntheticCall("value[[3L]]", cu.handler, args), c.Env)
	}
	return result, err
}

func builtinWithCallingHandlers(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	entries, err := handlerArgs(c, false, 0)
	if err != nil {
		return nil, err
	}
	saved := i.pushHandlers(entries)
	defer func() { i.handlers = saved }()
	return c.forceExpr()
}

func builtinWithRestarts(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	token := i.newToken()
	var entries []*restartEntry
	for _, d := range c.Dots {
		if d.Name == "" {
			return nil, runtime.Errorf("not a valid restart specification")
		}
		fn, err := c.Force(d.Value)
		if err != nil {
			return nil, err
		}
		entries = append([]*restartEntry{{name: d.Name, fn: fn, token: token}}, entries...)
	}
	saved := i.restarts
	i.restarts = append(saved[:len(saved):len(saved)], entries...)
	result, err := c.forceExpr()
	i.restarts = saved
	var ru *restartUnwind
	if !errors.As(err, &ru) || ru.token != token {
		return result, err
	}
	for _, e := range entries {
		if e.name != ru.name {
			continue
		}
		if !runtime.IsFunction(e.fn) {
			i.visible = false
			return runtime.Null, nil
		}
		return i.callFunction(e.fn, ru.args, syntheticCall(e.name, e.fn, ru.args), c.Env)
	}
	return result, err
}

func builtinTry(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	silent := false
	if c.Has(1) {
		v, err := c.Arg(1)
		if err != nil {
			return nil, err
		}
		b, _ := runtime.AsLogicalScalar(v)
		silent = b == 1
	}
	token := i.newToken()
	saved := i.pushHandlers([]*handlerEntry{{class: "error", exiting: true, token: token}})
	result, err := c.forceExpr()
	i.handlers = saved
	var cu *conditionUnwind
	if !errors.As(err, &cu) || cu.token != token {
		return result, err
	}
	text := formatConditionReport("Error", conditionCallText(cu.condition), conditionMessage(cu.condition)) + "\n"
	if !silent {
		fmt.Fprint(i.stderr, text)
	}
	out := runtime.StringScalar(text)
	runtime.SetAttrRaw(out, "class", runtime.StringVector("try-error"))
	runtime.SetAttrRaw(out, "condition", cu.condition)
	c.Invisible()
	return out, nil
}

func builtinSuppress(class, restart string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		i := c.Interp
		classes := []string{class}
		if c.Has(1) {
			v, err := c.Arg(1)
			if err != nil {
				return nil, err
			}
			if classes, err = runtime.AsStrings(v); err != nil {
				return nil, err
			}
		}
		var entries []*handlerEntry
		for _, cls := range classes {
			entries = append(entries, &handlerEntry{class: cls, native: func(runtime.Value) error {
				if e := i.findRestartEntry(restart); e != nil {
					return i.invokeRestartEntry(e, nil)
				}
				return nil
			}})
		}
		saved := i.pushHandlers(entries)
		defer func() { i.handlers = saved }()
		return c.forceExpr()
	}
}

// pasteMessage concatenates the message arguments of stop() and friends.
func pasteMessage(vals []runtime.Value) (string, error) {
	var b strings.Builder
	for _, v := range vals {
		if v.Kind() == runtime.KindNull {
			continue
		}
		parts, err := runtime.AsStrings(v)
		if err != nil {
			return "", err
		}
		for k, p := range parts {
			if isNAString(v, k) {
				p = "NA"
			}
			b.WriteString(p)
		}
	}
	return b.String(), nil
}

func isNAString(v runtime.Value, k int) bool {
	vec, ok := v.(runtime.Vector)
	return ok && k < vec.Len() && vec.IsNA(k)
}

// callerCall is the call of the closure that invoked a builtin, or NULL.
func (c *CallContext) callerCall() runtime.Value {
	if f := c.Interp.frameFor(c.Env); f != nil {
		return callValue(f.call)
	}
	return runtime.Null
}

func (c *CallContext) flag(k int, def bool) (bool, error) {
	if !c.Has(k) {
		return def, nil
	}
	v, err := c.Arg(k)
	if err != nil {
		return false, err
	}
	b, err := runtime.AsLogicalScalar(v)
	if err != nil {
		return false, err
	}
	if b == runtime.NALogical {
		return def, nil
	}
	return b != 0, nil
}

func builtinStop(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	withCall, err := c.flag(1, true)
	if err != nil {
		return nil, err
	}
	if len(vals) > 0 && isCondition(vals[0]) {
		return nil, i.errorCondition(vals[0])
	}
	msg, err := pasteMessage(vals)
	if err != nil {
		return nil, err
	}
	var call runtime.Value = runtime.Null
	if withCall {
		call = c.callerCall()
	}
	return nil, i.errorCondition(i.makeCondition(msg, call, "simpleError", "error", "condition"))
}

func builtinWarning(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	withCall, err := c.flag(1, true)
	if err != nil {
		return nil, err
	}
	if len(vals) > 0 && isCondition(vals[0]) {
		if err := i.warningCondition(vals[0]); err != nil {
			return nil, err
		}
		return runtime.StringScalar(conditionMessage(vals[0])), nil
	}
	msg, err := pasteMessage(vals)
	if err != nil {
		return nil, err
	}
	var call runtime.Value = runtime.Null
	if withCall {
		call = c.callerCall()
	}
	if err := i.warningCondition(i.makeCondition(msg, call, "simpleWarning", "warning", "condition")); err != nil {
		return nil, err
	}
	return runtime.StringScalar(msg), nil
}

func builtinMessage(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	if len(vals) > 0 && isCondition(vals[0]) {
		return runtime.Null, i.messageCondition(vals[0])
	}
	msg, err := pasteMessage(vals)
	if err != nil {
		return nil, err
	}
	appendLF, err := c.flag(2, true)
	if err != nil {
		return nil, err
	}
	if appendLF {
		msg += "\n"
	}
	return runtime.Null, i.messageCondition(i.makeCondition(msg, callValue(c.Call), "simpleMessage", "message", "condition"))
}

func builtinSignalCondition(c *CallContext) (runtime.Value, error) {
	cond, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if err := c.Interp.signalCondition(cond); err != nil {
		return nil, err
	}
	return runtime.Null, nil
}

func builtinInvokeRestart(c *CallContext) (runtime.Value, error) {
	r, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	entry, name, err := c.Interp.restartFromValue(r)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, runtime.Errorf("no 'restart' '%s' found", name)
	}
	return nil, c.Interp.invokeRestartEntry(entry, c.Dots)
}

func builtinComputeRestarts(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	out := make([]runtime.Value, 0, len(i.restarts))
	for k := len(i.restarts) - 1; k >= 0; k-- {
		out = append(out, restartObject(i.restarts[k]))
	}
	return runtime.NewList(out), nil
}

func builtinFindRestart(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	name, ok := runtime.AsStringScalar(v)
	if !ok {
		return nil, runtime.Errorf("invalid 'name' argument")
	}
	if e := c.Interp.findRestartEntry(name); e != nil {
		return restartObject(e), nil
	}
	return runtime.Null, nil
}

func builtinConditionMessage(c *CallContext) (runtime.Value, error) {
	cond, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	msg := listField(cond, "message")
	if msg == nil {
		return nil, runtime.Errorf("no applicable method for 'conditionMessage' applied to an object of class \"%s\"", implicitClass(cond)[0])
	}
	return msg, nil
}

func builtinConditionCall(c *CallContext) (runtime.Value, error) {
	cond, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if call := listField(cond, "call"); call != nil {
		return call, nil
	}
	return runtime.Null, nil
}

func conditionConstructor(classes ...string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		msgVal, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		msg, _ := runtime.AsStringScalar(msgVal)
		call, err := c.ArgOr(1, runtime.Null)
		if err != nil {
			return nil, err
		}
		return c.Interp.makeCondition(msg, call, classes...), nil
	}
}

func classedConditionConstructor(base string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		msgVal, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		msg, _ := runtime.AsStringScalar(msgVal)
		var classes []string
		if c.Has(2) {
			v, err := c.Arg(2)
			if err != nil {
				return nil, err
			}
			if classes, err = runtime.AsStrings(v); err != nil {
				return nil, err
			}
		}
		classes = append(classes, base, "condition")
		call, err := c.ArgOr(3, runtime.Null)
		if err != nil {
			return nil, err
		}
		cond := c.Interp.makeCondition(msg, call, classes...)
		names := []string{"message", "call"}
		for _, d := range c.Dots {
			v, err := c.Force(d.Value)
			if err != nil {
				return nil, err
			}
			cond.Data = append(cond.Data, v)
			runtime.MarkShared(v)
			names = append(names, d.Name)
		}
		runtime.SetAttrRaw(cond, "names", runtime.StringVector(names...))
		return cond, nil
	}
}

func builtinWarnings(c *CallContext) (runtime.Value, error) {
	if len(c.Interp.lastWarnings) > 0 {
		fmt.Fprint(c.Interp.stdout, formatWarnings(c.Interp.lastWarnings))
	}
	return runtime.Null, nil
}

func builtinOnExit(c *CallContext) (runtime.Value, error) {
	frame := c.Interp.frameFor(c.Env)
	if frame == nil {
		return runtime.Null, nil
	}
	add, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	after, err := c.flag(2, true)
	if err != nil {
		return nil, err
	}
	var expr ast.Expression
	if c.Has(0) {
		expr = c.Args[0].Expr
	}
	switch {
	case !add:
		frame.onExit = nil
		if expr != nil {
			frame.onExit = []ast.Expression{expr}
		}
	case expr == nil:
	case after:
		frame.onExit = append(frame.onExit, expr)
	default:
		frame.onExit = append([]ast.Expression{expr}, frame.onExit...)
	}
	return runtime.Null, nil
}
