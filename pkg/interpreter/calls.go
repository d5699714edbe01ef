package interpreter

import (
	"context"
	"errors"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// maxFrames bounds closure recursion.
const maxFrames = 4000

// callFrame is the record of one active closure call.
type callFrame struct {
	call      ast.Expression
	fn        runtime.Value
	env       *runtime.Environment
	callerEnv *runtime.Environment
	args      []Arg
	missing   map[string]bool
	onExit    []ast.Expression
	dispatch  *dispatchInfo
}

// dispatchInfo is recorded on frames entered through UseMethod so that
// NextMethod can continue along the class vector.
type dispatchInfo struct {
	generic string
	classes []string
	object  runtime.Value
}

func (i *Interpreter) evaluateCall(call *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	fn, err := i.resolveCallee(call, env)
	if err != nil {
		return nil, err
	}
	switch f := fn.(type) {
	case *Builtin:
		var args []Arg
		if f.Special {
			args, err = i.promiseArgs(call.Args, env)
		} else {
			args, err = i.evalArgs(call.Args, env)
		}
		if err != nil {
			return nil, err
		}
		return i.callBuiltin(f, args, call, env)
	case *runtime.ClosureValue:
		args, err := i.promiseArgs(call.Args, env)
		if err != nil {
			return nil, err
		}
		return i.applyClosure(f, args, call, env, nil)
	}
	return nil, i.raise(call, runtime.Errorf("attempt to apply non-function"))
}

func (i *Interpreter) resolveCallee(call *ast.CallExpression, env *runtime.Environment) (runtime.Value, error) {
	if name, ok := call.FunctionName(); ok {
		return i.findFunction(name, env, call)
	}
	fn, err := i.evaluateExpression(call.Function, env)
	if err != nil {
		return nil, err
	}
	if !runtime.IsFunction(fn) {
		return nil, i.raise(call, runtime.Errorf("attempt to apply non-function"))
	}
	return fn, nil
}

// findFunction looks name up skipping bindings that are not functions.
func (i *Interpreter) findFunction(name string, env *runtime.Environment, call ast.Expression) (runtime.Value, error) {
	fn, err := i.lookupFunction(name, env)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, i.raise(call, &runtime.UnboundFunctionError{Name: name})
	}
	return fn, nil
}

func (i *Interpreter) lookupFunction(name string, env *runtime.Environment) (runtime.Value, error) {
	for e := env; e != nil; e = e.Parent() {
		v, ok := e.GetLocal(name)
		if !ok {
			continue
		}
		if p, isPromise := v.(*runtime.Promise); isPromise {
			forced, err := i.forcePromise(p)
			if err != nil {
				return nil, err
			}
			v = forced
		}
		if runtime.IsFunction(v) {
			return v, nil
		}
	}
	return nil, nil
}

// promiseArgs wraps each actual in a promise on env, splicing "...".
func (i *Interpreter) promiseArgs(args []*ast.Argument, env *runtime.Environment) ([]Arg, error) {
	out := make([]Arg, 0, len(args))
	for _, a := range args {
		if isDotsArg(a) {
			dots, err := i.lookupDots(env)
			if err != nil {
				return nil, err
			}
			for _, e := range dots.Entries {
				out = append(out, Arg{Name: e.Name, Value: e.Value, Expr: promiseExpr(e.Value)})
			}
			continue
		}
		if a.Value == nil {
			out = append(out, Arg{Name: a.Name, Value: runtime.MissingArg})
			continue
		}
		out = append(out, Arg{Name: a.Name, Value: runtime.NewPromise(a.Value, env), Expr: a.Value})
	}
	return out, nil
}

// evalArgs evaluates actuals left to right for an ordinary builtin.
func (i *Interpreter) evalArgs(args []*ast.Argument, env *runtime.Environment) ([]Arg, error) {
	out := make([]Arg, 0, len(args))
	for _, a := range args {
		if isDotsArg(a) {
			dots, err := i.lookupDots(env)
			if err != nil {
				return nil, err
			}
			for _, e := range dots.Entries {
				v := e.Value
				if p, ok := v.(*runtime.Promise); ok {
					forced, err := i.forcePromise(p)
					if err != nil {
						return nil, err
					}
					v = forced
				}
				out = append(out, Arg{Name: e.Name, Value: v, Expr: promiseExpr(e.Value)})
			}
			continue
		}
		if a.Value == nil {
			out = append(out, Arg{Name: a.Name, Value: runtime.MissingArg})
			continue
		}
		v, err := i.evaluateExpression(a.Value, env)
		if err != nil {
			return nil, err
		}
		out = append(out, Arg{Name: a.Name, Value: v, Expr: a.Value})
	}
	return out, nil
}

func isDotsArg(a *ast.Argument) bool {
	if a.Name != "" {
		return false
	}
	id, ok := a.Value.(*ast.Identifier)
	return ok && id.Name == "..."
}

func promiseExpr(v runtime.Value) ast.Expression {
	if p, ok := v.(*runtime.Promise); ok {
		return p.Expr
	}
	return nil
}

func (i *Interpreter) callBuiltin(b *Builtin, args []Arg, call ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	return i.callBuiltinContext(&CallContext{Interp: i, Call: call, Env: env, builtin: b}, args)
}

func (i *Interpreter) callBuiltinContext(c *CallContext, args []Arg) (runtime.Value, error) {
	b, call := c.builtin, c.Call
	if len(b.Formals) > 0 {
		matched, dots, err := matchArgs(b.Formals, args)
		if err != nil {
			return nil, i.raise(call, err)
		}
		c.Args, c.Dots = matched, dots
	} else {
		c.Args = args
	}
	return i.invokeBuiltin(c)
}

func (i *Interpreter) invokeBuiltin(c *CallContext) (runtime.Value, error) {
	b := c.builtin
	i.visible = true
	val, err := b.Impl(c)
	if err != nil {
		return nil, i.raise(c.Call, err)
	}
	switch b.Visibility {
	case VisibleOn:
		i.visible = !c.invisible
	case VisibleOff:
		i.visible = false
	}
	if val == nil {
		val = runtime.Null
	}
	return val, nil
}

// applyClosure performs a closure call: match, bind, evaluate the body in
// a fresh frame, run on.exit expressions.
func (i *Interpreter) applyClosure(fn *runtime.ClosureValue, args []Arg, call ast.Expression, callerEnv *runtime.Environment, dispatch *dispatchInfo) (runtime.Value, error) {
	if err := i.checkContext(); err != nil {
		return nil, err
	}
	if len(i.frames) >= maxFrames {
		return nil, i.raise(call, runtime.Errorf("evaluation nested too deeply: infinite recursion / options(expressions=)?"))
	}
	matched, dots, err := matchArgs(closureFormals(fn), args)
	if err != nil {
		return nil, i.raise(call, err)
	}
	frameEnv := runtime.NewEnvironment(fn.Env)
	frame := &callFrame{
		call:      call,
		fn:        fn,
		env:       frameEnv,
		callerEnv: callerEnv,
		args:      args,
		missing:   make(map[string]bool),
		dispatch:  dispatch,
	}
	for k, p := range fn.Params {
		if p.Name == "..." {
			entries := make([]runtime.DotEntry, len(dots))
			for j, d := range dots {
				entries[j] = runtime.DotEntry{Name: d.Name, Value: d.Value}
			}
			frameEnv.Define("...", &runtime.DotsValue{Entries: entries})
			continue
		}
		supplied := matched[k].Value
		if supplied != nil {
			if _, empty := supplied.(*runtime.MissingValue); !empty {
				frameEnv.Define(p.Name, supplied)
				continue
			}
		}
		frame.missing[p.Name] = true
		if p.Default != nil {
			frameEnv.Define(p.Name, runtime.NewPromise(p.Default, frameEnv))
		} else {
			frameEnv.Define(p.Name, runtime.MissingArg)
		}
	}

	depth := len(i.frames)
	i.frames = append(i.frames, frame)
	val, err := i.evaluateExpression(fn.Body, frameEnv)
	var ret *returnSignal
	if errors.As(err, &ret) && ret.env == frameEnv {
		val, err = ret.value, nil
	}
	if len(frame.onExit) > 0 {
		visible := i.visible
		if exitErr := i.runOnExit(frame); exitErr != nil {
			err = exitErr
		}
		i.visible = visible
	}
	i.frames = i.frames[:depth]
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (i *Interpreter) runOnExit(frame *callFrame) error {
	exprs := frame.onExit
	frame.onExit = nil
	for _, expr := range exprs {
		if _, err := i.evaluateExpression(expr, frame.env); err != nil {
			return err
		}
	}
	return nil
}

// callFunction invokes fn with prepared arguments. Values that are not
// promises are passed as already computed.
func (i *Interpreter) callFunction(fn runtime.Value, args []Arg, call ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if call == nil {
		call = syntheticCall("FUN", fn, args)
	}
	switch f := fn.(type) {
	case *runtime.ClosureValue:
		return i.applyClosure(f, args, call, env, nil)
	case *Builtin:
		if !f.Special {
			forced := make([]Arg, len(args))
			for k, a := range args {
				forced[k] = a
				if p, ok := a.Value.(*runtime.Promise); ok {
					v, err := i.forcePromise(p)
					if err != nil {
						return nil, err
					}
					forced[k].Value = v
				}
			}
			args = forced
		}
		return i.callBuiltin(f, args, call, env)
	}
	return nil, i.raise(call, runtime.Errorf("attempt to apply non-function"))
}

// syntheticCall builds a call expression for functions invoked from Go so
// that errors and sys.call() have something to show.
func syntheticCall(name string, fn runtime.Value, args []Arg) *ast.CallExpression {
	callArgs := make([]*ast.Argument, len(args))
	for k, a := range args {
		expr := a.Expr
		if expr == nil {
			expr = valueExpr(a.Value)
		}
		callArgs[k] = &ast.Argument{Name: a.Name, Named: a.Name != "", Value: expr}
	}
	return ast.NewCallExpression(ast.NewConstant(fn, name), callArgs, ast.FormPrefix)
}

// valueExpr embeds a computed value in a synthesized call.
func valueExpr(v runtime.Value) ast.Expression {
	switch val := v.(type) {
	case *runtime.Promise:
		if val.Forced() {
			return valueExpr(val.Value())
		}
		return val.Expr
	case *runtime.LanguageValue:
		return val.Expr
	case *runtime.SymbolValue:
		return ast.NewIdentifier(val.Name)
	case *runtime.MissingValue:
		return nil
	}
	text := runtime.DeparseValue(v)
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	return ast.NewConstant(v, text)
}

// raise converts a Go error into a signalled R error condition whose call is
// call. Control-flow signals and cancellation pass through untouched.
func (i *Interpreter) raise(call ast.Expression, err error) error {
	if err == nil || isControlSignal(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	cond := i.makeCondition(err.Error(), callValue(call), "simpleError", "error", "condition")
	i.logger.Debug().Str("error", err.Error()).Msg("signalling error condition")
	if sigErr := i.signalCondition(cond); sigErr != nil {
		return sigErr
	}
	return &errorSignal{condition: cond, cause: err}
}

func callValue(call ast.Expression) runtime.Value {
	if call == nil {
		return runtime.Null
	}
	return &runtime.LanguageValue{Expr: call}
}

// currentCall is the call of the innermost closure frame, nil at top level.
func (i *Interpreter) currentCall() ast.Expression {
	if len(i.frames) == 0 {
		return nil
	}
	return i.frames[len(i.frames)-1].call
}

// frameFor finds the active frame whose environment is env.
func (i *Interpreter) frameFor(env *runtime.Environment) *callFrame {
	for k := len(i.frames) - 1; k >= 0; k-- {
		if i.frames[k].env == env {
			return i.frames[k]
		}
	}
	return nil
}
