package interpreter

import (
	"errors"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installLanguageBuiltins() {
	i.special("quote", "expr", builtinQuote)
	i.special("substitute", "expr, env", builtinSubstitute)
	i.def("deparse", "expr, width.cutoff", builtinDeparse)
	i.special("missing", "x", builtinMissing)
	i.special("return", "value", builtinReturn).Visibility = VisiblePass
	i.invisibleDef("invisible", "x", builtinIdentity)
	i.def("force", "x", builtinIdentity)
	i.def("identity", "x", builtinIdentity)
	i.def("eval", "expr, envir, enclos", builtinEval).Visibility = VisiblePass
	i.special("evalq", "expr, envir, enclos", builtinEvalq).Visibility = VisiblePass
	i.special("local", "expr, envir", builtinLocal).Visibility = VisiblePass
	i.special("delayedAssign", "x, value, eval.env, assign.env", builtinDelayedAssign).Visibility = VisibleOff
	i.def("sys.call", "which", builtinSysCall)
	i.def("sys.function", "which", builtinSysFunction)
	i.def("match.call", "definition, call", builtinMatchCall)
	i.def("nargs", "", builtinNargs)
	i.special("match.arg", "arg, choices, several.ok", builtinMatchArg)
	i.def("do.call", "what, args, quote, envir", builtinDoCall).Visibility = VisiblePass
	i.def("Recall", "...", builtinRecall).Visibility = VisiblePass
	i.def("UseMethod", "generic, object", builtinUseMethod).Visibility = VisiblePass
	i.def("NextMethod", "generic, object, ...", builtinNextMethod).Visibility = VisiblePass
	i.special("switch", "EXPR, ...", builtinSwitch).Visibility = VisiblePass
	i.special("::", "", builtinNamespace)
	i.special(":::", "", builtinNamespace)
	i.def("body", "fun", builtinBody)
	i.def("formals", "fun", builtinFormals)
	i.def("args", "name", builtinIdentity)
	i.def("...length", "", builtinDotsLength)
	i.def("...elt", "n", builtinDotsElt).Visibility = VisiblePass
	i.def("as.name", "x", builtinAsSymbol)
	i.alias("as.symbol", "as.name")
	i.def("call", "name, ...", builtinMakeCall)
	i.def("as.call", "x", builtinAsCall)
	i.def("interactive", "", func(*CallContext) (runtime.Value, error) {
		return runtime.LogicalScalar(false), nil
	})
}

// exprValue turns an unevaluated expression into the value quote() yields.
func exprValue(expr ast.Expression) runtime.Value {
	if expr == nil {
		return &runtime.SymbolValue{}
	}
	if v, ok := literalValue(expr); ok {
		return v
	}
	switch e := expr.(type) {
	case *ast.Identifier:
		return &runtime.SymbolValue{Name: e.Name}
	case *ast.Constant:
		if v, ok := e.Value.(runtime.Value); ok {
			return v
		}
	}
	return &runtime.LanguageValue{Expr: expr}
}

// callComponents views a language object as the list R exposes: the
// function followed by the arguments.
func callComponents(expr ast.Expression) ([]ast.Expression, []string) {
	call := asCallExpression(expr)
	if call == nil {
		return []ast.Expression{expr}, []string{""}
	}
	exprs := []ast.Expression{call.Function}
	names := []string{""}
	for _, a := range call.Args {
		exprs = append(exprs, a.Value)
		names = append(names, a.Name)
	}
	return exprs, names
}

// asCallExpression normalizes control-flow syntax into the equivalent call.
func asCallExpression(expr ast.Expression) *ast.CallExpression {
	args := func(exprs ...ast.Expression) []*ast.Argument {
		out := make([]*ast.Argument, 0, len(exprs))
		for _, e := range exprs {
			if e != nil {
				out = append(out, ast.Arg(e))
			}
		}
		return out
	}
	switch e := expr.(type) {
	case *ast.CallExpression:
		return e
	case *ast.IfExpression:
		return ast.CallArgs(ast.ID("if"), args(e.Condition, e.Then, e.Else)...)
	case *ast.ForLoop:
		return ast.CallArgs(ast.ID("for"), args(ast.ID(e.Variable), e.Sequence, e.Body)...)
	case *ast.WhileLoop:
		return ast.CallArgs(ast.ID("while"), args(e.Condition, e.Body)...)
	case *ast.RepeatLoop:
		return ast.CallArgs(ast.ID("repeat"), args(e.Body)...)
	case *ast.BlockExpression:
		return ast.CallArgs(ast.ID("{"), args(e.Body...)...)
	case *ast.ParenExpression:
		return ast.CallArgs(ast.ID("("), args(e.Inner)...)
	case *ast.AssignmentExpression:
		return ast.CallArgs(ast.ID(string(e.Operator)), args(e.Target, e.Value)...)
	}
	return nil
}

func languageList(v *runtime.LanguageValue) *runtime.ListValue {
	exprs, names := callComponents(v.Expr)
	vals := make([]runtime.Value, len(exprs))
	hasNames := false
	for k, e := range exprs {
		vals[k] = exprValue(e)
		hasNames = hasNames || names[k] != ""
	}
	list := runtime.NewList(vals)
	if hasNames {
		runtime.SetAttrRaw(list, "names", runtime.StringVector(names...))
	}
	return list
}

// listToCall builds a call from a list whose first element is the function.
func listToCall(list *runtime.ListValue) (runtime.Value, error) {
	if list.Len() == 0 {
		return nil, runtime.Errorf("invalid argument list")
	}
	names := runtime.Names(list)
	fn := valueExpr(list.Data[0])
	if s, ok := list.Data[0].(*runtime.CharacterVector); ok && s.Len() == 1 {
		fn = ast.NewIdentifier(s.Data[0].Val)
	}
	args := make([]*ast.Argument, 0, list.Len()-1)
	for k, v := range list.Data[1:] {
		arg := &ast.Argument{Value: valueExpr(v)}
		if sym, ok := v.(*runtime.SymbolValue); ok && sym.Name == "" {
			arg.Value = nil
		}
		if names != nil && !names.Data[k+1].NA && names.Data[k+1].Val != "" {
			arg.Name, arg.Named = names.Data[k+1].Val, true
		}
		args = append(args, arg)
	}
	return &runtime.LanguageValue{Expr: ast.NewCallExpression(fn, args, ast.FormPrefix)}, nil
}

func languageElement(v *runtime.LanguageValue, idx runtime.Value) (runtime.Value, error) {
	return getElement(languageList(v), []runtime.Value{idx}, true)
}

func languageSubset(v *runtime.LanguageValue, indices []runtime.Value) (runtime.Value, error) {
	if len(indices) != 1 {
		return nil, runtime.Errorf("incorrect number of dimensions")
	}
	sub, err := subsetVector(languageList(v), indices[0])
	if err != nil {
		return nil, err
	}
	list := sub.(*runtime.ListValue)
	if list.Len() == 0 {
		return runtime.Null, nil
	}
	return listToCall(list)
}

func builtinQuote(c *CallContext) (runtime.Value, error) {
	if len(c.Args) == 0 || c.Args[0].Value == nil {
		return nil, runtime.Errorf("0 arguments passed to 'quote' which requires 1")
	}
	return exprValue(c.Args[0].Expr), nil
}

func builtinSubstitute(c *CallContext) (runtime.Value, error) {
	env := c.Env
	if c.Has(1) {
		v, err := c.Arg(1)
		if err != nil {
			return nil, err
		}
		switch e := v.(type) {
		case *runtime.Environment:
			env = e
		case *runtime.ListValue:
			env = listEnvironment(e, nil)
		default:
			return nil, runtime.Errorf("invalid environment specified")
		}
	}
	var expr ast.Expression
	if c.Has(0) {
		expr = c.Args[0].Expr
	}
	if env == c.Interp.global {
		return exprValue(expr), nil
	}
	return exprValue(substituteExpr(expr, env)), nil
}

// substituteExpr replaces symbols bound in env by their promise expressions
// or values, splicing ... into call arguments.
func substituteExpr(expr ast.Expression, env *runtime.Environment) ast.Expression {
	sub := func(e ast.Expression) ast.Expression {
		if e == nil {
			return nil
		}
		return substituteExpr(e, env)
	}
	switch e := expr.(type) {
	case *ast.Identifier:
		v, ok := env.GetLocal(e.Name)
		if !ok {
			return e
		}
		switch val := v.(type) {
		case *runtime.Promise:
			if val.Expr != nil {
				return val.Expr
			}
			return valueExpr(val.Value())
		case *runtime.MissingValue, *runtime.DotsValue:
			return e
		}
		return valueExpr(v)
	case *ast.CallExpression:
		args := make([]*ast.Argument, 0, len(e.Args))
		for _, a := range e.Args {
			if isDotsArg(a) {
				if dots, ok := env.GetLocal("..."); ok {
					if d, ok := dots.(*runtime.DotsValue); ok {
						for _, entry := range d.Entries {
							value := promiseExpr(entry.Value)
							if value == nil {
								value = valueExpr(entry.Value)
							}
							args = append(args, &ast.Argument{Name: entry.Name, Named: entry.Name != "", Value: value})
						}
						continue
					}
				}
			}
			args = append(args, &ast.Argument{Name: a.Name, Named: a.Named, Value: sub(a.Value)})
		}
		return ast.NewCallExpression(sub(e.Function), args, e.Form)
	case *ast.IfExpression:
		return ast.NewIfExpression(sub(e.Condition), sub(e.Then), sub(e.Else))
	case *ast.ForLoop:
		return ast.NewForLoop(e.Variable, sub(e.Sequence), sub(e.Body))
	case *ast.WhileLoop:
		return ast.NewWhileLoop(sub(e.Condition), sub(e.Body))
	case *ast.RepeatLoop:
		return ast.NewRepeatLoop(sub(e.Body))
	case *ast.BlockExpression:
		body := make([]ast.Expression, len(e.Body))
		for k, b := range e.Body {
			body[k] = sub(b)
		}
		return ast.NewBlockExpression(body)
	case *ast.ParenExpression:
		return ast.NewParenExpression(sub(e.Inner))
	case *ast.AssignmentExpression:
		return ast.NewAssignmentExpression(e.Operator, sub(e.Target), sub(e.Value))
	}
	return expr
}

func builtinDeparse(c *CallContext) (runtime.Value, error) {
	v, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	return runtime.StringVector(deparseLines(v)...), nil
}

func deparseLines(v runtime.Value) []string {
	var text string
	switch val := v.(type) {
	case *runtime.LanguageValue:
		text = ast.Deparse(val.Expr)
	case *runtime.SymbolValue:
		text = val.Name
	case *runtime.ClosureValue:
		text = ast.Deparse(ast.NewFunctionLiteral(val.Params, val.Body))
	case *Builtin:
		text = ".Primitive(" + ast.QuoteString(val.Name) + ")"
	default:
		text = runtime.DeparseValue(v)
	}
	return strings.Split(text, "\n")
}

func builtinMissing(c *CallContext) (runtime.Value, error) {
	if len(c.Args) == 0 || c.Args[0].Expr == nil {
		return nil, runtime.Errorf("'missing' can only be used for arguments")
	}
	var name string
	switch e := c.Args[0].Expr.(type) {
	case *ast.Identifier:
		name = e.Name
	case *ast.StringLiteral:
		name = e.Value
	default:
		return nil, runtime.Errorf("invalid use of 'missing'")
	}
	if _, ok := c.Env.GetLocal(name); !ok && name != "..." {
		if _, isDots := dotDotIndex(name); !isDots {
			return nil, runtime.Errorf("'missing' can only be used for arguments")
		}
	}
	return runtime.LogicalScalar(c.Interp.isMissingArg(name, c.Env, 0)), nil
}

// isMissingArg reports whether the formal name of the frame env was not
// supplied, following promises that merely pass a missing argument on.
func (i *Interpreter) isMissingArg(name string, env *runtime.Environment, depth int) bool {
	if depth > 100 {
		return false
	}
	if n, ok := dotDotIndex(name); ok {
		dots, found := env.GetLocal("...")
		d, isDots := dots.(*runtime.DotsValue)
		return !found || !isDots || n > len(d.Entries) || isMissingValue(d.Entries[n-1].Value)
	}
	v, ok := env.GetLocal(name)
	if !ok {
		return false
	}
	if frame := i.frameFor(env); frame != nil && frame.missing[name] {
		return true
	}
	switch val := v.(type) {
	case *runtime.MissingValue:
		return true
	case *runtime.DotsValue:
		return len(val.Entries) == 0
	case *runtime.Promise:
		if val.Forced() || val.Env == nil {
			return false
		}
		if id, isID := val.Expr.(*ast.Identifier); isID {
			return i.isMissingArg(id.Name, val.Env, depth+1)
		}
	}
	return false
}

func isMissingValue(v runtime.Value) bool {
	_, ok := v.(*runtime.MissingValue)
	return ok
}

func builtinReturn(c *CallContext) (runtime.Value, error) {
	frame := c.Interp.frameFor(c.Env)
	if frame == nil {
		return nil, runtime.Errorf("no function to return from, jumping to top level")
	}
	var value runtime.Value = runtime.Null
	c.Interp.visible = true
	if c.Has(0) {
		v, err := c.Force(c.Args[0].Value)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return nil, &returnSignal{env: frame.env, value: value}
}

func builtinIdentity(c *CallContext) (runtime.Value, error) {
	return c.ArgOr(0, runtime.Null)
}

// listEnvironment builds an environment from a named list, as eval() and
// substitute() do when handed a list.
func listEnvironment(list *runtime.ListValue, parent *runtime.Environment) *runtime.Environment {
	env := runtime.NewEnvironment(parent)
	names := runtime.Names(list)
	if names == nil {
		return env
	}
	for k, n := range names.Data {
		if !n.NA && n.Val != "" {
			env.Define(n.Val, list.Data[k])
		}
	}
	return env
}

// evalIn evaluates expr in env inside a pseudo frame so that return() and
// on.exit() inside the evaluated code act on the eval call.
func (i *Interpreter) evalIn(expr ast.Expression, env *runtime.Environment, c *CallContext) (runtime.Value, error) {
	frame := &callFrame{call: c.Call, fn: c.builtin, env: env, callerEnv: c.Env}
	depth := len(i.frames)
	i.frames = append(i.frames, frame)
	i.visible = true
	val, err := i.evaluateExpression(expr, env)
	var ret *returnSignal
	if errors.As(err, &ret) && ret.env == env {
		val, err = ret.value, nil
	}
	if len(frame.onExit) > 0 {
		visible := i.visible
		if exitErr := i.runOnExit(frame); exitErr != nil && err == nil {
			err = exitErr
		}
		i.visible = visible
	}
	i.frames = i.frames[:depth]
	return val, err
}

// evalTarget resolves the envir argument of eval and evalq.
func (c *CallContext) evalTarget(k int) (*runtime.Environment, error) {
	v, err := c.Arg(k)
	if err != nil {
		return nil, err
	}
	switch e := v.(type) {
	case nil:
		return c.Env, nil
	case *runtime.Environment:
		return e, nil
	case *runtime.ListValue:
		parent := c.Env
		if encl, err := c.Arg(k + 1); err != nil {
			return nil, err
		} else if env, ok := encl.(*runtime.Environment); ok {
			parent = env
		}
		return listEnvironment(e, parent), nil
	case *runtime.NullValue:
		return c.Env, nil
	}
	return nil, runtime.Errorf("invalid 'envir' argument of type '%s'", v.Kind())
}

func builtinEval(c *CallContext) (runtime.Value, error) {
	v, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	env, err := c.evalTarget(1)
	if err != nil {
		return nil, err
	}
	switch e := v.(type) {
	case *runtime.LanguageValue:
		return c.Interp.evalIn(e.Expr, env, c)
	case *runtime.SymbolValue:
		return c.Interp.evalIn(ast.NewIdentifier(e.Name), env, c)
	case *runtime.Promise:
		return c.Force(e)
	}
	if runtime.Inherits(v, "expression") {
		var res runtime.Value = runtime.Null
		for _, elem := range v.(*runtime.ListValue).Data {
			expr := valueExpr(elem)
			if expr == nil {
				continue
			}
			if res, err = c.Interp.evalIn(expr, env, c); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
	return v, nil
}

func builtinEvalq(c *CallContext) (runtime.Value, error) {
	if !c.Has(0) {
		return runtime.Null, nil
	}
	env, err := c.evalTarget(1)
	if err != nil {
		return nil, err
	}
	return c.Interp.evalIn(c.Args[0].Expr, env, c)
}

func builtinLocal(c *CallContext) (runtime.Value, error) {
	if !c.Has(0) {
		return runtime.Null, nil
	}
	env := runtime.NewEnvironment(c.Env)
	if c.Has(1) {
		var err error
		if env, err = c.evalTarget(1); err != nil {
			return nil, err
		}
	}
	return c.Interp.evalIn(c.Args[0].Expr, env, c)
}

func builtinDelayedAssign(c *CallContext) (runtime.Value, error) {
	name, err := c.stringArg(0, "")
	if err != nil {
		return nil, err
	}
	if name == "" || !c.Has(1) {
		return nil, runtime.Errorf("invalid first argument")
	}
	evalEnv, err := c.envArg(2)
	if err != nil {
		return nil, err
	}
	assignEnv, err := c.envArg(3)
	if err != nil {
		return nil, err
	}
	assignEnv.Define(name, runtime.NewPromise(c.Args[1].Expr, evalEnv))
	return runtime.Null, nil
}

// frameOf returns the closure frame a builtin was called from.
func (c *CallContext) frameOf() (*callFrame, error) {
	frame := c.Interp.frameFor(c.Env)
	if frame == nil {
		return nil, runtime.Errorf("not that many frames on the stack")
	}
	return frame, nil
}

// frameAt resolves the which argument of sys.call and sys.function.
func (c *CallContext) frameAt(k int) (*callFrame, error) {
	which, err := c.intArg(k, 0)
	if err != nil {
		return nil, err
	}
	i := c.Interp
	if which > 0 {
		if which > len(i.frames) {
			return nil, runtime.Errorf("not that many frames on the stack")
		}
		return i.frames[which-1], nil
	}
	current := len(i.frames) - 1
	for ; current >= 0; current-- {
		if i.frames[current].env == c.Env {
			break
		}
	}
	idx := current + which
	if idx < 0 {
		return nil, nil
	}
	return i.frames[idx], nil
}

func builtinSysCall(c *CallContext) (runtime.Value, error) {
	frame, err := c.frameAt(0)
	if err != nil || frame == nil {
		return runtime.Null, err
	}
	return callValue(frame.call), nil
}

func builtinSysFunction(c *CallContext) (runtime.Value, error) {
	frame, err := c.frameAt(0)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, runtime.Errorf("not that many frames on the stack")
	}
	return frame.fn, nil
}

// builtinMatchCall rebuilds the current call with every argument named by
// the formal it matched.
func builtinMatchCall(c *CallContext) (runtime.Value, error) {
	frame, err := c.frameOf()
	if err != nil {
		return nil, err
	}
	fn, ok := frame.fn.(*runtime.ClosureValue)
	call, isCall := frame.call.(*ast.CallExpression)
	if !ok || !isCall {
		return callValue(frame.call), nil
	}
	formals := closureFormals(fn)
	matched, dots, err := matchArgs(formals, frame.args)
	if err != nil {
		return nil, err
	}
	var args []*ast.Argument
	for k, f := range formals {
		if f == "..." {
			for _, d := range dots {
				args = append(args, &ast.Argument{Name: d.Name, Named: d.Name != "", Value: argExpr(d)})
			}
			continue
		}
		if matched[k].Value == nil || isMissingValue(matched[k].Value) {
			continue
		}
		args = append(args, &ast.Argument{Name: f, Named: true, Value: argExpr(matched[k])})
	}
	return &runtime.LanguageValue{Expr: ast.NewCallExpression(call.Function, args, ast.FormPrefix)}, nil
}

func argExpr(a Arg) ast.Expression {
	if a.Expr != nil {
		return a.Expr
	}
	return valueExpr(a.Value)
}

func builtinNargs(c *CallContext) (runtime.Value, error) {
	frame := c.Interp.frameFor(c.Env)
	if frame == nil {
		return runtime.IntScalar(0), nil
	}
	n := 0
	for _, a := range frame.args {
		if !isMissingValue(a.Value) {
			n++
		}
	}
	return runtime.IntScalar(n), nil
}

func builtinMatchArg(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	arg, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	choicesVal, err := c.Arg(1)
	if err != nil {
		return nil, err
	}
	fromDefault := false
	if choicesVal == nil {
		id, ok := c.Args[0].Expr.(*ast.Identifier)
		frame := i.frameFor(c.Env)
		if !ok || frame == nil {
			return nil, runtime.Errorf("'match.arg' without 'choices' can only be used for arguments")
		}
		fn, ok := frame.fn.(*runtime.ClosureValue)
		if !ok {
			return nil, runtime.Errorf("'match.arg' without 'choices' can only be used for arguments")
		}
		for _, p := range fn.Params {
			if p.Name == id.Name && p.Default != nil {
				if choicesVal, err = i.evaluateExpression(p.Default, frame.env); err != nil {
					return nil, err
				}
			}
		}
		if choicesVal == nil {
			return nil, runtime.Errorf("'arg' must be of length 1")
		}
		fromDefault = frame.missing[id.Name]
	}
	choices, err := runtime.AsStrings(choicesVal)
	if err != nil {
		return nil, err
	}
	several, err := c.flag(2, false)
	if err != nil {
		return nil, err
	}
	if fromDefault || (arg.Kind() == runtime.KindNull) {
		if len(choices) == 0 {
			return runtime.Null, nil
		}
		return runtime.StringScalar(choices[0]), nil
	}
	wanted, err := runtime.AsStrings(arg)
	if err != nil || arg.Kind() != runtime.KindCharacter {
		return nil, runtime.Errorf("'arg' must be NULL or a character vector")
	}
	if !several && len(wanted) != 1 {
		if sameStrings(wanted, choices) {
			return runtime.StringScalar(choices[0]), nil
		}
		return nil, runtime.Errorf("'arg' must be of length 1")
	}
	var out []string
	for _, w := range wanted {
		found := -1
		for k, ch := range choices {
			if ch == w {
				found = k
				break
			}
			if strings.HasPrefix(ch, w) && w != "" {
				if found >= 0 {
					found = -2
					break
				}
				found = k
			}
		}
		if found < 0 {
			quoted := make([]string, len(choices))
			for k, ch := range choices {
				quoted[k] = "“" + ch + "”"
			}
			return nil, runtime.Errorf("'arg' should be one of %s", strings.Join(quoted, ", "))
		}
		out = append(out, choices[found])
	}
	return runtime.StringVector(out...), nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

func builtinDoCall(c *CallContext) (runtime.Value, error) {
	what, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	name := "FUN"
	if s, ok := runtime.AsStringScalar(what); ok && what.Kind() == runtime.KindCharacter {
		name = s
	}
	fn, err := c.matchFunction(what)
	if err != nil {
		return nil, err
	}
	argsVal, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, err
	}
	env, err := c.envArg(3)
	if err != nil {
		return nil, err
	}
	var args []Arg
	switch list := argsVal.(type) {
	case *runtime.NullValue:
	case *runtime.ListValue:
		names := runtime.Names(list)
		for k, v := range list.Data {
			a := Arg{Value: v}
			if names != nil && !names.Data[k].NA {
				a.Name = names.Data[k].Val
			}
			args = append(args, a)
		}
	case runtime.Vector:
		names := runtime.Names(list)
		for k := 0; k < list.Len(); k++ {
			a := Arg{Value: list.Select([]int{k})}
			if names != nil && !names.Data[k].NA {
				a.Name = names.Data[k].Val
			}
			args = append(args, a)
		}
	default:
		return nil, runtime.Errorf("second argument must be a list")
	}
	c.Interp.visible = true
	return c.Interp.callFunction(fn, args, syntheticCall(name, fn, args), env)
}

func builtinRecall(c *CallContext) (runtime.Value, error) {
	frame, err := c.frameOf()
	if err != nil {
		return nil, runtime.Errorf("'Recall' called from outside a closure")
	}
	return c.Interp.callFunction(frame.fn, c.Dots, nil, frame.callerEnv)
}

// dispatchObject finds the object a generic dispatches on: the first
// argument of the generic's frame.
func (i *Interpreter) dispatchObject(frame *callFrame) (runtime.Value, error) {
	fn, ok := frame.fn.(*runtime.ClosureValue)
	if !ok || len(fn.Params) == 0 {
		return runtime.Null, nil
	}
	name := fn.Params[0].Name
	if name == "..." {
		dots, err := i.lookupDots(frame.env)
		if err != nil || len(dots.Entries) == 0 {
			return runtime.Null, err
		}
		return i.resolveBinding("..1", dots.Entries[0].Value)
	}
	return i.evaluateSymbol(name, frame.env)
}

func builtinUseMethod(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	generic, err := c.stringArg(0, "")
	if err != nil || generic == "" {
		return nil, runtime.Errorf("'generic' argument must be a character string")
	}
	frame := i.frameFor(c.Env)
	if frame == nil {
		return nil, runtime.Errorf("UseMethod called from outside a function")
	}
	obj, err := c.Arg(1)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		if obj, err = i.dispatchObject(frame); err != nil {
			return nil, err
		}
	}
	classes := implicitClass(obj)
	res, found, err := i.dispatchMethod(generic, classes, obj, frame, frame.args)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, runtime.Errorf("no applicable method for '%s' applied to an object of class \"%s\"", generic, classDescription(classes))
	}
	return nil, &returnSignal{env: frame.env, value: res}
}

func classDescription(classes []string) string {
	if len(classes) == 1 {
		return classes[0]
	}
	quoted := make([]string, len(classes))
	for k, cls := range classes {
		quoted[k] = "'" + cls + "'"
	}
	return "c(" + strings.Join(quoted, ", ") + ")"
}

// dispatchMethod calls the first generic.class method along classes, then
// generic.default. found is false when neither exists.
func (i *Interpreter) dispatchMethod(generic string, classes []string, obj runtime.Value, frame *callFrame, args []Arg) (runtime.Value, bool, error) {
	lookup := func(name string) (runtime.Value, error) {
		fn, err := i.lookupFunction(name, frame.env)
		if fn == nil && err == nil && frame.callerEnv != nil {
			fn, err = i.lookupFunction(name, frame.callerEnv)
		}
		return fn, err
	}
	candidates := append(append([]string(nil), classes...), "default")
	for k, cls := range candidates {
		fn, err := lookup(generic + "." + cls)
		if err != nil {
			return nil, true, err
		}
		if fn == nil {
			continue
		}
		rest := []string{}
		if k < len(classes) {
			rest = classes[k+1:]
		}
		info := &dispatchInfo{generic: generic, classes: rest, object: obj}
		i.logger.Debug().Str("generic", generic).Str("class", cls).Msg("dispatching S3 method")
		switch f := fn.(type) {
		case *runtime.ClosureValue:
			res, err := i.applyClosure(f, args, frame.call, frame.callerEnv, info)
			return res, true, err
		case *Builtin:
			res, err := i.callDispatchedBuiltin(f, args, frame.call, frame.callerEnv)
			return res, true, err
		}
	}
	return nil, false, nil
}

// callDispatchedBuiltin runs an internal default method without letting it
// dispatch again.
func (i *Interpreter) callDispatchedBuiltin(b *Builtin, args []Arg, call ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if !b.Special {
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
	return i.callBuiltinContext(&CallContext{Interp: i, Call: call, Env: env, builtin: b, dispatched: true}, args)
}

func builtinNextMethod(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	frame := i.frameFor(c.Env)
	if frame == nil || frame.dispatch == nil {
		return nil, runtime.Errorf("NextMethod called from outside a method dispatch")
	}
	info := frame.dispatch
	args := append(append([]Arg(nil), frame.args...), c.Dots...)
	res, found, err := i.dispatchMethod(info.generic, info.classes, info.object, frame, args)
	if err != nil || found {
		return res, err
	}
	fn, err := i.lookupFunction(info.generic, i.base)
	if err != nil {
		return nil, err
	}
	if b, ok := fn.(*Builtin); ok {
		return i.callDispatchedBuiltin(b, args, frame.call, frame.callerEnv)
	}
	return nil, runtime.Errorf("no more methods for '%s'", info.generic)
}

func builtinSwitch(c *CallContext) (runtime.Value, error) {
	sel, err := c.Require(0)
	if err != nil {
		return nil, runtime.Errorf("'EXPR' is missing")
	}
	if runtime.Length(sel) != 1 {
		return nil, runtime.Errorf("EXPR must be a length 1 vector")
	}
	pick := -1
	if s, ok := sel.(*runtime.CharacterVector); ok {
		defaults := 0
		for _, d := range c.Dots {
			if d.Name == "" {
				defaults++
			}
		}
		if defaults > 1 {
			return nil, runtime.Errorf("duplicate 'switch' defaults")
		}
		for k, d := range c.Dots {
			if !s.Data[0].NA && d.Name == s.Data[0].Val {
				pick = k
				break
			}
		}
		if pick < 0 {
			for k, d := range c.Dots {
				if d.Name == "" {
					pick = k
				}
			}
		}
		for pick >= 0 && pick < len(c.Dots) && isMissingValue(c.Dots[pick].Value) {
			pick++
		}
		if pick >= len(c.Dots) {
			pick = -1
		}
	} else {
		n, err := runtime.AsIntScalar(sel)
		if err != nil {
			return nil, err
		}
		if n != runtime.NAInteger && n >= 1 && int(n) <= len(c.Dots) {
			pick = int(n) - 1
		}
	}
	if pick < 0 {
		c.Invisible()
		return runtime.Null, nil
	}
	if isMissingValue(c.Dots[pick].Value) {
		return nil, runtime.Errorf("empty alternative in numeric switch")
	}
	c.Interp.visible = true
	return c.Force(c.Dots[pick].Value)
}

func builtinNamespace(c *CallContext) (runtime.Value, error) {
	if len(c.Args) != 2 {
		return nil, runtime.Errorf("bad namespace reference")
	}
	pkg, err := memberName(c.Args[0])
	if err != nil {
		return nil, err
	}
	name, err := memberName(c.Args[1])
	if err != nil {
		return nil, err
	}
	switch pkg {
	case "base", "stats", "utils", "methods":
	default:
		return nil, runtime.Errorf("there is no package called ‘%s’", pkg)
	}
	v, ok := c.Interp.base.GetLocal(name)
	if !ok {
		return nil, runtime.Errorf("'%s' is not an exported object from 'namespace:%s'", name, pkg)
	}
	return v, nil
}

func builtinBody(c *CallContext) (runtime.Value, error) {
	fn, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if closure, ok := fn.(*runtime.ClosureValue); ok {
		return exprValue(closure.Body), nil
	}
	return runtime.Null, nil
}

func builtinFormals(c *CallContext) (runtime.Value, error) {
	fn, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if s, ok := fn.(*runtime.CharacterVector); ok && s.Len() == 1 {
		if fn, err = c.matchFunction(s); err != nil {
			return nil, err
		}
	}
	closure, ok := fn.(*runtime.ClosureValue)
	if !ok || len(closure.Params) == 0 {
		return runtime.Null, nil
	}
	vals := make([]runtime.Value, len(closure.Params))
	names := make([]string, len(closure.Params))
	for k, p := range closure.Params {
		vals[k] = exprValue(p.Default)
		names[k] = p.Name
	}
	list := runtime.NewList(vals)
	runtime.SetAttrRaw(list, "names", runtime.StringVector(names...))
	return list, nil
}

func builtinDotsLength(c *CallContext) (runtime.Value, error) {
	dots, err := c.Interp.lookupDots(c.Env)
	if err != nil {
		return nil, err
	}
	return runtime.IntScalar(len(dots.Entries)), nil
}

func builtinDotsElt(c *CallContext) (runtime.Value, error) {
	n, err := c.intArg(0, 0)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, runtime.Errorf("indexing '...' with non-positive index %d", n)
	}
	return c.Interp.dotsElement(c.Env, n)
}

func builtinAsSymbol(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if sym, ok := v.(*runtime.SymbolValue); ok {
		return sym, nil
	}
	s, ok := runtime.AsStringScalar(v)
	if !ok || s == "" {
		return nil, runtime.Errorf("invalid type/length (symbol/%d) in vector allocation", runtime.Length(v))
	}
	return &runtime.SymbolValue{Name: s}, nil
}

func builtinMakeCall(c *CallContext) (runtime.Value, error) {
	name, err := c.stringArg(0, "")
	if err != nil || name == "" {
		return nil, runtime.Errorf("first argument must be a character string")
	}
	vals := []runtime.Value{&runtime.SymbolValue{Name: name}}
	names := []string{""}
	for _, d := range c.Dots {
		v, err := c.Force(d.Value)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		names = append(names, d.Name)
	}
	list := runtime.NewList(vals)
	runtime.SetAttrRaw(list, "names", runtime.StringVector(names...))
	return listToCall(list)
}

func builtinAsCall(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case *runtime.LanguageValue:
		return x, nil
	case *runtime.ListValue:
		return listToCall(x)
	}
	return nil, runtime.Errorf("invalid argument list")
}
