package interpreter

import (
	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateAssignment(n *ast.AssignmentExpression, env *runtime.Environment) (runtime.Value, error) {
	value, err := i.evaluateExpression(n.Value, env)
	if err != nil {
		return nil, err
	}
	if err := i.assignTo(n.Target, value, env, n.IsSuper(), n); err != nil {
		return nil, err
	}
	i.visible = false
	return value, nil
}

// assignTo stores value through target, which is a name or a replacement
// call such as names(x)[2].
func (i *Interpreter) assignTo(target ast.Expression, value runtime.Value, env *runtime.Environment, super bool, whole ast.Expression) error {
	switch t := target.(type) {
	case *ast.Identifier:
		i.bind(t.Name, value, env, super)
		return nil
	case *ast.StringLiteral:
		i.bind(t.Value, value, env, super)
		return nil
	case *ast.ParenExpression:
		return i.assignTo(t.Inner, value, env, super, whole)
	case *ast.CallExpression:
		return i.assignReplacement(t, value, env, super, whole)
	}
	return i.raise(whole, runtime.Errorf("invalid assignment target"))
}

func (i *Interpreter) bind(name string, value runtime.Value, env *runtime.Environment, super bool) {
	if super {
		env.AssignSuper(name, value, i.global)
		return
	}
	if cur, ok := env.GetLocal(name); ok && cur == value {
		return
	}
	env.Define(name, value)
}

// assignReplacement evaluates f(x, args) <- value as
// x <- `f<-`(x, args, value = value), recursing while x is itself a call.
func (i *Interpreter) assignReplacement(call *ast.CallExpression, value runtime.Value, env *runtime.Environment, super bool, whole ast.Expression) error {
	name, ok := call.FunctionName()
	if !ok || len(call.Args) == 0 || call.Args[0].Value == nil {
		return i.raise(whole, runtime.Errorf("invalid assignment target"))
	}
	objExpr := call.Args[0].Value
	current, err := i.replacementTarget(objExpr, env, super, whole)
	if err != nil {
		return err
	}

	setter, err := i.lookupFunction(name+"<-", env)
	if err != nil {
		return err
	}
	if setter == nil {
		return i.raise(whole, &runtime.UnboundFunctionError{Name: name + "<-"})
	}

	args := make([]Arg, 0, len(call.Args)+1)
	setterArgs := make([]*ast.Argument, 0, len(call.Args)+1)
	args = append(args, Arg{Name: call.Args[0].Name, Value: current, Expr: objExpr})
	setterArgs = append(setterArgs, &ast.Argument{Value: objExpr})
	for _, a := range call.Args[1:] {
		setterArgs = append(setterArgs, a)
	}
	setterArgs = append(setterArgs, &ast.Argument{Name: "value", Named: true, Value: valueExpr(value)})
	setterCall := ast.NewCallExpression(ast.NewIdentifier(name+"<-"), setterArgs, ast.FormPrefix)

	var result runtime.Value
	switch f := setter.(type) {
	case *Builtin:
		var extra []Arg
		if f.Special {
			extra, err = i.promiseArgs(call.Args[1:], env)
		} else {
			extra, err = i.evalArgs(call.Args[1:], env)
		}
		if err != nil {
			return err
		}
		args = append(args, extra...)
		args = append(args, Arg{Name: "value", Value: value})
		result, err = i.callBuiltinContext(&CallContext{Interp: i, Call: whole, Env: env, builtin: f, replacing: true}, args)
	case *runtime.ClosureValue:
		extra, perr := i.promiseArgs(call.Args[1:], env)
		if perr != nil {
			return perr
		}
		args[0].Value = runtime.NewForcedPromise(objExpr, current)
		args = append(args, extra...)
		args = append(args, Arg{Name: "value", Value: runtime.NewForcedPromise(valueExpr(value), value)})
		result, err = i.applyClosure(f, args, setterCall, env, nil)
	}
	if err != nil {
		return err
	}
	return i.assignTo(objExpr, result, env, super, whole)
}

// replacementTarget fetches the current value of the object being modified,
// duplicating it unless this assignment exclusively owns it.
func (i *Interpreter) replacementTarget(expr ast.Expression, env *runtime.Environment, super bool, whole ast.Expression) (runtime.Value, error) {
	var name string
	switch t := expr.(type) {
	case *ast.Identifier:
		name = t.Name
	case *ast.StringLiteral:
		name = t.Value
	case *ast.ParenExpression:
		return i.replacementTarget(t.Inner, env, super, whole)
	default:
		evalEnv := env
		if super && env.Parent() != nil {
			evalEnv = env.Parent()
		}
		v, err := i.evaluateExpression(expr, evalEnv)
		if err != nil {
			return nil, err
		}
		return runtime.PrepareForMutation(v), nil
	}

	lookupEnv := env
	if super {
		lookupEnv = env.Parent()
	}
	var (
		v     runtime.Value
		owner *runtime.Environment
		ok    bool
	)
	if lookupEnv != nil {
		v, owner, ok = lookupEnv.Lookup(name)
	}
	if !ok {
		return nil, i.raise(i.currentCall(), &runtime.UnboundSymbolError{Name: name})
	}
	if p, isPromise := v.(*runtime.Promise); isPromise {
		forced, err := i.forcePromise(p)
		if err != nil {
			return nil, err
		}
		v = forced
	}
	if _, missing := v.(*runtime.MissingValue); missing {
		return nil, i.raise(i.currentCall(), &runtime.MissingArgumentError{Name: name})
	}
	if runtime.IsShared(v) || (!super && owner != env) {
		return runtime.Duplicate(v), nil
	}
	return v, nil
}
