package interpreter

import (
	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// installBuiltins populates the base environment. It runs once from New,
// before the base environment is locked.
func (i *Interpreter) installBuiltins() {
	i.installOperatorBuiltins()
	i.installConditionBuiltins()
	i.installLanguageBuiltins()
	i.installEnvironmentBuiltins()
	i.installFunctionalBuiltins()
	i.installVectorBuiltins()
	i.installAttributeBuiltins()
	i.installPredicateBuiltins()
	i.installSetBuiltins()
	i.installMathBuiltins()
	i.installStringBuiltins()
	i.installPrintBuiltins()
	for _, name := range []string{"pi", "T", "F", "LETTERS", "letters", "month.name"} {
		i.base.Define(name, baseConstant(name))
	}
}

func baseConstant(name string) runtime.Value {
	switch name {
	case "pi":
		return runtime.DoubleScalar(3.141592653589793)
	case "T":
		return runtime.LogicalScalar(true)
	case "F":
		return runtime.LogicalScalar(false)
	case "LETTERS", "letters":
		out := make([]string, 26)
		base := 'a'
		if name == "LETTERS" {
			base = 'A'
		}
		for k := range out {
			out[k] = string(base + rune(k))
		}
		return runtime.StringVector(out...)
	case "month.name":
		return runtime.StringVector("January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December")
	}
	return runtime.Null
}

// implicitClass is the class vector S3 dispatch uses: the class attribute
// when present, otherwise one derived from dim and the type.
func implicitClass(v runtime.Value) []string {
	if cls := runtime.Class(v); len(cls) > 0 {
		return cls
	}
	var out []string
	switch dims := runtime.Dim(v); {
	case len(dims) == 2:
		out = append(out, "matrix", "array")
	case dims != nil:
		out = append(out, "array")
	}
	switch v.Kind() {
	case runtime.KindInteger:
		return append(out, "integer", "numeric")
	case runtime.KindDouble:
		return append(out, "double", "numeric")
	case runtime.KindClosure, runtime.KindBuiltin:
		return append(out, "function")
	case runtime.KindSymbol:
		return append(out, "name")
	case runtime.KindLanguage:
		return append(out, languageClass(v.(*runtime.LanguageValue)))
	}
	return append(out, v.Kind().String())
}

// explicitClass is what class() reports.
func explicitClass(v runtime.Value) []string {
	if cls := runtime.Class(v); len(cls) > 0 {
		return cls
	}
	switch dims := runtime.Dim(v); {
	case len(dims) == 2:
		return []string{"matrix", "array"}
	case dims != nil:
		return []string{"array"}
	}
	switch v.Kind() {
	case runtime.KindDouble:
		return []string{"numeric"}
	case runtime.KindClosure, runtime.KindBuiltin:
		return []string{"function"}
	case runtime.KindSymbol:
		return []string{"name"}
	case runtime.KindLanguage:
		return []string{languageClass(v.(*runtime.LanguageValue))}
	}
	return []string{v.Kind().String()}
}

func languageClass(v *runtime.LanguageValue) string {
	switch v.Expr.(type) {
	case *ast.IfExpression:
		return "if"
	case *ast.ForLoop:
		return "for"
	case *ast.WhileLoop:
		return "while"
	case *ast.BlockExpression:
		return "{"
	case *ast.ParenExpression:
		return "("
	case *ast.AssignmentExpression:
		return "<-"
	}
	return "call"
}

// dispatchInternal gives classed objects a chance to reach an R-level
// method before an internal generic runs its default code.
func (c *CallContext) dispatchInternal(generic string, x runtime.Value, args []Arg) (runtime.Value, bool, error) {
	if c.dispatched {
		return nil, false, nil
	}
	classes := runtime.Class(x)
	for k, cls := range classes {
		fn, err := c.Interp.lookupFunction(generic+"."+cls, c.Env)
		if err != nil {
			return nil, true, err
		}
		closure, ok := fn.(*runtime.ClosureValue)
		if !ok {
			continue
		}
		info := &dispatchInfo{generic: generic, classes: classes[k+1:], object: x}
		res, err := c.Interp.applyClosure(closure, args, c.Call, c.Env, info)
		return res, true, err
	}
	return nil, false, nil
}

// matchFunction resolves a function argument given as a function or a name.
func (c *CallContext) matchFunction(v runtime.Value) (runtime.Value, error) {
	if runtime.IsFunction(v) {
		return v, nil
	}
	if name, ok := runtime.AsStringScalar(v); ok && v.Kind() == runtime.KindCharacter {
		return c.Interp.findFunction(name, c.Env, c.Call)
	}
	if sym, ok := v.(*runtime.SymbolValue); ok {
		return c.Interp.findFunction(sym.Name, c.Env, c.Call)
	}
	return nil, runtime.Errorf("'%s' is not a function, character or symbol", runtime.DeparseValue(v))
}

// call invokes fn from a builtin, recording call as the frame's call.
func (c *CallContext) call(fn runtime.Value, args []Arg, call ast.Expression) (runtime.Value, error) {
	return c.Interp.callFunction(fn, args, call, c.Env)
}

// intArg reads formal k as an int with a default.
func (c *CallContext) intArg(k int, def int) (int, error) {
	v, err := c.Arg(k)
	if err != nil || v == nil {
		return def, err
	}
	n, err := runtime.AsIntScalar(v)
	if err != nil {
		return 0, err
	}
	if n == runtime.NAInteger {
		return 0, runtime.Errorf("invalid '%s' argument", c.formalName(k))
	}
	return int(n), nil
}

// stringArg reads formal k as a single string with a default.
func (c *CallContext) stringArg(k int, def string) (string, error) {
	v, err := c.Arg(k)
	if err != nil || v == nil {
		return def, err
	}
	s, ok := runtime.AsStringScalar(v)
	if !ok {
		return "", runtime.Errorf("invalid '%s' argument", c.formalName(k))
	}
	return s, nil
}

func (c *CallContext) formalName(k int) string {
	if c.builtin != nil && k < len(c.builtin.Formals) {
		return c.builtin.Formals[k]
	}
	return "x"
}

// envArg reads formal k as an environment, defaulting to the calling one.
func (c *CallContext) envArg(k int) (*runtime.Environment, error) {
	v, err := c.Arg(k)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return c.Env, nil
	}
	env, ok := v.(*runtime.Environment)
	if !ok {
		return nil, runtime.Errorf("invalid '%s' argument", c.formalName(k))
	}
	return env, nil
}

// scopeArg reads the target environment of get/assign/exists: envir when
// supplied, otherwise pos, which may be an environment, -1 for the calling
// frame or 1 for the global environment.
func (c *CallContext) scopeArg(posIdx, envIdx int) (*runtime.Environment, error) {
	if c.Has(envIdx) || !c.Has(posIdx) {
		return c.envArg(envIdx)
	}
	v, err := c.Arg(posIdx)
	if err != nil {
		return nil, err
	}
	if env, ok := v.(*runtime.Environment); ok {
		return env, nil
	}
	n, err := runtime.AsIntScalar(v)
	if err != nil {
		return nil, runtime.Errorf("invalid '%s' argument", c.formalName(posIdx))
	}
	switch n {
	case -1:
		return c.Env, nil
	case 1:
		return c.Interp.global, nil
	}
	return nil, runtime.Errorf("invalid '%s' argument", c.formalName(posIdx))
}
