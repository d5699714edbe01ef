package interpreter

import (
	"os"
	"sort"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installEnvironmentBuiltins() {
	i.def("environment", "fun", builtinEnvironment)
	i.def("environment<-", "fun, value", builtinSetEnvironment)
	i.def("new.env", "hash, parent, size", builtinNewEnv)
	i.def("globalenv", "", func(c *CallContext) (runtime.Value, error) { return c.Interp.global, nil })
	i.def("emptyenv", "", func(c *CallContext) (runtime.Value, error) { return c.Interp.empty, nil })
	i.def("baseenv", "", func(c *CallContext) (runtime.Value, error) { return c.Interp.base, nil })
	i.def("parent.frame", "n", builtinParentFrame)
	i.def("parent.env", "env", builtinParentEnv)
	i.def("environmentName", "env", builtinEnvironmentName)
	i.invisibleDef("assign", "x, value, pos, envir, inherits, immediate", builtinAssign)
	i.def("get", "x, pos, envir, mode, inherits", builtinGet(false))
	i.def("get0", "x, envir, mode, inherits, ifnotfound", builtinGet(true))
	i.def("mget", "x, envir", builtinMget)
	i.def("exists", "x, where, envir, frame, mode, inherits", builtinExists)
	i.special("rm", "..., list, pos, envir, inherits", builtinRm).Visibility = VisibleOff
	i.def("ls", "name, envir, all.names, sorted", builtinLs)
	i.def("lockBinding", "sym, env", func(*CallContext) (runtime.Value, error) { return runtime.Null, nil })
	i.def("options", "...", builtinOptions)
	i.def("getOption", "x, default", builtinGetOption)
	i.def("Sys.getenv", "x, unset", builtinSysGetenv)
}

func builtinEnvironment(c *CallContext) (runtime.Value, error) {
	fn, err := c.Arg(0)
	if err != nil {
		return nil, err
	}
	switch f := fn.(type) {
	case nil, *runtime.NullValue:
		return c.Env, nil
	case *runtime.ClosureValue:
		return f.Env, nil
	}
	return runtime.Null, nil
}

func builtinSetEnvironment(c *CallContext) (runtime.Value, error) {
	fn, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	value, err := c.Require(1)
	if err != nil {
		return nil, err
	}
	closure, ok := fn.(*runtime.ClosureValue)
	env, isEnv := value.(*runtime.Environment)
	if !ok || !isEnv {
		return nil, runtime.Errorf("replacement object is not an environment")
	}
	out := c.Mutable(closure).(*runtime.ClosureValue)
	out.Env = env
	return out, nil
}

func builtinNewEnv(c *CallContext) (runtime.Value, error) {
	parent, err := c.envArg(1)
	if err != nil {
		return nil, err
	}
	return runtime.NewEnvironment(parent), nil
}

func builtinParentFrame(c *CallContext) (runtime.Value, error) {
	n, err := c.intArg(0, 1)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, runtime.Errorf("invalid 'n' value")
	}
	env := c.Env
	for ; n > 0; n-- {
		frame := c.Interp.frameFor(env)
		if frame == nil {
			return c.Interp.global, nil
		}
		env = frame.callerEnv
	}
	return env, nil
}

func builtinParentEnv(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	env, ok := v.(*runtime.Environment)
	if !ok {
		return nil, runtime.Errorf("argument is not an environment")
	}
	if env.Parent() == nil {
		return nil, runtime.Errorf("the empty environment has no parent")
	}
	return env.Parent(), nil
}

func builtinEnvironmentName(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if env, ok := v.(*runtime.Environment); ok {
		return runtime.StringScalar(env.Name()), nil
	}
	return runtime.StringScalar(""), nil
}

func builtinAssign(c *CallContext) (runtime.Value, error) {
	name, err := c.stringArg(0, "")
	if err != nil || name == "" {
		return nil, runtime.Errorf("invalid first argument")
	}
	value, err := c.Require(1)
	if err != nil {
		return nil, err
	}
	env, err := c.scopeArg(2, 3)
	if err != nil {
		return nil, err
	}
	inherits, err := c.flag(4, false)
	if err != nil {
		return nil, err
	}
	if inherits {
		if _, owner, ok := env.Lookup(name); ok && !owner.Locked() {
			env = owner
		}
	}
	if env.Locked() {
		return nil, runtime.Errorf("cannot add bindings to a locked environment")
	}
	env.Define(name, value)
	return value, nil
}

// findBinding looks name up for get/exists, optionally only in env itself
// and optionally only accepting functions.
func (c *CallContext) findBinding(name string, env *runtime.Environment, mode string, inherits bool) (runtime.Value, bool, error) {
	if mode == "function" {
		if !inherits {
			v, ok := env.GetLocal(name)
			if ok && runtime.IsFunction(v) {
				return v, true, nil
			}
			return nil, false, nil
		}
		fn, err := c.Interp.lookupFunction(name, env)
		return fn, fn != nil, err
	}
	var (
		v  runtime.Value
		ok bool
	)
	if inherits {
		v, _, ok = env.Lookup(name)
	} else {
		v, ok = env.GetLocal(name)
	}
	if !ok {
		return nil, false, nil
	}
	if p, isPromise := v.(*runtime.Promise); isPromise {
		forced, err := c.Interp.forcePromise(p)
		return forced, true, err
	}
	if mode != "any" && mode != "" && modeOf(v) != mode {
		return nil, false, nil
	}
	return v, true, nil
}

func builtinGet(orNull bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		name, err := c.stringArg(0, "")
		if err != nil || name == "" {
			return nil, runtime.Errorf("invalid first argument")
		}
		envIdx, modeIdx, inhIdx := 2, 3, 4
		if orNull {
			envIdx, modeIdx, inhIdx = 1, 2, 3
		}
		env, err := c.scopeArg(1, envIdx)
		if err != nil {
			return nil, err
		}
		mode, err := c.stringArg(modeIdx, "any")
		if err != nil {
			return nil, err
		}
		inherits, err := c.flag(inhIdx, true)
		if err != nil {
			return nil, err
		}
		v, ok, err := c.findBinding(name, env, mode, inherits)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
		if orNull {
			return c.ArgOr(4, runtime.Null)
		}
		if mode == "function" {
			return nil, runtime.Errorf("object '%s' of mode 'function' was not found", name)
		}
		return nil, &runtime.UnboundSymbolError{Name: name}
	}
}

func builtinMget(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	names, err := runtime.AsStrings(v)
	if err != nil {
		return nil, err
	}
	env, err := c.envArg(1)
	if err != nil {
		return nil, err
	}
	vals := make([]runtime.Value, len(names))
	for k, name := range names {
		val, ok, err := c.findBinding(name, env, "any", false)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, runtime.Errorf("value for '%s' not found", name)
		}
		vals[k] = val
	}
	out := runtime.NewList(vals)
	runtime.SetAttrRaw(out, "names", runtime.StringVector(names...))
	return out, nil
}

func builtinExists(c *CallContext) (runtime.Value, error) {
	name, err := c.stringArg(0, "")
	if err != nil {
		return nil, err
	}
	env, err := c.scopeArg(1, 2)
	if err != nil {
		return nil, err
	}
	mode, err := c.stringArg(4, "any")
	if err != nil {
		return nil, err
	}
	inherits, err := c.flag(5, true)
	if err != nil {
		return nil, err
	}
	var found bool
	if mode == "any" {
		if inherits {
			_, _, found = env.Lookup(name)
		} else {
			found = env.Has(name)
		}
	} else {
		_, found, err = c.findBinding(name, env, mode, inherits)
		if err != nil {
			return nil, err
		}
	}
	return runtime.LogicalScalar(found), nil
}

func builtinRm(c *CallContext) (runtime.Value, error) {
	var names []string
	for _, d := range c.Dots {
		switch e := d.Expr.(type) {
		case *ast.Identifier:
			names = append(names, e.Name)
		case *ast.StringLiteral:
			names = append(names, e.Value)
		default:
			return nil, runtime.Errorf("... must contain names or character strings")
		}
	}
	if c.Has(1) {
		v, err := c.Arg(1)
		if err != nil {
			return nil, err
		}
		more, err := runtime.AsStrings(v)
		if err != nil {
			return nil, runtime.Errorf("invalid 'list' argument")
		}
		names = append(names, more...)
	}
	env, err := c.envArg(3)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if !env.Remove(name) {
			if err := c.Warn("object '%s' not found", name); err != nil {
				return nil, err
			}
		}
	}
	return runtime.Null, nil
}

func builtinLs(c *CallContext) (runtime.Value, error) {
	env, err := c.envArg(1)
	if err != nil {
		return nil, err
	}
	if c.Has(0) {
		if env, err = c.envArg(0); err != nil {
			return nil, err
		}
	}
	all, err := c.flag(2, false)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range env.Keys() {
		if !all && len(k) > 0 && k[0] == '.' {
			continue
		}
		out = append(out, k)
	}
	sort.SliceStable(out, func(a, b int) bool { return CollateStrings(out[a], out[b]) < 0 })
	return runtime.StringVector(out...), nil
}

// optionValue reads one entry of options().
func (i *Interpreter) optionValue(name string) runtime.Value {
	switch name {
	case "digits":
		return runtime.IntScalar(i.options.Digits)
	case "width":
		return runtime.IntScalar(i.options.Width)
	case "warn":
		return runtime.IntScalar(i.options.Warn)
	}
	if v, ok := i.extra[name]; ok {
		return v
	}
	return runtime.Null
}

func (i *Interpreter) setOption(name string, v runtime.Value) error {
	switch name {
	case "digits", "width", "warn":
		n, err := runtime.AsIntScalar(v)
		if err != nil || n == runtime.NAInteger {
			return runtime.Errorf("invalid '%s' parameter", name)
		}
		switch name {
		case "digits":
			if n < 1 || n > 22 {
				return runtime.Errorf("invalid 'digits' parameter, allowed 1...22")
			}
			i.options.Digits = int(n)
		case "width":
			if n < 10 || n > 10000 {
				return runtime.Errorf("invalid 'width' parameter, allowed 10...10000")
			}
			i.options.Width = int(n)
		default:
			i.options.Warn = int(n)
		}
		return nil
	}
	if v.Kind() == runtime.KindNull {
		delete(i.extra, name)
		return nil
	}
	runtime.MarkShared(v)
	i.extra[name] = v
	return nil
}

func builtinOptions(c *CallContext) (runtime.Value, error) {
	i := c.Interp
	if len(c.Dots) == 0 {
		names := []string{"digits", "warn", "width"}
		for k := range i.extra {
			names = append(names, k)
		}
		sort.Strings(names)
		vals := make([]runtime.Value, len(names))
		for k, n := range names {
			vals[k] = i.optionValue(n)
		}
		out := runtime.NewList(vals)
		runtime.SetAttrRaw(out, "names", runtime.StringVector(names...))
		return out, nil
	}
	var names []string
	var vals []runtime.Value
	setting := false
	for _, d := range c.Dots {
		v, err := c.Force(d.Value)
		if err != nil {
			return nil, err
		}
		if d.Name == "" {
			if list, ok := v.(*runtime.ListValue); ok {
				ln := runtime.Names(list)
				for k, elem := range list.Data {
					if ln == nil || ln.Data[k].NA {
						continue
					}
					names = append(names, ln.Data[k].Val)
					vals = append(vals, i.optionValue(ln.Data[k].Val))
					if err := i.setOption(ln.Data[k].Val, elem); err != nil {
						return nil, err
					}
					setting = true
				}
				continue
			}
			keys, err := runtime.AsStrings(v)
			if err != nil {
				return nil, runtime.Errorf("invalid argument")
			}
			for _, key := range keys {
				names = append(names, key)
				vals = append(vals, i.optionValue(key))
			}
			continue
		}
		names = append(names, d.Name)
		vals = append(vals, i.optionValue(d.Name))
		if err := i.setOption(d.Name, v); err != nil {
			return nil, err
		}
		setting = true
	}
	out := runtime.NewList(vals)
	runtime.SetAttrRaw(out, "names", runtime.StringVector(names...))
	if setting {
		c.Invisible()
	}
	return out, nil
}

func builtinGetOption(c *CallContext) (runtime.Value, error) {
	name, err := c.stringArg(0, "")
	if err != nil {
		return nil, err
	}
	v := c.Interp.optionValue(name)
	if v.Kind() == runtime.KindNull {
		return c.ArgOr(1, runtime.Null)
	}
	return v, nil
}

func builtinSysGetenv(c *CallContext) (runtime.Value, error) {
	name, err := c.stringArg(0, "")
	if err != nil {
		return nil, err
	}
	unset, err := c.stringArg(1, "")
	if err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return runtime.StringScalar(v), nil
	}
	return runtime.StringScalar(unset), nil
}
