package interpreter

import (
	"strings"

	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installAttributeBuiltins() {
	i.def("names", "x", builtinNames)
	i.def("names<-", "x, value", attrReplacement("names"))
	i.def("dim", "x", attrGetter("dim"))
	i.def("dim<-", "x, value", attrReplacement("dim"))
	i.def("dimnames", "x", attrGetter("dimnames"))
	i.def("dimnames<-", "x, value", attrReplacement("dimnames"))
	i.def("levels<-", "x, value", attrReplacement("levels"))
	i.def("oldClass", "x", attrGetter("class"))
	i.def("oldClass<-", "x, value", attrReplacement("class"))
	i.def("comment", "x", attrGetter("comment"))
	i.def("attr", "x, which, exact", builtinAttr)
	i.def("attr<-", "x, which, value", builtinSetAttr)
	i.def("attributes", "x", builtinAttributes)
	i.def("attributes<-", "x, value", builtinSetAttributes)
	i.def("structure", ".Data, ...", builtinStructure)
	i.def("class", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return runtime.StringVector(explicitClass(x)...), nil
	})
	i.def("class<-", "x, value", builtinSetClass)
	i.def("inherits", "x, what, which", builtinInherits)
	i.def("unclass", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		if runtime.GetAttr(x, "class") == nil {
			return x, nil
		}
		out := runtime.Duplicate(x).(runtime.Attributed)
		runtime.SetAttrRaw(out, "class", runtime.Null)
		return out, nil
	})
	i.def("rownames", "x", dimnamesGetter(0))
	i.def("colnames", "x", dimnamesGetter(1))
	i.def("rownames<-", "x, value", dimnamesSetter(0))
	i.def("colnames<-", "x, value", dimnamesSetter(1))
}

func builtinNames(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	switch v := x.(type) {
	case *runtime.Environment:
		return runtime.StringVector(v.Keys()...), nil
	case *runtime.LanguageValue:
		list := languageList(v)
		return attrOrNull(list, "names"), nil
	}
	if names := runtime.Names(x); names != nil {
		return names, nil
	}
	if dims := runtime.Dim(x); len(dims) == 1 {
		if dn := dimnamesList(x); dn != nil {
			return dn.Data[0], nil
		}
	}
	return runtime.Null, nil
}

func attrGetter(name string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return attrOrNull(x, name), nil
	}
}

// setAttribute applies a validated attribute change to a modifiable copy
// of x.
func (c *CallContext) setAttribute(x runtime.Value, name string, value runtime.Value) (runtime.Value, error) {
	if x.Kind() == runtime.KindNull {
		if value.Kind() == runtime.KindNull {
			return runtime.Null, nil
		}
		if name == "names" || name == "class" {
			return runtime.Null, nil
		}
	}
	if _, ok := x.(runtime.Attributed); !ok {
		return nil, runtime.Errorf("cannot set attribute on a %s", x.Kind())
	}
	out := c.Mutable(x)
	if env, isEnv := out.(*runtime.Environment); isEnv && name != "class" {
		return nil, runtime.Errorf("cannot set '%s' attribute on an environment", name)
	} else if isEnv {
		if err := runtime.SetAttr(env, name, value); err != nil {
			return nil, err
		}
		return env, nil
	}
	if name == "names" && value.Kind() != runtime.KindNull && runtime.Inherits(value, "factor") {
		value = factorLabels(value.(runtime.Vector))
	}
	if err := runtime.SetAttr(out, name, value); err != nil {
		return nil, err
	}
	return out, nil
}

func attrReplacement(name string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		value, err := c.ArgOr(1, runtime.Null)
		if err != nil {
			return nil, err
		}
		return c.setAttribute(x, name, value)
	}
}

func builtinSetClass(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	value, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, err
	}
	if cls, ok := value.(*runtime.CharacterVector); ok && cls.Len() == 1 && !runtime.HasAttributes(x) {
		switch {
		case cls.Data[0].Val == "numeric" && x.Kind() == runtime.KindDouble,
			cls.Data[0].Val == x.Kind().String():
			return x, nil
		case cls.Data[0].Val == "function" && runtime.IsFunction(x):
			return x, nil
		}
	}
	return c.setAttribute(x, "class", value)
}

// matchAttrName resolves which against the attribute names, allowing a
// unique partial match unless exact is set.
func matchAttrName(x runtime.Value, which string, exact bool) string {
	a, ok := x.(runtime.Attributed)
	if !ok {
		return which
	}
	names := a.Attributes().Names()
	for _, n := range names {
		if n == which {
			return n
		}
	}
	if exact {
		return which
	}
	found := ""
	for _, n := range names {
		if strings.HasPrefix(n, which) {
			if found != "" {
				return which
			}
			found = n
		}
	}
	if found == "" {
		return which
	}
	return found
}

func builtinAttr(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	which, err := c.stringArg(1, "")
	if err != nil || which == "" {
		return nil, runtime.Errorf("exactly one attribute 'which' must be given")
	}
	exact, err := c.flag(2, false)
	if err != nil {
		return nil, err
	}
	name := matchAttrName(x, which, exact)
	if name == "names" {
		return builtinNames(c)
	}
	return attrOrNull(x, name), nil
}

func builtinSetAttr(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	which, err := c.stringArg(1, "")
	if err != nil || which == "" {
		return nil, runtime.Errorf("exactly one attribute 'which' must be given")
	}
	value, err := c.ArgOr(2, runtime.Null)
	if err != nil {
		return nil, err
	}
	return c.setAttribute(x, which, value)
}

func builtinAttributes(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	a, ok := x.(runtime.Attributed)
	if !ok || a.Attributes().Len() == 0 {
		return runtime.Null, nil
	}
	var names []string
	var vals []runtime.Value
	if n := a.Attributes().Get("names"); n != nil {
		names = append(names, "names")
		vals = append(vals, n)
	}
	a.Attributes().Each(func(name string, v runtime.Value) {
		if name != "names" {
			names = append(names, name)
			vals = append(vals, v)
		}
	})
	out := runtime.NewList(vals)
	runtime.SetAttrRaw(out, "names", runtime.StringVector(names...))
	return out, nil
}

// applyAttributes sets each named element of list on out, dim first so that
// dimnames can be validated against it.
func (c *CallContext) applyAttributes(out runtime.Value, names []string, vals []runtime.Value) (runtime.Value, error) {
	var err error
	for pass := 0; pass < 2; pass++ {
		for k, name := range names {
			if (name == "dim") != (pass == 0) {
				continue
			}
			if name == "" {
				return nil, runtime.Errorf("attributes must be named")
			}
			if out, err = c.setAttribute(out, name, vals[k]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func builtinSetAttributes(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	value, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, err
	}
	out := c.Mutable(x)
	if a, ok := out.(runtime.Attributed); ok {
		a.SetAttributes(nil)
	}
	if value.Kind() == runtime.KindNull {
		return out, nil
	}
	list, ok := value.(*runtime.ListValue)
	if !ok {
		return nil, runtime.Errorf("attributes must be a list or NULL")
	}
	names := runtime.Names(list)
	if names == nil {
		return nil, runtime.Errorf("attributes must be named")
	}
	c.replacing = true
	return c.applyAttributes(out, names.Strings(), list.Data)
}

func builtinStructure(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(c.Dots))
	vals := make([]runtime.Value, len(c.Dots))
	for k, a := range c.Dots {
		names[k] = a.Name
		if names[k] == ".Names" {
			names[k] = "names"
		}
		if vals[k], err = c.Force(a.Value); err != nil {
			return nil, err
		}
	}
	return c.applyAttributes(x, names, vals)
}

func builtinInherits(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	whatVal, err := c.Require(1)
	if err != nil {
		return nil, err
	}
	what, ok := whatVal.(*runtime.CharacterVector)
	if !ok {
		return nil, runtime.Errorf("'what' must be a character vector or an object with a nameOfClass() method")
	}
	which, err := c.flag(2, false)
	if err != nil {
		return nil, err
	}
	classes := implicitClass(x)
	if which {
		out := make([]int32, what.Len())
		for k, w := range what.Data {
			for j, cls := range classes {
				if cls == w.Val {
					out[k] = int32(j + 1)
					break
				}
			}
		}
		return runtime.NewIntegerVector(out), nil
	}
	for _, w := range what.Data {
		for _, cls := range classes {
			if cls == w.Val {
				return runtime.LogicalScalar(true), nil
			}
		}
	}
	return runtime.LogicalScalar(false), nil
}

func dimnamesGetter(axis int) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		if dn := dimnamesList(x); dn != nil && axis < len(dn.Data) {
			return dn.Data[axis], nil
		}
		return runtime.Null, nil
	}
}

func dimnamesSetter(axis int) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		value, err := c.ArgOr(1, runtime.Null)
		if err != nil {
			return nil, err
		}
		dims := runtime.Dim(x)
		if len(dims) < 2 {
			return nil, runtime.Errorf("attempt to set '%s' on an object with less than two dimensions", []string{"rownames", "colnames"}[axis])
		}
		parts := make([]runtime.Value, len(dims))
		for k := range parts {
			parts[k] = runtime.Null
		}
		if dn := dimnamesList(x); dn != nil {
			copy(parts, dn.Data)
		}
		parts[axis] = value
		return c.setAttribute(x, "dimnames", runtime.NewList(parts))
	}
}
