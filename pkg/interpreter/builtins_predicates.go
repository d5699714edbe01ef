package interpreter

import (
	"math"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installPredicateBuiltins() {
	typePredicates := map[string]func(runtime.Value) bool{
		"is.null":        func(v runtime.Value) bool { return v.Kind() == runtime.KindNull },
		"is.function":    runtime.IsFunction,
		"is.primitive":   func(v runtime.Value) bool { return v.Kind() == runtime.KindBuiltin },
		"is.environment": func(v runtime.Value) bool { return v.Kind() == runtime.KindEnvironment },
		"is.list":        func(v runtime.Value) bool { return v.Kind() == runtime.KindList },
		"is.atomic":      func(v runtime.Value) bool { return v.Kind().IsAtomic() },
		"is.symbol":      func(v runtime.Value) bool { return v.Kind() == runtime.KindSymbol },
		"is.name":        func(v runtime.Value) bool { return v.Kind() == runtime.KindSymbol },
		"is.call":        func(v runtime.Value) bool { return v.Kind() == runtime.KindLanguage },
		"is.language": func(v runtime.Value) bool {
			return v.Kind() == runtime.KindLanguage || v.Kind() == runtime.KindSymbol
		},
		"is.numeric": func(v runtime.Value) bool {
			k := v.Kind()
			return (k == runtime.KindInteger || k == runtime.KindDouble) && !runtime.Inherits(v, "factor")
		},
		"is.double":    func(v runtime.Value) bool { return v.Kind() == runtime.KindDouble },
		"is.integer":   func(v runtime.Value) bool { return v.Kind() == runtime.KindInteger },
		"is.character": func(v runtime.Value) bool { return v.Kind() == runtime.KindCharacter },
		"is.logical":   func(v runtime.Value) bool { return v.Kind() == runtime.KindLogical },
		"is.complex":   func(v runtime.Value) bool { return v.Kind() == runtime.KindComplex },
		"is.raw":       func(v runtime.Value) bool { return v.Kind() == runtime.KindRaw },
		"is.factor":    func(v runtime.Value) bool { return runtime.Inherits(v, "factor") },
		"is.object":    func(v runtime.Value) bool { return runtime.GetAttr(v, "class") != nil },
		"is.matrix":    func(v runtime.Value) bool { return len(runtime.Dim(v)) == 2 },
		"is.array":     func(v runtime.Value) bool { return runtime.Dim(v) != nil },
	}
	for name, pred := range typePredicates {
		pred := pred
		i.def(name, "x", func(c *CallContext) (runtime.Value, error) {
			x, err := c.Require(0)
			if err != nil {
				return nil, err
			}
			return runtime.LogicalScalar(pred(x)), nil
		})
	}
	i.def("is.vector", "x, mode", builtinIsVector)
	i.def("is.na", "x", elementPredicate(func(x float64) bool { return math.IsNaN(x) }, true))
	i.def("is.nan", "x", elementPredicate(func(x float64) bool { return math.IsNaN(x) && !runtime.IsNAReal(x) }, false))
	i.def("is.finite", "x", elementPredicate(func(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }, false))
	i.def("is.infinite", "x", elementPredicate(func(x float64) bool { return math.IsInf(x, 0) }, false))
	i.def("anyNA", "x, recursive", builtinAnyNA)

	for name, kind := range map[string]runtime.Kind{
		"as.logical":   runtime.KindLogical,
		"as.integer":   runtime.KindInteger,
		"as.numeric":   runtime.KindDouble,
		"as.double":    runtime.KindDouble,
		"as.complex":   runtime.KindComplex,
		"as.character": runtime.KindCharacter,
		"as.raw":       runtime.KindRaw,
	} {
		kind := kind
		i.def(name, "x, ...", func(c *CallContext) (runtime.Value, error) {
			x, err := c.ArgOr(0, runtime.Null)
			if err != nil {
				return nil, err
			}
			return c.asKind(x, kind)
		})
	}
	i.def("as.list", "x, ...", builtinAsList)
	i.def("as.vector", "x, mode", builtinAsVector)
	i.def("as.environment", "x", builtinAsEnvironment)
	i.def("as.factor", "x", builtinFactor)
	i.def("typeof", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return runtime.StringScalar(typeOf(x)), nil
	})
	i.def("mode", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return runtime.StringScalar(modeOf(x)), nil
	})
	i.def("storage.mode", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		if runtime.IsFunction(x) {
			return runtime.StringScalar("function"), nil
		}
		return runtime.StringScalar(typeOf(x)), nil
	})
	i.def("identical", "x, y", func(c *CallContext) (runtime.Value, error) {
		x, err := c.ArgOr(0, runtime.Null)
		if err != nil {
			return nil, err
		}
		y, err := c.ArgOr(1, runtime.Null)
		if err != nil {
			return nil, err
		}
		return runtime.LogicalScalar(Identical(x, y)), nil
	})
	i.def("all", "..., na.rm", builtinAllAny(true))
	i.def("any", "..., na.rm", builtinAllAny(false))
	i.def("which", "x, arr.ind, useNames", builtinWhich)
	i.def("which.max", "x", builtinWhichExtreme(true))
	i.def("which.min", "x", builtinWhichExtreme(false))
	i.def("ifelse", "test, yes, no", builtinIfelse)
	i.def("isTRUE", "x", truthTest(1))
	i.def("isFALSE", "x", truthTest(0))
	i.def("stopifnot", "...", builtinStopifnot)
}

func typeOf(v runtime.Value) string {
	if b, ok := v.(*Builtin); ok && b.Special {
		return "special"
	}
	return v.Kind().String()
}

// modeOf is what mode() reports.
func modeOf(v runtime.Value) string {
	switch v.Kind() {
	case runtime.KindInteger, runtime.KindDouble:
		return "numeric"
	case runtime.KindClosure, runtime.KindBuiltin:
		return "function"
	case runtime.KindSymbol, runtime.KindMissing:
		return "name"
	case runtime.KindLanguage:
		if _, paren := v.(*runtime.LanguageValue).Expr.(*ast.ParenExpression); paren {
			return "("
		}
		return "call"
	}
	return v.Kind().String()
}

func builtinIsVector(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	mode, err := c.stringArg(1, "any")
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return runtime.LogicalScalar(false), nil
	}
	if a := vec.Attributes(); a.Len() > 1 || (a.Len() == 1 && a.Get("names") == nil) {
		return runtime.LogicalScalar(false), nil
	}
	switch mode {
	case "any":
		return runtime.LogicalScalar(true), nil
	case "numeric":
		return runtime.LogicalScalar(vec.Kind() == runtime.KindInteger || vec.Kind() == runtime.KindDouble), nil
	}
	return runtime.LogicalScalar(typeOf(vec) == mode || modeOf(vec) == mode), nil
}

// elementPredicate builds is.na and friends: per-element tests returning a
// logical vector carrying names, dim and dimnames. Non-numeric elements are
// NA only when missing.
func elementPredicate(test func(float64) bool, listAware bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		var out []int32
		switch v := x.(type) {
		case *runtime.NullValue:
			out = []int32{}
		case *runtime.DoubleVector:
			out = make([]int32, len(v.Data))
			for k, d := range v.Data {
				out[k] = boolInt(test(d))
			}
		case *runtime.ComplexVector:
			out = make([]int32, len(v.Data))
			for k, z := range v.Data {
				out[k] = boolInt(test(real(z)) || test(imag(z)))
				if c.Name() == "is.finite" {
					out[k] = boolInt(test(real(z)) && test(imag(z)))
				}
			}
		case *runtime.ListValue:
			out = make([]int32, len(v.Data))
			if listAware {
				for k, e := range v.Data {
					if ev, ok := e.(runtime.Vector); ok && ev.Kind().IsAtomic() && ev.Len() == 1 {
						out[k] = boolInt(ev.IsNA(0))
					}
				}
			}
		case runtime.Vector:
			out = make([]int32, v.Len())
			for k := range out {
				switch {
				case listAware:
					out[k] = boolInt(v.IsNA(k))
				case c.Name() == "is.finite":
					out[k] = boolInt(!v.IsNA(k) && v.Kind() != runtime.KindCharacter)
				}
			}
		default:
			if err := c.Warn("%s() applied to non-(list or vector) of type '%s'", c.Name(), x.Kind()); err != nil {
				return nil, err
			}
			return runtime.LogicalScalar(false), nil
		}
		res := runtime.NewLogicalVector(out)
		for _, name := range []string{"names", "dim", "dimnames"} {
			if a := runtime.GetAttr(x, name); a != nil {
				runtime.SetAttrRaw(res, name, a)
			}
		}
		return res, nil
	}
}

func builtinAnyNA(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	recursive, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	return runtime.LogicalScalar(anyNA(x, recursive)), nil
}

func anyNA(x runtime.Value, recursive bool) bool {
	switch v := x.(type) {
	case *runtime.ListValue:
		for _, e := range v.Data {
			if ev, ok := e.(runtime.Vector); ok && ev.Kind().IsAtomic() && ev.Len() == 1 && ev.IsNA(0) {
				return true
			}
			if recursive && anyNA(e, true) {
				return true
			}
		}
	case runtime.Vector:
		for k := 0; k < v.Len(); k++ {
			if v.IsNA(k) {
				return true
			}
		}
	}
	return false
}

// asKind implements the as.<type> family: factors convert through their
// labels or codes, attributes are dropped, lossy conversions warn.
func (c *CallContext) asKind(x runtime.Value, kind runtime.Kind) (runtime.Value, error) {
	if vec, ok := x.(runtime.Vector); ok && runtime.Inherits(x, "factor") {
		if kind == runtime.KindCharacter || kind == runtime.KindList {
			x = factorLabels(vec)
		} else {
			x = runtime.StripAttributes(vec)
		}
	}
	if env, ok := x.(*runtime.Environment); ok && kind == runtime.KindList {
		return environmentList(env), nil
	}
	if lang, ok := x.(*runtime.LanguageValue); ok && kind == runtime.KindList {
		return languageList(lang), nil
	}
	if lang, ok := x.(*runtime.LanguageValue); ok && kind == runtime.KindCharacter {
		parts := languageList(lang).Data
		out := make([]runtime.Str, len(parts))
		for k, p := range parts {
			if sym, isSym := p.(*runtime.SymbolValue); isSym {
				out[k] = runtime.S(sym.Name)
			} else {
				out[k] = runtime.S(runtime.DeparseValue(p))
			}
		}
		return runtime.NewCharacterVector(out), nil
	}
	out, warn, err := runtime.CoerceVector(x, kind)
	if err != nil {
		return nil, err
	}
	if warn != "" {
		if err := c.Warn("%s", warn); err != nil {
			return nil, err
		}
	}
	if kind == runtime.KindList {
		names := runtime.Names(out)
		if out == x {
			out = runtime.Duplicate(out).(runtime.Vector)
		}
		out.SetAttributes(nil)
		if names != nil {
			runtime.SetAttrRaw(out, "names", names)
		}
		return out, nil
	}
	return runtime.StripAttributes(out), nil
}

func environmentList(env *runtime.Environment) *runtime.ListValue {
	keys := env.Keys()
	vals := make([]runtime.Value, len(keys))
	for k, key := range keys {
		vals[k], _ = env.GetLocal(key)
		if p, ok := vals[k].(*runtime.Promise); ok && p.Forced() {
			vals[k] = p.Value()
		}
	}
	out := runtime.NewList(vals)
	if len(keys) > 0 {
		runtime.SetAttrRaw(out, "names", runtime.StringVector(keys...))
	}
	return out
}

func builtinAsList(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	if x.Kind() == runtime.KindNull {
		return runtime.NewList(nil), nil
	}
	return c.asKind(x, runtime.KindList)
}

func builtinAsVector(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	mode, err := c.stringArg(1, "any")
	if err != nil {
		return nil, err
	}
	if mode == "any" {
		switch v := x.(type) {
		case *runtime.ListValue:
			return x, nil
		case runtime.Vector:
			if runtime.Inherits(v, "factor") {
				return factorLabels(runtime.StripAttributes(v)), nil
			}
			return runtime.StripAttributes(v), nil
		}
		return x, nil
	}
	if mode == "symbol" || mode == "name" {
		s, ok := runtime.AsStringScalar(x)
		if !ok {
			return nil, runtime.Errorf("invalid type/length (symbol/%d) in vector allocation", runtime.Length(x))
		}
		return &runtime.SymbolValue{Name: s}, nil
	}
	kind, ok := kindForMode(mode)
	if !ok {
		return nil, runtime.Errorf("vector: cannot make a vector of mode '%s'.", mode)
	}
	return c.asKind(x, kind)
}

func builtinAsEnvironment(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	switch v := x.(type) {
	case *runtime.Environment:
		return v, nil
	case *runtime.ListValue:
		return listEnvironment(v, c.Interp.empty), nil
	case *runtime.CharacterVector:
		switch s, _ := runtime.AsStringScalar(v); s {
		case ".GlobalEnv":
			return c.Interp.global, nil
		case "package:base":
			return c.Interp.base, nil
		}
		return nil, runtime.Errorf("no item called \"%s\" on the search list", runtime.DeparseValue(v))
	case *runtime.IntegerVector, *runtime.DoubleVector:
		n, err := runtime.AsIntScalar(v)
		if err != nil {
			return nil, err
		}
		switch n {
		case 1:
			return c.Interp.global, nil
		case 2:
			return c.Interp.base, nil
		}
		return nil, runtime.Errorf("invalid 'pos' argument")
	}
	return nil, runtime.Errorf("invalid object for 'as.environment'")
}

func builtinAllAny(all bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		naRm, err := c.flag(1, false)
		if err != nil {
			return nil, err
		}
		vals, err := c.Values()
		if err != nil {
			return nil, err
		}
		sawNA := false
		for _, v := range vals {
			if v.Kind() == runtime.KindNull {
				continue
			}
			if k := v.Kind(); k != runtime.KindLogical && k != runtime.KindInteger {
				if k == runtime.KindDouble || k == runtime.KindComplex {
					if err := c.Warn("coercing argument of type '%s' to logical", k); err != nil {
						return nil, err
					}
				} else {
					return nil, runtime.Errorf("invalid 'type' (%s) of argument", k)
				}
			}
			lv, _, err := runtime.CoerceVector(v, runtime.KindLogical)
			if err != nil {
				return nil, err
			}
			for _, b := range lv.(*runtime.LogicalVector).Data {
				switch {
				case b == runtime.NALogical:
					sawNA = true
				case all && b == 0:
					return runtime.LogicalScalar(false), nil
				case !all && b != 0:
					return runtime.LogicalScalar(true), nil
				}
			}
		}
		if sawNA && !naRm {
			return runtime.LogicalNA(), nil
		}
		return runtime.LogicalScalar(all), nil
	}
}

func builtinWhich(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	lv, ok := x.(*runtime.LogicalVector)
	if !ok {
		return nil, runtime.Errorf("argument to 'which' is not logical")
	}
	var idx []int
	for k, b := range lv.Data {
		if b != 0 && b != runtime.NALogical {
			idx = append(idx, k)
		}
	}
	out := positions(idx)
	useNames, err := c.flag(2, true)
	if err != nil {
		return nil, err
	}
	if names := runtime.Names(lv); names != nil && useNames {
		runtime.SetAttrRaw(out, "names", names.Select(idx))
	}
	return out, nil
}

func builtinWhichExtreme(max bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		vec, ok := x.(runtime.Vector)
		if !ok || !isNumericKind(vec.Kind()) && vec.Kind() != runtime.KindLogical {
			return nil, runtime.Errorf("'x' must be numeric")
		}
		data := asDoubles(vec)
		best := -1
		for k, d := range data {
			if math.IsNaN(d) {
				continue
			}
			if best < 0 || (max && d > data[best]) || (!max && d < data[best]) {
				best = k
			}
		}
		if best < 0 {
			return runtime.NewIntegerVector([]int32{}), nil
		}
		out := runtime.IntScalar(best + 1)
		if names := runtime.Names(vec); names != nil {
			runtime.SetAttrRaw(out, "names", names.Select([]int{best}))
		}
		return out, nil
	}
}

func builtinIfelse(c *CallContext) (runtime.Value, error) {
	testVal, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	tv, _, err := runtime.CoerceVector(testVal, runtime.KindLogical)
	if err != nil {
		return nil, err
	}
	test := tv.(*runtime.LogicalVector).Data
	anyTrue, anyFalse := false, false
	for _, b := range test {
		switch b {
		case runtime.NALogical:
		case 0:
			anyFalse = true
		default:
			anyTrue = true
		}
	}
	kind := runtime.KindLogical
	var yes, no runtime.Vector
	if anyTrue {
		v, err := c.Require(1)
		if err != nil {
			return nil, err
		}
		if yes, err = ifelseBranch(v); err != nil {
			return nil, err
		}
		kind = runtime.HigherKind(kind, yes.Kind())
	}
	if anyFalse {
		v, err := c.Require(2)
		if err != nil {
			return nil, err
		}
		if no, err = ifelseBranch(v); err != nil {
			return nil, err
		}
		kind = runtime.HigherKind(kind, no.Kind())
	}
	out, err := runtime.NewVector(kind, len(test))
	if err != nil {
		return nil, err
	}
	if anyTrue {
		if yes, _, err = runtime.CoerceVector(yes, kind); err != nil {
			return nil, err
		}
	}
	if anyFalse {
		if no, _, err = runtime.CoerceVector(no, kind); err != nil {
			return nil, err
		}
	}
	for k, b := range test {
		switch {
		case b == runtime.NALogical:
			out.Assign(k, out, -1)
		case b != 0:
			out.Assign(k, yes, pick(k, yes.Len()))
		default:
			out.Assign(k, no, pick(k, no.Len()))
		}
	}
	for _, name := range []string{"names", "dim", "dimnames"} {
		if a := runtime.GetAttr(testVal, name); a != nil {
			runtime.SetAttrRaw(out, name, a)
		}
	}
	return out, nil
}

func ifelseBranch(v runtime.Value) (runtime.Vector, error) {
	vec, ok := v.(runtime.Vector)
	if !ok {
		if v.Kind() == runtime.KindNull {
			return runtime.NewLogicalVector(nil), nil
		}
		return nil, runtime.Errorf("cannot use a value of type '%s' in ifelse", v.Kind())
	}
	if runtime.Inherits(vec, "factor") {
		return runtime.StripAttributes(vec), nil
	}
	return vec, nil
}

// pick recycles index k over a vector of length n; -1 when n is zero.
func pick(k, n int) int {
	if n == 0 {
		return -1
	}
	return k % n
}

func truthTest(want int32) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		lv, ok := x.(*runtime.LogicalVector)
		if !ok || lv.Len() != 1 || lv.Data[0] == runtime.NALogical {
			return runtime.LogicalScalar(false), nil
		}
		return runtime.LogicalScalar((lv.Data[0] != 0) == (want == 1)), nil
	}
}

func builtinStopifnot(c *CallContext) (runtime.Value, error) {
	for _, a := range c.Dots {
		v, err := c.Force(a.Value)
		if err != nil {
			return nil, err
		}
		lv, ok := v.(*runtime.LogicalVector)
		allTrue := ok
		if ok {
			for _, b := range lv.Data {
				if b != 1 {
					allTrue = false
				}
			}
		}
		if allTrue {
			continue
		}
		msg := a.Name
		if msg == "" {
			text := "argument"
			if a.Expr != nil {
				text = ast.Deparse(a.Expr)
			}
			if ok && lv.Len() > 1 {
				msg = text + " are not all TRUE"
			} else {
				msg = text + " is not TRUE"
			}
		}
		i := c.Interp
		return nil, i.errorCondition(i.makeCondition(msg, c.callerCall(), "simpleError", "error", "condition"))
	}
	c.Invisible()
	return runtime.Null, nil
}
