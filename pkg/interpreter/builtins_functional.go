package interpreter

import (
	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installFunctionalBuiltins() {
	i.def("lapply", "X, FUN, ...", builtinLapply)
	i.def("sapply", "X, FUN, ..., simplify, USE.NAMES", builtinSapply)
	i.def("vapply", "X, FUN, FUN.VALUE, ..., USE.NAMES", builtinVapply)
	i.def("mapply", "FUN, ..., MoreArgs, SIMPLIFY, USE.NAMES", builtinMapply)
	i.def("Map", "f, ...", builtinMap)
	i.def("Reduce", "f, x, init, right, accumulate", builtinReduce)
	i.def("Filter", "f, x", builtinFilter)
	i.def("Position", "f, x, right, nomatch", builtinPosition(false))
	i.def("Find", "f, x, right, nomatch", builtinPosition(true))
	i.def("Negate", "f", builtinNegate)
	i.def("match.fun", "FUN, descend", func(c *CallContext) (runtime.Value, error) {
		v, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return c.matchFunction(v)
	})
}

// applyCall is the call recorded for functions invoked by the apply family.
var applyCall = ast.CallArgs(ast.ID("FUN"),
	ast.Arg(ast.NewCallExpression(ast.ID("[["), []*ast.Argument{ast.Arg(ast.ID("X")), ast.Arg(ast.ID("i"))}, ast.FormIndex2)),
	ast.Arg(ast.ID("...")))

// elementsOf splits x into the elements the apply family iterates over.
func elementsOf(x runtime.Value) ([]runtime.Value, *runtime.CharacterVector, error) {
	switch v := x.(type) {
	case *runtime.NullValue:
		return nil, nil, nil
	case *runtime.ListValue:
		out := make([]runtime.Value, len(v.Data))
		for k, e := range v.Data {
			runtime.MarkShared(e)
			out[k] = e
		}
		return out, runtime.Names(v), nil
	case runtime.Vector:
		out := make([]runtime.Value, v.Len())
		for k := range out {
			out[k] = v.Select([]int{k})
		}
		return out, runtime.Names(v), nil
	case *runtime.LanguageValue:
		list := languageList(v)
		return list.Data, runtime.Names(list), nil
	case *runtime.Environment:
		keys := v.Keys()
		out := make([]runtime.Value, len(keys))
		for k, key := range keys {
			out[k], _ = v.GetLocal(key)
		}
		return out, runtime.StringVector(keys...), nil
	}
	return nil, nil, runtime.Errorf("object of type '%s' is not subsettable", x.Kind())
}

// applyEach calls fn on every element followed by extra.
func (c *CallContext) applyEach(fn runtime.Value, elems []runtime.Value, extra []Arg) ([]runtime.Value, error) {
	elemExpr := applyCall.Args[0].Value
	out := make([]runtime.Value, len(elems))
	for k, e := range elems {
		args := append([]Arg{{Value: runtime.NewForcedPromise(elemExpr, e), Expr: elemExpr}}, extra...)
		res, err := c.call(fn, args, applyCall)
		if err != nil {
			return nil, err
		}
		out[k] = res
	}
	c.Interp.visible = true
	return out, nil
}

func (c *CallContext) applyArgs() (runtime.Value, []runtime.Value, *runtime.CharacterVector, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, nil, nil, err
	}
	fnVal, err := c.Require(1)
	if err != nil {
		return nil, nil, nil, err
	}
	fn, err := c.matchFunction(fnVal)
	if err != nil {
		return nil, nil, nil, err
	}
	elems, names, err := elementsOf(x)
	if err != nil {
		return nil, nil, nil, err
	}
	return fn, elems, names, nil
}

func namedList(vals []runtime.Value, names *runtime.CharacterVector) *runtime.ListValue {
	out := runtime.NewList(vals)
	if names != nil {
		runtime.SetAttrRaw(out, "names", names)
	}
	return out
}

func builtinLapply(c *CallContext) (runtime.Value, error) {
	fn, elems, names, err := c.applyArgs()
	if err != nil {
		return nil, err
	}
	res, err := c.applyEach(fn, elems, c.Dots)
	if err != nil {
		return nil, err
	}
	return namedList(res, names), nil
}

// useNames applies the USE.NAMES rule: character input without names names
// the result after itself.
func useNames(x runtime.Value, names *runtime.CharacterVector) *runtime.CharacterVector {
	if names != nil {
		return names
	}
	if s, ok := x.(*runtime.CharacterVector); ok {
		return runtime.StripAttributes(s).(*runtime.CharacterVector)
	}
	return nil
}

func builtinSapply(c *CallContext) (runtime.Value, error) {
	fn, elems, names, err := c.applyArgs()
	if err != nil {
		return nil, err
	}
	res, err := c.applyEach(fn, elems, c.Dots)
	if err != nil {
		return nil, err
	}
	use, err := c.flag(4, true)
	if err != nil {
		return nil, err
	}
	if use {
		x, _ := c.Arg(0)
		names = useNames(x, names)
	} else {
		names = nil
	}
	simplify, err := c.flag(3, true)
	if err != nil {
		return nil, err
	}
	if !simplify {
		return namedList(res, names), nil
	}
	return simplifyResults(res, names)
}

// simplifyResults turns a list of results into a vector when every result
// has length one, or a matrix when they share a longer length.
func simplifyResults(res []runtime.Value, names *runtime.CharacterVector) (runtime.Value, error) {
	if len(res) == 0 {
		return runtime.NewList(nil), nil
	}
	common := -1
	for _, r := range res {
		vec, ok := r.(runtime.Vector)
		if !ok {
			return namedList(res, names), nil
		}
		if common == -1 {
			common = vec.Len()
		} else if common != vec.Len() {
			return namedList(res, names), nil
		}
	}
	if common < 1 {
		return namedList(res, names), nil
	}
	parts := make([]Arg, len(res))
	for k, r := range res {
		parts[k] = Arg{Value: r}
		if common == 1 && names != nil && !names.Data[k].NA {
			parts[k].Name = names.Data[k].Val
		}
	}
	if common == 1 {
		allAtomic := true
		for _, r := range res {
			if !r.Kind().IsAtomic() {
				allAtomic = false
			}
		}
		if !allAtomic {
			return namedList(res, names), nil
		}
		return combineValues(parts, false)
	}
	unnamed := make([]Arg, len(res))
	for k, r := range res {
		unnamed[k] = Arg{Value: runtime.StripAttributes(r.(runtime.Vector))}
	}
	flat, err := combineValues(unnamed, false)
	if err != nil {
		return nil, err
	}
	out := flat.(runtime.Vector)
	runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{int32(common), int32(len(res))}))
	rowNames := runtime.Names(res[0])
	if rowNames != nil || names != nil {
		var rn, cn runtime.Value = runtime.Null, runtime.Null
		if rowNames != nil {
			rn = rowNames
		}
		if names != nil {
			cn = names
		}
		runtime.SetAttrRaw(out, "dimnames", runtime.NewList([]runtime.Value{rn, cn}))
	}
	return out, nil
}

func builtinVapply(c *CallContext) (runtime.Value, error) {
	fn, elems, names, err := c.applyArgs()
	if err != nil {
		return nil, err
	}
	tmpl, err := c.Require(2)
	if err != nil {
		return nil, err
	}
	tv, ok := tmpl.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("'FUN.VALUE' must be a vector")
	}
	res, err := c.applyEach(fn, elems, c.Dots)
	if err != nil {
		return nil, err
	}
	for k, r := range res {
		rv, ok := r.(runtime.Vector)
		n := runtime.Length(r)
		if !ok || n != tv.Len() {
			return nil, runtime.Errorf("values must be length %d,\n but FUN(X[[%d]]) result is length %d", tv.Len(), k+1, n)
		}
		if rv.Kind() != tv.Kind() && !vapplyWidens(rv.Kind(), tv.Kind()) {
			return nil, runtime.Errorf("values must be type '%s',\n but FUN(X[[%d]]) result is type '%s'", tv.Kind(), k+1, rv.Kind())
		}
		conv, _, err := runtime.CoerceVector(rv, tv.Kind())
		if err != nil {
			return nil, err
		}
		res[k] = conv
	}
	use, err := c.flag(4, true)
	if err != nil {
		return nil, err
	}
	if use {
		x, _ := c.Arg(0)
		names = useNames(x, names)
	} else {
		names = nil
	}
	if len(res) == 0 {
		empty, _ := runtime.NewVector(tv.Kind(), 0)
		return empty, nil
	}
	if tv.Len() != 1 {
		return simplifyResults(res, names)
	}
	out, err := simplifyResults(res, names)
	if err != nil {
		return nil, err
	}
	if vec, ok := out.(runtime.Vector); ok && names == nil {
		runtime.SetAttrRaw(vec, "names", runtime.Null)
	}
	return out, nil
}

func vapplyWidens(from, to runtime.Kind) bool {
	switch to {
	case runtime.KindInteger:
		return from == runtime.KindLogical
	case runtime.KindDouble:
		return from == runtime.KindLogical || from == runtime.KindInteger
	}
	return false
}

func (c *CallContext) mapCall(fn runtime.Value, lists []Arg, more []Arg) ([]runtime.Value, *runtime.CharacterVector, error) {
	cols := make([][]runtime.Value, len(lists))
	n := 0
	var names *runtime.CharacterVector
	for k, l := range lists {
		elems, en, err := elementsOf(l.Value)
		if err != nil {
			return nil, nil, err
		}
		cols[k] = elems
		if k == 0 {
			names = useNames(l.Value, en)
		}
		if len(elems) > n {
			n = len(elems)
		}
	}
	for _, col := range cols {
		if len(col) == 0 {
			n = 0
		}
	}
	out := make([]runtime.Value, n)
	for j := 0; j < n; j++ {
		args := make([]Arg, 0, len(lists)+len(more))
		for k, l := range lists {
			args = append(args, Arg{Name: l.Name, Value: cols[k][j%len(cols[k])]})
		}
		args = append(args, more...)
		res, err := c.call(fn, args, nil)
		if err != nil {
			return nil, nil, err
		}
		out[j] = res
	}
	c.Interp.visible = true
	return out, names, nil
}

func moreArgs(v runtime.Value) []Arg {
	list, ok := v.(*runtime.ListValue)
	if !ok {
		return nil
	}
	names := runtime.Names(list)
	out := make([]Arg, len(list.Data))
	for k, e := range list.Data {
		out[k] = Arg{Value: e}
		if names != nil && !names.Data[k].NA {
			out[k].Name = names.Data[k].Val
		}
	}
	return out
}

func builtinMapply(c *CallContext) (runtime.Value, error) {
	fnVal, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	fn, err := c.matchFunction(fnVal)
	if err != nil {
		return nil, err
	}
	more, err := c.ArgOr(2, runtime.Null)
	if err != nil {
		return nil, err
	}
	res, names, err := c.mapCall(fn, c.Dots, moreArgs(more))
	if err != nil {
		return nil, err
	}
	use, err := c.flag(4, true)
	if err != nil {
		return nil, err
	}
	if !use {
		names = nil
	}
	simplify, err := c.flag(3, true)
	if err != nil {
		return nil, err
	}
	if !simplify {
		return namedList(res, names), nil
	}
	return simplifyResults(res, names)
}

func builtinMap(c *CallContext) (runtime.Value, error) {
	fnVal, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	fn, err := c.matchFunction(fnVal)
	if err != nil {
		return nil, err
	}
	res, names, err := c.mapCall(fn, c.Dots, nil)
	if err != nil {
		return nil, err
	}
	return namedList(res, names), nil
}

func builtinReduce(c *CallContext) (runtime.Value, error) {
	fnVal, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	fn, err := c.matchFunction(fnVal)
	if err != nil {
		return nil, err
	}
	x, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, err
	}
	elems, _, err := elementsOf(x)
	if err != nil {
		return nil, err
	}
	right, err := c.flag(3, false)
	if err != nil {
		return nil, err
	}
	accumulate, err := c.flag(4, false)
	if err != nil {
		return nil, err
	}
	if c.Has(2) {
		init, err := c.Arg(2)
		if err != nil {
			return nil, err
		}
		if right {
			elems = append(elems, init)
		} else {
			elems = append([]runtime.Value{init}, elems...)
		}
	}
	if len(elems) == 0 {
		return runtime.Null, nil
	}
	if right {
		for l, r := 0, len(elems)-1; l < r; l, r = l+1, r-1 {
			elems[l], elems[r] = elems[r], elems[l]
		}
	}
	acc := elems[0]
	steps := []runtime.Value{acc}
	for _, e := range elems[1:] {
		args := []Arg{{Value: acc}, {Value: e}}
		if right {
			args = []Arg{{Value: e}, {Value: acc}}
		}
		if acc, err = c.call(fn, args, nil); err != nil {
			return nil, err
		}
		steps = append(steps, acc)
	}
	c.Interp.visible = true
	if !accumulate {
		return acc, nil
	}
	if right {
		for l, r := 0, len(steps)-1; l < r; l, r = l+1, r-1 {
			steps[l], steps[r] = steps[r], steps[l]
		}
	}
	return simplifyResults(steps, nil)
}

// predicateResults calls f on every element of x and reads each result as
// a single logical.
func (c *CallContext) predicateResults(fnVal, x runtime.Value) ([]runtime.Value, []bool, error) {
	fn, err := c.matchFunction(fnVal)
	if err != nil {
		return nil, nil, err
	}
	elems, _, err := elementsOf(x)
	if err != nil {
		return nil, nil, err
	}
	res, err := c.applyEach(fn, elems, nil)
	if err != nil {
		return nil, nil, err
	}
	keep := make([]bool, len(res))
	for k, r := range res {
		b, err := runtime.AsLogicalScalar(r)
		if err != nil {
			return nil, nil, err
		}
		keep[k] = b == 1
	}
	return elems, keep, nil
}

func builtinFilter(c *CallContext) (runtime.Value, error) {
	fnVal, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	x, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, err
	}
	_, keep, err := c.predicateResults(fnVal, x)
	if err != nil {
		return nil, err
	}
	var idx []int32
	for k, b := range keep {
		if b {
			idx = append(idx, int32(k+1))
		}
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return runtime.Null, nil
	}
	return subsetVector(vec, runtime.NewIntegerVector(idx))
}

func builtinPosition(find bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		fnVal, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		x, err := c.ArgOr(1, runtime.Null)
		if err != nil {
			return nil, err
		}
		right, err := c.flag(2, false)
		if err != nil {
			return nil, err
		}
		elems, keep, err := c.predicateResults(fnVal, x)
		if err != nil {
			return nil, err
		}
		hit := -1
		for k := range keep {
			idx := k
			if right {
				idx = len(keep) - 1 - k
			}
			if keep[idx] {
				hit = idx
				break
			}
		}
		if hit < 0 {
			if find {
				return runtime.Null, nil
			}
			return c.ArgOr(3, runtime.NewIntegerVector([]int32{runtime.NAInteger}))
		}
		if find {
			return elems[hit], nil
		}
		return runtime.IntScalar(hit + 1), nil
	}
}

func builtinNegate(c *CallContext) (runtime.Value, error) {
	fnVal, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	fn, err := c.matchFunction(fnVal)
	if err != nil {
		return nil, err
	}
	return &Builtin{Name: "Negate", Impl: func(inner *CallContext) (runtime.Value, error) {
		res, err := inner.call(fn, inner.Args, nil)
		if err != nil {
			return nil, err
		}
		return logicalNot(res)
	}}, nil
}
