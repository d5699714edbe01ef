package interpreter

import (
	"math"
	"strconv"

	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installVectorBuiltins() {
	i.def("c", "..., recursive", builtinC)
	i.def("unlist", "x, recursive, use.names", builtinUnlist)
	i.def("list", "...", builtinList)
	i.def("vector", "mode, length", builtinVector)
	for name, kind := range map[string]runtime.Kind{
		"logical":   runtime.KindLogical,
		"integer":   runtime.KindInteger,
		"numeric":   runtime.KindDouble,
		"double":    runtime.KindDouble,
		"character": runtime.KindCharacter,
		"raw":       runtime.KindRaw,
	} {
		i.def(name, "length", typedConstructor(kind))
	}
	i.def("complex", "length.out, real, imaginary, modulus, argument", builtinComplex)
	i.def("length", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return runtime.IntScalar(runtime.Length(x)), nil
	})
	i.def("length<-", "x, value", builtinSetLength)
	i.def("seq", "from, to, by, length.out, along.with", builtinSeq)
	i.def("seq_len", "length.out", builtinSeqLen)
	i.def("seq_along", "along.with", func(c *CallContext) (runtime.Value, error) {
		x, err := c.ArgOr(0, runtime.Null)
		if err != nil {
			return nil, err
		}
		return oneTo(runtime.Length(x)), nil
	})
	i.def("rep", "x, times, length.out, each", builtinRep)
	i.def("rep_len", "x, length.out", func(c *CallContext) (runtime.Value, error) {
		return repeatValue(c, 0, -1, 1, 1)
	})
	i.def("rev", "x", builtinRev)
	i.def("head", "x, n", builtinHeadTail(true))
	i.def("tail", "x, n", builtinHeadTail(false))
	i.def("lengths", "x, use.names", builtinLengths)
	i.def("append", "x, values, after", builtinAppend)
	i.def("matrix", "data, nrow, ncol, byrow, dimnames", builtinMatrix)
	i.def("array", "data, dim, dimnames", builtinArray)
	i.def("nrow", "x", dimExtent(0, false))
	i.def("ncol", "x", dimExtent(1, false))
	i.def("NROW", "x", dimExtent(0, true))
	i.def("NCOL", "x", dimExtent(1, true))
	i.def("t", "x", builtinTranspose)
	i.def("cbind", "...", builtinBind(false))
	i.def("rbind", "...", builtinBind(true))
	i.def("factor", "x, levels, labels", builtinFactor)
	i.def("levels", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return attrOrNull(x, "levels"), nil
	})
	i.def("nlevels", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return runtime.IntScalar(runtime.Length(attrOrNull(x, "levels"))), nil
	})
}

func attrOrNull(x runtime.Value, name string) runtime.Value {
	if v := runtime.GetAttr(x, name); v != nil {
		return v
	}
	return runtime.Null
}

// oneTo is the integer sequence 1..n.
func oneTo(n int) *runtime.IntegerVector {
	out := make([]int32, n)
	for k := range out {
		out[k] = int32(k + 1)
	}
	return runtime.NewIntegerVector(out)
}

// positions converts zero-based offsets into an R index vector.
func positions(sel []int) *runtime.IntegerVector {
	out := make([]int32, len(sel))
	for k, p := range sel {
		out[k] = int32(p + 1)
	}
	return runtime.NewIntegerVector(out)
}

// flatItem is one element of a combined result: either element idx of vec
// or a non-vector value stored as a list element.
type flatItem struct {
	name string
	vec  runtime.Vector
	idx  int
	val  runtime.Value
}

// childName applies the naming rule of c() and unlist(): an outer tag is
// joined to inner names with a dot, or numbered when the inner element is
// unnamed and there is more than one.
func childName(tag string, names *runtime.CharacterVector, j, n int) string {
	inner := ""
	if names != nil && j < names.Len() && !names.Data[j].NA {
		inner = names.Data[j].Val
	}
	switch {
	case tag == "":
		return inner
	case inner != "":
		return tag + "." + inner
	case n == 1:
		return tag
	}
	return tag + strconv.Itoa(j+1)
}

func flatten(items []flatItem, tag string, v runtime.Value, recursive bool) []flatItem {
	switch val := v.(type) {
	case *runtime.NullValue:
		return items
	case *runtime.ListValue:
		names := runtime.Names(val)
		if recursive {
			for j, e := range val.Data {
				items = flatten(items, childName(tag, names, j, len(val.Data)), e, true)
			}
			return items
		}
		for j := range val.Data {
			items = append(items, flatItem{name: childName(tag, names, j, len(val.Data)), vec: val, idx: j})
		}
		return items
	case runtime.Vector:
		names := runtime.Names(val)
		n := val.Len()
		for j := 0; j < n; j++ {
			items = append(items, flatItem{name: childName(tag, names, j, n), vec: val, idx: j})
		}
		return items
	}
	return append(items, flatItem{name: tag, val: v})
}

// combineValues implements c(): the result has the highest kind among the
// parts and names built from argument tags and inner names.
func combineValues(parts []Arg, recursive bool) (runtime.Value, error) {
	var items []flatItem
	for _, p := range parts {
		items = flatten(items, p.Name, p.Value, recursive)
	}
	return buildCombined(items)
}

func buildCombined(items []flatItem) (runtime.Value, error) {
	if len(items) == 0 {
		return runtime.Null, nil
	}
	kind := runtime.KindNull
	named := false
	for _, it := range items {
		if it.vec != nil {
			kind = runtime.HigherKind(kind, it.vec.Kind())
		} else {
			kind = runtime.KindList
		}
		if it.name != "" {
			named = true
		}
	}
	var out runtime.Vector
	if kind == runtime.KindList {
		data := make([]runtime.Value, len(items))
		for k, it := range items {
			switch {
			case it.vec == nil:
				data[k] = it.val
			case it.vec.Kind() == runtime.KindList:
				data[k] = it.vec.(*runtime.ListValue).Data[it.idx]
			default:
				data[k] = it.vec.Select([]int{it.idx})
			}
		}
		out = runtime.NewList(data)
	} else {
		vec, err := runtime.NewVector(kind, len(items))
		if err != nil {
			return nil, err
		}
		converted := map[runtime.Vector]runtime.Vector{}
		for k, it := range items {
			src, ok := converted[it.vec]
			if !ok {
				conv, _, err := runtime.CoerceVector(it.vec, kind)
				if err != nil {
					return nil, err
				}
				src = conv
				converted[it.vec] = conv
			}
			vec.Assign(k, src, it.idx)
		}
		out = vec
	}
	if named {
		names := make([]runtime.Str, len(items))
		for k, it := range items {
			names[k] = runtime.S(it.name)
		}
		runtime.SetAttrRaw(out, "names", runtime.NewCharacterVector(names))
	}
	return out, nil
}

func builtinC(c *CallContext) (runtime.Value, error) {
	recursive, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	parts := make([]Arg, len(c.Dots))
	for k, a := range c.Dots {
		v, err := c.Force(a.Value)
		if err != nil {
			return nil, err
		}
		parts[k] = Arg{Name: a.Name, Value: factorAsCodes(v)}
	}
	return combineValues(parts, recursive)
}

// factorAsCodes drops factor attributes so c() sees the integer codes.
func factorAsCodes(v runtime.Value) runtime.Value {
	if vec, ok := v.(runtime.Vector); ok && runtime.Inherits(v, "factor") {
		return runtime.StripAttributes(vec)
	}
	return v
}

func builtinUnlist(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	list, ok := x.(*runtime.ListValue)
	if !ok {
		return x, nil
	}
	recursive, err := c.flag(1, true)
	if err != nil {
		return nil, err
	}
	useNames, err := c.flag(2, true)
	if err != nil {
		return nil, err
	}
	var items []flatItem
	names := runtime.Names(list)
	for j, e := range list.Data {
		tag := childName("", names, j, len(list.Data))
		if sub, isList := e.(*runtime.ListValue); isList && !recursive {
			items = flatten(items, tag, sub, false)
			continue
		}
		items = flatten(items, tag, factorAsCodes(e), recursive)
	}
	if !useNames {
		for k := range items {
			items[k].name = ""
		}
	}
	return buildCombined(items)
}

func builtinList(c *CallContext) (runtime.Value, error) {
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	out := runtime.NewList(vals)
	named := false
	names := make([]runtime.Str, len(c.Dots))
	for k, a := range c.Dots {
		names[k] = runtime.S(a.Name)
		if a.Name != "" {
			named = true
		}
	}
	if named {
		runtime.SetAttrRaw(out, "names", runtime.NewCharacterVector(names))
	}
	return out, nil
}

// kindForMode maps a mode name to the vector kind it allocates.
func kindForMode(mode string) (runtime.Kind, bool) {
	switch mode {
	case "logical":
		return runtime.KindLogical, true
	case "integer":
		return runtime.KindInteger, true
	case "numeric", "double":
		return runtime.KindDouble, true
	case "complex":
		return runtime.KindComplex, true
	case "character":
		return runtime.KindCharacter, true
	case "raw":
		return runtime.KindRaw, true
	case "list":
		return runtime.KindList, true
	}
	return runtime.KindNull, false
}

func lengthArg(c *CallContext, k int) (int, error) {
	n, err := c.intArg(k, 0)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, runtime.Errorf("invalid '%s' argument", c.formalName(k))
	}
	return n, nil
}

func builtinVector(c *CallContext) (runtime.Value, error) {
	mode, err := c.stringArg(0, "logical")
	if err != nil {
		return nil, err
	}
	n, err := lengthArg(c, 1)
	if err != nil {
		return nil, err
	}
	kind, ok := kindForMode(mode)
	if !ok {
		return nil, runtime.Errorf("vector: cannot make a vector of mode '%s'.", mode)
	}
	return runtime.NewVector(kind, n)
}

func typedConstructor(kind runtime.Kind) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		n, err := lengthArg(c, 0)
		if err != nil {
			return nil, err
		}
		return runtime.NewVector(kind, n)
	}
}

func builtinSetLength(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	n, err := lengthArg(c, 1)
	if err != nil {
		return nil, err
	}
	if x.Kind() == runtime.KindNull {
		if n == 0 {
			return runtime.Null, nil
		}
		return runtime.NewVector(runtime.KindLogical, n)
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("invalid argument")
	}
	out := runtime.Duplicate(vec).(runtime.Vector)
	names := runtime.Names(vec)
	out.SetAttributes(nil)
	out.Resize(n)
	if names != nil {
		nm := runtime.Duplicate(names).(*runtime.CharacterVector)
		nm.Resize(n)
		for k := names.Len(); k < n; k++ {
			nm.Data[k] = runtime.S("")
		}
		runtime.SetAttrRaw(out, "names", nm)
	}
	return out, nil
}

func builtinSeqLen(c *CallContext) (runtime.Value, error) {
	v, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	x, err := runtime.AsDoubleScalar(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(x) || x < 0 {
		return nil, runtime.Errorf("argument of length 0")
	}
	return oneTo(int(math.Ceil(x))), nil
}

// builtinComplex builds z from rectangular parts, or from polar parts when
// modulus or argument is supplied. Every part is recycled to the longest.
func builtinComplex(c *CallContext) (runtime.Value, error) {
	n, err := c.intArg(0, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, runtime.Errorf("invalid 'length.out' argument")
	}
	polar := c.Has(3) || c.Has(4)
	first, second := 1, 2
	defFirst := 0.0
	if polar {
		first, second = 3, 4
		defFirst = 1
	}
	part := func(k int, def float64) ([]float64, error) {
		if !c.Has(k) {
			return []float64{def}, nil
		}
		v, err := c.Arg(k)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(runtime.Vector); !ok || !isNumericKind(v.Kind()) {
			return nil, runtime.Errorf("invalid '%s' argument", c.formalName(k))
		}
		return asDoubles(v.(runtime.Vector)), nil
	}
	a, err := part(first, defFirst)
	if err != nil {
		return nil, err
	}
	b, err := part(second, 0)
	if err != nil {
		return nil, err
	}
	if len(a) > n {
		n = len(a)
	}
	if len(b) > n {
		n = len(b)
	}
	out := make([]complex128, n)
	for k := range out {
		x, y := 0.0, 0.0
		if len(a) > 0 {
			x = a[k%len(a)]
		}
		if len(b) > 0 {
			y = b[k%len(b)]
		}
		if polar {
			out[k] = complex(x*math.Cos(y), x*math.Sin(y))
		} else {
			out[k] = complex(x, y)
		}
	}
	return runtime.NewComplexVector(out), nil
}

func (c *CallContext) doubleArg(k int) (float64, bool, error) {
	v, err := c.Arg(k)
	if err != nil || v == nil {
		return 0, false, err
	}
	if runtime.Length(v) != 1 {
		return 0, false, runtime.Errorf("'%s' must be of length 1", c.formalName(k))
	}
	x, err := runtime.AsDoubleScalar(v)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false, runtime.Errorf("'%s' must be a finite number", c.formalName(k))
	}
	return x, true, nil
}

func builtinSeq(c *CallContext) (runtime.Value, error) {
	if c.Has(4) {
		along, err := c.Arg(4)
		if err != nil {
			return nil, err
		}
		return oneTo(runtime.Length(along)), nil
	}
	onlyFrom := c.Has(0) && !c.Has(1) && !c.Has(2) && !c.Has(3)
	if onlyFrom {
		from, err := c.Arg(0)
		if err != nil {
			return nil, err
		}
		if runtime.Length(from) != 1 {
			return oneTo(runtime.Length(from)), nil
		}
		n, err := runtime.AsDoubleScalar(from)
		if err != nil {
			return nil, err
		}
		if n >= 1 {
			return oneTo(int(math.Floor(n + 1e-10))), nil
		}
		return colonSequence(c, 1, n)
	}
	from, hasFrom, err := c.doubleArg(0)
	if err != nil {
		return nil, err
	}
	to, hasTo, err := c.doubleArg(1)
	if err != nil {
		return nil, err
	}
	by, hasBy, err := c.doubleArg(2)
	if err != nil {
		return nil, err
	}
	lengthOut, hasLen, err := c.doubleArg(3)
	if err != nil {
		return nil, err
	}
	if hasLen {
		n := int(math.Ceil(lengthOut))
		if n < 0 {
			return nil, runtime.Errorf("'length.out' must be a non-negative number")
		}
		switch {
		case !hasFrom && !hasTo && !hasBy:
			return oneTo(n), nil
		case hasFrom && hasTo:
			by = 0
			if n > 1 {
				by = (to - from) / float64(n-1)
			}
		case !hasBy:
			by = 1
			if !hasFrom {
				from = to - float64(n-1)
			}
		case !hasFrom:
			from = to - by*float64(n-1)
		}
		out := make([]float64, n)
		for k := range out {
			out[k] = from + by*float64(k)
		}
		if hasFrom && hasTo && n > 0 {
			out[n-1] = to
		}
		return runtime.NewDoubleVector(out), nil
	}
	if !hasFrom {
		from = 1
	}
	if !hasTo {
		to = 1
	}
	if !hasBy {
		return colonSequence(c, from, to)
	}
	if by == 0 && from == to {
		return seqResult(c, []float64{from}), nil
	}
	if by == 0 || (to-from)/by < 0 {
		return nil, runtime.Errorf("wrong sign in 'by' argument")
	}
	n := int(math.Floor((to-from)/by+1e-10)) + 1
	out := make([]float64, n)
	for k := range out {
		out[k] = from + by*float64(k)
	}
	return seqResult(c, out), nil
}

// seqResult keeps an integer result when from and by were given as integers.
func seqResult(c *CallContext, data []float64) runtime.Value {
	for _, k := range []int{0, 2} {
		if c.Has(k) {
			v, _ := c.Arg(k)
			if v.Kind() != runtime.KindInteger {
				return runtime.NewDoubleVector(data)
			}
		}
	}
	out := make([]int32, len(data))
	for k, x := range data {
		out[k] = int32(x)
	}
	return runtime.NewIntegerVector(out)
}

func colonSequence(c *CallContext, from, to float64) (runtime.Value, error) {
	return builtinColon(&CallContext{Interp: c.Interp, Call: c.Call, Env: c.Env,
		Args: []Arg{{Value: runtime.DoubleScalar(from)}, {Value: runtime.DoubleScalar(to)}}})
}

// repeatValue builds rep(x, ...) from the index plan: each element repeated
// each times, the whole repeated times, then cut or extended to lengthOut.
func repeatValue(c *CallContext, xk int, lengthOut int, each int, times int) (runtime.Value, error) {
	x, err := c.ArgOr(xk, runtime.Null)
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		if x.Kind() == runtime.KindNull {
			return runtime.Null, nil
		}
		return nil, runtime.Errorf("attempt to replicate an object of type '%s'", x.Kind())
	}
	if lengthOut < 0 && c.Has(1) {
		if lengthOut, err = lengthArg(c, 1); err != nil {
			return nil, err
		}
	}
	return repeatIndices(vec, buildRepPlan(vec.Len(), each, []int{times}, lengthOut))
}

func buildRepPlan(n, each int, times []int, lengthOut int) []int {
	var base []int
	for k := 0; k < n; k++ {
		for e := 0; e < each; e++ {
			base = append(base, k)
		}
	}
	var plan []int
	if len(times) == len(base) && len(times) > 1 {
		for k, b := range base {
			for t := 0; t < times[k]; t++ {
				plan = append(plan, b)
			}
		}
	} else if len(times) > 0 {
		for t := 0; t < times[0]; t++ {
			plan = append(plan, base...)
		}
	}
	if lengthOut >= 0 {
		if len(base) == 0 {
			return make([]int, lengthOut)
		}
		out := make([]int, lengthOut)
		for k := range out {
			out[k] = base[k%len(base)]
		}
		return out
	}
	return plan
}

func repeatIndices(vec runtime.Vector, plan []int) (runtime.Value, error) {
	if vec.Len() == 0 {
		for k := range plan {
			plan[k] = -1
		}
	}
	out := vec.Select(plan)
	if names := runtime.Names(vec); names != nil {
		runtime.SetAttrRaw(out, "names", names.Select(plan))
	}
	keepFactorAttrs(vec, out)
	return out, nil
}

func builtinRep(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		if x.Kind() == runtime.KindNull {
			return runtime.Null, nil
		}
		return nil, runtime.Errorf("attempt to replicate an object of type '%s'", x.Kind())
	}
	each, err := c.intArg(3, 1)
	if err != nil {
		return nil, err
	}
	if each < 0 {
		return nil, runtime.Errorf("invalid 'each' argument")
	}
	lengthOut := -1
	if c.Has(2) {
		if lengthOut, err = lengthArg(c, 2); err != nil {
			return nil, err
		}
	}
	times := []int{1}
	if c.Has(1) {
		tv, err := c.Arg(1)
		if err != nil {
			return nil, err
		}
		iv, warn, err := runtime.CoerceVector(tv, runtime.KindInteger)
		if err != nil {
			return nil, err
		}
		if warn != "" {
			return nil, runtime.Errorf("invalid 'times' argument")
		}
		times = times[:0]
		for _, t := range iv.(*runtime.IntegerVector).Data {
			if t == runtime.NAInteger || t < 0 {
				return nil, runtime.Errorf("invalid 'times' argument")
			}
			times = append(times, int(t))
		}
		if len(times) != 1 && len(times) != vec.Len()*each {
			return nil, runtime.Errorf("invalid 'times' argument")
		}
	}
	return repeatIndices(vec, buildRepPlan(vec.Len(), each, times, lengthOut))
}

func builtinRev(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return x, nil
	}
	n := vec.Len()
	sel := make([]int, n)
	for k := range sel {
		sel[k] = n - 1 - k
	}
	return subsetVector(vec, positions(sel))
}

func builtinHeadTail(head bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.ArgOr(0, runtime.Null)
		if err != nil {
			return nil, err
		}
		vec, ok := x.(runtime.Vector)
		if !ok {
			return x, nil
		}
		n, err := c.intArg(1, 6)
		if err != nil {
			return nil, err
		}
		total := vec.Len()
		if n < 0 {
			n = total + n
			if n < 0 {
				n = 0
			}
		}
		if n > total {
			n = total
		}
		sel := make([]int, n)
		for k := range sel {
			if head {
				sel[k] = k
			} else {
				sel[k] = total - n + k
			}
		}
		return subsetVector(vec, positions(sel))
	}
}

func builtinLengths(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	elems, names, err := elementsOf(x)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(elems))
	for k, e := range elems {
		out[k] = int32(runtime.Length(e))
	}
	res := runtime.NewIntegerVector(out)
	if use, err := c.flag(1, true); err != nil {
		return nil, err
	} else if use && names != nil {
		runtime.SetAttrRaw(res, "names", names)
	}
	return res, nil
}

func builtinAppend(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	values, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, err
	}
	n := runtime.Length(x)
	after, err := c.intArg(2, n)
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok || after >= n {
		return combineValues([]Arg{{Value: x}, {Value: values}}, false)
	}
	if after < 0 {
		after = 0
	}
	var front, back []int
	for k := 0; k < n; k++ {
		if k < after {
			front = append(front, k)
		} else {
			back = append(back, k)
		}
	}
	head, err := subsetVector(vec, positions(front))
	if err != nil {
		return nil, err
	}
	tail, err := subsetVector(vec, positions(back))
	if err != nil {
		return nil, err
	}
	return combineValues([]Arg{{Value: head}, {Value: values}, {Value: tail}}, false)
}

func builtinMatrix(c *CallContext) (runtime.Value, error) {
	data, err := c.ArgOr(0, runtime.LogicalNA())
	if err != nil {
		return nil, err
	}
	vec, ok := data.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("'data' must be of a vector type, was '%s'", data.Kind())
	}
	n := vec.Len()
	nrow, ncol := n, 1
	switch {
	case c.Has(1) && c.Has(2):
		if nrow, err = lengthArg(c, 1); err != nil {
			return nil, err
		}
		if ncol, err = lengthArg(c, 2); err != nil {
			return nil, err
		}
	case c.Has(1):
		if nrow, err = lengthArg(c, 1); err != nil {
			return nil, err
		}
		ncol = 0
		if nrow > 0 {
			ncol = (n + nrow - 1) / nrow
		}
	case c.Has(2):
		if ncol, err = lengthArg(c, 2); err != nil {
			return nil, err
		}
		nrow = 0
		if ncol > 0 {
			nrow = (n + ncol - 1) / ncol
		}
	}
	byrow, err := c.flag(3, false)
	if err != nil {
		return nil, err
	}
	total := nrow * ncol
	if n > 1 && total%n != 0 {
		var msg string
		switch {
		case (n > nrow && n%max(nrow, 1) != 0) || (n < nrow && nrow%n != 0):
			msg = "data length [%d] is not a sub-multiple or multiple of the number of rows [%d]"
			err = c.Warn(msg, n, nrow)
		case (n > ncol && n%max(ncol, 1) != 0) || (n < ncol && ncol%n != 0):
			msg = "data length [%d] is not a sub-multiple or multiple of the number of columns [%d]"
			err = c.Warn(msg, n, ncol)
		default:
			err = c.Warn("data length differs from size of matrix: [%d != %d x %d]", n, nrow, ncol)
		}
		if err != nil {
			return nil, err
		}
	}
	sel := make([]int, total)
	for r := 0; r < nrow; r++ {
		for col := 0; col < ncol; col++ {
			src := col*nrow + r
			if byrow {
				src = r*ncol + col
			}
			if n == 0 {
				sel[col*nrow+r] = -1
			} else {
				sel[col*nrow+r] = src % n
			}
		}
	}
	out := vec.Select(sel)
	runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{int32(nrow), int32(ncol)}))
	if dn, err := c.ArgOr(4, runtime.Null); err != nil {
		return nil, err
	} else if dn.Kind() != runtime.KindNull {
		if err := runtime.SetAttr(out, "dimnames", dn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func builtinArray(c *CallContext) (runtime.Value, error) {
	data, err := c.ArgOr(0, runtime.LogicalNA())
	if err != nil {
		return nil, err
	}
	vec, ok := data.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("'data' must be of a vector type, was '%s'", data.Kind())
	}
	dimVal, err := c.ArgOr(1, runtime.IntScalar(vec.Len()))
	if err != nil {
		return nil, err
	}
	dv, _, err := runtime.CoerceVector(dimVal, runtime.KindInteger)
	if err != nil {
		return nil, err
	}
	dims := runtime.StripAttributes(dv).(*runtime.IntegerVector)
	total := 1
	for _, d := range dims.Data {
		if d == runtime.NAInteger || d < 0 {
			return nil, runtime.Errorf("negative length vectors are not allowed")
		}
		total *= int(d)
	}
	sel := make([]int, total)
	for k := range sel {
		if vec.Len() == 0 {
			sel[k] = -1
		} else {
			sel[k] = k % vec.Len()
		}
	}
	out := vec.Select(sel)
	runtime.SetAttrRaw(out, "dim", dims)
	if dn, err := c.ArgOr(2, runtime.Null); err != nil {
		return nil, err
	} else if dn.Kind() != runtime.KindNull {
		if err := runtime.SetAttr(out, "dimnames", dn); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func dimExtent(axis int, fallback bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		dims := runtime.Dim(x)
		if axis < len(dims) {
			return runtime.IntScalar(dims[axis]), nil
		}
		if !fallback {
			return runtime.Null, nil
		}
		if axis == 0 {
			return runtime.IntScalar(runtime.Length(x)), nil
		}
		return runtime.IntScalar(1), nil
	}
}

func builtinTranspose(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("argument is not a matrix")
	}
	dims := runtime.Dim(x)
	var rowNames, colNames runtime.Value = runtime.Null, runtime.Null
	switch len(dims) {
	case 0, 1:
		out := runtime.StripAttributes(vec)
		out = runtime.Duplicate(out).(runtime.Vector)
		runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{1, int32(vec.Len())}))
		if names := runtime.Names(vec); names != nil {
			runtime.SetAttrRaw(out, "dimnames", runtime.NewList([]runtime.Value{runtime.Null, names}))
		}
		return out, nil
	case 2:
	default:
		return nil, runtime.Errorf("argument is not a matrix")
	}
	nr, nc := dims[0], dims[1]
	sel := make([]int, nr*nc)
	for r := 0; r < nr; r++ {
		for col := 0; col < nc; col++ {
			sel[r*nc+col] = col*nr + r
		}
	}
	out := vec.Select(sel)
	runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{int32(nc), int32(nr)}))
	if dn := dimnamesList(x); dn != nil {
		rowNames, colNames = dn.Data[0], dn.Data[1]
		runtime.SetAttrRaw(out, "dimnames", runtime.NewList([]runtime.Value{colNames, rowNames}))
	}
	return out, nil
}

// builtinBind implements cbind and rbind for vectors and matrices. Vectors
// are recycled to the common extent; argument names label the new margin.
func builtinBind(byRow bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		type piece struct {
			vec   runtime.Vector
			name  string
			width int
			dims  []int
		}
		var pieces []piece
		extent := 0
		kind := runtime.KindNull
		for _, a := range c.Dots {
			v, err := c.Force(a.Value)
			if err != nil {
				return nil, err
			}
			vec, ok := v.(runtime.Vector)
			if !ok {
				if v.Kind() == runtime.KindNull {
					continue
				}
				return nil, runtime.Errorf("cannot create a matrix from type '%s'", v.Kind())
			}
			p := piece{vec: vec, name: a.Name, width: 1, dims: runtime.Dim(vec)}
			if len(p.dims) == 2 {
				if byRow {
					p.width = p.dims[0]
					extent = max(extent, p.dims[1])
				} else {
					p.width = p.dims[1]
					extent = max(extent, p.dims[0])
				}
			} else {
				p.dims = nil
				extent = max(extent, vec.Len())
			}
			kind = runtime.HigherKind(kind, vec.Kind())
			pieces = append(pieces, p)
		}
		if len(pieces) == 0 {
			return runtime.Null, nil
		}
		width := 0
		for _, p := range pieces {
			width += p.width
		}
		out, err := runtime.NewVector(kind, extent*width)
		if err != nil {
			return nil, err
		}
		labels := make([]runtime.Str, 0, width)
		labelled := false
		var otherNames runtime.Value = runtime.Null
		offset := 0
		for _, p := range pieces {
			src, _, err := runtime.CoerceVector(p.vec, kind)
			if err != nil {
				return nil, err
			}
			for w := 0; w < p.width; w++ {
				for e := 0; e < extent; e++ {
					var from int
					switch {
					case p.dims == nil && src.Len() == 0:
						from = -1
					case p.dims == nil:
						from = e % src.Len()
					case byRow:
						from = e*p.dims[0] + w
					default:
						from = w*p.dims[0] + e
					}
					line := offset + w
					to := line*extent + e
					if byRow {
						to = e*width + line
					}
					out.Assign(to, src, from)
				}
				label := runtime.S("")
				if p.dims == nil {
					if p.name != "" {
						label = runtime.S(p.name)
						labelled = true
					}
				} else if dn := dimnamesList(p.vec); dn != nil {
					axis := 1
					if byRow {
						axis = 0
					}
					if names := dimnameAt(dn, axis); names != nil {
						label = names.Data[w]
						labelled = true
					}
				}
				labels = append(labels, label)
			}
			if otherNames.Kind() == runtime.KindNull {
				if p.dims == nil {
					if names := runtime.Names(p.vec); names != nil && names.Len() == extent {
						otherNames = names
					}
				} else if dn := dimnamesList(p.vec); dn != nil {
					axis := 0
					if byRow {
						axis = 1
					}
					if names := dimnameAt(dn, axis); names != nil {
						otherNames = names
					}
				}
			}
			offset += p.width
		}
		if byRow {
			runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{int32(width), int32(extent)}))
		} else {
			runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{int32(extent), int32(width)}))
		}
		if labelled || otherNames.Kind() != runtime.KindNull {
			var own runtime.Value = runtime.Null
			if labelled {
				own = runtime.NewCharacterVector(labels)
			}
			dn := []runtime.Value{otherNames, own}
			if byRow {
				dn = []runtime.Value{own, otherNames}
			}
			runtime.SetAttrRaw(out, "dimnames", runtime.NewList(dn))
		}
		return out, nil
	}
}

func builtinFactor(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.NewCharacterVector(nil))
	if err != nil {
		return nil, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("'x' must be atomic")
	}
	if runtime.Inherits(x, "factor") {
		vec = factorLabels(vec)
	}
	var levels runtime.Vector
	if c.Has(1) {
		lv, err := c.Arg(1)
		if err != nil {
			return nil, err
		}
		if levels, ok = lv.(runtime.Vector); !ok {
			return nil, runtime.Errorf("invalid 'levels' argument")
		}
	} else {
		uniq := uniqueVector(runtime.StripAttributes(vec))
		var keep []int
		for k := 0; k < uniq.Len(); k++ {
			if !uniq.IsNA(k) {
				keep = append(keep, k)
			}
		}
		levels = sortVector(uniq.Select(keep), false)
	}
	levelStrings, _, err := runtime.CoerceVector(runtime.StripAttributes(levels), runtime.KindCharacter)
	if err != nil {
		return nil, err
	}
	xs, _, err := runtime.CoerceVector(runtime.StripAttributes(vec), runtime.KindCharacter)
	if err != nil {
		return nil, err
	}
	index := map[string]int32{}
	for k, s := range levelStrings.(*runtime.CharacterVector).Data {
		if _, dup := index[s.Val]; !dup && !s.NA {
			index[s.Val] = int32(k + 1)
		}
	}
	codes := make([]int32, xs.Len())
	for k, s := range xs.(*runtime.CharacterVector).Data {
		code, found := index[s.Val]
		if s.NA || !found {
			code = runtime.NAInteger
		}
		codes[k] = code
	}
	out := runtime.NewIntegerVector(codes)
	labels := levelStrings
	if c.Has(2) {
		lv, err := c.Arg(2)
		if err != nil {
			return nil, err
		}
		conv, _, err := runtime.CoerceVector(lv, runtime.KindCharacter)
		if err != nil {
			return nil, err
		}
		if conv.Len() != levelStrings.Len() {
			return nil, runtime.Errorf("invalid 'labels'; length %d should be 1 or %d", conv.Len(), levelStrings.Len())
		}
		labels = conv
	}
	runtime.SetAttrRaw(out, "levels", runtime.StripAttributes(labels))
	runtime.SetAttrRaw(out, "class", runtime.StringScalar("factor"))
	if names := runtime.Names(vec); names != nil {
		runtime.SetAttrRaw(out, "names", names)
	}
	return out, nil
}

// factorLabels maps factor codes to their level strings.
func factorLabels(f runtime.Vector) runtime.Vector {
	levels, _ := runtime.GetAttr(f, "levels").(*runtime.CharacterVector)
	codes, ok := f.(*runtime.IntegerVector)
	if levels == nil || !ok {
		return f
	}
	out := make([]runtime.Str, len(codes.Data))
	for k, code := range codes.Data {
		if code == runtime.NAInteger || int(code) > levels.Len() || code < 1 {
			out[k] = runtime.NAString
		} else {
			out[k] = levels.Data[code-1]
		}
	}
	res := runtime.NewCharacterVector(out)
	if names := runtime.Names(f); names != nil {
		runtime.SetAttrRaw(res, "names", names)
	}
	return res
}
