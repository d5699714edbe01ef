package interpreter

import (
	"math"
	"sort"
	"strconv"

	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installSetBuiltins() {
	i.def("match", "x, table, nomatch", builtinMatch)
	i.def("%in%", "x, table", func(c *CallContext) (runtime.Value, error) {
		x, table, err := c.matchOperands()
		if err != nil {
			return nil, err
		}
		pos := matchPositions(x, table)
		out := make([]int32, len(pos))
		for k, p := range pos {
			out[k] = boolInt(p >= 0)
		}
		return runtime.NewLogicalVector(out), nil
	})
	i.alias("is.element", "%in%")
	i.def("unique", "x", func(c *CallContext) (runtime.Value, error) {
		x, err := c.ArgOr(0, runtime.Null)
		if err != nil {
			return nil, err
		}
		vec, ok := x.(runtime.Vector)
		if !ok {
			return x, nil
		}
		return uniqueVector(vec), nil
	})
	i.def("duplicated", "x", func(c *CallContext) (runtime.Value, error) {
		vec, err := c.vectorArg(0)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		out := make([]int32, vec.Len())
		for k := range out {
			key := elementKey(vec, k)
			out[k] = boolInt(seen[key])
			seen[key] = true
		}
		return runtime.NewLogicalVector(out), nil
	})
	i.def("anyDuplicated", "x", func(c *CallContext) (runtime.Value, error) {
		vec, err := c.vectorArg(0)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		for k := 0; k < vec.Len(); k++ {
			key := elementKey(vec, k)
			if seen[key] {
				return runtime.IntScalar(k + 1), nil
			}
			seen[key] = true
		}
		return runtime.IntScalar(0), nil
	})
	i.def("sort", "x, decreasing", builtinSort)
	i.def("order", "..., decreasing, na.last", builtinOrder)
	i.def("rank", "x", builtinRank)
	i.def("union", "x, y", setOperation(func(inX, inY bool) bool { return true }))
	i.def("intersect", "x, y", setOperation(func(inX, inY bool) bool { return inX && inY }))
	i.def("setdiff", "x, y", setOperation(func(inX, inY bool) bool { return inX && !inY }))
	i.def("tabulate", "bin, nbins", builtinTabulate)
	i.def("table", "...", builtinTable)
}

func (c *CallContext) vectorArg(k int) (runtime.Vector, error) {
	x, err := c.ArgOr(k, runtime.Null)
	if err != nil {
		return nil, err
	}
	if x.Kind() == runtime.KindNull {
		return runtime.NewLogicalVector(nil), nil
	}
	vec, ok := x.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("%s() applies only to vectors", c.Name())
	}
	return vec, nil
}

// elementKey identifies element k for hashing: equal keys mean the elements
// match under match() semantics.
func elementKey(v runtime.Vector, k int) string {
	switch vec := v.(type) {
	case *runtime.LogicalVector:
		if vec.Data[k] == runtime.NALogical {
			return "NA"
		}
		return strconv.Itoa(int(vec.Data[k]))
	case *runtime.IntegerVector:
		if vec.Data[k] == runtime.NAInteger {
			return "NA"
		}
		return strconv.Itoa(int(vec.Data[k]))
	case *runtime.DoubleVector:
		return doubleKey(vec.Data[k])
	case *runtime.ComplexVector:
		z := vec.Data[k]
		return doubleKey(real(z)) + "," + doubleKey(imag(z))
	case *runtime.CharacterVector:
		if vec.Data[k].NA {
			return "\x00NA"
		}
		return "s" + vec.Data[k].Val
	case *runtime.RawVector:
		return strconv.Itoa(int(vec.Data[k]))
	case *runtime.ListValue:
		return runtime.DeparseValue(vec.Data[k])
	}
	return ""
}

func doubleKey(x float64) string {
	switch {
	case runtime.IsNAReal(x):
		return "NA"
	case math.IsNaN(x):
		return "NaN"
	case x == 0:
		return "0"
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// commonVectors converts factors to labels and brings x and table to one
// kind.
func commonVectors(x, table runtime.Value) (runtime.Vector, runtime.Vector, error) {
	conv := func(v runtime.Value) (runtime.Vector, error) {
		if v.Kind() == runtime.KindNull {
			return runtime.NewLogicalVector(nil), nil
		}
		vec, ok := v.(runtime.Vector)
		if !ok {
			return nil, runtime.Errorf("'match' requires vector arguments")
		}
		if runtime.Inherits(vec, "factor") {
			return factorLabels(vec), nil
		}
		return vec, nil
	}
	xv, err := conv(x)
	if err != nil {
		return nil, nil, err
	}
	tv, err := conv(table)
	if err != nil {
		return nil, nil, err
	}
	kind := runtime.HigherKind(xv.Kind(), tv.Kind())
	if xv, _, err = runtime.CoerceVector(xv, kind); err != nil {
		return nil, nil, err
	}
	if tv, _, err = runtime.CoerceVector(tv, kind); err != nil {
		return nil, nil, err
	}
	return xv, tv, nil
}

func (c *CallContext) matchOperands() (runtime.Vector, runtime.Vector, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, nil, err
	}
	table, err := c.ArgOr(1, runtime.Null)
	if err != nil {
		return nil, nil, err
	}
	return commonVectors(x, table)
}

// matchPositions gives the zero-based first position of each x element in
// table, or -1.
func matchPositions(x, table runtime.Vector) []int {
	first := map[string]int{}
	for k := table.Len() - 1; k >= 0; k-- {
		first[elementKey(table, k)] = k
	}
	out := make([]int, x.Len())
	for k := range out {
		if p, ok := first[elementKey(x, k)]; ok {
			out[k] = p
		} else {
			out[k] = -1
		}
	}
	return out
}

func builtinMatch(c *CallContext) (runtime.Value, error) {
	x, table, err := c.matchOperands()
	if err != nil {
		return nil, err
	}
	nomatch := runtime.NAInteger
	if c.Has(2) {
		v, err := c.Arg(2)
		if err != nil {
			return nil, err
		}
		if nomatch, err = runtime.AsIntScalar(v); err != nil {
			return nil, err
		}
	}
	pos := matchPositions(x, table)
	out := make([]int32, len(pos))
	for k, p := range pos {
		if p < 0 {
			out[k] = nomatch
		} else {
			out[k] = int32(p + 1)
		}
	}
	return runtime.NewIntegerVector(out), nil
}

// uniqueVector keeps the first occurrence of each element, dropping names.
func uniqueVector(v runtime.Vector) runtime.Vector {
	seen := map[string]bool{}
	var keep []int
	for k := 0; k < v.Len(); k++ {
		key := elementKey(v, k)
		if !seen[key] {
			seen[key] = true
			keep = append(keep, k)
		}
	}
	out := v.Select(keep)
	keepFactorAttrs(v, out)
	return out
}

// compareElements orders two elements of one vector; NAs are not expected.
func compareElements(v runtime.Vector, a, b int) int {
	switch vec := v.(type) {
	case *runtime.LogicalVector:
		return compareInts(vec.Data[a], vec.Data[b])
	case *runtime.IntegerVector:
		return compareInts(vec.Data[a], vec.Data[b])
	case *runtime.DoubleVector:
		return compareFloats(vec.Data[a], vec.Data[b])
	case *runtime.ComplexVector:
		if c := compareFloats(real(vec.Data[a]), real(vec.Data[b])); c != 0 {
			return c
		}
		return compareFloats(imag(vec.Data[a]), imag(vec.Data[b]))
	case *runtime.CharacterVector:
		return CollateStrings(vec.Data[a].Val, vec.Data[b].Val)
	case *runtime.RawVector:
		return int(vec.Data[a]) - int(vec.Data[b])
	}
	return 0
}

// orderIndices returns a stable ordering of 0..n-1 by keys, ties broken by
// later keys. NAs sort last unless dropNA removes them.
func orderIndices(keys []runtime.Vector, decreasing bool, dropNA bool) []int {
	if len(keys) == 0 {
		return nil
	}
	n := keys[0].Len()
	idx := make([]int, 0, n)
	for k := 0; k < n; k++ {
		if dropNA && keys[0].IsNA(k) {
			continue
		}
		idx = append(idx, k)
	}
	sort.SliceStable(idx, func(p, q int) bool {
		a, b := idx[p], idx[q]
		for _, key := range keys {
			naA, naB := key.IsNA(a), key.IsNA(b)
			switch {
			case naA && naB:
				continue
			case naA:
				return false
			case naB:
				return true
			}
			cmp := compareElements(key, a, b)
			if decreasing {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return idx
}

// sortVector sorts v, dropping NAs and keeping names and factor levels.
func sortVector(v runtime.Vector, decreasing bool) runtime.Vector {
	idx := orderIndices([]runtime.Vector{v}, decreasing, true)
	out, _ := subsetVector(v, positions(idx))
	return out.(runtime.Vector)
}

func builtinSort(c *CallContext) (runtime.Value, error) {
	x, err := c.ArgOr(0, runtime.Null)
	if err != nil {
		return nil, err
	}
	if x.Kind() == runtime.KindNull {
		return runtime.Null, nil
	}
	vec, ok := x.(runtime.Vector)
	if !ok || vec.Kind() == runtime.KindList {
		return nil, runtime.Errorf("'x' must be atomic")
	}
	args := []Arg{{Value: x}}
	if c.Has(1) {
		args = append(args, Arg{Name: "decreasing", Value: c.Args[1].Value})
	}
	if res, handled, err := c.dispatchInternal("sort", x, args); handled {
		return res, err
	}
	decreasing, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	out := sortVector(vec, decreasing)
	if a := out.Attributes(); a.Get("dim") != nil {
		runtime.SetAttrRaw(out, "dim", runtime.Null)
		runtime.SetAttrRaw(out, "dimnames", runtime.Null)
	}
	return out, nil
}

func builtinOrder(c *CallContext) (runtime.Value, error) {
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	decreasing, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	naLast, err := c.ArgOr(2, runtime.LogicalScalar(true))
	if err != nil {
		return nil, err
	}
	nl, err := runtime.AsLogicalScalar(naLast)
	if err != nil {
		return nil, err
	}
	var keys []runtime.Vector
	for _, v := range vals {
		vec, ok := v.(runtime.Vector)
		if !ok || vec.Kind() == runtime.KindList {
			return nil, runtime.Errorf("argument %d is not a vector", len(keys)+1)
		}
		if len(keys) > 0 && vec.Len() != keys[0].Len() {
			return nil, runtime.Errorf("argument lengths differ")
		}
		keys = append(keys, vec)
	}
	idx := orderIndices(keys, decreasing, nl == runtime.NALogical)
	if nl == 0 {
		var na, rest []int
		for _, k := range idx {
			if keys[0].IsNA(k) {
				na = append(na, k)
			} else {
				rest = append(rest, k)
			}
		}
		idx = append(na, rest...)
	}
	return positions(idx), nil
}

func builtinRank(c *CallContext) (runtime.Value, error) {
	vec, err := c.vectorArg(0)
	if err != nil {
		return nil, err
	}
	idx := orderIndices([]runtime.Vector{vec}, false, false)
	out := make([]float64, vec.Len())
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && !vec.IsNA(idx[start]) && !vec.IsNA(idx[end]) && compareElements(vec, idx[start], idx[end]) == 0 {
			end++
		}
		avg := float64(start+end+1) / 2
		for _, k := range idx[start:end] {
			if vec.IsNA(k) {
				out[k] = runtime.NAReal
			} else {
				out[k] = avg
			}
		}
		start = end
	}
	res := runtime.NewDoubleVector(out)
	if names := runtime.Names(vec); names != nil {
		runtime.SetAttrRaw(res, "names", names)
	}
	return res, nil
}

// setOperation builds union, intersect and setdiff: the unique elements of
// c(x, y) kept by keep, evaluated on membership in x and in y.
func setOperation(keep func(inX, inY bool) bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, y, err := c.matchOperands()
		if err != nil {
			return nil, err
		}
		x = runtime.StripAttributes(x)
		y = runtime.StripAttributes(y)
		inY := map[string]bool{}
		for k := 0; k < y.Len(); k++ {
			inY[elementKey(y, k)] = true
		}
		inX := map[string]bool{}
		for k := 0; k < x.Len(); k++ {
			inX[elementKey(x, k)] = true
		}
		all, err := combineValues([]Arg{{Value: x}, {Value: y}}, false)
		if err != nil {
			return nil, err
		}
		if c.Name() != "union" {
			all = x
		}
		vec, ok := all.(runtime.Vector)
		if !ok {
			return runtime.NewLogicalVector(nil), nil
		}
		uniq := uniqueVector(vec)
		var sel []int
		for k := 0; k < uniq.Len(); k++ {
			key := elementKey(uniq, k)
			if keep(inX[key], inY[key]) {
				sel = append(sel, k)
			}
		}
		return uniq.Select(sel), nil
	}
}

func builtinTabulate(c *CallContext) (runtime.Value, error) {
	bin, err := c.vectorArg(0)
	if err != nil {
		return nil, err
	}
	codes := asInts(bin)
	nbins := 0
	for _, v := range codes {
		if v != runtime.NAInteger && int(v) > nbins {
			nbins = int(v)
		}
	}
	if nbins, err = c.intArg(1, nbins); err != nil {
		return nil, err
	}
	out := make([]int32, nbins)
	for _, v := range codes {
		if v != runtime.NAInteger && v >= 1 && int(v) <= nbins {
			out[v-1]++
		}
	}
	return runtime.NewIntegerVector(out), nil
}

// builtinTable counts the levels of a single factor or vector.
func builtinTable(c *CallContext) (runtime.Value, error) {
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, runtime.Errorf("only one-way tables are supported")
	}
	vec, ok := vals[0].(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("all arguments must have the same length")
	}
	var levels *runtime.CharacterVector
	var codes []int32
	if runtime.Inherits(vec, "factor") {
		levels, _ = runtime.GetAttr(vec, "levels").(*runtime.CharacterVector)
		codes = asInts(vec)
	} else {
		uniq := uniqueVector(runtime.StripAttributes(vec))
		sorted := sortVector(uniq, false)
		lv, _, err := runtime.CoerceVector(sorted, runtime.KindCharacter)
		if err != nil {
			return nil, err
		}
		levels = lv.(*runtime.CharacterVector)
		pos := matchPositions(vec, sorted)
		codes = make([]int32, len(pos))
		for k, p := range pos {
			codes[k] = int32(p + 1)
			if p < 0 {
				codes[k] = runtime.NAInteger
			}
		}
	}
	if levels == nil {
		levels = runtime.NewCharacterVector(nil)
	}
	counts := make([]int32, levels.Len())
	for _, code := range codes {
		if code != runtime.NAInteger && code >= 1 && int(code) <= len(counts) {
			counts[code-1]++
		}
	}
	out := runtime.NewIntegerVector(counts)
	runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector([]int32{int32(len(counts))}))
	dn := runtime.NewList([]runtime.Value{levels})
	name := ""
	if len(c.Dots) > 0 {
		name = c.Dots[0].Name
	}
	runtime.SetAttrRaw(dn, "names", runtime.StringVector(name))
	runtime.SetAttrRaw(out, "dimnames", dn)
	runtime.SetAttrRaw(out, "class", runtime.StringScalar("table"))
	return out, nil
}
