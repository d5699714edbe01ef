package interpreter

import (
	"math"

	"rcore/interpreter-go/pkg/runtime"
)

// resolveIndex turns one subscript into 0-based positions against an
// extent of n. Positions past n are kept (extraction yields NA, assignment
// extends); -1 marks an NA subscript. extra holds the names of positions
// created by unmatched character subscripts when assigning.
func resolveIndex(idx runtime.Value, n int, names *runtime.CharacterVector, assigning bool) (pos []int, extra []string, err error) {
	switch v := idx.(type) {
	case nil, *runtime.MissingValue:
		pos = make([]int, n)
		for k := range pos {
			pos[k] = k
		}
		return pos, nil, nil
	case *runtime.NullValue:
		return []int{}, nil, nil
	case *runtime.LogicalVector:
		m := n
		if v.Len() > m {
			m = v.Len()
		}
		if v.Len() == 0 {
			return []int{}, nil, nil
		}
		for k := 0; k < m; k++ {
			switch b := v.Data[k%v.Len()]; {
			case b == runtime.NALogical:
				pos = append(pos, -1)
			case b != 0:
				pos = append(pos, k)
			}
		}
		if pos == nil {
			pos = []int{}
		}
		return pos, nil, nil
	case *runtime.IntegerVector, *runtime.DoubleVector:
		return numericIndex(v.(runtime.Vector), n)
	case *runtime.CharacterVector:
		pos = make([]int, v.Len())
		created := map[string]int{}
		for k, s := range v.Data {
			pos[k] = -1
			if s.NA {
				continue
			}
			if names != nil {
				found := false
				for j, nm := range names.Data {
					if !nm.NA && nm.Val == s.Val && s.Val != "" {
						pos[k] = j
						found = true
						break
					}
				}
				if found {
					continue
				}
			}
			if !assigning {
				pos[k] = n
				continue
			}
			if at, ok := created[s.Val]; ok {
				pos[k] = at
				continue
			}
			at := n + len(extra)
			created[s.Val] = at
			extra = append(extra, s.Val)
			pos[k] = at
		}
		return pos, extra, nil
	}
	return nil, nil, runtime.Errorf("invalid subscript type '%s'", idx.Kind())
}

func numericIndex(v runtime.Vector, n int) ([]int, []string, error) {
	dv, _, err := runtime.CoerceVector(v, runtime.KindDouble)
	if err != nil {
		return nil, nil, err
	}
	data := dv.(*runtime.DoubleVector).Data
	hasNeg, hasPos, hasNA := false, false, false
	for _, x := range data {
		switch {
		case math.IsNaN(x):
			hasNA = true
		case x <= -1:
			hasNeg = true
		case x >= 1:
			hasPos = true
		}
	}
	if hasNeg {
		if hasPos || hasNA {
			return nil, nil, runtime.Errorf("can't mix positive and negative subscripts")
		}
		drop := make([]bool, n)
		for _, x := range data {
			k := int(-x) - 1
			if k >= 0 && k < n {
				drop[k] = true
			}
		}
		pos := make([]int, 0, n)
		for k := 0; k < n; k++ {
			if !drop[k] {
				pos = append(pos, k)
			}
		}
		return pos, nil, nil
	}
	pos := make([]int, 0, len(data))
	for _, x := range data {
		switch {
		case math.IsNaN(x):
			pos = append(pos, -1)
		case x >= 1:
			if x > math.MaxInt32 {
				return nil, nil, runtime.Errorf("subscript too large")
			}
			pos = append(pos, int(x)-1)
		}
	}
	return pos, nil, nil
}

// subsetVector implements x[i] for a vector without dim handling.
func subsetVector(x runtime.Vector, idx runtime.Value) (runtime.Value, error) {
	n := x.Len()
	names := runtime.Names(x)
	pos, _, err := resolveIndex(idx, n, names, false)
	if err != nil {
		return nil, err
	}
	sel := make([]int, len(pos))
	for k, p := range pos {
		if p >= n {
			sel[k] = -1
		} else {
			sel[k] = p
		}
	}
	out := x.Select(sel)
	if names != nil {
		nm := make([]runtime.Str, len(sel))
		for k, p := range sel {
			if p >= 0 {
				nm[k] = names.Data[p]
			} else {
				nm[k] = runtime.NAString
			}
		}
		runtime.SetAttrRaw(out, "names", runtime.NewCharacterVector(nm))
	}
	keepFactorAttrs(x, out)
	return out, nil
}

// keepFactorAttrs carries levels and class over when subsetting a factor.
func keepFactorAttrs(from, to runtime.Vector) {
	if !runtime.Inherits(from, "factor") {
		return
	}
	runtime.SetAttrRaw(to, "levels", runtime.GetAttr(from, "levels"))
	runtime.SetAttrRaw(to, "class", runtime.GetAttr(from, "class"))
}

func dimnamesList(x runtime.Value) *runtime.ListValue {
	dn, _ := runtime.GetAttr(x, "dimnames").(*runtime.ListValue)
	return dn
}

func dimnameAt(dn *runtime.ListValue, k int) *runtime.CharacterVector {
	if dn == nil || k >= len(dn.Data) {
		return nil
	}
	cv, _ := dn.Data[k].(*runtime.CharacterVector)
	return cv
}

// subsetArray implements x[i, j, ...] for arrays.
func subsetArray(x runtime.Vector, indices []runtime.Value, drop bool) (runtime.Value, error) {
	dims := runtime.Dim(x)
	if len(indices) != len(dims) {
		return nil, runtime.Errorf("incorrect number of dimensions")
	}
	dn := dimnamesList(x)
	positions := make([][]int, len(dims))
	for k, idx := range indices {
		pos, _, err := resolveIndex(idx, dims[k], dimnameAt(dn, k), false)
		if err != nil {
			return nil, err
		}
		for _, p := range pos {
			if p < 0 || p >= dims[k] {
				return nil, runtime.Errorf("subscript out of bounds")
			}
		}
		positions[k] = pos
	}
	sel := arrayOffsets(dims, positions)
	out := x.Select(sel)

	newDims := make([]int, len(dims))
	for k := range dims {
		newDims[k] = len(positions[k])
	}
	var newDn []runtime.Value
	if dn != nil {
		newDn = make([]runtime.Value, len(dims))
		for k := range dims {
			if names := dimnameAt(dn, k); names != nil {
				newDn[k] = names.Select(positions[k])
			} else {
				newDn[k] = runtime.Null
			}
		}
	}
	keep := make([]int, 0, len(dims))
	for k, d := range newDims {
		if !drop || d != 1 {
			keep = append(keep, k)
		}
	}
	if drop && len(keep) <= 1 {
		if len(keep) == 1 && newDn != nil {
			if names, ok := newDn[keep[0]].(*runtime.CharacterVector); ok {
				runtime.SetAttrRaw(out, "names", names)
			}
		}
		return out, nil
	}
	if !drop {
		keep = keep[:0]
		for k := range newDims {
			keep = append(keep, k)
		}
	}
	d := make([]int32, len(keep))
	for j, k := range keep {
		d[j] = int32(newDims[k])
	}
	runtime.SetAttrRaw(out, "dim", runtime.NewIntegerVector(d))
	if newDn != nil {
		kept := make([]runtime.Value, len(keep))
		hasNames := false
		for j, k := range keep {
			kept[j] = newDn[k]
			if newDn[k].Kind() != runtime.KindNull {
				hasNames = true
			}
		}
		if hasNames {
			list := runtime.NewList(kept)
			if dnNames := runtime.Names(dn); dnNames != nil {
				nm := make([]runtime.Str, len(keep))
				for j, k := range keep {
					nm[j] = dnNames.Data[k]
				}
				runtime.SetAttrRaw(list, "names", runtime.NewCharacterVector(nm))
			}
			runtime.SetAttrRaw(out, "dimnames", list)
		}
	}
	return out, nil
}

// arrayOffsets enumerates column-major offsets of the selected cells.
func arrayOffsets(dims []int, positions [][]int) []int {
	total := 1
	for _, p := range positions {
		total *= len(p)
	}
	out := make([]int, 0, total)
	if total == 0 {
		return out
	}
	counter := make([]int, len(dims))
	for {
		off, stride := 0, 1
		for k := range dims {
			off += positions[k][counter[k]] * stride
			stride *= dims[k]
		}
		out = append(out, off)
		k := 0
		for ; k < len(dims); k++ {
			counter[k]++
			if counter[k] < len(positions[k]) {
				break
			}
			counter[k] = 0
		}
		if k == len(dims) {
			return out
		}
	}
}

// elementIndex resolves the single subscript of x[[i]] to a position; -1
// with a nil error means a missing name.
func elementIndex(x runtime.Value, idx runtime.Value, exact bool) (int, error) {
	n := runtime.Length(x)
	if runtime.Length(idx) != 1 {
		if runtime.Length(idx) == 0 {
			return 0, runtime.Errorf("subscript of length 0")
		}
		return 0, runtime.Errorf("subscript out of bounds")
	}
	switch v := idx.(type) {
	case *runtime.CharacterVector:
		if v.Data[0].NA {
			return -1, nil
		}
		names := runtime.Names(x)
		if names == nil {
			return -1, nil
		}
		for k, nm := range names.Data {
			if !nm.NA && nm.Val == v.Data[0].Val {
				return k, nil
			}
		}
		if !exact {
			found := -1
			for k, nm := range names.Data {
				if !nm.NA && len(nm.Val) > len(v.Data[0].Val) && nm.Val[:len(v.Data[0].Val)] == v.Data[0].Val {
					if found >= 0 {
						return -1, nil
					}
					found = k
				}
			}
			return found, nil
		}
		return -1, nil
	case *runtime.IntegerVector, *runtime.DoubleVector, *runtime.LogicalVector:
		x, err := runtime.AsDoubleScalar(v)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(x) {
			return -1, nil
		}
		k := int(x)
		if k < 0 {
			if n == 2 && (k == -1 || k == -2) {
				return 2 + k, nil
			}
			return 0, runtime.Errorf("invalid negative subscript in get1index <real>")
		}
		if k == 0 || k > n {
			return 0, runtime.Errorf("subscript out of bounds")
		}
		return k - 1, nil
	}
	return 0, runtime.Errorf("invalid subscript type '%s'", idx.Kind())
}

// getElement implements x[[i]].
func getElement(x runtime.Value, indices []runtime.Value, exact bool) (runtime.Value, error) {
	switch v := x.(type) {
	case *runtime.NullValue:
		return runtime.Null, nil
	case *runtime.Environment:
		if len(indices) != 1 {
			return nil, runtime.Errorf("wrong arguments for subsetting an environment")
		}
		name, ok := runtime.AsStringScalar(indices[0])
		if !ok || indices[0].Kind() != runtime.KindCharacter {
			return nil, runtime.Errorf("wrong arguments for subsetting an environment")
		}
		val, found := v.GetLocal(name)
		if !found {
			return runtime.Null, nil
		}
		return val, nil
	case runtime.Vector:
		if len(indices) > 1 {
			return getArrayElement(v, indices)
		}
		if v.Kind() == runtime.KindList && runtime.Length(indices[0]) > 1 {
			return getRecursive(v, indices[0], exact)
		}
		k, err := elementIndex(v, indices[0], exact)
		if err != nil {
			return nil, err
		}
		if k < 0 {
			if v.Kind() == runtime.KindList {
				return runtime.Null, nil
			}
			return nil, runtime.Errorf("subscript out of bounds")
		}
		if list, ok := v.(*runtime.ListValue); ok {
			runtime.MarkShared(list.Data[k])
			return list.Data[k], nil
		}
		return v.Select([]int{k}), nil
	case *runtime.LanguageValue:
		return languageElement(v, indices[0])
	}
	return nil, runtime.Errorf("object of type '%s' is not subsettable", x.Kind())
}

func getRecursive(list runtime.Value, idx runtime.Value, exact bool) (runtime.Value, error) {
	vec := idx.(runtime.Vector)
	cur := list
	for k := 0; k < vec.Len(); k++ {
		next, err := getElement(cur, []runtime.Value{vec.Select([]int{k})}, exact)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func getArrayElement(x runtime.Vector, indices []runtime.Value) (runtime.Value, error) {
	dims := runtime.Dim(x)
	if len(dims) != len(indices) {
		return nil, runtime.Errorf("incorrect number of subscripts")
	}
	dn := dimnamesList(x)
	off, stride := 0, 1
	for k, idx := range indices {
		pos, _, err := resolveIndex(idx, dims[k], dimnameAt(dn, k), false)
		if err != nil {
			return nil, err
		}
		if len(pos) != 1 || pos[0] < 0 || pos[0] >= dims[k] {
			return nil, runtime.Errorf("subscript out of bounds")
		}
		off += pos[0] * stride
		stride *= dims[k]
	}
	if list, ok := x.(*runtime.ListValue); ok {
		return list.Data[off], nil
	}
	return x.Select([]int{off}), nil
}

// dollar implements x$name with partial matching on lists.
func dollar(x runtime.Value, name string) (runtime.Value, error) {
	switch v := x.(type) {
	case *runtime.NullValue:
		return runtime.Null, nil
	case *runtime.Environment:
		val, ok := v.GetLocal(name)
		if !ok {
			return runtime.Null, nil
		}
		return val, nil
	case *runtime.ListValue:
		k, err := elementIndex(v, runtime.StringScalar(name), false)
		if err != nil || k < 0 {
			return runtime.Null, err
		}
		runtime.MarkShared(v.Data[k])
		return v.Data[k], nil
	case runtime.Vector:
		return nil, runtime.Errorf("$ operator is invalid for atomic vectors")
	}
	return nil, runtime.Errorf("object of type '%s' is not subsettable", x.Kind())
}

// assignVector implements x[i] <- value for vectors without dims.
func (c *CallContext) assignVector(x runtime.Value, idx runtime.Value, value runtime.Value) (runtime.Value, error) {
	if x.Kind() == runtime.KindNull {
		if value.Kind() == runtime.KindNull {
			return runtime.Null, nil
		}
		empty, err := runtime.NewVector(vectorKindOf(value), 0)
		if err != nil {
			return nil, err
		}
		x = empty
	}
	target, ok := x.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("object of type '%s' is not subsettable", x.Kind())
	}
	n := target.Len()
	pos, extra, err := resolveIndex(idx, n, runtime.Names(target), true)
	if err != nil {
		return nil, err
	}
	if value.Kind() == runtime.KindNull {
		if target.Kind() == runtime.KindList {
			return deleteElements(target, pos), nil
		}
		if len(pos) == 0 {
			return target, nil
		}
		return nil, runtime.Errorf("replacement has length zero")
	}
	src, target, err := c.unifyForAssign(target, value)
	if err != nil {
		return nil, err
	}
	m := src.Len()
	if m == 0 {
		if len(pos) == 0 {
			return target, nil
		}
		return nil, runtime.Errorf("replacement has length zero")
	}
	if len(pos)%m != 0 {
		if err := c.Warn("number of items to replace is not a multiple of replacement length"); err != nil {
			return nil, err
		}
	}
	maxPos := n - 1
	for _, p := range pos {
		if p > maxPos {
			maxPos = p
		}
	}
	if maxPos >= n {
		extendVector(target, maxPos+1, n, extra)
	}
	for k, p := range pos {
		if p < 0 {
			if m > 1 {
				return nil, runtime.Errorf("NAs are not allowed in subscripted assignments")
			}
			continue
		}
		target.Assign(p, src, k%m)
	}
	return target, nil
}

// unifyForAssign coerces target and value to a common kind, returning a
// target that may be modified in place.
func (c *CallContext) unifyForAssign(target runtime.Vector, value runtime.Value) (runtime.Vector, runtime.Vector, error) {
	kind := runtime.HigherKind(target.Kind(), vectorKindOf(value))
	if target.Kind() == runtime.KindList {
		kind = runtime.KindList
	}
	var tv runtime.Vector
	if target.Kind() == kind {
		tv = c.Mutable(target).(runtime.Vector)
	} else {
		coerced, _, err := runtime.CoerceVector(target, kind)
		if err != nil {
			return nil, nil, err
		}
		tv = coerced
	}
	var src runtime.Vector
	if kind == runtime.KindList && value.Kind() != runtime.KindList {
		if vec, ok := value.(runtime.Vector); ok {
			coerced, _, err := runtime.CoerceVector(runtime.StripAttributes(vec), runtime.KindList)
			if err != nil {
				return nil, nil, err
			}
			src = coerced
		} else {
			src = runtime.NewList([]runtime.Value{value})
		}
	} else {
		coerced, _, err := runtime.CoerceVector(value, kind)
		if err != nil {
			return nil, nil, err
		}
		src = coerced
	}
	return src, tv, nil
}

func vectorKindOf(v runtime.Value) runtime.Kind {
	if v.Kind().IsAtomic() || v.Kind() == runtime.KindList {
		return v.Kind()
	}
	return runtime.KindList
}

// extendVector grows v to size, naming new cells from extra.
func extendVector(v runtime.Vector, size, oldLen int, extra []string) {
	names := runtime.Names(v)
	v.Resize(size)
	if names == nil && len(extra) == 0 {
		return
	}
	nm := make([]runtime.Str, size)
	if names != nil {
		copy(nm, names.Data)
	}
	for k := oldLen; k < size; k++ {
		nm[k] = runtime.S("")
	}
	for k, name := range extra {
		if oldLen+k < size {
			nm[oldLen+k] = runtime.S(name)
		}
	}
	runtime.SetAttrRaw(v, "names", runtime.NewCharacterVector(nm))
}

func deleteElements(list runtime.Vector, pos []int) runtime.Value {
	n := list.Len()
	drop := make(map[int]bool, len(pos))
	for _, p := range pos {
		if p >= 0 && p < n {
			drop[p] = true
		}
	}
	keep := make([]int, 0, n)
	for k := 0; k < n; k++ {
		if !drop[k] {
			keep = append(keep, k)
		}
	}
	out := list.Select(keep)
	if names := runtime.Names(list); names != nil {
		runtime.SetAttrRaw(out, "names", names.Select(keep))
	}
	list.Attributes().Each(func(name string, v runtime.Value) {
		if name != "names" && name != "dim" && name != "dimnames" {
			runtime.SetAttrRaw(out, name, v)
		}
	})
	return out
}

// assignArray implements x[i, j, ...] <- value.
func (c *CallContext) assignArray(x runtime.Vector, indices []runtime.Value, value runtime.Value) (runtime.Value, error) {
	dims := runtime.Dim(x)
	if len(indices) != len(dims) {
		return nil, runtime.Errorf("incorrect number of subscripts")
	}
	dn := dimnamesList(x)
	positions := make([][]int, len(dims))
	for k, idx := range indices {
		pos, _, err := resolveIndex(idx, dims[k], dimnameAt(dn, k), false)
		if err != nil {
			return nil, err
		}
		for _, p := range pos {
			if p < 0 || p >= dims[k] {
				return nil, runtime.Errorf("subscript out of bounds")
			}
		}
		positions[k] = pos
	}
	offsets := arrayOffsets(dims, positions)
	src, target, err := c.unifyForAssign(x, value)
	if err != nil {
		return nil, err
	}
	m := src.Len()
	if m == 0 {
		if len(offsets) == 0 {
			return target, nil
		}
		return nil, runtime.Errorf("replacement has length zero")
	}
	if len(offsets)%m != 0 {
		return nil, runtime.Errorf("number of items to replace is not a multiple of replacement length")
	}
	for k, off := range offsets {
		target.Assign(off, src, k%m)
	}
	return target, nil
}

// setElement implements x[[i]] <- value.
func (c *CallContext) setElement(x runtime.Value, idx runtime.Value, value runtime.Value) (runtime.Value, error) {
	if env, ok := x.(*runtime.Environment); ok {
		name, ok := runtime.AsStringScalar(idx)
		if !ok {
			return nil, runtime.Errorf("wrong args for environment subassignment")
		}
		env.Define(name, value)
		return env, nil
	}
	if x.Kind() == runtime.KindNull {
		if value.Kind() == runtime.KindNull {
			return runtime.Null, nil
		}
		if vec, ok := value.(runtime.Vector); ok && vec.Kind().IsAtomic() && vec.Len() == 1 {
			empty, _ := runtime.NewVector(vec.Kind(), 0)
			x = empty
		} else {
			x = runtime.NewList(nil)
		}
	}
	target, ok := x.(runtime.Vector)
	if !ok {
		return nil, runtime.Errorf("object of type '%s' is not subsettable", x.Kind())
	}
	if runtime.Length(idx) != 1 {
		if runtime.Length(idx) == 0 {
			return nil, runtime.Errorf("[[ ]] with missing subscript")
		}
		return nil, runtime.Errorf("[[ ]] subscript out of bounds")
	}
	n := target.Len()
	pos, extra, err := resolveIndex(idx, n, runtime.Names(target), true)
	if err != nil {
		return nil, err
	}
	if len(pos) != 1 || pos[0] < 0 {
		return nil, runtime.Errorf("[[ ]] subscript out of bounds")
	}
	p := pos[0]
	if target.Kind() == runtime.KindList {
		if value.Kind() == runtime.KindNull {
			return deleteElements(target, pos), nil
		}
		list := c.Mutable(target).(*runtime.ListValue)
		if p >= n {
			extendVector(list, p+1, n, extra)
		}
		runtime.MarkShared(value)
		list.Data[p] = value
		return list, nil
	}
	vec, ok := value.(runtime.Vector)
	if !ok || vec.Kind() == runtime.KindList {
		list, _, err := runtime.CoerceVector(target, runtime.KindList)
		if err != nil {
			return nil, err
		}
		return c.setElement(list, idx, value)
	}
	if vec.Len() == 0 {
		return nil, runtime.Errorf("replacement has length zero")
	}
	if vec.Len() > 1 {
		return nil, runtime.Errorf("more elements supplied than there are to replace")
	}
	src, tv, err := c.unifyForAssign(target, vec)
	if err != nil {
		return nil, err
	}
	if p >= n {
		extendVector(tv, p+1, n, extra)
	}
	tv.Assign(p, src, 0)
	return tv, nil
}

// setDollar implements x$name <- value.
func (c *CallContext) setDollar(x runtime.Value, name string, value runtime.Value) (runtime.Value, error) {
	switch v := x.(type) {
	case *runtime.Environment:
		v.Define(name, value)
		return v, nil
	case *runtime.NullValue:
		if value.Kind() == runtime.KindNull {
			return runtime.Null, nil
		}
		return c.setElement(runtime.NewList(nil), runtime.StringScalar(name), value)
	case *runtime.ListValue:
		return c.setElement(v, runtime.StringScalar(name), value)
	case runtime.Vector:
		if err := c.Warn("Coercing LHS to a list"); err != nil {
			return nil, err
		}
		list, _, err := runtime.CoerceVector(v, runtime.KindList)
		if err != nil {
			return nil, err
		}
		return c.setElement(list, runtime.StringScalar(name), value)
	}
	return nil, runtime.Errorf("invalid type for $ assignment")
}
