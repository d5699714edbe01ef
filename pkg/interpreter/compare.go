package interpreter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// comparisonOperand turns an operand of a relational operator into an
// atomic vector. Symbols and calls compare as their deparsed text; lists
// must unwrap to length-one atomics.
func comparisonOperand(v runtime.Value, op string) (runtime.Vector, error) {
	switch val := v.(type) {
	case *runtime.NullValue:
		return runtime.NewLogicalVector(nil), nil
	case *runtime.SymbolValue:
		return runtime.StringScalar(val.Name), nil
	case *runtime.LanguageValue:
		return runtime.StringScalar(ast.Deparse(val.Expr)), nil
	case runtime.Vector:
		return val, nil
	}
	return nil, runtime.Errorf("comparison (%s) is possible only for atomic and list types", op)
}

// compareValues evaluates x op y for == != < > <= >=.
func (c *CallContext) compareValues(op string, xv, yv runtime.Value) (runtime.Value, error) {
	x, err := comparisonOperand(xv, op)
	if err != nil {
		return nil, err
	}
	y, err := comparisonOperand(yv, op)
	if err != nil {
		return nil, err
	}
	kind := runtime.HigherKind(x.Kind(), y.Kind())
	if kind == runtime.KindList {
		if x.Kind() == runtime.KindList && y.Kind() == runtime.KindList {
			return nil, runtime.Errorf("comparison of these types is not implemented")
		}
		other := y
		if y.Kind() == runtime.KindList {
			other = x
		}
		kind = other.Kind()
		if kind == runtime.KindLogical || kind == runtime.KindInteger || kind == runtime.KindRaw {
			kind = runtime.KindDouble
		}
	}
	if kind == runtime.KindRaw || kind == runtime.KindLogical {
		kind = runtime.KindInteger
	}
	xs, _, err := runtime.CoerceVector(runtime.StripAttributes(x), kind)
	if err != nil {
		return nil, err
	}
	ys, _, err := runtime.CoerceVector(runtime.StripAttributes(y), kind)
	if err != nil {
		return nil, err
	}
	shape, err := c.recycle(x, y)
	if err != nil {
		return nil, err
	}
	out := make([]int32, shape.n)
	for k := range out {
		i, j := k%xs.Len(), k%ys.Len()
		if xs.IsNA(i) || ys.IsNA(j) {
			out[k] = runtime.NALogical
			continue
		}
		var cmp int
		switch kind {
		case runtime.KindInteger:
			cmp = compareInts(xs.(*runtime.IntegerVector).Data[i], ys.(*runtime.IntegerVector).Data[j])
		case runtime.KindDouble:
			cmp = compareFloats(xs.(*runtime.DoubleVector).Data[i], ys.(*runtime.DoubleVector).Data[j])
		case runtime.KindComplex:
			if op != "==" && op != "!=" {
				return nil, runtime.Errorf("invalid comparison with complex values")
			}
			if xs.(*runtime.ComplexVector).Data[i] != ys.(*runtime.ComplexVector).Data[j] {
				cmp = 1
			}
		case runtime.KindCharacter:
			cmp = CollateStrings(xs.(*runtime.CharacterVector).Data[i].Val, ys.(*runtime.CharacterVector).Data[j].Val)
		}
		out[k] = boolInt(relation(op, cmp))
	}
	res := runtime.NewLogicalVector(out)
	copyBinaryAttributes(res, x, y, shape, false)
	return res, nil
}

func compareInts(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func relation(op string, cmp int) bool {
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// CollateStrings orders strings the way an English locale does: letters
// compare case-insensitively first, then lowercase sorts before uppercase,
// and punctuation sorts before digits and letters.
func CollateStrings(a, b string) int {
	if a == b {
		return 0
	}
	if c := compareFolded(a, b); c != 0 {
		return c
	}
	// Same letters: lowercase first, position by position.
	for a != "" && b != "" {
		ra, sa := utf8.DecodeRuneInString(a)
		rb, sb := utf8.DecodeRuneInString(b)
		if ra != rb {
			if unicode.IsLower(ra) && unicode.IsUpper(rb) {
				return -1
			}
			if unicode.IsUpper(ra) && unicode.IsLower(rb) {
				return 1
			}
			return compareInts(int32(ra), int32(rb))
		}
		a, b = a[sa:], b[sb:]
	}
	return compareInts(int32(len(a)), int32(len(b)))
}

func compareFolded(a, b string) int {
	ka, kb := collationKey(a), collationKey(b)
	for k := 0; k < len(ka) && k < len(kb); k++ {
		if ka[k] != kb[k] {
			return compareInts(ka[k], kb[k])
		}
	}
	return compareInts(int32(len(ka)), int32(len(kb)))
}

func collationKey(s string) []int32 {
	out := make([]int32, 0, len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r):
			out = append(out, 0x20000+r)
		case unicode.IsDigit(r):
			out = append(out, 0x10000+r)
		default:
			out = append(out, r)
		}
	}
	return out
}

// logicalOperand converts an operand of & | ! to a logical vector.
func logicalOperand(v runtime.Value, op string) (runtime.Vector, error) {
	switch val := v.(type) {
	case *runtime.NullValue:
		return runtime.NewLogicalVector(nil), nil
	case *runtime.LogicalVector:
		return val, nil
	case *runtime.IntegerVector, *runtime.DoubleVector, *runtime.ComplexVector:
		lv, _, err := runtime.CoerceVector(runtime.StripAttributes(val.(runtime.Vector)), runtime.KindLogical)
		return lv, err
	}
	if op == "!" {
		return nil, runtime.Errorf("invalid argument type")
	}
	return nil, runtime.Errorf("operations are possible only for numeric, logical or complex types")
}

// logicalBinary evaluates x & y and x | y with three-valued logic.
func (c *CallContext) logicalBinary(op string, xv, yv runtime.Value) (runtime.Value, error) {
	if xr, ok := xv.(*runtime.RawVector); ok {
		if yr, ok := yv.(*runtime.RawVector); ok {
			return rawBitwise(op, xr, yr), nil
		}
	}
	x, err := logicalOperand(xv, op)
	if err != nil {
		return nil, err
	}
	y, err := logicalOperand(yv, op)
	if err != nil {
		return nil, err
	}
	shape, err := c.recycle(x, y)
	if err != nil {
		return nil, err
	}
	a, b := x.(*runtime.LogicalVector).Data, y.(*runtime.LogicalVector).Data
	out := make([]int32, shape.n)
	for k := range out {
		out[k] = logic3(op, a[k%len(a)], b[k%len(b)])
	}
	res := runtime.NewLogicalVector(out)
	xa, _ := xv.(runtime.Vector)
	ya, _ := yv.(runtime.Vector)
	if xa != nil && ya != nil {
		copyBinaryAttributes(res, xa, ya, shape, false)
	}
	return res, nil
}

func logic3(op string, p, q int32) int32 {
	na := runtime.NALogical
	if op == "&" {
		switch {
		case p == 0 || q == 0:
			return 0
		case p == na || q == na:
			return na
		}
		return 1
	}
	switch {
	case (p != 0 && p != na) || (q != 0 && q != na):
		return 1
	case p == na || q == na:
		return na
	}
	return 0
}

func rawBitwise(op string, x, y *runtime.RawVector) runtime.Value {
	n := 0
	if x.Len() > 0 && y.Len() > 0 {
		n = x.Len()
		if y.Len() > n {
			n = y.Len()
		}
	}
	out := make([]byte, n)
	for k := range out {
		if op == "&" {
			out[k] = x.Data[k%x.Len()] & y.Data[k%y.Len()]
		} else {
			out[k] = x.Data[k%x.Len()] | y.Data[k%y.Len()]
		}
	}
	return runtime.NewRawVector(out)
}

// logicalNot evaluates !x keeping names, dim and dimnames.
func logicalNot(xv runtime.Value) (runtime.Value, error) {
	if r, ok := xv.(*runtime.RawVector); ok {
		out := make([]byte, r.Len())
		for k, b := range r.Data {
			out[k] = ^b
		}
		return runtime.NewRawVector(out), nil
	}
	x, err := logicalOperand(xv, "!")
	if err != nil {
		return nil, err
	}
	data := x.(*runtime.LogicalVector).Data
	out := make([]int32, len(data))
	for k, b := range data {
		switch b {
		case runtime.NALogical:
			out[k] = runtime.NALogical
		case 0:
			out[k] = 1
		default:
			out[k] = 0
		}
	}
	res := runtime.NewLogicalVector(out)
	for _, name := range []string{"names", "dim", "dimnames"} {
		if v := runtime.GetAttr(xv, name); v != nil {
			runtime.SetAttrRaw(res, name, v)
		}
	}
	return res, nil
}

// scalarLogical evaluates one operand of && and ||.
func scalarLogical(v runtime.Value, side, op string) (int32, error) {
	switch val := v.(type) {
	case *runtime.LogicalVector, *runtime.IntegerVector, *runtime.DoubleVector, *runtime.ComplexVector, *runtime.CharacterVector:
		vec := val.(runtime.Vector)
		if vec.Len() > 1 {
			return 0, runtime.Errorf("'length = %d' in coercion to 'logical(1)'", vec.Len())
		}
		if vec.Len() == 0 {
			return runtime.NALogical, nil
		}
		b, err := runtime.AsLogicalScalar(vec)
		if err != nil {
			return 0, err
		}
		return b, nil
	}
	return 0, runtime.Errorf("invalid '%s' type in 'x %s y'", side, op)
}
