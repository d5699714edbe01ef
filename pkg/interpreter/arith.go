package interpreter

import (
	"math"
	"math/cmplx"

	"rcore/interpreter-go/pkg/runtime"
)

// binaryShape carries the recycling length and the attribute sources of a
// binary vector operation.
type binaryShape struct {
	n            int
	xattr, yattr bool
}

func (c *CallContext) recycle(x, y runtime.Vector) (binaryShape, error) {
	nx, ny := x.Len(), y.Len()
	shape := binaryShape{}
	if nx > 0 && ny > 0 {
		shape.n = nx
		if ny > nx {
			shape.n = ny
		}
		if shape.n%nx != 0 || shape.n%ny != 0 {
			if err := c.Warn("longer object length is not a multiple of shorter object length"); err != nil {
				return shape, err
			}
		}
	}
	shape.xattr = nx == shape.n
	shape.yattr = ny == shape.n
	xd, yd := runtime.Dim(x), runtime.Dim(y)
	if xd != nil && yd != nil && !sameDims(xd, yd) {
		return shape, runtime.Errorf("non-conformable arrays")
	}
	return shape, nil
}

func sameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// copyBinaryAttributes applies the arithmetic attribute rule: every
// attribute of y, then of x overriding, from operands as long as the
// result; dim and dimnames from the array operand; names from x first.
func copyBinaryAttributes(out runtime.Vector, x, y runtime.Vector, shape binaryShape, most bool) {
	if most {
		if shape.yattr {
			copyMostAttributes(y, out)
		}
		if shape.xattr {
			copyMostAttributes(x, out)
		}
	}
	var dimSrc runtime.Vector
	switch {
	case runtime.Dim(x) != nil && shape.xattr:
		dimSrc = x
	case runtime.Dim(y) != nil && shape.yattr:
		dimSrc = y
	}
	if dimSrc != nil {
		runtime.SetAttrRaw(out, "dim", runtime.GetAttr(dimSrc, "dim"))
		if dn := runtime.GetAttr(dimSrc, "dimnames"); dn != nil {
			runtime.SetAttrRaw(out, "dimnames", dn)
		} else if dn := runtime.GetAttr(y, "dimnames"); dn != nil && shape.yattr {
			runtime.SetAttrRaw(out, "dimnames", dn)
		}
		return
	}
	if names := runtime.GetAttr(x, "names"); names != nil && shape.xattr {
		runtime.SetAttrRaw(out, "names", names)
	} else if names := runtime.GetAttr(y, "names"); names != nil && shape.yattr {
		runtime.SetAttrRaw(out, "names", names)
	}
}

func copyMostAttributes(from, to runtime.Vector) {
	from.Attributes().Each(func(name string, v runtime.Value) {
		if name == "names" || name == "dim" || name == "dimnames" {
			return
		}
		runtime.SetAttrRaw(to, name, v)
	})
}

func isNumericKind(k runtime.Kind) bool {
	return k == runtime.KindLogical || k == runtime.KindInteger || k == runtime.KindDouble || k == runtime.KindComplex
}

// arithOperand converts an operand to a vector, rejecting non-numeric types.
func arithOperand(v runtime.Value, unary bool) (runtime.Vector, error) {
	switch val := v.(type) {
	case *runtime.NullValue:
		return runtime.NewIntegerVector(nil), nil
	case runtime.Vector:
		if isNumericKind(val.Kind()) {
			return val, nil
		}
	}
	if unary {
		return nil, runtime.Errorf("invalid argument to unary operator")
	}
	return nil, runtime.Errorf("non-numeric argument to binary operator")
}

// arithmetic evaluates x op y for + - * / ^ %% %/%.
func (c *CallContext) arithmetic(op string, xv, yv runtime.Value) (runtime.Value, error) {
	x, err := arithOperand(xv, false)
	if err != nil {
		return nil, err
	}
	y, err := arithOperand(yv, false)
	if err != nil {
		return nil, err
	}
	shape, err := c.recycle(x, y)
	if err != nil {
		return nil, err
	}
	kind := runtime.HigherKind(x.Kind(), y.Kind())
	if kind == runtime.KindLogical {
		kind = runtime.KindInteger
	}
	if kind == runtime.KindInteger && (op == "/" || op == "^") {
		kind = runtime.KindDouble
	}
	var out runtime.Vector
	switch kind {
	case runtime.KindInteger:
		out, err = c.integerArith(op, x, y, shape.n)
	case runtime.KindDouble:
		out, err = doubleArith(op, x, y, shape.n)
	case runtime.KindComplex:
		out, err = complexArith(op, x, y, shape.n)
	}
	if err != nil {
		return nil, err
	}
	copyBinaryAttributes(out, x, y, shape, true)
	return out, nil
}

func asInts(v runtime.Vector) []int32 {
	iv, _, _ := runtime.CoerceVector(runtime.StripAttributes(v), runtime.KindInteger)
	return iv.(*runtime.IntegerVector).Data
}

func asDoubles(v runtime.Vector) []float64 {
	dv, _, _ := runtime.CoerceVector(runtime.StripAttributes(v), runtime.KindDouble)
	return dv.(*runtime.DoubleVector).Data
}

func asComplexes(v runtime.Vector) []complex128 {
	cv, _, _ := runtime.CoerceVector(runtime.StripAttributes(v), runtime.KindComplex)
	return cv.(*runtime.ComplexVector).Data
}

func (c *CallContext) integerArith(op string, x, y runtime.Vector, n int) (runtime.Vector, error) {
	a, b := asInts(x), asInts(y)
	out := make([]int32, n)
	overflow := false
	for k := 0; k < n; k++ {
		p, q := a[k%len(a)], b[k%len(b)]
		if p == runtime.NAInteger || q == runtime.NAInteger {
			out[k] = runtime.NAInteger
			continue
		}
		var r int64
		switch op {
		case "+":
			r = int64(p) + int64(q)
		case "-":
			r = int64(p) - int64(q)
		case "*":
			r = int64(p) * int64(q)
		case "%%":
			if q == 0 {
				out[k] = runtime.NAInteger
				continue
			}
			r = int64(p) % int64(q)
			if r != 0 && (r < 0) != (q < 0) {
				r += int64(q)
			}
		case "%/%":
			if q == 0 {
				out[k] = runtime.NAInteger
				continue
			}
			r = int64(math.Floor(float64(p) / float64(q)))
		}
		if r > math.MaxInt32 || r <= math.MinInt32 {
			out[k] = runtime.NAInteger
			overflow = true
			continue
		}
		out[k] = int32(r)
	}
	if overflow {
		if err := c.Warn("NAs produced by integer overflow"); err != nil {
			return nil, err
		}
	}
	return runtime.NewIntegerVector(out), nil
}

func doubleArith(op string, x, y runtime.Vector, n int) (runtime.Vector, error) {
	a, b := asDoubles(x), asDoubles(y)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		out[k] = doubleOp(op, a[k%len(a)], b[k%len(b)])
	}
	return runtime.NewDoubleVector(out), nil
}

func doubleOp(op string, p, q float64) float64 {
	if op == "^" {
		if p == 1 || q == 0 {
			return 1
		}
	}
	if runtime.IsNAReal(p) || runtime.IsNAReal(q) {
		return runtime.NAReal
	}
	switch op {
	case "+":
		return p + q
	case "-":
		return p - q
	case "*":
		return p * q
	case "/":
		return p / q
	case "^":
		return math.Pow(p, q)
	case "%%":
		if q == 0 {
			return math.NaN()
		}
		r := math.Mod(p, q)
		if r != 0 && (r < 0) != (q < 0) {
			r += q
		}
		return r
	case "%/%":
		return math.Floor(p / q)
	}
	return math.NaN()
}

func complexArith(op string, x, y runtime.Vector, n int) (runtime.Vector, error) {
	a, b := asComplexes(x), asComplexes(y)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		p, q := a[k%len(a)], b[k%len(b)]
		if runtime.IsNAComplex(p) || runtime.IsNAComplex(q) {
			out[k] = runtime.NAComplex
			continue
		}
		switch op {
		case "+":
			out[k] = p + q
		case "-":
			out[k] = p - q
		case "*":
			out[k] = p * q
		case "/":
			out[k] = p / q
		case "^":
			out[k] = cmplx.Pow(p, q)
		default:
			return nil, runtime.Errorf("invalid operation on complex numbers")
		}
	}
	return runtime.NewComplexVector(out), nil
}

// unaryArith evaluates -x and +x, keeping every attribute.
func unaryArith(op string, xv runtime.Value) (runtime.Value, error) {
	x, err := arithOperand(xv, true)
	if err != nil {
		return nil, err
	}
	var out runtime.Vector
	switch v := x.(type) {
	case *runtime.LogicalVector, *runtime.IntegerVector:
		data := append([]int32(nil), asInts(v)...)
		if op == "-" {
			for k, p := range data {
				if p != runtime.NAInteger {
					data[k] = -p
				}
			}
		}
		out = runtime.NewIntegerVector(data)
	case *runtime.DoubleVector:
		data := append([]float64(nil), v.Data...)
		if op == "-" {
			for k, p := range data {
				if !runtime.IsNAReal(p) {
					data[k] = -p
				}
			}
		}
		out = runtime.NewDoubleVector(data)
	case *runtime.ComplexVector:
		data := append([]complex128(nil), v.Data...)
		if op == "-" {
			for k, p := range data {
				data[k] = -p
			}
		}
		out = runtime.NewComplexVector(data)
	}
	out.SetAttributes(x.Attributes().Clone())
	return out, nil
}

// mathUnary applies fn elementwise to a numeric vector as a double,
// keeping attributes. The warning reports NaNs produced from non-NaN input.
func (c *CallContext) mathUnary(xv runtime.Value, fn func(float64) float64) (runtime.Value, error) {
	x, ok := xv.(runtime.Vector)
	if !ok || !isNumericKind(x.Kind()) || x.Kind() == runtime.KindComplex {
		return nil, runtime.Errorf("non-numeric argument to mathematical function")
	}
	data := asDoubles(x)
	out := make([]float64, len(data))
	nan := false
	for k, v := range data {
		if runtime.IsNAReal(v) {
			out[k] = runtime.NAReal
			continue
		}
		out[k] = fn(v)
		if math.IsNaN(out[k]) && !math.IsNaN(v) {
			nan = true
		}
	}
	res := runtime.NewDoubleVector(out)
	res.SetAttributes(x.Attributes().Clone())
	if nan {
		if err := c.Warn("NaNs produced"); err != nil {
			return nil, err
		}
	}
	return res, nil
}
