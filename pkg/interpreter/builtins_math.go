package interpreter

import (
	"math"
	"math/cmplx"
	"sort"
	"strconv"

	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installMathBuiltins() {
	i.def("sum", "..., na.rm", builtinSum)
	i.def("prod", "..., na.rm", builtinProd)
	i.def("max", "..., na.rm", builtinExtreme(true))
	i.def("min", "..., na.rm", builtinExtreme(false))
	i.def("range", "..., na.rm", builtinRange)
	i.def("pmax", "..., na.rm", builtinParallelExtreme(true))
	i.def("pmin", "..., na.rm", builtinParallelExtreme(false))
	i.def("mean", "x, na.rm", builtinMean)
	i.def("median", "x, na.rm", builtinMedian)
	i.def("var", "x, na.rm", builtinVariance(false))
	i.def("sd", "x, na.rm", builtinVariance(true))
	i.def("abs", "x", builtinAbs)
	i.def("sign", "x", builtinSign)
	for name, fn := range map[string]func(float64) float64{
		"sqrt":    math.Sqrt,
		"exp":     math.Exp,
		"expm1":   math.Expm1,
		"log2":    math.Log2,
		"log10":   math.Log10,
		"log1p":   math.Log1p,
		"floor":   math.Floor,
		"ceiling": math.Ceil,
		"trunc":   math.Trunc,
		"sin":     math.Sin,
		"cos":     math.Cos,
		"tan":     math.Tan,
		"asin":    math.Asin,
		"acos":    math.Acos,
		"atan":    math.Atan,
		"sinh":    math.Sinh,
		"cosh":    math.Cosh,
		"tanh":    math.Tanh,
		"gamma":   math.Gamma,
		"lgamma": func(x float64) float64 {
			v, _ := math.Lgamma(x)
			return v
		},
		"factorial": func(x float64) float64 { return math.Gamma(x + 1) },
	} {
		fn := fn
		i.def(name, "x", func(c *CallContext) (runtime.Value, error) {
			x, err := c.Require(0)
			if err != nil {
				return nil, err
			}
			return c.mathUnary(x, fn)
		})
	}
	i.def("log", "x, base", builtinLog)
	i.def("round", "x, digits", builtinRound(false))
	i.def("signif", "x, digits", builtinRound(true))
	i.def("cumsum", "x", builtinCumulative("cumsum"))
	i.def("cumprod", "x", builtinCumulative("cumprod"))
	i.def("cummax", "x", builtinCumulative("cummax"))
	i.def("cummin", "x", builtinCumulative("cummin"))
	i.def("choose", "n, k", builtinChoose)
	i.def("atan2", "y, x", func(c *CallContext) (runtime.Value, error) {
		return c.binaryMath(math.Atan2)
	})
	for name, fn := range map[string]func(complex128) float64{
		"Re":  func(z complex128) float64 { return real(z) },
		"Im":  func(z complex128) float64 { return imag(z) },
		"Mod": cmplx.Abs,
		"Arg": cmplx.Phase,
	} {
		fn := fn
		i.def(name, "z", func(c *CallContext) (runtime.Value, error) {
			z, err := c.Require(0)
			if err != nil {
				return nil, err
			}
			vec, ok := z.(runtime.Vector)
			if !ok || !isNumericKind(vec.Kind()) {
				return nil, runtime.Errorf("non-numeric argument to function")
			}
			data := asComplexes(vec)
			out := make([]float64, len(data))
			for k, v := range data {
				if runtime.IsNAComplex(v) {
					out[k] = runtime.NAReal
				} else {
					out[k] = fn(v)
				}
			}
			res := runtime.NewDoubleVector(out)
			res.SetAttributes(vec.Attributes().Clone())
			return res, nil
		})
	}
	i.def("Conj", "z", func(c *CallContext) (runtime.Value, error) {
		z, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		cv, ok := z.(*runtime.ComplexVector)
		if !ok {
			return z, nil
		}
		out := make([]complex128, len(cv.Data))
		for k, v := range cv.Data {
			out[k] = cmplx.Conj(v)
		}
		res := runtime.NewComplexVector(out)
		res.SetAttributes(cv.Attributes().Clone())
		return res, nil
	})
}

// numericValues gathers the dots as numeric vectors for the summary group.
func (c *CallContext) numericValues(allowChar bool) ([]runtime.Vector, runtime.Kind, error) {
	vals, err := c.Values()
	if err != nil {
		return nil, 0, err
	}
	kind := runtime.KindLogical
	var out []runtime.Vector
	for _, v := range vals {
		if v.Kind() == runtime.KindNull {
			continue
		}
		vec, ok := v.(runtime.Vector)
		if !ok || vec.Kind() == runtime.KindList || vec.Kind() == runtime.KindRaw ||
			(vec.Kind() == runtime.KindCharacter && !allowChar) || runtime.Inherits(v, "factor") {
			return nil, 0, runtime.Errorf("invalid 'type' (%s) of argument", typeOfSummary(v))
		}
		kind = runtime.HigherKind(kind, vec.Kind())
		out = append(out, vec)
	}
	return out, kind, nil
}

func typeOfSummary(v runtime.Value) string {
	if runtime.Inherits(v, "factor") {
		return "factor"
	}
	return typeOf(v)
}

func builtinSum(c *CallContext) (runtime.Value, error) {
	naRm, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	vecs, kind, err := c.numericValues(false)
	if err != nil {
		return nil, err
	}
	switch kind {
	case runtime.KindLogical, runtime.KindInteger:
		var total int64
		for _, v := range vecs {
			for _, x := range asInts(v) {
				if x == runtime.NAInteger {
					if naRm {
						continue
					}
					return runtime.NewIntegerVector([]int32{runtime.NAInteger}), nil
				}
				total += int64(x)
			}
		}
		if total > math.MaxInt32 || total <= math.MinInt32 {
			if err := c.Warn("integer overflow - use sum(as.numeric(.))"); err != nil {
				return nil, err
			}
			return runtime.NewIntegerVector([]int32{runtime.NAInteger}), nil
		}
		return runtime.IntScalar(int(total)), nil
	case runtime.KindComplex:
		var total complex128
		for _, v := range vecs {
			for _, z := range asComplexes(v) {
				if naRm && runtime.IsNAComplex(z) {
					continue
				}
				total += z
			}
		}
		return runtime.NewComplexVector([]complex128{total}), nil
	}
	total := 0.0
	for _, v := range vecs {
		for _, x := range asDoubles(v) {
			if naRm && math.IsNaN(x) {
				continue
			}
			total += x
		}
	}
	return runtime.DoubleScalar(total), nil
}

func builtinProd(c *CallContext) (runtime.Value, error) {
	naRm, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	vecs, kind, err := c.numericValues(false)
	if err != nil {
		return nil, err
	}
	if kind == runtime.KindComplex {
		total := complex(1, 0)
		for _, v := range vecs {
			for _, z := range asComplexes(v) {
				if naRm && runtime.IsNAComplex(z) {
					continue
				}
				total *= z
			}
		}
		return runtime.NewComplexVector([]complex128{total}), nil
	}
	total := 1.0
	for _, v := range vecs {
		for _, x := range asDoubles(v) {
			if naRm && math.IsNaN(x) {
				continue
			}
			total *= x
		}
	}
	return runtime.DoubleScalar(total), nil
}

// extremeOf finds the max or min of vecs. empty is set when no
// non-missing value was seen.
func extremeOf(vecs []runtime.Vector, kind runtime.Kind, max, naRm bool) (runtime.Value, bool) {
	switch kind {
	case runtime.KindCharacter:
		var best *runtime.Str
		for _, v := range vecs {
			cv, _, _ := runtime.CoerceVector(runtime.StripAttributes(v), runtime.KindCharacter)
			for _, s := range cv.(*runtime.CharacterVector).Data {
				s := s
				if s.NA {
					if naRm {
						continue
					}
					return runtime.NewCharacterVector([]runtime.Str{runtime.NAString}), false
				}
				if best == nil {
					best = &s
					continue
				}
				cmp := CollateStrings(s.Val, best.Val)
				if (max && cmp > 0) || (!max && cmp < 0) {
					best = &s
				}
			}
		}
		if best == nil {
			return nil, true
		}
		return runtime.NewCharacterVector([]runtime.Str{*best}), false
	case runtime.KindLogical, runtime.KindInteger:
		found := false
		var best int32
		for _, v := range vecs {
			for _, x := range asInts(v) {
				if x == runtime.NAInteger {
					if naRm {
						continue
					}
					return runtime.NewIntegerVector([]int32{runtime.NAInteger}), false
				}
				if !found || (max && x > best) || (!max && x < best) {
					best, found = x, true
				}
			}
		}
		if !found {
			return nil, true
		}
		return runtime.IntScalar(int(best)), false
	}
	found := false
	best := 0.0
	sawNaN := false
	for _, v := range vecs {
		for _, x := range asDoubles(v) {
			if math.IsNaN(x) {
				if naRm {
					continue
				}
				if runtime.IsNAReal(x) {
					return runtime.DoubleScalar(runtime.NAReal), false
				}
				sawNaN = true
				continue
			}
			if !found || (max && x > best) || (!max && x < best) {
				best, found = x, true
			}
		}
	}
	if sawNaN {
		return runtime.DoubleScalar(math.NaN()), false
	}
	if !found {
		return nil, true
	}
	return runtime.DoubleScalar(best), false
}

func builtinExtreme(max bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		naRm, err := c.flag(1, false)
		if err != nil {
			return nil, err
		}
		vecs, kind, err := c.numericValues(true)
		if err != nil {
			return nil, err
		}
		if kind == runtime.KindComplex {
			return nil, runtime.Errorf("invalid 'type' (complex) of argument")
		}
		res, empty := extremeOf(vecs, kind, max, naRm)
		if !empty {
			return res, nil
		}
		if kind == runtime.KindCharacter {
			return nil, runtime.Errorf("no non-missing arguments to %s; returning %s", c.Name(), map[bool]string{true: "-Inf", false: "Inf"}[max])
		}
		inf, label := math.Inf(1), "Inf"
		if max {
			inf, label = math.Inf(-1), "-Inf"
		}
		if err := c.Warn("no non-missing arguments to %s; returning %s", c.Name(), label); err != nil {
			return nil, err
		}
		return runtime.DoubleScalar(inf), nil
	}
}

func builtinRange(c *CallContext) (runtime.Value, error) {
	lo, err := builtinExtreme(false)(c)
	if err != nil {
		return nil, err
	}
	hi, err := builtinExtreme(true)(c)
	if err != nil {
		return nil, err
	}
	return combineValues([]Arg{{Value: lo}, {Value: hi}}, false)
}

func builtinParallelExtreme(max bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		naRm, err := c.flag(1, false)
		if err != nil {
			return nil, err
		}
		vecs, kind, err := c.numericValues(true)
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, runtime.Errorf("no arguments")
		}
		n := 0
		for _, v := range vecs {
			if v.Len() == 0 {
				return runtime.NewVector(kind, 0)
			}
			if v.Len() > n {
				n = v.Len()
			}
		}
		out, err := runtime.NewVector(kind, n)
		if err != nil {
			return nil, err
		}
		for k := 0; k < n; k++ {
			elems := make([]runtime.Vector, len(vecs))
			for j, v := range vecs {
				elems[j] = v.Select([]int{k % v.Len()})
			}
			res, empty := extremeOf(elems, kind, max, naRm)
			if empty {
				out.Assign(k, out, -1)
				continue
			}
			conv, _, err := runtime.CoerceVector(res, kind)
			if err != nil {
				return nil, err
			}
			out.Assign(k, conv, 0)
		}
		for _, name := range []string{"names", "dim", "dimnames"} {
			if a := runtime.GetAttr(vecs[0], name); a != nil && vecs[0].Len() == n {
				runtime.SetAttrRaw(out, name, a)
			}
		}
		return out, nil
	}
}

// statValues reads x as doubles, dropping NaNs when naRm is set. hasNA
// reports a missing value that was kept.
func (c *CallContext) statValues(k int) (data []float64, hasNA bool, err error) {
	x, err := c.Require(k)
	if err != nil {
		return nil, false, err
	}
	vec, ok := x.(runtime.Vector)
	if !ok || !isNumericKind(vec.Kind()) || vec.Kind() == runtime.KindComplex || runtime.Inherits(x, "factor") {
		return nil, false, errNotNumeric
	}
	naRm, err := c.flag(k+1, false)
	if err != nil {
		return nil, false, err
	}
	for _, v := range asDoubles(vec) {
		if math.IsNaN(v) {
			if naRm {
				continue
			}
			hasNA = true
		}
		data = append(data, v)
	}
	return data, hasNA, nil
}

var errNotNumeric = runtime.Errorf("argument is not numeric or logical")

// meanOf computes the mean with a second refinement pass.
func meanOf(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	s := 0.0
	for _, v := range data {
		s += v
	}
	m := s / float64(len(data))
	if math.IsInf(m, 0) || math.IsNaN(m) {
		return m
	}
	t := 0.0
	for _, v := range data {
		t += v - m
	}
	return m + t/float64(len(data))
}

func builtinMean(c *CallContext) (runtime.Value, error) {
	data, hasNA, err := c.statValues(0)
	if err == errNotNumeric {
		if warnErr := c.Warn("argument is not numeric or logical: returning NA"); warnErr != nil {
			return nil, warnErr
		}
		return runtime.DoubleScalar(runtime.NAReal), nil
	}
	if err != nil {
		return nil, err
	}
	if hasNA {
		for _, v := range data {
			if runtime.IsNAReal(v) {
				return runtime.DoubleScalar(runtime.NAReal), nil
			}
		}
		return runtime.DoubleScalar(math.NaN()), nil
	}
	return runtime.DoubleScalar(meanOf(data)), nil
}

func builtinMedian(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	data, hasNA, err := c.statValues(0)
	if err == errNotNumeric {
		return nil, runtime.Errorf("need numeric data")
	}
	if err != nil {
		return nil, err
	}
	isInt := x.Kind() == runtime.KindInteger || x.Kind() == runtime.KindLogical
	if hasNA {
		if isInt {
			return runtime.NewIntegerVector([]int32{runtime.NAInteger}), nil
		}
		return runtime.DoubleScalar(runtime.NAReal), nil
	}
	n := len(data)
	if n == 0 {
		if isInt {
			return runtime.NewIntegerVector([]int32{runtime.NAInteger}), nil
		}
		return runtime.DoubleScalar(runtime.NAReal), nil
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		if isInt {
			return runtime.IntScalar(int(sorted[n/2])), nil
		}
		return runtime.DoubleScalar(sorted[n/2]), nil
	}
	return runtime.DoubleScalar((sorted[n/2-1] + sorted[n/2]) / 2), nil
}

func builtinVariance(sd bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		data, hasNA, err := c.statValues(0)
		if err == errNotNumeric {
			return nil, runtime.Errorf("is.atomic(x) is not TRUE")
		}
		if err != nil {
			return nil, err
		}
		if hasNA || len(data) < 2 {
			return runtime.DoubleScalar(runtime.NAReal), nil
		}
		m := meanOf(data)
		ss := 0.0
		for _, v := range data {
			ss += (v - m) * (v - m)
		}
		v := ss / float64(len(data)-1)
		if sd {
			v = math.Sqrt(v)
		}
		return runtime.DoubleScalar(v), nil
	}
}

func builtinAbs(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if iv, ok := x.(*runtime.IntegerVector); ok {
		out := make([]int32, len(iv.Data))
		for k, v := range iv.Data {
			out[k] = v
			if v < 0 && v != runtime.NAInteger {
				out[k] = -v
			}
		}
		res := runtime.NewIntegerVector(out)
		res.SetAttributes(iv.Attributes().Clone())
		return res, nil
	}
	if lv, ok := x.(*runtime.LogicalVector); ok {
		res := runtime.NewIntegerVector(append([]int32(nil), lv.Data...))
		res.SetAttributes(lv.Attributes().Clone())
		return res, nil
	}
	return c.mathUnary(x, math.Abs)
}

func builtinSign(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	res, err := c.mathUnary(x, func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return v
	})
	if err != nil {
		return nil, err
	}
	if x.Kind() == runtime.KindInteger || x.Kind() == runtime.KindLogical {
		conv, _, err := runtime.CoerceVector(res, runtime.KindInteger)
		return conv, err
	}
	return res, nil
}

func builtinLog(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if !c.Has(1) {
		return c.mathUnary(x, math.Log)
	}
	bv, err := c.Arg(1)
	if err != nil {
		return nil, err
	}
	base, err := runtime.AsDoubleScalar(bv)
	if err != nil {
		return nil, err
	}
	lb := math.Log(base)
	return c.mathUnary(x, func(v float64) float64 {
		if base == 10 {
			return math.Log10(v)
		}
		if base == 2 {
			return math.Log2(v)
		}
		return math.Log(v) / lb
	})
}

// roundDigits rounds x to digits decimal places using the shortest exact
// decimal expansion, ties going to even.
func roundDigits(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if digits == 0 {
		return math.RoundToEven(x)
	}
	if digits > 15 {
		return x
	}
	if digits < 0 {
		p := math.Pow(10, float64(-digits))
		return math.RoundToEven(x/p) * p
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', digits, 64), 64)
	if err != nil {
		return x
	}
	return v
}

func signifDigits(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
		return x
	}
	if digits < 1 {
		digits = 1
	}
	if digits > 22 {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', digits, 64), 64)
	if err != nil {
		return x
	}
	return v
}

func builtinRound(signif bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		def := 0
		if signif {
			def = 6
		}
		digits, err := c.intArg(1, def)
		if err != nil {
			return nil, err
		}
		if x.Kind() == runtime.KindInteger || x.Kind() == runtime.KindLogical {
			if !signif && digits >= 0 {
				return x, nil
			}
		}
		if cv, ok := x.(*runtime.ComplexVector); ok {
			out := make([]complex128, len(cv.Data))
			for k, z := range cv.Data {
				if signif {
					out[k] = complex(signifDigits(real(z), digits), signifDigits(imag(z), digits))
				} else {
					out[k] = complex(roundDigits(real(z), digits), roundDigits(imag(z), digits))
				}
			}
			res := runtime.NewComplexVector(out)
			res.SetAttributes(cv.Attributes().Clone())
			return res, nil
		}
		res, err := c.mathUnary(x, func(v float64) float64 {
			if signif {
				return signifDigits(v, digits)
			}
			return roundDigits(v, digits)
		})
		if err != nil {
			return nil, err
		}
		if x.Kind() == runtime.KindInteger {
			conv, _, err := runtime.CoerceVector(res, runtime.KindInteger)
			return conv, err
		}
		return res, nil
	}
}

func builtinCumulative(op string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		vec, ok := x.(runtime.Vector)
		if !ok || vec.Kind() == runtime.KindList || vec.Kind() == runtime.KindRaw {
			return nil, runtime.Errorf("invalid 'type' (%s) of argument", x.Kind())
		}
		var res runtime.Vector
		intResult := (vec.Kind() == runtime.KindInteger || vec.Kind() == runtime.KindLogical) && op != "cumprod"
		if intResult {
			data := asInts(vec)
			out := make([]int32, len(data))
			var acc int64
			dead := false
			for k, v := range data {
				if dead || v == runtime.NAInteger {
					dead = true
					out[k] = runtime.NAInteger
					continue
				}
				switch {
				case k == 0:
					acc = int64(v)
				case op == "cumsum":
					acc += int64(v)
				case op == "cummax" && int64(v) > acc, op == "cummin" && int64(v) < acc:
					acc = int64(v)
				}
				if acc > math.MaxInt32 || acc <= math.MinInt32 {
					if err := c.Warn("integer overflow in 'cumsum'; use 'cumsum(as.numeric(.))'"); err != nil {
						return nil, err
					}
					dead = true
					out[k] = runtime.NAInteger
					continue
				}
				out[k] = int32(acc)
			}
			res = runtime.NewIntegerVector(out)
		} else {
			data := asDoubles(vec)
			out := make([]float64, len(data))
			acc := 0.0
			for k, v := range data {
				switch {
				case k == 0:
					acc = v
				case math.IsNaN(acc):
				case op == "cumsum":
					acc += v
				case op == "cumprod":
					acc *= v
				case math.IsNaN(v):
					acc = v
				case op == "cummax" && v > acc, op == "cummin" && v < acc:
					acc = v
				}
				out[k] = acc
			}
			res = runtime.NewDoubleVector(out)
		}
		if names := runtime.Names(vec); names != nil {
			runtime.SetAttrRaw(res, "names", names)
		}
		return res, nil
	}
}

func builtinChoose(c *CallContext) (runtime.Value, error) {
	return c.binaryMath(func(n, k float64) float64 {
		k = math.Round(k)
		if k < 0 {
			return 0
		}
		r := 1.0
		for j := 1.0; j <= k; j++ {
			r *= (n - k + j) / j
		}
		if n == math.Trunc(n) {
			return math.Round(r)
		}
		return r
	})
}

// binaryMath applies fn over two recycled numeric arguments.
func (c *CallContext) binaryMath(fn func(a, b float64) float64) (runtime.Value, error) {
	av, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	bv, err := c.Require(1)
	if err != nil {
		return nil, err
	}
	a, okA := av.(runtime.Vector)
	b, okB := bv.(runtime.Vector)
	if !okA || !okB || !isNumericKind(a.Kind()) || !isNumericKind(b.Kind()) {
		return nil, runtime.Errorf("non-numeric argument to mathematical function")
	}
	x, y := asDoubles(a), asDoubles(b)
	n := len(x)
	if len(y) > n {
		n = len(y)
	}
	if len(x) == 0 || len(y) == 0 {
		n = 0
	}
	out := make([]float64, n)
	for k := range out {
		p, q := x[k%len(x)], y[k%len(y)]
		if runtime.IsNAReal(p) || runtime.IsNAReal(q) {
			out[k] = runtime.NAReal
			continue
		}
		out[k] = fn(p, q)
	}
	res := runtime.NewDoubleVector(out)
	if a.Len() == n {
		copyMostAttributes(a, res)
	}
	return res, nil
}
