package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"rcore/interpreter-go/pkg/ast"
)

const (
	WarnNAsIntroduced  = "NAs introduced by coercion"
	WarnIntegerRange   = "NAs introduced by coercion to integer range"
	WarnImaginaryParts = "imaginary parts discarded in coercion"
	WarnRawOutOfRange  = "out-of-range values treated as 0 in coercion to raw"
)

// HigherKind returns the kind both operands are promoted to, following
// raw < logical < integer < double < complex < character < list.
func HigherKind(a, b Kind) Kind {
	if a == KindNull {
		return b
	}
	if b == KindNull {
		return a
	}
	if !isVectorKind(a) || !isVectorKind(b) {
		return KindList
	}
	if a > b {
		return a
	}
	return b
}

func isVectorKind(k Kind) bool { return k >= KindRaw && k <= KindList }

// CoerceVector converts v to a vector of the requested kind. Attributes are
// kept. When the kind already matches v itself is returned. warning is set
// when the conversion introduced NAs or lost information.
func CoerceVector(v Value, kind Kind) (out Vector, warning string, err error) {
	if v.Kind() == kind {
		if vec, ok := v.(Vector); ok {
			return vec, "", nil
		}
	}
	var src Vector
	switch val := v.(type) {
	case *NullValue:
		vec, err := NewVector(kind, 0)
		return vec, "", err
	case *SymbolValue:
		src = StringScalar(val.Name)
	case *LanguageValue:
		if kind == KindCharacter {
			return StringScalar(ast.Deparse(val.Expr)), "", nil
		}
		if kind == KindList {
			return NewList([]Value{val}), "", nil
		}
		return nil, "", &TypeCoercionError{From: v.Kind(), To: kind}
	case Vector:
		src = val
	default:
		if kind == KindList {
			return NewList([]Value{v}), "", nil
		}
		return nil, "", &TypeCoercionError{From: v.Kind(), To: kind}
	}
	if src.Kind() == kind {
		return src, "", nil
	}
	switch kind {
	case KindLogical:
		out, err = toLogical(src)
	case KindInteger:
		out, warning, err = toInteger(src)
	case KindDouble:
		out, warning, err = toDouble(src)
	case KindComplex:
		out, warning, err = toComplex(src)
	case KindCharacter:
		out, err = toCharacter(src)
	case KindRaw:
		out, warning, err = toRaw(src)
	case KindList:
		out = toList(src)
	default:
		return nil, "", &TypeCoercionError{From: src.Kind(), To: kind}
	}
	if err != nil {
		return nil, "", err
	}
	out.SetAttributes(src.Attributes().Clone())
	return out, warning, nil
}

// listElements unwraps a list whose elements are all length-one atomics.
func listElements(list *ListValue, kind Kind) (Vector, string, error) {
	data := make([]Vector, len(list.Data))
	for i, elem := range list.Data {
		vec, ok := elem.(Vector)
		if !ok || !vec.Kind().IsAtomic() || vec.Len() != 1 {
			if kind == KindCharacter {
				data[i] = StringScalar(DeparseValue(elem))
				continue
			}
			return nil, "", &TypeCoercionError{From: KindList, To: kind, Message: fmt.Sprintf("(list) object cannot be coerced to type '%s'", kind)}
		}
		data[i] = vec
	}
	out, _ := NewVector(kind, len(data))
	warning := ""
	for i, elem := range data {
		conv, w, err := CoerceVector(elem, kind)
		if err != nil {
			return nil, "", err
		}
		if w != "" {
			warning = w
		}
		out.Assign(i, conv, 0)
	}
	return out, warning, nil
}

func toLogical(src Vector) (Vector, error) {
	n := src.Len()
	out := make([]int32, n)
	switch s := src.(type) {
	case *IntegerVector:
		for i, x := range s.Data {
			switch {
			case x == NAInteger:
				out[i] = NALogical
			case x != 0:
				out[i] = 1
			}
		}
	case *DoubleVector:
		for i, x := range s.Data {
			switch {
			case math.IsNaN(x):
				out[i] = NALogical
			case x != 0:
				out[i] = 1
			}
		}
	case *ComplexVector:
		for i, z := range s.Data {
			switch {
			case IsNAComplex(z):
				out[i] = NALogical
			case z != 0:
				out[i] = 1
			}
		}
	case *CharacterVector:
		for i, str := range s.Data {
			out[i] = ParseLogical(str)
		}
	case *RawVector:
		for i, b := range s.Data {
			if b != 0 {
				out[i] = 1
			}
		}
	case *ListValue:
		vec, _, err := listElements(s, KindLogical)
		if err != nil {
			return nil, err
		}
		return vec, nil
	}
	return &LogicalVector{Data: out}, nil
}

// ParseLogical accepts the spellings as.logical understands.
func ParseLogical(s Str) int32 {
	if s.NA {
		return NALogical
	}
	switch s.Val {
	case "TRUE", "true", "T", "True":
		return 1
	case "FALSE", "false", "F", "False":
		return 0
	}
	return NALogical
}

// DoubleToInteger truncates x; ok is false when x is outside the integer range.
func DoubleToInteger(x float64) (int32, bool) {
	if math.IsNaN(x) {
		return NAInteger, true
	}
	if x >= 2147483648 || x <= -2147483648 {
		return NAInteger, false
	}
	return int32(x), true
}

func toInteger(src Vector) (Vector, string, error) {
	n := src.Len()
	out := make([]int32, n)
	warning := ""
	switch s := src.(type) {
	case *LogicalVector:
		copy(out, s.Data)
	case *DoubleVector:
		for i, x := range s.Data {
			v, ok := DoubleToInteger(x)
			if !ok {
				warning = WarnIntegerRange
			}
			out[i] = v
		}
	case *ComplexVector:
		for i, z := range s.Data {
			if IsNAComplex(z) {
				out[i] = NAInteger
				continue
			}
			if imag(z) != 0 {
				warning = WarnImaginaryParts
			}
			v, ok := DoubleToInteger(real(z))
			if !ok {
				warning = WarnIntegerRange
			}
			out[i] = v
		}
	case *CharacterVector:
		for i, str := range s.Data {
			if str.NA {
				out[i] = NAInteger
				continue
			}
			x, ok := ParseNumber(str.Val)
			if !ok {
				warning = WarnNAsIntroduced
				out[i] = NAInteger
				continue
			}
			v, inRange := DoubleToInteger(x)
			if !inRange {
				warning = WarnIntegerRange
			}
			out[i] = v
		}
	case *RawVector:
		for i, b := range s.Data {
			out[i] = int32(b)
		}
	case *ListValue:
		return listElements(s, KindInteger)
	}
	return &IntegerVector{Data: out}, warning, nil
}

func toDouble(src Vector) (Vector, string, error) {
	n := src.Len()
	out := make([]float64, n)
	warning := ""
	switch s := src.(type) {
	case *LogicalVector:
		for i, x := range s.Data {
			out[i] = intToDouble(x)
		}
	case *IntegerVector:
		for i, x := range s.Data {
			out[i] = intToDouble(x)
		}
	case *ComplexVector:
		for i, z := range s.Data {
			if IsNAComplex(z) {
				out[i] = NAReal
				continue
			}
			if imag(z) != 0 {
				warning = WarnImaginaryParts
			}
			out[i] = real(z)
		}
	case *CharacterVector:
		for i, str := range s.Data {
			if str.NA {
				out[i] = NAReal
				continue
			}
			x, ok := ParseNumber(str.Val)
			if !ok {
				warning = WarnNAsIntroduced
			}
			out[i] = x
		}
	case *RawVector:
		for i, b := range s.Data {
			out[i] = float64(b)
		}
	case *ListValue:
		return listElements(s, KindDouble)
	}
	return &DoubleVector{Data: out}, warning, nil
}

func intToDouble(x int32) float64 {
	if x == NAInteger {
		return NAReal
	}
	return float64(x)
}

func toComplex(src Vector) (Vector, string, error) {
	if list, ok := src.(*ListValue); ok {
		return listElements(list, KindComplex)
	}
	n := src.Len()
	out := make([]complex128, n)
	warning := ""
	if chars, ok := src.(*CharacterVector); ok {
		for i, str := range chars.Data {
			if str.NA {
				out[i] = NAComplex
				continue
			}
			z, ok := ParseComplex(str.Val)
			if !ok {
				warning = WarnNAsIntroduced
			}
			out[i] = z
		}
		return &ComplexVector{Data: out}, warning, nil
	}
	dbl, _, err := toDouble(src)
	if err != nil {
		return nil, "", err
	}
	for i, x := range dbl.(*DoubleVector).Data {
		if IsNAReal(x) {
			out[i] = NAComplex
		} else {
			out[i] = complex(x, 0)
		}
	}
	return &ComplexVector{Data: out}, warning, nil
}

func toCharacter(src Vector) (Vector, error) {
	n := src.Len()
	out := make([]Str, n)
	switch s := src.(type) {
	case *LogicalVector:
		for i, x := range s.Data {
			switch x {
			case NALogical:
				out[i] = NAString
			case 0:
				out[i] = S("FALSE")
			default:
				out[i] = S("TRUE")
			}
		}
	case *IntegerVector:
		for i, x := range s.Data {
			if x == NAInteger {
				out[i] = NAString
			} else {
				out[i] = S(strconv.Itoa(int(x)))
			}
		}
	case *DoubleVector:
		for i, x := range s.Data {
			if IsNAReal(x) {
				out[i] = NAString
			} else {
				out[i] = S(ast.FormatNumber(x))
			}
		}
	case *ComplexVector:
		for i, z := range s.Data {
			if IsNAComplex(z) {
				out[i] = NAString
			} else {
				out[i] = S(FormatComplex15(z))
			}
		}
	case *RawVector:
		for i, b := range s.Data {
			out[i] = S(fmt.Sprintf("%02x", b))
		}
	case *ListValue:
		vec, _, err := listElements(s, KindCharacter)
		return vec, err
	}
	return &CharacterVector{Data: out}, nil
}

// FormatComplex15 renders a complex number the way as.character does.
func FormatComplex15(z complex128) string {
	re := ast.FormatNumber(real(z))
	im := imag(z)
	if im < 0 || (im == 0 && math.Signbit(im)) {
		return re + "-" + ast.FormatNumber(-im) + "i"
	}
	return re + "+" + ast.FormatNumber(im) + "i"
}

func toRaw(src Vector) (Vector, string, error) {
	if list, ok := src.(*ListValue); ok {
		return listElements(list, KindRaw)
	}
	ints, w, err := toInteger(src)
	if err != nil {
		return nil, "", err
	}
	warning := ""
	if w == WarnNAsIntroduced {
		warning = w
	}
	data := ints.(*IntegerVector).Data
	out := make([]byte, len(data))
	for i, x := range data {
		if x == NAInteger || x < 0 || x > 255 {
			warning = WarnRawOutOfRange
			continue
		}
		out[i] = byte(x)
	}
	return &RawVector{Data: out}, warning, nil
}

func toList(src Vector) Vector {
	n := src.Len()
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = src.Select([]int{i})
	}
	return &ListValue{Data: out}
}

// ParseNumber converts text to a double the way as.numeric does. "NA"
// converts silently; ok is false when the text is not a number.
func ParseNumber(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "NA" {
		return NAReal, true
	}
	neg := false
	body := s
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		n, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return NAReal, false
		}
		if neg {
			return -float64(n), true
		}
		return float64(n), true
	}
	switch body {
	case "Inf", "inf", "Infinity", "infinity":
		if neg {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	case "NaN":
		return math.NaN(), true
	}
	if body == "" || strings.ContainsAny(body, "_pP") || strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		return NAReal, false
	}
	x, err := strconv.ParseFloat(body, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return NAReal, false
		}
	}
	if neg {
		x = -x
	}
	return x, true
}

// ParseComplex accepts plain numbers and a+bi forms.
func ParseComplex(text string) (complex128, bool) {
	s := strings.TrimSpace(text)
	if s == "NA" {
		return NAComplex, true
	}
	if x, ok := ParseNumber(s); ok {
		return complex(x, 0), true
	}
	if !strings.HasSuffix(s, "i") {
		return NAComplex, false
	}
	body := s[:len(s)-1]
	for k := len(body) - 1; k > 0; k-- {
		if (body[k] == '+' || body[k] == '-') && body[k-1] != 'e' && body[k-1] != 'E' {
			re, ok1 := ParseNumber(body[:k])
			im, ok2 := ParseNumber(body[k:])
			if ok1 && ok2 {
				return complex(re, im), true
			}
			return NAComplex, false
		}
	}
	if im, ok := ParseNumber(body); ok {
		return complex(0, im), true
	}
	return NAComplex, false
}

// AsLogicalScalar returns the first element as a logical.
func AsLogicalScalar(v Value) (int32, error) {
	vec, _, err := CoerceVector(v, KindLogical)
	if err != nil {
		return NALogical, err
	}
	if vec.Len() == 0 {
		return NALogical, nil
	}
	return vec.(*LogicalVector).Data[0], nil
}

// AsIntScalar returns the first element as an integer.
func AsIntScalar(v Value) (int32, error) {
	vec, _, err := CoerceVector(v, KindInteger)
	if err != nil {
		return NAInteger, err
	}
	if vec.Len() == 0 {
		return NAInteger, nil
	}
	return vec.(*IntegerVector).Data[0], nil
}

// AsDoubleScalar returns the first element as a double.
func AsDoubleScalar(v Value) (float64, error) {
	vec, _, err := CoerceVector(v, KindDouble)
	if err != nil {
		return NAReal, err
	}
	if vec.Len() == 0 {
		return NAReal, nil
	}
	return vec.(*DoubleVector).Data[0], nil
}

// AsStringScalar returns the first element as a string; ok is false for NA
// or an empty vector.
func AsStringScalar(v Value) (string, bool) {
	vec, _, err := CoerceVector(v, KindCharacter)
	if err != nil || vec.Len() == 0 {
		return "", false
	}
	s := vec.(*CharacterVector).Data[0]
	return s.Val, !s.NA
}

// AsStrings converts v to Go strings, NA rendering as "NA".
func AsStrings(v Value) ([]string, error) {
	vec, _, err := CoerceVector(v, KindCharacter)
	if err != nil {
		return nil, err
	}
	return vec.(*CharacterVector).Strings(), nil
}
