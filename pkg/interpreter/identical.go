package interpreter

import (
	"math"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// Identical reports whether a and b are the same R object: same type,
// same elements and the same set of attributes in any order. NA and NaN
// differ; 0 and -0 do not. Environments compare by identity.
func Identical(a, b runtime.Value) bool {
	if a == nil {
		a = runtime.Null
	}
	if b == nil {
		b = runtime.Null
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *runtime.NullValue, *runtime.MissingValue:
		return true
	case *runtime.Environment:
		return x == b
	case *runtime.SymbolValue:
		return x.Name == b.(*runtime.SymbolValue).Name
	case *runtime.LanguageValue:
		y := b.(*runtime.LanguageValue)
		return ast.Deparse(x.Expr) == ast.Deparse(y.Expr) && identicalAttributes(x, y)
	case *runtime.ClosureValue:
		y := b.(*runtime.ClosureValue)
		if x == y {
			return true
		}
		return x.Env == y.Env &&
			ast.Deparse(ast.NewFunctionLiteral(x.Params, x.Body)) == ast.Deparse(ast.NewFunctionLiteral(y.Params, y.Body)) &&
			identicalAttributes(x, y)
	case *Builtin:
		return x.Name == b.(*Builtin).Name
	case *runtime.Promise:
		y := b.(*runtime.Promise)
		if x.Forced() && y.Forced() {
			return Identical(x.Value(), y.Value())
		}
		return x == y
	case runtime.Vector:
		y := b.(runtime.Vector)
		return x.Len() == y.Len() && identicalElements(x, y) && identicalAttributes(x, y)
	}
	return a == b
}

func identicalElements(a, b runtime.Vector) bool {
	switch x := a.(type) {
	case *runtime.LogicalVector:
		return equalSlices(x.Data, b.(*runtime.LogicalVector).Data)
	case *runtime.IntegerVector:
		return equalSlices(x.Data, b.(*runtime.IntegerVector).Data)
	case *runtime.RawVector:
		return equalSlices(x.Data, b.(*runtime.RawVector).Data)
	case *runtime.CharacterVector:
		return equalSlices(x.Data, b.(*runtime.CharacterVector).Data)
	case *runtime.DoubleVector:
		y := b.(*runtime.DoubleVector)
		for k, v := range x.Data {
			if !identicalDouble(v, y.Data[k]) {
				return false
			}
		}
		return true
	case *runtime.ComplexVector:
		y := b.(*runtime.ComplexVector)
		for k, v := range x.Data {
			if !identicalDouble(real(v), real(y.Data[k])) || !identicalDouble(imag(v), imag(y.Data[k])) {
				return false
			}
		}
		return true
	case *runtime.ListValue:
		y := b.(*runtime.ListValue)
		for k, v := range x.Data {
			if !Identical(v, y.Data[k]) {
				return false
			}
		}
		return true
	}
	return false
}

func equalSlices[T comparable](a, b []T) bool {
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

func identicalDouble(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y) && runtime.IsNAReal(x) == runtime.IsNAReal(y)
	}
	return x == y
}

func identicalAttributes(a, b runtime.Attributed) bool {
	x, y := a.Attributes(), b.Attributes()
	if x.Len() != y.Len() {
		return false
	}
	same := true
	x.Each(func(name string, v runtime.Value) {
		if !same {
			return
		}
		other := y.Get(name)
		same = other != nil && Identical(v, other)
	})
	return same
}
