package runtime

import (
	"fmt"
	"math"

	"rcore/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNull Kind = iota
	KindRaw
	KindLogical
	KindInteger
	KindDouble
	KindComplex
	KindCharacter
	KindList
	KindClosure
	KindBuiltin
	KindEnvironment
	KindPromise
	KindSymbol
	KindLanguage
	KindDots
	KindMissing
)

// String returns the name typeof() reports for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindRaw:
		return "raw"
	case KindLogical:
		return "logical"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindComplex:
		return "complex"
	case KindCharacter:
		return "character"
	case KindList:
		return "list"
	case KindClosure:
		return "closure"
	case KindBuiltin:
		return "builtin"
	case KindEnvironment:
		return "environment"
	case KindPromise:
		return "promise"
	case KindSymbol, KindMissing:
		return "symbol"
	case KindLanguage:
		return "language"
	case KindDots:
		return "..."
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// IsAtomic reports whether the kind is an atomic vector type.
func (k Kind) IsAtomic() bool {
	return k >= KindRaw && k <= KindCharacter
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

// Header carries the attribute list and the sharing counter. Every value that
// can hold attributes embeds it.
type Header struct {
	attrs *Attributes
	named uint8
}

func (h *Header) Attributes() *Attributes     { return h.attrs }
func (h *Header) SetAttributes(a *Attributes) { h.attrs = a }

// Named is 0 for temporaries, 1 for a value bound once and 2 for a value that
// may be reachable through more than one reference.
func (h *Header) Named() uint8 { return h.named }

func (h *Header) IncNamed() {
	if h.named < 2 {
		h.named++
	}
}

func (h *Header) MarkShared()    { h.named = 2 }
func (h *Header) ResetNamed()    { h.named = 0 }
func (h *Header) IsShared() bool { return h.named > 1 }

// Attributed is a value carrying attributes and a sharing counter.
type Attributed interface {
	Value
	Attributes() *Attributes
	SetAttributes(*Attributes)
	Named() uint8
	IncNamed()
	MarkShared()
	ResetNamed()
	IsShared() bool
}

// Vector is implemented by atomic vectors and lists.
type Vector interface {
	Attributed
	Len() int
	// IsNA reports whether element i is missing. List elements never are.
	IsNA(i int) bool
	// Select builds a new attribute-free vector of the same type from the
	// elements at idx; an index of -1 yields NA (NULL for lists).
	Select(idx []int) Vector
	// Assign copies element j of src, which must have the same kind, into
	// position i. j == -1 stores NA.
	Assign(i int, src Vector, j int)
	// Resize grows or shrinks the vector in place, padding with NA.
	Resize(n int)
}

const NAInteger int32 = math.MinInt32

// NALogical shares the integer NA representation.
const NALogical = NAInteger

var naRealBits uint64 = 0x7FF00000000007A2

// NAReal is the double NA: a NaN whose low word is 1954.
var NAReal = math.Float64frombits(naRealBits)

// IsNAReal distinguishes NA from other NaN values.
func IsNAReal(x float64) bool {
	return math.IsNaN(x) && uint32(math.Float64bits(x)) == 1954
}

// IsNAOrNaN is true for both NA and NaN.
func IsNAOrNaN(x float64) bool { return math.IsNaN(x) }

var NAComplex = complex(NAReal, 0)

func IsNAComplex(z complex128) bool {
	return math.IsNaN(real(z)) || math.IsNaN(imag(z))
}

// Str is a character vector element.
type Str struct {
	Val string
	NA  bool
}

var NAString = Str{NA: true}

func S(s string) Str { return Str{Val: s} }

// NullValue is R's NULL. It carries no attributes.
type NullValue struct{}

func (*NullValue) Kind() Kind { return KindNull }

var Null = &NullValue{}

type LogicalVector struct {
	Header
	Data []int32
}

func (*LogicalVector) Kind() Kind        { return KindLogical }
func (v *LogicalVector) Len() int        { return len(v.Data) }
func (v *LogicalVector) IsNA(i int) bool { return v.Data[i] == NALogical }

func (v *LogicalVector) Select(idx []int) Vector {
	out := make([]int32, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(v.Data) {
			out[k] = NALogical
		} else {
			out[k] = v.Data[i]
		}
	}
	return &LogicalVector{Data: out}
}

func (v *LogicalVector) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = NALogical
		return
	}
	v.Data[i] = src.(*LogicalVector).Data[j]
}

func (v *LogicalVector) Resize(n int) {
	v.Data = resizeSlice(v.Data, n, NALogical)
}

type IntegerVector struct {
	Header
	Data []int32
}

func (*IntegerVector) Kind() Kind        { return KindInteger }
func (v *IntegerVector) Len() int        { return len(v.Data) }
func (v *IntegerVector) IsNA(i int) bool { return v.Data[i] == NAInteger }

func (v *IntegerVector) Select(idx []int) Vector {
	out := make([]int32, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(v.Data) {
			out[k] = NAInteger
		} else {
			out[k] = v.Data[i]
		}
	}
	return &IntegerVector{Data: out}
}

func (v *IntegerVector) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = NAInteger
		return
	}
	v.Data[i] = src.(*IntegerVector).Data[j]
}

func (v *IntegerVector) Resize(n int) {
	v.Data = resizeSlice(v.Data, n, NAInteger)
}

type DoubleVector struct {
	Header
	Data []float64
}

func (*DoubleVector) Kind() Kind        { return KindDouble }
func (v *DoubleVector) Len() int        { return len(v.Data) }
func (v *DoubleVector) IsNA(i int) bool { return math.IsNaN(v.Data[i]) }

func (v *DoubleVector) Select(idx []int) Vector {
	out := make([]float64, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(v.Data) {
			out[k] = NAReal
		} else {
			out[k] = v.Data[i]
		}
	}
	return &DoubleVector{Data: out}
}

func (v *DoubleVector) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = NAReal
		return
	}
	v.Data[i] = src.(*DoubleVector).Data[j]
}

func (v *DoubleVector) Resize(n int) {
	v.Data = resizeSlice(v.Data, n, NAReal)
}

type ComplexVector struct {
	Header
	Data []complex128
}

func (*ComplexVector) Kind() Kind        { return KindComplex }
func (v *ComplexVector) Len() int        { return len(v.Data) }
func (v *ComplexVector) IsNA(i int) bool { return IsNAComplex(v.Data[i]) }

func (v *ComplexVector) Select(idx []int) Vector {
	out := make([]complex128, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(v.Data) {
			out[k] = NAComplex
		} else {
			out[k] = v.Data[i]
		}
	}
	return &ComplexVector{Data: out}
}

func (v *ComplexVector) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = NAComplex
		return
	}
	v.Data[i] = src.(*ComplexVector).Data[j]
}

func (v *ComplexVector) Resize(n int) {
	v.Data = resizeSlice(v.Data, n, NAComplex)
}

type CharacterVector struct {
	Header
	Data []Str
}

func (*CharacterVector) Kind() Kind        { return KindCharacter }
func (v *CharacterVector) Len() int        { return len(v.Data) }
func (v *CharacterVector) IsNA(i int) bool { return v.Data[i].NA }

func (v *CharacterVector) Select(idx []int) Vector {
	out := make([]Str, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(v.Data) {
			out[k] = NAString
		} else {
			out[k] = v.Data[i]
		}
	}
	return &CharacterVector{Data: out}
}

func (v *CharacterVector) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = NAString
		return
	}
	v.Data[i] = src.(*CharacterVector).Data[j]
}

func (v *CharacterVector) Resize(n int) {
	v.Data = resizeSlice(v.Data, n, NAString)
}

// Strings returns the element values, mapping NA to "NA".
func (v *CharacterVector) Strings() []string {
	out := make([]string, len(v.Data))
	for i, s := range v.Data {
		if s.NA {
			out[i] = "NA"
		} else {
			out[i] = s.Val
		}
	}
	return out
}

type RawVector struct {
	Header
	Data []byte
}

func (*RawVector) Kind() Kind      { return KindRaw }
func (v *RawVector) Len() int      { return len(v.Data) }
func (v *RawVector) IsNA(int) bool { return false }

func (v *RawVector) Select(idx []int) Vector {
	out := make([]byte, len(idx))
	for k, i := range idx {
		if i >= 0 && i < len(v.Data) {
			out[k] = v.Data[i]
		}
	}
	return &RawVector{Data: out}
}

func (v *RawVector) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = 0
		return
	}
	v.Data[i] = src.(*RawVector).Data[j]
}

func (v *RawVector) Resize(n int) {
	v.Data = resizeSlice(v.Data, n, 0)
}

// ListValue is a generic vector. Elements are shared references; storing a
// value in a list marks it shared.
type ListValue struct {
	Header
	Data []Value
}

func (*ListValue) Kind() Kind      { return KindList }
func (v *ListValue) Len() int      { return len(v.Data) }
func (v *ListValue) IsNA(int) bool { return false }

func (v *ListValue) Select(idx []int) Vector {
	out := make([]Value, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(v.Data) {
			out[k] = Null
		} else {
			out[k] = v.Data[i]
			MarkShared(out[k])
		}
	}
	return &ListValue{Data: out}
}

func (v *ListValue) Assign(i int, src Vector, j int) {
	if j < 0 {
		v.Data[i] = Null
		return
	}
	elem := src.(*ListValue).Data[j]
	MarkShared(elem)
	v.Data[i] = elem
}

func (v *ListValue) Resize(n int) {
	v.Data = resizeSlice[Value](v.Data, n, Null)
}

func resizeSlice[T any](data []T, n int, fill T) []T {
	if n <= len(data) {
		return data[:n:n]
	}
	out := make([]T, n)
	copy(out, data)
	for i := len(data); i < n; i++ {
		out[i] = fill
	}
	return out
}

// ClosureValue is a user function: formals, body and defining environment.
type ClosureValue struct {
	Header
	Params []*ast.Parameter
	Body   ast.Expression
	Env    *Environment
	Source string
}

func (*ClosureValue) Kind() Kind { return KindClosure }

// SymbolValue is a quoted name.
type SymbolValue struct {
	Name string
}

func (*SymbolValue) Kind() Kind { return KindSymbol }

// LanguageValue is a quoted call or other unevaluated expression.
type LanguageValue struct {
	Header
	Expr ast.Expression
}

func (*LanguageValue) Kind() Kind { return KindLanguage }

// DotEntry is one element of a ... binding; Value is usually a promise.
type DotEntry struct {
	Name  string
	Value Value
}

// DotsValue is the value bound to ... in a call frame.
type DotsValue struct {
	Entries []DotEntry
}

func (*DotsValue) Kind() Kind { return KindDots }

// MissingValue marks a formal without a supplied argument or default, and
// empty arguments such as the row position in x[, 1].
type MissingValue struct{}

func (*MissingValue) Kind() Kind { return KindMissing }

var MissingArg = &MissingValue{}

// Constructors.

func NewLogicalVector(data []int32) *LogicalVector { return &LogicalVector{Data: data} }

func LogicalScalar(b bool) *LogicalVector {
	if b {
		return &LogicalVector{Data: []int32{1}}
	}
	return &LogicalVector{Data: []int32{0}}
}

func LogicalNA() *LogicalVector { return &LogicalVector{Data: []int32{NALogical}} }

func NewIntegerVector(data []int32) *IntegerVector { return &IntegerVector{Data: data} }

func IntScalar(n int) *IntegerVector { return &IntegerVector{Data: []int32{int32(n)}} }

func NewDoubleVector(data []float64) *DoubleVector { return &DoubleVector{Data: data} }

func DoubleScalar(x float64) *DoubleVector { return &DoubleVector{Data: []float64{x}} }

func NewComplexVector(data []complex128) *ComplexVector { return &ComplexVector{Data: data} }

func NewCharacterVector(data []Str) *CharacterVector { return &CharacterVector{Data: data} }

func StringScalar(s string) *CharacterVector { return &CharacterVector{Data: []Str{{Val: s}}} }

// StringVector builds a character vector without NA elements.
func StringVector(values ...string) *CharacterVector {
	data := make([]Str, len(values))
	for i, s := range values {
		data[i] = Str{Val: s}
	}
	return &CharacterVector{Data: data}
}

func NewRawVector(data []byte) *RawVector { return &RawVector{Data: data} }

// NewList builds a list and marks every element shared.
func NewList(values []Value) *ListValue {
	for _, v := range values {
		MarkShared(v)
	}
	return &ListValue{Data: values}
}

// NewVector allocates a zero-filled vector of the given kind.
func NewVector(kind Kind, n int) (Vector, error) {
	switch kind {
	case KindLogical:
		return &LogicalVector{Data: make([]int32, n)}, nil
	case KindInteger:
		return &IntegerVector{Data: make([]int32, n)}, nil
	case KindDouble:
		return &DoubleVector{Data: make([]float64, n)}, nil
	case KindComplex:
		return &ComplexVector{Data: make([]complex128, n)}, nil
	case KindCharacter:
		return &CharacterVector{Data: make([]Str, n)}, nil
	case KindRaw:
		return &RawVector{Data: make([]byte, n)}, nil
	case KindList:
		data := make([]Value, n)
		for i := range data {
			data[i] = Null
		}
		return &ListValue{Data: data}, nil
	}
	return nil, &ArgumentError{Message: fmt.Sprintf("vector: cannot make a vector of mode '%s'.", kind)}
}

// Length mirrors length(): NULL is 0, non-vectors are 1.
func Length(v Value) int {
	switch val := v.(type) {
	case *NullValue:
		return 0
	case Vector:
		return val.Len()
	case *Environment:
		return len(val.values)
	case *DotsValue:
		return len(val.Entries)
	case *LanguageValue:
		if call, ok := val.Expr.(*ast.CallExpression); ok {
			return len(call.Args) + 1
		}
		return 1
	}
	return 1
}

// MarkShared flags v as reachable from more than one place.
func MarkShared(v Value) {
	if a, ok := v.(Attributed); ok {
		a.MarkShared()
	}
}

// IncNamed records a new binding of v.
func IncNamed(v Value) {
	if a, ok := v.(Attributed); ok {
		a.IncNamed()
	}
}

// IsShared reports whether v must be duplicated before modification.
func IsShared(v Value) bool {
	if a, ok := v.(Attributed); ok {
		return a.IsShared()
	}
	return false
}

// IsFunction reports whether v can be called.
func IsFunction(v Value) bool {
	k := v.Kind()
	return k == KindClosure || k == KindBuiltin
}
