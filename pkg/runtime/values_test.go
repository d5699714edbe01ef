package runtime

import (
	"errors"
	"math"
	"testing"

	"rcore/interpreter-go/pkg/ast"
)

func TestKindStringMatchesTypeof(t *testing.T) {
	cases := map[Kind]string{
		KindNull:      "NULL",
		KindLogical:   "logical",
		KindDouble:    "double",
		KindCharacter: "character",
		KindClosure:   "closure",
		KindMissing:   "symbol",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Fatalf("expected %q, got %q", want, kind.String())
		}
	}
}

func TestNARealIsDistinctFromNaN(t *testing.T) {
	if !IsNAReal(NAReal) {
		t.Fatalf("expected NAReal to be NA")
	}
	if IsNAReal(math.NaN()) {
		t.Fatalf("expected plain NaN not to be NA")
	}
	if !IsNAOrNaN(math.NaN()) {
		t.Fatalf("expected NaN to satisfy IsNAOrNaN")
	}
}

func TestSetDimDropsNames(t *testing.T) {
	v := NewDoubleVector([]float64{1, 2, 3, 4})
	if err := SetAttr(v, "names", StringVector("a", "b", "c", "d")); err != nil {
		t.Fatalf("set names: %v", err)
	}
	if err := SetAttr(v, "dim", NewIntegerVector([]int32{2, 2})); err != nil {
		t.Fatalf("set dim: %v", err)
	}
	if GetAttr(v, "names") != nil {
		t.Fatalf("expected names to be dropped by dim<-")
	}
	if dims := Dim(v); len(dims) != 2 || dims[0] != 2 {
		t.Fatalf("unexpected dims %v", dims)
	}
	err := SetAttr(v, "dim", NewIntegerVector([]int32{3}))
	var argErr *ArgumentError
	if !errors.As(err, &argErr) || argErr.Message != "dims [product 3] do not match the length of object [4]" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSetNamesPadsWithNA(t *testing.T) {
	v := NewIntegerVector([]int32{1, 2, 3})
	if err := SetAttr(v, "names", StringVector("a")); err != nil {
		t.Fatalf("set names: %v", err)
	}
	names := Names(v)
	if names.Len() != 3 || !names.Data[1].NA {
		t.Fatalf("expected NA padded names, got %#v", names.Data)
	}
	if err := SetAttr(v, "names", StringVector("a", "b", "c", "d")); err == nil {
		t.Fatalf("expected over-long names to fail")
	}
	if err := SetAttr(v, "names", Null); err != nil || GetAttr(v, "names") != nil {
		t.Fatalf("expected NULL to remove names")
	}
}

func TestDimnamesRequireDim(t *testing.T) {
	v := NewIntegerVector([]int32{1, 2})
	err := SetAttr(v, "dimnames", NewList([]Value{Null}))
	if err == nil || err.Error() != "'dimnames' applied to non-array" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCoercionPromotion(t *testing.T) {
	if HigherKind(KindInteger, KindDouble) != KindDouble {
		t.Fatalf("integer and double should promote to double")
	}
	if HigherKind(KindRaw, KindLogical) != KindLogical {
		t.Fatalf("raw and logical should promote to logical")
	}
	if HigherKind(KindComplex, KindCharacter) != KindCharacter {
		t.Fatalf("complex and character should promote to character")
	}
	out, warning, err := CoerceVector(StringVector("1", "x", "NA"), KindDouble)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	data := out.(*DoubleVector).Data
	if data[0] != 1 || !IsNAReal(data[1]) || !IsNAReal(data[2]) {
		t.Fatalf("unexpected result %v", data)
	}
	if warning != WarnNAsIntroduced {
		t.Fatalf("expected coercion warning, got %q", warning)
	}
	chars, _, _ := CoerceVector(NewDoubleVector([]float64{1, 0.1, 1e5, 123456, 1e-20}), KindCharacter)
	got := chars.(*CharacterVector).Strings()
	want := []string{"1", "0.1", "1e+05", "123456", "1e-20"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("as.character: expected %v, got %v", want, got)
		}
	}
	logi, _, _ := CoerceVector(StringVector("T", "false", "yes"), KindLogical)
	if d := logi.(*LogicalVector).Data; d[0] != 1 || d[1] != 0 || d[2] != NALogical {
		t.Fatalf("unexpected logical coercion %v", d)
	}
	_, _, err = CoerceVector(&ClosureValue{}, KindDouble)
	var coerceErr *TypeCoercionError
	if !errors.As(err, &coerceErr) {
		t.Fatalf("expected TypeCoercionError, got %v", err)
	}
}

func TestDuplicateIsIndependent(t *testing.T) {
	a := NewDoubleVector([]float64{1, 2})
	SetAttrRaw(a, "hi", DoubleScalar(2))
	b := Duplicate(a).(*DoubleVector)
	b.Data[0] = 9
	SetAttrRaw(b, "hi", Null)
	if a.Data[0] != 1 || GetAttr(a, "hi") == nil {
		t.Fatalf("expected original to be untouched")
	}
	if b.Named() != 0 {
		t.Fatalf("expected duplicate to be a fresh temporary")
	}
}

func TestSharingCounter(t *testing.T) {
	env := NewEnvironment(nil)
	v := NewDoubleVector([]float64{1})
	env.Define("a", v)
	if IsShared(v) {
		t.Fatalf("a single binding must not mark the value shared")
	}
	env.Define("b", v)
	if !IsShared(v) {
		t.Fatalf("second binding must mark the value shared")
	}
	if PrepareForMutation(v) == Value(v) {
		t.Fatalf("expected shared value to be duplicated before mutation")
	}
}

func TestAssignSuperTargetsEnclosingFrame(t *testing.T) {
	global := NewEnvironment(nil)
	outer := NewEnvironment(global)
	inner := NewEnvironment(outer)
	outer.Define("x", DoubleScalar(1))
	inner.Define("x", DoubleScalar(5))

	inner.AssignSuper("x", DoubleScalar(2), global)
	if v, _ := outer.GetLocal("x"); v.(*DoubleVector).Data[0] != 2 {
		t.Fatalf("expected enclosing binding to be overwritten")
	}
	if v, _ := inner.GetLocal("x"); v.(*DoubleVector).Data[0] != 5 {
		t.Fatalf("superassignment must not touch the calling frame")
	}

	inner.AssignSuper("y", DoubleScalar(3), global)
	if !global.Has("y") || outer.Has("y") {
		t.Fatalf("expected a fresh binding in global")
	}

	_, err := inner.Get("nope")
	var unbound *UnboundSymbolError
	if !errors.As(err, &unbound) || err.Error() != "object 'nope' not found" {
		t.Fatalf("unexpected lookup error %v", err)
	}
}

func TestPromiseForcesOnce(t *testing.T) {
	env := NewEnvironment(nil)
	calls := 0
	eval := func(expr ast.Expression, e *Environment) (Value, error) {
		calls++
		return DoubleScalar(1), nil
	}
	p := NewPromise(ast.Num(1), env)
	for k := 0; k < 3; k++ {
		if _, err := p.Force(eval); err != nil {
			t.Fatalf("force: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one evaluation, got %d", calls)
	}
	if p.Env != nil {
		t.Fatalf("expected forced promise to release its environment")
	}
}

func TestPromiseRecursionAndFailure(t *testing.T) {
	env := NewEnvironment(nil)
	var p *Promise
	p = NewPromise(ast.ID("x"), env)
	_, err := p.Force(func(ast.Expression, *Environment) (Value, error) {
		return p.Force(func(ast.Expression, *Environment) (Value, error) { return Null, nil })
	})
	var rec *PromiseRecursionError
	if !errors.As(err, &rec) {
		t.Fatalf("expected PromiseRecursionError, got %v", err)
	}
	if p.Forced() {
		t.Fatalf("failed promise must stay unforced")
	}
	v, err := p.Force(func(ast.Expression, *Environment) (Value, error) { return IntScalar(4), nil })
	if err != nil || v.(*IntegerVector).Data[0] != 4 {
		t.Fatalf("expected re-evaluation after failure, got %v %v", v, err)
	}
}

func TestDeparseValue(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{NewIntegerVector([]int32{1, 2, 3}), "1:3"},
		{NewDoubleVector([]float64{1, 2.5}), "c(1, 2.5)"},
		{StringScalar("a\"b"), `"a\"b"`},
		{NewCharacterVector([]Str{NAString}), "NA_character_"},
		{Null, "NULL"},
		{NewList([]Value{DoubleScalar(1), StringScalar("x")}), `list(1, "x")`},
	}
	for _, tc := range cases {
		if got := DeparseValue(tc.value); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
	named := NewDoubleVector([]float64{1, 2})
	SetAttrRaw(named, "names", StringVector("a", "b"))
	SetAttrRaw(named, "class", StringScalar("foo"))
	if got := DeparseValue(named); got != `structure(c(a = 1, b = 2), class = "foo")` {
		t.Fatalf("unexpected deparse %s", got)
	}
}
