package runtime

// Duplicate returns a copy of v that may be modified without affecting other
// references. Vectors copy their backing storage, lists copy only the
// top-level element slice, attributes are copied shallowly. Environments and
// promises have reference semantics and are returned as is.
func Duplicate(v Value) Value {
	switch val := v.(type) {
	case *LogicalVector:
		return &LogicalVector{Header: cloneHeader(&val.Header), Data: append([]int32(nil), val.Data...)}
	case *IntegerVector:
		return &IntegerVector{Header: cloneHeader(&val.Header), Data: append([]int32(nil), val.Data...)}
	case *DoubleVector:
		return &DoubleVector{Header: cloneHeader(&val.Header), Data: append([]float64(nil), val.Data...)}
	case *ComplexVector:
		return &ComplexVector{Header: cloneHeader(&val.Header), Data: append([]complex128(nil), val.Data...)}
	case *CharacterVector:
		return &CharacterVector{Header: cloneHeader(&val.Header), Data: append([]Str(nil), val.Data...)}
	case *RawVector:
		return &RawVector{Header: cloneHeader(&val.Header), Data: append([]byte(nil), val.Data...)}
	case *ListValue:
		data := append([]Value(nil), val.Data...)
		for _, elem := range data {
			MarkShared(elem)
		}
		return &ListValue{Header: cloneHeader(&val.Header), Data: data}
	case *ClosureValue:
		dup := *val
		dup.Header = cloneHeader(&val.Header)
		return &dup
	case *LanguageValue:
		return &LanguageValue{Header: cloneHeader(&val.Header), Expr: val.Expr}
	}
	return v
}

func cloneHeader(h *Header) Header {
	return Header{attrs: h.attrs.Clone()}
}

// PrepareForMutation returns v itself when it is unshared, otherwise a
// duplicate. Replacement functions call it before writing in place.
func PrepareForMutation(v Value) Value {
	if IsShared(v) {
		return Duplicate(v)
	}
	return v
}
