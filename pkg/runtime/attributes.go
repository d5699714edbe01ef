package runtime

import (
	"fmt"
)

type attrEntry struct {
	name  string
	value Value
}

// Attributes is an ordered attribute list. Order only matters for printing.
// A nil *Attributes is an empty list.
type Attributes struct {
	entries []attrEntry
}

func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

func (a *Attributes) Get(name string) Value {
	if a == nil {
		return nil
	}
	for _, e := range a.entries {
		if e.name == name {
			return e.value
		}
	}
	return nil
}

// Set adds or replaces an attribute; the value is marked shared.
func (a *Attributes) Set(name string, value Value) {
	MarkShared(value)
	for i, e := range a.entries {
		if e.name == name {
			a.entries[i].value = value
			return
		}
	}
	a.entries = append(a.entries, attrEntry{name: name, value: value})
}

func (a *Attributes) Remove(name string) {
	if a == nil {
		return
	}
	for i, e := range a.entries {
		if e.name == name {
			a.entries = append(a.entries[:i:i], a.entries[i+1:]...)
			return
		}
	}
}

// Names lists attribute names in insertion order.
func (a *Attributes) Names() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.name
	}
	return out
}

// Each visits attributes in order.
func (a *Attributes) Each(fn func(name string, value Value)) {
	if a == nil {
		return
	}
	for _, e := range a.entries {
		fn(e.name, e.value)
	}
}

// Clone copies the list; values are shared.
func (a *Attributes) Clone() *Attributes {
	if a == nil || len(a.entries) == 0 {
		return nil
	}
	out := &Attributes{entries: make([]attrEntry, len(a.entries))}
	copy(out.entries, a.entries)
	return out
}

// GetAttr returns the attribute or nil.
func GetAttr(v Value, name string) Value {
	a, ok := v.(Attributed)
	if !ok {
		return nil
	}
	return a.Attributes().Get(name)
}

// HasAttributes reports whether v carries any attribute.
func HasAttributes(v Value) bool {
	a, ok := v.(Attributed)
	return ok && a.Attributes().Len() > 0
}

// SetAttrRaw stores an attribute without validation.
func SetAttrRaw(v Attributed, name string, value Value) {
	if value == nil || value.Kind() == KindNull {
		if attrs := v.Attributes(); attrs != nil {
			attrs.Remove(name)
			if attrs.Len() == 0 {
				v.SetAttributes(nil)
			}
		}
		return
	}
	attrs := v.Attributes()
	if attrs == nil {
		attrs = &Attributes{}
		v.SetAttributes(attrs)
	}
	attrs.Set(name, value)
}

// SetAttr validates and stores an attribute the way attr<- does: names are
// padded with NA, dim must match the length and drops names and dimnames,
// dimnames require dim, class is coerced to character. The caller owns v.
func SetAttr(v Value, name string, value Value) error {
	target, ok := v.(Attributed)
	if !ok {
		if v.Kind() == KindNull {
			if value.Kind() == KindNull {
				return nil
			}
			return &ArgumentError{Message: "attempt to set an attribute on NULL"}
		}
		return &ArgumentError{Message: fmt.Sprintf("cannot set attribute on a %s", v.Kind())}
	}
	if value.Kind() == KindNull {
		SetAttrRaw(target, name, value)
		return nil
	}
	switch name {
	case "names":
		return setNames(target, value)
	case "dim":
		return setDim(target, value)
	case "dimnames":
		return setDimnames(target, value)
	case "class":
		cls, _, err := CoerceVector(value, KindCharacter)
		if err != nil {
			return err
		}
		if cls.Len() == 0 {
			SetAttrRaw(target, name, Null)
			return nil
		}
		SetAttrRaw(target, name, stripAttributes(cls))
		return nil
	}
	SetAttrRaw(target, name, value)
	return nil
}

func setNames(target Attributed, value Value) error {
	vec, ok := target.(Vector)
	n := 1
	if ok {
		n = vec.Len()
	}
	names, _, err := CoerceVector(value, KindCharacter)
	if err != nil {
		return err
	}
	chars := stripAttributes(names).(*CharacterVector)
	if chars.Len() > n {
		return &ArgumentError{Message: fmt.Sprintf("'names' attribute [%d] must be the same length as the vector [%d]", chars.Len(), n)}
	}
	if chars.Len() < n {
		padded := &CharacterVector{Data: append([]Str(nil), chars.Data...)}
		padded.Resize(n)
		chars = padded
	}
	if dim := target.Attributes().Get("dim"); dim != nil && Length(dim) == 1 {
		// One-dimensional arrays keep their names as dimnames.
		SetAttrRaw(target, "dimnames", NewList([]Value{chars}))
		return nil
	}
	SetAttrRaw(target, "names", chars)
	return nil
}

func setDim(target Attributed, value Value) error {
	vec, ok := target.(Vector)
	if !ok {
		return &ArgumentError{Message: "invalid first argument, must be vector (list or atomic)"}
	}
	dims, _, err := CoerceVector(value, KindInteger)
	if err != nil {
		return err
	}
	ints := dims.(*IntegerVector)
	if ints.Len() == 0 {
		return &ArgumentError{Message: "length-0 dimension vector is invalid"}
	}
	product := 1
	for _, d := range ints.Data {
		if d == NAInteger {
			return &ArgumentError{Message: "the dims contain missing or negative values"}
		}
		if d < 0 {
			return &ArgumentError{Message: "the dims contain negative values"}
		}
		product *= int(d)
	}
	if product != vec.Len() {
		return &ArgumentError{Message: fmt.Sprintf("dims [product %d] do not match the length of object [%d]", product, vec.Len())}
	}
	SetAttrRaw(target, "names", Null)
	SetAttrRaw(target, "dimnames", Null)
	SetAttrRaw(target, "dim", stripAttributes(ints))
	return nil
}

func setDimnames(target Attributed, value Value) error {
	dimVal := target.Attributes().Get("dim")
	if dimVal == nil {
		return &ArgumentError{Message: "'dimnames' applied to non-array"}
	}
	dims := dimVal.(*IntegerVector)
	list, ok := value.(*ListValue)
	if !ok {
		return &ArgumentError{Message: "'dimnames' must be a list"}
	}
	if list.Len() != dims.Len() {
		return &ArgumentError{Message: fmt.Sprintf("length of 'dimnames' [%d] must match that of 'dims' [%d]", list.Len(), dims.Len())}
	}
	out := make([]Value, list.Len())
	for i, elem := range list.Data {
		if elem.Kind() == KindNull {
			out[i] = Null
			continue
		}
		names, _, err := CoerceVector(elem, KindCharacter)
		if err != nil {
			return err
		}
		if names.Len() != int(dims.Data[i]) {
			return &ArgumentError{Message: fmt.Sprintf("length of 'dimnames' [%d] not equal to array extent", i+1)}
		}
		out[i] = stripAttributes(names)
	}
	result := NewList(out)
	if listNames := list.Attributes().Get("names"); listNames != nil {
		SetAttrRaw(result, "names", listNames)
	}
	SetAttrRaw(target, "dimnames", result)
	return nil
}

// stripAttributes returns v without attributes, copying only if needed.
func stripAttributes(v Vector) Vector {
	if v.Attributes().Len() == 0 {
		return v
	}
	dup := Duplicate(v).(Vector)
	dup.SetAttributes(nil)
	return dup
}

// StripAttributes returns an attribute-free copy-on-need version of v.
func StripAttributes(v Vector) Vector { return stripAttributes(v) }

// Names returns the names attribute as a character vector, or nil.
func Names(v Value) *CharacterVector {
	if names, ok := GetAttr(v, "names").(*CharacterVector); ok {
		return names
	}
	return nil
}

// Dim returns the dim attribute, or nil.
func Dim(v Value) []int {
	dims, ok := GetAttr(v, "dim").(*IntegerVector)
	if !ok {
		return nil
	}
	out := make([]int, dims.Len())
	for i, d := range dims.Data {
		out[i] = int(d)
	}
	return out
}

// Class returns the explicit class attribute.
func Class(v Value) []string {
	cls, ok := GetAttr(v, "class").(*CharacterVector)
	if !ok {
		return nil
	}
	return cls.Strings()
}

// Inherits reports whether the class attribute contains name.
func Inherits(v Value, name string) bool {
	for _, c := range Class(v) {
		if c == name {
			return true
		}
	}
	return false
}
