package interpreter

import (
	"io"
	"strings"

	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installPrintBuiltins() {
	i.invisibleDef("print", "x, digits, quote, ...", builtinPrint)
	i.invisibleDef("print.default", "x, digits, quote, ...", builtinPrint)
	i.def("format", "x, trim, digits, nsmall, justify, width, ...", builtinFormat)
	i.invisibleDef("cat", "..., file, sep, fill, labels, append", builtinCat)
	i.invisibleDef("writeLines", "text, con, sep, useBytes", builtinWriteLines)
	i.def("noquote", "obj, right", builtinNoquote)
}

// suppliedArgs rebuilds the actual arguments of the call, for handing on to
// a method.
func (c *CallContext) suppliedArgs() []Arg {
	var out []Arg
	for k, a := range c.Args {
		if !c.Has(k) {
			continue
		}
		name := ""
		if k > 0 {
			name = c.builtin.Formals[k]
		}
		out = append(out, Arg{Name: name, Value: a.Value, Expr: a.Expr})
	}
	return append(out, c.Dots...)
}

// optionalInt reads formal k as an int, treating NULL like an absent
// argument.
func (c *CallContext) optionalInt(k int, def int) (int, error) {
	v, err := c.Arg(k)
	if err != nil || v == nil || v.Kind() == runtime.KindNull {
		return def, err
	}
	return c.intArg(k, def)
}

func builtinPrint(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if c.Name() == "print" {
		if res, ok, err := c.dispatchInternal("print", x, c.suppliedArgs()); ok {
			return res, err
		}
	}
	p := c.Interp.newPrinter(c.Env)
	if p.digits, err = c.optionalInt(1, p.digits); err != nil {
		return nil, err
	}
	if p.digits < 1 || p.digits > 22 {
		return nil, runtime.Errorf("invalid digits argument")
	}
	if p.quote, err = c.flag(2, true); err != nil {
		return nil, err
	}
	p.skipDispatch = true
	p.value(x, "")
	if p.err != nil {
		return nil, p.err
	}
	if _, err := io.WriteString(c.Interp.stdout, p.b.String()); err != nil {
		return nil, err
	}
	return x, nil
}

func builtinFormat(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if res, ok, err := c.dispatchInternal("format", x, c.suppliedArgs()); ok {
		return res, err
	}
	trim, err := c.flag(1, false)
	if err != nil {
		return nil, err
	}
	digits, err := c.optionalInt(2, c.Interp.options.Digits)
	if err != nil {
		return nil, err
	}
	nsmall, err := c.optionalInt(3, 0)
	if err != nil {
		return nil, err
	}
	justifyMode, err := c.stringArg(4, "left")
	if err != nil {
		return nil, err
	}
	width, err := c.optionalInt(5, 0)
	if err != nil {
		return nil, err
	}

	switch v := x.(type) {
	case *runtime.NullValue:
		return runtime.NewCharacterVector(nil), nil
	case *runtime.Environment:
		return runtime.StringScalar(environmentLabel(v)), nil
	case *runtime.ListValue:
		items := make([]string, len(v.Data))
		for k, elem := range v.Data {
			items[k] = formatListCell(elem, digits)
		}
		out := runtime.StringVector(items...)
		keepShape(out, v)
		return out, nil
	case runtime.Vector:
		vec := v
		if runtime.Inherits(v, "factor") {
			vec = factorLabels(v)
		}
		var items []string
		switch e := vec.(type) {
		case *runtime.DoubleVector:
			items = formatReals(e.Data, digits, nsmall)
		case *runtime.CharacterVector:
			items = make([]string, len(e.Data))
			for k, s := range e.Data {
				items[k] = naOr(s)
			}
		default:
			items = formatElements(vec, digits, false)
		}
		w := max(maxWidth(items), width)
		switch {
		case vec.Kind() == runtime.KindCharacter:
			items = justifyStrings(items, w, justifyMode)
		case !trim:
			items = justify(items, w, false)
		}
		out := runtime.StringVector(items...)
		keepShape(out, v)
		return out, nil
	}
	return runtime.StringVector(deparseLines(x)...), nil
}

// formatListCell renders one list element for format(): atomic vectors as
// their comma separated elements.
func formatListCell(v runtime.Value, digits int) string {
	switch x := v.(type) {
	case *runtime.NullValue:
		return "NULL"
	case *runtime.ListValue:
		parts := make([]string, len(x.Data))
		for k, elem := range x.Data {
			parts[k] = formatListCell(elem, digits)
		}
		return strings.Join(parts, ", ")
	case runtime.Vector:
		parts := make([]string, x.Len())
		for k := range parts {
			parts[k] = formatScalar(x, k, digits)
		}
		return strings.Join(parts, ", ")
	}
	return strings.Join(deparseLines(v), " ")
}

func justifyStrings(items []string, w int, mode string) []string {
	switch mode {
	case "none":
		return items
	case "right":
		return justify(items, w, false)
	case "centre", "center":
		out := make([]string, len(items))
		for k, s := range items {
			gap := w - displayWidth(s)
			out[k] = strings.Repeat(" ", gap/2) + s + strings.Repeat(" ", gap-gap/2)
		}
		return out
	}
	return justify(items, w, true)
}

func builtinCat(c *CallContext) (runtime.Value, error) {
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	sepVal, err := c.ArgOr(2, runtime.StringScalar(" "))
	if err != nil {
		return nil, err
	}
	seps, ok := sepVal.(*runtime.CharacterVector)
	if !ok || seps.Len() == 0 {
		return nil, runtime.Errorf("invalid 'sep' specification")
	}
	fill, err := c.flag(3, false)
	if err != nil {
		return nil, err
	}
	digits := c.Interp.options.Digits
	var items []string
	for k, v := range vals {
		switch x := v.(type) {
		case *runtime.NullValue:
		case *runtime.SymbolValue:
			items = append(items, x.Name)
		case *runtime.ListValue:
			for _, elem := range x.Data {
				vec, isVec := elem.(runtime.Vector)
				if !isVec || elem.Kind() == runtime.KindList || vec.Len() != 1 {
					return nil, runtime.Errorf("argument %d (type 'list') cannot be handled by 'cat'", k+1)
				}
				items = append(items, formatScalar(vec, 0, digits))
			}
		case runtime.Vector:
			for j := 0; j < x.Len(); j++ {
				items = append(items, formatScalar(x, j, digits))
			}
		default:
			return nil, runtime.Errorf("argument %d (type '%s') cannot be handled by 'cat'", k+1, typeOf(v))
		}
	}
	var b strings.Builder
	for k, s := range items {
		if k > 0 {
			b.WriteString(naOr(seps.Data[(k-1)%seps.Len()]))
		}
		b.WriteString(s)
	}
	if fill && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(c.Interp.stdout, b.String()); err != nil {
		return nil, err
	}
	return runtime.Null, nil
}

func builtinWriteLines(c *CallContext) (runtime.Value, error) {
	text, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	lines, ok := text.(*runtime.CharacterVector)
	if !ok {
		return nil, runtime.Errorf("can only write character objects")
	}
	sep, err := c.stringArg(2, "\n")
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, s := range lines.Data {
		b.WriteString(naOr(s))
		b.WriteString(sep)
	}
	if _, err := io.WriteString(c.Interp.stdout, b.String()); err != nil {
		return nil, err
	}
	return runtime.Null, nil
}

func builtinNoquote(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	classes := runtime.Class(x)
	for _, cls := range classes {
		if cls == "noquote" {
			return x, nil
		}
	}
	return c.setAttribute(x, "class", runtime.StringVector(append([]string{"noquote"}, classes...)...))
}
