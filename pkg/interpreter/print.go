package interpreter

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// Print renders v the way the top level shows a visible value, using the
// default digits and width.
func Print(v runtime.Value) string {
	p := &printer{digits: 7, width: 80, quote: true}
	p.value(v, "")
	return p.b.String()
}

// printer accumulates the text of one print call. With interp set, classed
// values found along the way are handed to their print methods.
type printer struct {
	b      strings.Builder
	digits int
	width  int
	quote  bool

	interp *Interpreter
	env    *runtime.Environment
	// skipDispatch suppresses method lookup for the outermost value, as
	// print.default does.
	skipDispatch bool
	err          error
}

func (i *Interpreter) newPrinter(env *runtime.Environment) *printer {
	return &printer{digits: i.options.Digits, width: i.options.Width, quote: true, interp: i, env: env}
}

func (i *Interpreter) autoPrint(val runtime.Value) error {
	p := i.newPrinter(i.global)
	p.value(val, "")
	if p.err != nil {
		return p.err
	}
	_, err := io.WriteString(i.stdout, p.b.String())
	return err
}

func (p *printer) line(s string) {
	p.b.WriteString(s)
	p.b.WriteByte('\n')
}

func (p *printer) value(v runtime.Value, tag string) {
	if p.err != nil {
		return
	}
	top := p.skipDispatch
	p.skipDispatch = false
	switch x := v.(type) {
	case nil, *runtime.NullValue:
		p.line("NULL")
	case *runtime.Promise:
		if x.Forced() {
			p.value(x.Value(), tag)
		} else {
			p.line("<promise>")
		}
	case *runtime.ClosureValue:
		if !top && p.dispatch(v) {
			return
		}
		p.closure(x)
	case *Builtin:
		p.line("function (" + strings.Join(x.Formals, ", ") + ")  .Primitive(\"" + x.Name + "\")")
	case *runtime.Environment:
		if !top && p.dispatch(v) {
			return
		}
		p.line(environmentLabel(x))
	case *runtime.SymbolValue:
		p.line(ast.QuoteName(x.Name))
	case *runtime.LanguageValue:
		p.line(ast.Deparse(x.Expr))
	case *runtime.MissingValue:
		p.line("")
	case *runtime.DotsValue:
		p.line("<...>")
	case runtime.Vector:
		if !top && p.dispatch(v) {
			return
		}
		p.vectorValue(x, tag)
	default:
		p.line("<" + v.Kind().String() + ">")
	}
}

// dispatch hands a classed value to the first print method defined for one
// of its classes, capturing what the method writes.
func (p *printer) dispatch(v runtime.Value) bool {
	if p.interp == nil {
		return false
	}
	classes := runtime.Class(v)
	for k, cls := range classes {
		fn, err := p.interp.lookupFunction("print."+cls, p.env)
		if err != nil {
			p.err = err
			return true
		}
		closure, ok := fn.(*runtime.ClosureValue)
		if !ok {
			continue
		}
		args := []Arg{{Value: v, Expr: ast.NewIdentifier("x")}}
		call := syntheticCall("print", fn, args)
		var buf bytes.Buffer
		saved := p.interp.stdout
		p.interp.stdout = &buf
		info := &dispatchInfo{generic: "print", classes: classes[k+1:], object: v}
		_, err = p.interp.applyClosure(closure, args, call, p.env, info)
		p.interp.stdout = saved
		p.b.Write(buf.Bytes())
		if err != nil {
			p.err = err
		}
		return true
	}
	return false
}

func environmentLabel(e *runtime.Environment) string {
	if name := e.Name(); name != "" {
		return "<environment: " + name + ">"
	}
	return fmt.Sprintf("<environment: %p>", e)
}

func (p *printer) closure(fn *runtime.ClosureValue) {
	p.line(runtime.DeparseValue(fn))
	if fn.Env != nil && fn.Env.Name() == "" {
		p.line(environmentLabel(fn.Env))
	}
	p.attributes(fn, nil)
}

func (p *printer) vectorValue(v runtime.Vector, tag string) {
	switch {
	case v.Kind() == runtime.KindList && runtime.Inherits(v, "condition"):
		p.condition(v)
		return
	case v.Kind() == runtime.KindList && runtime.Inherits(v, "restart"):
		name, _ := runtime.AsStringScalar(listField(v, "name"))
		p.line("<restart: " + name + " >")
		return
	case runtime.Inherits(v, "factor"):
		p.factor(v)
		p.attributes(v, map[string]bool{"levels": true, "class": true})
		return
	}
	skip := map[string]bool{}
	quote := p.quote
	if runtime.Inherits(v, "noquote") {
		p.quote = false
		skip["class"] = true
		defer func() { p.quote = quote }()
	}
	if runtime.Inherits(v, "table") {
		skip["class"] = true
	}
	dims := runtime.Dim(v)
	switch {
	case len(dims) == 2:
		p.matrix(v, dims[0], dims[1], dimnamesList(v))
	case len(dims) > 2:
		p.array(v, dims, dimnamesList(v))
	case len(dims) == 1 && dimnamesList(v) != nil:
		p.oneDimensional(v)
	case v.Kind() == runtime.KindList:
		p.list(v.(*runtime.ListValue), tag)
	default:
		p.atomic(v)
	}
	p.attributes(v, skip)
}

var hiddenAttributes = map[string]bool{
	"names": true, "dim": true, "dimnames": true, "comment": true, "srcref": true,
}

// attributes lists the attributes print does not already show, each as
// attr(,"name") followed by the printed value.
func (p *printer) attributes(v runtime.Value, skip map[string]bool) {
	a, ok := v.(runtime.Attributed)
	if !ok {
		return
	}
	a.Attributes().Each(func(name string, val runtime.Value) {
		if hiddenAttributes[name] || skip[name] {
			return
		}
		p.line(`attr(,"` + name + `")`)
		p.value(val, "")
	})
}

func emptyVectorLabel(v runtime.Vector) string {
	switch v.Kind() {
	case runtime.KindLogical:
		return "logical(0)"
	case runtime.KindInteger:
		return "integer(0)"
	case runtime.KindDouble:
		return "numeric(0)"
	case runtime.KindComplex:
		return "complex(0)"
	case runtime.KindCharacter:
		return "character(0)"
	case runtime.KindRaw:
		return "raw(0)"
	}
	return "list()"
}

func (p *printer) atomic(v runtime.Vector) {
	n := v.Len()
	if n == 0 {
		label := emptyVectorLabel(v)
		if runtime.Names(v) != nil {
			label = "named " + label
		}
		p.line(label)
		return
	}
	items := formatElements(v, p.digits, p.quote)
	if names := runtime.Names(v); names != nil {
		p.namedColumns(items, formatStrings(names.Data, false))
		return
	}
	p.indexed(items, v.Kind() == runtime.KindCharacter)
}

// indexed lays items out in rows prefixed by the [i] index of the first
// element, wrapping at the print width.
func (p *printer) indexed(items []string, left bool) {
	n := len(items)
	w := maxWidth(items)
	items = justify(items, w, left)
	labelWidth := len(strconv.Itoa(n)) + 2
	perLine := max(1, (p.width-labelWidth)/(w+1))
	for start := 0; start < n; start += perLine {
		p.b.WriteString(padLeft("["+strconv.Itoa(start+1)+"]", labelWidth))
		for k := start; k < min(n, start+perLine); k++ {
			p.b.WriteByte(' ')
			p.b.WriteString(items[k])
		}
		p.b.WriteByte('\n')
	}
}

// namedColumns prints each element under its name, both right-aligned in a
// shared column width.
func (p *printer) namedColumns(items, names []string) {
	w := max(maxWidth(items), maxWidth(names))
	perLine := max(1, p.width/(w+1))
	for start := 0; start < len(items); start += perLine {
		end := min(len(items), start+perLine)
		for k := start; k < end; k++ {
			p.b.WriteString(padLeft(names[k], w))
			p.b.WriteByte(' ')
		}
		p.b.WriteByte('\n')
		for k := start; k < end; k++ {
			p.b.WriteString(padLeft(items[k], w))
			p.b.WriteByte(' ')
		}
		p.b.WriteByte('\n')
	}
}

func (p *printer) list(v *runtime.ListValue, tag string) {
	names := runtime.Names(v)
	if len(v.Data) == 0 {
		if names != nil {
			p.line("named list()")
		} else {
			p.line("list()")
		}
		return
	}
	for k, elem := range v.Data {
		t := tag + "[[" + strconv.Itoa(k+1) + "]]"
		if names != nil && !names.Data[k].NA && names.Data[k].Val != "" {
			name := names.Data[k].Val
			if !ast.IsSyntacticName(name) {
				name = "`" + name + "`"
			}
			t = tag + "$" + name
		}
		p.line(t)
		p.value(elem, t)
		p.b.WriteByte('\n')
		if p.err != nil {
			return
		}
	}
}

func (p *printer) condition(v runtime.Vector) {
	cls := runtime.Class(v)[0]
	msg := conditionMessage(v)
	if call := conditionCallText(v); call != "" {
		p.line("<" + cls + " in " + call + ": " + msg + ">")
		return
	}
	p.line("<" + cls + ": " + msg + ">")
}

func (p *printer) factor(v runtime.Vector) {
	levels, _ := runtime.GetAttr(v, "levels").(*runtime.CharacterVector)
	codes, _ := v.(*runtime.IntegerVector)
	if codes == nil || codes.Len() == 0 {
		p.line("factor(0)")
	} else {
		labels := make([]runtime.Str, codes.Len())
		for k, code := range codes.Data {
			if code == runtime.NAInteger || levels == nil || int(code) > levels.Len() || code < 1 {
				labels[k] = runtime.Str{NA: true}
				continue
			}
			labels[k] = levels.Data[code-1]
		}
		items := formatStrings(labels, false)
		if names := runtime.Names(v); names != nil {
			p.namedColumns(items, formatStrings(names.Data, false))
		} else {
			p.indexed(items, true)
		}
	}
	sep := " "
	if runtime.Inherits(v, "ordered") {
		sep = " < "
	}
	var lv []string
	if levels != nil {
		lv = formatStrings(levels.Data, false)
	}
	p.line("Levels: " + strings.Join(lv, sep))
}

func (p *printer) oneDimensional(v runtime.Vector) {
	dn := dimnamesList(v)
	if dnn := runtime.Names(dn); dnn != nil {
		p.line(dnn.Data[0].Val)
	}
	labels := dimnameAt(dn, 0)
	items := formatElements(v, p.digits, p.quote)
	if labels == nil {
		p.indexed(items, v.Kind() == runtime.KindCharacter)
		return
	}
	p.namedColumns(items, formatStrings(labels.Data, false))
}

func (p *printer) matrix(v runtime.Vector, nr, nc int, dn *runtime.ListValue) {
	if nr == 0 && nc == 0 {
		p.line("<0 x 0 matrix>")
		return
	}
	var rowTitle, colTitle string
	if dn != nil {
		if dnn := runtime.Names(dn); dnn != nil {
			rowTitle, colTitle = dnn.Data[0].Val, dnn.Data[1].Val
		}
	}
	rowLabels := make([]string, nr)
	if rn := dimnameAt(dn, 0); rn != nil {
		rowLabels = formatStrings(rn.Data, false)
	} else {
		for r := range rowLabels {
			rowLabels[r] = "[" + strconv.Itoa(r+1) + ",]"
		}
	}
	rowWidth := max(maxWidth(rowLabels), displayWidth(rowTitle))
	rowLabels = justify(rowLabels, rowWidth, true)

	colNames := dimnameAt(dn, 1)
	left := v.Kind() == runtime.KindCharacter
	headers := make([]string, nc)
	cells := make([][]string, nc)
	widths := make([]int, nc)
	for j := 0; j < nc; j++ {
		if colNames != nil {
			headers[j] = formatStrings(colNames.Data[j:j+1], false)[0]
		} else {
			headers[j] = "[," + strconv.Itoa(j+1) + "]"
		}
		idx := make([]int, nr)
		for r := range idx {
			idx[r] = j*nr + r
		}
		cells[j] = formatElements(v.Select(idx), p.digits, p.quote)
		widths[j] = max(maxWidth(cells[j]), displayWidth(headers[j]))
	}
	if nc == 0 {
		p.line(padRight(rowTitle, rowWidth))
		for _, label := range rowLabels {
			p.line(label)
		}
		return
	}
	for start := 0; start < nc; {
		end, used := start, rowWidth
		for end < nc && (end == start || used+widths[end]+1 <= p.width) {
			used += widths[end] + 1
			end++
		}
		if colTitle != "" {
			p.line(strings.Repeat(" ", rowWidth) + " " + colTitle)
		}
		p.b.WriteString(padRight(rowTitle, rowWidth))
		for j := start; j < end; j++ {
			p.b.WriteByte(' ')
			p.b.WriteString(justify(headers[j:j+1], widths[j], left)[0])
		}
		p.b.WriteByte('\n')
		for r := 0; r < nr; r++ {
			p.b.WriteString(rowLabels[r])
			for j := start; j < end; j++ {
				p.b.WriteByte(' ')
				p.b.WriteString(justify(cells[j][r:r+1], widths[j], left)[0])
			}
			p.b.WriteByte('\n')
		}
		start = end
	}
}

// array prints each matrix slice of a higher-dimensional array under its
// ", , k" heading.
func (p *printer) array(v runtime.Vector, dims []int, dn *runtime.ListValue) {
	nr, nc := dims[0], dims[1]
	slices := 1
	for _, d := range dims[2:] {
		slices *= d
	}
	if slices == 0 || v.Len() == 0 {
		extents := make([]string, len(dims))
		for k, d := range dims {
			extents[k] = strconv.Itoa(d)
		}
		p.line("<" + strings.Join(extents, " x ") + " array of " + v.Kind().String() + ">")
		return
	}
	var dnn *runtime.CharacterVector
	var head *runtime.ListValue
	if dn != nil {
		dnn = runtime.Names(dn)
		head = runtime.NewList(dn.Data[:2])
		if dnn != nil {
			runtime.SetAttrRaw(head, "names", runtime.NewCharacterVector(dnn.Data[:2]))
		}
	}
	size := nr * nc
	for s := 0; s < slices; s++ {
		labels := make([]string, 0, len(dims)-2)
		rest := s
		for d := 2; d < len(dims); d++ {
			k := rest % dims[d]
			rest /= dims[d]
			label := strconv.Itoa(k + 1)
			if names := dimnameAt(dn, d); names != nil {
				label = names.Data[k].Val
				if dnn != nil && dnn.Data[d].Val != "" {
					label = dnn.Data[d].Val + " = " + label
				}
			}
			labels = append(labels, label)
		}
		p.line(", , " + strings.Join(labels, ", "))
		p.line("")
		idx := make([]int, size)
		for k := range idx {
			idx[k] = s*size + k
		}
		p.matrix(v.Select(idx), nr, nc, head)
		p.line("")
	}
}
