package ast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var reservedWords = map[string]bool{
	"if": true, "else": true, "repeat": true, "while": true, "function": true,
	"for": true, "next": true, "break": true, "TRUE": true, "FALSE": true,
	"NULL": true, "Inf": true, "NaN": true, "NA": true, "NA_integer_": true,
	"NA_real_": true, "NA_character_": true, "NA_complex_": true, "in": true,
}

// IsSyntacticName reports whether name can be written without backquotes.
func IsSyntacticName(name string) bool {
	if name == "" || reservedWords[name] {
		return false
	}
	if name == "..." {
		return true
	}
	if strings.HasPrefix(name, "..") {
		if _, err := strconv.Atoi(name[2:]); err == nil {
			return true
		}
	}
	first, _ := utf8.DecodeRuneInString(name)
	if first == '.' {
		if len(name) > 1 && name[1] >= '0' && name[1] <= '9' {
			return false
		}
	} else if !unicode.IsLetter(first) {
		return false
	}
	for _, r := range name {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_') {
			return false
		}
	}
	return true
}

// QuoteName backquotes non-syntactic symbol names.
func QuoteName(name string) string {
	if IsSyntacticName(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// QuoteString renders s as a double-quoted R string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\a':
			b.WriteString(`\a`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\%03o`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FormatNumber renders a double with up to 15 significant digits, choosing
// fixed or scientific notation by width the way as.character and deparse do.
func FormatNumber(x float64) string {
	return FormatSignificant(x, 15)
}

// FormatSignificant renders x with at most digits significant digits.
func FormatSignificant(x float64, digits int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	case x == 0:
		return "0"
	}
	neg, nsig, kp := SignificantDigits(x, digits)
	rgt := nsig - kp - 1
	if rgt < 0 {
		rgt = 0
	}
	left := kp + 1
	if left < 1 {
		left = 1
	}
	fixedWidth := left
	if rgt > 0 {
		fixedWidth += rgt + 1
	}
	sciWidth := nsig + 4
	if nsig > 1 {
		sciWidth++
	}
	if kp >= 100 || kp <= -100 {
		sciWidth++
	}
	sign := ""
	if neg {
		sign = "-"
	}
	if fixedWidth <= sciWidth {
		return sign + strconv.FormatFloat(math.Abs(x), 'f', rgt, 64)
	}
	return sign + FormatScientific(math.Abs(x), nsig-1)
}

// FormatScientific renders x as d.ddde+XX with the given number of mantissa
// decimals and at least two exponent digits.
func FormatScientific(x float64, decimals int) string {
	s := strconv.FormatFloat(x, 'e', decimals, 64)
	mant, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	for len(digits) < 2 {
		digits = "0" + digits
	}
	return mant + "e" + string(sign) + digits
}

// SignificantDigits returns the sign, the number of significant digits needed
// (at most digits) and the decimal exponent of x.
func SignificantDigits(x float64, digits int) (neg bool, nsig int, kpower int) {
	if x < 0 {
		neg = true
		x = -x
	}
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return neg, 1, 0
	}
	if digits < 1 {
		digits = 1
	}
	s := strconv.FormatFloat(x, 'e', digits-1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	kpower, _ = strconv.Atoi(exp)
	mant = strings.Replace(mant, ".", "", 1)
	mant = strings.TrimRight(mant, "0")
	nsig = len(mant)
	if nsig == 0 {
		nsig = 1
	}
	return neg, nsig, kpower
}

// Deparse renders an expression back to R source text.
func Deparse(expr Expression) string {
	var d deparser
	d.expr(expr)
	return d.b.String()
}

type deparser struct {
	b      strings.Builder
	indent int
}

func (d *deparser) write(s string) { d.b.WriteString(s) }

func (d *deparser) newline() {
	d.b.WriteByte('\n')
	d.b.WriteString(strings.Repeat("    ", d.indent))
}

var tightInfix = map[string]bool{":": true, "^": true, "$": true, "@": true, "::": true}

func (d *deparser) expr(expr Expression) {
	switch n := expr.(type) {
	case nil:
	case *Identifier:
		d.write(QuoteName(n.Name))
	case *NumericLiteral:
		switch {
		case n.NA:
			d.write("NA_real_")
		case n.Value < 0:
			d.write("-" + FormatNumber(-n.Value))
		default:
			d.write(FormatNumber(n.Value))
		}
	case *IntegerLiteral:
		if n.NA {
			d.write("NA_integer_")
		} else {
			d.write(strconv.FormatInt(int64(n.Value), 10) + "L")
		}
	case *ComplexLiteral:
		d.write("0+" + FormatNumber(n.Imaginary) + "i")
	case *StringLiteral:
		if n.NA {
			d.write("NA_character_")
		} else {
			d.write(QuoteString(n.Value))
		}
	case *LogicalLiteral:
		switch n.Value {
		case LogicalTrue:
			d.write("TRUE")
		case LogicalFalse:
			d.write("FALSE")
		default:
			d.write("NA")
		}
	case *NullLiteral:
		d.write("NULL")
	case *Constant:
		d.write(n.Text)
	case *ParenExpression:
		d.write("(")
		d.expr(n.Inner)
		d.write(")")
	case *AssignmentExpression:
		d.expr(n.Target)
		d.write(" " + string(n.Operator) + " ")
		d.expr(n.Value)
	case *BreakExpression:
		d.write("break")
	case *NextExpression:
		d.write("next")
	case *BlockExpression:
		d.write("{")
		d.indent++
		for _, stmt := range n.Body {
			d.newline()
			d.expr(stmt)
		}
		d.indent--
		d.newline()
		d.write("}")
	case *IfExpression:
		d.write("if (")
		d.expr(n.Condition)
		d.write(") ")
		d.expr(n.Then)
		if n.Else != nil {
			d.write(" else ")
			d.expr(n.Else)
		}
	case *ForLoop:
		d.write("for (" + QuoteName(n.Variable) + " in ")
		d.expr(n.Sequence)
		d.write(") ")
		d.expr(n.Body)
	case *WhileLoop:
		d.write("while (")
		d.expr(n.Condition)
		d.write(") ")
		d.expr(n.Body)
	case *RepeatLoop:
		d.write("repeat ")
		d.expr(n.Body)
	case *FunctionLiteral:
		d.write("function(")
		d.params(n.Params)
		d.write(") ")
		d.expr(n.Body)
	case *CallExpression:
		d.call(n)
	default:
		d.write(fmt.Sprintf("<%s>", expr.NodeType()))
	}
}

func (d *deparser) params(params []*Parameter) {
	for idx, p := range params {
		if idx > 0 {
			d.write(", ")
		}
		d.write(QuoteName(p.Name))
		if p.Default != nil {
			d.write(" = ")
			d.expr(p.Default)
		}
	}
}

func (d *deparser) args(args []*Argument) {
	for idx, a := range args {
		if idx > 0 {
			d.write(", ")
		}
		if a.Named {
			d.write(QuoteName(a.Name))
			d.write(" = ")
		}
		d.expr(a.Value)
	}
}

func (d *deparser) call(c *CallExpression) {
	name, named := c.FunctionName()
	switch {
	case named && c.Form == FormInfix && len(c.Args) == 2:
		d.expr(c.Args[0].Value)
		if tightInfix[name] {
			d.write(name)
		} else {
			d.write(" " + name + " ")
		}
		d.expr(c.Args[1].Value)
		return
	case named && c.Form == FormUnary && len(c.Args) == 1:
		d.write(name)
		d.expr(c.Args[0].Value)
		return
	case c.Form == FormIndex && len(c.Args) >= 1:
		d.expr(c.Args[0].Value)
		d.write("[")
		d.args(c.Args[1:])
		d.write("]")
		return
	case c.Form == FormIndex2 && len(c.Args) >= 1:
		d.expr(c.Args[0].Value)
		d.write("[[")
		d.args(c.Args[1:])
		d.write("]]")
		return
	case (c.Form == FormDollar || c.Form == FormAt) && len(c.Args) == 2:
		d.expr(c.Args[0].Value)
		if c.Form == FormDollar {
			d.write("$")
		} else {
			d.write("@")
		}
		if id, ok := c.Args[1].Value.(*Identifier); ok {
			d.write(QuoteName(id.Name))
		} else {
			d.expr(c.Args[1].Value)
		}
		return
	}
	switch fn := c.Function.(type) {
	case *Identifier:
		d.write(QuoteName(fn.Name))
	case *FunctionLiteral:
		d.write("(")
		d.expr(fn)
		d.write(")")
	default:
		d.expr(fn)
	}
	d.write("(")
	d.args(c.Args)
	d.write(")")
}
