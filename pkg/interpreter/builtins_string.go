package interpreter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) installStringBuiltins() {
	i.def("paste", "..., sep, collapse", builtinPaste(" "))
	i.def("paste0", "..., collapse", builtinPaste(""))
	i.def("toString", "x, collapse", func(c *CallContext) (runtime.Value, error) {
		x, err := c.ArgOr(0, runtime.Null)
		if err != nil {
			return nil, err
		}
		sep, err := c.stringArg(1, ", ")
		if err != nil {
			return nil, err
		}
		strs, err := characterOf(x)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(strs))
		for k, s := range strs {
			parts[k] = naOr(s)
		}
		return runtime.StringScalar(strings.Join(parts, sep)), nil
	})
	i.def("nchar", "x, type", builtinNchar)
	i.def("toupper", "x", stringMap(strings.ToUpper))
	i.def("tolower", "x", stringMap(strings.ToLower))
	i.def("trimws", "x, which", builtinTrimws)
	i.def("substr", "x, start, stop", builtinSubstr)
	i.def("substring", "text, first, last", builtinSubstr)
	i.def("strsplit", "x, split, fixed, perl", builtinStrsplit)
	i.def("sprintf", "fmt, ...", builtinSprintf)
	i.def("startsWith", "x, prefix", affixTest(strings.HasPrefix))
	i.def("endsWith", "x, suffix", affixTest(strings.HasSuffix))
	i.def("sub", "pattern, replacement, x, ignore.case, perl, fixed", builtinSub(false))
	i.def("gsub", "pattern, replacement, x, ignore.case, perl, fixed", builtinSub(true))
	i.def("grepl", "pattern, x, ignore.case, perl, fixed", builtinGrep(true))
	i.def("grep", "pattern, x, ignore.case, perl, value, fixed", builtinGrep(false))
	i.def("regexpr", "pattern, text, ignore.case, perl, fixed", builtinRegexpr)
	i.def("strtoi", "x, base", builtinStrtoi)
	i.def("chartr", "old, new, x", builtinChartr)
	i.def("sQuote", "x, q", quoteWith("‘", "’"))
	i.def("dQuote", "x, q", quoteWith("“", "”"))
	i.def("shQuote", "string", func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		return mapStrings(x, func(s string) string {
			return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
		})
	})
	i.def("strrep", "x, times", builtinStrrep)
}

func naOr(s runtime.Str) string {
	if s.NA {
		return "NA"
	}
	return s.Val
}

// characterOf converts a value to strings the way as.character does,
// reading factors through their labels.
func characterOf(v runtime.Value) ([]runtime.Str, error) {
	switch val := v.(type) {
	case *runtime.NullValue:
		return nil, nil
	case *runtime.SymbolValue:
		return []runtime.Str{runtime.S(val.Name)}, nil
	case *runtime.CharacterVector:
		return val.Data, nil
	case runtime.Vector:
		if labels, ok := factorLabels(val).(*runtime.CharacterVector); ok && runtime.Inherits(val, "factor") {
			return labels.Data, nil
		}
	}
	cv, _, err := runtime.CoerceVector(v, runtime.KindCharacter)
	if err != nil {
		return nil, err
	}
	return cv.(*runtime.CharacterVector).Data, nil
}

func builtinPaste(defaultSep string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		sep := defaultSep
		collapseAt := 1
		if defaultSep != "" {
			s, err := c.stringArg(1, " ")
			if err != nil {
				return nil, err
			}
			sep, collapseAt = s, 2
		}
		vals, err := c.Values()
		if err != nil {
			return nil, err
		}
		cols := make([][]runtime.Str, 0, len(vals))
		n := 0
		for _, v := range vals {
			strs, err := characterOf(v)
			if err != nil {
				return nil, err
			}
			cols = append(cols, strs)
			if len(strs) > n {
				n = len(strs)
			}
		}
		out := make([]string, n)
		for k := range out {
			var b strings.Builder
			for j, col := range cols {
				if j > 0 {
					b.WriteString(sep)
				}
				if len(col) > 0 {
					b.WriteString(naOr(col[k%len(col)]))
				}
			}
			out[k] = b.String()
		}
		if c.Has(collapseAt) {
			cv, err := c.Arg(collapseAt)
			if err != nil {
				return nil, err
			}
			if cv.Kind() != runtime.KindNull {
				collapse, ok := runtime.AsStringScalar(cv)
				if !ok || isNAString(cv, 0) {
					return nil, runtime.Errorf("invalid '%s' argument", "collapse")
				}
				return runtime.StringScalar(strings.Join(out, collapse)), nil
			}
		}
		return runtime.StringVector(out...), nil
	}
}

// keepShape copies names, dim and dimnames from src.
func keepShape(dst runtime.Attributed, src runtime.Value) {
	for _, name := range []string{"names", "dim", "dimnames"} {
		if a := runtime.GetAttr(src, name); a != nil {
			runtime.SetAttrRaw(dst, name, a)
		}
	}
}

// mapStrings applies fn to every non-NA string of x.
func mapStrings(x runtime.Value, fn func(string) string) (runtime.Value, error) {
	strs, err := characterOf(x)
	if err != nil {
		return nil, err
	}
	out := make([]runtime.Str, len(strs))
	for k, s := range strs {
		if s.NA {
			out[k] = runtime.NAString
		} else {
			out[k] = runtime.S(fn(s.Val))
		}
	}
	res := runtime.NewCharacterVector(out)
	keepShape(res, x)
	return res, nil
}

func stringMap(fn func(string) string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.ArgOr(0, runtime.NewCharacterVector(nil))
		if err != nil {
			return nil, err
		}
		return mapStrings(x, fn)
	}
}

func builtinNchar(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	kind, err := c.stringArg(1, "chars")
	if err != nil {
		return nil, err
	}
	if runtime.Inherits(x, "factor") {
		return nil, runtime.Errorf("'nchar()' requires a character vector")
	}
	strs, err := characterOf(x)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(strs))
	for k, s := range strs {
		switch {
		case s.NA && x.Kind() == runtime.KindCharacter:
			out[k] = 2
			if kind != "width" {
				out[k] = runtime.NAInteger
			}
		case s.NA:
			out[k] = 2
		case kind == "bytes":
			out[k] = int32(len(s.Val))
		case kind == "width":
			out[k] = int32(displayWidth(s.Val))
		default:
			out[k] = int32(utf8.RuneCountInString(s.Val))
		}
	}
	res := runtime.NewIntegerVector(out)
	keepShape(res, x)
	return res, nil
}

func builtinTrimws(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	which, err := c.stringArg(1, "both")
	if err != nil {
		return nil, err
	}
	const ws = " \t\r\n"
	return mapStrings(x, func(s string) string {
		switch which {
		case "left":
			return strings.TrimLeft(s, ws)
		case "right":
			return strings.TrimRight(s, ws)
		}
		return strings.Trim(s, ws)
	})
}

func (c *CallContext) intsArg(k int, def int32) ([]int32, error) {
	v, err := c.Arg(k)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []int32{def}, nil
	}
	vec, ok := v.(runtime.Vector)
	if !ok || !isNumericKind(vec.Kind()) {
		return nil, runtime.Errorf("invalid '%s' argument", c.formalName(k))
	}
	return asInts(vec), nil
}

func builtinSubstr(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	starts, err := c.intsArg(1, 1)
	if err != nil {
		return nil, err
	}
	stops, err := c.intsArg(2, 1000000)
	if err != nil {
		return nil, err
	}
	strs, err := characterOf(x)
	if err != nil {
		return nil, err
	}
	n := len(strs)
	if c.Name() == "substring" && n > 0 {
		n = max(n, len(starts), len(stops))
	}
	if len(starts) == 0 || len(stops) == 0 {
		return nil, runtime.Errorf("invalid substring arguments")
	}
	out := make([]runtime.Str, n)
	for k := range out {
		s := strs[k%len(strs)]
		from, to := starts[k%len(starts)], stops[k%len(stops)]
		if s.NA || from == runtime.NAInteger || to == runtime.NAInteger {
			out[k] = runtime.NAString
			continue
		}
		runes := []rune(s.Val)
		if from < 1 {
			from = 1
		}
		if int(to) > len(runes) {
			to = int32(len(runes))
		}
		if from > to {
			out[k] = runtime.S("")
			continue
		}
		out[k] = runtime.S(string(runes[from-1 : to]))
	}
	res := runtime.NewCharacterVector(out)
	if n == len(strs) {
		keepShape(res, x)
	}
	return res, nil
}

// compilePattern builds the matcher shared by the regex builtins. fixed
// patterns are quoted; ignore.case prepends the (?i) flag.
func compilePattern(pattern string, fixed, ignoreCase bool) (*regexp.Regexp, error) {
	if fixed {
		pattern = regexp.QuoteMeta(pattern)
	}
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, runtime.Errorf("invalid regular expression '%s', reason '%s'", pattern, err)
	}
	return re, nil
}

func (c *CallContext) patternArg(k int, caseK, fixedK int) (*regexp.Regexp, error) {
	pv, err := c.Require(k)
	if err != nil {
		return nil, err
	}
	pattern, ok := runtime.AsStringScalar(pv)
	if !ok || isNAString(pv, 0) {
		return nil, runtime.Errorf("invalid '%s' argument", "pattern")
	}
	ignoreCase, err := c.flag(caseK, false)
	if err != nil {
		return nil, err
	}
	fixed, err := c.flag(fixedK, false)
	if err != nil {
		return nil, err
	}
	return compilePattern(pattern, fixed, ignoreCase)
}

func builtinStrsplit(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	if x.Kind() != runtime.KindCharacter {
		return nil, runtime.Errorf("non-character argument")
	}
	strs, _ := characterOf(x)
	sv, err := c.ArgOr(1, runtime.StringScalar(""))
	if err != nil {
		return nil, err
	}
	split, ok := runtime.AsStringScalar(sv)
	if !ok {
		split = ""
	}
	fixed, err := c.flag(2, false)
	if err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if split != "" {
		if re, err = compilePattern(split, fixed, false); err != nil {
			return nil, err
		}
	}
	out := make([]runtime.Value, len(strs))
	for k, s := range strs {
		if s.NA {
			out[k] = runtime.NewCharacterVector([]runtime.Str{runtime.NAString})
			continue
		}
		var parts []string
		if re == nil {
			for _, r := range s.Val {
				parts = append(parts, string(r))
			}
		} else {
			rest := s.Val
			for rest != "" {
				loc := re.FindStringIndex(rest)
				if loc == nil {
					parts = append(parts, rest)
					break
				}
				if loc[1] == 0 {
					_, size := utf8.DecodeRuneInString(rest)
					parts = append(parts, rest[:size])
					rest = rest[size:]
					continue
				}
				parts = append(parts, rest[:loc[0]])
				rest = rest[loc[1]:]
			}
		}
		out[k] = runtime.StringVector(parts...)
	}
	res := runtime.NewList(out)
	if names := runtime.Names(x); names != nil {
		runtime.SetAttrRaw(res, "names", names)
	}
	return res, nil
}

// translateReplacement turns \1 back-references into regexp expansion
// syntax and escapes literal dollars.
func translateReplacement(repl string, fixed bool) string {
	if fixed {
		return strings.ReplaceAll(repl, "$", "$$")
	}
	var b strings.Builder
	for k := 0; k < len(repl); k++ {
		ch := repl[k]
		switch {
		case ch == '\\' && k+1 < len(repl) && repl[k+1] >= '0' && repl[k+1] <= '9':
			b.WriteString("${" + string(repl[k+1]) + "}")
			k++
		case ch == '\\' && k+1 < len(repl):
			b.WriteByte(repl[k+1])
			k++
		case ch == '$':
			b.WriteString("$$")
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func builtinSub(global bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		re, err := c.patternArg(0, 3, 5)
		if err != nil {
			return nil, err
		}
		rv, err := c.Require(1)
		if err != nil {
			return nil, err
		}
		repl, ok := runtime.AsStringScalar(rv)
		if !ok {
			return nil, runtime.Errorf("invalid '%s' argument", "replacement")
		}
		fixed, err := c.flag(5, false)
		if err != nil {
			return nil, err
		}
		template := translateReplacement(repl, fixed)
		x, err := c.Require(2)
		if err != nil {
			return nil, err
		}
		strs, err := characterOf(x)
		if err != nil {
			return nil, err
		}
		out := make([]runtime.Str, len(strs))
		for k, s := range strs {
			if s.NA {
				out[k] = runtime.NAString
				continue
			}
			if global {
				out[k] = runtime.S(re.ReplaceAllString(s.Val, template))
				continue
			}
			loc := re.FindStringSubmatchIndex(s.Val)
			if loc == nil {
				out[k] = s
				continue
			}
			expanded := re.ExpandString(nil, template, s.Val, loc)
			out[k] = runtime.S(s.Val[:loc[0]] + string(expanded) + s.Val[loc[1]:])
		}
		res := runtime.NewCharacterVector(out)
		keepShape(res, x)
		return res, nil
	}
}

func builtinGrep(logical bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		fixedK := 4
		if !logical {
			fixedK = 5
		}
		re, err := c.patternArg(0, 2, fixedK)
		if err != nil {
			return nil, err
		}
		x, err := c.Require(1)
		if err != nil {
			return nil, err
		}
		strs, err := characterOf(x)
		if err != nil {
			return nil, err
		}
		if logical {
			out := make([]int32, len(strs))
			for k, s := range strs {
				if s.NA {
					out[k] = runtime.NALogical
				} else {
					out[k] = boolInt(re.MatchString(s.Val))
				}
			}
			return runtime.NewLogicalVector(out), nil
		}
		value, err := c.flag(4, false)
		if err != nil {
			return nil, err
		}
		var hits []int
		for k, s := range strs {
			if !s.NA && re.MatchString(s.Val) {
				hits = append(hits, k)
			}
		}
		if value {
			out := make([]runtime.Str, len(hits))
			for k, h := range hits {
				out[k] = strs[h]
			}
			return runtime.NewCharacterVector(out), nil
		}
		return positions(hits), nil
	}
}

func builtinRegexpr(c *CallContext) (runtime.Value, error) {
	re, err := c.patternArg(0, 2, 4)
	if err != nil {
		return nil, err
	}
	x, err := c.Require(1)
	if err != nil {
		return nil, err
	}
	strs, err := characterOf(x)
	if err != nil {
		return nil, err
	}
	starts := make([]int32, len(strs))
	lengths := make([]int32, len(strs))
	for k, s := range strs {
		if s.NA {
			starts[k], lengths[k] = runtime.NAInteger, runtime.NAInteger
			continue
		}
		loc := re.FindStringIndex(s.Val)
		if loc == nil {
			starts[k], lengths[k] = -1, -1
			continue
		}
		starts[k] = int32(utf8.RuneCountInString(s.Val[:loc[0]]) + 1)
		lengths[k] = int32(utf8.RuneCountInString(s.Val[loc[0]:loc[1]]))
	}
	res := runtime.NewIntegerVector(starts)
	runtime.SetAttrRaw(res, "match.length", runtime.NewIntegerVector(lengths))
	return res, nil
}

func affixTest(test func(s, affix string) bool) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		a, err := c.Require(1)
		if err != nil {
			return nil, err
		}
		if x.Kind() != runtime.KindCharacter || a.Kind() != runtime.KindCharacter {
			return nil, runtime.Errorf("non-character object(s)")
		}
		xs, as := x.(*runtime.CharacterVector).Data, a.(*runtime.CharacterVector).Data
		n := max(len(xs), len(as))
		if len(xs) == 0 || len(as) == 0 {
			n = 0
		}
		out := make([]int32, n)
		for k := range out {
			s, affix := xs[k%len(xs)], as[k%len(as)]
			if s.NA || affix.NA {
				out[k] = runtime.NALogical
			} else {
				out[k] = boolInt(test(s.Val, affix.Val))
			}
		}
		return runtime.NewLogicalVector(out), nil
	}
}

func builtinStrtoi(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	base, err := c.intArg(1, 10)
	if err != nil {
		return nil, err
	}
	strs, err := characterOf(x)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(strs))
	for k, s := range strs {
		n, perr := strconv.ParseInt(strings.TrimSpace(s.Val), base, 64)
		if s.NA || perr != nil || n > math.MaxInt32 || n <= math.MinInt32 {
			out[k] = runtime.NAInteger
		} else {
			out[k] = int32(n)
		}
	}
	return runtime.NewIntegerVector(out), nil
}

func builtinChartr(c *CallContext) (runtime.Value, error) {
	oldV, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	newV, err := c.Require(1)
	if err != nil {
		return nil, err
	}
	from, _ := runtime.AsStringScalar(oldV)
	to, _ := runtime.AsStringScalar(newV)
	fr, tr := []rune(from), []rune(to)
	if len(fr) > len(tr) {
		return nil, runtime.Errorf("'old' is longer than 'new'")
	}
	table := map[rune]rune{}
	for k, r := range fr {
		table[r] = tr[k]
	}
	x, err := c.Require(2)
	if err != nil {
		return nil, err
	}
	return mapStrings(x, func(s string) string {
		return strings.Map(func(r rune) rune {
			if m, ok := table[r]; ok {
				return m
			}
			return r
		}, s)
	})
}

func quoteWith(open, close string) BuiltinFunc {
	return func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		fancy, err := c.flag(1, true)
		if err != nil {
			return nil, err
		}
		l, r := open, close
		if !fancy {
			l, r = "'", "'"
			if open == "“" {
				l, r = `"`, `"`
			}
		}
		return mapStrings(x, func(s string) string { return l + s + r })
	}
}

func builtinStrrep(c *CallContext) (runtime.Value, error) {
	x, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	times, err := c.intsArg(1, 1)
	if err != nil {
		return nil, err
	}
	strs, err := characterOf(x)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return runtime.NewCharacterVector(nil), nil
	}
	n := len(strs)
	if n > 0 {
		n = max(n, len(times))
	}
	out := make([]runtime.Str, n)
	for k := range out {
		s, t := strs[k%len(strs)], times[k%len(times)]
		switch {
		case s.NA || t == runtime.NAInteger:
			out[k] = runtime.NAString
		case t < 0:
			return nil, runtime.Errorf("invalid '%s' value", "times")
		default:
			out[k] = runtime.S(strings.Repeat(s.Val, int(t)))
		}
	}
	return runtime.NewCharacterVector(out), nil
}

// sprintfSpec is one conversion of a format string.
type sprintfSpec struct {
	literal string
	flags   string
	width   string
	prec    string
	verb    byte
}

var sprintfPattern = regexp.MustCompile(`%(?:%|([-+ 0#]*)(\*|\d+)?(?:\.(\d+))?([dioxXfeEgGsaA]))`)

func parseFormat(format string) []sprintfSpec {
	var out []sprintfSpec
	last := 0
	for _, m := range sprintfPattern.FindAllStringSubmatchIndex(format, -1) {
		lit := format[last:m[0]]
		last = m[1]
		if format[m[0]:m[1]] == "%%" {
			out = append(out, sprintfSpec{literal: lit + "%"})
			continue
		}
		spec := sprintfSpec{literal: lit, verb: format[m[8]]}
		if m[2] >= 0 {
			spec.flags = format[m[2]:m[3]]
		}
		if m[4] >= 0 {
			spec.width = format[m[4]:m[5]]
		}
		if m[6] >= 0 {
			spec.prec = format[m[6]:m[7]]
		}
		out = append(out, spec)
	}
	out = append(out, sprintfSpec{literal: format[last:]})
	return out
}

// formatOne renders a single argument element for spec.
func formatOne(spec sprintfSpec, width string, v runtime.Vector, k int) (string, error) {
	goFmt := func(verb byte) string {
		f := "%" + spec.flags + width
		if spec.prec != "" {
			f += "." + spec.prec
		}
		return f + string(verb)
	}
	padNA := func() string {
		w, _ := strconv.Atoi(width)
		return fmt.Sprintf("%*s", w, "NA")
	}
	switch spec.verb {
	case 'd', 'i', 'o', 'x', 'X':
		var n int64
		switch vec := v.(type) {
		case *runtime.IntegerVector, *runtime.LogicalVector:
			x := asInts(vec)[k]
			if x == runtime.NAInteger {
				return padNA(), nil
			}
			n = int64(x)
		case *runtime.DoubleVector:
			x := vec.Data[k]
			if math.IsNaN(x) {
				return padNA(), nil
			}
			if x != math.Trunc(x) {
				return "", runtime.Errorf("invalid format '%s'; use format %%f, %%e, %%g or %%a for numeric objects", goFmt(spec.verb))
			}
			n = int64(x)
		default:
			return "", runtime.Errorf("invalid format '%s'; use format %%s for character objects", goFmt(spec.verb))
		}
		verb := spec.verb
		if verb == 'i' {
			verb = 'd'
		}
		return fmt.Sprintf(goFmt(verb), n), nil
	case 'f', 'e', 'E', 'g', 'G', 'a', 'A':
		if !isNumericKind(v.Kind()) || v.Kind() == runtime.KindComplex {
			return "", runtime.Errorf("invalid format '%s'; use format %%s for character objects", goFmt(spec.verb))
		}
		x := asDoubles(v)[k]
		switch {
		case runtime.IsNAReal(x):
			return padNA(), nil
		case math.IsNaN(x):
			w, _ := strconv.Atoi(width)
			return fmt.Sprintf("%*s", w, "NaN"), nil
		case math.IsInf(x, 0):
			w, _ := strconv.Atoi(width)
			s := "Inf"
			if x < 0 {
				s = "-Inf"
			}
			return fmt.Sprintf("%*s", w, s), nil
		}
		verb := spec.verb
		if verb == 'a' || verb == 'A' {
			verb = 'x'
		}
		if (verb == 'g' || verb == 'G') && spec.prec == "" {
			spec.prec = "6"
		}
		return fmt.Sprintf(goFmt(verb), x), nil
	}
	var s string
	switch vec := v.(type) {
	case *runtime.CharacterVector:
		s = naOr(vec.Data[k])
	case *runtime.DoubleVector:
		s = formatNumber15(vec.Data[k])
	default:
		strs, err := characterOf(v.Select([]int{k}))
		if err != nil {
			return "", err
		}
		s = naOr(strs[0])
	}
	if spec.prec != "" {
		p, _ := strconv.Atoi(spec.prec)
		if r := []rune(s); p < len(r) {
			s = string(r[:p])
		}
	}
	return fmt.Sprintf("%"+strings.ReplaceAll(spec.flags, "0", "")+width+"s", s), nil
}

func formatNumber15(x float64) string {
	strs, _ := characterOf(runtime.DoubleScalar(x))
	return naOr(strs[0])
}

func builtinSprintf(c *CallContext) (runtime.Value, error) {
	fv, err := c.Require(0)
	if err != nil {
		return nil, err
	}
	formats, err := characterOf(fv)
	if err != nil {
		return nil, err
	}
	vals, err := c.Values()
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Vector, len(vals))
	n := len(formats)
	for k, v := range vals {
		vec, ok := v.(runtime.Vector)
		if !ok {
			if v.Kind() != runtime.KindNull {
				return nil, runtime.Errorf("unsupported type")
			}
			vec = runtime.NewLogicalVector(nil)
		}
		if runtime.Inherits(vec, "factor") {
			vec = factorLabels(vec)
		}
		args[k] = vec
		if vec.Len() == 0 {
			return runtime.NewCharacterVector(nil), nil
		}
		n = max(n, vec.Len())
	}
	if len(formats) == 0 {
		return runtime.NewCharacterVector(nil), nil
	}
	out := make([]runtime.Str, n)
	for row := range out {
		format := formats[row%len(formats)]
		if format.NA {
			out[row] = runtime.NAString
			continue
		}
		var b strings.Builder
		next := 0
		for _, spec := range parseFormat(format.Val) {
			b.WriteString(spec.literal)
			if spec.verb == 0 {
				continue
			}
			width := spec.width
			if width == "*" {
				if next >= len(args) {
					return nil, runtime.Errorf("too few arguments")
				}
				w := asInts(args[next])[row%args[next].Len()]
				width = strconv.Itoa(int(w))
				next++
			}
			if next >= len(args) {
				return nil, runtime.Errorf("too few arguments")
			}
			arg := args[next]
			next++
			s, err := formatOne(spec, width, arg, row%arg.Len())
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		out[row] = runtime.S(b.String())
	}
	return runtime.NewCharacterVector(out), nil
}
