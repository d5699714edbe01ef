package interpreter

import (
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// displayWidth is the number of terminal columns s occupies.
func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

func padLeft(s string, w int) string {
	if n := displayWidth(s); n < w {
		return strings.Repeat(" ", w-n) + s
	}
	return s
}

func padRight(s string, w int) string {
	if n := displayWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func maxWidth(items []string) int {
	w := 0
	for _, s := range items {
		w = max(w, displayWidth(s))
	}
	return w
}

// realLayout is the common notation chosen for a set of doubles: fixed with
// decimals digits after the point, or scientific with decimals digits in the
// mantissa.
type realLayout struct {
	sci      bool
	decimals int
	width    int
}

// chooseRealLayout picks the narrowest notation that shows every finite
// element of data with at most digits significant digits. Fixed notation
// wins ties.
func chooseRealLayout(data []float64, digits, nsmall int) realLayout {
	var (
		naWidth, leftWidth, rgt, maxSig int
		maxExp, minExp                  = math.MinInt32, math.MaxInt32
		anyNeg, anyFinite               bool
	)
	for _, x := range data {
		switch {
		case runtime.IsNAReal(x):
			naWidth = max(naWidth, 2)
		case math.IsNaN(x), math.IsInf(x, 1):
			naWidth = max(naWidth, 3)
		case math.IsInf(x, -1):
			naWidth = max(naWidth, 4)
		default:
			neg, nsig, kp := ast.SignificantDigits(x, digits)
			left := 1
			if kp > 0 {
				left = kp + 1
			}
			if neg {
				left++
				anyNeg = true
			}
			leftWidth = max(leftWidth, left)
			rgt = max(rgt, nsig-kp-1)
			maxSig = max(maxSig, nsig)
			maxExp = max(maxExp, kp)
			minExp = min(minExp, kp)
			anyFinite = true
		}
	}
	if !anyFinite {
		return realLayout{width: naWidth}
	}
	expDigits := 1
	if maxExp >= 100 || minExp <= -99 {
		expDigits = 2
	}
	mantissa := maxSig - 1
	sciWidth := mantissa + 4 + expDigits
	if mantissa > 0 {
		sciWidth++
	}
	if anyNeg {
		sciWidth++
	}
	fixedWidth := leftWidth + rgt
	if rgt > 0 {
		fixedWidth++
	}
	if fixedWidth <= sciWidth {
		if nsmall > rgt {
			rgt = nsmall
			fixedWidth = leftWidth + rgt + 1
		}
		return realLayout{decimals: rgt, width: max(fixedWidth, naWidth)}
	}
	return realLayout{sci: true, decimals: mantissa, width: max(sciWidth, naWidth)}
}

func (l realLayout) format(x float64) string {
	switch {
	case runtime.IsNAReal(x):
		return "NA"
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	case x == 0:
		x = 0
	}
	if l.sci {
		return ast.FormatScientific(x, l.decimals)
	}
	return strconv.FormatFloat(x, 'f', l.decimals, 64)
}

func formatReals(data []float64, digits, nsmall int) []string {
	layout := chooseRealLayout(data, digits, nsmall)
	out := make([]string, len(data))
	for k, x := range data {
		out[k] = layout.format(x)
	}
	return out
}

func formatComplexes(data []complex128, digits int) []string {
	re := make([]float64, 0, len(data))
	im := make([]float64, 0, len(data))
	for _, z := range data {
		if runtime.IsNAComplex(z) {
			continue
		}
		re = append(re, real(z))
		im = append(im, math.Abs(imag(z)))
	}
	reLayout := chooseRealLayout(re, digits, 0)
	imLayout := chooseRealLayout(im, digits, 0)
	out := make([]string, len(data))
	for k, z := range data {
		if runtime.IsNAComplex(z) {
			out[k] = "NA"
			continue
		}
		sign := "+"
		if math.Signbit(imag(z)) && !math.IsNaN(imag(z)) {
			sign = "-"
		}
		out[k] = reLayout.format(real(z)) + sign + imLayout.format(math.Abs(imag(z))) + "i"
	}
	return out
}

func formatLogicals(data []int32) []string {
	out := make([]string, len(data))
	for k, b := range data {
		switch b {
		case runtime.NALogical:
			out[k] = "NA"
		case 0:
			out[k] = "FALSE"
		default:
			out[k] = "TRUE"
		}
	}
	return out
}

func formatIntegers(data []int32) []string {
	out := make([]string, len(data))
	for k, n := range data {
		if n == runtime.NAInteger {
			out[k] = "NA"
		} else {
			out[k] = strconv.Itoa(int(n))
		}
	}
	return out
}

// formatStrings quotes and escapes each element when quote is set. NA is
// shown as NA when quoted and <NA> otherwise.
func formatStrings(data []runtime.Str, quote bool) []string {
	out := make([]string, len(data))
	for k, s := range data {
		switch {
		case s.NA && quote:
			out[k] = "NA"
		case s.NA:
			out[k] = "<NA>"
		case quote:
			out[k] = ast.QuoteString(s.Val)
		default:
			out[k] = s.Val
		}
	}
	return out
}

func formatRaw(data []byte) []string {
	out := make([]string, len(data))
	for k, b := range data {
		out[k] = strconv.FormatUint(uint64(b)|0x100, 16)[1:]
	}
	return out
}

// formatElements renders every element of an atomic vector with a layout
// shared across the vector. Strings are returned unpadded.
func formatElements(v runtime.Vector, digits int, quote bool) []string {
	switch x := v.(type) {
	case *runtime.LogicalVector:
		return formatLogicals(x.Data)
	case *runtime.IntegerVector:
		return formatIntegers(x.Data)
	case *runtime.DoubleVector:
		return formatReals(x.Data, digits, 0)
	case *runtime.ComplexVector:
		return formatComplexes(x.Data, digits)
	case *runtime.CharacterVector:
		return formatStrings(x.Data, quote)
	case *runtime.RawVector:
		return formatRaw(x.Data)
	case *runtime.ListValue:
		out := make([]string, len(x.Data))
		for k, elem := range x.Data {
			out[k] = summarizeElement(elem, digits)
		}
		return out
	}
	return nil
}

// summarizeElement is the cell text for a list element shown inside a
// matrix or data cell: scalars print inline, others as type(length).
func summarizeElement(v runtime.Value, digits int) string {
	if vec, ok := v.(runtime.Vector); ok && v.Kind() != runtime.KindList && vec.Len() == 1 {
		return formatElements(vec, digits, true)[0]
	}
	switch v.Kind() {
	case runtime.KindNull:
		return "NULL"
	case runtime.KindDouble:
		return "numeric," + strconv.Itoa(runtime.Length(v))
	case runtime.KindClosure, runtime.KindBuiltin:
		return "?"
	case runtime.KindEnvironment:
		return "<environment>"
	}
	return v.Kind().String() + "," + strconv.Itoa(runtime.Length(v))
}

// formatScalar renders one element the way cat and paste see it: up to
// digits significant digits, no common layout.
func formatScalar(v runtime.Vector, k int, digits int) string {
	switch x := v.(type) {
	case *runtime.DoubleVector:
		return chooseRealLayout(x.Data[k:k+1], digits, 0).format(x.Data[k])
	case *runtime.ComplexVector:
		return formatComplexes(x.Data[k:k+1], digits)[0]
	case *runtime.CharacterVector:
		if x.Data[k].NA {
			return "NA"
		}
		return x.Data[k].Val
	}
	return formatElements(v.Select([]int{k}), digits, false)[0]
}

func justify(items []string, w int, left bool) []string {
	out := make([]string, len(items))
	for k, s := range items {
		if left {
			out[k] = padRight(s, w)
		} else {
			out[k] = padLeft(s, w)
		}
	}
	return out
}
