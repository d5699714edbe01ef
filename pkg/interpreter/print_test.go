package interpreter

import (
	"math"
	"strings"
	"testing"

	"rcore/interpreter-go/pkg/runtime"
)

func TestPrintNumericVectors(t *testing.T) {
	cases := []struct {
		value runtime.Value
		want  string
	}{
		{runtime.DoubleScalar(1), "[1] 1\n"},
		{runtime.DoubleScalar(1.0 / 3), "[1] 0.3333333\n"},
		{runtime.DoubleScalar(100000), "[1] 1e+05\n"},
		{runtime.DoubleScalar(123456), "[1] 123456\n"},
		{runtime.DoubleScalar(0.0001), "[1] 1e-04\n"},
		{runtime.DoubleScalar(-2.5), "[1] -2.5\n"},
		{runtime.NewDoubleVector([]float64{1.5, 2, 100}), "[1]   1.5   2.0 100.0\n"},
		{runtime.NewDoubleVector([]float64{runtime.NAReal, math.NaN(), math.Inf(1), math.Inf(-1)}), "[1]   NA  NaN  Inf -Inf\n"},
		{runtime.NewIntegerVector([]int32{1, runtime.NAInteger, 300}), "[1]   1  NA 300\n"},
		{runtime.NewLogicalVector([]int32{1, runtime.NALogical, 0}), "[1]  TRUE    NA FALSE\n"},
		{runtime.NewComplexVector([]complex128{complex(1, 2)}), "[1] 1+2i\n"},
	}
	for _, tc := range cases {
		if got := Print(tc.value); got != tc.want {
			t.Fatalf("Print(%s):\n got %q\nwant %q", runtime.DeparseValue(tc.value), got, tc.want)
		}
	}
}

func TestPrintWrapsWithIndexLabels(t *testing.T) {
	data := make([]int32, 30)
	for k := range data {
		data[k] = int32(k + 1)
	}
	want := " [1]  1  2  3  4  5  6  7  8  9 10 11 12 13 14 15 16 17 18 19 20 21 22 23 24 25\n[26] 26 27 28 29 30\n"
	if got := Print(runtime.NewIntegerVector(data)); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestPrintStrings(t *testing.T) {
	v := runtime.NewCharacterVector([]runtime.Str{runtime.S("a"), runtime.NAString, runtime.S("say \"hi\"")})
	want := "[1] \"a\"" + strings.Repeat(" ", 10) + "NA" + strings.Repeat(" ", 11) + "\"say \\\"hi\\\"\"\n"
	if got := Print(v); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestPrintEmptyValues(t *testing.T) {
	cases := map[string]runtime.Value{
		"NULL\n":         runtime.Null,
		"list()\n":       runtime.NewList(nil),
		"character(0)\n": runtime.NewCharacterVector(nil),
		"integer(0)\n":   runtime.NewIntegerVector(nil),
		"numeric(0)\n":   runtime.NewDoubleVector(nil),
		"logical(0)\n":   runtime.NewLogicalVector(nil),
	}
	for want, v := range cases {
		if got := Print(v); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestPrintNamedVector(t *testing.T) {
	v := runtime.NewDoubleVector([]float64{1, 22})
	runtime.SetAttrRaw(v, "names", runtime.StringVector("a", "bb"))
	want := " a bb \n 1 22 \n"
	if got := Print(v); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestPrintAttributes(t *testing.T) {
	expectOutput(t, `structure(1:3, myattr = "x")`, "[1] 1 2 3\nattr(,\"myattr\")\n[1] \"x\"\n")
	expectOutput(t, `structure(2, class = "bar")`, "[1] 2\nattr(,\"class\")\n[1] \"bar\"\n")
}

func TestPrintLists(t *testing.T) {
	expectOutput(t, `list(1, "a")`, "[[1]]\n[1] 1\n\n[[2]]\n[1] \"a\"\n\n")
	expectOutput(t, `list(a = 1, b = list(c = 2))`, "$a\n[1] 1\n\n$b\n$b$c\n[1] 2\n\n\n")
	expectOutput(t, "list(`my name` = NULL)", "$`my name`\nNULL\n\n")
}

func TestPrintMatrix(t *testing.T) {
	expectOutput(t, "matrix(1:6, nrow = 2)", "     [,1] [,2] [,3]\n[1,]    1    3    5\n[2,]    2    4    6\n")
	src := `m <- matrix(c(1.5, 2, 3, 4), 2, dimnames = list(c("r1", "r2"), c("A", "B")))
m`
	expectOutput(t, src, "     A B\nr1 1.5 3\nr2 2.0 4\n")
}

func TestPrintArraySlices(t *testing.T) {
	want := ", , 1\n\n     [,1] [,2]\n[1,]    1    3\n[2,]    2    4\n\n, , 2\n\n     [,1] [,2]\n[1,]    5    7\n[2,]    6    8\n\n"
	expectOutput(t, "array(1:8, c(2, 2, 2))", want)
}

func TestPrintFactor(t *testing.T) {
	expectOutput(t, `factor(c("a", "b", "a"))`, "[1] a b a\nLevels: a b\n")
	expectOutput(t, `factor(c("x", NA))`, "[1] x    <NA>\nLevels: x\n")
}

func TestPrintConditionsAndRestarts(t *testing.T) {
	expectOutput(t, `simpleError("boom")`, "<simpleError: boom>\n")
	expectOutput(t, "f <- function() stop(\"boom\")\ntryCatch(f(), error = function(e) e)", "<simpleError in f(): boom>\n")
	expectOutput(t, `withRestarts(computeRestarts()[[1]], myRestart = function() NULL)`, "<restart: myRestart >\n")
}

func TestPrintFunctionsAndEnvironments(t *testing.T) {
	expectOutput(t, "f <- function(x) x + 1\nf", "function(x) x + 1\n")
	expectOutput(t, "globalenv()", "<environment: R_GlobalEnv>\n")
	expectOutput(t, "emptyenv()", "<environment: R_EmptyEnv>\n")
	expectOutput(t, "quote(a + b)", "a + b\n")
	expectOutput(t, "as.name(\"x\")", "x\n")
}

func TestPrintDigitsOption(t *testing.T) {
	expectOutput(t, "print(pi, digits = 3)", "[1] 3.14\n")
	expectOutput(t, "options(digits = 4); pi", "[1] 3.142\n")
}

func TestNoquoteAndCat(t *testing.T) {
	expectOutput(t, `noquote(c("a", "b"))`, "[1] a b\n")
	expectOutput(t, `cat(1, "a", TRUE, NULL, 2.5, "\n")`, "1 a TRUE 2.5 \n")
	expectOutput(t, `cat("x", "y", sep = "-")`, "x-y")
	expectOutput(t, `cat(1/3, "\n")`, "0.3333333 \n")
	expectOutput(t, `writeLines(c("one", "two"))`, "one\ntwo\n")
}

func TestFormat(t *testing.T) {
	expectOutput(t, "format(c(1, 10, 100))", "[1] \"  1\" \" 10\" \"100\"\n")
	expectOutput(t, "format(2, nsmall = 2)", "[1] \"2.00\"\n")
	expectOutput(t, "format(3.14159, nsmall = 2)", "[1] \"3.14159\"\n")
	expectOutput(t, `format("a", width = 3)`, "[1] \"a  \"\n")
	expectOutput(t, "format(TRUE)", "[1] \"TRUE\"\n")
}
