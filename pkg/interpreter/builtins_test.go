package interpreter

import (
	"fmt"
	"math"
	"testing"

	"rcore/interpreter-go/pkg/runtime"
)

func TestVectorConstruction(t *testing.T) {
	expectOutput(t, "c(1, 2L, TRUE)", "[1] 1 2 1\n")
	expectOutput(t, `c(1, "a")`, "[1] \"1\" \"a\"\n")
	expectOutput(t, "seq(1, 10, by = 2)", "[1] 1 3 5 7 9\n")
	expectOutput(t, "seq_len(4)", "[1] 1 2 3 4\n")
	expectOutput(t, "rep(1:2, times = 3)", "[1] 1 2 1 2 1 2\n")
	expectOutput(t, "rep(c(\"a\", \"b\"), each = 2)", "[1] \"a\" \"a\" \"b\" \"b\"\n")
	expectOutput(t, "rev(1:4)", "[1] 4 3 2 1\n")
	expectOutput(t, "length(list(1, 2, 3))", "[1] 3\n")
	expectOutput(t, "unlist(list(a = 1, b = list(c = 2, d = 3)))", "  a b.c b.d \n  1   2   3 \n")
}

func TestComplexConstructor(t *testing.T) {
	expectOutput(t, "complex(real = 1, imaginary = -1)", "[1] 1-1i\n")
	expectOutput(t, "complex(2)", "[1] 0+0i 0+0i\n")
	expectOutput(t, "complex(real = 1:2, imaginary = 3)", "[1] 1+3i 2+3i\n")
	expectOutput(t, "complex(length.out = 3, real = 1)", "[1] 1+0i 1+0i 1+0i\n")
	expectOutput(t, "complex(modulus = 2)", "[1] 2+0i\n")
	expectOutput(t, "complex()", "complex(0)\n")
	err := evalError(t, "complex(-1)")
	if err.Message != "invalid 'length.out' argument" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestAttributePropagationInArithmetic(t *testing.T) {
	expectOutput(t, "x <- c(a = 1, b = 2); x + 1", "a b \n2 3 \n")
	expectOutput(t, "m <- matrix(1:4, 2); dim(m * 2)", "[1] 2 2\n")
	expectOutput(t, "x <- 1:3; attr(x, \"tag\") <- \"t\"; attributes(x * 2L)", "$tag\n[1] \"t\"\n\n")
}

func TestArithmeticMergesAttributesOfBothOperands(t *testing.T) {
	expectOutput(t, `x <- 1:2; attr(x, "hi") <- 2; y <- 2:3; attr(y, "hello") <- 3; attributes(x + y)`, "$hello\n[1] 3\n\n$hi\n[1] 2\n\n")
	pairs := []struct{ x, y string }{
		{"1:2", "3:4"},
		{"c(1, 2)", "c(3, 4)"},
		{"1:2", "c(0.5, 1.5)"},
		{"c(TRUE, FALSE)", "1:2"},
		{"c(TRUE, TRUE)", "c(FALSE, TRUE)"},
		{"c(1+1i, 2i)", "c(1, 2)"},
		{"c(TRUE, FALSE)", "c(2i, 3i)"},
	}
	for _, op := range []string{"+", "*"} {
		for _, p := range pairs {
			src := fmt.Sprintf(`x <- %s; attr(x, "hi") <- 2; attr(x, "both") <- "x"
y <- %s; attr(y, "hello") <- 3; attr(y, "both") <- "y"
attributes(x %s y)`, p.x, p.y, op)
			expectOutput(t, src, "$hello\n[1] 3\n\n$both\n[1] \"x\"\n\n$hi\n[1] 2\n\n")
		}
	}
	// The shorter operand contributes nothing.
	expectOutput(t, `x <- 1:4; attr(x, "hi") <- 2; y <- 1; attr(y, "hello") <- 3; names(attributes(x + y))`, "[1] \"hi\"\n")
}

func TestAttributeAccessors(t *testing.T) {
	expectOutput(t, "x <- 1:3; names(x) <- c(\"a\", \"b\"); names(x)", "[1] \"a\" \"b\" NA \n")
	expectOutput(t, "x <- 1:6; dim(x) <- c(2, 3); nrow(x); ncol(x)", "[1] 2\n[1] 3\n")
	expectOutput(t, "x <- structure(1, class = c(\"a\", \"b\")); inherits(x, \"b\"); class(unclass(x))", "[1] TRUE\n[1] \"numeric\"\n")
	expectOutput(t, "class(matrix(1:4, 2))", "[1] \"matrix\" \"array\" \n")
	expectOutput(t, "attr(structure(1, longname = 5), \"long\")", "[1] 5\n")
}

func TestSubsettingAndAssignment(t *testing.T) {
	expectOutput(t, "x <- c(10, 20, 30); x[-1]", "[1] 20 30\n")
	expectOutput(t, "x <- c(a = 1, b = 2); x[\"b\"]", "b \n2 \n")
	expectOutput(t, "x <- 1:5; x[x > 2]", "[1] 3 4 5\n")
	expectOutput(t, "x <- 1:3; x[5] <- 9L; x", "[1]  1  2  3 NA  9\n")
	expectOutput(t, "l <- list(a = 1); l$b <- \"two\"; names(l)", "[1] \"a\" \"b\"\n")
	expectOutput(t, "l <- list(a = 1, b = 2); l$a <- NULL; length(l)", "[1] 1\n")
	expectOutput(t, "m <- matrix(1:6, 2); m[2, 3]", "[1] 6\n")
	expectOutput(t, "m <- matrix(1:6, 2); m[, 2]", "[1] 3 4\n")
	expectOutput(t, "l <- list(a = list(b = 5)); l[[c(\"a\", \"b\")]]", "[1] 5\n")
	expectOutput(t, "l <- list(1, list(2, list(3, 4))); l[[c(2, 2, 1)]]", "[1] 3\n")
}

func TestComparisonCoercion(t *testing.T) {
	expectOutput(t, `1 == "1"`, "[1] TRUE\n")
	expectOutput(t, "TRUE == 1L", "[1] TRUE\n")
	expectOutput(t, `"10" < "9"`, "[1] TRUE\n")
	expectOutput(t, "NA > 1", "[1] NA\n")
	expectOutput(t, "c(1, 2, 3) > 2", "[1] FALSE FALSE  TRUE\n")
}

func TestArithmeticRules(t *testing.T) {
	expectOutput(t, "5L / 2L", "[1] 2.5\n")
	expectOutput(t, "5L %/% 2L", "[1] 2\n")
	expectOutput(t, "-7 %% 3", "[1] 2\n")
	expectOutput(t, "1:6 + 1:2", "[1] 2 4 4 6 6 8\n")
	expectOutput(t, "1 / 0", "[1] Inf\n")
	expectOutput(t, "0 / 0", "[1] NaN\n")
	expectOutput(t, "NA_integer_ + 1L", "[1] NA\n")
}

func TestMathBuiltins(t *testing.T) {
	expectOutput(t, "sum(1:10)", "[1] 55\n")
	expectOutput(t, "mean(c(1, 2, 3, 4))", "[1] 2.5\n")
	expectOutput(t, "max(c(3, 9, 2))", "[1] 9\n")
	expectOutput(t, "sum(c(1, NA, 3), na.rm = TRUE)", "[1] 4\n")
	expectOutput(t, "round(2.567, 1)", "[1] 2.6\n")
	expectOutput(t, "sqrt(16)", "[1] 4\n")
	expectOutput(t, "cumsum(1:4)", "[1]  1  3  6 10\n")
	expectOutput(t, "abs(-3L)", "[1] 3\n")
	expectOutput(t, "range(c(5, 1, 3))", "[1] 1 5\n")
}

func TestStringBuiltins(t *testing.T) {
	expectOutput(t, `paste("a", 1:2, sep = "-")`, "[1] \"a-1\" \"a-2\"\n")
	expectOutput(t, `paste0("x", c("y", "z"), collapse = "+")`, "[1] \"xy+xz\"\n")
	expectOutput(t, `nchar(c("abc", ""))`, "[1] 3 0\n")
	expectOutput(t, `toupper("abc")`, "[1] \"ABC\"\n")
	expectOutput(t, `substr("abcdef", 2, 4)`, "[1] \"bcd\"\n")
	expectOutput(t, `sprintf("%d items at %.2f", 3L, 1.5)`, "[1] \"3 items at 1.50\"\n")
	expectOutput(t, `gsub("o", "0", "foo boo")`, "[1] \"f00 b00\"\n")
	expectOutput(t, `strsplit("a,b,c", ",")`, "[[1]]\n[1] \"a\" \"b\" \"c\"\n\n")
	expectOutput(t, `grepl("^a", c("apple", "banana"))`, "[1]  TRUE FALSE\n")
}

func TestFunctionalBuiltins(t *testing.T) {
	expectOutput(t, "sapply(1:3, function(i) i^2)", "[1] 1 4 9\n")
	expectOutput(t, "lapply(1:2, function(i) i * 10L)", "[[1]]\n[1] 10\n\n[[2]]\n[1] 20\n\n")
	expectOutput(t, "vapply(c(a = 1, b = 2), function(v) v + 1, numeric(1))", "a b \n2 3 \n")
	expectOutput(t, "Reduce(`+`, 1:4, accumulate = TRUE)", "[1]  1  3  6 10\n")
	expectOutput(t, "Filter(function(v) v > 1, c(1, 2, 3))", "[1] 2 3\n")
	expectOutput(t, "Map(function(a, b) a + b, 1:2, 3:4)", "[[1]]\n[1] 4\n\n[[2]]\n[1] 6\n\n")
	expectOutput(t, "do.call(sum, list(1, 2, 3))", "[1] 6\n")
}

func TestSetBuiltins(t *testing.T) {
	expectOutput(t, "unique(c(3, 1, 3, 2, 1))", "[1] 3 1 2\n")
	expectOutput(t, "3 %in% c(1, 2, 3)", "[1] TRUE\n")
	expectOutput(t, "match(c(\"b\", \"z\"), c(\"a\", \"b\"))", "[1]  2 NA\n")
	expectOutput(t, "sort(c(3, 1, 2), decreasing = TRUE)", "[1] 3 2 1\n")
	expectOutput(t, "order(c(3, 1, 2))", "[1] 2 3 1\n")
	expectOutput(t, "setdiff(1:5, c(2, 4))", "[1] 1 3 5\n")
}

func TestEnvironmentBuiltins(t *testing.T) {
	expectOutput(t, "e <- new.env(); assign(\"x\", 5, envir = e); get(\"x\", envir = e)", "[1] 5\n")
	expectOutput(t, "e <- new.env(); exists(\"nothing\", envir = e, inherits = FALSE)", "[1] FALSE\n")
	expectOutput(t, "f <- function() parent.frame(); identical(f(), globalenv())", "[1] TRUE\n")
	expectOutput(t, "local({ a <- 2; a * 3 })", "[1] 6\n")
	expectOutput(t, "x <- 1; rm(x); exists(\"x\")", "[1] FALSE\n")
	expectOutput(t, "e <- new.env(); assign(\"v\", 3, e); exists(\"v\"); get(\"v\", e)", "[1] FALSE\n[1] 3\n")
	expectOutput(t, "e <- new.env(); assign(\"v\", 3, envir = e); get(\"v\", e); exists(\"v\", e)", "[1] 3\n[1] TRUE\n")
	expectOutput(t, "f <- function() { v <- 1; assign(\"v\", 2, pos = 1); v }; f(); v", "[1] 1\n[1] 2\n")
	expectOutput(t, "f <- function() { v <- 1; assign(\"v\", 7, pos = -1); v }; f()", "[1] 7\n")
}

func TestTypePredicatesAndCoercion(t *testing.T) {
	expectOutput(t, "typeof(1L); typeof(1); typeof(sum); typeof(quote)", "[1] \"integer\"\n[1] \"double\"\n[1] \"builtin\"\n[1] \"special\"\n")
	expectOutput(t, "as.integer(\"12\")", "[1] 12\n")
	expectOutput(t, "as.numeric(\"abc\")", "[1] NA\n")
	expectOutput(t, "is.na(c(1, NA, 3))", "[1] FALSE  TRUE FALSE\n")
	expectOutput(t, "as.logical(c(\"TRUE\", \"no\", \"F\"))", "[1]  TRUE    NA FALSE\n")
}

func TestIdentical(t *testing.T) {
	a := runtime.NewDoubleVector([]float64{1, 2})
	b := runtime.NewDoubleVector([]float64{1, 2})
	if !Identical(a, b) {
		t.Fatalf("equal vectors should be identical")
	}
	runtime.SetAttrRaw(b, "names", runtime.StringVector("x", "y"))
	if Identical(a, b) {
		t.Fatalf("names must take part in the comparison")
	}
	if Identical(runtime.DoubleScalar(runtime.NAReal), runtime.DoubleScalar(math.NaN())) {
		t.Fatalf("NA and NaN must differ")
	}
	if !Identical(runtime.DoubleScalar(0), runtime.DoubleScalar(math.Copysign(0, -1))) {
		t.Fatalf("0 and -0 are identical")
	}
	if Identical(runtime.IntScalar(1), runtime.DoubleScalar(1)) {
		t.Fatalf("integer and double must differ")
	}

	x := runtime.IntScalar(1)
	runtime.SetAttrRaw(x, "a", runtime.StringScalar("1"))
	runtime.SetAttrRaw(x, "b", runtime.StringScalar("2"))
	y := runtime.IntScalar(1)
	runtime.SetAttrRaw(y, "b", runtime.StringScalar("2"))
	runtime.SetAttrRaw(y, "a", runtime.StringScalar("1"))
	if !Identical(x, y) {
		t.Fatalf("attribute order must not matter")
	}
	expectOutput(t, "identical(list(1, \"a\"), list(1, \"a\"))", "[1] TRUE\n")
	expectOutput(t, "identical(c(a = 1), c(b = 1))", "[1] FALSE\n")
}

func TestSwitchAndMatchArg(t *testing.T) {
	expectOutput(t, `switch("b", a = "one", b = "two", "other")`, "[1] \"two\"\n")
	expectOutput(t, `switch("z", a = "one", "other")`, "[1] \"other\"\n")
	expectOutput(t, `switch("a", a = , b = "shared")`, "[1] \"shared\"\n")
	expectOutput(t, `f <- function(type = c("linear", "quad")) match.arg(type); f()`, "[1] \"linear\"\n")
}

func TestFactorAndTable(t *testing.T) {
	expectOutput(t, `levels(factor(c("b", "a", "b")))`, "[1] \"a\" \"b\"\n")
	expectOutput(t, `as.integer(factor(c("b", "a", "b")))`, "[1] 2 1 2\n")
	expectOutput(t, `table(c("a", "b", "a"))`, "\na b \n2 1 \n")
}
