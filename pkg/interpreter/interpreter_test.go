package interpreter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"rcore/interpreter-go/pkg/runtime"
)

func newTestInterpreter() (*Interpreter, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return New(WithOutput(&stdout, &stderr)), &stdout, &stderr
}

// runOutput evaluates src and returns what it printed to stdout.
func runOutput(t *testing.T, src string) string {
	t.Helper()
	interp, stdout, _ := newTestInterpreter()
	if _, err := interp.EvalString(src); err != nil {
		t.Fatalf("evaluation of %q failed: %v", src, err)
	}
	return stdout.String()
}

func expectOutput(t *testing.T, src, want string) {
	t.Helper()
	if got := runOutput(t, src); got != want {
		t.Fatalf("output of %q:\n got %q\nwant %q", src, got, want)
	}
}

func evalValue(t *testing.T, src string) runtime.Value {
	t.Helper()
	interp, _, _ := newTestInterpreter()
	res, err := interp.EvalString(src)
	if err != nil {
		t.Fatalf("evaluation of %q failed: %v", src, err)
	}
	return res.Value
}

func evalError(t *testing.T, src string) *EvalError {
	t.Helper()
	interp, _, _ := newTestInterpreter()
	_, err := interp.EvalString(src)
	if err == nil {
		t.Fatalf("expected %q to fail", src)
	}
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvalError, got %T: %v", err, err)
	}
	return evalErr
}

func TestCopyOnModifyLeavesAliasUntouched(t *testing.T) {
	expectOutput(t, "a <- c(1, 2, 3); b <- a; a[1] <- 10; b", "[1] 1 2 3\n")
	expectOutput(t, "a <- c(1, 2, 3); b <- a; a[1] <- 10; a", "[1] 10  2  3\n")
}

func TestArgumentModificationDoesNotLeak(t *testing.T) {
	src := "f <- function(x) { x[1] <- 99L; x }\nv <- 1:3\nf(v)\nv"
	expectOutput(t, src, "[1] 99  2  3\n[1] 1 2 3\n")
}

func TestListElementCopySemantics(t *testing.T) {
	src := "l <- list(a = c(1, 2)); x <- l$a; x[2] <- 5; l$a"
	expectOutput(t, src, "[1] 1 2\n")
}

func TestPromiseIsForcedOnce(t *testing.T) {
	src := "f <- function(x) { x; x; x }\nf({ cat(\"hi\\n\"); 1 })"
	expectOutput(t, src, "hi\n[1] 1\n")
}

func TestUnusedPromiseIsNeverForced(t *testing.T) {
	src := "f <- function(x, y) x\nf(1, stop(\"never\"))"
	expectOutput(t, src, "[1] 1\n")
}

func TestDefaultArgumentSeesLocalBindings(t *testing.T) {
	src := "f <- function(x, n = length(y)) { y <- c(x, x); n }\nf(1:2)"
	expectOutput(t, src, "[1] 4\n")
}

func TestRecursivePromiseFails(t *testing.T) {
	err := evalError(t, "f <- function(x = x) x\nf()")
	if !strings.Contains(err.Message, "promise already under evaluation") {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestSuperassignmentUpdatesEnclosingFrame(t *testing.T) {
	src := `make <- function() {
  count <- 0
  function() {
    count <<- count + 1
    count
  }
}
counter <- make()
counter()
counter()`
	expectOutput(t, src, "[1] 1\n[1] 2\n")
}

func TestSuperassignmentFallsBackToGlobal(t *testing.T) {
	src := "f <- function() { z <<- c(2, 2); invisible(NULL) }\nf()\nz"
	expectOutput(t, src, "[1] 2 2\n")
}

func TestSuperassignmentSkipsLocalFrame(t *testing.T) {
	src := `x <- 10
f <- function() {
  x <- 2
  f2 <- function() { x <- x; x <<- 2; x }
  c(f2(), f2())
}
f()
x`
	expectOutput(t, src, "[1] 2 2\n[1] 10\n")
	src = `x <- 10
f <- function() {
  x <- 1
  f2 <- function() { x <- x; x <<- 2; x }
  c(f2(), x)
}
f()
x`
	expectOutput(t, src, "[1] 1 2\n[1] 10\n")
}

func TestArgumentMatchingOrder(t *testing.T) {
	src := "f <- function(a, b, c, d) c(a, b, c, d)\nf(d = 8, c = 1, 2, 3)"
	expectOutput(t, src, "[1] 2 3 1 8\n")
}

func TestPartialArgumentMatching(t *testing.T) {
	expectOutput(t, "f <- function(value, other) value\nf(val = 5, 1)", "[1] 5\n")
}

func TestUnusedArgumentIsReported(t *testing.T) {
	err := evalError(t, "f <- function(x) x\nf(1, y = 2)")
	if err.Message != "unused argument (y = 2)" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	var unused *runtime.UnusedArgumentError
	if !errors.As(err, &unused) {
		t.Fatalf("expected UnusedArgumentError cause, got %T", err.Cause)
	}
}

func TestUnboundSymbolError(t *testing.T) {
	err := evalError(t, "undefined_thing + 1")
	if err.Message != "object 'undefined_thing' not found" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	var unbound *runtime.UnboundSymbolError
	if !errors.As(err, &unbound) {
		t.Fatalf("expected UnboundSymbolError cause, got %T", err.Cause)
	}
}

func TestDotsForwarding(t *testing.T) {
	src := "f <- function(...) g(...)\ng <- function(a, b) a - b\nf(b = 1, 10)"
	expectOutput(t, src, "[1] 9\n")
	expectOutput(t, "f <- function(...) ..2\nf(1, \"two\", 3)", "[1] \"two\"\n")
	expectOutput(t, "f <- function(...) nargs()\nf(1, 2, 3)", "[1] 3\n")
}

func TestSubstituteAndMissing(t *testing.T) {
	expectOutput(t, "f <- function(x) substitute(x)\nf(a + b)", "a + b\n")
	expectOutput(t, "g <- function(x) missing(x)\ng()", "[1] TRUE\n")
	expectOutput(t, "g <- function(x) missing(x)\ng(1)", "[1] FALSE\n")
	expectOutput(t, "f <- function(x) deparse(substitute(x))\nf(mean(1:10))", "[1] \"mean(1:10)\"\n")
}

func TestLoopsAndControlFlow(t *testing.T) {
	src := `total <- 0
for (i in 1:10) {
  if (i %% 2 == 0) next
  if (i > 7) break
  total <- total + i
}
total`
	expectOutput(t, src, "[1] 16\n")
	expectOutput(t, "i <- 0; while (TRUE) { i <- i + 1; if (i >= 3) break }; i", "[1] 3\n")
	expectOutput(t, "n <- 0; repeat { n <- n + 2; if (n > 5) break }; n", "[1] 6\n")
}

func TestInvisibleResultsAreNotPrinted(t *testing.T) {
	expectOutput(t, "x <- 5", "")
	expectOutput(t, "invisible(5)", "")
	expectOutput(t, "(x <- 5)", "[1] 5\n")
	expectOutput(t, "f <- function() invisible(7)\nf()", "")
	expectOutput(t, "f <- function() invisible(7)\ny <- f(); y", "[1] 7\n")
}

func TestOnExitRunsAfterBody(t *testing.T) {
	src := "f <- function() { on.exit(cat(\"bye\\n\")); cat(\"hi\\n\"); invisible(1) }\nf()"
	expectOutput(t, src, "hi\nbye\n")
}

func TestOnExitRunsOnError(t *testing.T) {
	src := "f <- function() { on.exit(cat(\"cleanup\\n\")); stop(\"fail\") }\ntry(f(), silent = TRUE)"
	expectOutput(t, src, "cleanup\n")
}

func TestS3Dispatch(t *testing.T) {
	src := `area <- function(s, ...) UseMethod("area")
area.square <- function(s, ...) s$side^2
area.default <- function(s, ...) NA
area(structure(list(side = 3), class = "square"))
area(1)`
	expectOutput(t, src, "[1] 9\n[1] NA\n")
}

func TestNextMethodWalksClassVector(t *testing.T) {
	src := `describe <- function(x) UseMethod("describe")
describe.child <- function(x) c("child", NextMethod())
describe.parent <- function(x) "parent"
describe(structure(1, class = c("child", "parent")))`
	expectOutput(t, src, "[1] \"child\"  \"parent\"\n")
}

func TestPrintMethodIsUsedForAutoPrint(t *testing.T) {
	src := "print.foo <- function(x, ...) cat(\"<foo>\\n\")\nstructure(1, class = \"foo\")"
	expectOutput(t, src, "<foo>\n")
}

func TestClosureEnvironmentCapture(t *testing.T) {
	src := `adder <- function(n) function(x) x + n
add2 <- adder(2)
add2(5)`
	expectOutput(t, src, "[1] 7\n")
}

func TestEvalStringReturnsVisibility(t *testing.T) {
	interp, _, _ := newTestInterpreter()
	res, err := interp.EvalString("x <- 3")
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if res.Visible {
		t.Fatalf("assignment should be invisible")
	}
	res, err = interp.EvalString("x * 2")
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if !res.Visible || !Identical(res.Value, runtime.DoubleScalar(6)) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestEvalStringContextCancellation(t *testing.T) {
	interp, _, _ := newTestInterpreter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := interp.EvalStringContext(ctx, "while (TRUE) {}")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRegisterBuiltin(t *testing.T) {
	interp, stdout, _ := newTestInterpreter()
	interp.RegisterBuiltin("twice", []string{"x"}, func(c *CallContext) (runtime.Value, error) {
		x, err := c.Require(0)
		if err != nil {
			return nil, err
		}
		n, err := runtime.AsDoubleScalar(x)
		if err != nil {
			return nil, err
		}
		return runtime.DoubleScalar(2 * n), nil
	})
	if _, err := interp.EvalString("twice(21)"); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if stdout.String() != "[1] 42\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestTopLevelErrorStopsEvaluation(t *testing.T) {
	interp, stdout, _ := newTestInterpreter()
	_, err := interp.EvalString("cat(\"before\\n\")\nstop(\"halt\")\ncat(\"after\\n\")")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if DescribeError(err) != "Error: halt" {
		t.Fatalf("unexpected report %q", DescribeError(err))
	}
	if stdout.String() != "before\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if _, err := interp.EvalString("1"); err != nil {
		t.Fatalf("interpreter unusable after error: %v", err)
	}
}

func TestErrorReportIncludesCall(t *testing.T) {
	err := evalError(t, "f <- function() stop(\"boom\")\nf()")
	if err.Error() != "Error in f() : boom" {
		t.Fatalf("unexpected report %q", err.Error())
	}
}

func TestBreakOutsideLoopIsNoOp(t *testing.T) {
	expectOutput(t, "break\nnext\n1", "[1] 1\n")
	expectOutput(t, "f <- function() { next; 2 }\nf()", "[1] 2\n")
}

func TestLoopControlStaysInItsEnvironment(t *testing.T) {
	expectOutput(t, "for (i in 1:3) { local({ if (i == 2) break }); cat(i, \"\\n\") }", "1 \n2 \n3 \n")
	expectOutput(t, "for (i in 1:3) { f <- function() break; f(); cat(i, \"\\n\") }", "1 \n2 \n3 \n")
	expectOutput(t, "for (i in 1:3) { if (i == 2) evalq(break); cat(i, \"\\n\") }", "1 \n")
	expectOutput(t, "for (i in 1:3) { if (i == 2) eval(quote(next)); cat(i, \"\\n\") }", "1 \n3 \n")
	expectOutput(t, "g <- function(x) x; for (i in 1:3) { g(if (i == 2) break); cat(i, \"\\n\") }", "1 \n")
	expectOutput(t, "i <- 0; repeat { i <- i + 1; tryCatch(if (i > 2) break, finally = NULL) }; i", "[1] 3\n")
}
