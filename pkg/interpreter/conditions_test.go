package interpreter

import (
	"strings"
	"testing"
)

func TestTryCatchFinallyAlwaysRuns(t *testing.T) {
	src := `r <- tryCatch(stop("boom"), error = function(e) conditionMessage(e), finally = cat("done\n"))
r`
	expectOutput(t, src, "done\n[1] \"boom\"\n")
	expectOutput(t, `tryCatch(42, finally = cat("done\n"))`, "done\n[1] 42\n")
}

func TestTryCatchFinallyRunsWhenErrorEscapes(t *testing.T) {
	interp, stdout, _ := newTestInterpreter()
	_, err := interp.EvalString(`tryCatch(stop("outer"), warning = function(w) "no", finally = cat("finally\n"))`)
	if err == nil || DescribeError(err) != "Error: outer" {
		t.Fatalf("expected uncaught error, got %v", err)
	}
	if stdout.String() != "finally\n" {
		t.Fatalf("finally did not run, output %q", stdout.String())
	}
}

func TestTryCatchFirstMatchingHandlerWins(t *testing.T) {
	src := `tryCatch(stop("x"), condition = function(c) "condition", error = function(e) "error")`
	expectOutput(t, src, "[1] \"condition\"\n")
}

func TestCallingHandlerSeesConditionAndContinues(t *testing.T) {
	src := `invisible(withCallingHandlers({
  warning("careful")
  cat("after\n")
}, warning = function(w) {
  cat("caught", conditionMessage(w), "\n")
  invokeRestart("muffleWarning")
}))`
	expectOutput(t, src, "caught careful \nafter\n")
}

func TestCallingHandlersRunInnermostFirst(t *testing.T) {
	src := `invisible(withCallingHandlers(
  withCallingHandlers(message("m"), message = function(c) cat("inner\n")),
  message = function(c) { cat("outer\n"); invokeRestart("muffleMessage") }))`
	expectOutput(t, src, "inner\nouter\n")
}

func TestUnhandledWarningIsDeferred(t *testing.T) {
	interp, stdout, stderr := newTestInterpreter()
	if _, err := interp.EvalString("f <- function() { warning(\"w1\"); 10 }\nf()"); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if stdout.String() != "[1] 10\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if stderr.String() != "Warning message:\nIn f() : w1\n" {
		t.Fatalf("unexpected warning report %q", stderr.String())
	}
}

func TestImmediateWarningReport(t *testing.T) {
	interp, stdout, stderr := newTestInterpreter()
	src := `options(warn = 1)
f <- function() { warning("now"); cat("after\n"); 1 }
invisible(f())
warning("top")`
	if _, err := interp.EvalString(src); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if stdout.String() != "after\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if stderr.String() != "Warning in f() : now\nWarning: top\n" {
		t.Fatalf("unexpected warning report %q", stderr.String())
	}
}

func TestMessageGoesToStderr(t *testing.T) {
	interp, stdout, stderr := newTestInterpreter()
	if _, err := interp.EvalString(`message("hello")`); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if stdout.String() != "" || stderr.String() != "hello\n" {
		t.Fatalf("unexpected streams stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func TestSuppressWarningsAndMessages(t *testing.T) {
	interp, stdout, stderr := newTestInterpreter()
	src := `suppressWarnings({ warning("x"); 1 })
suppressMessages({ message("y"); 2 })`
	if _, err := interp.EvalString(src); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if stdout.String() != "[1] 1\n[1] 2\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if stderr.String() != "" {
		t.Fatalf("expected nothing on stderr, got %q", stderr.String())
	}
}

func TestWithRestartsInvokeWithArguments(t *testing.T) {
	expectOutput(t, `withRestarts(invokeRestart("myR", 5), myR = function(v) v * 2)`, "[1] 10\n")
}

func TestFinallyRunsWhenRestartUnwinds(t *testing.T) {
	src := `withRestarts(
  tryCatch(invokeRestart("r"), finally = cat("fin\n")),
  r = function() 5)`
	expectOutput(t, src, "fin\n[1] 5\n")
	expectOutput(t, `tryCatch(withRestarts(invokeRestart("r"), r = function() 5), finally = cat("fin\n"))`, "fin\n[1] 5\n")
}

func TestRestartVisibleOnlyWhileEstablished(t *testing.T) {
	src := `inside <- withRestarts(!is.null(findRestart("r1")), r1 = function() NULL)
outside <- is.null(findRestart("r1"))
c(inside, outside)`
	expectOutput(t, src, "[1] TRUE TRUE\n")
}

func TestRestartInvokedFromHandler(t *testing.T) {
	src := `f <- function() {
  withRestarts(
    { signalCondition(simpleCondition("go")); "not reached" },
    useValue = function(v) v)
}
withCallingHandlers(f(), condition = function(c) invokeRestart("useValue", "recovered"))`
	expectOutput(t, src, "[1] \"recovered\"\n")
}

func TestInvokingMissingRestartFails(t *testing.T) {
	err := evalError(t, `invokeRestart("nope")`)
	if !strings.Contains(err.Message, "no 'restart' 'nope' found") {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestCustomConditionClass(t *testing.T) {
	src := `cond <- structure(class = c("myCondition", "condition"), list(message = "custom", call = NULL))
tryCatch(stop(cond), myCondition = function(c) paste("got", conditionMessage(c)))`
	expectOutput(t, src, "[1] \"got custom\"\n")
}

func TestTryReturnsErrorObject(t *testing.T) {
	src := `r <- try(stop("oops"), silent = TRUE)
class(r)
inherits(r, "try-error")`
	expectOutput(t, src, "[1] \"try-error\"\n[1] TRUE\n")
}

func TestNestedTryCatchRethrow(t *testing.T) {
	src := `tryCatch(
  tryCatch(stop("inner"), error = function(e) stop(paste("wrapped:", conditionMessage(e)))),
  error = function(e) conditionMessage(e))`
	expectOutput(t, src, "[1] \"wrapped: inner\"\n")
}

func TestWarningConvertedToError(t *testing.T) {
	src := `options(warn = 2)
tryCatch(warning("w"), error = function(e) conditionMessage(e))`
	expectOutput(t, src, "[1] \"(converted from warning) w\"\n")
}
