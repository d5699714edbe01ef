package parser

import (
	"errors"
	"math"
	"testing"

	"rcore/interpreter-go/pkg/ast"
)

func parseOne(t *testing.T, src string) ast.Expression {
	t.Helper()
	expr, err := ParseExpression(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return expr
}

func TestParseDeparseRoundTrip(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":                    "1 + 2 * 3",
		"x <- 1:10":                    "x <- 1:10",
		"-2^2":                         "-2^2",
		"f(a, b = 2, ...)":             "f(a, b = 2, ...)",
		"x[1, ]":                       "x[1, ]",
		"x[[\"a\"]]":                   "x[[\"a\"]]",
		"l$a$b <- 3":                   "l$a$b <- 3",
		"function(x, y = 2) x + y":     "function(x, y = 2) x + y",
		"if (a) b else c":              "if (a) b else c",
		"for (i in 1:3) print(i)":      "for (i in 1:3) print(i)",
		"while (TRUE) break":           "while (TRUE) break",
		"x %in% y":                     "x %in% y",
		"!a && b":                      "!a && b",
		"`my var` <- 1L":               "`my var` <- 1L",
		"x ** 2":                       "x^2",
		"1 -> y":                       "y <- 1",
		"g <<- NULL":                   "g <<- NULL",
		"\\(x) x":                      "function(x) x",
		"x |> f(y)":                    "f(x, y)",
		"c(NA, NA_integer_, NA_real_)": "c(NA, NA_integer_, NA_real_)",
		"base::paste":                  "base::paste",
	}
	for src, want := range cases {
		got := ast.Deparse(parseOne(t, src))
		if got != want {
			t.Fatalf("deparse(parse(%q)) = %q, want %q", src, got, want)
		}
	}
}

func TestPrecedence(t *testing.T) {
	expr := parseOne(t, "-1:3")
	call, ok := expr.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected call, got %#v", expr)
	}
	if name, _ := call.FunctionName(); name != ":" {
		t.Fatalf("expected ':' at the root of -1:3, got %q", name)
	}

	expr = parseOne(t, "a <- b <- 2")
	assign, ok := expr.(*ast.AssignmentExpression)
	if !ok {
		t.Fatalf("expected assignment, got %#v", expr)
	}
	if _, ok := assign.Value.(*ast.AssignmentExpression); !ok {
		t.Fatalf("expected right-associative assignment, got %#v", assign.Value)
	}

	expr = parseOne(t, "2^3^2")
	call = expr.(*ast.CallExpression)
	if _, ok := call.Args[1].Value.(*ast.CallExpression); !ok {
		t.Fatalf("expected ^ to be right associative")
	}
}

func TestNamedArgumentsAndEmptyArguments(t *testing.T) {
	expr := parseOne(t, "f(d=8,c=1,2,3)")
	call := expr.(*ast.CallExpression)
	if len(call.Args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(call.Args))
	}
	if !call.Args[0].Named || call.Args[0].Name != "d" {
		t.Fatalf("expected first arg named d, got %#v", call.Args[0])
	}
	if call.Args[2].Named {
		t.Fatalf("expected positional third arg")
	}

	expr = parseOne(t, "m[, 2]")
	call = expr.(*ast.CallExpression)
	if call.Form != ast.FormIndex || len(call.Args) != 3 || call.Args[1].Value != nil {
		t.Fatalf("expected empty row index, got %#v", call.Args)
	}

	expr = parseOne(t, `c("a" = 1)`)
	call = expr.(*ast.CallExpression)
	if !call.Args[0].Named || call.Args[0].Name != "a" {
		t.Fatalf("expected string tag to name the argument")
	}
}

func TestNewlinesAndBlocks(t *testing.T) {
	prog, err := Parse("x <- 1\ny <- x +\n  2; z <- 3\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(prog.Body) != 3 {
		t.Fatalf("expected 3 expressions, got %d", len(prog.Body))
	}

	expr := parseOne(t, "{\n  if (a) 1\n  else 2\n}")
	block := expr.(*ast.BlockExpression)
	if len(block.Body) != 1 {
		t.Fatalf("expected else to continue the if inside braces, got %d statements", len(block.Body))
	}

	expr = parseOne(t, "f(1,\n  2\n)")
	if call := expr.(*ast.CallExpression); len(call.Args) != 2 {
		t.Fatalf("expected newline-insensitive arguments")
	}

	prog, err = Parse("if (a) 1\nelse 2")
	if err == nil {
		t.Fatalf("expected top-level else on a new line to fail, got %d exprs", len(prog.Body))
	}
}

func TestLiterals(t *testing.T) {
	if lit, ok := parseOne(t, "0x1F").(*ast.NumericLiteral); !ok || lit.Value != 31 {
		t.Fatalf("expected 31 from hex literal")
	}
	if lit, ok := parseOne(t, "1e3L").(*ast.IntegerLiteral); !ok || lit.Value != 1000 {
		t.Fatalf("expected integer 1000")
	}
	if lit, ok := parseOne(t, "2i").(*ast.ComplexLiteral); !ok || lit.Imaginary != 2 {
		t.Fatalf("expected complex literal")
	}
	if lit, ok := parseOne(t, `'a\tbé'`).(*ast.StringLiteral); !ok || lit.Value != "a\tbé" {
		t.Fatalf("unexpected string literal %#v", lit)
	}
	if lit, ok := parseOne(t, "Inf").(*ast.NumericLiteral); !ok || !math.IsInf(lit.Value, 1) {
		t.Fatalf("expected Inf")
	}
	if lit, ok := parseOne(t, ".5").(*ast.NumericLiteral); !ok || lit.Value != 0.5 {
		t.Fatalf("expected 0.5")
	}
	if id, ok := parseOne(t, "..1").(*ast.Identifier); !ok || id.Name != "..1" {
		t.Fatalf("expected ..1 symbol")
	}
}

func TestFunctionSourceIsCaptured(t *testing.T) {
	expr := parseOne(t, "f <- function(a, b) {\n  a + b\n}")
	fn := expr.(*ast.AssignmentExpression).Value.(*ast.FunctionLiteral)
	if fn.Source != "function(a, b) {\n  a + b\n}" {
		t.Fatalf("unexpected source %q", fn.Source)
	}
}

func TestIncompleteInput(t *testing.T) {
	for _, src := range []string{"f(1,", "{ x <- 1", "x +", "\"abc"} {
		_, err := Parse(src)
		var perr *ParseError
		if !errors.As(err, &perr) || !perr.Incomplete {
			t.Fatalf("expected incomplete parse error for %q, got %v", src, err)
		}
	}
	_, err := Parse("x y")
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Incomplete || perr.Message != "unexpected symbol" {
		t.Fatalf("expected unexpected symbol, got %v", err)
	}
}
