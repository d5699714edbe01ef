package interpreter

import (
	"fmt"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// matchArgs assigns actuals to formals: exact names first, then unique
// partial names for formals before "...", then positions up to "...". What
// remains goes to the dots, or is reported as unused. The result has one
// entry per formal; absent formals have a nil Value.
func matchArgs(formals []string, actuals []Arg) ([]Arg, []Arg, error) {
	matched := make([]Arg, len(formals))
	used := make([]bool, len(actuals))
	dotsAt := -1
	for k, f := range formals {
		if f == "..." {
			dotsAt = k
			break
		}
	}

	// Exact names.
	for a, act := range actuals {
		if act.Name == "" {
			continue
		}
		for k, f := range formals {
			if f == "..." || f != act.Name {
				continue
			}
			if matched[k].Value != nil {
				return nil, nil, runtime.Errorf("formal argument \"%s\" matched by multiple actual arguments", f)
			}
			matched[k] = act
			used[a] = true
			break
		}
	}

	// Partial names, only for formals ahead of "...".
	limit := len(formals)
	if dotsAt >= 0 {
		limit = dotsAt
	}
	for a, act := range actuals {
		if used[a] || act.Name == "" {
			continue
		}
		found := -1
		for k := 0; k < limit; k++ {
			if !strings.HasPrefix(formals[k], act.Name) {
				continue
			}
			if matched[k].Value != nil {
				return nil, nil, runtime.Errorf("formal argument \"%s\" matched by multiple actual arguments", formals[k])
			}
			if found >= 0 {
				return nil, nil, runtime.Errorf("argument %d matches multiple formal arguments", a+1)
			}
			found = k
		}
		if found >= 0 {
			matched[found] = act
			used[a] = true
		}
	}

	// Positions.
	k := 0
	for a, act := range actuals {
		if used[a] || act.Name != "" {
			continue
		}
		for k < len(formals) && formals[k] != "..." && matched[k].Value != nil {
			k++
		}
		if k >= len(formals) || formals[k] == "..." {
			break
		}
		matched[k] = act
		used[a] = true
		k++
	}

	var dots []Arg
	var unused []string
	for a, act := range actuals {
		if used[a] {
			continue
		}
		if dotsAt >= 0 {
			dots = append(dots, act)
			continue
		}
		unused = append(unused, describeActual(act))
	}
	if len(unused) > 0 {
		return nil, nil, &runtime.UnusedArgumentError{Args: unused}
	}
	return matched, dots, nil
}

func describeActual(a Arg) string {
	var text string
	switch {
	case a.Expr != nil:
		text = ast.Deparse(a.Expr)
	case a.Value != nil:
		text = runtime.DeparseValue(a.Value)
	}
	if a.Name != "" {
		return fmt.Sprintf("%s = %s", ast.QuoteName(a.Name), text)
	}
	return text
}

// closureFormals lists the formal names of a closure.
func closureFormals(fn *runtime.ClosureValue) []string {
	out := make([]string, len(fn.Params))
	for k, p := range fn.Params {
		out[k] = p.Name
	}
	return out
}
