package runtime

import "rcore/interpreter-go/pkg/ast"

// EvalFunc evaluates an expression in an environment.
type EvalFunc func(expr ast.Expression, env *Environment) (Value, error)

// Promise is a lazily evaluated argument: the expression, the environment it
// must be evaluated in, and the cached result once forced.
type Promise struct {
	Expr       ast.Expression
	Env        *Environment
	value      Value
	forced     bool
	evaluating bool
}

func (*Promise) Kind() Kind { return KindPromise }

func NewPromise(expr ast.Expression, env *Environment) *Promise {
	return &Promise{Expr: expr, Env: env}
}

// NewForcedPromise wraps an already computed value, keeping expr for
// substitute() and deparse().
func NewForcedPromise(expr ast.Expression, value Value) *Promise {
	MarkShared(value)
	return &Promise{Expr: expr, value: value, forced: true}
}

func (p *Promise) Forced() bool { return p.forced }

// Value returns the cached value, nil when unforced.
func (p *Promise) Value() Value { return p.value }

// Force evaluates the promise at most once. Reentrant forcing fails with a
// PromiseRecursionError. A failed evaluation leaves the promise unforced.
func (p *Promise) Force(eval EvalFunc) (Value, error) {
	if p.forced {
		return p.value, nil
	}
	if p.evaluating {
		return nil, &PromiseRecursionError{}
	}
	p.evaluating = true
	defer func() { p.evaluating = false }()
	v, err := eval(p.Expr, p.Env)
	if err != nil {
		return nil, err
	}
	MarkShared(v)
	p.value = v
	p.forced = true
	p.Env = nil
	return v, nil
}
