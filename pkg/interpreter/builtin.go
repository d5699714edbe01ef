package interpreter

import (
	"fmt"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

// Arg is one actual argument. Value is a promise for closures and specials
// and an evaluated value for ordinary builtins. Expr is nil for synthesized
// arguments.
type Arg struct {
	Name  string
	Value runtime.Value
	Expr  ast.Expression
}

// BuiltinFunc implements a primitive.
type BuiltinFunc func(c *CallContext) (runtime.Value, error)

// Visibility controls how a builtin affects auto-printing.
type Visibility int

const (
	VisibleOn Visibility = iota
	VisibleOff
	// VisiblePass leaves whatever the builtin's own evaluation set.
	VisiblePass
)

// Builtin is a function implemented in Go.
type Builtin struct {
	runtime.Header
	Name string
	// Formals enables R argument matching; without them Args holds the
	// actuals in call order.
	Formals []string
	// Special builtins receive unevaluated arguments as promises.
	Special    bool
	Visibility Visibility
	Impl       BuiltinFunc
}

func (*Builtin) Kind() runtime.Kind { return runtime.KindBuiltin }

// CallContext is handed to a builtin for one invocation.
type CallContext struct {
	Interp *Interpreter
	Call   ast.Expression
	// Env is the environment the call was evaluated in.
	Env *runtime.Environment
	// Args holds one slot per formal (Value nil when absent) when the builtin
	// declares formals, otherwise every actual in order.
	Args []Arg
	// Dots collects the actuals matched to a "..." formal.
	Dots []Arg

	builtin    *Builtin
	replacing  bool
	invisible  bool
	dispatched bool
}

// Has reports whether formal k was supplied and not empty.
func (c *CallContext) Has(k int) bool {
	if k >= len(c.Args) || c.Args[k].Value == nil {
		return false
	}
	if _, missing := c.Args[k].Value.(*runtime.MissingValue); missing {
		return false
	}
	return true
}

// Arg returns the value of formal k, forcing it for specials. Absent formals
// yield nil.
func (c *CallContext) Arg(k int) (runtime.Value, error) {
	if !c.Has(k) {
		return nil, nil
	}
	return c.Force(c.Args[k].Value)
}

// ArgOr returns formal k or def when absent.
func (c *CallContext) ArgOr(k int, def runtime.Value) (runtime.Value, error) {
	v, err := c.Arg(k)
	if err != nil || v != nil {
		return v, err
	}
	return def, nil
}

// Require returns formal k, failing with a missing-argument error.
func (c *CallContext) Require(k int) (runtime.Value, error) {
	if !c.Has(k) {
		name := "x"
		if c.builtin != nil && k < len(c.builtin.Formals) {
			name = c.builtin.Formals[k]
		}
		return nil, &runtime.MissingArgumentError{Name: name}
	}
	return c.Force(c.Args[k].Value)
}

// Force evaluates a promise argument; other values are returned as is.
func (c *CallContext) Force(v runtime.Value) (runtime.Value, error) {
	if p, ok := v.(*runtime.Promise); ok {
		return c.Interp.forcePromise(p)
	}
	return v, nil
}

// Values forces and returns every actual when the builtin has no formals, or
// the dots otherwise.
func (c *CallContext) Values() ([]runtime.Value, error) {
	src := c.Args
	if c.builtin != nil && len(c.builtin.Formals) > 0 {
		src = c.Dots
	}
	out := make([]runtime.Value, len(src))
	for k, a := range src {
		v, err := c.Force(a.Value)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Warn signals a warning attributed to this call.
func (c *CallContext) Warn(format string, args ...any) error {
	return c.Interp.signalWarning(fmt.Sprintf(format, args...), c.Call)
}

// Invisible marks the result as not auto-printed.
func (c *CallContext) Invisible() {
	c.invisible = true
	c.Interp.visible = false
}

// Mutable returns x ready for in-place modification by a replacement
// function: a duplicate unless x is exclusively owned by the assignment in
// progress.
func (c *CallContext) Mutable(x runtime.Value) runtime.Value {
	if c.replacing && !runtime.IsShared(x) {
		return x
	}
	return runtime.Duplicate(x)
}

// Name returns the builtin's name.
func (c *CallContext) Name() string {
	if c.builtin == nil {
		return ""
	}
	return c.builtin.Name
}

// RegisterBuiltin installs an evaluated builtin into the base environment.
// formals may be nil to receive the actuals positionally.
func (i *Interpreter) RegisterBuiltin(name string, formals []string, impl BuiltinFunc) {
	i.base.Define(name, &Builtin{Name: name, Formals: formals, Impl: impl})
}

func (i *Interpreter) def(name string, formals string, impl BuiltinFunc) *Builtin {
	b := &Builtin{Name: name, Formals: splitFormals(formals), Impl: impl}
	i.base.Define(name, b)
	return b
}

func (i *Interpreter) special(name string, formals string, impl BuiltinFunc) *Builtin {
	b := i.def(name, formals, impl)
	b.Special = true
	return b
}

func (i *Interpreter) invisibleDef(name string, formals string, impl BuiltinFunc) *Builtin {
	b := i.def(name, formals, impl)
	b.Visibility = VisibleOff
	return b
}

func (i *Interpreter) alias(name, target string) {
	v, _ := i.base.GetLocal(target)
	i.base.Define(name, v)
}

func splitFormals(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for k := range parts {
		parts[k] = strings.TrimSpace(parts[k])
	}
	return parts
}
