package interpreter

import (
	"fmt"
	"strconv"
	"strings"

	"rcore/interpreter-go/pkg/ast"
	"rcore/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.NumericLiteral, *ast.IntegerLiteral, *ast.ComplexLiteral, *ast.StringLiteral, *ast.LogicalLiteral, *ast.NullLiteral:
		i.visible = true
		v, _ := literalValue(n)
		return v, nil
	case *ast.Constant:
		i.visible = true
		if v, ok := n.Value.(runtime.Value); ok {
			return v, nil
		}
		return runtime.Null, nil
	case *ast.Identifier:
		val, err := i.evaluateSymbol(n.Name, env)
		i.visible = true
		return val, err
	case *ast.CallExpression:
		return i.evaluateCall(n, env)
	case *ast.FunctionLiteral:
		i.visible = true
		return &runtime.ClosureValue{Params: n.Params, Body: n.Body, Env: env, Source: n.Source}, nil
	case *ast.AssignmentExpression:
		return i.evaluateAssignment(n, env)
	case *ast.BlockExpression:
		return i.evaluateBlock(n, env)
	case *ast.ParenExpression:
		val, err := i.evaluateExpression(n.Inner, env)
		i.visible = true
		return val, err
	case *ast.IfExpression:
		return i.evaluateIf(n, env)
	case *ast.ForLoop:
		return i.evaluateForLoop(n, env)
	case *ast.WhileLoop:
		return i.evaluateWhileLoop(n, env)
	case *ast.RepeatLoop:
		return i.evaluateRepeatLoop(n, env)
	case *ast.BreakExpression:
		if !i.inLoop(env) {
			i.visible = false
			return runtime.Null, nil
		}
		return nil, breakSignal{env: env}
	case *ast.NextExpression:
		if !i.inLoop(env) {
			i.visible = false
			return runtime.Null, nil
		}
		return nil, nextSignal{env: env}
	case nil:
		return runtime.MissingArg, nil
	default:
		return nil, fmt.Errorf("unsupported expression type: %s", n.NodeType())
	}
}

// literalValue converts a literal node to its constant value.
func literalValue(node ast.Expression) (runtime.Value, bool) {
	switch n := node.(type) {
	case *ast.NumericLiteral:
		if n.NA {
			return runtime.DoubleScalar(runtime.NAReal), true
		}
		return runtime.DoubleScalar(n.Value), true
	case *ast.IntegerLiteral:
		if n.NA {
			return runtime.NewIntegerVector([]int32{runtime.NAInteger}), true
		}
		return runtime.NewIntegerVector([]int32{n.Value}), true
	case *ast.ComplexLiteral:
		return runtime.NewComplexVector([]complex128{complex(0, n.Imaginary)}), true
	case *ast.StringLiteral:
		if n.NA {
			return runtime.NewCharacterVector([]runtime.Str{runtime.NAString}), true
		}
		return runtime.StringScalar(n.Value), true
	case *ast.LogicalLiteral:
		switch n.Value {
		case ast.LogicalTrue:
			return runtime.LogicalScalar(true), true
		case ast.LogicalFalse:
			return runtime.LogicalScalar(false), true
		}
		return runtime.LogicalNA(), true
	case *ast.NullLiteral:
		return runtime.Null, true
	}
	return nil, false
}

// evaluateSymbol looks a variable up, forcing promises and reporting missing
// arguments.
func (i *Interpreter) evaluateSymbol(name string, env *runtime.Environment) (runtime.Value, error) {
	if name == "..." {
		return nil, i.raise(i.currentCall(), runtime.Errorf("'...' used in an incorrect context"))
	}
	if n, ok := dotDotIndex(name); ok {
		return i.dotsElement(env, n)
	}
	val, _, ok := env.Lookup(name)
	if !ok {
		return nil, i.raise(i.currentCall(), &runtime.UnboundSymbolError{Name: name})
	}
	return i.resolveBinding(name, val)
}

func (i *Interpreter) resolveBinding(name string, val runtime.Value) (runtime.Value, error) {
	switch v := val.(type) {
	case *runtime.MissingValue:
		return nil, i.raise(i.currentCall(), &runtime.MissingArgumentError{Name: name})
	case *runtime.Promise:
		return i.forcePromise(v)
	}
	return val, nil
}

func dotDotIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "..") || len(name) < 3 {
		return 0, false
	}
	n, err := strconv.Atoi(name[2:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (i *Interpreter) dotsElement(env *runtime.Environment, n int) (runtime.Value, error) {
	dots, err := i.lookupDots(env)
	if err != nil {
		return nil, err
	}
	if n > len(dots.Entries) {
		return nil, i.raise(i.currentCall(), runtime.Errorf("the ... list contains fewer than %d elements", n))
	}
	return i.resolveBinding(fmt.Sprintf("..%d", n), dots.Entries[n-1].Value)
}

func (i *Interpreter) lookupDots(env *runtime.Environment) (*runtime.DotsValue, error) {
	val, _, ok := env.Lookup("...")
	if !ok {
		return nil, i.raise(i.currentCall(), runtime.Errorf("'...' used in an incorrect context"))
	}
	dots, ok := val.(*runtime.DotsValue)
	if !ok {
		return &runtime.DotsValue{}, nil
	}
	return dots, nil
}

func (i *Interpreter) evaluateBlock(block *ast.BlockExpression, env *runtime.Environment) (runtime.Value, error) {
	var result runtime.Value = runtime.Null
	i.visible = true
	for _, expr := range block.Body {
		val, err := i.evaluateExpression(expr, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

// conditionTruth interprets the value of an if or while condition.
func (i *Interpreter) conditionTruth(val runtime.Value, call ast.Expression) (bool, error) {
	if runtime.Length(val) == 0 {
		return false, i.raise(call, runtime.Errorf("argument is of length zero"))
	}
	if runtime.Length(val) > 1 {
		return false, i.raise(call, runtime.Errorf("the condition has length > 1"))
	}
	var b int32
	switch v := val.(type) {
	case *runtime.LogicalVector:
		b = v.Data[0]
	case *runtime.IntegerVector, *runtime.DoubleVector, *runtime.ComplexVector:
		b, _ = runtime.AsLogicalScalar(v)
	case *runtime.CharacterVector:
		b = runtime.ParseLogical(v.Data[0])
		if b == runtime.NALogical && !v.Data[0].NA {
			return false, i.raise(call, runtime.Errorf("argument is not interpretable as logical"))
		}
	default:
		return false, i.raise(call, runtime.Errorf("argument is not interpretable as logical"))
	}
	if b == runtime.NALogical {
		return false, i.raise(call, runtime.Errorf("missing value where TRUE/FALSE needed"))
	}
	return b != 0, nil
}

func (i *Interpreter) evaluateIf(n *ast.IfExpression, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateExpression(n.Condition, env)
	if err != nil {
		return nil, err
	}
	truth, err := i.conditionTruth(cond, n)
	if err != nil {
		return nil, err
	}
	if truth {
		return i.evaluateExpression(n.Then, env)
	}
	if n.Else != nil {
		return i.evaluateExpression(n.Else, env)
	}
	i.visible = false
	return runtime.Null, nil
}

// runLoopBody evaluates one iteration; done reports a break.
func (i *Interpreter) runLoopBody(body ast.Expression, env *runtime.Environment) (done bool, err error) {
	if err := i.checkContext(); err != nil {
		return true, err
	}
	_, err = i.evaluateExpression(body, env)
	switch sig := err.(type) {
	case nil:
		return false, nil
	case nextSignal:
		if sig.env == env {
			return false, nil
		}
	case breakSignal:
		if sig.env == env {
			return true, nil
		}
	}
	return true, err
}

// enterLoop records a loop running in env until the returned func is called.
func (i *Interpreter) enterLoop(env *runtime.Environment) func() {
	depth := len(i.loops)
	i.loops = append(i.loops, env)
	return func() { i.loops = i.loops[:depth] }
}

// inLoop reports whether break and next evaluated in env have a loop to
// act on. A loop only catches them from its own environment.
func (i *Interpreter) inLoop(env *runtime.Environment) bool {
	for k := len(i.loops) - 1; k >= 0; k-- {
		if i.loops[k] == env {
			return true
		}
	}
	return false
}

func (i *Interpreter) evaluateForLoop(loop *ast.ForLoop, env *runtime.Environment) (runtime.Value, error) {
	seq, err := i.evaluateExpression(loop.Sequence, env)
	if err != nil {
		return nil, err
	}
	var items func(k int) runtime.Value
	count := 0
	switch s := seq.(type) {
	case *runtime.NullValue:
	case *runtime.ListValue:
		count = s.Len()
		items = func(k int) runtime.Value {
			runtime.MarkShared(s.Data[k])
			return s.Data[k]
		}
	case runtime.Vector:
		count = s.Len()
		items = func(k int) runtime.Value { return s.Select([]int{k}) }
	default:
		return nil, i.raise(loop, runtime.Errorf("invalid for() loop sequence"))
	}
	defer i.enterLoop(env)()
	for k := 0; k < count; k++ {
		env.Define(loop.Variable, items(k))
		done, err := i.runLoopBody(loop.Body, env)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	i.visible = false
	return runtime.Null, nil
}

func (i *Interpreter) evaluateWhileLoop(loop *ast.WhileLoop, env *runtime.Environment) (runtime.Value, error) {
	defer i.enterLoop(env)()
	for {
		cond, err := i.evaluateExpression(loop.Condition, env)
		if err != nil {
			return nil, err
		}
		truth, err := i.conditionTruth(cond, loop)
		if err != nil {
			return nil, err
		}
		if !truth {
			break
		}
		done, err := i.runLoopBody(loop.Body, env)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	i.visible = false
	return runtime.Null, nil
}

func (i *Interpreter) evaluateRepeatLoop(loop *ast.RepeatLoop, env *runtime.Environment) (runtime.Value, error) {
	defer i.enterLoop(env)()
	for {
		done, err := i.runLoopBody(loop.Body, env)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	i.visible = false
	return runtime.Null, nil
}
