package ast

// Short constructors used by tests and by the interpreter when it has to
// synthesize calls.

func ID(name string) *Identifier { return NewIdentifier(name) }

func Num(v float64) *NumericLiteral { return NewNumericLiteral(v) }

func Int(v int32) *IntegerLiteral { return NewIntegerLiteral(v) }

func Str(v string) *StringLiteral { return NewStringLiteral(v) }

func Bool(v bool) *LogicalLiteral {
	if v {
		return NewLogicalLiteral(LogicalTrue)
	}
	return NewLogicalLiteral(LogicalFalse)
}

func Null() *NullLiteral { return NewNullLiteral() }

// Arg builds a positional argument.
func Arg(value Expression) *Argument { return &Argument{Value: value} }

// NamedArg builds a tagged argument.
func NamedArg(name string, value Expression) *Argument {
	return &Argument{Name: name, Named: true, Value: value}
}

// Call builds a prefix call to the named function with positional arguments.
func Call(name string, args ...Expression) *CallExpression {
	out := make([]*Argument, 0, len(args))
	for _, a := range args {
		out = append(out, Arg(a))
	}
	return NewCallExpression(ID(name), out, FormPrefix)
}

// CallArgs builds a prefix call from prepared arguments.
func CallArgs(fn Expression, args ...*Argument) *CallExpression {
	return NewCallExpression(fn, args, FormPrefix)
}

// Binary builds an infix operator call.
func Binary(op string, left, right Expression) *CallExpression {
	return NewCallExpression(ID(op), []*Argument{Arg(left), Arg(right)}, FormInfix)
}

func Assign(target, value Expression) *AssignmentExpression {
	return NewAssignmentExpression(AssignLocal, target, value)
}

func SuperAssign(target, value Expression) *AssignmentExpression {
	return NewAssignmentExpression(AssignSuper, target, value)
}

func Block(body ...Expression) *BlockExpression { return NewBlockExpression(body) }

func Param(name string, def Expression) *Parameter { return &Parameter{Name: name, Default: def} }

func Fn(params []*Parameter, body Expression) *FunctionLiteral {
	return NewFunctionLiteral(params, body)
}
