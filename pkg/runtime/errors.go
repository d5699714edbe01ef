package runtime

import (
	"fmt"
	"strings"
)

// UnboundSymbolError is raised when a variable lookup reaches the empty root.
type UnboundSymbolError struct {
	Name string
}

func (e *UnboundSymbolError) Error() string {
	return fmt.Sprintf("object '%s' not found", e.Name)
}

// UnboundFunctionError is raised when no function binding is found for a call.
type UnboundFunctionError struct {
	Name string
}

func (e *UnboundFunctionError) Error() string {
	return fmt.Sprintf("could not find function \"%s\"", e.Name)
}

// MissingArgumentError is raised when a formal without a value is used.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("argument \"%s\" is missing, with no default", e.Name)
}

// UnusedArgumentError lists the deparsed actuals that matched no formal.
type UnusedArgumentError struct {
	Args []string
}

func (e *UnusedArgumentError) Error() string {
	if len(e.Args) == 1 {
		return fmt.Sprintf("unused argument (%s)", e.Args[0])
	}
	return fmt.Sprintf("unused arguments (%s)", strings.Join(e.Args, ", "))
}

// TypeCoercionError reports an impossible conversion or an operation on
// incompatible types.
type TypeCoercionError struct {
	From    Kind
	To      Kind
	Message string
}

func (e *TypeCoercionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("cannot coerce type '%s' to vector of type '%s'", e.From, e.To)
}

// PromiseRecursionError is raised when a promise is forced while it is
// already being evaluated.
type PromiseRecursionError struct{}

func (e *PromiseRecursionError) Error() string {
	return "promise already under evaluation: recursive default argument reference or earlier problems?"
}

// ArgumentError is a general misuse of a builtin.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// Errorf builds an ArgumentError.
func Errorf(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}
