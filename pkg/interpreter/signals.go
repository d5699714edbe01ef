package interpreter

import (
	"rcore/interpreter-go/pkg/runtime"
)

// breakSignal and nextSignal unwind to the innermost loop running in env.
type breakSignal struct {
	env *runtime.Environment
}

func (breakSignal) Error() string { return "break" }

type nextSignal struct {
	env *runtime.Environment
}

func (nextSignal) Error() string { return "next" }

// returnSignal unwinds to the closure whose frame environment is env.
type returnSignal struct {
	env   *runtime.Environment
	value runtime.Value
}

func (r *returnSignal) Error() string { return "return" }

// conditionUnwind transfers control to the tryCatch that established the
// exiting handler identified by token.
type conditionUnwind struct {
	token     int
	condition runtime.Value
	handler   runtime.Value
}

func (c *conditionUnwind) Error() string { return "condition unwind: " + conditionMessage(c.condition) }

// restartUnwind transfers control to the withRestarts (or builtin) that
// established the restart identified by token.
type restartUnwind struct {
	token int
	name  string
	args  []Arg
}

func (r *restartUnwind) Error() string { return "restart unwind: " + r.name }

// errorSignal carries an error condition nobody handled towards the top
// level. cause keeps the typed Go error the condition was built from.
type errorSignal struct {
	condition runtime.Value
	cause     error
}

func (e *errorSignal) Error() string { return conditionMessage(e.condition) }

func (e *errorSignal) Unwrap() error { return e.cause }

func isControlSignal(err error) bool {
	switch err.(type) {
	case breakSignal, nextSignal, *returnSignal, *conditionUnwind, *restartUnwind, *errorSignal:
		return true
	}
	return false
}
