package interpreter

import (
	"errors"

	"rcore/interpreter-go/pkg/runtime"
)

// restartEntry is one established restart. fn is nil for restarts whose
// establishing builtin handles the unwind itself.
type restartEntry struct {
	name  string
	fn    runtime.Value
	token int
}

// withRestart runs body with a restart established; a restartUnwind aimed
// at it is reported through invoked.
func (i *Interpreter) withRestart(name string, body func() error) (invoked *restartUnwind, err error) {
	token := i.newToken()
	saved := i.restarts
	i.restarts = append(saved[:len(saved):len(saved)], &restartEntry{name: name, token: token})
	err = body()
	i.restarts = saved
	var ru *restartUnwind
	if errors.As(err, &ru) && ru.token == token {
		return ru, nil
	}
	return nil, err
}

// findRestartEntry returns the innermost restart called name.
func (i *Interpreter) findRestartEntry(name string) *restartEntry {
	for k := len(i.restarts) - 1; k >= 0; k-- {
		if i.restarts[k].name == name {
			return i.restarts[k]
		}
	}
	return nil
}

func (i *Interpreter) invokeRestartEntry(e *restartEntry, args []Arg) error {
	i.logger.Debug().Str("restart", e.name).Msg("invoking restart")
	return &restartUnwind{token: e.token, name: e.name, args: args}
}

// restartObject is the R-level descriptor returned by findRestart.
func restartObject(e *restartEntry) runtime.Value {
	obj := runtime.NewList([]runtime.Value{runtime.StringScalar(e.name), runtime.IntScalar(e.token)})
	runtime.SetAttrRaw(obj, "names", runtime.StringVector("name", "exit"))
	runtime.SetAttrRaw(obj, "class", runtime.StringVector("restart"))
	return obj
}

// restartFromValue resolves a restart name or descriptor to an active entry.
func (i *Interpreter) restartFromValue(v runtime.Value) (*restartEntry, string, error) {
	if runtime.Inherits(v, "restart") {
		name, _ := runtime.AsStringScalar(listField(v, "name"))
		token, _ := runtime.AsIntScalar(listField(v, "exit"))
		for k := len(i.restarts) - 1; k >= 0; k-- {
			if e := i.restarts[k]; e.token == int(token) && e.name == name {
				return e, name, nil
			}
		}
		return nil, name, nil
	}
	name, ok := runtime.AsStringScalar(v)
	if !ok {
		return nil, "", runtime.Errorf("bad restart specification")
	}
	return i.findRestartEntry(name), name, nil
}
